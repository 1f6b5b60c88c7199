package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"facegate/internal/config"
	"facegate/internal/daemonrun"
)

type cliOptions struct {
	configPath string
	socketPath string
	logLevel   string
}

func parseArgs(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("facegated", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to the configuration file")
	fs.StringVar(&opts.socketPath, "socket", "", "control socket path override")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}

	// Optional .env so FACEGATE_* overrides apply before config resolution.
	_ = godotenv.Load()

	cfg, _, _, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	return daemonrun.Run(ctx, cfg, daemonrun.Options{
		SocketPath: opts.socketPath,
		LogLevel:   opts.logLevel,
	})
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		log.Fatalf("facegated: %v", err)
	}
}
