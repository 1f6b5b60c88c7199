package vision

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"facegate/internal/config"
	"facegate/internal/logging"
)

var commandContext = exec.CommandContext

// Provider supplies detection frames to the pipeline.
type Provider interface {
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the command provider.
type Option func(*CommandProvider)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(p *CommandProvider) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// WithRestartPause overrides the pause between provider relaunches.
func WithRestartPause(pause time.Duration) Option {
	return func(p *CommandProvider) {
		if pause > 0 {
			p.restartPause = pause
		}
	}
}

const frameBuffer = 16

type frameResult struct {
	frame Frame
	err   error
}

// CommandProvider launches the configured vision command and streams its
// stdout frames. The process is relaunched after a pause whenever it exits;
// each exit is surfaced to the caller once as ErrProviderRestarted.
type CommandProvider struct {
	binary       string
	args         []string
	exec         Executor
	logger       *slog.Logger
	restartPause time.Duration

	results chan frameResult

	mu     sync.Mutex
	cancel context.CancelFunc

	closeOnce sync.Once
}

// NewCommandProvider constructs a provider from configuration.
func NewCommandProvider(cfg *config.Config, logger *slog.Logger, opts ...Option) (*CommandProvider, error) {
	command := strings.TrimSpace(cfg.Vision.Command)
	if command == "" {
		return nil, errors.New("vision command required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	provider := &CommandProvider{
		binary:       command,
		args:         append([]string(nil), cfg.Vision.Args...),
		exec:         commandExecutor{},
		logger:       logging.NewComponentLogger(logger, "vision"),
		restartPause: cfg.VisionRestartPause(),
		results:      make(chan frameResult, frameBuffer),
	}
	if provider.restartPause <= 0 {
		provider.restartPause = 2 * time.Second
	}
	for _, opt := range opts {
		opt(provider)
	}
	return provider, nil
}

// Start launches the provider process supervision loop.
func (p *CommandProvider) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("vision provider already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	go p.run(runCtx)
	return nil
}

// Next returns the next frame or a skippable error. It blocks until a frame
// arrives, the context is cancelled, or the provider is closed.
func (p *CommandProvider) Next(ctx context.Context) (Frame, error) {
	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case res, ok := <-p.results:
		if !ok {
			return Frame{}, ErrProviderClosed
		}
		return res.frame, res.err
	}
}

// Close stops the supervision loop and the provider process.
func (p *CommandProvider) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	return nil
}

func (p *CommandProvider) run(ctx context.Context) {
	defer close(p.results)

	restarts := 0
	for {
		if ctx.Err() != nil {
			return
		}
		p.logger.Info("starting vision provider", "command", p.binary, "restarts", restarts)

		var lastSeq int64
		err := p.exec.Run(ctx, p.binary, p.args, func(line string) {
			if strings.TrimSpace(line) == "" {
				return
			}
			frame, decodeErr := decodeFrame([]byte(line), lastSeq, time.Now())
			if decodeErr != nil {
				p.deliver(ctx, frameResult{err: decodeErr})
				return
			}
			lastSeq = frame.Seq
			p.deliver(ctx, frameResult{frame: frame})
		})
		if ctx.Err() != nil {
			return
		}

		if err == nil {
			err = errors.New("process exited")
		}
		p.logger.Warn("vision provider exited", "error", err, "restart_in", p.restartPause)
		p.deliver(ctx, frameResult{err: fmt.Errorf("%w: %v", ErrProviderRestarted, err)})
		restarts++

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.restartPause):
		}
	}
}

func (p *CommandProvider) deliver(ctx context.Context, res frameResult) {
	select {
	case p.results <- res:
	case <-ctx.Done():
	}
}

const stderrTailLines = 20

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once
	var tail []string

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout, func(line string) {
		if onStdout != nil {
			onStdout(line)
		}
	})
	go scan(stderr, func(line string) {
		tail = append(tail, line)
		if len(tail) > stderrTailLines {
			tail = tail[len(tail)-stderrTailLines:]
		}
	})

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		if detail := strings.Join(tail, "\n"); detail != "" {
			return fmt.Errorf("wait command: %w: %s", err, detail)
		}
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

var _ Provider = (*CommandProvider)(nil)
