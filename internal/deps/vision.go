package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// CheckVisionWorker reports the binary the vision provider will execute.
//
// Commands containing a path separator are inspected directly so status
// output can distinguish a missing file from a file without the executable
// bit. Bare names resolve through PATH, matching the provider's exec call.
func CheckVisionWorker(command string) Status {
	result := Status{
		Name:        "Vision worker",
		Description: "Captures camera frames and identifies faces",
	}

	binary := strings.TrimSpace(command)
	if binary == "" {
		result.Detail = "command not configured"
		return result
	}
	result.Command = binary

	if strings.ContainsRune(binary, os.PathSeparator) {
		info, err := os.Stat(binary)
		switch {
		case err != nil:
			result.Detail = fmt.Sprintf("stat %q: %v", binary, err)
		case !isExecutable(info):
			result.Detail = fmt.Sprintf("%q is not executable", binary)
		default:
			result.Available = true
		}
		return result
	}

	resolved, err := exec.LookPath(binary)
	if err != nil {
		result.Detail = fmt.Sprintf("binary %q not found", binary)
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
