package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Status reports the availability of one external dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Tool is an external binary the kiosk shells out to at runtime.
type Tool struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Check resolves the tool through PATH and reports its availability.
func (t Tool) Check() Status {
	status := Status{
		Name:        t.Name,
		Command:     strings.TrimSpace(t.Command),
		Description: strings.TrimSpace(t.Description),
		Optional:    t.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(status.Command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	return status
}

// Diagnostics reports the optional tooling the status displays cover. The
// vision worker is checked separately because it may be an explicit path.
func Diagnostics() []Status {
	tools := []Tool{
		{
			Name:        "v4l2-ctl",
			Command:     "v4l2-ctl",
			Description: "Lists video devices for camera diagnostics",
			Optional:    true,
		},
	}
	statuses := make([]Status, 0, len(tools))
	for _, tool := range tools {
		statuses = append(statuses, tool.Check())
	}
	return statuses
}
