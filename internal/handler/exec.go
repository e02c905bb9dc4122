package handler

import (
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/agalue/lurker/internal/dispatcher"
	"github.com/agalue/lurker/internal/registry"
)

// execConfig is the shape an individual action's command payload must
// have to be runnable by this handler. The "exec" handler itself reads
// nothing from handler_config.
type execConfig struct {
	Argv []string `json:"argv"`
}

// Exec runs an external program named by the matched action's command
// payload. The registry never interprets Command; a handler that
// knows its shape may.
type Exec struct{}

// NewExec builds an Exec handler. Its constructor takes no
// configuration of its own; argv always comes from the action.
func NewExec(map[string]any) (dispatcher.Handler, error) {
	return Exec{}, nil
}

// Handle decodes action.Command as {"argv": [...]} and runs argv[0]
// with the rest as arguments. A missing or empty argv is a handler
// error; the process's own exit status (if nonzero) is surfaced as a
// nonzero status, not an error, since that is a well-formed failure
// result rather than a handler malfunction.
func (Exec) Handle(action *registry.Action, match *registry.Match) (int, error) {
	var cfg execConfig
	if err := json.Unmarshal(action.Command, &cfg); err != nil {
		return 1, fmt.Errorf("exec: decode command: %w", err)
	}
	if len(cfg.Argv) == 0 {
		return 1, fmt.Errorf("exec: command has empty argv")
	}

	cmd := exec.Command(cfg.Argv[0], cfg.Argv[1:]...)
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 1, fmt.Errorf("exec: %w", err)
	}
	return 0, nil
}
