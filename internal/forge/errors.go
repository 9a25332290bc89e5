package forge

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigError reports contradictory or unsupported configuration, detected
// before any build step runs. It always maps to exit code 1.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ToolError reports a non-zero exit from an invoked external tool. The
// captured output is surfaced verbatim and the process exit code mirrors
// the tool's.
type ToolError struct {
	Cmd      []string
	ExitCode int
	Output   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("command failed with exit code %d: %s", e.ExitCode, strings.Join(e.Cmd, " "))
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// exitCodeFor maps an error to the process exit code: a failing tool's own
// code when known, 1 otherwise, 0 for nil.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var te *ToolError
	if errors.As(err, &te) && te.ExitCode != 0 {
		return te.ExitCode
	}
	return 1
}
