package forge

import (
	"fmt"
	"strings"
	"testing"
)

func TestExitCodeFor(t *testing.T) {
	if got := exitCodeFor(nil); got != 0 {
		t.Errorf("nil error = %d", got)
	}
	if got := exitCodeFor(configErrorf("bad flag")); got != 1 {
		t.Errorf("config error = %d", got)
	}
	te := &ToolError{Cmd: []string{"ninja"}, ExitCode: 3}
	if got := exitCodeFor(te); got != 3 {
		t.Errorf("tool error = %d, want the tool's own 3", got)
	}
	// Wrapping must not hide the tool's exit code.
	if got := exitCodeFor(fmt.Errorf("building llbuild: %w", te)); got != 3 {
		t.Errorf("wrapped tool error = %d, want 3", got)
	}
}

func TestToolErrorMessage(t *testing.T) {
	te := &ToolError{
		Cmd:      []string{"cmake", "-G", "Ninja"},
		ExitCode: 2,
		Output:   "CMake Error: generator not found",
	}
	msg := te.Error()
	if !strings.Contains(msg, "exit code 2") || !strings.Contains(msg, "cmake -G Ninja") {
		t.Errorf("message lacks command context: %q", msg)
	}
	if !strings.Contains(msg, "generator not found") {
		t.Errorf("message lacks captured output: %q", msg)
	}
}
