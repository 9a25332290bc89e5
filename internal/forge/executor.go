package forge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Executor provides a consistent interface for executing external build
// tools with context cancellation and process-group cleanup.
type Executor struct {
	Context context.Context // The context to use for cancellation
	Echo    bool            // Echo each command before running it
}

func NewExecutor(ctx context.Context) *Executor {
	return &Executor{Context: ctx}
}

func cmdString(cmd *exec.Cmd) string {
	return strings.Join(cmd.Args, " ")
}

// Run executes the given command and blocks to completion. The child runs
// in its own process group so that cancellation kills the whole build tool,
// including any sub-processes it spawned (ninja, compiler jobs).
func (e *Executor) Run(cmd *exec.Cmd) error {
	if cmd.Stdin == nil {
		cmd.Stdin = os.Stdin
	}
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if e.Echo {
		fmt.Println(cmdString(cmd))
	}

	finalCmd := exec.CommandContext(e.Context, cmd.Path, cmd.Args[1:]...)
	finalCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		finalCmd.Env = cmd.Env
	} else {
		finalCmd.Env = os.Environ()
	}
	finalCmd.Stdin = cmd.Stdin
	finalCmd.Stdout = cmd.Stdout
	finalCmd.Stderr = cmd.Stderr
	finalCmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := finalCmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	pgid := finalCmd.Process.Pid
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-e.Context.Done():
			syscall.Kill(-pgid, syscall.SIGKILL)
		case <-done:
		}
	}()

	if waitErr := finalCmd.Wait(); waitErr != nil {
		if e.Context.Err() != nil {
			time.Sleep(100 * time.Millisecond)
			return fmt.Errorf("command aborted: %v", e.Context.Err())
		}
		return waitErr
	}
	return nil
}

// RunChecked runs the command and converts a non-zero exit into a
// ToolError carrying the tool's exit code.
func (e *Executor) RunChecked(cmd *exec.Cmd) error {
	if err := e.Run(cmd); err != nil {
		return toolError(cmd, err, "")
	}
	return nil
}

// RunCapture runs the command with stdout and stderr collected into one
// buffer, optionally teeing to extra writers (a log file, the console).
// On a non-zero exit the captured output rides along in the ToolError so
// the caller can surface it verbatim.
func (e *Executor) RunCapture(cmd *exec.Cmd, tee ...io.Writer) (string, error) {
	var buf bytes.Buffer
	var out io.Writer = &buf
	if len(tee) > 0 {
		out = io.MultiWriter(append([]io.Writer{&buf}, tee...)...)
	}
	// Captured tools must not prompt, so stdin is an empty reader rather
	// than the terminal.
	cmd.Stdin = strings.NewReader("")
	cmd.Stdout = out
	cmd.Stderr = out
	if err := e.Run(cmd); err != nil {
		return buf.String(), toolError(cmd, err, buf.String())
	}
	return buf.String(), nil
}

// toolError wraps an exec failure as a ToolError, preserving the exit code
// when the process ran and exited non-zero.
func toolError(cmd *exec.Cmd, err error, output string) error {
	code := 1
	var ee *exec.ExitError
	if errors.As(err, &ee) && ee.ExitCode() > 0 {
		code = ee.ExitCode()
	}
	return &ToolError{Cmd: cmd.Args, ExitCode: code, Output: output}
}
