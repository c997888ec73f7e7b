// Package runner executes the external tools the migration workflow depends
// on (cargo, cargo_embargo, patch). Every call blocks until the process exits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type RunOptions struct {
	Dir    string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Output is the captured result of one process invocation.
type Output struct {
	Command  string
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the process exited with status zero.
func (o Output) Success() bool {
	return o.ExitCode == 0
}

// SuccessOrError returns nil for a zero exit status, otherwise an error that
// carries the command line and its stderr.
func (o Output) SuccessOrError() error {
	if o.Success() {
		return nil
	}
	stderr := strings.TrimSpace(string(o.Stderr))
	if stderr == "" {
		return fmt.Errorf("%s exited with status %d", o.Command, o.ExitCode)
	}
	return fmt.Errorf("%s exited with status %d: %s", o.Command, o.ExitCode, stderr)
}

// Runner starts a process and waits for it. A non-zero exit status is reported
// through Output.ExitCode; the returned error is reserved for processes that
// could not be started or waited on.
type Runner interface {
	Run(ctx context.Context, command string, args []string, opts RunOptions) (Output, error)
}

type CmdRunner struct{}

func (CmdRunner) Run(ctx context.Context, command string, args []string, opts RunOptions) (Output, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, command, args...)
	if opts.Dir != "" {
		cmd.Dir = opts.Dir
	}
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdoutBuf, stderrBuf bytes.Buffer

	stdoutWriter := io.Writer(&stdoutBuf)
	if opts.Stdout != nil {
		stdoutWriter = io.MultiWriter(&stdoutBuf, opts.Stdout)
	}
	stderrWriter := io.Writer(&stderrBuf)
	if opts.Stderr != nil {
		stderrWriter = io.MultiWriter(&stderrBuf, opts.Stderr)
	}

	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter

	out := Output{Command: CommandLine(command, args)}
	err := cmd.Run()
	out.Stdout = stdoutBuf.Bytes()
	out.Stderr = stderrBuf.Bytes()
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		out.ExitCode = exitErr.ExitCode()
		return out, nil
	}
	out.ExitCode = 127
	return out, fmt.Errorf("run %s: %w", out.Command, err)
}

// CommandLine renders a command and its arguments for diagnostics.
func CommandLine(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}

var _ Runner = CmdRunner{}
