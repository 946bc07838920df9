// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

type (
	// Output is the captured result of a successful external tool invocation.
	Output struct {
		// Stdout is the captured standard output.
		Stdout string
		// Stderr is the captured standard error.
		Stderr string
	}

	// CommandRunner spawns an external program, blocks until it exits, and
	// returns its captured output. A nonzero exit or a spawn failure is
	// returned as a *CommandError.
	CommandRunner interface {
		// Run executes program with args. Entries in env are appended to the
		// inherited environment and override inherited values; env may be nil.
		Run(ctx context.Context, program string, args []string, env map[string]string) (*Output, error)
	}
)

// execRunner is the production CommandRunner backed by os/exec.
type execRunner struct{}

// NewCommandRunner creates the production command runner.
func NewCommandRunner() CommandRunner {
	return &execRunner{}
}

// Run executes the program and captures stdout/stderr separately.
func (r *execRunner) Run(ctx context.Context, program string, args []string, env map[string]string) (*Output, error) {
	cmd := exec.CommandContext(ctx, program, args...)

	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &CommandError{
				Program:  program,
				Args:     args,
				Stdout:   stdout.String(),
				ExitCode: exitErr.ExitCode(),
			}
		}
		return nil, &CommandError{
			Program:  program,
			Args:     args,
			ExitCode: -1,
			Cause:    err,
		}
	}

	return &Output{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}
