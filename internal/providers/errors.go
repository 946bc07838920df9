// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"fmt"
	"strings"
)

type (
	// CommandError reports an external tool invocation that either could not
	// be spawned or exited with a nonzero status. Stdout is captured so the
	// tool's own diagnostics survive into the error chain.
	CommandError struct {
		// Program is the executable that was invoked.
		Program string
		// Args are the arguments the program was invoked with.
		Args []string
		// Stdout is the captured standard output of the failed invocation.
		Stdout string
		// ExitCode is the process exit status, or -1 when the process
		// never started.
		ExitCode int
		// Cause is the spawn failure when the process could not start.
		Cause error
	}

	// FileError reports a failed filesystem operation together with the
	// offending path.
	FileError struct {
		// Op names the operation that failed (e.g. "copy", "create dir").
		Op string
		// Path is the path the operation was applied to.
		Path string
		// Cause is the underlying OS failure.
		Cause error
	}

	// MetadataError reports that a working directory could not be resolved
	// to a valid crate or workspace root. It is the only provider error
	// that is fatal to a whole build invocation.
	MetadataError struct {
		// WorkingDir is the directory that failed to resolve.
		WorkingDir string
		// Cause is the underlying failure.
		Cause error
	}

	// MalformedDriverConfigError reports a [package.metadata.wdk] section
	// that is present but cannot be parsed. It is scoped to one package and
	// never aborts the workspace scan.
	MalformedDriverConfigError struct {
		// Manifest is the Cargo.toml the section was read from.
		Manifest string
		// Cause is the parse failure.
		Cause error
	}
)

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to start command '%s' with args [%s]: %v",
			e.Program, strings.Join(e.Args, ", "), e.Cause)
	}
	return fmt.Sprintf("command '%s' with args [%s] failed with exit code %d\nSTDOUT: %s",
		e.Program, strings.Join(e.Args, ", "), e.ExitCode, e.Stdout)
}

// Unwrap returns the spawn failure, if any.
func (e *CommandError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *FileError) Error() string {
	return fmt.Sprintf("failed to %s '%s': %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying OS failure.
func (e *FileError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *MetadataError) Error() string {
	return fmt.Sprintf("unable to resolve '%s' as a crate or workspace root: %v", e.WorkingDir, e.Cause)
}

// Unwrap returns the underlying failure.
func (e *MetadataError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *MalformedDriverConfigError) Error() string {
	return fmt.Sprintf("error parsing WDK metadata from %s: %v", e.Manifest, e.Cause)
}

// Unwrap returns the parse failure.
func (e *MalformedDriverConfigError) Unwrap() error { return e.Cause }
