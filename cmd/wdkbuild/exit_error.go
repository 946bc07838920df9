// SPDX-License-Identifier: MPL-2.0

package cmd

import "fmt"

// ExitError carries a specific process exit code out through fang.Execute.
// Execute() unwraps it and exits with Code instead of the generic 1.
type ExitError struct {
	// Code is the process exit code.
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}
