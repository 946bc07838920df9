// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"strings"
)

type (
	// PackagingError wraps a provider-level failure with the package name
	// and the pipeline stage that was in progress.
	PackagingError struct {
		// Package is the member the failure belongs to.
		Package string
		// Stage is the pipeline stage that failed.
		Stage Stage
		// Cause is the underlying tool or filesystem failure.
		Cause error
	}

	// AggregateError is the top-level verdict of an invocation where at
	// least one member failed. It names the working directory and every
	// failed package.
	AggregateError struct {
		// WorkingDir is the workspace root of the failed invocation.
		WorkingDir string
		// Packages are the names of all failed members, in discovery order.
		Packages []string
	}
)

// Error implements the error interface.
func (e *PackagingError) Error() string {
	return fmt.Sprintf("error packaging package '%s' at stage %s: %v", e.Package, e.Stage, e.Cause)
}

// Unwrap returns the underlying failure.
func (e *PackagingError) Unwrap() error { return e.Cause }

// Error implements the error interface.
func (e *AggregateError) Error() string {
	return fmt.Sprintf(
		"One or more driver projects failed to package in the working directory: %s, failed packages: %s",
		e.WorkingDir, strings.Join(e.Packages, ", "))
}
