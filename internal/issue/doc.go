// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error context for the CLI layer.
//
// ActionableError carries the operation that failed, the resource involved,
// and suggestions for fixing the problem. The issue catalog holds markdown
// guidance for recurring failure classes (missing WDK tooling, unsupported
// host target, invalid working directory) rendered with glamour.
package issue
