// SPDX-License-Identifier: MPL-2.0

// Package build orchestrates the compilation and packaging of Windows
// driver crates in a Cargo workspace.
//
// Action discovers the workspace members, classifies each one as a driver
// or non-driver from its [package.metadata.wdk] section, compiles driver
// members, and drives each through the packaging state machine
// (stamp -> catalog -> sign -> package) implemented in packager. Members
// are processed strictly sequentially in discovery order; one member's
// failure never stops the scan. Outcomes are collected into a
// WorkspaceOutcome and reported at the end of the run.
//
// All external effects flow through the capability interfaces in
// internal/providers, injected at construction time.
package build
