// SPDX-License-Identifier: MPL-2.0

package build

import (
	"fmt"
	"strings"

	"github.com/svasista-ms/wdkbuild/internal/providers"
)

// Build profiles.
const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// Target architectures.
const (
	ArchAmd64 Architecture = "amd64"
	ArchArm64 Architecture = "arm64"
)

// Pipeline stages, in execution order. A failed package records the stage
// that was in progress when the error occurred.
const (
	StageClassification Stage = "classification"
	StageBuild          Stage = "build"
	StageStamp          Stage = "stamp"
	StageCatalog        Stage = "catalog"
	StageSign           Stage = "sign"
	StagePackage        Stage = "package"
)

// Per-package outcome statuses.
const (
	StatusSkipped   Status = "skipped"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type (
	// Profile is the build configuration, debug or release.
	Profile string

	// Architecture is a supported driver target architecture.
	Architecture string

	// Stage identifies a step of the per-package pipeline.
	Stage string

	// Status is the terminal state of one package's processing.
	Status string

	// TargetArch is the resolved target architecture together with how it
	// was chosen. A host-detected default keeps compiler output in the
	// plain target/<profile> directory; an explicitly selected target adds
	// the triple directory, matching cargo's --target behavior.
	TargetArch struct {
		// Arch is the resolved architecture.
		Arch Architecture
		// Selected is true when the caller chose the architecture
		// explicitly rather than falling back to the host default.
		Selected bool
	}

	// Params are the immutable inputs of one build invocation.
	Params struct {
		// WorkingDir is the crate or workspace root to build.
		WorkingDir string
		// Profile is the build configuration.
		Profile Profile
		// Target is the resolved target architecture.
		Target TargetArch
		// VerifySignature enables signature verification after signing.
		VerifySignature bool
		// SampleClass marks the build as a sample class driver build.
		SampleClass bool
		// Verbose enables stage-level debug logging.
		Verbose bool
	}

	// PackageOutcome is produced exactly once per discovered member when
	// its processing completes.
	PackageOutcome struct {
		// Package is the member package name.
		Package string
		// Status is the terminal state.
		Status Status
		// SkipReason explains a StatusSkipped outcome.
		SkipReason string
		// Stage is the pipeline stage a StatusFailed outcome failed in.
		Stage Stage
		// Err is the failure for a StatusFailed outcome.
		Err error
	}

	// WorkspaceOutcome is the ordered collection of every member outcome
	// for one invocation.
	WorkspaceOutcome struct {
		// WorkingDir is the workspace the outcomes belong to.
		WorkingDir string
		// Outcomes holds one entry per discovered member, in discovery order.
		Outcomes []PackageOutcome
	}
)

// ParseProfile parses a CLI profile value (case-insensitive).
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(s) {
	case "debug":
		return ProfileDebug, nil
	case "release":
		return ProfileRelease, nil
	}
	return "", fmt.Errorf("'%s' is not a valid profile (expected debug or release)", s)
}

// Dir returns the target subdirectory cargo uses for the profile.
func (p Profile) Dir() string { return string(p) }

// ParseArchitecture parses a CLI architecture value (case-insensitive).
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(s) {
	case "x64":
		return ArchAmd64, nil
	case "arm64":
		return ArchArm64, nil
	}
	return "", fmt.Errorf("'%s' is not a valid target architecture (expected x64 or arm64)", s)
}

// Triple returns the Rust target triple for the architecture.
func (a Architecture) Triple() string {
	if a == ArchArm64 {
		return "aarch64-pc-windows-msvc"
	}
	return "x86_64-pc-windows-msvc"
}

// StampArg returns the architecture name the INF stamping tool expects.
func (a Architecture) StampArg() string {
	if a == ArchArm64 {
		return "ARM64"
	}
	return "amd64"
}

// CatalogOSArg returns the /os argument for the catalog generation tool,
// covering the supported OS releases for the architecture.
func (a Architecture) CatalogOSArg() string {
	if a == ArchArm64 {
		return "10_NI_ARM64,10_VB_ARM64"
	}
	return "10_NI_X64,10_VB_X64"
}

// BinaryExt returns the packaged binary extension for a driver kind:
// kernel-mode drivers ship a .sys, user-mode drivers a .dll.
func BinaryExt(kind providers.DriverKind) string {
	if kind == providers.KindUmdf {
		return ".dll"
	}
	return ".sys"
}

// Succeeded reports whether the invocation had no failed members. Skipped
// members never contribute to failure.
func (w *WorkspaceOutcome) Succeeded() bool {
	for _, o := range w.Outcomes {
		if o.Status == StatusFailed {
			return false
		}
	}
	return true
}

// FailedPackages returns the names of all failed members, in discovery order.
func (w *WorkspaceOutcome) FailedPackages() []string {
	var failed []string
	for _, o := range w.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o.Package)
		}
	}
	return failed
}
