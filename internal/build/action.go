// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/svasista-ms/wdkbuild/internal/issue"
	"github.com/svasista-ms/wdkbuild/internal/providers"
)

type (
	// Tools holds the external program names the pipeline invokes. Overridden
	// through configuration when the tools are not on PATH.
	Tools struct {
		Cargo    string
		Stampinf string
		Inf2cat  string
		Certmgr  string
		Makecert string
		Signtool string
	}

	// Action is the build orchestrator for one invocation. All external
	// effects go through the injected providers, so an Action is fully
	// deterministic under test fakes.
	Action struct {
		params    Params
		tools     Tools
		runner    providers.CommandRunner
		fs        providers.FS
		metadata  providers.Metadata
		toolchain providers.Toolchain
		logger    *log.Logger
	}
)

// DefaultTools returns the standard WDK and Rust tool names.
func DefaultTools() Tools {
	return Tools{
		Cargo:    "cargo",
		Stampinf: "stampinf",
		Inf2cat:  "inf2cat",
		Certmgr:  "certmgr",
		Makecert: "makecert",
		Signtool: "signtool",
	}
}

// NewAction validates the working directory and wires an orchestrator.
// The logger is tagged with a short run ID so interleaved invocations in
// CI logs stay distinguishable.
func NewAction(params Params, tools Tools, runner providers.CommandRunner, fs providers.FS,
	metadata providers.Metadata, toolchain providers.Toolchain, logger *log.Logger,
) (*Action, error) {
	absDir, err := filepath.Abs(params.WorkingDir)
	if err != nil {
		return nil, issue.WrapWithContext(err, "resolve working directory", params.WorkingDir)
	}
	if _, err := os.Stat(absDir); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("resolve working directory").
			WithResource(absDir).
			WithSuggestion("Pass an existing crate or workspace root via --cwd").
			Wrap(err).
			BuildError()
	}
	params.WorkingDir = absDir

	if logger == nil {
		logger = log.Default()
	}
	return &Action{
		params:    params,
		tools:     tools,
		runner:    runner,
		fs:        fs,
		metadata:  metadata,
		toolchain: toolchain,
		logger:    logger.With("run", uuid.NewString()[:8]),
	}, nil
}

// Run processes every workspace member in discovery order and returns the
// collected outcomes. Only workspace discovery failure is fatal; member
// failures are recorded and the scan continues. The returned error is the
// aggregate verdict: non-nil iff at least one member failed.
func (a *Action) Run(ctx context.Context) (*WorkspaceOutcome, error) {
	members, err := a.metadata.WorkspaceMembers(a.params.WorkingDir)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("resolve workspace").
			WithResource(a.params.WorkingDir).
			WithSuggestion("Make sure the working directory contains a Cargo.toml").
			Wrap(err).
			BuildError()
	}

	a.logger.Debug("discovered workspace members", "count", len(members))

	outcome := &WorkspaceOutcome{WorkingDir: a.params.WorkingDir}
	for _, manifest := range members {
		outcome.Outcomes = append(outcome.Outcomes, a.processMember(ctx, manifest))
	}

	Report(a.logger, outcome)

	if !outcome.Succeeded() {
		return outcome, &AggregateError{
			WorkingDir: a.params.WorkingDir,
			Packages:   outcome.FailedPackages(),
		}
	}
	return outcome, nil
}

// processMember classifies one member and, for drivers, compiles it and
// runs the packaging pipeline. Every return path produces exactly one
// terminal outcome for the member.
func (a *Action) processMember(ctx context.Context, manifestPath string) PackageOutcome {
	pkg, err := a.metadata.PackageManifest(manifestPath)
	if err != nil {
		return PackageOutcome{
			Package: manifestPath,
			Status:  StatusFailed,
			Stage:   StageClassification,
			Err:     &PackagingError{Package: manifestPath, Stage: StageClassification, Cause: err},
		}
	}

	logger := a.logger.With("package", pkg.Name)

	cfg, present, err := a.metadata.PackageDriverConfig(manifestPath)
	if err != nil {
		return PackageOutcome{
			Package: pkg.Name,
			Status:  StatusFailed,
			Stage:   StageClassification,
			Err:     &PackagingError{Package: pkg.Name, Stage: StageClassification, Cause: err},
		}
	}
	if !present {
		return PackageOutcome{
			Package:    pkg.Name,
			Status:     StatusSkipped,
			SkipReason: "No package.metadata.wdk section found",
		}
	}

	logger.Debug("classified driver package", "kind", cfg.Kind)

	toolchainCfg, err := a.toolchain.Resolve(a.params.Target.Arch.Triple())
	if err != nil {
		return a.failed(pkg.Name, StageBuild, err)
	}

	if err := a.compile(ctx, pkg, toolchainCfg); err != nil {
		return a.failed(pkg.Name, StageBuild, err)
	}
	logger.Debug("compiled driver package", "profile", a.params.Profile)

	p := newPackager(a.params, a.tools, a.runner, a.fs, logger, pkg, cfg, toolchainCfg)
	if stage, err := p.run(ctx); err != nil {
		return a.failed(pkg.Name, stage, err)
	}

	return PackageOutcome{Package: pkg.Name, Status: StatusSucceeded}
}

// compile builds one driver member through the compiler.
func (a *Action) compile(ctx context.Context, pkg *providers.PackageManifest, tc *providers.ToolchainConfig) error {
	args := []string{
		"build",
		"-p", pkg.Name,
		"--manifest-path", filepath.Join(a.params.WorkingDir, "Cargo.toml"),
	}
	if a.params.Profile == ProfileRelease {
		args = append(args, "--release")
	}
	if a.params.Target.Selected {
		args = append(args, "--target", tc.Triple)
	}
	if a.params.Verbose {
		args = append(args, "-v")
	}

	env := map[string]string{
		"INCLUDE": strings.Join(tc.IncludePaths, ";"),
		"LIB":     strings.Join(tc.LibPaths, ";"),
	}
	_, err := a.runner.Run(ctx, a.tools.Cargo, args, env)
	return err
}

// failed builds a failure outcome with package and stage context attached.
func (a *Action) failed(name string, stage Stage, err error) PackageOutcome {
	return PackageOutcome{
		Package: name,
		Status:  StatusFailed,
		Stage:   stage,
		Err:     &PackagingError{Package: name, Stage: stage, Cause: err},
	}
}

// profileTargetDir returns target/<triple?>/<profile> for the invocation.
// The triple directory only exists when the target was explicitly selected,
// matching the compiler's --target output layout.
func profileTargetDir(params Params) string {
	base := filepath.Join(params.WorkingDir, "target")
	if params.Target.Selected {
		base = filepath.Join(base, params.Target.Arch.Triple())
	}
	return filepath.Join(base, params.Profile.Dir())
}

// underscored converts a package name to its artifact file stem; cargo
// replaces dashes with underscores in produced binaries.
func underscored(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// packageDirName returns the driver package directory name for a package.
func packageDirName(name string) string {
	return fmt.Sprintf("%s_package", underscored(name))
}
