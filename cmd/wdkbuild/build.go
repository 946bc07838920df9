// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/svasista-ms/wdkbuild/internal/build"
	"github.com/svasista-ms/wdkbuild/internal/issue"
	"github.com/svasista-ms/wdkbuild/internal/providers"
)

var (
	buildCwd             string
	buildProfile         string
	buildTargetArch      string
	buildVerifySignature bool
	buildSample          bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build and package every driver crate in the workspace",
		Long: `Build compiles each workspace member and, for members that declare a
[package.metadata.wdk] section, runs the driver packaging pipeline:
stamp the INF, generate and sign the catalog, and collect the artifacts
into a <crate>_package directory under the target profile directory.

Members without WDK metadata are skipped. A member that fails does not
stop the others; failures are aggregated at the end.`,
		Example: `  wdkbuild build
  wdkbuild build --cwd drivers/ --profile release
  wdkbuild build --target-arch arm64 --verify-signature`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVar(&buildCwd, "cwd", ".", "crate or workspace root to build")
	buildCmd.Flags().StringVar(&buildProfile, "profile", "", "build profile: debug or release (default from config)")
	buildCmd.Flags().StringVar(&buildTargetArch, "target-arch", "", "target architecture: x64 or arm64 (default: host)")
	buildCmd.Flags().BoolVar(&buildVerifySignature, "verify-signature", false, "verify signatures after signing")
	buildCmd.Flags().BoolVar(&buildSample, "sample", false, "treat drivers as sample-class (forces signature verification)")
}

func runBuild(cobraCmd *cobra.Command, _ []string) error {
	logger := newBuildLogger()
	runner := providers.NewCommandRunner()
	fs := providers.NewFS()
	metadata := providers.NewMetadata()
	toolchain := providers.NewToolchain(cfg.Wdk.ContentRoot, cfg.Wdk.Version)

	profile, err := resolveProfile()
	if err != nil {
		return reportBuildError(err)
	}

	target, err := resolveTarget(cobraCmd, runner)
	if err != nil {
		return reportBuildError(err)
	}

	params := build.Params{
		WorkingDir:      buildCwd,
		Profile:         profile,
		Target:          target,
		VerifySignature: buildVerifySignature,
		SampleClass:     buildSample,
		Verbose:         verbose,
	}

	action, err := build.NewAction(params, toolsFromConfig(), runner, fs, metadata, toolchain, logger)
	if err != nil {
		return reportBuildError(err)
	}

	if _, err := action.Run(cobraCmd.Context()); err != nil {
		return reportBuildError(err)
	}
	return nil
}

// newBuildLogger builds the structured logger for the build pipeline.
func newBuildLogger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// resolveProfile picks the build profile from the flag or config default.
func resolveProfile() (build.Profile, error) {
	name := buildProfile
	if name == "" {
		name = cfg.Build.DefaultProfile
	}
	return build.ParseProfile(name)
}

// resolveTarget returns the target architecture: the explicit --target-arch
// selection when given, otherwise the detected host architecture. Only an
// explicit selection later becomes a --target compiler flag.
func resolveTarget(cobraCmd *cobra.Command, runner providers.CommandRunner) (build.TargetArch, error) {
	if buildTargetArch != "" {
		arch, err := build.ParseArchitecture(buildTargetArch)
		if err != nil {
			return build.TargetArch{}, err
		}
		return build.TargetArch{Arch: arch, Selected: true}, nil
	}

	arch, err := build.DetectHostArch(cobraCmd.Context(), runner)
	if err != nil {
		return build.TargetArch{}, err
	}
	return build.TargetArch{Arch: arch}, nil
}

// toolsFromConfig converts configured tool overrides to pipeline tool names.
func toolsFromConfig() build.Tools {
	tools := cfg.BuildTools()
	return build.Tools{
		Cargo:    tools.Cargo,
		Stampinf: tools.Stampinf,
		Inf2cat:  tools.Inf2cat,
		Certmgr:  tools.Certmgr,
		Makecert: tools.Makecert,
		Signtool: tools.Signtool,
	}
}

// reportBuildError prints the error (and a matching issue catalog entry,
// when one applies) and converts it into a nonzero exit.
func reportBuildError(err error) error {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	renderIssue(os.Stderr, issueFor(err))
	return &ExitError{Code: 1}
}

// issueFor maps an error chain to an issue catalog entry, or 0 when no
// catalog entry applies.
func issueFor(err error) issue.Id {
	if errors.Is(err, build.ErrUnsupportedHostTarget) {
		return issue.UnsupportedHostTargetId
	}

	var metadataErr *providers.MetadataError
	if errors.As(err, &metadataErr) {
		return issue.NotAWorkspaceId
	}

	var driverCfgErr *providers.MalformedDriverConfigError
	if errors.As(err, &driverCfgErr) {
		return issue.MalformedWdkMetadataId
	}

	// Spawn failures (the program could not be started at all) point at a
	// missing toolchain rather than a build problem.
	var cmdErr *providers.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode < 0 {
		switch cmdErr.Program {
		case cfg.BuildTools().Cargo, "rustc":
			return issue.CompilerNotFoundId
		default:
			return issue.WdkToolingNotFoundId
		}
	}
	return 0
}

// renderIssue writes a rendered issue catalog entry to stderr.
func renderIssue(stderr *os.File, id issue.Id) {
	if id == 0 {
		return
	}
	entry := issue.Get(id)
	if entry == nil {
		return
	}
	rendered, err := entry.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(stderr, rendered)
}
