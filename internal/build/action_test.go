// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/svasista-ms/wdkbuild/internal/providers"
)

// newTestAction wires an Action over the given fakes with a discarded logger.
func newTestAction(t *testing.T, params Params, runner *fakeRunner, fs *fakeFS, metadata *fakeMetadata) *Action {
	t.Helper()
	action, err := NewAction(params, DefaultTools(), runner, fs, metadata, &fakeToolchain{}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewAction() error = %v", err)
	}
	return action
}

// kmdfEntry builds a scripted KMDF driver member.
func kmdfEntry(name, manifest string) driverEntry {
	return driverEntry{
		manifest: &providers.PackageManifest{Name: name, Version: "0.1.0", Path: manifest},
		cfg: &providers.DriverConfig{
			Kind:                   providers.KindKmdf,
			KmdfVersionMajor:       1,
			TargetKmdfVersionMinor: 33,
		},
		present: true,
	}
}

func TestNewActionRejectsMissingWorkingDir(t *testing.T) {
	t.Parallel()

	params := Params{WorkingDir: filepath.Join(t.TempDir(), "does-not-exist"), Profile: ProfileDebug}
	_, err := NewAction(params, DefaultTools(), newFakeRunner(), newFakeFS(), &fakeMetadata{}, &fakeToolchain{}, nil)
	if err == nil {
		t.Fatal("NewAction() error = nil, want error for missing working directory")
	}
}

func TestRunSkipsMembersWithoutDriverMetadata(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	driver := memberPath(root, "kmdf-driver")
	plain := memberPath(root, "helper-lib")
	params := Params{WorkingDir: root, Profile: ProfileDebug, Target: TargetArch{Arch: ArchAmd64}}

	runner := newFakeRunner()
	fs := newFakeFS()
	fs.put(filepath.Join(root, "kmdf-driver", "kmdf_driver.inx"), "; template")
	seedDriverArtifacts(fs, runner, params, "kmdf-driver")

	metadata := &fakeMetadata{
		members: []string{driver, plain},
		entries: map[string]driverEntry{
			driver: kmdfEntry("kmdf-driver", driver),
			plain: {
				manifest: &providers.PackageManifest{Name: "helper-lib", Version: "0.1.0", Path: plain},
			},
		},
	}

	outcome, err := newTestAction(t, params, runner, fs, metadata).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := outcome.Outcomes[0].Status; got != StatusSucceeded {
		t.Errorf("driver status = %s, want %s (err: %v)", got, StatusSucceeded, outcome.Outcomes[0].Err)
	}
	skipped := outcome.Outcomes[1]
	if skipped.Status != StatusSkipped {
		t.Errorf("helper-lib status = %s, want %s", skipped.Status, StatusSkipped)
	}
	if skipped.SkipReason != "No package.metadata.wdk section found" {
		t.Errorf("SkipReason = %q", skipped.SkipReason)
	}

	// The compiler runs once: skipped members are never built.
	if got := len(runner.callsTo("cargo")); got != 1 {
		t.Errorf("cargo invocations = %d, want 1", got)
	}
}

func TestRunIsolatesMemberFailures(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	good := memberPath(root, "good-driver")
	broken := memberPath(root, "broken-driver")
	plain := memberPath(root, "helper-lib")
	params := Params{WorkingDir: root, Profile: ProfileDebug, Target: TargetArch{Arch: ArchAmd64}}

	runner := newFakeRunner()
	fs := newFakeFS()
	fs.put(filepath.Join(root, "good-driver", "good_driver.inx"), "; template")
	seedDriverArtifacts(fs, runner, params, "good-driver")

	metadata := &fakeMetadata{
		members: []string{good, broken, plain},
		entries: map[string]driverEntry{
			good: kmdfEntry("good-driver", good),
			broken: {
				manifest: &providers.PackageManifest{Name: "broken-driver", Version: "0.1.0", Path: broken},
				present:  true,
				cfgErr: &providers.MalformedDriverConfigError{
					Manifest: broken,
					Cause:    fmt.Errorf("unknown driver-type %q (expected KMDF, UMDF or WDM)", "XMDF"),
				},
			},
			plain: {
				manifest: &providers.PackageManifest{Name: "helper-lib", Version: "0.1.0", Path: plain},
			},
		},
	}

	outcome, err := newTestAction(t, params, runner, fs, metadata).Run(context.Background())

	var aggErr *AggregateError
	if !errors.As(err, &aggErr) {
		t.Fatalf("Run() error = %v, want *AggregateError", err)
	}
	if len(aggErr.Packages) != 1 || aggErr.Packages[0] != "broken-driver" {
		t.Errorf("AggregateError.Packages = %v, want exactly the broken member", aggErr.Packages)
	}
	wantMsg := "One or more driver projects failed to package in the working directory: " +
		params.WorkingDir + ", failed packages: broken-driver"
	if !strings.Contains(aggErr.Error(), wantMsg) {
		t.Errorf("AggregateError.Error() = %q, want %q", aggErr.Error(), wantMsg)
	}

	// The failure is scoped: the other members still completed.
	if outcome.Outcomes[0].Status != StatusSucceeded {
		t.Errorf("good-driver status = %s (err: %v)", outcome.Outcomes[0].Status, outcome.Outcomes[0].Err)
	}
	if outcome.Outcomes[1].Status != StatusFailed || outcome.Outcomes[1].Stage != StageClassification {
		t.Errorf("broken-driver outcome = %+v, want classification failure", outcome.Outcomes[1])
	}
	if outcome.Outcomes[2].Status != StatusSkipped {
		t.Errorf("helper-lib status = %s", outcome.Outcomes[2].Status)
	}
}

func TestRunCompileFailureStopsPipelineForMember(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	driver := memberPath(root, "kmdf-driver")
	params := Params{WorkingDir: root, Profile: ProfileDebug, Target: TargetArch{Arch: ArchAmd64}}

	runner := newFakeRunner()
	runner.fail("cargo")
	fs := newFakeFS()

	metadata := &fakeMetadata{
		members: []string{driver},
		entries: map[string]driverEntry{driver: kmdfEntry("kmdf-driver", driver)},
	}

	outcome, err := newTestAction(t, params, runner, fs, metadata).Run(context.Background())
	if err == nil {
		t.Fatal("Run() error = nil, want aggregate failure")
	}

	got := outcome.Outcomes[0]
	if got.Status != StatusFailed || got.Stage != StageBuild {
		t.Fatalf("outcome = %+v, want build-stage failure", got)
	}
	var cmdErr *providers.CommandError
	if !errors.As(got.Err, &cmdErr) {
		t.Errorf("outcome error chain %v does not carry the compiler failure", got.Err)
	}

	// No packaging tool runs and no package directory is created for a
	// member that never built.
	for _, program := range []string{"stampinf", "inf2cat", "certmgr", "makecert", "signtool"} {
		if len(runner.callsTo(program)) != 0 {
			t.Errorf("%s was invoked after a failed build", program)
		}
	}
	packageDir := filepath.Join(profileTargetDir(params), packageDirName("kmdf-driver"))
	if fs.dirs[packageDir] {
		t.Errorf("package directory %s was created for a failed build", packageDir)
	}
}

func TestRunWorkspaceResolutionIsFatal(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	params := Params{WorkingDir: root, Profile: ProfileDebug, Target: TargetArch{Arch: ArchAmd64}}
	metadata := &fakeMetadata{
		membersErr: &providers.MetadataError{WorkingDir: root, Cause: fmt.Errorf("no Cargo.toml")},
	}

	outcome, err := newTestAction(t, params, newFakeRunner(), newFakeFS(), metadata).Run(context.Background())
	if outcome != nil {
		t.Errorf("Run() outcome = %+v, want nil for a fatal resolution failure", outcome)
	}
	var metaErr *providers.MetadataError
	if !errors.As(err, &metaErr) {
		t.Fatalf("Run() error = %v, want the metadata failure in the chain", err)
	}
}

func TestCompileArguments(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	driver := memberPath(root, "kmdf-driver")
	params := Params{
		WorkingDir: root,
		Profile:    ProfileRelease,
		Target:     TargetArch{Arch: ArchArm64, Selected: true},
		Verbose:    true,
	}

	runner := newFakeRunner()
	fs := newFakeFS()
	fs.put(filepath.Join(root, "kmdf-driver", "kmdf_driver.inx"), "; template")
	seedDriverArtifacts(fs, runner, params, "kmdf-driver")

	metadata := &fakeMetadata{
		members: []string{driver},
		entries: map[string]driverEntry{driver: kmdfEntry("kmdf-driver", driver)},
	}

	if _, err := newTestAction(t, params, runner, fs, metadata).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	calls := runner.callsTo("cargo")
	if len(calls) != 1 {
		t.Fatalf("cargo invocations = %d, want 1", len(calls))
	}
	args := calls[0].args

	if args[0] != "build" {
		t.Errorf("first arg = %s, want build", args[0])
	}
	if got := argAfter(args, "-p"); got != "kmdf-driver" {
		t.Errorf("-p = %s", got)
	}
	if got := argAfter(args, "--manifest-path"); got != filepath.Join(root, "Cargo.toml") {
		t.Errorf("--manifest-path = %s", got)
	}
	if !hasArg(args, "--release") {
		t.Errorf("args %v missing --release", args)
	}
	if got := argAfter(args, "--target"); got != "aarch64-pc-windows-msvc" {
		t.Errorf("--target = %s", got)
	}
	if !hasArg(args, "-v") {
		t.Errorf("args %v missing -v", args)
	}

	env := calls[0].env
	if env["INCLUDE"] == "" || env["LIB"] == "" {
		t.Errorf("compiler env = %v, want INCLUDE and LIB set", env)
	}
}

func TestCompileDefaultsOmitOptionalFlags(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	driver := memberPath(root, "kmdf-driver")
	params := Params{WorkingDir: root, Profile: ProfileDebug, Target: TargetArch{Arch: ArchAmd64}}

	runner := newFakeRunner()
	fs := newFakeFS()
	fs.put(filepath.Join(root, "kmdf-driver", "kmdf_driver.inx"), "; template")
	seedDriverArtifacts(fs, runner, params, "kmdf-driver")

	metadata := &fakeMetadata{
		members: []string{driver},
		entries: map[string]driverEntry{driver: kmdfEntry("kmdf-driver", driver)},
	}

	if _, err := newTestAction(t, params, runner, fs, metadata).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	args := runner.callsTo("cargo")[0].args
	for _, flag := range []string{"--release", "--target", "-v"} {
		if hasArg(args, flag) {
			t.Errorf("args %v contain %s for a default debug host build", args, flag)
		}
	}
}

func TestProfileTargetDir(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	host := Params{WorkingDir: root, Profile: ProfileDebug, Target: TargetArch{Arch: ArchAmd64}}
	if got, want := profileTargetDir(host), filepath.Join(root, "target", "debug"); got != want {
		t.Errorf("profileTargetDir(host) = %s, want %s", got, want)
	}

	selected := Params{WorkingDir: root, Profile: ProfileRelease, Target: TargetArch{Arch: ArchArm64, Selected: true}}
	want := filepath.Join(root, "target", "aarch64-pc-windows-msvc", "release")
	if got := profileTargetDir(selected); got != want {
		t.Errorf("profileTargetDir(selected) = %s, want %s", got, want)
	}
}

func TestPackageDirName(t *testing.T) {
	t.Parallel()

	if got := packageDirName("my-kmdf-driver"); got != "my_kmdf_driver_package" {
		t.Errorf("packageDirName() = %s, want my_kmdf_driver_package", got)
	}
}
