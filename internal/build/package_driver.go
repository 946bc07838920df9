// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/svasista-ms/wdkbuild/internal/providers"
)

// Test signing identity shared by every driver package built on a machine.
const (
	certStoreName = "WDRLocalTestCertStore"
	certName      = "WDRLocalTestCert"
	certFileName  = "WDRLocalTestCert.cer"

	timestampURL = "http://timestamp.digicert.com"
)

type (
	// artifact is one entry of the packaging artifact set: its destination
	// in the driver package directory, and the source file it is copied
	// from. Files a pipeline tool writes in place carry no src.
	artifact struct {
		src string
		dst string
	}

	// packager drives the per-driver-package pipeline. Stages run strictly
	// in order; each is entered only if the previous one succeeded, and a
	// failure reports the stage that was in progress.
	packager struct {
		params Params
		tools  Tools
		runner providers.CommandRunner
		fs     providers.FS
		logger *log.Logger

		pkg *providers.PackageManifest
		cfg *providers.DriverConfig

		// derived paths
		crateDir   string
		profileDir string
		packageDir string
		stem       string
	}
)

// newPackager wires a pipeline for one classified driver package.
func newPackager(params Params, tools Tools, runner providers.CommandRunner, fs providers.FS,
	logger *log.Logger, pkg *providers.PackageManifest, cfg *providers.DriverConfig,
	_ *providers.ToolchainConfig,
) *packager {
	stem := underscored(pkg.Name)
	profileDir := profileTargetDir(params)
	return &packager{
		params:     params,
		tools:      tools,
		runner:     runner,
		fs:         fs,
		logger:     logger,
		pkg:        pkg,
		cfg:        cfg,
		crateDir:   filepath.Dir(pkg.Path),
		profileDir: profileDir,
		packageDir: filepath.Join(profileDir, packageDirName(pkg.Name)),
		stem:       stem,
	}
}

// run executes the pipeline and returns the failed stage on error.
func (p *packager) run(ctx context.Context) (Stage, error) {
	steps := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageBuild, p.verifyBuilt},
		{StageStamp, p.stamp},
		{StageCatalog, p.catalog},
		{StageSign, p.sign},
		{StagePackage, p.collect},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return step.stage, err
		}
		p.logger.Debug("pipeline stage completed", "stage", step.stage)
	}
	return "", nil
}

// binarySrc is where the compiler leaves the driver binary. Driver crates
// build as cdylibs, so the compiled artifact is always a .dll; kernel-mode
// kinds are renamed to .sys when copied into the package directory.
func (p *packager) binarySrc() string {
	return filepath.Join(p.profileDir, p.stem+".dll")
}

func (p *packager) binaryDst() string {
	return filepath.Join(p.packageDir, p.stem+BinaryExt(p.cfg.Kind))
}

func (p *packager) infDst() string { return filepath.Join(p.packageDir, p.stem+".inf") }
func (p *packager) catDst() string { return filepath.Join(p.packageDir, p.stem+".cat") }
func (p *packager) certSrc() string {
	return filepath.Join(p.profileDir, certFileName)
}

// artifacts is the full packaging artifact set: every destination must
// exist before the package is considered complete.
func (p *packager) artifacts() []artifact {
	return []artifact{
		{src: p.binarySrc(), dst: p.binaryDst()},
		{src: filepath.Join(p.profileDir, p.stem+".pdb"), dst: filepath.Join(p.packageDir, p.stem+".pdb")},
		{src: filepath.Join(p.profileDir, "deps", p.stem+".map"), dst: filepath.Join(p.packageDir, p.stem+".map")},
		{src: p.infSrc(), dst: p.infDst()},
		{dst: p.catDst()}, // written in place by inf2cat
		{src: p.certSrc(), dst: filepath.Join(p.packageDir, certFileName)},
	}
}

// verifyBuilt confirms the compiler output exists before any packaging
// step runs. Failing here keeps the package directory from being created
// for members that never built.
func (p *packager) verifyBuilt(context.Context) error {
	if !p.fs.Exists(p.binarySrc()) {
		return &providers.FileError{
			Op:    "locate compiled binary",
			Path:  p.binarySrc(),
			Cause: fmt.Errorf("compiler output not found; was the build interrupted?"),
		}
	}
	return nil
}

// infSrc resolves the INF template: the project-supplied reference from
// the metadata section, a conventional <stem>.inx next to the manifest, or
// the kind-specific generic template written on the fly.
func (p *packager) infSrc() string {
	if p.cfg.InfTemplate != "" {
		return filepath.Join(p.crateDir, filepath.FromSlash(p.cfg.InfTemplate))
	}
	return filepath.Join(p.crateDir, p.stem+".inx")
}

// stamp creates the package directory, copies the compiled artifacts in,
// and populates the INF with resolved version and architecture fields.
func (p *packager) stamp(ctx context.Context) error {
	if err := p.fs.CreateDirAll(p.packageDir); err != nil {
		return err
	}

	for _, a := range p.artifacts()[:3] {
		if err := p.fs.Copy(a.src, a.dst); err != nil {
			return err
		}
	}

	// A configured template reference must resolve; only the conventional
	// <stem>.inx lookup may fall back to the generic template.
	if p.cfg.InfTemplate != "" && !p.fs.Exists(p.infSrc()) {
		return &providers.FileError{
			Op:    "locate INF template",
			Path:  p.infSrc(),
			Cause: fmt.Errorf("configured inf-template does not exist"),
		}
	}
	if p.fs.Exists(p.infSrc()) {
		if err := p.fs.Copy(p.infSrc(), p.infDst()); err != nil {
			return err
		}
	} else if err := p.fs.WriteFile(p.infDst(), []byte(genericInf(p.cfg.Kind, p.pkg.Name))); err != nil {
		return err
	}

	version := p.cfg.DriverVersion
	if version == "" {
		// stampinf derives a time-based version from "*".
		version = "*"
	}

	args := []string{
		"-f", p.infDst(),
		"-d", "*",
		"-a", p.params.Target.Arch.StampArg(),
		"-c", p.stem + ".cat",
		"-v", version,
	}
	switch p.cfg.Kind {
	case providers.KindKmdf:
		args = append(args, "-k", fmt.Sprintf("%d.%d", p.cfg.KmdfVersionMajor, p.cfg.TargetKmdfVersionMinor))
	case providers.KindUmdf:
		args = append(args, "-u", fmt.Sprintf("%d.%d.0", p.cfg.UmdfVersionMajor, p.cfg.TargetUmdfVersionMinor))
	}

	_, err := p.runner.Run(ctx, p.tools.Stampinf, args, nil)
	return err
}

// catalog generates the .cat file covering the package directory contents
// for the supported OS and architecture combinations.
func (p *packager) catalog(ctx context.Context) error {
	_, err := p.runner.Run(ctx, p.tools.Inf2cat, []string{
		"/driver:" + p.packageDir,
		"/os:" + p.params.Target.Arch.CatalogOSArg(),
		"/uselocaltime",
	}, nil)
	return err
}

// sign ensures the local test certificate exists, signs the driver binary
// and catalog with it, and verifies the signatures when requested. Sample
// class builds always verify; signature verification cannot be disabled
// for them.
func (p *packager) sign(ctx context.Context) error {
	if err := p.ensureCertificate(ctx); err != nil {
		return err
	}

	for _, target := range []string{p.binaryDst(), p.catDst()} {
		if _, err := p.runner.Run(ctx, p.tools.Signtool, []string{
			"sign", "/v",
			"/s", certStoreName,
			"/n", certName,
			"/t", timestampURL,
			"/fd", "SHA256",
			target,
		}, nil); err != nil {
			return err
		}
	}

	if !p.params.VerifySignature && !p.params.SampleClass {
		p.logger.Debug("signature verification disabled, skipping")
		return nil
	}
	for _, target := range []string{p.binaryDst(), p.catDst()} {
		if _, err := p.runner.Run(ctx, p.tools.Signtool, []string{"verify", "/v", "/pa", target}, nil); err != nil {
			return err
		}
	}
	return nil
}

// ensureCertificate makes the test certificate available both in the
// certificate store and as a .cer file under the profile directory. The
// store is the source of truth: a missing store entry triggers generation,
// a present entry with a missing file triggers export.
func (p *packager) ensureCertificate(ctx context.Context) error {
	out, err := p.runner.Run(ctx, p.tools.Certmgr, []string{"-s", certStoreName}, nil)
	if err != nil {
		return err
	}

	if !strings.Contains(out.Stdout, certName) {
		_, err := p.runner.Run(ctx, p.tools.Makecert, []string{
			"-r", "-pe",
			"-a", "SHA256",
			"-eku", "1.3.6.1.5.5.7.3.3",
			"-ss", certStoreName,
			"-n", "CN=" + certName,
			p.certSrc(),
		}, nil)
		return err
	}

	if !p.fs.Exists(p.certSrc()) {
		_, err := p.runner.Run(ctx, p.tools.Certmgr, []string{
			"-put",
			"-s", certStoreName,
			"-c", "-n", certName,
			p.certSrc(),
		}, nil)
		return err
	}
	return nil
}

// collect copies the certificate into the package directory and verifies
// the complete artifact set is in place. A package only counts as
// succeeded when every artifact exists at its destination.
func (p *packager) collect(context.Context) error {
	if err := p.fs.Copy(p.certSrc(), filepath.Join(p.packageDir, certFileName)); err != nil {
		return err
	}

	for _, a := range p.artifacts() {
		if !p.fs.Exists(a.dst) {
			return &providers.FileError{
				Op:    "verify package artifact",
				Path:  a.dst,
				Cause: fmt.Errorf("expected artifact missing from driver package"),
			}
		}
	}
	return nil
}

// genericInf renders the kind-specific fallback INF template used when a
// crate ships no template of its own. The version and architecture fields
// are left for the stamping tool to fill in.
func genericInf(kind providers.DriverKind, pkgName string) string {
	class := "System"
	serviceType := "1" // SERVICE_KERNEL_DRIVER
	if kind == providers.KindUmdf {
		serviceType = "16" // SERVICE_WIN32_OWN_PROCESS
	}
	stem := underscored(pkgName)

	return fmt.Sprintf(`;
; %[1]s.inf
;

[Version]
Signature="$WINDOWS NT$"
Class=%[2]s
ClassGuid={4d36e97d-e325-11ce-bfc1-08002be10318}
Provider=%%ManufacturerName%%
CatalogFile=%[1]s.cat
PnpLockdown=1

[DestinationDirs]
DefaultDestDir = 13

[SourceDisksNames]
1 = %%DiskName%%,,,""

[SourceDisksFiles]
%[1]s%[3]s = 1,,

[Manufacturer]
%%ManufacturerName%%=Standard,NT$ARCH$

[Standard.NT$ARCH$]
%%DeviceDesc%%=Device_Install, Root\%[1]s

[Device_Install.NT]
CopyFiles=Drivers_Dir

[Drivers_Dir]
%[1]s%[3]s

[Device_Install.NT.Services]
AddService = %[1]s,%%SPSVCINST_ASSOCSERVICE%%, Service_Install

[Service_Install]
DisplayName    = %%DeviceDesc%%
ServiceType    = %[4]s
StartType      = 3
ErrorControl   = 1
ServiceBinary  = %%13%%\%[1]s%[3]s

[Strings]
SPSVCINST_ASSOCSERVICE = 0x00000002
ManufacturerName = "%[5]s"
DiskName = "%[5]s Installation Disk"
DeviceDesc = "%[5]s Device"
`, stem, class, BinaryExt(kind), serviceType, pkgName)
}
