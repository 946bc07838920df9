// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	toml "github.com/pelletier/go-toml/v2"
)

// Recognized driver kinds from the [package.metadata.wdk] section.
const (
	KindKmdf DriverKind = "kmdf"
	KindUmdf DriverKind = "umdf"
	KindWdm  DriverKind = "wdm"
)

type (
	// DriverKind is the declared driver architecture of a crate.
	DriverKind string

	// DriverConfig is the parsed [package.metadata.wdk] section of a
	// driver crate's Cargo.toml.
	DriverConfig struct {
		// Kind is the declared driver kind.
		Kind DriverKind
		// KmdfVersionMajor is the KMDF framework major version (KMDF only).
		KmdfVersionMajor int
		// TargetKmdfVersionMinor is the KMDF framework minor version (KMDF only).
		TargetKmdfVersionMinor int
		// UmdfVersionMajor is the UMDF framework major version (UMDF only).
		UmdfVersionMajor int
		// TargetUmdfVersionMinor is the UMDF framework minor version (UMDF only).
		TargetUmdfVersionMinor int
		// InfTemplate is an optional project-supplied INF template path,
		// relative to the crate directory.
		InfTemplate string
		// DriverVersion is an optional version stamped into the INF. When
		// empty the stamping tool derives one from the current time.
		DriverVersion string
	}

	// PackageManifest is the [package] section of a member Cargo.toml.
	PackageManifest struct {
		// Name is the package name as declared in the manifest.
		Name string
		// Version is the declared package version.
		Version string
		// Path is the location of the manifest file itself.
		Path string
	}

	// Metadata enumerates workspace members and extracts per-package driver
	// metadata. PackageDriverConfig has a three-way outcome: a parsed config,
	// an explicit "no driver metadata" result, or a parse error. Absence is
	// semantically meaningful and never an error.
	Metadata interface {
		// WorkspaceMembers returns the ordered member manifest paths for the
		// crate or workspace rooted at workingDir. It fails with a
		// *MetadataError only when workingDir is not a valid crate or
		// workspace root.
		WorkspaceMembers(workingDir string) ([]string, error)
		// PackageManifest reads the [package] section of a member manifest.
		PackageManifest(manifestPath string) (*PackageManifest, error)
		// PackageDriverConfig extracts the [package.metadata.wdk] section.
		// present is false when the section is absent; a present but
		// unparsable section yields a *MalformedDriverConfigError.
		PackageDriverConfig(manifestPath string) (cfg *DriverConfig, present bool, err error)
	}
)

// IsValid reports whether the kind is one of the recognized driver kinds.
func (k DriverKind) IsValid() bool {
	switch k {
	case KindKmdf, KindUmdf, KindWdm:
		return true
	}
	return false
}

// cargoMetadata is the production Metadata provider. It parses Cargo.toml
// files directly rather than shelling out, so discovery works the same on
// every platform.
type cargoMetadata struct{}

// NewMetadata creates the production metadata provider.
func NewMetadata() Metadata {
	return &cargoMetadata{}
}

// manifestFile mirrors the subset of Cargo.toml the provider reads.
type manifestFile struct {
	Package *struct {
		Name     string         `toml:"name"`
		Version  string         `toml:"version"`
		Metadata map[string]any `toml:"metadata"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
	} `toml:"workspace"`
}

// wdkSection mirrors the [package.metadata.wdk] layout used by driver crates.
type wdkSection struct {
	DriverModel struct {
		DriverType             string `toml:"driver-type"`
		KmdfVersionMajor       int    `toml:"kmdf-version-major"`
		TargetKmdfVersionMinor int    `toml:"target-kmdf-version-minor"`
		UmdfVersionMajor       int    `toml:"umdf-version-major"`
		TargetUmdfVersionMinor int    `toml:"target-umdf-version-minor"`
	} `toml:"driver-model"`
	InfTemplate   string `toml:"inf-template"`
	DriverVersion string `toml:"driver-version"`
}

// WorkspaceMembers resolves the working directory as a single crate or a
// multi-member workspace. Member globs are expanded in declaration order;
// only directories containing a Cargo.toml are considered members.
func (m *cargoMetadata) WorkspaceMembers(workingDir string) ([]string, error) {
	rootManifest := filepath.Join(workingDir, "Cargo.toml")

	manifest, err := m.parseManifest(rootManifest)
	if err != nil {
		return nil, &MetadataError{WorkingDir: workingDir, Cause: err}
	}

	if manifest.Workspace == nil {
		if manifest.Package == nil {
			return nil, &MetadataError{
				WorkingDir: workingDir,
				Cause:      fmt.Errorf("%s has neither a [package] nor a [workspace] section", rootManifest),
			}
		}
		return []string{rootManifest}, nil
	}

	var members []string
	for _, pattern := range manifest.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(workingDir, filepath.FromSlash(pattern)))
		if err != nil {
			return nil, &MetadataError{
				WorkingDir: workingDir,
				Cause:      fmt.Errorf("invalid workspace member pattern %q: %w", pattern, err),
			}
		}
		for _, match := range matches {
			memberManifest := filepath.Join(match, "Cargo.toml")
			if _, statErr := os.Stat(memberManifest); statErr == nil {
				members = append(members, memberManifest)
			}
		}
	}

	// A workspace root may itself be a package (the "root package" layout).
	if manifest.Package != nil {
		members = append([]string{rootManifest}, members...)
	}

	if len(members) == 0 {
		return nil, &MetadataError{
			WorkingDir: workingDir,
			Cause:      fmt.Errorf("workspace declares no resolvable members"),
		}
	}
	return members, nil
}

// PackageManifest reads the [package] section of a member manifest.
func (m *cargoMetadata) PackageManifest(manifestPath string) (*PackageManifest, error) {
	manifest, err := m.parseManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if manifest.Package == nil || manifest.Package.Name == "" {
		return nil, fmt.Errorf("%s has no [package] section", manifestPath)
	}
	return &PackageManifest{
		Name:    manifest.Package.Name,
		Version: manifest.Package.Version,
		Path:    manifestPath,
	}, nil
}

// PackageDriverConfig extracts and validates the [package.metadata.wdk]
// section. Absence of the section (or of [package.metadata] entirely) is
// reported through present=false, not as an error.
func (m *cargoMetadata) PackageDriverConfig(manifestPath string) (*DriverConfig, bool, error) {
	manifest, err := m.parseManifest(manifestPath)
	if err != nil {
		return nil, false, err
	}
	if manifest.Package == nil || manifest.Package.Metadata == nil {
		return nil, false, nil
	}
	raw, ok := manifest.Package.Metadata["wdk"]
	if !ok {
		return nil, false, nil
	}

	// Round-trip the subtree through the TOML codec to get a strictly
	// typed section out of the generic metadata map.
	encoded, err := toml.Marshal(raw)
	if err != nil {
		return nil, true, &MalformedDriverConfigError{Manifest: manifestPath, Cause: err}
	}
	var section wdkSection
	if err := toml.Unmarshal(encoded, &section); err != nil {
		return nil, true, &MalformedDriverConfigError{Manifest: manifestPath, Cause: err}
	}

	kind := DriverKind(strings.ToLower(section.DriverModel.DriverType))
	if !kind.IsValid() {
		return nil, true, &MalformedDriverConfigError{
			Manifest: manifestPath,
			Cause:    fmt.Errorf("unknown driver-type %q (expected KMDF, UMDF or WDM)", section.DriverModel.DriverType),
		}
	}

	if section.DriverVersion != "" {
		if _, err := semver.NewVersion(section.DriverVersion); err != nil {
			return nil, true, &MalformedDriverConfigError{
				Manifest: manifestPath,
				Cause:    fmt.Errorf("invalid driver-version %q: %w", section.DriverVersion, err),
			}
		}
	}

	cfg := &DriverConfig{
		Kind:                   kind,
		KmdfVersionMajor:       section.DriverModel.KmdfVersionMajor,
		TargetKmdfVersionMinor: section.DriverModel.TargetKmdfVersionMinor,
		UmdfVersionMajor:       section.DriverModel.UmdfVersionMajor,
		TargetUmdfVersionMinor: section.DriverModel.TargetUmdfVersionMinor,
		InfTemplate:            section.InfTemplate,
		DriverVersion:          section.DriverVersion,
	}
	cfg.applyFrameworkDefaults()
	return cfg, true, nil
}

// applyFrameworkDefaults fills in the framework versions driver crates most
// commonly omit.
func (c *DriverConfig) applyFrameworkDefaults() {
	if c.Kind == KindKmdf && c.KmdfVersionMajor == 0 {
		c.KmdfVersionMajor = 1
		if c.TargetKmdfVersionMinor == 0 {
			c.TargetKmdfVersionMinor = 33
		}
	}
	if c.Kind == KindUmdf && c.UmdfVersionMajor == 0 {
		c.UmdfVersionMajor = 2
		if c.TargetUmdfVersionMinor == 0 {
			c.TargetUmdfVersionMinor = 33
		}
	}
}

// parseManifest reads and decodes a Cargo.toml file.
func (m *cargoMetadata) parseManifest(path string) (*manifestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var manifest manifestFile
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &manifest, nil
}
