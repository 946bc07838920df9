// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultWdkContentRoot is where the Windows Driver Kit installs when no
// override is configured.
const DefaultWdkContentRoot = `C:\Program Files (x86)\Windows Kits\10`

type (
	// ToolchainConfig is the architecture-specific build configuration the
	// packaging tools need: the Rust target triple plus the WDK include and
	// library search paths for the resolved kit version.
	ToolchainConfig struct {
		// Triple is the Rust target triple for the architecture.
		Triple string
		// WdkVersion is the resolved kit version (e.g. "10.0.26100.0").
		WdkVersion string
		// IncludePaths are the WDK header directories.
		IncludePaths []string
		// LibPaths are the WDK library directories for the architecture.
		LibPaths []string
	}

	// Toolchain resolves architecture-specific WDK build settings.
	Toolchain interface {
		// Resolve returns the toolchain configuration for a target triple.
		Resolve(triple string) (*ToolchainConfig, error)
	}
)

// wdkToolchain is the production Toolchain provider reading an installed
// Windows Driver Kit.
type wdkToolchain struct {
	contentRoot string
	version     string
}

// NewToolchain creates the production toolchain provider. Empty arguments
// fall back to the WDKContentRoot environment variable, the default install
// location, and the newest installed kit version.
func NewToolchain(contentRoot, version string) Toolchain {
	if contentRoot == "" {
		contentRoot = os.Getenv("WDKContentRoot")
	}
	if contentRoot == "" {
		contentRoot = DefaultWdkContentRoot
	}
	return &wdkToolchain{contentRoot: contentRoot, version: version}
}

// Resolve returns include and library paths for the given target triple.
func (t *wdkToolchain) Resolve(triple string) (*ToolchainConfig, error) {
	archDir, err := archDirForTriple(triple)
	if err != nil {
		return nil, err
	}

	version := t.version
	if version == "" {
		version, err = t.newestKitVersion()
		if err != nil {
			return nil, err
		}
	}

	include := filepath.Join(t.contentRoot, "Include", version)
	lib := filepath.Join(t.contentRoot, "Lib", version)

	return &ToolchainConfig{
		Triple:     triple,
		WdkVersion: version,
		IncludePaths: []string{
			filepath.Join(include, "shared"),
			filepath.Join(include, "km"),
			filepath.Join(include, "um"),
			filepath.Join(include, "ucrt"),
		},
		LibPaths: []string{
			filepath.Join(lib, "km", archDir),
			filepath.Join(lib, "um", archDir),
		},
	}, nil
}

// newestKitVersion picks the highest versioned directory under Include.
func (t *wdkToolchain) newestKitVersion() (string, error) {
	includeRoot := filepath.Join(t.contentRoot, "Include")
	entries, err := os.ReadDir(includeRoot)
	if err != nil {
		return "", &FileError{Op: "read dir", Path: includeRoot, Cause: err}
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "10.") {
			versions = append(versions, entry.Name())
		}
	}
	if len(versions) == 0 {
		return "", &FileError{
			Op:    "resolve kit version",
			Path:  includeRoot,
			Cause: fmt.Errorf("no installed WDK versions found"),
		}
	}
	sort.Slice(versions, func(i, j int) bool { return kitVersionLess(versions[i], versions[j]) })
	return versions[len(versions)-1], nil
}

// kitVersionLess orders dotted kit versions field by field numerically, so
// 10.0.9926.0 sorts below 10.0.26100.0.
func kitVersionLess(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, _ := strconv.Atoi(as[i])
		bn, _ := strconv.Atoi(bs[i])
		if an != bn {
			return an < bn
		}
	}
	return len(as) < len(bs)
}

// archDirForTriple maps a Rust target triple to the WDK library directory name.
func archDirForTriple(triple string) (string, error) {
	switch triple {
	case "x86_64-pc-windows-msvc":
		return "x64", nil
	case "aarch64-pc-windows-msvc":
		return "arm64", nil
	}
	return "", fmt.Errorf("no WDK library directory for target triple %q", triple)
}
