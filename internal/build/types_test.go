// SPDX-License-Identifier: MPL-2.0

package build

import (
	"testing"

	"github.com/svasista-ms/wdkbuild/internal/providers"
)

func TestParseProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Profile
		wantErr bool
	}{
		{"debug", ProfileDebug, false},
		{"release", ProfileRelease, false},
		{"Release", ProfileRelease, false},
		{"dev", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseProfile(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProfile(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProfile(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseArchitecture(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Architecture
		wantErr bool
	}{
		{"x64", ArchAmd64, false},
		{"arm64", ArchArm64, false},
		{"ARM64", ArchArm64, false},
		{"x86", "", true},
		{"aarch64", "", true},
	}

	for _, tt := range tests {
		got, err := ParseArchitecture(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseArchitecture(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseArchitecture(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestArchitectureToolArguments(t *testing.T) {
	t.Parallel()

	if got := ArchAmd64.Triple(); got != "x86_64-pc-windows-msvc" {
		t.Errorf("ArchAmd64.Triple() = %s", got)
	}
	if got := ArchArm64.Triple(); got != "aarch64-pc-windows-msvc" {
		t.Errorf("ArchArm64.Triple() = %s", got)
	}
	if got := ArchAmd64.StampArg(); got != "amd64" {
		t.Errorf("ArchAmd64.StampArg() = %s", got)
	}
	if got := ArchArm64.StampArg(); got != "ARM64" {
		t.Errorf("ArchArm64.StampArg() = %s", got)
	}
	if got := ArchAmd64.CatalogOSArg(); got != "10_NI_X64,10_VB_X64" {
		t.Errorf("ArchAmd64.CatalogOSArg() = %s", got)
	}
	if got := ArchArm64.CatalogOSArg(); got != "10_NI_ARM64,10_VB_ARM64" {
		t.Errorf("ArchArm64.CatalogOSArg() = %s", got)
	}
}

func TestBinaryExt(t *testing.T) {
	t.Parallel()

	if got := BinaryExt(providers.KindKmdf); got != ".sys" {
		t.Errorf("BinaryExt(kmdf) = %s", got)
	}
	if got := BinaryExt(providers.KindWdm); got != ".sys" {
		t.Errorf("BinaryExt(wdm) = %s", got)
	}
	if got := BinaryExt(providers.KindUmdf); got != ".dll" {
		t.Errorf("BinaryExt(umdf) = %s", got)
	}
}

func TestWorkspaceOutcomeVerdict(t *testing.T) {
	t.Parallel()

	outcome := &WorkspaceOutcome{
		Outcomes: []PackageOutcome{
			{Package: "a", Status: StatusSucceeded},
			{Package: "b", Status: StatusSkipped},
		},
	}
	if !outcome.Succeeded() {
		t.Error("Succeeded() = false for an outcome with no failures")
	}
	if got := outcome.FailedPackages(); len(got) != 0 {
		t.Errorf("FailedPackages() = %v, want none", got)
	}

	outcome.Outcomes = append(outcome.Outcomes,
		PackageOutcome{Package: "c", Status: StatusFailed},
		PackageOutcome{Package: "d", Status: StatusFailed},
	)
	if outcome.Succeeded() {
		t.Error("Succeeded() = true although members failed")
	}
	got := outcome.FailedPackages()
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Errorf("FailedPackages() = %v, want [c d] in discovery order", got)
	}
}
