// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"strings"

	"github.com/svasista-ms/wdkbuild/internal/issue"
	"github.com/svasista-ms/wdkbuild/internal/providers"
)

// ErrUnsupportedHostTarget marks host triples that cannot produce driver
// packages. Callers match it with errors.Is to offer --target-arch.
var ErrUnsupportedHostTarget = errors.New("unsupported host target")

// DetectHostArch resolves the default target architecture by asking the
// Rust toolchain for its host triple. Exactly two triples are recognized;
// anything else is an error naming the triple, since driver packages can
// only be produced for x64 and arm64 Windows targets.
func DetectHostArch(ctx context.Context, runner providers.CommandRunner) (Architecture, error) {
	out, err := runner.Run(ctx, "rustc", []string{"--print", "host-tuple"}, nil)
	if err != nil {
		return "", issue.NewErrorContext().
			WithOperation("read rustc host tuple").
			WithSuggestion("Install the Rust toolchain from https://rustup.rs").
			Wrap(err).
			BuildError()
	}

	triple := strings.TrimSpace(out.Stdout)
	switch triple {
	case "x86_64-pc-windows-msvc":
		return ArchAmd64, nil
	case "aarch64-pc-windows-msvc":
		return ArchArm64, nil
	}
	return "", issue.NewErrorContext().
		WithOperation("detect default target architecture").
		WithResource("unsupported default target: " + triple).
		WithSuggestion("Only x86_64-pc-windows-msvc and aarch64-pc-windows-msvc are supported").
		WithSuggestion("Use the --target-arch option to specify a supported architecture").
		Wrap(ErrUnsupportedHostTarget).
		BuildError()
}
