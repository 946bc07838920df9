// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{
			name: "operation only",
			err:  NewActionableError("stamp INF"),
			want: "failed to stamp INF",
		},
		{
			name: "operation and resource",
			err:  &ActionableError{Operation: "resolve workspace", Resource: "/src/drivers"},
			want: "failed to resolve workspace: /src/drivers",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "sign driver binary",
				Resource:  "echo_driver.sys",
				Cause:     errors.New("store not found"),
			},
			want: "failed to sign driver binary: echo_driver.sys: store not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatIncludesSuggestions(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("detect default target architecture").
		WithResource("i686-pc-windows-msvc").
		WithSuggestion("Use --target-arch to select x64 or arm64 explicitly").
		WithSuggestion("Install a supported host toolchain").
		Build()

	out := err.Format(false)
	if !strings.Contains(out, "failed to detect default target architecture: i686-pc-windows-msvc") {
		t.Errorf("Format() = %q", out)
	}
	if strings.Count(out, "•") != 2 {
		t.Errorf("Format() = %q, want two suggestion bullets", out)
	}
	if strings.Contains(out, "Error chain:") {
		t.Errorf("non-verbose Format() includes the error chain: %q", out)
	}
}

func TestFormatVerboseShowsErrorChain(t *testing.T) {
	t.Parallel()

	inner := errors.New("permission denied")
	middle := fmt.Errorf("open certificate store: %w", inner)
	err := NewErrorContext().
		WithOperation("sign driver binary").
		Wrap(middle).
		Build()

	out := err.Format(true)
	if !strings.Contains(out, "Error chain:") {
		t.Fatalf("verbose Format() = %q, want the error chain", out)
	}
	if !strings.Contains(out, "1. open certificate store: permission denied") {
		t.Errorf("Format() = %q, want numbered chain entries", out)
	}
	if !strings.Contains(out, "2. permission denied") {
		t.Errorf("Format() = %q, want the unwrapped cause", out)
	}
}

func TestErrorContextRequiresOperation(t *testing.T) {
	t.Parallel()

	if got := NewErrorContext().WithResource("x").Build(); got != nil {
		t.Errorf("Build() = %v, want nil without an operation", got)
	}
	if got := NewErrorContext().WithResource("x").BuildError(); got != nil {
		t.Errorf("BuildError() = %v, want nil without an operation", got)
	}
}

func TestWrapHelpers(t *testing.T) {
	t.Parallel()

	if got := WrapWithOperation(nil, "anything"); got != nil {
		t.Errorf("WrapWithOperation(nil) = %v, want nil", got)
	}
	if got := WrapWithContext(nil, "anything", "res"); got != nil {
		t.Errorf("WrapWithContext(nil) = %v, want nil", got)
	}

	cause := errors.New("boom")
	wrapped := WrapWithContext(cause, "stamp INF", "driver.inf")
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error does not unwrap to its cause")
	}
	if wrapped.Error() != "failed to stamp INF: driver.inf: boom" {
		t.Errorf("Error() = %q", wrapped.Error())
	}
}

func TestHasSuggestions(t *testing.T) {
	t.Parallel()

	plain := NewActionableError("op")
	if plain.HasSuggestions() {
		t.Error("HasSuggestions() = true without suggestions")
	}
	withSugs := NewErrorContext().WithOperation("op").WithSuggestions("a", "b").Build()
	if !withSugs.HasSuggestions() {
		t.Error("HasSuggestions() = false with suggestions")
	}
}
