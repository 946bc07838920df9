// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/svasista-ms/wdkbuild/internal/providers"
)

type (
	// toolCall records one external tool invocation made through fakeRunner.
	toolCall struct {
		program string
		args    []string
		env     map[string]string
	}

	// fakeRunner scripts external tool behavior per program name and records
	// every invocation in order.
	fakeRunner struct {
		calls   []toolCall
		scripts map[string]func(call toolCall) (*providers.Output, error)
	}

	// fakeFS is an in-memory providers.FS.
	fakeFS struct {
		files map[string][]byte
		dirs  map[string]bool
	}

	// driverEntry scripts the metadata for one workspace member.
	driverEntry struct {
		manifest    *providers.PackageManifest
		manifestErr error
		cfg         *providers.DriverConfig
		present     bool
		cfgErr      error
	}

	// fakeMetadata is a scripted providers.Metadata.
	fakeMetadata struct {
		members    []string
		membersErr error
		entries    map[string]driverEntry
	}

	// fakeToolchain is a scripted providers.Toolchain.
	fakeToolchain struct {
		cfg *providers.ToolchainConfig
		err error
	}
)

func newFakeRunner() *fakeRunner {
	return &fakeRunner{scripts: map[string]func(toolCall) (*providers.Output, error){}}
}

// script sets the behavior for one program; unscripted programs succeed
// with empty output.
func (r *fakeRunner) script(program string, fn func(call toolCall) (*providers.Output, error)) {
	r.scripts[program] = fn
}

// fail makes one program fail with a nonzero exit.
func (r *fakeRunner) fail(program string) {
	r.script(program, func(call toolCall) (*providers.Output, error) {
		return nil, &providers.CommandError{Program: call.program, Args: call.args, ExitCode: 1}
	})
}

func (r *fakeRunner) Run(_ context.Context, program string, args []string, env map[string]string) (*providers.Output, error) {
	call := toolCall{program: program, args: args, env: env}
	r.calls = append(r.calls, call)
	if fn, ok := r.scripts[program]; ok {
		return fn(call)
	}
	return &providers.Output{}, nil
}

// programs returns the invoked program names in order.
func (r *fakeRunner) programs() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.program)
	}
	return out
}

// callsTo returns the invocations of one program.
func (r *fakeRunner) callsTo(program string) []toolCall {
	var out []toolCall
	for _, c := range r.calls {
		if c.program == program {
			out = append(out, c)
		}
	}
	return out
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: map[string][]byte{}, dirs: map[string]bool{}}
}

func (f *fakeFS) put(path, content string) {
	f.files[path] = []byte(content)
}

func (f *fakeFS) Exists(path string) bool {
	if _, ok := f.files[path]; ok {
		return true
	}
	return f.dirs[path]
}

func (f *fakeFS) CreateDirAll(path string) error {
	f.dirs[path] = true
	return nil
}

func (f *fakeFS) Copy(src, dst string) error {
	data, ok := f.files[src]
	if !ok {
		return &providers.FileError{Op: "copy", Path: src, Cause: fmt.Errorf("no such file")}
	}
	f.files[dst] = append([]byte(nil), data...)
	return nil
}

func (f *fakeFS) ReadToString(path string) (string, error) {
	data, ok := f.files[path]
	if !ok {
		return "", &providers.FileError{Op: "read", Path: path, Cause: fmt.Errorf("no such file")}
	}
	return string(data), nil
}

func (f *fakeFS) WriteFile(path string, data []byte) error {
	f.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *fakeMetadata) WorkspaceMembers(string) ([]string, error) {
	return m.members, m.membersErr
}

func (m *fakeMetadata) PackageManifest(path string) (*providers.PackageManifest, error) {
	e := m.entries[path]
	return e.manifest, e.manifestErr
}

func (m *fakeMetadata) PackageDriverConfig(path string) (*providers.DriverConfig, bool, error) {
	e := m.entries[path]
	return e.cfg, e.present, e.cfgErr
}

func (t *fakeToolchain) Resolve(triple string) (*providers.ToolchainConfig, error) {
	if t.err != nil {
		return nil, t.err
	}
	if t.cfg != nil {
		return t.cfg, nil
	}
	return &providers.ToolchainConfig{
		Triple:       triple,
		WdkVersion:   "10.0.26100.0",
		IncludePaths: []string{filepath.Join("kits", "include", "km")},
		LibPaths:     []string{filepath.Join("kits", "lib", "km")},
	}, nil
}

// seedDriverArtifacts puts the compiler outputs a driver member needs into
// the fake filesystem, and scripts the tools that produce files on disk so
// the collect stage finds the full artifact set.
func seedDriverArtifacts(fs *fakeFS, runner *fakeRunner, params Params, name string) {
	stem := underscored(name)
	profileDir := profileTargetDir(params)
	packageDir := filepath.Join(profileDir, packageDirName(name))

	fs.put(filepath.Join(profileDir, stem+".dll"), "binary:"+name)
	fs.put(filepath.Join(profileDir, stem+".pdb"), "symbols:"+name)
	fs.put(filepath.Join(profileDir, "deps", stem+".map"), "map:"+name)
	fs.put(filepath.Join(profileDir, certFileName), "certificate")

	runner.script("inf2cat", func(toolCall) (*providers.Output, error) {
		fs.put(filepath.Join(packageDir, stem+".cat"), "catalog:"+name)
		return &providers.Output{}, nil
	})
	runner.script("certmgr", func(call toolCall) (*providers.Output, error) {
		if len(call.args) > 0 && call.args[0] == "-put" {
			fs.put(filepath.Join(profileDir, certFileName), "certificate")
		}
		return &providers.Output{Stdout: certName}, nil
	})
}

// memberPath builds a member manifest path under a workspace root.
func memberPath(root string, parts ...string) string {
	return filepath.Join(append([]string{root}, append(parts, "Cargo.toml")...)...)
}

// hasArg reports whether an argument list contains the given value.
func hasArg(args []string, value string) bool {
	for _, a := range args {
		if a == value {
			return true
		}
	}
	return false
}

// argAfter returns the argument following the first occurrence of flag.
func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// joinedArgs flattens an argument list for substring assertions.
func joinedArgs(args []string) string {
	return strings.Join(args, " ")
}
