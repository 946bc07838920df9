// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	WdkToolingNotFoundId Id = iota + 1
	UnsupportedHostTargetId
	NotAWorkspaceId
	MalformedWdkMetadataId
	TestCertificateId
	CompilerNotFoundId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // documentation links shown in the "See also" section
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n"
		extraMd += "## See also: "
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "]"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "]"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	wdkToolingNotFoundIssue = &Issue{
		id: WdkToolingNotFoundId,
		mdMsg: `
# WDK packaging tools not found!

A packaging tool (stampinf, inf2cat, certmgr, makecert or signtool)
could not be started. These ship with the Windows Driver Kit and the
Windows SDK.

## Things you can try:
- Install the Windows Driver Kit:
  https://learn.microsoft.com/windows-hardware/drivers/download-the-wdk
- Run from an EWDK developer prompt so the tools are on PATH
- Point wdkbuild at your kit installation:
~~~toml
# ~/.config/wdkbuild/config.toml
[wdk]
content-root = 'C:\Program Files (x86)\Windows Kits\10'
~~~`,
		extLinks: []HttpLink{
			"https://learn.microsoft.com/windows-hardware/drivers/download-the-wdk",
		},
	}

	unsupportedHostTargetIssue = &Issue{
		id: UnsupportedHostTargetId,
		mdMsg: `
# Unsupported default target!

The host toolchain reported a target triple that wdkbuild cannot build
driver packages for. Only these host triples are recognized:

- **x86_64-pc-windows-msvc** (x64)
- **aarch64-pc-windows-msvc** (arm64)

## Things you can try:
- Select a supported architecture explicitly:
~~~
$ wdkbuild build --target-arch x64
~~~
- Install the matching Rust target:
~~~
$ rustup target add x86_64-pc-windows-msvc
~~~`,
	}

	notAWorkspaceIssue = &Issue{
		id: NotAWorkspaceId,
		mdMsg: `
# Not a crate or workspace root!

The working directory does not contain a readable Cargo.toml with a
[package] or [workspace] section.

## Things you can try:
- Pass the project root explicitly:
~~~
$ wdkbuild build --cwd path/to/driver-project
~~~
- Scaffold a new driver crate:
~~~
$ wdkbuild new --kmdf my-driver
~~~`,
	}

	malformedWdkMetadataIssue = &Issue{
		id: MalformedWdkMetadataId,
		mdMsg: `
# Invalid [package.metadata.wdk] section!

The package declares WDK metadata but it could not be parsed. A minimal
valid section looks like:

~~~toml
[package.metadata.wdk.driver-model]
driver-type = "KMDF"
kmdf-version-major = 1
target-kmdf-version-minor = 33
~~~

Remove the section entirely if the package is not a driver: absence
means "not a driver" and the package is skipped, not failed.`,
	}

	testCertificateIssue = &Issue{
		id: TestCertificateId,
		mdMsg: `
# Test signing failed!

The driver binary or catalog could not be signed with the local test
certificate (WDRLocalTestCert).

## Things you can try:
- Delete the stale certificate store and let wdkbuild regenerate it:
~~~
$ certmgr -del -all -s WDRLocalTestCertStore
~~~
- Make sure you run from a prompt that can access the user certificate store`,
	}

	compilerNotFoundIssue = &Issue{
		id: CompilerNotFoundId,
		mdMsg: `
# Cargo not found!

The Rust toolchain is required to compile driver crates.

## Things you can try:
- Install Rust via rustup: https://rustup.rs
- Make sure 'cargo' and 'rustc' are on your PATH`,
		extLinks: []HttpLink{
			"https://rustup.rs",
		},
	}

	issues = map[Id]*Issue{
		wdkToolingNotFoundIssue.Id():    wdkToolingNotFoundIssue,
		unsupportedHostTargetIssue.Id(): unsupportedHostTargetIssue,
		notAWorkspaceIssue.Id():         notAWorkspaceIssue,
		malformedWdkMetadataIssue.Id():  malformedWdkMetadataIssue,
		testCertificateIssue.Id():       testCertificateIssue,
		compilerNotFoundIssue.Id():      compilerNotFoundIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
