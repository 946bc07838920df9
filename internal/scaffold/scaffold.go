// SPDX-License-Identifier: MPL-2.0

package scaffold

import (
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-git/v5"

	"github.com/svasista-ms/wdkbuild/internal/issue"
	"github.com/svasista-ms/wdkbuild/internal/providers"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// reservedNames cannot be used as crate names; they collide with cargo
// keywords or wdkbuild subcommands.
var reservedNames = []string{"crate", "self", "super", "extern", "_", "-", "new", "build"}

type (
	// Action scaffolds one driver crate.
	Action struct {
		// Path is where the crate is created; its base name becomes the
		// crate name.
		Path string
		// Kind is the driver kind to scaffold.
		Kind providers.DriverKind

		fs     providers.FS
		logger *log.Logger
	}

	// templateData is the render context for every template file.
	templateData struct {
		Name string
		Stem string
		Kind providers.DriverKind
	}
)

// NewAction wires a scaffolding action.
func NewAction(path string, kind providers.DriverKind, fs providers.FS, logger *log.Logger) *Action {
	if logger == nil {
		logger = log.Default()
	}
	return &Action{Path: path, Kind: kind, fs: fs, logger: logger}
}

// ValidateName enforces the crate naming rules: non-empty, alphanumeric
// plus '-' and '_', an alphabetic first character, and no reserved names.
func ValidateName(name string) error {
	if name == "" {
		return issue.NewActionableError("validate project name: name must not be empty")
	}
	for _, c := range name {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '-' && c != '_' {
			return issue.NewErrorContext().
				WithOperation("validate project name").
				WithResource(name).
				WithSuggestion("Use only letters, digits, '-' and '_'").
				BuildError()
		}
	}
	if first := []rune(name)[0]; !unicode.IsLetter(first) {
		return issue.NewErrorContext().
			WithOperation("validate project name").
			WithResource(name).
			WithSuggestion("Start the name with a letter").
			BuildError()
	}
	for _, reserved := range reservedNames {
		if name == reserved {
			return issue.NewErrorContext().
				WithOperation("validate project name").
				WithResource(name).
				WithSuggestion(fmt.Sprintf("'%s' is reserved, pick a different name", name)).
				BuildError()
		}
	}
	return nil
}

// Run creates the crate directory, renders every template, and
// initializes a git repository, matching what 'cargo new' gives users.
func (a *Action) Run() error {
	name := filepath.Base(a.Path)
	if err := ValidateName(name); err != nil {
		return err
	}
	if !a.Kind.IsValid() {
		return issue.WrapWithContext(
			fmt.Errorf("unknown driver kind"), "scaffold driver crate", string(a.Kind))
	}
	if a.fs.Exists(filepath.Join(a.Path, "Cargo.toml")) {
		return issue.NewErrorContext().
			WithOperation("scaffold driver crate").
			WithResource(a.Path).
			WithSuggestion("The directory already contains a crate; pick another path").
			BuildError()
	}

	data := templateData{
		Name: name,
		Stem: strings.ReplaceAll(name, "-", "_"),
		Kind: a.Kind,
	}

	files := map[string]string{
		"cargo_toml.tmpl":   "Cargo.toml",
		"lib_rs.tmpl":       filepath.Join("src", "lib.rs"),
		"build_rs.tmpl":     "build.rs",
		"cargo_config.tmpl": filepath.Join(".cargo", "config.toml"),
		"inx.tmpl":          data.Stem + ".inx",
		"gitignore.tmpl":    ".gitignore",
	}

	for tmplName, relPath := range files {
		content, err := a.render(tmplName, data)
		if err != nil {
			return err
		}
		dst := filepath.Join(a.Path, relPath)
		if err := a.fs.CreateDirAll(filepath.Dir(dst)); err != nil {
			return err
		}
		if err := a.fs.WriteFile(dst, []byte(content)); err != nil {
			return err
		}
	}

	if _, err := git.PlainInit(a.Path, false); err != nil {
		// A parent repository or an existing .git is fine; the crate is
		// complete either way.
		a.logger.Warn("skipping git init", "path", a.Path, "error", err)
	}

	a.logger.Info("created driver crate", "name", name, "kind", a.Kind, "path", a.Path)
	return nil
}

// render executes one embedded template.
func (a *Action) render(name string, data templateData) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", issue.WrapWithContext(err, "load crate template", name)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", issue.WrapWithContext(err, "render crate template", name)
	}
	return sb.String(), nil
}
