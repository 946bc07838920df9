// SPDX-License-Identifier: MPL-2.0

package providers

import (
	"io"
	"os"
)

// FS is the filesystem capability used by the packaging pipeline. Every
// failure carries the offending path in a *FileError.
type FS interface {
	// Exists reports whether path exists.
	Exists(path string) bool
	// CreateDirAll creates path and any missing parents.
	CreateDirAll(path string) error
	// Copy duplicates src to dst byte for byte, overwriting dst.
	Copy(src, dst string) error
	// ReadToString reads the file at path as UTF-8 text.
	ReadToString(path string) (string, error)
	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte) error
}

// osFS is the production FS backed by the os package.
type osFS struct{}

// NewFS creates the production filesystem provider.
func NewFS() FS {
	return &osFS{}
}

// Exists reports whether path exists.
func (f *osFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateDirAll creates path and any missing parents.
func (f *osFS) CreateDirAll(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &FileError{Op: "create dir", Path: path, Cause: err}
	}
	return nil
}

// Copy duplicates src to dst byte for byte. The destination is truncated
// first so a rerun fully overwrites any prior package contents.
func (f *osFS) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &FileError{Op: "copy", Path: src, Cause: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return &FileError{Op: "copy", Path: dst, Cause: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &FileError{Op: "copy", Path: dst, Cause: err}
	}
	if err := out.Close(); err != nil {
		return &FileError{Op: "copy", Path: dst, Cause: err}
	}
	return nil
}

// ReadToString reads the file at path as text.
func (f *osFS) ReadToString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FileError{Op: "read", Path: path, Cause: err}
	}
	return string(data), nil
}

// WriteFile writes data to path.
func (f *osFS) WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &FileError{Op: "write", Path: path, Cause: err}
	}
	return nil
}
