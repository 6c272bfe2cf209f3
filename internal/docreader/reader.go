// Package docreader maps file extensions to format-specific readers.
package docreader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReadFunc loads the text content of a document at path.
type ReadFunc func(path string) (string, error)

// Registry maps lowercased file extensions (with leading dot) to readers.
// An unsupported extension is a skip condition for directory scans, not an
// error; Read on an unsupported path does fail.
type Registry struct {
	readers map[string]ReadFunc
}

// NewRegistry returns a registry with the built-in plain-text readers
// (.txt, .md, .markdown) installed.
func NewRegistry() *Registry {
	r := &Registry{readers: make(map[string]ReadFunc)}
	r.Register(".txt", readPlainText)
	r.Register(".md", readPlainText)
	r.Register(".markdown", readPlainText)
	return r
}

// Register installs a reader for the given extension, replacing any
// existing one. The extension is matched case-insensitively.
func (r *Registry) Register(ext string, fn ReadFunc) {
	r.readers[strings.ToLower(ext)] = fn
}

// Supported reports whether a reader is installed for the path's extension.
func (r *Registry) Supported(path string) bool {
	_, ok := r.readers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Read loads the document at path using the reader for its extension.
func (r *Registry) Read(path string) (string, error) {
	fn, ok := r.readers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("docreader: unsupported extension %q", filepath.Ext(path))
	}
	return fn(path)
}

func readPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
