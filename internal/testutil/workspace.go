// Package testutil provides reusable test utilities for esm tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TestWorkspace is a temporary post workspace for testing.
type TestWorkspace struct {
	Path string

	t      *testing.T
	files  map[string]string
	config string
	env    map[string]string
}

// NewTestWorkspace creates a new workspace builder.
// Call Build() to create the actual directory.
func NewTestWorkspace(t *testing.T) *TestWorkspace {
	t.Helper()
	return &TestWorkspace{
		t:     t,
		files: make(map[string]string),
		env:   make(map[string]string),
	}
}

// WithFile adds a file to the workspace.
// The path is relative to the workspace root.
func (w *TestWorkspace) WithFile(path, content string) *TestWorkspace {
	w.files[path] = content
	return w
}

// WithPost adds a post document for name (e.g. "infra/runbook").
func (w *TestWorkspace) WithPost(name, content string) *TestWorkspace {
	return w.WithFile(filepath.FromSlash(name)+".md", content)
}

// WithConfig sets the config.toml content passed to the CLI via --config.
func (w *TestWorkspace) WithConfig(toml string) *TestWorkspace {
	w.config = toml
	return w
}

// WithEnv sets an environment variable for CLI runs.
func (w *TestWorkspace) WithEnv(key, value string) *TestWorkspace {
	w.env[key] = value
	return w
}

// Build creates the workspace directory and all configured files.
func (w *TestWorkspace) Build() *TestWorkspace {
	w.t.Helper()

	w.Path = w.t.TempDir()
	for path, content := range w.files {
		w.writeFile(path, content)
	}
	if w.config != "" {
		w.writeFile(filepath.Join(".esm-test", "config.toml"), w.config)
	}
	return w
}

// ConfigPath returns the path of the test config file, or "" if none was set.
func (w *TestWorkspace) ConfigPath() string {
	if w.config == "" {
		return ""
	}
	return filepath.Join(w.Path, ".esm-test", "config.toml")
}

// writeFile writes a file to the workspace, creating directories as needed.
func (w *TestWorkspace) writeFile(relPath, content string) {
	w.t.Helper()
	fullPath := filepath.Join(w.Path, relPath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		w.t.Fatalf("failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		w.t.Fatalf("failed to write file %s: %v", fullPath, err)
	}
}

// ReadFile reads a file from the workspace.
func (w *TestWorkspace) ReadFile(relPath string) string {
	w.t.Helper()
	content, err := os.ReadFile(filepath.Join(w.Path, relPath))
	if err != nil {
		w.t.Fatalf("failed to read file %s: %v", relPath, err)
	}
	return string(content)
}

// FileExists checks if a file exists in the workspace.
func (w *TestWorkspace) FileExists(relPath string) bool {
	w.t.Helper()
	_, err := os.Stat(filepath.Join(w.Path, relPath))
	return err == nil
}

// UnsyncedPost returns the document of a freshly created post.
func UnsyncedPost(body string) string {
	return "+++\ntags = []\nwip = true\n+++\n\n" + body
}

// SyncedPost returns the document of a post that has been pushed as number.
func SyncedPost(number, body string) string {
	return "+++\ntags = []\nwip = false\nnumber = " + number + "\n+++\n\n" + body
}
