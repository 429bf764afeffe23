// Package paths provides canonical helpers for converting between:
// - post names (e.g. "infra/runbooks/deploy")
// - workspace-relative markdown file paths (e.g. "infra/runbooks/deploy.md")
//
// A post name is hierarchical: every segment but the last is a category
// component, the last segment is the post's own name. The mapping between a
// name and its file is 1:1 so that push, fetch, and list agree on where a
// post lives.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Ext is the extension appended to the final name segment on disk.
const Ext = ".md"

// ErrNameInvalid indicates a post name that is not of the form category/.../name.
var ErrNameInvalid = errors.New("post name must be ([category/]+)name")

// Name is a validated hierarchical post name.
type Name struct {
	segments []string
}

// Validate reports whether path is a well-formed post name.
//
// It rejects:
// - fewer than two segments
// - empty segments (including a leading or trailing slash)
// - "." and ".." segments
// - absolute paths and volume names
func Validate(path string) error {
	_, err := split(path)
	return err
}

// Parse validates path and returns it as a Name.
// OS separators are normalized to '/' and a trailing ".md" is stripped.
func Parse(path string) (Name, error) {
	segments, err := split(strings.TrimSuffix(filepath.ToSlash(path), Ext))
	if err != nil {
		return Name{}, err
	}
	return Name{segments: segments}, nil
}

// Join builds a Name from a category ("a/b") and a remote base name.
// Unlike Parse it keeps a trailing ".md": the base is the remote name
// verbatim, so "README.md" lives in README.md.md.
func Join(category, base string) (Name, error) {
	category = strings.Trim(filepath.ToSlash(category), "/")
	path := base
	if category != "" {
		path = category + "/" + base
	}
	segments, err := split(path)
	if err != nil {
		return Name{}, err
	}
	return Name{segments: segments}, nil
}

// MustParse is like Parse but panics on invalid input. Intended for tests and constants.
func MustParse(path string) Name {
	n, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return n
}

func split(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNameInvalid)
	}
	if filepath.VolumeName(path) != "" || strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return nil, fmt.Errorf("%w: %q is absolute", ErrNameInvalid, path)
	}

	segments := strings.Split(filepath.ToSlash(path), "/")
	if len(segments) < 2 {
		return nil, fmt.Errorf("%w: %q has no category", ErrNameInvalid, path)
	}
	for _, seg := range segments {
		switch seg {
		case "":
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrNameInvalid, path)
		case ".", "..":
			return nil, fmt.Errorf("%w: %q contains %q", ErrNameInvalid, path, seg)
		}
	}
	return segments, nil
}

// Segments returns a copy of the name's segments.
func (n Name) Segments() []string {
	return append([]string(nil), n.segments...)
}

// Category returns every segment but the last, joined by '/'.
func (n Name) Category() string {
	if len(n.segments) == 0 {
		return ""
	}
	return strings.Join(n.segments[:len(n.segments)-1], "/")
}

// Base returns the final segment.
func (n Name) Base() string {
	if len(n.segments) == 0 {
		return ""
	}
	return n.segments[len(n.segments)-1]
}

// String returns the slash-separated name.
func (n Name) String() string {
	return strings.Join(n.segments, "/")
}

// IsZero reports whether n was never parsed.
func (n Name) IsZero() bool {
	return len(n.segments) == 0
}

// RelPath returns the workspace-relative file path for n, using OS separators.
func (n Name) RelPath() string {
	return filepath.FromSlash(n.String() + Ext)
}

// FilePath returns the on-disk path of n under root.
func FilePath(root string, n Name) string {
	return filepath.Join(root, n.RelPath())
}

// FromFilePath converts a markdown file path back to a Name.
//
// A relative path is taken as relative to root; an absolute path must lie
// within root.
func FromFilePath(root, path string) (Name, error) {
	rel := path
	if filepath.IsAbs(path) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return Name{}, err
		}
		rel, err = filepath.Rel(absRoot, path)
		if err != nil {
			return Name{}, fmt.Errorf("%w: %s", ErrNameInvalid, err)
		}
	}
	return Parse(normalizeRelPath(rel))
}

// normalizeRelPath normalizes a workspace-relative path-like value:
// - converts OS separators to '/'
// - trims a leading "./"
func normalizeRelPath(p string) string {
	p = filepath.ToSlash(p)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}
