// Package post implements the local post entity: a validated name, its
// metadata, and an optional body, persisted as one document under a
// workspace root.
package post

import (
	"errors"
	"fmt"
	"os"

	"github.com/aidanlsb/esm/internal/atomicfile"
	"github.com/aidanlsb/esm/internal/document"
	"github.com/aidanlsb/esm/internal/esa"
	"github.com/aidanlsb/esm/internal/paths"
)

var (
	// ErrAlreadyExists indicates a create over an existing post file.
	ErrAlreadyExists = errors.New("post already exists")

	// ErrNotExists indicates an operation on a post file that does not exist.
	ErrNotExists = errors.New("post does not exist")
)

// Post is a local post.
type Post struct {
	Name paths.Name
	Meta document.Meta

	// Body is nil until the post has content, which is distinct from an
	// empty body.
	Body *string

	root string
}

// New prepares a fresh, unsynced post. Nothing is written until Save.
func New(root, name string) (*Post, error) {
	n, err := paths.Parse(name)
	if err != nil {
		return nil, err
	}

	path := paths.FilePath(root, n)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to check %s: %w", path, err)
	}

	return &Post{
		Name: n,
		Meta: document.Meta{Tags: []string{}, WIP: true},
		root: root,
	}, nil
}

// Load reads the post called name from root.
func Load(root, name string) (*Post, error) {
	n, err := paths.Parse(name)
	if err != nil {
		return nil, err
	}
	return load(root, n)
}

// LoadFile reads the post stored at path, which may be relative to root
// or absolute within it.
func LoadFile(root, path string) (*Post, error) {
	n, err := paths.FromFilePath(root, path)
	if err != nil {
		return nil, err
	}
	return load(root, n)
}

func load(root string, n paths.Name) (*Post, error) {
	path := paths.FilePath(root, n)
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExists, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	meta, body, err := document.Decode(string(content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Post{Name: n, Meta: meta, Body: &body, root: root}, nil
}

// From assembles a post from already decoded parts.
func From(root string, name paths.Name, meta document.Meta, body string) *Post {
	return &Post{Name: name, Meta: meta.Clone(), Body: &body, root: root}
}

// FromRemote maps a remote record onto a local post named name.
// Only body, tags, wip, and number are carried over.
func FromRemote(root string, name paths.Name, record esa.Post) *Post {
	meta := document.Meta{Tags: record.Tags, WIP: record.WIP, Number: record.Number}
	return From(root, name, meta, record.BodyMD)
}

// Path returns the file the post is stored in.
func (p *Post) Path() string {
	return paths.FilePath(p.root, p.Name)
}

// Root returns the workspace root the post lives under.
func (p *Post) Root() string {
	return p.root
}

// Text returns the body, or "" when it has not been set.
func (p *Post) Text() string {
	if p.Body == nil {
		return ""
	}
	return *p.Body
}

// SetNumber records the server-assigned number. A nil number leaves an
// existing one in place.
func (p *Post) SetNumber(n *uint64) {
	if n == nil {
		return
	}
	p.Meta.Number = document.Uint64(*n)
}

// Save writes the post to disk, replacing any existing file and creating
// category directories as needed.
func (p *Post) Save() error {
	content, err := document.Encode(p.Meta, p.Text())
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(p.Path(), []byte(content), 0); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.Path(), err)
	}
	return nil
}

// Payload projects the post into the record sent on create and update.
// The number is deliberately absent: updates carry it in the resource URL.
func (p *Post) Payload() esa.PostPayload {
	tags := p.Meta.Tags
	if tags == nil {
		tags = []string{}
	}
	return esa.PostPayload{
		Name:     p.Name.Base(),
		Category: p.Name.Category(),
		Tags:     tags,
		BodyMD:   p.Text(),
		WIP:      p.Meta.WIP,
	}
}
