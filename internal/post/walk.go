package post

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/aidanlsb/esm/internal/paths"
)

// WalkResult is one post file found under a workspace root.
type WalkResult struct {
	Path         string
	RelativePath string

	// Post is nil when Error is set.
	Post  *Post
	Error error
}

// Walk visits every post file under root and calls handler for each.
// It skips dot directories (such as .esm and .git) and files that are
// not markdown. Decode failures are reported through WalkResult.Error
// rather than aborting the walk; an error returned by handler stops it.
func Walk(root string, handler func(WalkResult) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			rel, _ := filepath.Rel(root, path)
			return handler(WalkResult{Path: path, RelativePath: rel, Error: err})
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), paths.Ext) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return handler(WalkResult{Path: path, Error: err})
		}
		// Files directly under root have no category and are not posts.
		if !strings.ContainsRune(filepath.ToSlash(rel), '/') {
			return nil
		}

		p, err := LoadFile(root, rel)
		return handler(WalkResult{Path: path, RelativePath: rel, Post: p, Error: err})
	})
}
