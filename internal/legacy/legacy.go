// Package legacy converts posts written in older on-disk formats into the
// canonical +++ document.
//
// Two formats are recognized:
//   - sidecar: a directory <category>/<name>/ holding body.md and
//     settings.json ({"tags": [...], "wip": bool, "number": n})
//   - yaml: a <category>/<name>.md file whose metadata block is YAML
//     delimited by --- lines
//
// Migration is an explicit one-time step; nothing else in esm reads these
// formats.
package legacy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/esm/internal/document"
	"github.com/aidanlsb/esm/internal/paths"
	"github.com/aidanlsb/esm/internal/post"
)

const (
	sidecarBody     = "body.md"
	sidecarSettings = "settings.json"
	yamlDelimiter   = "---"
)

// Kind names a legacy format.
type Kind string

const (
	KindSidecar Kind = "sidecar"
	KindYAML    Kind = "yaml"
)

// Item is one legacy post found by Scan.
type Item struct {
	Kind Kind `json:"kind"`

	// Name is the post name the item migrates to. It is zero when the
	// legacy location does not map onto a valid name.
	Name paths.Name `json:"-"`

	// Source is the legacy directory (sidecar) or file (yaml), relative
	// to the workspace root.
	Source string `json:"source"`

	// Target is the canonical file, relative to the workspace root.
	Target string `json:"target,omitempty"`
}

// Skip is an item Migrate left alone.
type Skip struct {
	Item   Item   `json:"item"`
	Reason string `json:"reason"`
}

// Result summarizes a migration run.
type Result struct {
	Migrated []Item `json:"migrated"`
	Skipped  []Skip `json:"skipped"`
	DryRun   bool   `json:"dry_run"`
}

// Scan finds legacy posts under root. Dot directories are skipped.
func Scan(root string) ([]Item, error) {
	var items []Item
	sidecars := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if path != root && isFile(filepath.Join(path, sidecarSettings)) {
				sidecars[rel] = true
				items = append(items, newItem(KindSidecar, rel, rel))
			}
			return nil
		}

		if !strings.HasSuffix(d.Name(), paths.Ext) || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if d.Name() == sidecarBody && sidecars[filepath.ToSlash(filepath.Dir(rel))] {
			return nil
		}
		if hasYAMLFrontmatter(path) {
			items = append(items, newItem(KindYAML, rel, strings.TrimSuffix(rel, paths.Ext)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Source < items[j].Source })
	return items, nil
}

func newItem(kind Kind, source, name string) Item {
	item := Item{Kind: kind, Source: source}
	if n, err := paths.Parse(name); err == nil {
		item.Name = n
		item.Target = filepath.ToSlash(n.RelPath())
	}
	return item
}

// Migrate converts every legacy post under root. With dryRun nothing is
// written; the result lists what would change. Items that cannot be
// converted safely are skipped rather than failing the run.
func Migrate(root string, dryRun bool) (*Result, error) {
	items, err := Scan(root)
	if err != nil {
		return nil, err
	}

	result := &Result{DryRun: dryRun, Migrated: []Item{}, Skipped: []Skip{}}
	for _, item := range items {
		if item.Name.IsZero() {
			result.Skipped = append(result.Skipped, Skip{Item: item, Reason: fmt.Sprintf("%s: needs a category", paths.ErrNameInvalid)})
			continue
		}

		var reason string
		switch item.Kind {
		case KindSidecar:
			reason, err = migrateSidecar(root, item, dryRun)
		case KindYAML:
			reason, err = migrateYAML(root, item, dryRun)
		}
		if err != nil {
			return result, err
		}
		if reason != "" {
			result.Skipped = append(result.Skipped, Skip{Item: item, Reason: reason})
			continue
		}
		result.Migrated = append(result.Migrated, item)
	}
	return result, nil
}

type settings struct {
	Tags   []string `json:"tags"`
	WIP    *bool    `json:"wip"`
	Number *uint64  `json:"number"`
}

func migrateSidecar(root string, item Item, dryRun bool) (string, error) {
	dir := filepath.Join(root, filepath.FromSlash(item.Source))

	raw, err := os.ReadFile(filepath.Join(dir, sidecarSettings))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", item.Source, err)
	}
	var s settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Sprintf("%s: settings.json: %v", document.ErrMetaInvalid, err), nil
	}
	if s.WIP == nil {
		return fmt.Sprintf("%s: settings.json has no wip", document.ErrMetaInvalid), nil
	}

	body := ""
	if content, err := os.ReadFile(filepath.Join(dir, sidecarBody)); err == nil {
		body = string(content)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read %s: %w", item.Source, err)
	}

	p, err := post.New(root, item.Name.String())
	if errors.Is(err, post.ErrAlreadyExists) {
		return fmt.Sprintf("%s already exists", item.Target), nil
	} else if err != nil {
		return "", err
	}
	p = post.From(root, p.Name, document.Meta{Tags: nonNil(s.Tags), WIP: *s.WIP, Number: s.Number}, body)

	if dryRun {
		return "", nil
	}
	if err := p.Save(); err != nil {
		return "", err
	}

	for _, name := range []string{sidecarBody, sidecarSettings} {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	// The directory may still hold nested posts; leave it in that case.
	_ = os.Remove(dir)
	return "", nil
}

type yamlMeta struct {
	Tags   []string `yaml:"tags"`
	WIP    *bool    `yaml:"wip"`
	Number *uint64  `yaml:"number"`
}

func migrateYAML(root string, item Item, dryRun bool) (string, error) {
	path := filepath.Join(root, filepath.FromSlash(item.Source))
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", item.Source, err)
	}

	meta, body, err := decodeYAML(string(content))
	if err != nil {
		return err.Error(), nil
	}
	p := post.From(root, item.Name, meta, body)

	if dryRun {
		return "", nil
	}
	return "", p.Save()
}

// decodeYAML splits a ----delimited document into metadata and body,
// stripping one blank line after the closing delimiter.
func decodeYAML(content string) (document.Meta, string, error) {
	lines := strings.SplitAfter(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != yamlDelimiter {
		return document.Meta{}, "", fmt.Errorf("%w: no --- block", document.ErrFormatInvalid)
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == yamlDelimiter {
			end = i
			break
		}
	}
	if end == -1 {
		return document.Meta{}, "", fmt.Errorf("%w: unclosed --- block", document.ErrFormatInvalid)
	}

	var m yamlMeta
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "")), &m); err != nil {
		return document.Meta{}, "", fmt.Errorf("%w: %v", document.ErrMetaInvalid, err)
	}
	if m.WIP == nil {
		return document.Meta{}, "", fmt.Errorf("%w: missing wip", document.ErrMetaInvalid)
	}

	rest := lines[end+1:]
	if len(rest) > 0 && strings.TrimSpace(rest[0]) == "" {
		rest = rest[1:]
	}
	return document.Meta{Tags: nonNil(m.Tags), WIP: *m.WIP, Number: m.Number}, strings.Join(rest, ""), nil
}

func hasYAMLFrontmatter(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, _ := f.Read(buf)
	first, _, _ := strings.Cut(string(buf[:n]), "\n")
	return strings.TrimSpace(first) == yamlDelimiter
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func nonNil(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
