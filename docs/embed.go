// Package docs bundles the long-form guides shown by `esm docs`.
package docs

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed guide
var FS embed.FS

// Topics returns the guide names in alphabetical order.
func Topics() ([]string, error) {
	entries, err := fs.ReadDir(FS, "guide")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			topics = append(topics, strings.TrimSuffix(e.Name(), ".md"))
		}
	}
	sort.Strings(topics)
	return topics, nil
}

// Guide returns the markdown source of topic.
func Guide(topic string) (string, error) {
	content, err := FS.ReadFile(path.Join("guide", topic+".md"))
	if err != nil {
		return "", err
	}
	return string(content), nil
}
