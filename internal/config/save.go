package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/aidanlsb/esm/internal/atomicfile"
)

type persistedConfig struct {
	Team    *string              `toml:"team,omitempty"`
	User    *string              `toml:"user,omitempty"`
	Token   *string              `toml:"token,omitempty"`
	BaseURL *string              `toml:"base_url,omitempty"`
	Root    *string              `toml:"root,omitempty"`
	UI      *persistedUISettings `toml:"ui,omitempty"`
}

type persistedUISettings struct {
	Accent    *string `toml:"accent,omitempty"`
	CodeTheme *string `toml:"code_theme,omitempty"`
}

func nonEmptyPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// SaveTo writes cfg to path atomically, omitting unset keys. The file is
// readable by its owner only since it may carry the access token.
func SaveTo(path string, cfg *Config) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("config path is required")
	}
	if cfg == nil {
		cfg = &Config{}
	}

	out := persistedConfig{
		Team:    nonEmptyPtr(cfg.Team),
		User:    nonEmptyPtr(cfg.User),
		Token:   nonEmptyPtr(cfg.Token),
		BaseURL: nonEmptyPtr(cfg.BaseURL),
		Root:    nonEmptyPtr(cfg.Root),
	}

	accent := nonEmptyPtr(cfg.UI.Accent)
	codeTheme := nonEmptyPtr(cfg.UI.CodeTheme)
	if accent != nil || codeTheme != nil {
		out.UI = &persistedUISettings{
			Accent:    accent,
			CodeTheme: codeTheme,
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}

	return nil
}
