package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/esm/internal/esa"
	"github.com/aidanlsb/esm/internal/journal"
	"github.com/aidanlsb/esm/internal/mirror"
	"github.com/aidanlsb/esm/internal/ui"
)

// skipConfigAnnotation marks commands that run before any config exists.
const skipConfigAnnotation = "esm/skip-config"

// session bundles what a remote command needs. Caller is responsible for
// calling close.
type session struct {
	engine  *mirror.Engine
	journal *journal.Journal
}

func (s *session) close() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
}

// openSession validates credentials and wires the esa client, the journal
// and the sync engine together. A journal that cannot be opened is logged
// and left out; syncing does not depend on it.
func openSession() (*session, error) {
	c := getConfig()
	if err := c.Validate(); err != nil {
		return nil, handleSyncError(err)
	}

	client, err := esa.NewClient(esa.Config{
		Team:    c.Team,
		Token:   c.Token,
		BaseURL: c.BaseURL,
		Logger:  &logger,
	})
	if err != nil {
		return nil, handleSyncError(err)
	}

	s := &session{}
	j, err := journal.Open(c.Root)
	if err != nil {
		logger.Warn().Err(err).Msg("journal unavailable; continuing without it")
	} else {
		s.journal = j
	}

	opts := mirror.Options{
		Gateway: client,
		Root:    c.Root,
		User:    c.User,
		Logger:  &logger,
	}
	if s.journal != nil {
		opts.Journal = s.journal
	}
	engine, err := mirror.New(opts)
	if err != nil {
		s.close()
		return nil, handleError(ErrInternal, err, "")
	}
	s.engine = engine
	return s, nil
}

// resolvePostPath maps a post argument onto a path the engine accepts.
// An existing file relative to the working directory wins; anything else
// is taken as relative to the workspace root.
func resolvePostPath(arg string) string {
	if filepath.IsAbs(arg) {
		return arg
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(arg); err == nil {
			return abs
		}
	}
	return arg
}

// relativeToRoot shortens an absolute path for display.
func relativeToRoot(path string) string {
	rel, err := filepath.Rel(getRoot(), path)
	if err != nil {
		return path
	}
	return rel
}

// printOK writes the success line scripts match on: a literal "ok: "
// prefix, the subject, and " to <target>" when there is a target.
func printOK(subject, target string) {
	if target == "" {
		fmt.Printf("ok: %s\n", subject)
		return
	}
	fmt.Printf("ok: %s to %s\n", subject, target)
}

// withSpinner runs fn behind a terminal spinner unless output is JSON.
func withSpinner(message string, fn func() error) error {
	if isJSONOutput() {
		return fn()
	}
	spinner := ui.NewSpinner(message)
	spinner.Start()
	defer spinner.Stop()
	return fn()
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfigAnnotation] == "true" {
			return true
		}
	}
	return false
}
