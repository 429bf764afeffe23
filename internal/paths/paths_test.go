package paths

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"infra/runbook", false},
		{"a/b/c/d", false},
		{"日報/2025/01/01", false},
		{"notes/v1.2 draft", false},
		{"", true},
		{"runbook", true},
		{"/infra/runbook", true},
		{"infra//runbook", true},
		{"infra/runbook/", true},
		{"./infra/runbook", true},
		{"infra/../runbook", true},
		{"infra/.", true},
		{"../infra", true},
		{`\infra\runbook`, true},
	}
	for _, tc := range tests {
		err := Validate(tc.path)
		if tc.wantErr {
			if !errors.Is(err, ErrNameInvalid) {
				t.Fatalf("Validate(%q) = %v, want ErrNameInvalid", tc.path, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Validate(%q) unexpected error: %v", tc.path, err)
		}
	}
}

func TestParse(t *testing.T) {
	n, err := Parse("infra/runbooks/deploy.md")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if n.Category() != "infra/runbooks" {
		t.Fatalf("Category() = %q, want infra/runbooks", n.Category())
	}
	if n.Base() != "deploy" {
		t.Fatalf("Base() = %q, want deploy", n.Base())
	}
	if n.String() != "infra/runbooks/deploy" {
		t.Fatalf("String() = %q", n.String())
	}
	if got := len(n.Segments()); got != 3 {
		t.Fatalf("len(Segments()) = %d, want 3", got)
	}

	if _, err := Parse("deploy.md"); !errors.Is(err, ErrNameInvalid) {
		t.Fatalf("Parse(single segment) = %v, want ErrNameInvalid", err)
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		category string
		base     string
		want     string
		wantErr  bool
	}{
		{"infra", "runbook", "infra/runbook", false},
		{"infra/db/", "backup", "infra/db/backup", false},
		{"", "runbook", "", true},
		{"infra", "", "", true},
		{"docs", "README.md", "docs/README.md", false},
	}
	for _, tc := range tests {
		got, err := Join(tc.category, tc.base)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Join(%q, %q) expected error", tc.category, tc.base)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Join(%q, %q) error = %v", tc.category, tc.base, err)
		}
		if got.String() != tc.want {
			t.Fatalf("Join(%q, %q) = %q, want %q", tc.category, tc.base, got, tc.want)
		}
	}
}

func TestJoinKeepsMarkdownSuffix(t *testing.T) {
	root := t.TempDir()
	n, err := Join("docs", "README.md")
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if n.Base() != "README.md" {
		t.Fatalf("Base() = %q, want README.md", n.Base())
	}

	back, err := FromFilePath(root, FilePath(root, n))
	if err != nil {
		t.Fatalf("FromFilePath() error = %v", err)
	}
	if back.String() != "docs/README.md" {
		t.Fatalf("FromFilePath() = %q, want docs/README.md", back)
	}
}

func TestFilePathRoundTrip(t *testing.T) {
	root := t.TempDir()
	n := MustParse("infra/db/backup")

	p := FilePath(root, n)
	want := filepath.Join(root, "infra", "db", "backup.md")
	if p != want {
		t.Fatalf("FilePath() = %q, want %q", p, want)
	}

	back, err := FromFilePath(root, p)
	if err != nil {
		t.Fatalf("FromFilePath(abs) error = %v", err)
	}
	if back.String() != n.String() {
		t.Fatalf("FromFilePath(abs) = %q, want %q", back, n)
	}

	back, err = FromFilePath(root, "./infra/db/backup.md")
	if err != nil {
		t.Fatalf("FromFilePath(rel) error = %v", err)
	}
	if back.String() != n.String() {
		t.Fatalf("FromFilePath(rel) = %q, want %q", back, n)
	}
}

func TestFromFilePathOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(filepath.Dir(root), "elsewhere", "post.md")
	if _, err := FromFilePath(root, outside); !errors.Is(err, ErrNameInvalid) {
		t.Fatalf("FromFilePath(outside) = %v, want ErrNameInvalid", err)
	}
}
