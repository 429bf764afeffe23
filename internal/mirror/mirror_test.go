package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aidanlsb/esm/internal/document"
	"github.com/aidanlsb/esm/internal/esa"
	"github.com/aidanlsb/esm/internal/journal"
	"github.com/aidanlsb/esm/internal/paths"
	"github.com/aidanlsb/esm/internal/post"
)

// fakeGateway records calls and replays canned responses.
type fakeGateway struct {
	creates  []esa.PostPayload
	updates  []uint64
	edits    []esa.PostPayload
	gets     []uint64
	queries  []string
	policies []esa.FileMeta
	uploads  []string

	createResp *esa.Post
	updateResp *esa.Post
	getResp    *esa.Post
	searchResp *esa.SearchResult
	policyResp *esa.UploadPolicy
	uploadResp *esa.UploadResult
	err        error
	uploadErr  error
}

func (g *fakeGateway) CreatePost(_ context.Context, payload esa.PostPayload) (*esa.Post, error) {
	g.creates = append(g.creates, payload)
	return g.createResp, g.err
}

func (g *fakeGateway) UpdatePost(_ context.Context, number uint64, payload esa.PostPayload) (*esa.Post, error) {
	g.updates = append(g.updates, number)
	g.edits = append(g.edits, payload)
	if g.updateResp == nil && g.err == nil {
		return &esa.Post{Number: document.Uint64(number)}, nil
	}
	return g.updateResp, g.err
}

func (g *fakeGateway) GetPost(_ context.Context, number uint64) (*esa.Post, error) {
	g.gets = append(g.gets, number)
	return g.getResp, g.err
}

func (g *fakeGateway) SearchPosts(_ context.Context, query string) (*esa.SearchResult, error) {
	g.queries = append(g.queries, query)
	return g.searchResp, g.err
}

func (g *fakeGateway) AttachmentPolicy(_ context.Context, meta esa.FileMeta) (*esa.UploadPolicy, error) {
	g.policies = append(g.policies, meta)
	return g.policyResp, g.err
}

func (g *fakeGateway) Upload(_ context.Context, _ *esa.UploadPolicy, path string) (*esa.UploadResult, error) {
	g.uploads = append(g.uploads, path)
	return g.uploadResp, g.uploadErr
}

type memoryJournal struct {
	entries []journal.Entry
	err     error
}

func (m *memoryJournal) Record(_ context.Context, entry journal.Entry) error {
	m.entries = append(m.entries, entry)
	return m.err
}

func newEngine(t *testing.T, gateway *fakeGateway) (*Engine, *memoryJournal, string) {
	t.Helper()
	root := t.TempDir()
	j := &memoryJournal{}
	engine, err := New(Options{Gateway: gateway, Root: root, User: "alice", Journal: j})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return engine, j, root
}

func category(s string) *string { return &s }

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}

func TestNewRequiresGatewayAndRoot(t *testing.T) {
	if _, err := New(Options{Root: "x"}); err == nil {
		t.Error("expected error without gateway")
	}
	if _, err := New(Options{Gateway: &fakeGateway{}}); err == nil {
		t.Error("expected error without root")
	}
}

func TestCreateThenPushScenario(t *testing.T) {
	gateway := &fakeGateway{createResp: &esa.Post{Number: document.Uint64(7), URL: "https://x/posts/7"}}
	engine, j, root := newEngine(t, gateway)

	p, err := post.New(root, "infra/runbook")
	if err != nil {
		t.Fatalf("post.New() error = %v", err)
	}
	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	path := filepath.Join(root, "infra", "runbook.md")
	if strings.Contains(readFile(t, path), "number") {
		t.Fatal("created post must not carry a number")
	}

	result, err := engine.Push(context.Background(), "infra/runbook.md")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(gateway.creates) != 1 || len(gateway.updates) != 0 {
		t.Fatalf("creates = %d, updates = %d", len(gateway.creates), len(gateway.updates))
	}
	if !result.Created || result.URL != "https://x/posts/7" {
		t.Errorf("result = %+v", result)
	}
	if !strings.Contains(readFile(t, path), "number = 7\n") {
		t.Errorf("file = %q, want number = 7", readFile(t, path))
	}

	payload := gateway.creates[0]
	if payload.Category != "infra" || payload.Name != "runbook" || !payload.WIP {
		t.Errorf("payload = %+v", payload)
	}

	if len(j.entries) != 1 || j.entries[0].Action != journal.ActionCreate || *j.entries[0].Number != 7 {
		t.Errorf("journal = %+v", j.entries)
	}
}

func TestPushNumberedPostUpdates(t *testing.T) {
	gateway := &fakeGateway{updateResp: &esa.Post{Number: document.Uint64(42), URL: "https://x/posts/42"}}
	engine, j, root := newEngine(t, gateway)

	p := post.FromRemote(root, paths.MustParse("infra/db/backup"), esa.Post{Number: document.Uint64(42), BodyMD: "hi"})
	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	result, err := engine.Push(context.Background(), filepath.Join(root, "infra", "db", "backup.md"))
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(gateway.creates) != 0 || len(gateway.updates) != 1 || gateway.updates[0] != 42 {
		t.Fatalf("creates = %v, updates = %v", gateway.creates, gateway.updates)
	}
	if result.Created {
		t.Error("update reported as create")
	}
	if j.entries[0].Action != journal.ActionUpdate {
		t.Errorf("journal action = %s", j.entries[0].Action)
	}
}

func TestPushTwiceUpdatesSecondTime(t *testing.T) {
	gateway := &fakeGateway{createResp: &esa.Post{Number: document.Uint64(9), URL: "u"}}
	engine, _, root := newEngine(t, gateway)

	p, _ := post.New(root, "notes/idea")
	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := engine.Push(context.Background(), "notes/idea.md"); err != nil {
			t.Fatalf("Push() #%d error = %v", i+1, err)
		}
	}
	if len(gateway.creates) != 1 || len(gateway.updates) != 1 || gateway.updates[0] != 9 {
		t.Fatalf("creates = %d, updates = %v", len(gateway.creates), gateway.updates)
	}
}

func TestPushKeepsNumberWhenResponseOmitsIt(t *testing.T) {
	gateway := &fakeGateway{updateResp: &esa.Post{URL: "u"}}
	engine, _, root := newEngine(t, gateway)

	p := post.FromRemote(root, paths.MustParse("a/b"), esa.Post{Number: document.Uint64(5)})
	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	result, err := engine.Push(context.Background(), "a/b.md")
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if result.Post.Meta.Number == nil || *result.Post.Meta.Number != 5 {
		t.Fatalf("number = %v, want 5", result.Post.Meta.Number)
	}
}

func TestPushErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		engine, _, _ := newEngine(t, &fakeGateway{})
		if _, err := engine.Push(context.Background(), "infra/nope.md"); !errors.Is(err, post.ErrNotExists) {
			t.Fatalf("Push() error = %v, want ErrNotExists", err)
		}
	})

	t.Run("transport failure leaves file untouched", func(t *testing.T) {
		gateway := &fakeGateway{err: &esa.APIError{StatusCode: 500, Message: "boom"}}
		engine, j, root := newEngine(t, gateway)
		p, _ := post.New(root, "infra/runbook")
		if err := p.Save(); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		before := readFile(t, p.Path())

		_, err := engine.Push(context.Background(), "infra/runbook.md")
		if !errors.Is(err, esa.ErrTransport) {
			t.Fatalf("Push() error = %v, want ErrTransport", err)
		}
		if readFile(t, p.Path()) != before {
			t.Error("failed push rewrote the file")
		}
		if len(j.entries) != 0 {
			t.Errorf("journal = %+v", j.entries)
		}
	})
}

func TestJournalFailureDoesNotFailPush(t *testing.T) {
	gateway := &fakeGateway{createResp: &esa.Post{Number: document.Uint64(1), URL: "u"}}
	root := t.TempDir()
	engine, err := New(Options{Gateway: gateway, Root: root, Journal: &memoryJournal{err: errors.New("disk full")}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	p, _ := post.New(root, "a/b")
	if err := p.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := engine.Push(context.Background(), "a/b.md"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
}

func TestFetchByNumber(t *testing.T) {
	gateway := &fakeGateway{getResp: &esa.Post{
		Number:   document.Uint64(42),
		Name:     "backup",
		Category: category("infra/db"),
		Tags:     []string{"ops"},
		BodyMD:   "# Backup\n",
		URL:      "https://x/posts/42",
	}}
	engine, j, root := newEngine(t, gateway)

	// An existing local copy is overwritten without any merge.
	stale := filepath.Join(root, "infra", "db", "backup.md")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("+++\ntags = []\nwip = true\n+++\n\nlocal edits\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetched, err := engine.Fetch(context.Background(), ByNumber(42))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(fetched) != 1 || len(gateway.gets) != 1 || gateway.gets[0] != 42 {
		t.Fatalf("fetched = %+v, gets = %v", fetched, gateway.gets)
	}

	entries, err := os.ReadDir(filepath.Join(root, "infra", "db"))
	if err != nil || len(entries) != 1 {
		t.Fatalf("files = %v, %v", entries, err)
	}
	meta, body, err := document.Decode(readFile(t, stale))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if *meta.Number != 42 || body != "# Backup\n" || meta.Tags[0] != "ops" {
		t.Errorf("meta = %+v body = %q", meta, body)
	}
	if len(j.entries) != 1 || j.entries[0].Action != journal.ActionFetch {
		t.Errorf("journal = %+v", j.entries)
	}
}

func TestFetchedMarkdownNameSurvivesPush(t *testing.T) {
	gateway := &fakeGateway{getResp: &esa.Post{
		Number:   document.Uint64(5),
		Name:     "README.md",
		Category: category("docs"),
		Tags:     []string{},
		BodyMD:   "readme\n",
		URL:      "https://x/posts/5",
	}}
	engine, _, root := newEngine(t, gateway)

	fetched, err := engine.Fetch(context.Background(), ByNumber(5))
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got := fetched[0].Post.Name.String(); got != "docs/README.md" {
		t.Fatalf("local name = %q, want docs/README.md", got)
	}
	if want := filepath.Join(root, "docs", "README.md.md"); fetched[0].Post.Path() != want {
		t.Fatalf("path = %q, want %q", fetched[0].Post.Path(), want)
	}

	if _, err := engine.Push(context.Background(), fetched[0].Post.Path()); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if len(gateway.edits) != 1 || gateway.edits[0].Name != "README.md" || gateway.edits[0].Category != "docs" {
		t.Fatalf("update payloads = %+v", gateway.edits)
	}
}

func TestPushRejectsNumberOutOfRange(t *testing.T) {
	gateway := &fakeGateway{createResp: &esa.Post{Number: document.Uint64(1 << 63), URL: "https://x/posts/huge"}}
	engine, j, root := newEngine(t, gateway)

	p, err := post.New(root, "infra/runbook")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, p.Path())

	if _, err := engine.Push(context.Background(), "infra/runbook.md"); !errors.Is(err, document.ErrMetaInvalid) {
		t.Fatalf("Push() error = %v, want ErrMetaInvalid", err)
	}
	if readFile(t, p.Path()) != before {
		t.Error("local file changed after a rejected number")
	}
	if len(j.entries) != 0 {
		t.Errorf("journal = %+v", j.entries)
	}
}

func TestFetchByNumberUncategorized(t *testing.T) {
	gateway := &fakeGateway{getResp: &esa.Post{Number: document.Uint64(3), Name: "loose"}}
	engine, _, _ := newEngine(t, gateway)

	if _, err := engine.Fetch(context.Background(), ByNumber(3)); !errors.Is(err, ErrUncategorized) {
		t.Fatalf("Fetch() error = %v, want ErrUncategorized", err)
	}
}

func TestFetchAllSkipsUncategorized(t *testing.T) {
	gateway := &fakeGateway{searchResp: &esa.SearchResult{Posts: []esa.Post{
		{Number: document.Uint64(1), Name: "one", Category: category("a")},
		{Number: document.Uint64(2), Name: "loose", Category: nil},
		{Number: document.Uint64(3), Name: "two", Category: category("a/b")},
		{Number: document.Uint64(4), Name: "empty", Category: category("")},
	}}}
	engine, _, root := newEngine(t, gateway)

	fetched, err := engine.Fetch(context.Background(), All())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(fetched) != 2 {
		t.Fatalf("fetched %d posts, want 2", len(fetched))
	}
	if gateway.queries[0] != "user:alice" {
		t.Errorf("query = %q", gateway.queries[0])
	}

	for _, rel := range []string{"a/one.md", "a/b/two.md"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Errorf("%s not written: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "loose.md")); !errors.Is(err, os.ErrNotExist) {
		t.Error("uncategorized post was written")
	}
}

func TestFetchByNameQuery(t *testing.T) {
	gateway := &fakeGateway{searchResp: &esa.SearchResult{}}
	engine, _, _ := newEngine(t, gateway)

	if _, err := engine.Fetch(context.Background(), ByName(paths.MustParse("infra/db/backup"))); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got, want := gateway.queries[0], "user:alice category:infra/db name:backup"; got != want {
		t.Errorf("query = %q, want %q", got, want)
	}
}

func TestFetchIsNotAtomic(t *testing.T) {
	gateway := &fakeGateway{searchResp: &esa.SearchResult{Posts: []esa.Post{
		{Number: document.Uint64(1), Name: "ok", Category: category("a")},
		{Number: document.Uint64(2), Name: "..", Category: category("a")},
		{Number: document.Uint64(3), Name: "later", Category: category("a")},
	}}}
	engine, _, root := newEngine(t, gateway)

	fetched, err := engine.Fetch(context.Background(), All())
	if !errors.Is(err, paths.ErrNameInvalid) {
		t.Fatalf("Fetch() error = %v, want ErrNameInvalid", err)
	}
	if len(fetched) != 1 {
		t.Errorf("fetched = %d, want 1", len(fetched))
	}
	if _, err := os.Stat(filepath.Join(root, "a", "ok.md")); err != nil {
		t.Error("record saved before the failure was lost")
	}
	if _, err := os.Stat(filepath.Join(root, "a", "later.md")); err == nil {
		t.Error("records after the failure must not be written")
	}
}

func TestFetchTransportError(t *testing.T) {
	gateway := &fakeGateway{err: esa.ErrTransport}
	engine, _, _ := newEngine(t, gateway)
	if _, err := engine.Fetch(context.Background(), All()); !errors.Is(err, esa.ErrTransport) {
		t.Fatalf("Fetch() error = %v", err)
	}
}

func TestAttach(t *testing.T) {
	file := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(file, []byte("hello attachment"), 0o644); err != nil {
		t.Fatal(err)
	}

	policy := &esa.UploadPolicy{Form: map[string]string{"key": "k"}}
	policy.Attachment.Endpoint = "https://storage.example"
	policy.Attachment.URL = "https://files.example/notes.txt"

	gateway := &fakeGateway{policyResp: policy, uploadResp: &esa.UploadResult{Status: "204 No Content"}}
	engine, j, _ := newEngine(t, gateway)

	result, err := engine.Attach(context.Background(), file)
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}
	if result.URL != "https://files.example/notes.txt" || result.Response.Status != "204 No Content" {
		t.Errorf("result = %+v", result)
	}
	if len(gateway.policies) != 1 || gateway.policies[0].Name != "notes.txt" || !strings.HasPrefix(gateway.policies[0].Type, "text/plain") {
		t.Errorf("policies = %+v", gateway.policies)
	}
	if len(gateway.uploads) != 1 || gateway.uploads[0] != file {
		t.Errorf("uploads = %v", gateway.uploads)
	}
	if len(j.entries) != 1 || j.entries[0].Action != journal.ActionAttach {
		t.Errorf("journal = %+v", j.entries)
	}
}

func TestAttachFailures(t *testing.T) {
	file := filepath.Join(t.TempDir(), "a.bin")
	if err := os.WriteFile(file, []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("policy request", func(t *testing.T) {
		engine, _, _ := newEngine(t, &fakeGateway{err: &esa.APIError{StatusCode: 401}})
		_, err := engine.Attach(context.Background(), file)
		if !errors.Is(err, esa.ErrUploadFailed) || !errors.Is(err, esa.ErrTransport) {
			t.Fatalf("Attach() error = %v, want ErrUploadFailed wrapping ErrTransport", err)
		}
	})

	t.Run("upload", func(t *testing.T) {
		policy := &esa.UploadPolicy{}
		policy.Attachment.Endpoint = "https://storage.example"
		gateway := &fakeGateway{policyResp: policy, uploadErr: esa.ErrUploadFailed}
		engine, j, _ := newEngine(t, gateway)
		if _, err := engine.Attach(context.Background(), file); !errors.Is(err, esa.ErrUploadFailed) {
			t.Fatalf("Attach() error = %v", err)
		}
		if len(gateway.uploads) != 1 {
			t.Errorf("upload attempted %d times, want 1", len(gateway.uploads))
		}
		if len(j.entries) != 0 {
			t.Errorf("journal = %+v", j.entries)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		gateway := &fakeGateway{}
		engine, _, _ := newEngine(t, gateway)
		if _, err := engine.Attach(context.Background(), file+".missing"); !errors.Is(err, esa.ErrUploadFailed) {
			t.Fatalf("Attach() error = %v", err)
		}
		if len(gateway.policies) != 0 {
			t.Error("policy requested for a missing file")
		}
	})
}
