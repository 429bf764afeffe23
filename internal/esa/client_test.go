package esa

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Team:       "docs",
		Token:      "secret-token",
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Config{Token: "x"}); err == nil {
		t.Fatal("expected error without team")
	}
	if _, err := NewClient(Config{Team: "docs"}); err == nil {
		t.Fatal("expected error without token")
	}
	client, err := NewClient(Config{Team: "docs", Token: "x"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("baseURL = %q, want %q", client.baseURL, DefaultBaseURL)
	}
}

func TestCreatePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/teams/docs/posts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret-token" {
			t.Errorf("Authorization = %q", got)
		}

		var envelope map[string]map[string]any
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		post := envelope["post"]
		if post["category"] != "infra" || post["name"] != "runbook" {
			t.Errorf("payload = %v", post)
		}
		if _, ok := post["number"]; ok {
			t.Error("payload must not carry a number")
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"number": 7, "name": "runbook", "category": "infra", "tags": [], "body_md": "", "wip": true, "url": "https://docs.esa.io/posts/7"}`)
	})

	post, err := client.CreatePost(context.Background(), PostPayload{Category: "infra", Name: "runbook", Tags: []string{}, WIP: true})
	if err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if post.Number == nil || *post.Number != 7 {
		t.Fatalf("number = %v, want 7", post.Number)
	}
	if post.URL != "https://docs.esa.io/posts/7" {
		t.Fatalf("url = %q", post.URL)
	}
}

func TestUpdatePost(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/v1/teams/docs/posts/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"number": 42, "name": "n", "category": "c", "tags": ["a"], "body_md": "b", "wip": false, "url": "u"}`)
	})

	post, err := client.UpdatePost(context.Background(), 42, PostPayload{Category: "c", Name: "n"})
	if err != nil {
		t.Fatalf("UpdatePost() error = %v", err)
	}
	if *post.Number != 42 || post.WIP {
		t.Fatalf("post = %+v", post)
	}
}

func TestSearchPosts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "user:alice category:infra/db name:backup" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q", got)
		}
		_, _ = io.WriteString(w, `{"posts": [{"number": 1, "name": "backup", "category": "infra/db", "tags": [], "body_md": "", "wip": false, "url": "u1"}, {"number": 2, "name": "loose", "category": null, "tags": [], "body_md": "", "wip": true, "url": "u2"}], "page": 1, "next_page": null, "total_count": 2}`)
	})

	q := Query(Term{"user", "alice"}, Term{"category", "infra/db"}, Term{"name", "backup"})
	result, err := client.SearchPosts(context.Background(), q)
	if err != nil {
		t.Fatalf("SearchPosts() error = %v", err)
	}
	if len(result.Posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(result.Posts))
	}
	if result.Posts[0].CategoryPath() != "infra/db" {
		t.Errorf("category = %q", result.Posts[0].CategoryPath())
	}
	if result.Posts[1].Category != nil {
		t.Errorf("null category decoded as %q", *result.Posts[1].Category)
	}
}

func TestQuerySkipsEmptyTerms(t *testing.T) {
	if got := Query(Term{"user", "alice"}, Term{"category", ""}, Term{"name", " "}); got != "user:alice" {
		t.Fatalf("Query() = %q, want user:alice", got)
	}
}

func TestAPIErrorMatchesTransport(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": "not_found", "message": "Not found"}`)
	})

	_, err := client.GetPost(context.Background(), 99)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("GetPost() error = %v, want ErrTransport", err)
	}
	if !IsNotFound(err) {
		t.Fatalf("IsNotFound(%v) = false", err)
	}
	if !strings.Contains(err.Error(), "Not found") {
		t.Fatalf("error message = %q", err.Error())
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>bad gateway</html>")
	})

	_, err := client.GetPost(context.Background(), 1)
	var apiError *APIError
	if !errors.As(err, &apiError) || apiError.StatusCode != http.StatusBadGateway {
		t.Fatalf("GetPost() error = %v, want 502 APIError", err)
	}
}

func TestNetworkErrorMatchesTransport(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{Team: "docs", Token: "x", BaseURL: url})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.GetPost(context.Background(), 1); !errors.Is(err, ErrTransport) {
		t.Fatalf("GetPost() error = %v, want ErrTransport", err)
	}
}

func TestAttachmentUpload(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "diagram.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	if err := os.WriteFile(imagePath, png, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("pre-signed upload must not carry the API token")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
			return
		}
		if got := r.FormValue("key"); got != "uploads/diagram.png" {
			t.Errorf("key = %q", got)
		}
		if got := r.FormValue("policy"); got != "p0l1cy" {
			t.Errorf("policy = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		if header.Filename != "diagram.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Location", "https://files.example/uploads/diagram.png")
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(storage.Close)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/teams/docs/attachments/policies" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var meta FileMeta
		if err := json.NewDecoder(r.Body).Decode(&meta); err != nil {
			t.Errorf("decode meta: %v", err)
			return
		}
		if meta.Type != "image/png" || meta.Name != "diagram.png" || meta.Size != int64(len(png)) {
			t.Errorf("meta = %+v", meta)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"attachment": map[string]string{"endpoint": storage.URL, "url": "https://files.example/uploads/diagram.png"},
			"form":       map[string]string{"key": "uploads/diagram.png", "policy": "p0l1cy", "acl": "public-read"},
		})
	})

	meta, err := FileMetaFromPath(imagePath)
	if err != nil {
		t.Fatalf("FileMetaFromPath() error = %v", err)
	}
	policy, err := client.AttachmentPolicy(context.Background(), meta)
	if err != nil {
		t.Fatalf("AttachmentPolicy() error = %v", err)
	}
	result, err := client.Upload(context.Background(), policy, imagePath)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if result.URL != "https://files.example/uploads/diagram.png" {
		t.Errorf("URL = %q", result.URL)
	}
	if !strings.HasPrefix(result.Raw(), "204") {
		t.Errorf("Raw() = %q, want status line first", result.Raw())
	}
}

func TestUploadFailure(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "<Error>AccessDenied</Error>")
	}))
	t.Cleanup(storage.Close)

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	client, err := NewClient(Config{Team: "docs", Token: "x", HTTPClient: storage.Client()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	policy := &UploadPolicy{Form: map[string]string{"key": "k"}}
	policy.Attachment.Endpoint = storage.URL

	_, err = client.Upload(context.Background(), policy, path)
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("Upload() error = %v, want ErrUploadFailed", err)
	}
	if !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("error should carry the storage response: %v", err)
	}
}

func TestFileMetaFromPathMissing(t *testing.T) {
	_, err := FileMetaFromPath(filepath.Join(t.TempDir(), "nope.png"))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("FileMetaFromPath() error = %v, want ErrUploadFailed", err)
	}
}
