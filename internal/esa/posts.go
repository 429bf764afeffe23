package esa

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// searchPageSize is the largest page esa serves.
const searchPageSize = 100

type postEnvelope struct {
	Post PostPayload `json:"post"`
}

// CreatePost creates a new post. The response carries the assigned number
// and canonical URL.
func (client *Client) CreatePost(ctx context.Context, payload PostPayload) (*Post, error) {
	var created Post
	if err := client.do(ctx, http.MethodPost, client.teamPath("/posts"), postEnvelope{Post: payload}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdatePost updates the post with the given number.
func (client *Client) UpdatePost(ctx context.Context, number uint64, payload PostPayload) (*Post, error) {
	var updated Post
	if err := client.do(ctx, http.MethodPatch, client.teamPath("/posts/%d", number), postEnvelope{Post: payload}, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetPost fetches a single post by number.
func (client *Client) GetPost(ctx context.Context, number uint64) (*Post, error) {
	var post Post
	if err := client.do(ctx, http.MethodGet, client.teamPath("/posts/%d", number), nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// SearchPosts runs an esa search query (e.g. "user:alice category:infra")
// and returns the first page of matching posts.
func (client *Client) SearchPosts(ctx context.Context, query string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(searchPageSize))
	if q := strings.TrimSpace(query); q != "" {
		params.Set("q", q)
	}

	var result SearchResult
	if err := client.do(ctx, http.MethodGet, client.teamPath("/posts")+"?"+params.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Term is one "key:value" filter of a search query.
type Term struct {
	Key   string
	Value string
}

// Query joins terms into an esa search query, skipping terms whose value is empty.
func Query(terms ...Term) string {
	parts := make([]string, 0, len(terms))
	for _, term := range terms {
		if strings.TrimSpace(term.Value) == "" {
			continue
		}
		parts = append(parts, term.Key+":"+term.Value)
	}
	return strings.Join(parts, " ")
}
