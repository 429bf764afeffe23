package esa

import "time"

// Post is a post record as returned by the esa API.
type Post struct {
	Number         *uint64   `json:"number,omitempty"`
	Name           string    `json:"name"`
	FullName       string    `json:"full_name,omitempty"`
	Category       *string   `json:"category"`
	Tags           []string  `json:"tags"`
	BodyMD         string    `json:"body_md"`
	WIP            bool      `json:"wip"`
	URL            string    `json:"url"`
	Message        string    `json:"message,omitempty"`
	RevisionNumber int       `json:"revision_number,omitempty"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// CategoryPath returns the post's category, or "" when it is unfiled.
func (p Post) CategoryPath() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// PostPayload is the writable part of a post sent on create and update.
// The post number is never part of the payload; updates address it in the URL.
type PostPayload struct {
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	BodyMD   string   `json:"body_md"`
	WIP      bool     `json:"wip"`
	Message  string   `json:"message,omitempty"`
}

// SearchResult is one page of posts returned by a query.
type SearchResult struct {
	Posts      []Post `json:"posts"`
	Page       int    `json:"page"`
	NextPage   *int   `json:"next_page"`
	TotalCount int    `json:"total_count"`
}

// FileMeta describes a file for which an upload policy is requested.
type FileMeta struct {
	Type string `json:"type"`
	Size int64  `json:"size"`
	Name string `json:"name"`
}

// UploadPolicy carries the pre-signed form fields and endpoint for a
// direct attachment upload.
type UploadPolicy struct {
	Attachment struct {
		Endpoint string `json:"endpoint"`
		URL      string `json:"url"`
	} `json:"attachment"`
	Form map[string]string `json:"form"`
}

// UploadResult is the raw response from the storage endpoint.
type UploadResult struct {
	Status string
	Header map[string][]string
	Body   []byte

	// URL is where the attachment is served once uploaded.
	URL string
}
