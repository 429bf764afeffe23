package esa

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileMetaFromPath stats path and detects its MIME type from content.
func FileMetaFromPath(path string) (FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMeta{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if info.IsDir() {
		return FileMeta{}, fmt.Errorf("%w: %s is a directory", ErrUploadFailed, path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return FileMeta{}, fmt.Errorf("%w: detect type of %s: %w", ErrUploadFailed, path, err)
	}
	contentType, _, _ := strings.Cut(mt.String(), ";")

	return FileMeta{
		Type: strings.TrimSpace(contentType),
		Size: info.Size(),
		Name: filepath.Base(path),
	}, nil
}

// AttachmentPolicy requests pre-signed upload credentials for a file.
func (client *Client) AttachmentPolicy(ctx context.Context, meta FileMeta) (*UploadPolicy, error) {
	var policy UploadPolicy
	if err := client.do(ctx, http.MethodPost, client.teamPath("/attachments/policies"), meta, &policy); err != nil {
		return nil, err
	}
	if policy.Attachment.Endpoint == "" {
		return nil, fmt.Errorf("%w: upload policy has no endpoint", ErrUploadFailed)
	}
	return &policy, nil
}

// Upload posts path to the policy's pre-signed endpoint as a multipart form.
//
// The form fields from the policy are sent first, followed by the file
// itself. The upload is not retried; any failure, including a non-2xx
// response, is returned as ErrUploadFailed.
func (client *Client) Upload(ctx context.Context, policy *UploadPolicy, path string) (*UploadResult, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: no upload policy", ErrUploadFailed)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	defer file.Close()

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	keys := make([]string, 0, len(policy.Form))
	for key := range policy.Form {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writer.WriteField(key, policy.Form[key]); err != nil {
			return nil, fmt.Errorf("%w: write form field %s: %w", ErrUploadFailed, key, err)
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrUploadFailed, path, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	size := form.Len()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, policy.Attachment.Endpoint, &form)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrUploadFailed, err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: POST %s: %w", ErrUploadFailed, policy.Attachment.Endpoint, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrUploadFailed, err)
	}

	client.logger.Debug().
		Str("endpoint", policy.Attachment.Endpoint).
		Int("status", response.StatusCode).
		Int("bytes", size).
		Msg("attachment upload")

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: %s", ErrUploadFailed, response.Status, strings.TrimSpace(string(body)))
	}

	return &UploadResult{
		Status: response.Status,
		Header: response.Header,
		Body:   body,
		URL:    policy.Attachment.URL,
	}, nil
}

// Raw renders the result like an HTTP response: status line, headers, body.
func (r *UploadResult) Raw() string {
	var sb strings.Builder
	sb.WriteString(r.Status)
	sb.WriteString("\n")
	keys := make([]string, 0, len(r.Header))
	for key := range r.Header {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range r.Header[key] {
			fmt.Fprintf(&sb, "%s: %s\n", key, value)
		}
	}
	sb.WriteString("\n")
	sb.Write(r.Body)
	return sb.String()
}
