package esa

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every failure talking to the esa API: network
	// errors, undecodable responses, and non-2xx statuses.
	ErrTransport = errors.New("esa request failed")

	// ErrUploadFailed matches failures uploading an attachment to the
	// pre-signed storage endpoint.
	ErrUploadFailed = errors.New("attachment upload failed")
)

// APIError represents a non-2xx response from the esa API.
// esa returns bodies of the form {"error": "not_found", "message": "Not found"}.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Code is the machine-readable error identifier from the body.
	Code string `json:"error"`

	// Message is the human-readable description from the body.
	Message string `json:"message"`
}

func (err *APIError) Error() string {
	msg := err.Message
	if msg == "" {
		msg = err.Code
	}
	if msg == "" {
		return fmt.Sprintf("esa: HTTP %d", err.StatusCode)
	}
	return fmt.Sprintf("esa: HTTP %d: %s", err.StatusCode, msg)
}

// Is makes every APIError match ErrTransport.
func (err *APIError) Is(target error) bool {
	return target == ErrTransport
}

// IsNotFound reports whether err is an esa 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsUnauthorized reports whether err is an esa 401 response, which almost
// always means a missing or revoked access token.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 401
}
