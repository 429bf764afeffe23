// Package esa is a typed client for the esa.io REST API (v1).
//
// It covers the operations a local mirror needs: creating and updating
// posts, querying and fetching them, and obtaining upload policies for
// attachments. Credentials are passed in explicitly through Config; the
// client never reads the environment.
package esa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultBaseURL is the root URL of the public esa API.
const DefaultBaseURL = "https://api.esa.io"

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 32 << 20
)

// Config holds configuration for creating a Client.
type Config struct {
	// Team is the esa team name (the subdomain of <team>.esa.io). Required.
	Team string

	// Token is a personal access token with read and write scope. Required.
	Token string

	// BaseURL is the root URL for API requests. Defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is used for all HTTP requests, including attachment uploads.
	// Defaults to a client with a 60s timeout.
	HTTPClient *http.Client

	// Logger receives request-level debug logging. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Client is an esa API client bound to one team.
type Client struct {
	baseURL    string
	team       string
	token      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Client from the given configuration.
func NewClient(config Config) (*Client, error) {
	team := strings.TrimSpace(config.Team)
	if team == "" {
		return nil, fmt.Errorf("esa: team is required")
	}
	token := strings.TrimSpace(config.Token)
	if token == "" {
		return nil, fmt.Errorf("esa: access token is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	return &Client{
		baseURL:    baseURL,
		team:       team,
		token:      token,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "esa").Str("team", team).Logger(),
	}, nil
}

// Team returns the team the client is bound to.
func (client *Client) Team() string {
	return client.team
}

func (client *Client) teamPath(format string, args ...any) string {
	return "/v1/teams/" + client.team + fmt.Sprintf(format, args...)
}

// do executes an authenticated API request and decodes a JSON response
// into result (when non-nil). requestBody is JSON-encoded when non-nil.
// Non-2xx responses are returned as *APIError.
func (client *Client) do(ctx context.Context, method, path string, requestBody, result any) error {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("esa: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("esa: creating request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+client.token)
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: reading response body: %w", ErrTransport, err)
	}

	client.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", response.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("esa request")

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return parseAPIError(response.StatusCode, body)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %w", ErrTransport, method, path, err)
	}
	return nil
}

func parseAPIError(status int, body []byte) error {
	apiError := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiError); err != nil {
		apiError.Message = strings.TrimSpace(string(body))
	}
	return apiError
}
