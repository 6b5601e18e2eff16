package person

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

const requestTimeout = 10 * time.Second

// TokenProvider supplies the bearer token for directory requests.
type TokenProvider interface {
	BearerToken(ctx context.Context, scope string) (string, error)
}

// StaticTokenProvider returns a fixed token, for local development.
type StaticTokenProvider string

func (p StaticTokenProvider) BearerToken(context.Context, string) (string, error) {
	return string(p), nil
}

// DirectoryError is a failed call to the directory service.
type DirectoryError struct {
	StatusCode int
	Body       string
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("directory service returned status %d", e.StatusCode)
}

// SpleisClient looks up a person's vedtaksperioder in the external
// directory service.
type SpleisClient struct {
	baseURL    string
	scope      string
	tokens     TokenProvider
	httpClient *http.Client
	validate   *validator.Validate
	restricted *slog.Logger
}

func NewSpleisClient(baseURL string, scope string, tokens TokenProvider, restricted *slog.Logger) *SpleisClient {
	return &SpleisClient{
		baseURL:    baseURL,
		scope:      scope,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: requestTimeout},
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		restricted: restricted.With("component", "spleis_client"),
	}
}

// Vedtaksperioder fetches the person with the given fødselsnummer. A non-2xx
// response surfaces as *DirectoryError; the status and body go to the
// restricted log channel only.
func (c *SpleisClient) Vedtaksperioder(ctx context.Context, fnr string) (*Person, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/vedtaksperioder", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	token, err := c.tokens.BearerToken(ctx, c.scope)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bearer token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("fnr", fnr)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory response: %w", err)
	}

	c.restricted.InfoContext(ctx, "Directory response",
		"url", req.URL.String(),
		"status_code", resp.StatusCode,
		"body", string(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &DirectoryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var p Person

	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}

	if err := c.validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("directory response failed validation: %w", err)
	}

	return &p, nil
}
