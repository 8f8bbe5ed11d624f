// Package client provides an HTTP client for the visits backend REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/dengue-visits/internal/logging"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
	"github.com/evcraddock/dengue-visits/internal/visit"
)

const (
	questionnairePath = "/api/v1/questionnaires/current"
	visitsPath        = "/api/v1/visits"

	// visitField is the multipart field carrying the visit payload.
	visitField = "visit"
	// photoField is the multipart field carrying each photo file.
	photoField = "photos[]"
)

var _ visit.Submitter = (*Client)(nil)

// Client is an HTTP client for the visits API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client. Requests are logged through slog.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &logging.Transport{},
		},
	}
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server error: %s", http.StatusText(e.StatusCode))
}

// FetchQuestionnaire downloads the current questionnaire for a language.
func (c *Client) FetchQuestionnaire(ctx context.Context, language string) (*questionnaire.Questionnaire, error) {
	path := questionnairePath
	if language != "" {
		path += "?" + url.Values{"language": {language}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	q, err := questionnaire.DecodeJSONAPI(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fetched questionnaire: %w", err)
	}
	return q, nil
}

// Ping checks that the server is reachable and accepts the API key.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+questionnairePath, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	_, err = c.do(req)
	return err
}

// Submit sends a finalized visit as multipart form data: the payload under
// the "visit" field and one file part per photo. The submission id is sent
// as the idempotency key so a retried upload is not stored twice.
func (c *Client) Submit(ctx context.Context, s visit.Submission) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField(visitField, string(s.Payload)); err != nil {
		return fmt.Errorf("writing visit field: %w", err)
	}
	for _, path := range s.Photos {
		if err := writePhoto(mw, path); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+visitsPath, &buf)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Idempotency-Key", s.ID)

	if _, err := c.do(req); err != nil {
		return err
	}
	return nil
}

func writePhoto(mw *multipart.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening photo: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("closing photo", "path", path, "error", cerr)
		}
	}()

	part, err := mw.CreateFormFile(photoField, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("creating photo part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copying photo %s: %w", path, err)
	}
	return nil
}

// do executes an HTTP request with auth headers and returns the body of a
// successful response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		if json.Unmarshal(respBody, &errResp) == nil {
			statusErr.Message = errResp.Error
		}
		return nil, statusErr
	}

	return respBody, nil
}
