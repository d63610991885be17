// Package client is a Go client for the assessd HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// DefaultBaseURL is the address of a locally running assessd.
const DefaultBaseURL = "http://localhost:9090"

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code     int
	Response api.ErrorResponse
}

func (e *StatusError) Error() string {
	msg := e.Response.Error
	if e.Response.Message != "" {
		msg += ": " + e.Response.Message
	}
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("API error (%d): %s", e.Code, msg)
}

// Is maps 404 to api.ErrNotFound and 400 to api.ErrInvalidRequest.
func (e *StatusError) Is(target error) bool {
	switch e.Code {
	case http.StatusNotFound:
		return target == api.ErrNotFound
	case http.StatusBadRequest:
		return target == api.ErrInvalidRequest
	}
	return false
}

// Client calls one assessd server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var out api.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAssessment starts an assessment; an empty stdCode uses the server
// default.
func (c *Client) CreateAssessment(ctx context.Context, stdCode string) (*api.AssessmentResponse, error) {
	var out api.AssessmentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/assessments", api.CreateAssessmentRequest{StdCode: stdCode}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Questions lists an assessment's questions with saved answers.
func (c *Client) Questions(ctx context.Context, assessmentID string) (*api.QuestionsResponse, error) {
	var out api.QuestionsResponse
	path := "/api/assessments/" + url.PathEscape(assessmentID) + "/questions"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitBatch upserts answers and returns how many were written.
func (c *Client) SubmitBatch(ctx context.Context, assessmentID string, items []api.AnswerItem) (int, error) {
	var out api.BatchResponse
	path := "/api/answers/" + url.PathEscape(assessmentID) + "/batch"
	if err := c.doJSON(ctx, http.MethodPost, path, api.BatchRequest{Answers: items}, &out); err != nil {
		return 0, err
	}
	return out.Upserted, nil
}

// Coverage fetches the question bank coverage report.
func (c *Client) Coverage(ctx context.Context) (*api.CoverageResponse, error) {
	var out api.CoverageResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/import-questions/coverage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ImportQuestions uploads a CSV question bank.
func (c *Client) ImportQuestions(ctx context.Context, filename string, r io.Reader) (*api.ImportResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("failed to copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/import-questions", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out api.ImportResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Export streams a report ("pdf" or "excel") into w.
func (c *Client) Export(ctx context.Context, assessmentID, format string, w io.Writer) error {
	path := "/api/exports/" + url.PathEscape(assessmentID) + "/" + url.PathEscape(format)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	se := &StatusError{Code: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Join(se, fmt.Errorf("failed to read error body: %w", err))
	}
	if jerr := json.Unmarshal(body, &se.Response); jerr != nil {
		se.Response.Message = strings.TrimSpace(string(body))
	}
	return se
}
