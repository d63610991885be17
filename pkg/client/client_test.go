package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithHTTPClient(srv.Client()))
}

func TestClient_SubmitBatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/answers/a-1/batch", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req api.BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Answers, 2)
		assert.Equal(t, api.YesNo(true), *req.Answers[0].Value)

		_ = json.NewEncoder(w).Encode(api.BatchResponse{Upserted: 2})
	})

	yes, txt := api.YesNo(true), api.Text("notes")
	n, err := c.SubmitBatch(context.Background(), "a-1", []api.AnswerItem{
		{QuestionID: "Q1", Value: &yes},
		{QuestionID: "Q2", Value: &txt},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestClient_StatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/assessments/missing/questions":
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "Assessment not found"})
		case "/api/assessments":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "plain text failure")
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})
	ctx := context.Background()

	_, err := c.Questions(ctx, "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Contains(t, err.Error(), "API error (404): Assessment not found")

	_, err = c.CreateAssessment(ctx, "")
	assert.ErrorIs(t, err, api.ErrInvalidRequest)
	assert.Contains(t, err.Error(), "plain text failure")

	_, err = c.Health(ctx)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.NotErrorIs(t, err, api.ErrNotFound)
}

func TestClient_ImportAndExport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/admin/import-questions":
			f, fh, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			b, _ := io.ReadAll(f)
			assert.Equal(t, "bank.csv", fh.Filename)
			assert.Equal(t, "a,b\n", string(b))
			_ = json.NewEncoder(w).Encode(api.ImportResponse{Success: true, Logs: []string{"ok"}})
		case "/api/exports/a-1/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = io.WriteString(w, "%PDF-1.3")
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	resp, err := c.ImportQuestions(ctx, "bank.csv", bytes.NewBufferString("a,b\n"))
	require.NoError(t, err)
	assert.True(t, resp.Success)

	var buf bytes.Buffer
	require.NoError(t, c.Export(ctx, "a-1", "pdf", &buf))
	assert.Equal(t, "%PDF-1.3", buf.String())

	err = c.Export(ctx, "a-2", "pdf", &buf)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestNew_Defaults(t *testing.T) {
	c := New("")
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.httpClient)
}
