package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "u1")
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": status < 300, "data": data})
}

func TestQuestionsSendsIdentityAndQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.Header.Get("X-User-ID"))
		assert.Equal(t, "/api/companies/Acme Corp/buckets/30Days/questions", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "title", r.URL.Query().Get("sortField"))
		assert.Equal(t, "true", r.URL.Query().Get("showUnsolved"))
		assert.False(t, r.URL.Query().Has("limit"))

		writeData(w, http.StatusOK, map[string]interface{}{
			"items": []map[string]interface{}{{"title": "Two Sum", "userDifficulty": nil}},
			"total": 7,
		})
	})

	page, err := c.Questions(context.Background(), "Acme Corp", "30Days", QuestionsOptions{
		Page:         2,
		SortField:    "title",
		ShowUnsolved: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Two Sum", page.Items[0].Title)
}

func TestProgressRequestBody(t *testing.T) {
	solved := true
	hard := "Hard"

	tests := []struct {
		name string
		req  ProgressRequest
		want string
	}{
		{"solved only", ProgressRequest{Solved: &solved}, `{"solved":true}`},
		{"set difficulty", ProgressRequest{UserDifficulty: &hard}, `{"userDifficulty":"Hard"}`},
		{"clear difficulty", ProgressRequest{ClearDifficulty: true, UserDifficulty: &hard}, `{"userDifficulty":null}`},
		{"scoped", ProgressRequest{Solved: &solved, Company: "Acme", Bucket: "All"}, `{"bucket":"All","company":"Acme","solved":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.req)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestBatchProgress(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"questionIds":["a","b"],"solved":false}`, string(body))
		writeData(w, http.StatusOK, map[string]int{"updated": 2})
	})

	solved := false
	n, err := c.BatchProgress(context.Background(), []string{"a", "b"}, ProgressRequest{Solved: &solved})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImportUploadsMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "acme.csv", header.Filename)

		content, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "title,link\n", string(content))

		writeData(w, http.StatusOK, map[string]int{"imported": 3, "skipped": 1})
	})

	res, err := c.Import(context.Background(), "acme.csv", strings.NewReader("title,link\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Skipped)
}

func TestErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"success":false,"error":{"code":"upstream_unavailable","message":"external judge is unavailable, try again later"}}`)
	})

	_, err := c.SyncJudge(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream_unavailable", apiErr.Code)
}

func TestCustomUserHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u9", r.Header.Get("X-Forwarded-User"))
		writeData(w, http.StatusAccepted, map[string]bool{"queued": true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "u9", WithUserHeader("X-Forwarded-User"))
	queued, err := c.LoginEvent(context.Background())
	require.NoError(t, err)
	assert.True(t, queued)
}
