package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetease/catalog-engine/internal/models"
)

const problemList = `{
  "user_name": "alice",
  "stat_status_pairs": [
    {"stat": {"question__title_slug": "two-sum"}, "status": "ac"},
    {"stat": {"question__title_slug": "add-two-numbers"}, "status": "notac"},
    {"stat": {"question__title_slug": "lru-cache"}, "status": "ac"},
    {"stat": {"question__title_slug": "median-of-two-sorted-arrays"}, "status": null},
    {"stat": {"question__title_slug": "two-sum"}, "status": "ac"}
  ]
}`

func TestGetSolvedSlugs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, problemsPath, r.URL.Path)
		cookie, err := r.Cookie(sessionCookie)
		require.NoError(t, err)
		assert.Equal(t, "secret", cookie.Value)
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(problemList))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	slugs, err := c.GetSolvedSlugs(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, []string{"two-sum", "lru-cache"}, slugs)
}

func TestGetSolvedSlugsUpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-2xx", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}},
		{"invalid json", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>login</html>"))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewClient(Config{BaseURL: srv.URL}).GetSolvedSlugs(context.Background(), "s")
			assert.ErrorIs(t, err, models.ErrUpstream)
		})
	}
}

func TestGetSolvedSlugsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.GetSolvedSlugs(context.Background(), "s")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestGetTopicTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, graphqlPath, r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var payload struct {
			Variables map[string]string `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "two-sum", payload.Variables["titleSlug"])

		w.Write([]byte(`{"data":{"question":{"topicTags":[{"name":"Array"},{"name":"Hash Table"}]}}}`))
	}))
	defer srv.Close()

	tags, err := NewClient(Config{BaseURL: srv.URL}).GetTopicTags(context.Background(), "two-sum")
	require.NoError(t, err)
	assert.Equal(t, []string{"Array", "Hash Table"}, tags)
}

func TestGetTopicTagsGraphQLError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"question not found"}],"data":{"question":null}}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).GetTopicTags(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestRateLimitHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat_status_pairs":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, RPS: 0.001, Burst: 1})
	_, err := c.GetSolvedSlugs(context.Background(), "s")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.GetSolvedSlugs(ctx, "s")
	assert.ErrorIs(t, err, models.ErrUpstream)
}
