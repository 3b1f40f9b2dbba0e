package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/leetease/catalog-engine/internal/models"
)

const (
	problemsPath = "/api/problems/algorithms/"
	graphqlPath  = "/graphql"

	sessionCookie = "LEETCODE_SESSION"
	userAgent     = "Mozilla/5.0"

	maxResponseBytes = 32 << 20
)

const topicTagsQuery = `
query getQuestionDetail($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    topicTags {
      name
    }
  }
}`

// Config configures the judge client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RPS limits outbound calls per second; zero disables limiting
	RPS   float64
	Burst int
}

// Client talks to the external judge. Every failure is an *models.UpstreamError.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a judge client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
	}
}

// GetSolvedSlugs returns the slugs of every problem the session's account has accepted
func (c *Client) GetSolvedSlugs(ctx context.Context, sessionToken string) ([]string, error) {
	const op = "fetch solved problems"

	req, err := c.newRequest(ctx, http.MethodGet, problemsPath, nil)
	if err != nil {
		return nil, &models.UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json, text/html")
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("Origin", c.baseURL)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionToken})

	body, err := c.do(req)
	if err != nil {
		return nil, &models.UpstreamError{Op: op, Err: err}
	}

	if !gjson.ValidBytes(body) {
		return nil, &models.UpstreamError{Op: op, Err: fmt.Errorf("response is not valid JSON")}
	}

	var slugs []string
	seen := make(map[string]bool)
	gjson.GetBytes(body, "stat_status_pairs").ForEach(func(_, pair gjson.Result) bool {
		if pair.Get("status").String() != "ac" {
			return true
		}
		slug := pair.Get("stat.question__title_slug").String()
		if slug != "" && !seen[slug] {
			seen[slug] = true
			slugs = append(slugs, slug)
		}
		return true
	})

	return slugs, nil
}

// GetTopicTags returns the topic tag names of one problem
func (c *Client) GetTopicTags(ctx context.Context, slug string) ([]string, error) {
	op := fmt.Sprintf("fetch topic tags for %s", slug)

	payload, err := json.Marshal(map[string]interface{}{
		"query":     topicTagsQuery,
		"variables": map[string]string{"titleSlug": slug},
	})
	if err != nil {
		return nil, &models.UpstreamError{Op: op, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, graphqlPath, bytes.NewReader(payload))
	if err != nil {
		return nil, &models.UpstreamError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, &models.UpstreamError{Op: op, Err: err}
	}

	if errs := gjson.GetBytes(body, "errors.0.message"); errs.Exists() {
		return nil, &models.UpstreamError{Op: op, Err: fmt.Errorf("graphql: %s", errs.String())}
	}

	tags := make([]string, 0)
	for _, name := range gjson.GetBytes(body, "data.question.topicTags.#.name").Array() {
		if name.String() != "" {
			tags = append(tags, name.String())
		}
	}

	return tags, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return body, nil
}
