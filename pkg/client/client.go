package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/leetease/catalog-engine/internal/catalog"
	"github.com/leetease/catalog-engine/internal/health"
	"github.com/leetease/catalog-engine/internal/importer"
	"github.com/leetease/catalog-engine/internal/models"
)

// Client is a Go SDK for the LeetEase catalog API
type Client struct {
	baseURL    string
	userID     string
	userHeader string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserHeader sets the header that carries the caller identity
func WithUserHeader(header string) Option {
	return func(c *Client) {
		c.userHeader = header
	}
}

// NewClient creates a client acting as userID
func NewClient(baseURL, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		userID:     userID,
		userHeader: "X-User-ID",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.Code, e.Message)
}

// QuestionsOptions selects a page of a company bucket
type QuestionsOptions struct {
	Page         int
	Limit        int
	SortField    string
	SortOrder    string
	Search       string
	Tag          string
	ShowUnsolved bool
}

func (o QuestionsOptions) values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		v.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.SortField != "" {
		v.Set("sortField", o.SortField)
	}
	if o.SortOrder != "" {
		v.Set("sortOrder", o.SortOrder)
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	if o.Tag != "" {
		v.Set("tag", o.Tag)
	}
	if o.ShowUnsolved {
		v.Set("showUnsolved", "true")
	}
	return v
}

// ProgressRequest is a partial progress update. Set ClearDifficulty to
// remove the user's rating; a nil UserDifficulty leaves it untouched.
type ProgressRequest struct {
	Solved          *bool
	UserDifficulty  *string
	ClearDifficulty bool
	Company         string
	Bucket          string
}

func (p ProgressRequest) MarshalJSON() ([]byte, error) {
	body := map[string]interface{}{}
	if p.Solved != nil {
		body["solved"] = *p.Solved
	}
	switch {
	case p.ClearDifficulty:
		body["userDifficulty"] = nil
	case p.UserDifficulty != nil:
		body["userDifficulty"] = *p.UserDifficulty
	}
	if p.Company != "" {
		body["company"] = p.Company
	}
	if p.Bucket != "" {
		body["bucket"] = p.Bucket
	}
	return json.Marshal(body)
}

// Catalog

// Companies lists company names starting with prefix
func (c *Client) Companies(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := c.call(ctx, http.MethodGet, "/api/companies?"+url.Values{"prefix": {prefix}}.Encode(), nil, &names)
	return names, err
}

// Buckets lists the buckets a company has data for
func (c *Client) Buckets(ctx context.Context, company string) ([]string, error) {
	var buckets []string
	err := c.call(ctx, http.MethodGet, "/api/companies/"+url.PathEscape(company)+"/buckets", nil, &buckets)
	return buckets, err
}

// Questions returns one page of a company bucket
func (c *Client) Questions(ctx context.Context, company, bucket string, opts QuestionsOptions) (*models.QuestionPage, error) {
	path := fmt.Sprintf("/api/companies/%s/buckets/%s/questions?%s",
		url.PathEscape(company), url.PathEscape(bucket), opts.values().Encode())

	var page models.QuestionPage
	if err := c.call(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Topics counts tags in a company bucket
func (c *Client) Topics(ctx context.Context, company, bucket string, unsolvedOnly bool) ([]models.TopicCount, error) {
	q := url.Values{"bucket": {bucket}, "unsolved": {strconv.FormatBool(unsolvedOnly)}}

	var topics []models.TopicCount
	err := c.call(ctx, http.MethodGet, "/api/companies/"+url.PathEscape(company)+"/topics?"+q.Encode(), nil, &topics)
	return topics, err
}

// Suggestions searches question titles
func (c *Client) Suggestions(ctx context.Context, text string, limit int) ([]catalog.Suggestion, error) {
	q := url.Values{"q": {text}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var suggestions []catalog.Suggestion
	err := c.call(ctx, http.MethodGet, "/api/questions/suggestions?"+q.Encode(), nil, &suggestions)
	return suggestions, err
}

// Question retrieves a question with the caller's generic progress
func (c *Client) Question(ctx context.Context, id string) (*catalog.QuestionDetail, error) {
	var detail catalog.QuestionDetail
	if err := c.call(ctx, http.MethodGet, "/api/questions/"+url.PathEscape(id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// QuestionCompanies lists the company buckets a question appears in
func (c *Client) QuestionCompanies(ctx context.Context, id string) ([]models.QuestionPlacement, error) {
	var placements []models.QuestionPlacement
	err := c.call(ctx, http.MethodGet, "/api/questions/"+url.PathEscape(id)+"/companies", nil, &placements)
	return placements, err
}

// Progress

// UpdateProgress applies a partial update to one question
func (c *Client) UpdateProgress(ctx context.Context, id string, req ProgressRequest) (*models.Progress, error) {
	var p models.Progress
	if err := c.call(ctx, http.MethodPatch, "/api/questions/"+url.PathEscape(id), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// BatchProgress applies the same update to many questions
func (c *Client) BatchProgress(ctx context.Context, ids []string, req ProgressRequest) (int, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}
	body["questionIds"] = ids

	var result struct {
		Updated int `json:"updated"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/questions/progress/batch", body, &result); err != nil {
		return 0, err
	}
	return result.Updated, nil
}

// CompanyProgress returns the caller's per-bucket progress at a company
func (c *Client) CompanyProgress(ctx context.Context, company string) ([]models.BucketProgress, error) {
	var buckets []models.BucketProgress
	err := c.call(ctx, http.MethodGet, "/api/companies/"+url.PathEscape(company)+"/progress", nil, &buckets)
	return buckets, err
}

// Stats returns the caller's global statistics
func (c *Client) Stats(ctx context.Context) (*models.UserStats, error) {
	var stats models.UserStats
	if err := c.call(ctx, http.MethodGet, "/api/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// External judge

// SaveJudgeProfile stores the caller's judge credentials
func (c *Client) SaveJudgeProfile(ctx context.Context, username, sessionCookie string) (*models.JudgeAccount, error) {
	body := map[string]string{"username": username, "sessionCookie": sessionCookie}

	var acct models.JudgeAccount
	if err := c.call(ctx, http.MethodPost, "/api/profile/judge", body, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// SyncJudge reconciles now and returns the number of records changed
func (c *Client) SyncJudge(ctx context.Context) (int, error) {
	var result struct {
		Synced int `json:"synced"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/profile/judge/sync", nil, &result); err != nil {
		return 0, err
	}
	return result.Synced, nil
}

// LoginEvent reports a login; reconciliation runs in the background
func (c *Client) LoginEvent(ctx context.Context) (bool, error) {
	var result struct {
		Queued bool `json:"queued"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/events/login", nil, &result); err != nil {
		return false, err
	}
	return result.Queued, nil
}

// Admin

// Import uploads a CSV or XLSX file
func (c *Client) Import(ctx context.Context, filename string, r io.Reader) (*importer.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/admin/import", &buf, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var result importer.Result
	if err := decodeData(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BackfillTags fetches topic tags from the external judge
func (c *Client) BackfillTags(ctx context.Context, onlyMissing bool) (*catalog.BackfillResult, error) {
	path := "/api/admin/backfill-tags?onlyMissing=" + strconv.FormatBool(onlyMissing)

	var result catalog.BackfillResult
	if err := c.call(ctx, http.MethodPost, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil, "")
	return err
}

// Ready returns the dependency report
func (c *Client) Ready(ctx context.Context) (*health.Report, error) {
	var report health.Report
	if err := c.call(ctx, http.MethodGet, "/ready", nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// call sends an optional JSON body and decodes the envelope data into out
func (c *Client) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.doRequest(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	return decodeData(resp, out)
}

func decodeData(resp []byte, out interface{}) error {
	data := gjson.GetBytes(resp, "data")
	if !data.Exists() || out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.userID != "" {
		req.Header.Set(c.userHeader, c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Code:       gjson.GetBytes(respBody, "error.code").String(),
			Message:    gjson.GetBytes(respBody, "error.message").String(),
		}
		if apiErr.Message == "" {
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	return respBody, nil
}
