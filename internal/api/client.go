// Package api is the typed client for the job backend's REST endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobagent/internal/domain"
)

const maxErrorBody = 64 << 10

type Options struct {
	BaseURL string
	// SearchURL serves POST /search when the crawler runs apart from the API.
	// Empty means BaseURL.
	SearchURL string
	Token     string
	Timeout   time.Duration
	Limiter   *HostLimiter

	HTTPClient *http.Client
	Logger     *slog.Logger
}

type Client struct {
	base    *url.URL
	search  *url.URL
	token   string
	limiter *HostLimiter
	hc      *http.Client
	log     *slog.Logger
}

func New(opts Options) (*Client, error) {
	base, err := parseBase(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	search := base
	if opts.SearchURL != "" {
		if search, err = parseBase(opts.SearchURL); err != nil {
			return nil, fmt.Errorf("search url: %w", err)
		}
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}
	return &Client{
		base:    base,
		search:  search,
		token:   opts.Token,
		limiter: opts.Limiter,
		hc:      hc,
		log:     l.With("component", "api"),
	}, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q: missing host", raw)
	}
	return u, nil
}

type Status struct {
	Crawling bool `json:"crawling"`
}

type SearchRequest struct {
	Query    string `json:"query"`
	Location string `json:"location"`
}

// SearchResult is the crawler's reply. Status is "Started" or "Error"; an
// "Error" reply still arrives with HTTP 200.
type SearchResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r SearchResult) Rejected() bool { return strings.EqualFold(r.Status, "error") }

func (c *Client) Jobs(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := c.do(ctx, "jobs", http.MethodGet, c.base, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.do(ctx, "status", http.MethodGet, c.base, "/status", nil, &st)
	return st, err
}

func (c *Client) Search(ctx context.Context, query, location string) (SearchResult, error) {
	var res SearchResult
	err := c.do(ctx, "search", http.MethodPost, c.search, "/search", SearchRequest{Query: query, Location: location}, &res)
	return res, err
}

func (c *Client) Generate(ctx context.Context, jobID string) error {
	return c.do(ctx, "generate", http.MethodPost, c.base, "/jobs/"+url.PathEscape(jobID)+"/generate", nil, nil)
}

func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, "reset", http.MethodGet, c.base, "/reset", nil, nil)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, c.base, "/health", nil, nil)
}

// Download returns the rendered application PDF for jobID.
func (c *Client) Download(ctx context.Context, jobID string) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.do(ctx, "download", http.MethodGet, c.base, "/jobs/"+url.PathEscape(jobID)+"/download", nil, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// do sends one request to base+path, where path is already escaped. out may be nil (body discarded), a *bytes.Buffer (raw
// body) or any JSON target.
func (c *Client) do(ctx context.Context, op, method string, base *url.URL, path string, in, out any) error {
	u, err := url.Parse(strings.TrimRight(base.String(), "/") + path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.limiter.Wait(ctx, u); err != nil {
		return &TransportError{Op: method, URL: u.String(), Err: err}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Debug("request failed", "op", op, "request_id", reqID, "err", err)
		return &TransportError{Op: method, URL: u.String(), Err: err}
	}
	defer resp.Body.Close()
	c.log.Debug("request", "op", op, "request_id", reqID, "status", resp.StatusCode, "dur_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}

	switch dst := out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *bytes.Buffer:
		if _, err := dst.ReadFrom(resp.Body); err != nil {
			return &TransportError{Op: method, URL: u.String(), Err: err}
		}
		return nil
	default:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: decode response: %w", op, err)
		}
		return nil
	}
}

// statusError reads the relay's {"error":{code,message,request_id}} envelope
// when present and falls back to FastAPI's {"detail": ...}.
func statusError(op string, resp *http.Response) error {
	se := &StatusError{Op: op, StatusCode: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var env struct {
		Error *struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
		Detail any `json:"detail"`
	}
	if json.Unmarshal(raw, &env) == nil {
		switch {
		case env.Error != nil:
			se.Code = env.Error.Code
			se.Message = env.Error.Message
			if env.Error.RequestID != "" {
				se.RequestID = env.Error.RequestID
			}
			return se
		case env.Detail != nil:
			se.Message = fmt.Sprint(env.Detail)
			return se
		}
	}
	se.Message = strings.TrimSpace(string(raw))
	return se
}
