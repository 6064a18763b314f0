package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// Submitter sends a batch to the append endpoint.
type Submitter interface {
	Submit(ctx context.Context, batch core.Batch) (Response, error)
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, batch core.Batch) (Response, error)

func (fn SubmitterFunc) Submit(ctx context.Context, batch core.Batch) (Response, error) {
	return fn(ctx, batch)
}

// Response is the decoded reply of the append endpoint.
type Response struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Status is the terminal state of one submit attempt.
type Status int

const (
	StatusSucceeded Status = iota + 1
	StatusFailed
	StatusUnexpected
)

// Outcome is what the user is told after a submit attempt.
type Outcome struct {
	Status  Status
	Message string
	Detail  string
	Err     error
}

// Text renders the notification shown to the user.
func (o Outcome) Text() string {
	switch o.Status {
	case StatusSucceeded:
		return "成功: " + o.Message
	case StatusFailed:
		return fmt.Sprintf("エラー: %s\n\n%s", o.Message, o.Detail)
	default:
		return core.MsgUnexpected
	}
}

// Notifier shows outcomes to the user.
type Notifier interface {
	Notify(Outcome)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Outcome)

func (fn NotifierFunc) Notify(o Outcome) { fn(o) }

// HTTPSubmitter posts batches as JSON to BaseURL + /api/submit.
type HTTPSubmitter struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSubmitter returns a submitter with a bounded client timeout.
func NewHTTPSubmitter(baseURL string) *HTTPSubmitter {
	return &HTTPSubmitter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// Submit sends the batch. Transport failures and unparsable bodies are
// returned as errors; any decoded reply, success or not, is a Response.
func (s *HTTPSubmitter) Submit(ctx context.Context, batch core.Batch) (Response, error) {
	if batch == nil {
		batch = core.Batch{}
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return Response{}, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/api/submit", bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := s.client().Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("post batch: %w", err)
	}
	defer res.Body.Close()

	var out Response
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err)
	}
	out.StatusCode = res.StatusCode
	return out, nil
}

func (s *HTTPSubmitter) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// FetchOptions reads the suggestion lists served at /api/options.
func FetchOptions(ctx context.Context, client *http.Client, baseURL string) (core.Options, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/options", nil)
	if err != nil {
		return core.Options{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return core.Options{}, fmt.Errorf("get options: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return core.Options{}, fmt.Errorf("get options: unexpected status %d", res.StatusCode)
	}

	var opts core.Options
	if err := json.NewDecoder(res.Body).Decode(&opts); err != nil {
		return core.Options{}, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}
