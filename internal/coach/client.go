// Package coach is the HTTP client for the remote interview service: it asks
// for questions and for feedback on the collected answers.
package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rbright/mockinterview/internal/version"
	"github.com/rs/zerolog"
)

// ErrNoQuestions means the service answered with no usable question lines.
var ErrNoQuestions = errors.New("no questions")

// StatusError is a non-2xx response from the service.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("%s: status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, body)
}

// Retryable reports whether another attempt could succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// InterviewRequest is the /conduct-interview form.
type InterviewRequest struct {
	ResumePath    string
	InterviewType string
	JobRole       string
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Retries   int
	AuthToken string

	// InitialBackoff overrides the first retry delay; zero uses 500ms.
	InitialBackoff time.Duration
}

// Observer receives per-request timings.
type Observer interface {
	ObserveRequest(endpoint string, d time.Duration, err error)
}

// Client talks to the remote interview service.
type Client struct {
	cfg      Config
	http     *http.Client
	logger   zerolog.Logger
	observer Observer
}

// New builds a Client. observer may be nil.
func New(cfg Config, logger zerolog.Logger, observer Observer) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:      cfg,
		http:     &http.Client{},
		logger:   logger.With().Str("component", "coach").Logger(),
		observer: observer,
	}
}

// ConductInterview uploads the resume and returns the generated questions.
func (c *Client) ConductInterview(ctx context.Context, req InterviewRequest) ([]string, error) {
	resume, err := os.ReadFile(req.ResumePath)
	if err != nil {
		return nil, fmt.Errorf("read resume: %w", err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("resume", filepath.Base(req.ResumePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(resume); err != nil {
		return nil, fmt.Errorf("copy resume data: %w", err)
	}
	if err := w.WriteField("interviewType", req.InterviewType); err != nil {
		return nil, fmt.Errorf("write interviewType: %w", err)
	}
	if err := w.WriteField("jobRole", req.JobRole); err != nil {
		return nil, fmt.Errorf("write jobRole: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	body, err := c.post(ctx, "/conduct-interview", w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return nil, err
	}

	questions := SplitQuestions(string(body))
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	return questions, nil
}

type feedbackRequest struct {
	Answers map[string]string `json:"answers"`
}

type feedbackResponse struct {
	Feedback string `json:"feedback"`
}

// GetFeedback submits answers keyed by question text and returns the raw
// feedback text.
func (c *Client) GetFeedback(ctx context.Context, answers map[string]string) (string, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	payload, err := json.Marshal(feedbackRequest{Answers: answers})
	if err != nil {
		return "", fmt.Errorf("encode answers: %w", err)
	}

	body, err := c.post(ctx, "/get-feedback", "application/json", payload)
	if err != nil {
		return "", err
	}

	var result feedbackResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode feedback: %w", err)
	}
	return result.Feedback, nil
}

// Ping checks that the service origin answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return &StatusError{Endpoint: "/", Code: resp.StatusCode}
	}
	return nil
}

// post sends body with per-attempt timeouts and exponential backoff on
// transport errors, 429, and 5xx.
func (c *Client) post(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	started := time.Now()
	attempt := 0

	var out []byte
	op := func() error {
		attempt++
		body, err := c.once(ctx, endpoint, contentType, payload)
		if err == nil {
			out = body
			return nil
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Int("attempt", attempt).Msg("request failed")
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.InitialBackoff
	policy.MaxInterval = 8 * c.cfg.InitialBackoff
	policy.MaxElapsedTime = 0

	retries := c.cfg.Retries
	if retries < 0 {
		retries = 0
	}
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx))

	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, time.Since(started), err)
	}
	if err != nil {
		return nil, err
	}
	c.logger.Debug().Str("endpoint", endpoint).Int("attempts", attempt).Dur("elapsed", time.Since(started)).Msg("request ok")
	return out, nil
}

func (c *Client) once(ctx context.Context, endpoint, contentType string, payload []byte) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.BaseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", version.UserAgent())
	if c.cfg.AuthToken != "" {
		req.AddCookie(&http.Cookie{Name: "token", Value: c.cfg.AuthToken})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// SplitQuestions turns newline-delimited service output into trimmed,
// non-empty questions.
func SplitQuestions(raw string) []string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	questions := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			questions = append(questions, line)
		}
	}
	return questions
}
