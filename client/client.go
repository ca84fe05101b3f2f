package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/logger"

	"go.uber.org/zap"
)

var (
	ErrValidation  = errors.New("feedback: validation failed")
	ErrNotFound    = errors.New("feedback: not found")
	ErrRateLimited = errors.New("feedback: rate limited")
	ErrServer      = errors.New("feedback: server error")
)

// APIError is a non-2xx answer from the service. It unwraps to one of the
// sentinel errors above so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("feedback api: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrValidation
	default:
		return ErrServer
	}
}

type EventHandler func(ev v1.Event)

type FeedbackClient struct {
	addr       string
	httpClient *http.Client

	minBackoff  time.Duration
	maxBackoff  time.Duration
	idleTimeout time.Duration

	lastSeq atomic.Int64
}

type Option func(*FeedbackClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *FeedbackClient) { c.httpClient = hc }
}

func WithBackoff(minDelay, maxDelay time.Duration) Option {
	return func(c *FeedbackClient) {
		c.minBackoff = minDelay
		c.maxBackoff = maxDelay
	}
}

// WithIdleTimeout sets how long Watch waits without any bytes, heartbeats
// included, before it drops the connection and reconnects.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *FeedbackClient) { c.idleTimeout = d }
}

func NewFeedbackClient(addr string, opts ...Option) *FeedbackClient {
	c := &FeedbackClient{
		addr:        strings.TrimRight(addr, "/"),
		httpClient:  &http.Client{Timeout: 0},
		minBackoff:  time.Second,
		maxBackoff:  30 * time.Second,
		idleTimeout: 45 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LastSeq is the sequence of the newest change event delivered by Watch.
func (c *FeedbackClient) LastSeq() int64 {
	return c.lastSeq.Load()
}

type feedbackEnvelope struct {
	Message  string       `json:"message"`
	Feedback *v1.Feedback `json:"feedback"`
}

func (c *FeedbackClient) Submit(ctx context.Context, in v1.FeedbackInput) (*v1.Feedback, error) {
	var out feedbackEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/submit-feedback", in, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return out.Feedback, nil
}

func (c *FeedbackClient) List(ctx context.Context) ([]v1.Feedback, error) {
	var out []v1.Feedback
	if err := c.do(ctx, http.MethodGet, "/api/feedbacks", nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FeedbackClient) Update(ctx context.Context, id string, in v1.FeedbackInput) (*v1.Feedback, error) {
	var out feedbackEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/feedbacks/"+url.PathEscape(id), in, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Feedback, nil
}

func (c *FeedbackClient) Delete(ctx context.Context, id string) (*v1.Feedback, error) {
	var out feedbackEnvelope
	if err := c.do(ctx, http.MethodDelete, "/api/feedbacks/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Feedback, nil
}

func (c *FeedbackClient) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Watch follows the change stream until ctx is done, reconnecting with
// jittered backoff and resuming from the last delivered sequence. A reset
// from the server reaches handler as an event with the Reset action.
func (c *FeedbackClient) Watch(ctx context.Context, handler EventHandler) error {
	backoff := c.minBackoff
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := c.watchOnce(ctx, handler, func() { backoff = c.minBackoff })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var jitter time.Duration
		if half := int64(backoff / 2); half > 0 {
			jitter = time.Duration(rand.Int63n(half))
		}
		logger.Warn("SSE disconnected", zap.Error(err), zap.Duration("retry_in", backoff+jitter))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff + jitter):
		}
		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}
}

func (c *FeedbackClient) watchOnce(ctx context.Context, handler EventHandler, connected func()) error {
	reqCtx, reqCancel := context.WithCancel(ctx)
	defer reqCancel()

	u := fmt.Sprintf("%s/api/feedbacks/stream?last_seq=%d", c.addr, c.lastSeq.Load())
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "stream rejected"}
	}
	connected()

	// Watchdog for heartbeats
	var lastActivity atomic.Int64
	lastActivity.Store(time.Now().UnixNano())
	if c.idleTimeout > 0 {
		go c.watchdog(reqCtx, reqCancel, &lastActivity)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	var eventType string
	var data bytes.Buffer
	for scanner.Scan() {
		lastActivity.Store(time.Now().UnixNano())
		line := scanner.Text()
		if line == "" {
			c.dispatch(eventType, data.Bytes(), handler)
			eventType = ""
			data.Reset()
			continue
		}

		switch {
		case strings.HasPrefix(line, "event:"):
			eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			// multiple data lines are joined by newline
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (c *FeedbackClient) watchdog(ctx context.Context, cancel context.CancelFunc, lastActivity *atomic.Int64) {
	ticker := time.NewTicker(c.idleTimeout / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(time.Unix(0, lastActivity.Load())) > c.idleTimeout {
				logger.Warn("sse heartbeat timeout, reconnecting")
				cancel()
				return
			}
		}
	}
}

func (c *FeedbackClient) dispatch(eventType string, data []byte, handler EventHandler) {
	switch eventType {
	case constraints.EventPing:
		return
	case constraints.EventReset:
		logger.Warn("received reset event, position discarded", zap.Int64("last_seq", c.lastSeq.Load()))
		c.lastSeq.Store(0)
		handler(v1.Event{Action: constraints.Reset, At: time.Now().UTC()})
		return
	}
	if len(data) == 0 {
		return
	}

	var ev v1.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		logger.Error("failed to unmarshal change event", zap.Error(err))
		return
	}
	if ev.Seq <= c.lastSeq.Load() {
		logger.Warn("stale sequence received", zap.Int64("seq", ev.Seq), zap.Int64("last_seq", c.lastSeq.Load()))
		return
	}
	c.lastSeq.Store(ev.Seq)
	handler(ev)
}
