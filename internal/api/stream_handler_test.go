package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/metrics"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/service"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\r\n")
		switch {
		case line == "":
			if ev.name != "" || ev.data != "" {
				return ev
			}
		case strings.HasPrefix(line, "event:"):
			ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}

func startStream(t *testing.T, hub *service.Hub, query string) (*bufio.Reader, func()) {
	t.Helper()
	r := RegisterRoutes(NewFeedbackHandler(newStubService()), NewStreamHandler(hub), nil, testConfig())
	srv := httptest.NewServer(r)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/feedbacks/stream"+query, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/event-stream")

	return bufio.NewReader(res.Body), func() {
		cancel()
		res.Body.Close()
		srv.Close()
	}
}

func waitForHistory(t *testing.T, hub *service.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		events, ok := hub.Replay(0)
		return ok && len(events) == n
	}, time.Second, 5*time.Millisecond)
}

func TestWatchFeedbacks_ReplayThenLive(t *testing.T) {
	hub := service.NewHub(metrics.NewPrometheusObserver(), 0, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	hub.Publish(constraints.Created, &v1.Feedback{ID: "a", Name: "Ann"})
	hub.Publish(constraints.Created, &v1.Feedback{ID: "b", Name: "Bob"})
	waitForHistory(t, hub, 2)

	reader, stop := startStream(t, hub, "?last_seq=1")
	defer stop()

	ev := readEvent(t, reader)
	require.Equal(t, constraints.EventMessage, ev.name)
	var replayed v1.Event
	require.NoError(t, json.Unmarshal([]byte(ev.data), &replayed))
	assert.Equal(t, int64(2), replayed.Seq)
	assert.Equal(t, "b", replayed.Feedback.ID)

	hub.Publish(constraints.Deleted, &v1.Feedback{ID: "a", Name: "Ann"})

	ev = readEvent(t, reader)
	require.Equal(t, constraints.EventMessage, ev.name)
	var live v1.Event
	require.NoError(t, json.Unmarshal([]byte(ev.data), &live))
	assert.Equal(t, int64(3), live.Seq)
	assert.Equal(t, constraints.Deleted, live.Action)
	assert.Equal(t, "a", live.Feedback.ID)
}

func TestWatchFeedbacks_ResetWhenTooFarBehind(t *testing.T) {
	hub := service.NewHub(metrics.NewPrometheusObserver(), 0, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	reader, stop := startStream(t, hub, "?last_seq=100")
	defer stop()

	ev := readEvent(t, reader)
	assert.Equal(t, constraints.EventReset, ev.name)
	assert.Equal(t, "seq_too_old", ev.data)

	// after a reset every live event is forwarded
	hub.Publish(constraints.Created, &v1.Feedback{ID: "c"})
	ev = readEvent(t, reader)
	require.Equal(t, constraints.EventMessage, ev.name)
	var live v1.Event
	require.NoError(t, json.Unmarshal([]byte(ev.data), &live))
	assert.Equal(t, int64(1), live.Seq)
}

func TestWatchFeedbacks_Heartbeat(t *testing.T) {
	hub := service.NewHub(metrics.NewPrometheusObserver(), 20*time.Millisecond, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	reader, stop := startStream(t, hub, "")
	defer stop()

	ev := readEvent(t, reader)
	assert.Equal(t, constraints.EventPing, ev.name)
}

func TestWatchFeedbacks_InvalidQuery(t *testing.T) {
	hub := service.NewHub(metrics.NewPrometheusObserver(), 0, 16, 16)
	r := RegisterRoutes(NewFeedbackHandler(newStubService()), NewStreamHandler(hub), nil, testConfig())

	w := doRequest(r, http.MethodGet, "/api/feedbacks/stream?last_seq=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodGet, "/api/feedbacks/stream?last_seq=-4", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWatchFeedbacks_HubStopped(t *testing.T) {
	hub := service.NewHub(metrics.NewPrometheusObserver(), 0, 16, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	r := RegisterRoutes(NewFeedbackHandler(newStubService()), NewStreamHandler(hub), nil, testConfig())
	w := doRequest(r, http.MethodGet, "/api/feedbacks/stream", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
