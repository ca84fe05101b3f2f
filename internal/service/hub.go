package service

import (
	"context"
	"time"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/buffer"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/metrics"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/logger"

	"go.uber.org/zap"
)

type Client struct {
	Send chan v1.Event
}

// Hub fans change events out to stream clients. All client bookkeeping and
// sequence assignment happen on the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	Broadcast  chan v1.Event
	Register   chan *Client
	Unregister chan *Client

	observer  metrics.HubObserver
	heartbeat time.Duration
	history   *buffer.EventBuffer
	seq       int64
	done      chan struct{}
}

func NewHub(observer metrics.HubObserver, heartbeat time.Duration, bufferSize, historySize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		Broadcast:  make(chan v1.Event, bufferSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		observer:   observer,
		heartbeat:  heartbeat,
		history:    buffer.NewEventBuffer(historySize),
		done:       make(chan struct{}),
	}
}

// Publish enqueues a change without blocking; the event is dropped when the hub is saturated.
func (h *Hub) Publish(action constraints.Action, feedback *v1.Feedback) {
	ev := v1.Event{
		Action:   action,
		Feedback: feedback,
		At:       time.Now().UTC(),
	}
	select {
	case h.Broadcast <- ev:
	default:
		h.observer.RecordDrop()
		logger.Warn("hub saturated, change event dropped",
			zap.String("action", string(action)),
			zap.String("id", feedback.ID))
	}
}

// Replay returns buffered events newer than lastSeq.
func (h *Hub) Replay(lastSeq int64) ([]v1.Event, bool) {
	return h.history.GetSince(lastSeq)
}

// Subscribe registers c. It returns false once the hub has stopped.
func (h *Hub) Subscribe(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unsubscribe(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			logger.Info("hub stopped")
			return
		case client := <-h.Register:
			h.clients[client] = true
			h.observer.IncOnline()
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case ev := <-h.Broadcast:
			h.seq++
			ev.Seq = h.seq
			h.history.Add(ev)
			h.fanout(ev)
		case <-tick:
			h.fanout(v1.Event{Action: constraints.Ping, At: time.Now().UTC()})
		}
	}
}

func (h *Hub) fanout(ev v1.Event) {
	for client := range h.clients {
		select {
		case client.Send <- ev:
			if ev.Action != constraints.Ping {
				h.observer.RecordPush()
			}
		default:
			logger.Warn("stream client too slow, disconnecting", zap.Int64("seq", ev.Seq))
			h.observer.RecordDrop()
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.observer.DecOnline()
}
