package api

import (
	"io"
	"net/http"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/dto/req"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/dto/resp"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/service"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StreamProvider interface {
	Replay(lastSeq int64) ([]v1.Event, bool)
	Subscribe(c *service.Client) bool
	Unsubscribe(c *service.Client)
}

type StreamHandler struct {
	hub StreamProvider
}

func NewStreamHandler(hub StreamProvider) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// WatchFeedbacks streams change events as SSE. A client resuming with last_seq
// first receives the buffered events it missed, or a reset when they are gone.
func (h *StreamHandler) WatchFeedbacks(c *gin.Context) {
	var q req.StreamQuery
	if err := c.ShouldBindQuery(&q); err != nil || q.LastSeq < 0 {
		c.JSON(http.StatusBadRequest, resp.MessageResponse{Message: "invalid last_seq"})
		return
	}

	client := &service.Client{Send: make(chan v1.Event, 128)}
	if !h.hub.Subscribe(client) {
		c.JSON(http.StatusServiceUnavailable, resp.MessageResponse{Message: "stream unavailable"})
		return
	}
	defer h.hub.Unsubscribe(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	logger.Info("stream client connected",
		zap.Int64("last_seq", q.LastSeq),
		zap.String("ip", c.ClientIP()),
	)

	maxSentSeq := q.LastSeq
	if q.LastSeq > 0 {
		events, ok := h.hub.Replay(q.LastSeq)
		if ok {
			for _, ev := range events {
				c.SSEvent(constraints.EventMessage, ev)
				maxSentSeq = ev.Seq
			}
		} else {
			c.SSEvent(constraints.EventReset, "seq_too_old")
			maxSentSeq = 0
		}
	}
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-client.Send:
			if !ok {
				return false
			}
			if ev.Action == constraints.Ping {
				c.SSEvent(constraints.EventPing, "pong")
				return true
			}
			// already delivered by the replay
			if ev.Seq <= maxSentSeq {
				return true
			}
			c.SSEvent(constraints.EventMessage, ev)
			maxSentSeq = ev.Seq
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
