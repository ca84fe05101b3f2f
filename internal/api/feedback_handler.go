package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/dto/req"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/dto/resp"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
	apperrors "github.com/ShivamG1979/FeedBack-Backeng/pkg/errors"

	"github.com/gin-gonic/gin"
)

type FeedbackProvider interface {
	Create(ctx context.Context, in v1.FeedbackInput) (*v1.Feedback, error)
	List(ctx context.Context) ([]v1.Feedback, error)
	Update(ctx context.Context, id string, in v1.FeedbackInput) (*v1.Feedback, error)
	Delete(ctx context.Context, id string) (*v1.Feedback, error)
	Health(ctx context.Context) error
}

type FeedbackHandler struct {
	service FeedbackProvider
}

func NewFeedbackHandler(service FeedbackProvider) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// bindFeedback decodes the body. An empty body is treated as an object with no fields.
func bindFeedback(c *gin.Context) (v1.FeedbackInput, bool) {
	var r req.FeedbackRequest
	if err := c.ShouldBindJSON(&r); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, resp.MessageResponse{Message: constraints.MsgInvalidBody})
		return v1.FeedbackInput{}, false
	}
	return v1.FeedbackInput{Name: string(r.Name), Email: string(r.Email), Message: string(r.Message)}, true
}

func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	in, ok := bindFeedback(c)
	if !ok {
		return
	}

	feedback, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp.FeedbackResponse{
		Message:  constraints.MsgSubmitted,
		Feedback: feedback,
	})
}

func (h *FeedbackHandler) ListFeedbacks(c *gin.Context) {
	feedbacks, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, feedbacks)
}

func (h *FeedbackHandler) UpdateFeedback(c *gin.Context) {
	var uri req.FeedbackURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusNotFound, resp.MessageResponse{Message: constraints.MsgNotFound})
		return
	}
	in, ok := bindFeedback(c)
	if !ok {
		return
	}

	feedback, err := h.service.Update(c.Request.Context(), uri.ID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.FeedbackResponse{
		Message:  constraints.MsgUpdated,
		Feedback: feedback,
	})
}

func (h *FeedbackHandler) DeleteFeedback(c *gin.Context) {
	var uri req.FeedbackURI
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusNotFound, resp.MessageResponse{Message: constraints.MsgNotFound})
		return
	}

	feedback, err := h.service.Delete(c.Request.Context(), uri.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.FeedbackResponse{
		Message:  constraints.MsgDeleted,
		Feedback: feedback,
	})
}

func (h *FeedbackHandler) HealthCheck(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, resp.HealthResponse{Status: "unhealthy"})
		return
	}
	c.JSON(http.StatusOK, resp.HealthResponse{Status: "ok"})
}

// respondError maps the error taxonomy onto status codes. Storage details never reach the client.
func respondError(c *gin.Context, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		c.JSON(http.StatusBadRequest, resp.MessageResponse{Message: constraints.MsgFieldsRequired})
	case apperrors.ErrorTypeNotFound:
		c.JSON(http.StatusNotFound, resp.MessageResponse{Message: constraints.MsgNotFound})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, resp.MessageResponse{Message: constraints.MsgServerError})
	}
}
