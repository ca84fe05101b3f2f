package service

import (
	"context"
	"errors"
	"time"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/metrics"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/model"
	"github.com/ShivamG1979/FeedBack-Backeng/internal/repository"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
	apperrors "github.com/ShivamG1979/FeedBack-Backeng/pkg/errors"
	"github.com/ShivamG1979/FeedBack-Backeng/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrStoreUnhealthy = errors.New("feedback store unhealthy")

// EventPublisher receives committed changes. Implementations must not block.
type EventPublisher interface {
	Publish(action constraints.Action, feedback *v1.Feedback)
}

type FeedbackService struct {
	repo      repository.FeedbackInterface
	publisher EventPublisher
	observer  metrics.StoreObserver
	now       func() time.Time
}

func NewFeedbackService(repo repository.FeedbackInterface, publisher EventPublisher, observer metrics.StoreObserver) *FeedbackService {
	return &FeedbackService{
		repo:      repo,
		publisher: publisher,
		observer:  observer,
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	}
}

// validateInput rejects missing or empty fields. Whitespace and email format are not checked.
func validateInput(in v1.FeedbackInput) error {
	if in.Name == "" || in.Email == "" || in.Message == "" {
		return apperrors.NewValidationError(constraints.MsgFieldsRequired)
	}
	return nil
}

func (s *FeedbackService) Create(ctx context.Context, in v1.FeedbackInput) (out *v1.Feedback, err error) {
	defer func() { s.record("create", err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}

	feedback := &model.Feedback{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		Timestamp: s.now(),
	}
	if err := s.repo.Create(ctx, feedback); err != nil {
		logger.Error("failed to create feedback", zap.String("id", feedback.ID), zap.String("trace_id", TraceID(ctx)), zap.Error(err))
		return nil, apperrors.NewStorageError("failed to create feedback", err)
	}

	out = feedback.ToAPI()
	s.publish(constraints.Created, out)
	return out, nil
}

// List returns every feedback, most recent first.
func (s *FeedbackService) List(ctx context.Context) (out []v1.Feedback, err error) {
	defer func() { s.record("list", err) }()

	feedbacks, err := s.repo.List(ctx)
	if err != nil {
		logger.Error("failed to list feedback", zap.String("trace_id", TraceID(ctx)), zap.Error(err))
		return nil, apperrors.NewStorageError("failed to list feedback", err)
	}

	out = make([]v1.Feedback, 0, len(feedbacks))
	for i := range feedbacks {
		out = append(out, *feedbacks[i].ToAPI())
	}
	return out, nil
}

func (s *FeedbackService) Update(ctx context.Context, id string, in v1.FeedbackInput) (out *v1.Feedback, err error) {
	defer func() { s.record("update", err) }()

	if err := validateInput(in); err != nil {
		return nil, err
	}

	feedback, err := s.repo.FindAndUpdate(ctx, id, in)
	if err != nil {
		if errors.Is(err, repository.ErrFeedbackNotFound) {
			return nil, apperrors.NewNotFoundError(constraints.MsgNotFound)
		}
		logger.Error("failed to update feedback", zap.String("id", id), zap.String("trace_id", TraceID(ctx)), zap.Error(err))
		return nil, apperrors.NewStorageError("failed to update feedback", err)
	}

	out = feedback.ToAPI()
	s.publish(constraints.Updated, out)
	return out, nil
}

// Delete removes the feedback and returns the state it had before removal.
func (s *FeedbackService) Delete(ctx context.Context, id string) (out *v1.Feedback, err error) {
	defer func() { s.record("delete", err) }()

	feedback, err := s.repo.FindAndDelete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFeedbackNotFound) {
			return nil, apperrors.NewNotFoundError(constraints.MsgNotFound)
		}
		logger.Error("failed to delete feedback", zap.String("id", id), zap.String("trace_id", TraceID(ctx)), zap.Error(err))
		return nil, apperrors.NewStorageError("failed to delete feedback", err)
	}

	out = feedback.ToAPI()
	s.publish(constraints.Deleted, out)
	return out, nil
}

func (s *FeedbackService) Health(ctx context.Context) error {
	if err := s.repo.PingContext(ctx); err != nil {
		logger.Warn("feedback store ping failed", zap.Error(err))
		return ErrStoreUnhealthy
	}
	return nil
}

func (s *FeedbackService) publish(action constraints.Action, feedback *v1.Feedback) {
	if s.publisher == nil {
		return
	}
	// the subscriber gets its own copy
	cp := *feedback
	s.publisher.Publish(action, &cp)
}

func (s *FeedbackService) record(op string, err error) {
	if s.observer == nil {
		return
	}
	outcome := "ok"
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation:
		outcome = "validation"
	case apperrors.ErrorTypeNotFound:
		outcome = "not_found"
	case apperrors.ErrorTypeStorage:
		outcome = "storage"
	}
	s.observer.RecordOperation(op, outcome)
}
