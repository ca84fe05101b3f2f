package repository

import (
	"context"
	"errors"

	"github.com/ShivamG1979/FeedBack-Backeng/internal/model"
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrFeedbackNotFound = errors.New("feedback not found")

// FeedbackInterface defines the persistence primitives over the feedback collection
type FeedbackInterface interface {
	Create(ctx context.Context, feedback *model.Feedback) error
	List(ctx context.Context) ([]model.Feedback, error)
	FindAndUpdate(ctx context.Context, id string, in v1.FeedbackInput) (*model.Feedback, error)
	FindAndDelete(ctx context.Context, id string) (*model.Feedback, error)
	PingContext(ctx context.Context) error
}

// FeedbackRepository implementation of FeedbackInterface for MySQL
type FeedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new instance
func NewFeedbackRepository(db *gorm.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, feedback *model.Feedback) error {
	return r.db.WithContext(ctx).Create(feedback).Error
}

// List returns every record, most recent first
func (r *FeedbackRepository) List(ctx context.Context) ([]model.Feedback, error) {
	feedbacks := make([]model.Feedback, 0)
	err := r.db.WithContext(ctx).Order("timestamp DESC").Find(&feedbacks).Error
	return feedbacks, err
}

// FindAndUpdate replaces name, email and message of the record and returns its new state.
// The row is locked for the duration of the transaction.
func (r *FeedbackRepository) FindAndUpdate(ctx context.Context, id string, in v1.FeedbackInput) (*model.Feedback, error) {
	var feedback model.Feedback
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&feedback).Error; err != nil {
			return err
		}

		feedback.Name = in.Name
		feedback.Email = in.Email
		feedback.Message = in.Message

		return tx.Model(&feedback).Updates(map[string]any{
			"name":    in.Name,
			"email":   in.Email,
			"message": in.Message,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return &feedback, nil
}

// FindAndDelete removes the record and returns the state it had before removal
func (r *FeedbackRepository) FindAndDelete(ctx context.Context, id string) (*model.Feedback, error) {
	var feedback model.Feedback
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Take(&feedback).Error; err != nil {
			return err
		}
		return tx.Delete(&feedback).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFeedbackNotFound
		}
		return nil, err
	}
	return &feedback, nil
}

func (r *FeedbackRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
