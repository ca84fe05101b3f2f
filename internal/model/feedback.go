package model

import (
	"time"

	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
)

type Feedback struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Email     string    `gorm:"type:text;not null" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"type:datetime(3);not null;index" json:"timestamp"`
}

func (f *Feedback) ToAPI() *v1.Feedback {
	return &v1.Feedback{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		Message:   f.Message,
		Timestamp: f.Timestamp,
	}
}
