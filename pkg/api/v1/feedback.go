package v1

import (
	"encoding/json"
	"time"

	"github.com/ShivamG1979/FeedBack-Backeng/pkg/constraints"
)

type Feedback struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// FeedbackInput carries the three client-editable fields.
type FeedbackInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Event is one entry of the change stream. Seq is assigned by the hub and is
// strictly increasing for the lifetime of the process.
type Event struct {
	Seq      int64              `json:"seq"`
	Action   constraints.Action `json:"action"`
	Feedback *Feedback          `json:"feedback,omitempty"`
	At       time.Time          `json:"at"`
}

func (e *Event) ToJSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		panic("feedback event serialization failed: " + err.Error())
	}
	return string(b)
}
