package resp

import (
	v1 "github.com/ShivamG1979/FeedBack-Backeng/pkg/api/v1"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type FeedbackResponse struct {
	Message  string       `json:"message"`
	Feedback *v1.Feedback `json:"feedback"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
