package req

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FeedbackRequest is the body of submit and update calls. Presence is checked
// by the service so that every caller gets the same validation.
type FeedbackRequest struct {
	Name    Text `json:"name"`
	Email   Text `json:"email"`
	Message Text `json:"message"`
}

// Text accepts any JSON scalar and keeps its string form, so {"name":5}
// stores "5". null decodes to "". Objects and arrays are rejected.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case 'n':
		*t = ""
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*t = Text(strconv.FormatBool(b))
	case '{', '[':
		return fmt.Errorf("expected a scalar, got %s", data[:1])
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", data)
		}
		*t = Text(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return nil
}

type FeedbackURI struct {
	ID string `uri:"id" binding:"required"`
}

type StreamQuery struct {
	LastSeq int64 `form:"last_seq"`
}
