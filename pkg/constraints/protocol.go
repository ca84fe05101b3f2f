package constraints

type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
	// Ping is a heartbeat; it never carries a feedback payload.
	Ping Action = "ping"
	// Reset tells a watcher its position is gone and it must re-list.
	Reset Action = "reset"
)

// SSE event names used on the change stream.
const (
	EventMessage = "message"
	EventReset   = "reset"
	EventPing    = "ping"
)

const (
	MsgSubmitted      = "Feedback submitted successfully"
	MsgUpdated        = "Feedback updated successfully"
	MsgDeleted        = "Feedback deleted successfully"
	MsgFieldsRequired = "All fields are required"
	MsgNotFound       = "Feedback not found"
	MsgServerError    = "Server error"
	MsgInvalidBody    = "Invalid request body"
)
