package enquiry

import "context"

// Event types published to the event bus.
const (
	EventSubmitted = "enquiry.submitted"
	EventClaimed   = "enquiry.claimed"
)

// Producer is the event bus the service publishes enquiry events to.
// Publishing is best effort; a nil producer disables events entirely.
type Producer interface {
	SendMessage(ctx context.Context, value interface{}) error
	Close() error
}

// Event describes a state change of an enquiry.
type Event struct {
	Type        string `json:"type"`
	EnquiryID   int    `json:"enquiryId"`
	Email       string `json:"email"`
	CounselorID *int   `json:"counselorId,omitempty"`
}
