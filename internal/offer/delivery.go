package offer

import "time"

type DeliveryStatus string

const (
	DeliverySending DeliveryStatus = "SENDING"
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryError   DeliveryStatus = "ERROR"
)

// DeliveryRecord tracks the state of one (post, channel) delivery. At most
// one record exists per pair; it is upserted, never deleted, and never
// transitions back from SENT.
type DeliveryRecord struct {
	PostID     string
	Channel    Channel
	Status     DeliveryStatus
	SentAt     *time.Time
	ExternalID string
	Error      string
	Retries    int
	UpdatedAt  time.Time
}

// ErrorLog is an append-only failure row surfaced on the error-triage
// screen. Workers only ever append; resolution is an operator action.
type ErrorLog struct {
	ID        string
	DraftID   string
	ErrorType string
	Message   string
	PostID    string
	Channel   Channel
	Resolved  bool
	CreatedAt time.Time
}
