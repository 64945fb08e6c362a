package admission

// EventType identifies a status-change event worth telling the guardian about.
type EventType string

const (
	EventSubmitted           EventType = "submitted"
	EventUnderReview         EventType = "under_review"
	EventCorrectionRequested EventType = "correction_requested"
	EventCursilloScheduled   EventType = "cursillo_scheduled"
	EventCursilloPassed      EventType = "cursillo_passed"
	EventCursilloFailed      EventType = "cursillo_failed"
	EventApproved            EventType = "approved"
	EventPaymentValidated    EventType = "payment_validated"
	EventRejected            EventType = "rejected"
	EventMatriculated        EventType = "matriculated"
)

// Notification is handed to the sink on every status transition. Delivery and
// retries are the sink's problem, not the core's.
type Notification struct {
	UserID        string
	ApplicationID string
	StudentName   string
	Event         EventType
	Extra         string // free-text reason, where applicable
}

// Notifier is any sink that can deliver status-change notifications to guardians.
type Notifier interface {
	Notify(n Notification)
}
