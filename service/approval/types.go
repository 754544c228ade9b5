package approval

import (
	"time"
)

// Status of an approval request. Pending is the only non-terminal status;
// once a request reaches any other status it never changes again.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s != StatusPending && s != ""
}

// ActionKind tags the kind of deferred action a request authorises and
// selects the handler that runs on approval.
type ActionKind string

const (
	ActionSendEmail         ActionKind = "send_email"
	ActionApplyToJob        ActionKind = "apply_to_job"
	ActionSendOutreach      ActionKind = "send_outreach"
	ActionGenerateDocument  ActionKind = "generate_document"
	ActionScheduleInterview ActionKind = "schedule_interview"
	ActionAcceptOffer       ActionKind = "accept_offer"
	ActionCustom            ActionKind = "custom"
)

// Kinds lists every recognised action kind.
var Kinds = []ActionKind{
	ActionSendEmail,
	ActionApplyToJob,
	ActionSendOutreach,
	ActionGenerateDocument,
	ActionScheduleInterview,
	ActionAcceptOffer,
	ActionCustom,
}

// Valid reports whether the kind belongs to the closed set.
func (k ActionKind) Valid() bool {
	for _, candidate := range Kinds {
		if k == candidate {
			return true
		}
	}
	return false
}

// Request represents a pending human decision required before a deferred
// action may execute.
type Request struct {
	ID          string                 `json:"id"`
	OwnerID     string                 `json:"ownerId"`
	CreatorID   string                 `json:"creatorId,omitempty"` // set when a workflow run created the gate
	Action      ActionKind             `json:"action"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Status      Status                 `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	DecidedAt   *time.Time             `json:"decidedAt,omitempty"`
	DecidedBy   string                 `json:"decidedBy,omitempty"`
	Notes       string                 `json:"notes,omitempty"`

	// AutoApprove holds the predicate source evaluated at creation time; see
	// the rule package for the grammar.
	AutoApprove string `json:"autoApprove,omitempty"`

	// ExecutionFailed is set when the post-approval handler returned an
	// error. Approval itself is never reverted; the failure is surfaced here
	// so the caller can retry the action.
	ExecutionFailed bool   `json:"executionFailed,omitempty"`
	ExecutionError  string `json:"executionError,omitempty"`
}

// Clone returns a deep enough copy for handing out to callers without
// exposing the stored record to mutation.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		out.DecidedAt = &t
	}
	if r.Payload != nil {
		out.Payload = make(map[string]interface{}, len(r.Payload))
		for k, v := range r.Payload {
			out.Payload[k] = v
		}
	}
	return &out
}

// Decision records the outcome of deciding a request.
type Decision struct {
	RequestID string    `json:"requestId"`
	Approved  bool      `json:"approved"`
	Notes     string    `json:"notes,omitempty"`
	DecidedBy string    `json:"decidedBy,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Event envelope published on the gate's queue for request lifecycle changes.
type Event struct {
	Topic string      // see topic constants below
	Data  interface{} // *Request | *Decision
}

// Standard event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)
