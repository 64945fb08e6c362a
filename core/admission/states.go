package admission

import "fmt"

// Status is the lifecycle state of an Application.
type Status string

const (
	StatusDraft              Status = "DRAFT"
	StatusSubmitted          Status = "SUBMITTED"
	StatusUnderReview        Status = "UNDER_REVIEW"
	StatusRequiresCorrection Status = "REQUIRES_CORRECTION"
	StatusCursilloScheduled  Status = "CURSILLO_SCHEDULED"
	StatusCursilloApproved   Status = "CURSILLO_APPROVED"
	StatusCursilloRejected   Status = "CURSILLO_REJECTED"
	StatusApproved           Status = "APPROVED"
	StatusPaymentValidated   Status = "PAYMENT_VALIDATED"
	StatusMatriculated       Status = "MATRICULATED"
	StatusRejected           Status = "REJECTED"
)

var AllStatuses = []Status{
	StatusDraft,
	StatusSubmitted,
	StatusUnderReview,
	StatusRequiresCorrection,
	StatusCursilloScheduled,
	StatusCursilloApproved,
	StatusCursilloRejected,
	StatusApproved,
	StatusPaymentValidated,
	StatusMatriculated,
	StatusRejected,
}

// Action is a lifecycle operation attempted on an Application.
type Action string

const (
	ActionUpdate            Action = "update"
	ActionSubmit            Action = "submit"
	ActionStartReview       Action = "start_review"
	ActionRequestCorrection Action = "request_correction"
	ActionScheduleCursillo  Action = "schedule_cursillo"
	ActionPassCursillo      Action = "pass_cursillo"
	ActionFailCursillo      Action = "fail_cursillo"
	ActionApprove           Action = "approve"
	ActionReject            Action = "reject"
	ActionValidatePayment   Action = "validate_payment"
	ActionMatriculate       Action = "matriculate"
	ActionDelete            Action = "delete"
)

var AllActions = []Action{
	ActionUpdate,
	ActionSubmit,
	ActionStartReview,
	ActionRequestCorrection,
	ActionScheduleCursillo,
	ActionPassCursillo,
	ActionFailCursillo,
	ActionApprove,
	ActionReject,
	ActionValidatePayment,
	ActionMatriculate,
	ActionDelete,
}

// statusNone is the "next" of ActionDelete: the application is removed.
const statusNone Status = ""

// transitions is the single source of truth for the legal (status, action)
// pairs. Anything not listed here is rejected.
var transitions = map[Status]map[Action]Status{
	StatusDraft: {
		ActionUpdate: StatusDraft,
		ActionSubmit: StatusSubmitted,
		ActionDelete: statusNone,
	},
	StatusRequiresCorrection: {
		ActionUpdate: StatusRequiresCorrection,
		ActionSubmit: StatusSubmitted,
	},
	StatusSubmitted: {
		ActionStartReview:       StatusUnderReview,
		ActionRequestCorrection: StatusRequiresCorrection,
		ActionApprove:           StatusApproved,
		ActionReject:            StatusRejected,
	},
	StatusUnderReview: {
		ActionRequestCorrection: StatusRequiresCorrection,
		ActionScheduleCursillo:  StatusCursilloScheduled,
		ActionApprove:           StatusApproved,
		ActionReject:            StatusRejected,
	},
	StatusCursilloScheduled: {
		ActionPassCursillo: StatusCursilloApproved,
		ActionFailCursillo: StatusCursilloRejected,
	},
	StatusCursilloApproved: {
		ActionApprove: StatusApproved,
		ActionReject:  StatusRejected,
	},
	StatusCursilloRejected: {
		ActionReject: StatusRejected,
	},
	StatusApproved: {
		ActionValidatePayment: StatusPaymentValidated,
		ActionMatriculate:     StatusMatriculated,
	},
	StatusPaymentValidated: {
		ActionMatriculate: StatusMatriculated,
	},
	// MATRICULATED and REJECTED are terminal
}

// InvalidTransitionError reports an action attempted outside the transition table.
type InvalidTransitionError struct {
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an application in status %s", e.Action, e.From)
}

// Transition returns the status resulting from applying action to s,
// or an *InvalidTransitionError if the pair is not in the table.
func (s Status) Transition(action Action) (Status, error) {
	if actions, ok := transitions[s]; ok {
		if next, ok := actions[action]; ok {
			return next, nil
		}
	}
	return s, &InvalidTransitionError{From: s, Action: action}
}

// Can reports whether action is legal from s.
func (s Status) Can(action Action) bool {
	_, err := s.Transition(action)
	return err == nil
}

// IsTerminal reports whether no action leads out of s.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// SeatConsumingStatuses is the canonical set of statuses that occupy a seat:
// a committed admission counts against capacity from approval through
// matriculation. Every occupancy computation uses this same set.
func SeatConsumingStatuses() []Status {
	return []Status{StatusApproved, StatusPaymentValidated, StatusMatriculated}
}
