package admission

import "testing"

func TestStatusTransition(t *testing.T) {
	legal := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusDraft, ActionUpdate, StatusDraft},
		{StatusDraft, ActionSubmit, StatusSubmitted},
		{StatusDraft, ActionDelete, statusNone},
		{StatusRequiresCorrection, ActionUpdate, StatusRequiresCorrection},
		{StatusRequiresCorrection, ActionSubmit, StatusSubmitted},
		{StatusSubmitted, ActionStartReview, StatusUnderReview},
		{StatusSubmitted, ActionRequestCorrection, StatusRequiresCorrection},
		{StatusSubmitted, ActionApprove, StatusApproved},
		{StatusSubmitted, ActionReject, StatusRejected},
		{StatusUnderReview, ActionRequestCorrection, StatusRequiresCorrection},
		{StatusUnderReview, ActionScheduleCursillo, StatusCursilloScheduled},
		{StatusUnderReview, ActionApprove, StatusApproved},
		{StatusUnderReview, ActionReject, StatusRejected},
		{StatusCursilloScheduled, ActionPassCursillo, StatusCursilloApproved},
		{StatusCursilloScheduled, ActionFailCursillo, StatusCursilloRejected},
		{StatusCursilloApproved, ActionApprove, StatusApproved},
		{StatusCursilloApproved, ActionReject, StatusRejected},
		{StatusCursilloRejected, ActionReject, StatusRejected},
		{StatusApproved, ActionValidatePayment, StatusPaymentValidated},
		{StatusApproved, ActionMatriculate, StatusMatriculated},
		{StatusPaymentValidated, ActionMatriculate, StatusMatriculated},
	}

	legalSet := make(map[Status]map[Action]bool, len(legal))
	for _, tt := range legal {
		if legalSet[tt.from] == nil {
			legalSet[tt.from] = make(map[Action]bool)
		}
		legalSet[tt.from][tt.action] = true
	}

	for _, tt := range legal {
		t.Run(string(tt.from)+" "+string(tt.action), func(t *testing.T) {
			got, err := tt.from.Transition(tt.action)
			if err != nil {
				t.Fatalf("Transition() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Transition() = %v, want %v", got, tt.want)
			}
			if !tt.from.Can(tt.action) {
				t.Errorf("Can() = false, want true")
			}
		})
	}

	// everything not listed above must be rejected
	for _, status := range AllStatuses {
		for _, action := range AllActions {
			if legalSet[status][action] {
				continue
			}
			got, err := status.Transition(action)
			if err == nil {
				t.Errorf("Transition(%s, %s) expected error, got %v", status, action, got)
				continue
			}
			tErr, ok := err.(*InvalidTransitionError)
			if !ok {
				t.Errorf("Transition(%s, %s) error type = %T", status, action, err)
				continue
			}
			if tErr.From != status || tErr.Action != action {
				t.Errorf("InvalidTransitionError = %+v", tErr)
			}
			if got != status {
				t.Errorf("Transition(%s, %s) moved status to %s", status, action, got)
			}
		}
	}
}

func TestInvalidTransitionError_message(t *testing.T) {
	_, err := StatusMatriculated.Transition(ActionApprove)
	if err == nil {
		t.Fatal("expected error")
	}
	want := "cannot approve an application in status MATRICULATED"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusMatriculated: true,
		StatusRejected:     true,
	}
	for _, status := range AllStatuses {
		if got := status.IsTerminal(); got != terminal[status] {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, terminal[status])
		}
	}
}

func TestSeatConsumingStatuses(t *testing.T) {
	want := []Status{StatusApproved, StatusPaymentValidated, StatusMatriculated}
	got := SeatConsumingStatuses()
	if len(got) != len(want) {
		t.Fatalf("SeatConsumingStatuses() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SeatConsumingStatuses()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
