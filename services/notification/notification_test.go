package notifsvc

import (
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
)

type fakeMailer struct {
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type fakeDirectory struct {
	addrs map[string]mail.Address
}

func (d fakeDirectory) LookupGuardian(userID string) (mail.Address, error) {
	if addr, ok := d.addrs[userID]; ok {
		return addr, nil
	}
	return mail.Address{}, errors.New("guardian not found")
}

func TestEmailNotifier(t *testing.T) {
	mailer := &fakeMailer{}
	dir := fakeDirectory{addrs: map[string]mail.Address{
		"guardian-1": {Name: "Luis Paredes", Address: "luis@test.ec"},
	}}
	notifier := NewEmailNotifier(mailer, dir, core.NewNoopLogger())

	t.Run("delivers event copy", func(t *testing.T) {
		notifier.Notify(admission.Notification{
			UserID:      "guardian-1",
			StudentName: "Ana Paredes",
			Event:       admission.EventApproved,
		})

		if assert.Len(t, mailer.sent, 1) {
			msg := mailer.sent[0]
			assert.Equal(t, "Solicitud aprobada", msg.Subject)
			assert.Equal(t, []mail.Address{dir.addrs["guardian-1"]}, msg.To)
			assert.Contains(t, msg.BodyStr, "Ana Paredes")
		}
	})

	t.Run("extra text is appended", func(t *testing.T) {
		mailer.sent = nil
		notifier.Notify(admission.Notification{
			UserID:      "guardian-1",
			StudentName: "Ana Paredes",
			Event:       admission.EventCorrectionRequested,
			Extra:       "falta la planilla de servicio",
		})

		if assert.Len(t, mailer.sent, 1) {
			assert.Contains(t, mailer.sent[0].BodyStr, "\n\nfalta la planilla de servicio")
		}
	})

	t.Run("unknown guardian is swallowed", func(t *testing.T) {
		mailer.sent = nil
		notifier.Notify(admission.Notification{
			UserID: "nope",
			Event:  admission.EventSubmitted,
		})
		assert.Empty(t, mailer.sent)
	})

	t.Run("unknown event is swallowed", func(t *testing.T) {
		mailer.sent = nil
		notifier.Notify(admission.Notification{
			UserID: "guardian-1",
			Event:  admission.EventType("BOGUS"),
		})
		assert.Empty(t, mailer.sent)
	})
}

func TestEventTexts_coverAllEvents(t *testing.T) {
	events := []admission.EventType{
		admission.EventSubmitted,
		admission.EventUnderReview,
		admission.EventCorrectionRequested,
		admission.EventCursilloScheduled,
		admission.EventCursilloPassed,
		admission.EventCursilloFailed,
		admission.EventApproved,
		admission.EventPaymentValidated,
		admission.EventRejected,
		admission.EventMatriculated,
	}
	for _, event := range events {
		text, ok := eventTexts[event]
		assert.True(t, ok, "no copy for event %s", event)
		assert.NotEmpty(t, text.subject)
		assert.Contains(t, text.body, "%s")
	}
}
