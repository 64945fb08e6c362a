package notifsvc

import (
	"fmt"
	"net/mail"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
)

// Directory resolves a guardian's mailbox from their user ID. The identity
// provider lives outside this module, so lookups go through this seam.
type Directory interface {
	LookupGuardian(userID string) (mail.Address, error)
}

// eventText holds the guardian-facing copy for one event.
type eventText struct {
	subject string
	body    string // fmt template; first verb is the student name
}

var eventTexts = map[admission.EventType]eventText{
	admission.EventSubmitted: {
		subject: "Solicitud recibida",
		body:    "La solicitud de admisión de %s fue recibida y está en cola para revisión.",
	},
	admission.EventUnderReview: {
		subject: "Solicitud en revisión",
		body:    "La solicitud de admisión de %s está siendo revisada por la secretaría.",
	},
	admission.EventCorrectionRequested: {
		subject: "Se requieren correcciones",
		body:    "La solicitud de admisión de %s necesita correcciones antes de continuar.",
	},
	admission.EventCursilloScheduled: {
		subject: "Cursillo de nivelación programado",
		body:    "Se ha programado el cursillo de nivelación para %s.",
	},
	admission.EventCursilloPassed: {
		subject: "Cursillo aprobado",
		body:    "%s aprobó el cursillo de nivelación. La solicitud continúa su trámite.",
	},
	admission.EventCursilloFailed: {
		subject: "Resultado del cursillo",
		body:    "%s no aprobó el cursillo de nivelación.",
	},
	admission.EventApproved: {
		subject: "Solicitud aprobada",
		body:    "La solicitud de admisión de %s fue aprobada. Puede continuar con el pago de matrícula.",
	},
	admission.EventPaymentValidated: {
		subject: "Pago validado",
		body:    "El pago de matrícula de %s fue validado. La asignación de paralelo está en curso.",
	},
	admission.EventRejected: {
		subject: "Solicitud rechazada",
		body:    "La solicitud de admisión de %s fue rechazada.",
	},
	admission.EventMatriculated: {
		subject: "Matrícula confirmada",
		body:    "%s ha sido matriculado(a). Bienvenidos.",
	},
}

type emailNotifier struct {
	mailer core.EmailService
	dir    Directory
	logger core.Logger
}

var _ admission.Notifier = (*emailNotifier)(nil)

// NewEmailNotifier delivers status-change notifications to the guardian's
// mailbox. Lookup failures are logged and swallowed; notification delivery
// never blocks a workflow operation.
func NewEmailNotifier(mailer core.EmailService, dir Directory, logger core.Logger) *emailNotifier {
	return &emailNotifier{mailer: mailer, dir: dir, logger: logger}
}

func (n *emailNotifier) Notify(nt admission.Notification) {
	text, ok := eventTexts[nt.Event]
	if !ok {
		n.logger.Warn(fmt.Sprintf("no notification copy for event %q", nt.Event))
		return
	}

	to, err := n.dir.LookupGuardian(nt.UserID)
	if err != nil {
		n.logger.Error(fmt.Sprintf("looking up guardian %s: %v", nt.UserID, err), err)
		return
	}

	body := fmt.Sprintf(text.body, nt.StudentName)
	if nt.Extra != "" {
		body += "\n\n" + nt.Extra
	}
	n.mailer.SendMessages(&core.EmailMessage{
		To:      []mail.Address{to},
		Subject: text.subject,
		BodyStr: body,
	})
}

type logNotifier struct {
	logger core.Logger
}

var _ admission.Notifier = (*logNotifier)(nil)

// NewLogNotifier records notifications instead of delivering them; used in
// development and as the fallback when no mailer is configured.
func NewLogNotifier(logger core.Logger) *logNotifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Notify(nt admission.Notification) {
	n.logger.Info(fmt.Sprintf(
		"notification: event=%s application=%s user=%s extra=%q",
		nt.Event, nt.ApplicationID, nt.UserID, nt.Extra,
	))
}
