package admission

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core"
)

var (
	// errors
	ErrNotFound     = errors.New("application not found")
	ErrForbidden    = errors.New("permission denied")
	ErrCedulaExists = errors.New("an application with this student cedula already exists")
)

// CapacityError reports a parallel with no seats left for the attempted
// matriculation.
type CapacityError struct {
	Parallel  string
	Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("parallel %s has no available seats", e.Parallel)
}

// Fallbacks when no quota rows are configured for an application's
// (grade, shift, specialty); also the ceiling of the legacy CheckQuota.
const defaultParallelQuota = 30

var defaultParallels = []string{"A", "B", "C"}

type (
	// SeatQuery scopes a derived-occupancy count. An empty Parallel matches any
	// assignment (level-wide counts); ParallelNone matches unassigned rows.
	SeatQuery struct {
		GradeLevel string
		Shift      string
		Specialty  null.String
		Parallel   string
		Statuses   []Status
	}

	Repository interface {
		// CheckCedulaUniqueness returns ErrCedulaExists if another application
		// (excluded ones aside) already carries this cedula.
		CheckCedulaUniqueness(cedula string, excluded ...Application) error
		CreateApplication(app Application) (Application, error)
		GetApplicationByID(id string) (Application, error)
		// FilterApplications applies AND over available QueryFilter fields and
		// returns one page plus the total match count.
		FilterApplications(filter QueryFilter) ([]Application, int, error)
		// QueryAdmittedApplications returns all APPROVED applications ordered
		// by student last name ascending.
		QueryAdmittedApplications() ([]Application, error)
		UpdateApplication(app Application) (Application, error)
		DeleteApplication(id string) error
		// CountByStatus counts applications per status; ownerID == "" counts globally.
		CountByStatus(ownerID string) (map[Status]int, error)
		CountSeats(q SeatQuery) (int, error)
		// Matriculate re-counts occupancy for the application's (grade, shift,
		// parallel) and, only if below limit, flips the application to
		// MATRICULATED with the assignment fields set. Count, check and write
		// are atomic with respect to concurrent calls; a full parallel yields
		// *CapacityError.
		Matriculate(id, parallel string, limit int, staffID string) (Application, error)
	}

	DocumentRepository interface {
		// SaveDocument stores doc, superseding any existing document of the
		// same type on the same application.
		SaveDocument(doc Document) (Document, error)
		QueryApplicationDocuments(applicationID string) ([]Document, error)
		DeleteDocument(id string) error
	}

	CommentRepository interface {
		CreateComment(c Comment) (Comment, error)
		// QueryApplicationComments returns comments ordered by creation time ascending.
		QueryApplicationComments(applicationID string) ([]Comment, error)
	}

	// ParallelQuota is a configured capacity for one parallel, as provided by
	// the seat allocator.
	ParallelQuota struct {
		Parallel   string
		TotalQuota int
	}

	// QuotaDirectory looks up configured capacities; the quota service
	// implements it.
	QuotaDirectory interface {
		ParallelQuotas(gradeLevel, shift string, specialty null.String) ([]ParallelQuota, error)
	}

	Service struct {
		repo     Repository
		docs     DocumentRepository
		comments CommentRepository
		quotas   QuotaDirectory
		notifier Notifier
		validate *validator.Validate
	}
)

func NewService(
	repo Repository,
	docs DocumentRepository,
	comments CommentRepository,
	quotas QuotaDirectory,
	notifier Notifier,
	validate *validator.Validate,
) *Service {
	return &Service{
		repo:     repo,
		docs:     docs,
		comments: comments,
		quotas:   quotas,
		notifier: notifier,
		validate: validate,
	}
}

// SetQuotaDirectory wires the seat allocator in after construction; the
// allocator itself counts seats through this service's repository, so the two
// cannot be built in one shot.
func (svc *Service) SetQuotaDirectory(quotas QuotaDirectory) {
	svc.quotas = quotas
}

// Create opens an empty DRAFT application owned by the guardian.
func (svc *Service) Create(owner Actor) (Application, error) {
	now := time.Now().UTC()
	app := Application{
		ID:        uuid.New().String(),
		UserID:    owner.ID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateApplication(app)
}

// Update merges the patch into an owned DRAFT or REQUIRES_CORRECTION application.
func (svc *Service) Update(id string, actor Actor, ua UpdateApplication) (Application, error) {
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Application{}, err
	}
	if !app.IsOwnedBy(actor.ID) {
		return Application{}, ErrForbidden
	}
	if _, err = app.Status.Transition(ActionUpdate); err != nil {
		return Application{}, err
	}
	if err = ua.Validate(svc.validate); err != nil {
		return Application{}, err
	}

	if ua.StudentCedula != "" && ua.StudentCedula != app.StudentCedula {
		if err = svc.repo.CheckCedulaUniqueness(ua.StudentCedula, app); err != nil {
			return Application{}, err
		}
		app.StudentCedula = ua.StudentCedula
	}
	if ua.StudentFirstName != "" {
		app.StudentFirstName = ua.StudentFirstName
	}
	if ua.StudentLastName != "" {
		app.StudentLastName = ua.StudentLastName
	}
	if ua.BirthDate != "" {
		bd, err := time.Parse("2006-01-02", ua.BirthDate)
		if err != nil {
			return Application{}, core.NewValidationError(err, core.FieldError{Field: "birth_date", Error: "invalid date"})
		}
		app.BirthDate = null.TimeFrom(bd)
	}
	if ua.Gender != "" {
		app.Gender = ua.Gender
	}
	if ua.Address != "" {
		app.Address = ua.Address
	}
	if len(ua.BirthPlace) > 0 {
		app.BirthPlace = null.JSONFrom(ua.BirthPlace)
	}
	if len(ua.ParentData) > 0 {
		app.ParentData = null.JSONFrom(ua.ParentData)
	}
	if len(ua.RepresentativeData) > 0 {
		app.RepresentativeData = null.JSONFrom(ua.RepresentativeData)
	}
	if ua.GradeLevel != "" {
		app.GradeLevel = ua.GradeLevel
	}
	if ua.Shift != "" {
		app.Shift = ua.Shift
	}
	if ua.Specialty != "" {
		app.Specialty = null.StringFrom(ua.Specialty)
	}
	app.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateApplication(app)
}

// Submit validates completeness and moves the application to SUBMITTED.
func (svc *Service) Submit(id string, actor Actor) (Application, error) {
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Application{}, err
	}
	if !app.IsOwnedBy(actor.ID) {
		return Application{}, ErrForbidden
	}
	next, err := app.Status.Transition(ActionSubmit)
	if err != nil {
		return Application{}, err
	}

	docs, err := svc.docs.QueryApplicationDocuments(app.ID)
	if err != nil {
		return Application{}, errors.Wrap(err, "querying documents")
	}
	if err = checkSubmittable(app, docs); err != nil {
		return Application{}, err
	}

	now := time.Now().UTC()
	app.Status = next
	app.SubmittedAt = null.TimeFrom(now)
	app.UpdatedAt = now
	app, err = svc.repo.UpdateApplication(app)
	if err != nil {
		return Application{}, err
	}

	svc.notify(app, EventSubmitted, "")
	return app, nil
}

// Get returns the application with its documents. Guardians may only see their
// own; staff also get the internal comments.
func (svc *Service) Get(id string, actor Actor) (Application, error) {
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Application{}, err
	}
	if !actor.IsStaff() && !app.IsOwnedBy(actor.ID) {
		return Application{}, ErrForbidden
	}

	if app.Documents, err = svc.docs.QueryApplicationDocuments(app.ID); err != nil {
		return Application{}, errors.Wrap(err, "querying documents")
	}
	if actor.IsStaff() {
		if app.Comments, err = svc.comments.QueryApplicationComments(app.ID); err != nil {
			return Application{}, errors.Wrap(err, "querying comments")
		}
	}
	return app, nil
}

// Remove hard-deletes an owned application; only drafts may be deleted.
func (svc *Service) Remove(id string, actor Actor) error {
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return err
	}
	if !app.IsOwnedBy(actor.ID) {
		return ErrForbidden
	}
	if _, err = app.Status.Transition(ActionDelete); err != nil {
		return err
	}
	return svc.repo.DeleteApplication(id)
}

// Filter is the staff-only paginated listing.
func (svc *Service) Filter(filter QueryFilter, actor Actor) (Page, error) {
	if !actor.IsStaff() {
		return Page{}, ErrForbidden
	}
	filter.Clean()

	apps, total, err := svc.repo.FilterApplications(filter)
	if err != nil {
		return Page{}, err
	}
	totalPages := total / filter.Limit
	if total%filter.Limit > 0 {
		totalPages++
	}
	return Page{
		Data:       apps,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// SetUnderReview marks a submitted application as being reviewed.
func (svc *Service) SetUnderReview(id string, actor Actor) (Application, error) {
	return svc.staffTransition(id, actor, ActionStartReview, EventUnderReview, "", nil)
}

// RequestCorrection sends the application back to the guardian with the given text.
func (svc *Service) RequestCorrection(id string, actor Actor, text string) (Application, error) {
	text = core.CleanString(text)
	if text == "" {
		return Application{}, core.NewValidationError(errors.New("correction text is required"),
			core.FieldError{Field: "correction_request", Error: "this field is required"})
	}
	return svc.staffTransition(id, actor, ActionRequestCorrection, EventCorrectionRequested, text,
		func(app *Application) {
			app.CorrectionRequest = null.StringFrom(text)
		})
}

// ScheduleCursillo books the entrance exam for grades that require it.
func (svc *Service) ScheduleCursillo(id string, actor Actor, date time.Time) (Application, error) {
	return svc.staffTransition(id, actor, ActionScheduleCursillo, EventCursilloScheduled,
		date.Format("2006-01-02"),
		func(app *Application) {
			app.CursilloDate = null.TimeFrom(date.UTC())
		})
}

// RecordCursilloResult records the entrance exam outcome.
func (svc *Service) RecordCursilloResult(id string, actor Actor, passed bool) (Application, error) {
	action, event := ActionPassCursillo, EventCursilloPassed
	if !passed {
		action, event = ActionFailCursillo, EventCursilloFailed
	}
	return svc.staffTransition(id, actor, action, event, "", nil)
}

// Approve accepts the application, with optional review notes.
func (svc *Service) Approve(id string, actor Actor, notes string) (Application, error) {
	return svc.staffTransition(id, actor, ActionApprove, EventApproved, "",
		func(app *Application) {
			app.ApprovedAt = null.TimeFrom(time.Now().UTC())
			if notes = core.CleanString(notes); notes != "" {
				app.ReviewNotes = null.StringFrom(notes)
			}
		})
}

// ValidatePayment confirms the matriculation fee was received.
func (svc *Service) ValidatePayment(id string, actor Actor) (Application, error) {
	return svc.staffTransition(id, actor, ActionValidatePayment, EventPaymentValidated, "", nil)
}

// Reject turns the application down with the given reason.
func (svc *Service) Reject(id string, actor Actor, reason string) (Application, error) {
	reason = core.CleanString(reason)
	if reason == "" {
		return Application{}, core.NewValidationError(errors.New("rejection reason is required"),
			core.FieldError{Field: "rejection_reason", Error: "this field is required"})
	}
	return svc.staffTransition(id, actor, ActionReject, EventRejected, reason,
		func(app *Application) {
			app.RejectionReason = null.StringFrom(reason)
		})
}

// staffTransition is the single entry point for staff status changes: it loads
// the application, consults the transition table, applies the mutation and
// emits the notification.
func (svc *Service) staffTransition(
	id string,
	actor Actor,
	action Action,
	event EventType,
	extra string,
	mutate func(*Application),
) (Application, error) {
	if !actor.IsStaff() {
		return Application{}, ErrForbidden
	}
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Application{}, err
	}
	next, err := app.Status.Transition(action)
	if err != nil {
		return Application{}, err
	}

	app.Status = next
	app.UpdatedAt = time.Now().UTC()
	if mutate != nil {
		mutate(&app)
	}
	app, err = svc.repo.UpdateApplication(app)
	if err != nil {
		return Application{}, err
	}

	svc.notify(app, event, extra)
	return app, nil
}

// AssignToDirectivo hands the application to a reviewer. No status change and
// no guardian notification.
func (svc *Service) AssignToDirectivo(id string, actor Actor, directivoID string) (Application, error) {
	if !actor.IsStaff() {
		return Application{}, ErrForbidden
	}
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Application{}, err
	}
	now := time.Now().UTC()
	app.AssignedToID = null.StringFrom(directivoID)
	app.AssignedAt = null.TimeFrom(now)
	app.UpdatedAt = now
	return svc.repo.UpdateApplication(app)
}

// AddComment appends an internal staff note.
func (svc *Service) AddComment(id string, actor Actor, text string) (Comment, error) {
	if !actor.IsStaff() {
		return Comment{}, ErrForbidden
	}
	text = core.CleanString(text)
	if text == "" {
		return Comment{}, core.NewValidationError(errors.New("comment text is required"),
			core.FieldError{Field: "comment", Error: "this field is required"})
	}
	if _, err := svc.repo.GetApplicationByID(id); err != nil {
		return Comment{}, err
	}
	return svc.comments.CreateComment(Comment{
		ID:            uuid.New().String(),
		ApplicationID: id,
		AuthorID:      actor.ID,
		AuthorName:    actor.Name,
		Text:          text,
		CreatedAt:     time.Now().UTC(),
	})
}

// AttachDocument records an uploaded file on an owned DRAFT or
// REQUIRES_CORRECTION application. A new document supersedes any prior one of
// the same type. File storage itself happens upstream; only the record lives here.
func (svc *Service) AttachDocument(id string, actor Actor, doc Document) (Document, error) {
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Document{}, err
	}
	if !app.IsOwnedBy(actor.ID) {
		return Document{}, ErrForbidden
	}
	if _, err = app.Status.Transition(ActionUpdate); err != nil {
		return Document{}, err
	}

	var known bool
	for _, typ := range RequiredDocumentTypes {
		if doc.Type == typ {
			known = true
			break
		}
	}
	if !known {
		return Document{}, core.NewValidationError(errors.New("unknown document type"),
			core.FieldError{Field: "document_type", Error: "unknown document type: " + string(doc.Type)})
	}
	if doc.FileName == "" || doc.FileURL == "" {
		return Document{}, core.NewValidationError(errors.New("file name and url are required"))
	}

	doc.ID = uuid.New().String()
	doc.ApplicationID = app.ID
	doc.UploadedAt = time.Now().UTC()
	return svc.docs.SaveDocument(doc)
}

// CheckQuota is the legacy availability check used while guardians author an
// application: a fixed 30-seat ceiling per (grade, shift) counting APPROVED
// applications only, independent of the configured quota table.
func (svc *Service) CheckQuota(gradeLevel, shift string) (QuotaCheck, error) {
	used, err := svc.repo.CountSeats(SeatQuery{
		GradeLevel: gradeLevel,
		Shift:      shift,
		Statuses:   []Status{StatusApproved},
	})
	if err != nil {
		return QuotaCheck{}, err
	}

	free := defaultParallelQuota - used
	tier := TierFull
	switch {
	case free > 5:
		tier = TierAvailable
	case free >= 1:
		tier = TierLimited
	}
	return QuotaCheck{
		GradeLevel:   gradeLevel,
		Shift:        shift,
		Limit:        defaultParallelQuota,
		Used:         used,
		Availability: tier,
	}, nil
}

// AvailableParallels lists the candidate parallels for an application with
// their live occupancy. Falls back to synthetic parallels A/B/C with the
// default ceiling when no quota rows are configured.
func (svc *Service) AvailableParallels(id string, actor Actor) ([]ParallelAvailability, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return nil, err
	}
	if app.GradeLevel == "" || app.Shift == "" {
		return nil, core.NewValidationError(errors.New("application has no grade level or shift set"))
	}

	quotas, err := svc.parallelQuotas(app)
	if err != nil {
		return nil, err
	}

	res := make([]ParallelAvailability, 0, len(quotas))
	for _, pq := range quotas {
		used, err := svc.repo.CountSeats(SeatQuery{
			GradeLevel: app.GradeLevel,
			Shift:      app.Shift,
			Specialty:  app.Specialty,
			Parallel:   pq.Parallel,
			Statuses:   SeatConsumingStatuses(),
		})
		if err != nil {
			return nil, err
		}
		avail := pq.TotalQuota - used
		if avail < 0 {
			avail = 0
		}
		res = append(res, ParallelAvailability{
			Parallel:   pq.Parallel,
			TotalQuota: pq.TotalQuota,
			Used:       used,
			Available:  avail,
		})
	}
	return res, nil
}

// AssignParallel matriculates an APPROVED or PAYMENT_VALIDATED application
// into the given parallel, enforcing its capacity atomically.
func (svc *Service) AssignParallel(id, parallel string, actor Actor) (Application, error) {
	if !actor.IsStaff() {
		return Application{}, ErrForbidden
	}
	app, err := svc.repo.GetApplicationByID(id)
	if err != nil {
		return Application{}, err
	}
	if _, err = app.Status.Transition(ActionMatriculate); err != nil {
		return Application{}, err
	}

	parallel = core.CleanString(parallel)
	quotas, err := svc.parallelQuotas(app)
	if err != nil {
		return Application{}, err
	}
	limit := defaultParallelQuota
	for _, pq := range quotas {
		if pq.Parallel == parallel {
			limit = pq.TotalQuota
			break
		}
	}

	app, err = svc.repo.Matriculate(id, parallel, limit, actor.ID)
	if err != nil {
		return Application{}, err
	}

	svc.notify(app, EventMatriculated, parallel)
	return app, nil
}

func (svc *Service) parallelQuotas(app Application) ([]ParallelQuota, error) {
	var quotas []ParallelQuota
	if svc.quotas != nil {
		var err error
		quotas, err = svc.quotas.ParallelQuotas(app.GradeLevel, app.Shift, app.Specialty)
		if err != nil {
			return nil, errors.Wrap(err, "looking up quotas")
		}
	}
	if len(quotas) == 0 {
		for _, p := range defaultParallels {
			quotas = append(quotas, ParallelQuota{Parallel: p, TotalQuota: defaultParallelQuota})
		}
	}
	return quotas, nil
}

// MyStats counts the guardian's own applications per status.
func (svc *Service) MyStats(actor Actor) (Stats, error) {
	return svc.stats(actor.ID)
}

// GlobalStats counts all applications per status; staff only.
func (svc *Service) GlobalStats(actor Actor) (Stats, error) {
	if !actor.IsStaff() {
		return Stats{}, ErrForbidden
	}
	return svc.stats("")
}

func (svc *Service) stats(ownerID string) (Stats, error) {
	counts, err := svc.repo.CountByStatus(ownerID)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{ByStatus: counts}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (svc *Service) notify(app Application, event EventType, extra string) {
	if svc.notifier == nil {
		return
	}
	svc.notifier.Notify(Notification{
		UserID:        app.UserID,
		ApplicationID: app.ID,
		StudentName:   app.StudentName(),
		Event:         event,
		Extra:         extra,
	})
}
