package admission

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core"
)

// Roles
const (
	RoleGuardian  = "apoderado"
	RoleSecretary = "secretaria"
	RoleDirectivo = "directivo"
	RoleAdmin     = "admin"
)

var StaffRoles = []string{RoleSecretary, RoleDirectivo, RoleAdmin}

// Actor is the pre-authenticated caller of an operation. Authentication itself
// happens upstream; the core only checks ownership and roles.
type Actor struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsStaff() bool {
	for _, r := range StaffRoles {
		if a.HasRole(r) {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool { return a.HasRole(RoleAdmin) }

// DocumentType is the closed set of required upload kinds.
type DocumentType string

const (
	DocStudentCedula        DocumentType = "CEDULA_ESTUDIANTE"
	DocRepresentativeCedula DocumentType = "CEDULA_REPRESENTANTE"
	DocStudentPhoto         DocumentType = "FOTO_ESTUDIANTE"
	DocGradeCertificate     DocumentType = "CERTIFICADO_NOTAS"
	DocUtilityBill          DocumentType = "PLANILLA_SERVICIO"
)

// RequiredDocumentTypes must all be present before an application can be submitted.
var RequiredDocumentTypes = []DocumentType{
	DocStudentCedula,
	DocRepresentativeCedula,
	DocStudentPhoto,
	DocGradeCertificate,
	DocUtilityBill,
}

type Document struct {
	ID            string       `json:"id"`
	ApplicationID string       `json:"application_id"`
	Type          DocumentType `json:"document_type"`
	FileName      string       `json:"file_name"`
	FileURL       string       `json:"file_url"`
	MimeType      string       `json:"mime_type"`
	FileSize      int64        `json:"file_size"`
	UploadedAt    time.Time    `json:"uploaded_at"` // UTC
}

// Comment is an internal staff note on an application. Append-only, ordered by
// creation time.
type Comment struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	Text          string    `json:"text"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type Application struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"` // owning guardian, immutable
	Status Status `json:"status"`

	StudentFirstName string    `json:"student_first_name"`
	StudentLastName  string    `json:"student_last_name"`
	StudentCedula    string    `json:"student_cedula"`
	BirthDate        null.Time `json:"birth_date"`
	Gender           string    `json:"gender"`
	Address          string    `json:"address"`

	// structured sub-objects, stored as opaque blobs
	BirthPlace         null.JSON `json:"birth_place"`
	ParentData         null.JSON `json:"parent_data"`
	RepresentativeData null.JSON `json:"representative_data"`

	GradeLevel string      `json:"grade_level"`
	Shift      string      `json:"shift"`
	Specialty  null.String `json:"specialty"`

	// AssignedParallel is non-null iff Status == MATRICULATED.
	AssignedParallel null.String `json:"assigned_parallel"`
	AssignedToID     null.String `json:"assigned_to_id"`
	AssignedAt       null.Time   `json:"assigned_at"`
	ProcessedByID    null.String `json:"processed_by_id"`
	ProcessedAt      null.Time   `json:"processed_at"`

	CorrectionRequest null.String `json:"correction_request"`
	ReviewNotes       null.String `json:"review_notes"`
	RejectionReason   null.String `json:"rejection_reason"`
	CursilloDate      null.Time   `json:"cursillo_date"`
	ApprovedAt        null.Time   `json:"approved_at"`

	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
	SubmittedAt null.Time `json:"submitted_at"`

	Documents []Document `json:"documents,omitempty"`
	Comments  []Comment  `json:"comments,omitempty"` // staff-only
}

func (app *Application) IsOwnedBy(userID string) bool { return app.UserID == userID }

func (app *Application) StudentName() string {
	return strings.TrimSpace(app.StudentFirstName + " " + app.StudentLastName)
}

// WithAssignment returns a copy matriculated into the given parallel. Applied
// by repositories inside their atomic capacity check.
func (app Application) WithAssignment(parallel, staffID string) Application {
	now := time.Now().UTC()
	app.Status = StatusMatriculated
	app.AssignedParallel = null.StringFrom(parallel)
	app.ProcessedByID = null.StringFrom(staffID)
	app.ProcessedAt = null.TimeFrom(now)
	app.UpdatedAt = now
	return app
}

// UpdateApplication defines what a guardian may modify while the application
// is in DRAFT or REQUIRES_CORRECTION. Empty fields are left untouched.
type UpdateApplication struct {
	StudentFirstName   string          `json:"student_first_name"`
	StudentLastName    string          `json:"student_last_name"`
	StudentCedula      string          `json:"student_cedula" validate:"omitempty,cedula"`
	BirthDate          string          `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Gender             string          `json:"gender"`
	Address            string          `json:"address"`
	BirthPlace         json.RawMessage `json:"birth_place"`
	ParentData         json.RawMessage `json:"parent_data"`
	RepresentativeData json.RawMessage `json:"representative_data"`
	GradeLevel         string          `json:"grade_level"`
	Shift              string          `json:"shift" validate:"omitempty,shift"`
	Specialty          string          `json:"specialty"`
}

func (ua *UpdateApplication) Validate(validate *validator.Validate) error {
	ua.StudentFirstName = core.CleanString(ua.StudentFirstName)
	ua.StudentLastName = core.CleanString(ua.StudentLastName)
	ua.StudentCedula = core.CleanString(ua.StudentCedula)
	ua.Gender = core.CleanString(ua.Gender)
	ua.Address = core.CleanString(ua.Address)
	ua.GradeLevel = core.CleanString(ua.GradeLevel)
	ua.Shift = core.CleanString(ua.Shift)
	ua.Specialty = core.CleanString(ua.Specialty)
	return validate.Struct(ua)
}

// ParallelNone is the QueryFilter.AssignedParallel sentinel matching
// applications with no parallel assigned.
const ParallelNone = "none"

type QueryFilter struct {
	Status           []Status  `query:"status"`
	GradeLevel       string    `query:"grade_level"`
	Specialty        string    `query:"specialty"`
	Shift            string    `query:"shift"`
	AssignedToID     string    `query:"assigned_to"`
	ProcessedByID    string    `query:"processed_by"`
	AssignedParallel string    `query:"parallel"`
	// bound by hand at the API layer; plain dates
	SubmittedFrom time.Time `query:"-"`
	SubmittedTo   time.Time `query:"-"`
	// Search does a case-insensitive substring match on one of the student's
	// first name, last name or cedula.
	Search string `query:"search"`
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
}

// Clean applies listing defaults: staff listings exclude drafts unless a
// status filter is given explicitly.
func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	if len(qf.Status) == 0 {
		for _, s := range AllStatuses {
			if s != StatusDraft {
				qf.Status = append(qf.Status, s)
			}
		}
	}
	if qf.Page < 1 {
		qf.Page = 1
	}
	if qf.Limit < 1 {
		qf.Limit = 20
	}
}

type Page struct {
	Data       []Application `json:"data"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	TotalPages int           `json:"total_pages"`
}

// Stats are plain per-status counts, scoped to one owner or global.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
}

// Availability tiers of the legacy per-(grade, shift) quota check.
const (
	TierAvailable = "AVAILABLE"
	TierLimited   = "LIMITED"
	TierFull      = "FULL"
)

// QuotaCheck is the result of the legacy fixed-ceiling availability check used
// during the application-authoring flow. It ignores the configured quota table.
type QuotaCheck struct {
	GradeLevel   string `json:"grade_level"`
	Shift        string `json:"shift"`
	Limit        int    `json:"limit"`
	Used         int    `json:"used"`
	Availability string `json:"availability"`
}

// ParallelAvailability is one candidate parallel for matriculation.
type ParallelAvailability struct {
	Parallel   string `json:"parallel"`
	TotalQuota int    `json:"total_quota"`
	Used       int    `json:"used"`
	Available  int    `json:"available"`
}
