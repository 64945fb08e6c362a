package quota

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core"
)

// Quota is one configured capacity row:
// (level, parallel, shift, specialty?, academic year) -> total seats.
// Occupancy is never stored; it is derived from application counts on read.
type Quota struct {
	ID           string      `json:"id"`
	Level        string      `json:"level"`
	Parallel     string      `json:"parallel"`
	Shift        string      `json:"shift"`
	Specialty    null.String `json:"specialty"` // null for non-specialized levels
	AcademicYear string      `json:"academic_year"`
	TotalQuota   int         `json:"total_quota"`
	CreatedAt    time.Time   `json:"created_at"` // UTC
	UpdatedAt    time.Time   `json:"updated_at"` // UTC
}

// NewQuota contains information needed to create a new Quota.
type NewQuota struct {
	Level        string `json:"level" validate:"required"`
	Parallel     string `json:"parallel" validate:"required"`
	Shift        string `json:"shift" validate:"required,shift"`
	Specialty    string `json:"specialty"`
	AcademicYear string `json:"academic_year"` // defaults to the configured year
	TotalQuota   int    `json:"total_quota" validate:"required,min=1"`
}

func (nq *NewQuota) Validate(validate *validator.Validate) error {
	nq.Level = core.CleanString(nq.Level)
	nq.Parallel = core.CleanString(nq.Parallel)
	nq.Shift = core.CleanString(nq.Shift)
	nq.Specialty = core.CleanString(nq.Specialty)
	nq.AcademicYear = core.CleanString(nq.AcademicYear)
	return validate.Struct(nq)
}

// UpdateQuota defines what may be modified on an existing Quota.
type UpdateQuota struct {
	TotalQuota int `json:"total_quota" validate:"required,min=1"`
}

func (uq UpdateQuota) Validate(validate *validator.Validate) error {
	return validate.Struct(uq)
}

// QuotaStatus is a Quota annotated with its live occupancy.
type QuotaStatus struct {
	Quota
	OccupiedQuota       int     `json:"occupied_quota"`
	AvailableQuota      int     `json:"available_quota"`
	OccupancyPercentage float64 `json:"occupancy_percentage"`
}

// Availability is the level-scoped (pre-assignment) capacity summary for a
// (grade, shift, specialty).
type Availability struct {
	Available       bool `json:"available"`
	TotalQuotas     int  `json:"total_quotas"`
	UsedQuotas      int  `json:"used_quotas"`
	RemainingQuotas int  `json:"remaining_quotas"`
}
