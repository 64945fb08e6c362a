package quota

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core/admission"
)

var (
	// errors
	ErrNotFound    = errors.New("quota not found")
	ErrQuotaExists = errors.New("a quota for this level, parallel, shift and specialty already exists")
)

type (
	Repository interface {
		// CheckTupleUniqueness returns ErrQuotaExists if another row (excluded
		// ones aside) already covers the same
		// (level, parallel, shift, specialty, academic year).
		CheckTupleUniqueness(q Quota, excluded ...Quota) error
		CreateQuota(q Quota) (Quota, error)
		QueryAllQuotas() ([]Quota, error)
		GetQuotaByID(id string) (Quota, error)
		// FindQuotas matches level exactly and shift case-insensitively;
		// specialty must match when valid.
		FindQuotas(level, shift string, specialty null.String) ([]Quota, error)
		UpdateQuota(q Quota) (Quota, error)
		DeleteQuota(id string) error
	}

	// SeatLedger counts derived seat occupancy from the applications store.
	SeatLedger interface {
		CountSeats(q admission.SeatQuery) (int, error)
	}

	Service struct {
		repo     Repository
		ledger   SeatLedger
		year     string
		validate *validator.Validate
	}
)

// NewService builds the allocator for one academic year; the year comes from
// configuration, never from a package literal.
func NewService(repo Repository, ledger SeatLedger, academicYear string, validate *validator.Validate) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		year:     academicYear,
		validate: validate,
	}
}

// Create inserts a quota row; admin only.
func (svc *Service) Create(nq NewQuota, actor admission.Actor) (Quota, error) {
	if !actor.IsAdmin() {
		return Quota{}, admission.ErrForbidden
	}
	if err := nq.Validate(svc.validate); err != nil {
		return Quota{}, err
	}
	if nq.AcademicYear == "" {
		nq.AcademicYear = svc.year
	}

	now := time.Now().UTC()
	q := Quota{
		ID:           uuid.New().String(),
		Level:        nq.Level,
		Parallel:     nq.Parallel,
		Shift:        nq.Shift,
		Specialty:    null.NewString(nq.Specialty, nq.Specialty != ""),
		AcademicYear: nq.AcademicYear,
		TotalQuota:   nq.TotalQuota,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := svc.repo.CheckTupleUniqueness(q); err != nil {
		return Quota{}, err
	}
	return svc.repo.CreateQuota(q)
}

// All returns every quota row annotated with live occupancy; staff only.
func (svc *Service) All(actor admission.Actor) ([]QuotaStatus, error) {
	if !actor.IsStaff() {
		return nil, admission.ErrForbidden
	}
	rows, err := svc.repo.QueryAllQuotas()
	if err != nil {
		return nil, err
	}

	res := make([]QuotaStatus, 0, len(rows))
	for _, q := range rows {
		occupied, err := svc.ledger.CountSeats(admission.SeatQuery{
			GradeLevel: q.Level,
			Shift:      q.Shift,
			Specialty:  q.Specialty,
			Parallel:   q.Parallel,
			Statuses:   admission.SeatConsumingStatuses(),
		})
		if err != nil {
			return nil, errors.Wrap(err, "counting occupancy")
		}

		avail := q.TotalQuota - occupied
		if avail < 0 {
			avail = 0
		}
		var pct float64
		if q.TotalQuota > 0 {
			pct = float64(occupied) / float64(q.TotalQuota) * 100
		}
		res = append(res, QuotaStatus{
			Quota:               q,
			OccupiedQuota:       occupied,
			AvailableQuota:      avail,
			OccupancyPercentage: pct,
		})
	}
	return res, nil
}

// Update changes a row's total seats; admin only. No recomputation is needed
// since occupancy is always derived live.
func (svc *Service) Update(id string, uq UpdateQuota, actor admission.Actor) (Quota, error) {
	if !actor.IsAdmin() {
		return Quota{}, admission.ErrForbidden
	}
	if err := uq.Validate(svc.validate); err != nil {
		return Quota{}, err
	}
	q, err := svc.repo.GetQuotaByID(id)
	if err != nil {
		return Quota{}, err
	}
	q.TotalQuota = uq.TotalQuota
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuota(q)
}

// Remove deletes a row; admin only.
func (svc *Service) Remove(id string, actor admission.Actor) error {
	if !actor.IsAdmin() {
		return admission.ErrForbidden
	}
	if _, err := svc.repo.GetQuotaByID(id); err != nil {
		return err
	}
	return svc.repo.DeleteQuota(id)
}

// Seed bulk-inserts the curriculum-wide quota table for the configured
// academic year. Idempotent: rows whose tuple already exists are skipped.
// Returns the number of rows actually created.
func (svc *Service) Seed(actor admission.Actor) (int, error) {
	if !actor.IsAdmin() {
		return 0, admission.ErrForbidden
	}

	var created int
	for _, row := range seedRows() {
		now := time.Now().UTC()
		q := Quota{
			ID:           uuid.New().String(),
			Level:        row.level,
			Parallel:     row.parallel,
			Shift:        row.shift,
			Specialty:    null.NewString(row.specialty, row.specialty != ""),
			AcademicYear: svc.year,
			TotalQuota:   row.seats,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := svc.repo.CheckTupleUniqueness(q); err != nil {
			if errors.Cause(err) == ErrQuotaExists {
				continue
			}
			return created, err
		}
		if _, err := svc.repo.CreateQuota(q); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// CheckAvailability sums capacity across all rows matching (grade, shift,
// specialty) and subtracts the level-wide occupancy, regardless of parallel.
// Used before any parallel is assigned. No matching rows means zero capacity,
// not unlimited.
func (svc *Service) CheckAvailability(gradeLevel, shift, specialty string) (Availability, error) {
	spec := null.NewString(specialty, specialty != "")
	rows, err := svc.repo.FindQuotas(gradeLevel, shift, spec)
	if err != nil {
		return Availability{}, err
	}
	if len(rows) == 0 {
		return Availability{}, nil
	}

	var total int
	for _, q := range rows {
		total += q.TotalQuota
	}
	used, err := svc.ledger.CountSeats(admission.SeatQuery{
		GradeLevel: gradeLevel,
		Shift:      shift,
		Specialty:  spec,
		Statuses:   admission.SeatConsumingStatuses(),
	})
	if err != nil {
		return Availability{}, errors.Wrap(err, "counting occupancy")
	}

	remaining := total - used
	if remaining < 0 {
		remaining = 0
	}
	return Availability{
		Available:       remaining > 0,
		TotalQuotas:     total,
		UsedQuotas:      used,
		RemainingQuotas: remaining,
	}, nil
}

// ParallelQuotas exposes configured per-parallel capacities to the lifecycle
// manager (admission.QuotaDirectory).
func (svc *Service) ParallelQuotas(gradeLevel, shift string, specialty null.String) ([]admission.ParallelQuota, error) {
	rows, err := svc.repo.FindQuotas(gradeLevel, shift, specialty)
	if err != nil {
		return nil, err
	}
	res := make([]admission.ParallelQuota, 0, len(rows))
	for _, q := range rows {
		res = append(res, admission.ParallelQuota{Parallel: q.Parallel, TotalQuota: q.TotalQuota})
	}
	return res, nil
}
