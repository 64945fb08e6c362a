package dummydb

import (
	"sort"
	"strings"

	"github.com/krodrigz/matricula/core/admission"
)

type applicationRepository struct {
	db *applicationTable
}

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db.applications}
}

func (r *applicationRepository) query() []admission.Application {
	res := make([]admission.Application, 0, len(r.db.apps))
	for _, app := range r.db.apps {
		res = append(res, *app)
	}
	return res
}

func (r *applicationRepository) CheckCedulaUniqueness(cedula string, excluded ...admission.Application) error {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, app := range r.query() {
		if isExcluded(app, excluded) {
			continue
		}
		if app.StudentCedula == cedula {
			return admission.ErrCedulaExists
		}
	}
	return nil
}

func isExcluded(app admission.Application, excluded []admission.Application) bool {
	for _, ex := range excluded {
		if app.ID == ex.ID {
			return true
		}
	}
	return false
}

func (r *applicationRepository) CreateApplication(app admission.Application) (admission.Application, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.apps[app.ID] = &app
	return app, nil
}

func (r *applicationRepository) GetApplicationByID(id string) (admission.Application, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if app, ok := r.db.apps[id]; ok {
		return *app, nil
	}
	return admission.Application{}, admission.ErrNotFound
}

func (r *applicationRepository) FilterApplications(filter admission.QueryFilter) ([]admission.Application, int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	matches := make([]admission.Application, 0)
	for _, app := range r.query() {
		if matchesFilter(app, filter) {
			matches = append(matches, app)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	total := len(matches)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}
	return matches[start:end], total, nil
}

func matchesFilter(app admission.Application, filter admission.QueryFilter) bool {
	if len(filter.Status) > 0 {
		var ok bool
		for _, s := range filter.Status {
			if app.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if filter.GradeLevel != "" && app.GradeLevel != filter.GradeLevel {
		return false
	}
	if filter.Specialty != "" && app.Specialty.String != filter.Specialty {
		return false
	}
	if filter.Shift != "" && !strings.EqualFold(app.Shift, filter.Shift) {
		return false
	}
	if filter.AssignedToID != "" && app.AssignedToID.String != filter.AssignedToID {
		return false
	}
	if filter.ProcessedByID != "" && app.ProcessedByID.String != filter.ProcessedByID {
		return false
	}
	if filter.AssignedParallel != "" {
		if filter.AssignedParallel == admission.ParallelNone {
			if app.AssignedParallel.Valid {
				return false
			}
		} else if !app.AssignedParallel.Valid || app.AssignedParallel.String != filter.AssignedParallel {
			return false
		}
	}
	if !filter.SubmittedFrom.IsZero() {
		if !app.SubmittedAt.Valid || app.SubmittedAt.Time.Before(filter.SubmittedFrom) {
			return false
		}
	}
	if !filter.SubmittedTo.IsZero() {
		if !app.SubmittedAt.Valid || app.SubmittedAt.Time.After(filter.SubmittedTo) {
			return false
		}
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(app.StudentFirstName), search) &&
			!strings.Contains(strings.ToLower(app.StudentLastName), search) &&
			!strings.Contains(strings.ToLower(app.StudentCedula), search) {
			return false
		}
	}
	return true
}

func (r *applicationRepository) QueryAdmittedApplications() ([]admission.Application, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]admission.Application, 0)
	for _, app := range r.query() {
		if app.Status == admission.StatusApproved {
			res = append(res, app)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].StudentLastName < res[j].StudentLastName
	})
	return res, nil
}

func (r *applicationRepository) UpdateApplication(app admission.Application) (admission.Application, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.apps[app.ID]; !ok {
		return admission.Application{}, admission.ErrNotFound
	}
	r.db.apps[app.ID] = &app
	return app, nil
}

func (r *applicationRepository) DeleteApplication(id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.apps[id]; !ok {
		return admission.ErrNotFound
	}
	delete(r.db.apps, id)
	for docID, doc := range r.db.docs {
		if doc.ApplicationID == id {
			delete(r.db.docs, docID)
		}
	}
	return nil
}

func (r *applicationRepository) CountByStatus(ownerID string) (map[admission.Status]int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	counts := make(map[admission.Status]int)
	for _, app := range r.query() {
		if ownerID != "" && app.UserID != ownerID {
			continue
		}
		counts[app.Status]++
	}
	return counts, nil
}

func (r *applicationRepository) CountSeats(q admission.SeatQuery) (int, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.countSeats(q), nil
}

func (r *applicationRepository) countSeats(q admission.SeatQuery) int {
	var count int
	for _, app := range r.query() {
		if matchesSeatQuery(app, q) {
			count++
		}
	}
	return count
}

func matchesSeatQuery(app admission.Application, q admission.SeatQuery) bool {
	var statusOK bool
	for _, s := range q.Statuses {
		if app.Status == s {
			statusOK = true
			break
		}
	}
	if !statusOK {
		return false
	}
	if app.GradeLevel != q.GradeLevel || !strings.EqualFold(app.Shift, q.Shift) {
		return false
	}
	if q.Specialty.Valid && app.Specialty.String != q.Specialty.String {
		return false
	}
	switch q.Parallel {
	case "":
	case admission.ParallelNone:
		if app.AssignedParallel.Valid {
			return false
		}
	default:
		if !app.AssignedParallel.Valid || app.AssignedParallel.String != q.Parallel {
			return false
		}
	}
	return true
}

// Matriculate holds the write lock across the occupancy count and the status
// flip so concurrent assignments cannot oversell a parallel.
func (r *applicationRepository) Matriculate(id, parallel string, limit int, staffID string) (admission.Application, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	app, ok := r.db.apps[id]
	if !ok {
		return admission.Application{}, admission.ErrNotFound
	}
	if _, err := app.Status.Transition(admission.ActionMatriculate); err != nil {
		return admission.Application{}, err
	}

	used := r.countSeats(admission.SeatQuery{
		GradeLevel: app.GradeLevel,
		Shift:      app.Shift,
		Specialty:  app.Specialty,
		Parallel:   parallel,
		Statuses:   admission.SeatConsumingStatuses(),
	})
	if used >= limit {
		return admission.Application{}, &admission.CapacityError{Parallel: parallel, Available: 0}
	}

	updated := app.WithAssignment(parallel, staffID)
	r.db.apps[id] = &updated
	return updated, nil
}
