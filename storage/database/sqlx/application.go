package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core/admission"
)

// queryTimeout bounds every repository round trip.
const queryTimeout = 5 * time.Second

// maxTxAttempts bounds serializable transaction retries on contention.
const maxTxAttempts = 5

func queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), queryTimeout)
}

// pqErrCode extracts the postgres error code, if any.
func pqErrCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(errors.Cause(err), &pqErr) {
		return pqErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool { return pqErrCode(err) == "23505" }

func isSerializationFailure(err error) bool {
	code := pqErrCode(err)
	return code == "40001" || code == "40P01"
}

type applicationRow struct {
	ID                 string      `db:"id"`
	UserID             string      `db:"user_id"`
	Status             string      `db:"status"`
	StudentFirstName   string      `db:"student_first_name"`
	StudentLastName    string      `db:"student_last_name"`
	StudentCedula      string      `db:"student_cedula"`
	BirthDate          null.Time   `db:"birth_date"`
	Gender             string      `db:"gender"`
	Address            string      `db:"address"`
	BirthPlace         null.JSON   `db:"birth_place"`
	ParentData         null.JSON   `db:"parent_data"`
	RepresentativeData null.JSON   `db:"representative_data"`
	GradeLevel         string      `db:"grade_level"`
	Shift              string      `db:"shift"`
	Specialty          null.String `db:"specialty"`
	AssignedParallel   null.String `db:"assigned_parallel"`
	AssignedToID       null.String `db:"assigned_to_id"`
	AssignedAt         null.Time   `db:"assigned_at"`
	ProcessedByID      null.String `db:"processed_by_id"`
	ProcessedAt        null.Time   `db:"processed_at"`
	CorrectionRequest  null.String `db:"correction_request"`
	ReviewNotes        null.String `db:"review_notes"`
	RejectionReason    null.String `db:"rejection_reason"`
	CursilloDate       null.Time   `db:"cursillo_date"`
	ApprovedAt         null.Time   `db:"approved_at"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
	SubmittedAt        null.Time   `db:"submitted_at"`
}

const applicationInsertQuery = `
INSERT INTO application (
	id, user_id, status, student_first_name, student_last_name, student_cedula,
	birth_date, gender, address, birth_place, parent_data, representative_data,
	grade_level, shift, specialty, assigned_parallel, assigned_to_id, assigned_at,
	processed_by_id, processed_at, correction_request, review_notes, rejection_reason,
	cursillo_date, approved_at, created_at, updated_at, submitted_at
) VALUES (
	:id, :user_id, :status, :student_first_name, :student_last_name, :student_cedula,
	:birth_date, :gender, :address, :birth_place, :parent_data, :representative_data,
	:grade_level, :shift, :specialty, :assigned_parallel, :assigned_to_id, :assigned_at,
	:processed_by_id, :processed_at, :correction_request, :review_notes, :rejection_reason,
	:cursillo_date, :approved_at, :created_at, :updated_at, :submitted_at
)`

const applicationUpdateQuery = `
UPDATE application SET
	status = :status,
	student_first_name = :student_first_name,
	student_last_name = :student_last_name,
	student_cedula = :student_cedula,
	birth_date = :birth_date,
	gender = :gender,
	address = :address,
	birth_place = :birth_place,
	parent_data = :parent_data,
	representative_data = :representative_data,
	grade_level = :grade_level,
	shift = :shift,
	specialty = :specialty,
	assigned_parallel = :assigned_parallel,
	assigned_to_id = :assigned_to_id,
	assigned_at = :assigned_at,
	processed_by_id = :processed_by_id,
	processed_at = :processed_at,
	correction_request = :correction_request,
	review_notes = :review_notes,
	rejection_reason = :rejection_reason,
	cursillo_date = :cursillo_date,
	approved_at = :approved_at,
	updated_at = :updated_at,
	submitted_at = :submitted_at
WHERE id = :id`

func rowFromApplication(app admission.Application) applicationRow {
	return applicationRow{
		ID:                 app.ID,
		UserID:             app.UserID,
		Status:             string(app.Status),
		StudentFirstName:   app.StudentFirstName,
		StudentLastName:    app.StudentLastName,
		StudentCedula:      app.StudentCedula,
		BirthDate:          app.BirthDate,
		Gender:             app.Gender,
		Address:            app.Address,
		BirthPlace:         app.BirthPlace,
		ParentData:         app.ParentData,
		RepresentativeData: app.RepresentativeData,
		GradeLevel:         app.GradeLevel,
		Shift:              app.Shift,
		Specialty:          app.Specialty,
		AssignedParallel:   app.AssignedParallel,
		AssignedToID:       app.AssignedToID,
		AssignedAt:         app.AssignedAt,
		ProcessedByID:      app.ProcessedByID,
		ProcessedAt:        app.ProcessedAt,
		CorrectionRequest:  app.CorrectionRequest,
		ReviewNotes:        app.ReviewNotes,
		RejectionReason:    app.RejectionReason,
		CursilloDate:       app.CursilloDate,
		ApprovedAt:         app.ApprovedAt,
		CreatedAt:          app.CreatedAt.UTC(),
		UpdatedAt:          app.UpdatedAt.UTC(),
		SubmittedAt:        app.SubmittedAt,
	}
}

func (row applicationRow) application() admission.Application {
	return admission.Application{
		ID:                 row.ID,
		UserID:             row.UserID,
		Status:             admission.Status(row.Status),
		StudentFirstName:   row.StudentFirstName,
		StudentLastName:    row.StudentLastName,
		StudentCedula:      row.StudentCedula,
		BirthDate:          row.BirthDate,
		Gender:             row.Gender,
		Address:            row.Address,
		BirthPlace:         row.BirthPlace,
		ParentData:         row.ParentData,
		RepresentativeData: row.RepresentativeData,
		GradeLevel:         row.GradeLevel,
		Shift:              row.Shift,
		Specialty:          row.Specialty,
		AssignedParallel:   row.AssignedParallel,
		AssignedToID:       row.AssignedToID,
		AssignedAt:         row.AssignedAt,
		ProcessedByID:      row.ProcessedByID,
		ProcessedAt:        row.ProcessedAt,
		CorrectionRequest:  row.CorrectionRequest,
		ReviewNotes:        row.ReviewNotes,
		RejectionReason:    row.RejectionReason,
		CursilloDate:       row.CursilloDate,
		ApprovedAt:         row.ApprovedAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
		SubmittedAt:        row.SubmittedAt,
	}
}

func applicationsFromRows(rows []applicationRow) []admission.Application {
	apps := make([]admission.Application, 0, len(rows))
	for _, row := range rows {
		apps = append(apps, row.application())
	}
	return apps
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ admission.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) *applicationRepository {
	return &applicationRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to admission.ErrNotFound
func trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return admission.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *applicationRepository) CheckCedulaUniqueness(cedula string, excluded ...admission.Application) error {
	ctx, cancel := queryContext()
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM application WHERE student_cedula = ?`
	args := []interface{}{cedula}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, app := range excluded {
			ids = append(ids, app.ID)
		}
		query += ` AND id NOT IN (?)`
		var err error
		query, args, err = sqlx.In(query+`)`, args[0], ids)
		if err != nil {
			return errors.Wrap(err, "checking cedula uniqueness")
		}
	} else {
		query += `)`
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking cedula uniqueness")
	}
	if exists {
		return admission.ErrCedulaExists
	}
	return nil
}

func (repo *applicationRepository) CreateApplication(app admission.Application) (admission.Application, error) {
	ctx, cancel := queryContext()
	defer cancel()

	if _, err := repo.db.NamedExecContext(ctx, applicationInsertQuery, rowFromApplication(app)); err != nil {
		if isUniqueViolation(err) {
			return admission.Application{}, admission.ErrCedulaExists
		}
		return admission.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *applicationRepository) GetApplicationByID(id string) (admission.Application, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var row applicationRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM application WHERE id = $1`, id); err != nil {
		return admission.Application{}, trapNoRowsErr(err, "getting application")
	}
	return row.application(), nil
}

// filterWhere renders the AND of the set QueryFilter fields as a "?"-bound
// WHERE clause; callers Rebind before executing.
func filterWhere(filter admission.QueryFilter) (string, []interface{}, error) {
	where := make([]string, 0, 8)
	args := make([]interface{}, 0, 8)

	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, s := range filter.Status {
			statuses = append(statuses, string(s))
		}
		clause, inArgs, err := sqlx.In(`status IN (?)`, statuses)
		if err != nil {
			return "", nil, err
		}
		where = append(where, clause)
		args = append(args, inArgs...)
	}
	if filter.GradeLevel != "" {
		where = append(where, `grade_level = ?`)
		args = append(args, filter.GradeLevel)
	}
	if filter.Specialty != "" {
		where = append(where, `specialty = ?`)
		args = append(args, filter.Specialty)
	}
	if filter.Shift != "" {
		where = append(where, `lower(shift) = lower(?)`)
		args = append(args, filter.Shift)
	}
	if filter.AssignedToID != "" {
		where = append(where, `assigned_to_id = ?`)
		args = append(args, filter.AssignedToID)
	}
	if filter.ProcessedByID != "" {
		where = append(where, `processed_by_id = ?`)
		args = append(args, filter.ProcessedByID)
	}
	switch filter.AssignedParallel {
	case "":
	case admission.ParallelNone:
		where = append(where, `assigned_parallel IS NULL`)
	default:
		where = append(where, `assigned_parallel = ?`)
		args = append(args, filter.AssignedParallel)
	}
	if !filter.SubmittedFrom.IsZero() {
		where = append(where, `submitted_at >= ?`)
		args = append(args, filter.SubmittedFrom)
	}
	if !filter.SubmittedTo.IsZero() {
		where = append(where, `submitted_at <= ?`)
		args = append(args, filter.SubmittedTo)
	}
	if filter.Search != "" {
		where = append(where, `(student_first_name ILIKE ? OR student_last_name ILIKE ? OR student_cedula ILIKE ?)`)
		like := "%" + filter.Search + "%"
		args = append(args, like, like, like)
	}

	if len(where) == 0 {
		return "", args, nil
	}
	return ` WHERE ` + strings.Join(where, " AND "), args, nil
}

func (repo *applicationRepository) FilterApplications(filter admission.QueryFilter) ([]admission.Application, int, error) {
	ctx, cancel := queryContext()
	defer cancel()

	where, args, err := filterWhere(filter)
	if err != nil {
		return nil, 0, errors.Wrap(err, "filtering applications")
	}

	var total int
	countQuery := repo.db.Rebind(`SELECT count(*) FROM application` + where)
	if err = repo.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting applications")
	}

	query := repo.db.Rebind(`SELECT * FROM application` + where + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	var rows []applicationRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "filtering applications")
	}
	return applicationsFromRows(rows), total, nil
}

func (repo *applicationRepository) QueryAdmittedApplications() ([]admission.Application, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var rows []applicationRow
	query := `SELECT * FROM application WHERE status = $1 ORDER BY student_last_name, student_first_name`
	if err := repo.db.SelectContext(ctx, &rows, query, string(admission.StatusApproved)); err != nil {
		return nil, errors.Wrap(err, "querying admitted applications")
	}
	return applicationsFromRows(rows), nil
}

func (repo *applicationRepository) UpdateApplication(app admission.Application) (admission.Application, error) {
	ctx, cancel := queryContext()
	defer cancel()

	res, err := repo.db.NamedExecContext(ctx, applicationUpdateQuery, rowFromApplication(app))
	if err != nil {
		if isUniqueViolation(err) {
			return admission.Application{}, admission.ErrCedulaExists
		}
		return admission.Application{}, errors.Wrap(err, "updating application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admission.Application{}, admission.ErrNotFound
	}
	return app, nil
}

func (repo *applicationRepository) DeleteApplication(id string) error {
	ctx, cancel := queryContext()
	defer cancel()

	res, err := repo.db.ExecContext(ctx, `DELETE FROM application WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admission.ErrNotFound
	}
	return nil
}

func (repo *applicationRepository) CountByStatus(ownerID string) (map[admission.Status]int, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query := `SELECT status, count(*) AS count FROM application`
	args := make([]interface{}, 0, 1)
	if ownerID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, ownerID)
	}
	query += ` GROUP BY status`

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "counting applications by status")
	}

	counts := make(map[admission.Status]int, len(rows))
	for _, row := range rows {
		counts[admission.Status(row.Status)] = row.Count
	}
	return counts, nil
}

func seatWhere(q admission.SeatQuery) (string, []interface{}, error) {
	statuses := make([]string, 0, len(q.Statuses))
	for _, s := range q.Statuses {
		statuses = append(statuses, string(s))
	}
	query, args, err := sqlx.In(`SELECT count(*) FROM application WHERE status IN (?)`, statuses)
	if err != nil {
		return "", nil, err
	}

	query += ` AND grade_level = ? AND lower(shift) = lower(?)`
	args = append(args, q.GradeLevel, q.Shift)
	if q.Specialty.Valid {
		query += ` AND specialty = ?`
		args = append(args, q.Specialty.String)
	}
	switch q.Parallel {
	case "":
	case admission.ParallelNone:
		query += ` AND assigned_parallel IS NULL`
	default:
		query += ` AND assigned_parallel = ?`
		args = append(args, q.Parallel)
	}
	return query, args, nil
}

func (repo *applicationRepository) CountSeats(q admission.SeatQuery) (int, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query, args, err := seatWhere(q)
	if err != nil {
		return 0, errors.Wrap(err, "counting seats")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, repo.db.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "counting seats")
	}
	return count, nil
}

// Matriculate runs the count-check-write sequence in a SERIALIZABLE
// transaction and retries on serialization failures, so two concurrent
// assignments cannot both take the last seat of a parallel.
func (repo *applicationRepository) Matriculate(id, parallel string, limit int, staffID string) (admission.Application, error) {
	var (
		app admission.Application
		err error
	)
	for attempts := 1; attempts <= maxTxAttempts; attempts++ {
		app, err = repo.matriculateTx(id, parallel, limit, staffID)
		if err != nil && isSerializationFailure(err) {
			continue
		}
		return app, err
	}
	return admission.Application{}, errors.Wrap(err, "assigning parallel: retries exhausted")
}

func (repo *applicationRepository) matriculateTx(id, parallel string, limit int, staffID string) (admission.Application, error) {
	ctx, cancel := queryContext()
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return admission.Application{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row applicationRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM application WHERE id = $1`, id); err != nil {
		return admission.Application{}, trapNoRowsErr(err, "getting application")
	}
	app := row.application()

	if _, err = app.Status.Transition(admission.ActionMatriculate); err != nil {
		return admission.Application{}, err
	}

	query, args, err := seatWhere(admission.SeatQuery{
		GradeLevel: app.GradeLevel,
		Shift:      app.Shift,
		Specialty:  app.Specialty,
		Parallel:   parallel,
		Statuses:   admission.SeatConsumingStatuses(),
	})
	if err != nil {
		return admission.Application{}, errors.Wrap(err, "counting seats")
	}
	var used int
	if err = tx.GetContext(ctx, &used, tx.Rebind(query), args...); err != nil {
		return admission.Application{}, errors.Wrap(err, "counting seats")
	}
	if used >= limit {
		return admission.Application{}, &admission.CapacityError{Parallel: parallel, Available: 0}
	}

	updated := app.WithAssignment(parallel, staffID)
	if _, err = tx.NamedExecContext(ctx, applicationUpdateQuery, rowFromApplication(updated)); err != nil {
		return admission.Application{}, errors.Wrap(err, "updating application")
	}
	if err = tx.Commit(); err != nil {
		return admission.Application{}, errors.Wrap(err, "committing transaction")
	}
	return updated, nil
}
