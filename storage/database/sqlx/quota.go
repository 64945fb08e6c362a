package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core/quota"
)

type quotaRow struct {
	ID           string      `db:"id"`
	Level        string      `db:"level"`
	Parallel     string      `db:"parallel"`
	Shift        string      `db:"shift"`
	Specialty    null.String `db:"specialty"`
	AcademicYear string      `db:"academic_year"`
	TotalQuota   int         `db:"total_quota"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
}

func rowFromQuota(q quota.Quota) quotaRow {
	return quotaRow{
		ID:           q.ID,
		Level:        q.Level,
		Parallel:     q.Parallel,
		Shift:        q.Shift,
		Specialty:    q.Specialty,
		AcademicYear: q.AcademicYear,
		TotalQuota:   q.TotalQuota,
		CreatedAt:    q.CreatedAt.UTC(),
		UpdatedAt:    q.UpdatedAt.UTC(),
	}
}

func (row quotaRow) quota() quota.Quota {
	return quota.Quota{
		ID:           row.ID,
		Level:        row.Level,
		Parallel:     row.Parallel,
		Shift:        row.Shift,
		Specialty:    row.Specialty,
		AcademicYear: row.AcademicYear,
		TotalQuota:   row.TotalQuota,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

func quotasFromRows(rows []quotaRow) []quota.Quota {
	quotas := make([]quota.Quota, 0, len(rows))
	for _, row := range rows {
		quotas = append(quotas, row.quota())
	}
	return quotas
}

type quotaRepository struct {
	db *sqlx.DB
}

var _ quota.Repository = (*quotaRepository)(nil) // interface compliance check

func NewQuotaRepository(db *sqlx.DB) *quotaRepository {
	return &quotaRepository{db: db}
}

func trapQuotaNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return quota.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *quotaRepository) CheckTupleUniqueness(q quota.Quota, excluded ...quota.Quota) error {
	ctx, cancel := queryContext()
	defer cancel()

	query := `
SELECT EXISTS (
	SELECT 1 FROM admission_quota
	WHERE level = ? AND parallel = ? AND lower(shift) = lower(?)
	  AND COALESCE(specialty, '') = ? AND academic_year = ?`
	args := []interface{}{q.Level, q.Parallel, q.Shift, q.Specialty.String, q.AcademicYear}

	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, ex := range excluded {
			ids = append(ids, ex.ID)
		}
		var err error
		query, args, err = sqlx.In(query+` AND id NOT IN (?))`, append(args, ids)...)
		if err != nil {
			return errors.Wrap(err, "checking quota uniqueness")
		}
	} else {
		query += `)`
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking quota uniqueness")
	}
	if exists {
		return quota.ErrQuotaExists
	}
	return nil
}

func (repo *quotaRepository) CreateQuota(q quota.Quota) (quota.Quota, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query := `
INSERT INTO admission_quota (id, level, parallel, shift, specialty, academic_year, total_quota, created_at, updated_at)
VALUES (:id, :level, :parallel, :shift, :specialty, :academic_year, :total_quota, :created_at, :updated_at)`

	if _, err := repo.db.NamedExecContext(ctx, query, rowFromQuota(q)); err != nil {
		if isUniqueViolation(err) {
			return quota.Quota{}, quota.ErrQuotaExists
		}
		return quota.Quota{}, errors.Wrap(err, "inserting quota")
	}
	return q, nil
}

func (repo *quotaRepository) QueryAllQuotas() ([]quota.Quota, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var rows []quotaRow
	query := `SELECT * FROM admission_quota ORDER BY level, shift, parallel`
	if err := repo.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying quotas")
	}
	return quotasFromRows(rows), nil
}

func (repo *quotaRepository) GetQuotaByID(id string) (quota.Quota, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var row quotaRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM admission_quota WHERE id = $1`, id); err != nil {
		return quota.Quota{}, trapQuotaNoRowsErr(err, "getting quota")
	}
	return row.quota(), nil
}

func (repo *quotaRepository) FindQuotas(level, shift string, specialty null.String) ([]quota.Quota, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query := `SELECT * FROM admission_quota WHERE level = $1 AND lower(shift) = lower($2)`
	args := []interface{}{level, shift}
	if specialty.Valid {
		query += ` AND specialty = $3`
		args = append(args, specialty.String)
	} else {
		query += ` AND specialty IS NULL`
	}
	query += ` ORDER BY parallel`

	var rows []quotaRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "finding quotas")
	}
	return quotasFromRows(rows), nil
}

func (repo *quotaRepository) UpdateQuota(q quota.Quota) (quota.Quota, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query := `
UPDATE admission_quota SET
	level = :level,
	parallel = :parallel,
	shift = :shift,
	specialty = :specialty,
	academic_year = :academic_year,
	total_quota = :total_quota,
	updated_at = :updated_at
WHERE id = :id`

	res, err := repo.db.NamedExecContext(ctx, query, rowFromQuota(q))
	if err != nil {
		if isUniqueViolation(err) {
			return quota.Quota{}, quota.ErrQuotaExists
		}
		return quota.Quota{}, errors.Wrap(err, "updating quota")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quota.Quota{}, quota.ErrNotFound
	}
	return q, nil
}

func (repo *quotaRepository) DeleteQuota(id string) error {
	ctx, cancel := queryContext()
	defer cancel()

	res, err := repo.db.ExecContext(ctx, `DELETE FROM admission_quota WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting quota")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quota.ErrNotFound
	}
	return nil
}
