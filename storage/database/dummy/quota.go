package dummydb

import (
	"sort"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core/quota"
)

type quotaRepository struct {
	db *quotaTable
}

func NewQuotaRepository(db *DB) *quotaRepository {
	return &quotaRepository{db: db.quotas}
}

func (r *quotaRepository) query() []quota.Quota {
	res := make([]quota.Quota, 0, len(r.db.t))
	for _, q := range r.db.t {
		res = append(res, *q)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Level != res[j].Level {
			return res[i].Level < res[j].Level
		}
		if res[i].Shift != res[j].Shift {
			return res[i].Shift < res[j].Shift
		}
		return res[i].Parallel < res[j].Parallel
	})
	return res
}

func sameTuple(a, b quota.Quota) bool {
	return a.Level == b.Level &&
		a.Parallel == b.Parallel &&
		strings.EqualFold(a.Shift, b.Shift) &&
		a.Specialty.String == b.Specialty.String &&
		a.AcademicYear == b.AcademicYear
}

func (r *quotaRepository) CheckTupleUniqueness(q quota.Quota, excluded ...quota.Quota) error {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, row := range r.query() {
		var skip bool
		for _, ex := range excluded {
			if row.ID == ex.ID {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		if sameTuple(row, q) {
			return quota.ErrQuotaExists
		}
	}
	return nil
}

func (r *quotaRepository) CreateQuota(q quota.Quota) (quota.Quota, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.t[q.ID] = &q
	return q, nil
}

func (r *quotaRepository) QueryAllQuotas() ([]quota.Quota, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()
	return r.query(), nil
}

func (r *quotaRepository) GetQuotaByID(id string) (quota.Quota, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if q, ok := r.db.t[id]; ok {
		return *q, nil
	}
	return quota.Quota{}, quota.ErrNotFound
}

func (r *quotaRepository) FindQuotas(level, shift string, specialty null.String) ([]quota.Quota, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]quota.Quota, 0)
	for _, q := range r.query() {
		if q.Level != level || !strings.EqualFold(q.Shift, shift) {
			continue
		}
		if specialty.Valid {
			if !q.Specialty.Valid || q.Specialty.String != specialty.String {
				continue
			}
		} else if q.Specialty.Valid {
			continue
		}
		res = append(res, q)
	}
	return res, nil
}

func (r *quotaRepository) UpdateQuota(q quota.Quota) (quota.Quota, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[q.ID]; !ok {
		return quota.Quota{}, quota.ErrNotFound
	}
	r.db.t[q.ID] = &q
	return q, nil
}

func (r *quotaRepository) DeleteQuota(id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t[id]; !ok {
		return quota.ErrNotFound
	}
	delete(r.db.t, id)
	return nil
}
