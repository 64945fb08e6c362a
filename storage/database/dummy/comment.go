package dummydb

import "github.com/krodrigz/matricula/core/admission"

type commentRepository struct {
	db *applicationTable
}

func NewCommentRepository(db *DB) *commentRepository {
	return &commentRepository{db: db.applications}
}

func (r *commentRepository) CreateComment(c admission.Comment) (admission.Comment, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	// append-only; creation order is the audit order
	r.db.comments = append(r.db.comments, c)
	return c, nil
}

func (r *commentRepository) QueryApplicationComments(applicationID string) ([]admission.Comment, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]admission.Comment, 0)
	for _, c := range r.db.comments {
		if c.ApplicationID == applicationID {
			res = append(res, c)
		}
	}
	return res, nil
}
