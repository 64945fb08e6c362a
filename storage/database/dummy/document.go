package dummydb

import (
	"sort"

	"github.com/krodrigz/matricula/core/admission"
)

type documentRepository struct {
	db *applicationTable
}

func NewDocumentRepository(db *DB) *documentRepository {
	return &documentRepository{db: db.applications}
}

func (r *documentRepository) SaveDocument(doc admission.Document) (admission.Document, error) {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	// a new upload supersedes any prior document of the same type
	for id, existing := range r.db.docs {
		if existing.ApplicationID == doc.ApplicationID && existing.Type == doc.Type {
			delete(r.db.docs, id)
		}
	}
	r.db.docs[doc.ID] = &doc
	return doc, nil
}

func (r *documentRepository) QueryApplicationDocuments(applicationID string) ([]admission.Document, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	res := make([]admission.Document, 0)
	for _, doc := range r.db.docs {
		if doc.ApplicationID == applicationID {
			res = append(res, *doc)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UploadedAt.Before(res[j].UploadedAt) })
	return res, nil
}

func (r *documentRepository) DeleteDocument(id string) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.docs[id]; !ok {
		return admission.ErrNotFound
	}
	delete(r.db.docs, id)
	return nil
}
