package sqlxrepos

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/krodrigz/matricula/core/admission"
)

type documentRow struct {
	ID            string    `db:"id"`
	ApplicationID string    `db:"application_id"`
	Type          string    `db:"document_type"`
	FileName      string    `db:"file_name"`
	FileURL       string    `db:"file_url"`
	MimeType      string    `db:"mime_type"`
	FileSize      int64     `db:"file_size"`
	UploadedAt    time.Time `db:"uploaded_at"`
}

func rowFromDocument(doc admission.Document) documentRow {
	return documentRow{
		ID:            doc.ID,
		ApplicationID: doc.ApplicationID,
		Type:          string(doc.Type),
		FileName:      doc.FileName,
		FileURL:       doc.FileURL,
		MimeType:      doc.MimeType,
		FileSize:      doc.FileSize,
		UploadedAt:    doc.UploadedAt.UTC(),
	}
}

func (row documentRow) document() admission.Document {
	return admission.Document{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		Type:          admission.DocumentType(row.Type),
		FileName:      row.FileName,
		FileURL:       row.FileURL,
		MimeType:      row.MimeType,
		FileSize:      row.FileSize,
		UploadedAt:    row.UploadedAt,
	}
}

type documentRepository struct {
	db *sqlx.DB
}

var _ admission.DocumentRepository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *sqlx.DB) *documentRepository {
	return &documentRepository{db: db}
}

// SaveDocument upserts on (application_id, document_type): re-uploading a
// document type replaces the previous file.
func (repo *documentRepository) SaveDocument(doc admission.Document) (admission.Document, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query := `
INSERT INTO application_document (id, application_id, document_type, file_name, file_url, mime_type, file_size, uploaded_at)
VALUES (:id, :application_id, :document_type, :file_name, :file_url, :mime_type, :file_size, :uploaded_at)
ON CONFLICT (application_id, document_type) DO UPDATE SET
	id = EXCLUDED.id,
	file_name = EXCLUDED.file_name,
	file_url = EXCLUDED.file_url,
	mime_type = EXCLUDED.mime_type,
	file_size = EXCLUDED.file_size,
	uploaded_at = EXCLUDED.uploaded_at`

	if _, err := repo.db.NamedExecContext(ctx, query, rowFromDocument(doc)); err != nil {
		return admission.Document{}, errors.Wrap(err, "saving document")
	}
	return doc, nil
}

func (repo *documentRepository) QueryApplicationDocuments(applicationID string) ([]admission.Document, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var rows []documentRow
	query := `SELECT * FROM application_document WHERE application_id = $1 ORDER BY uploaded_at`
	if err := repo.db.SelectContext(ctx, &rows, query, applicationID); err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}

	docs := make([]admission.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.document())
	}
	return docs, nil
}

func (repo *documentRepository) DeleteDocument(id string) error {
	ctx, cancel := queryContext()
	defer cancel()

	res, err := repo.db.ExecContext(ctx, `DELETE FROM application_document WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting document")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admission.ErrNotFound
	}
	return nil
}
