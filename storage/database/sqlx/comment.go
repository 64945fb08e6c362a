package sqlxrepos

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/krodrigz/matricula/core/admission"
)

type commentRow struct {
	ID            string    `db:"id"`
	ApplicationID string    `db:"application_id"`
	AuthorID      string    `db:"author_id"`
	AuthorName    string    `db:"author_name"`
	Text          string    `db:"text"`
	CreatedAt     time.Time `db:"created_at"`
}

func (row commentRow) comment() admission.Comment {
	return admission.Comment{
		ID:            row.ID,
		ApplicationID: row.ApplicationID,
		AuthorID:      row.AuthorID,
		AuthorName:    row.AuthorName,
		Text:          row.Text,
		CreatedAt:     row.CreatedAt,
	}
}

type commentRepository struct {
	db *sqlx.DB
}

var _ admission.CommentRepository = (*commentRepository)(nil) // interface compliance check

func NewCommentRepository(db *sqlx.DB) *commentRepository {
	return &commentRepository{db: db}
}

func (repo *commentRepository) CreateComment(c admission.Comment) (admission.Comment, error) {
	ctx, cancel := queryContext()
	defer cancel()

	query := `
INSERT INTO application_comment (id, application_id, author_id, author_name, text, created_at)
VALUES (:id, :application_id, :author_id, :author_name, :text, :created_at)`

	row := commentRow{
		ID:            c.ID,
		ApplicationID: c.ApplicationID,
		AuthorID:      c.AuthorID,
		AuthorName:    c.AuthorName,
		Text:          c.Text,
		CreatedAt:     c.CreatedAt.UTC(),
	}
	if _, err := repo.db.NamedExecContext(ctx, query, row); err != nil {
		return admission.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return c, nil
}

func (repo *commentRepository) QueryApplicationComments(applicationID string) ([]admission.Comment, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var rows []commentRow
	query := `SELECT * FROM application_comment WHERE application_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, applicationID); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}

	comments := make([]admission.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.comment())
	}
	return comments, nil
}
