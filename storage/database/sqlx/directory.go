package sqlxrepos

import (
	"net/mail"

	"github.com/jmoiron/sqlx"

	"github.com/krodrigz/matricula/core/admission"
)

type guardianDirectory struct {
	db *sqlx.DB
}

// NewGuardianDirectory resolves a guardian's mailbox from the representative
// contact on their latest application; the identity provider owns accounts,
// but the contact data lives here.
func NewGuardianDirectory(db *sqlx.DB) *guardianDirectory {
	return &guardianDirectory{db: db}
}

func (d *guardianDirectory) LookupGuardian(userID string) (mail.Address, error) {
	ctx, cancel := queryContext()
	defer cancel()

	var contact struct {
		Email string `db:"email"`
		Name  string `db:"name"`
	}
	query := `
SELECT COALESCE(representative_data->>'email', '') AS email,
       COALESCE(representative_data->>'nombre', '') AS name
FROM application
WHERE user_id = $1 AND representative_data IS NOT NULL
ORDER BY updated_at DESC
LIMIT 1`

	if err := d.db.GetContext(ctx, &contact, query, userID); err != nil {
		return mail.Address{}, trapNoRowsErr(err, "looking up guardian")
	}
	if contact.Email == "" {
		return mail.Address{}, admission.ErrNotFound
	}
	return mail.Address{Name: contact.Name, Address: contact.Email}, nil
}
