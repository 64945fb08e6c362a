package admission

import (
	"github.com/pkg/errors"

	"github.com/krodrigz/matricula/core"
)

var errIncomplete = errors.New("application is incomplete")

// missingRequiredFields returns the json names of the fixed required-field set
// that are still empty. Checked at submission time only; drafts may hold
// anything.
func (app *Application) missingRequiredFields() []string {
	checks := []struct {
		name string
		ok   bool
	}{
		{"student_first_name", app.StudentFirstName != ""},
		{"student_last_name", app.StudentLastName != ""},
		{"student_cedula", app.StudentCedula != ""},
		{"birth_date", app.BirthDate.Valid},
		{"gender", app.Gender != ""},
		{"address", app.Address != ""},
		{"grade_level", app.GradeLevel != ""},
		{"shift", app.Shift != ""},
		{"representative_data", app.RepresentativeData.Valid},
	}

	var missing []string
	for _, c := range checks {
		if !c.ok {
			missing = append(missing, c.name)
		}
	}
	return missing
}

// checkSubmittable validates the required fields and the presence of all
// required document types. It reports every missing item, not just the first.
func checkSubmittable(app Application, docs []Document) error {
	var flds []core.FieldError
	for _, name := range app.missingRequiredFields() {
		flds = append(flds, core.FieldError{Field: name, Error: "this field is required"})
	}

	have := make(map[DocumentType]bool, len(docs))
	for _, doc := range docs {
		have[doc.Type] = true
	}
	for _, typ := range RequiredDocumentTypes {
		if !have[typ] {
			flds = append(flds, core.FieldError{Field: "documents", Error: "missing document: " + string(typ)})
		}
	}

	if len(flds) > 0 {
		return core.NewValidationError(errIncomplete, flds...)
	}
	return nil
}
