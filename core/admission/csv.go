package admission

import (
	"bytes"
	"encoding/json"
	"strings"
)

// csvHeader is fixed: the secretaria's spreadsheet imports match on these
// exact column names.
var csvHeader = []string{
	"Cedula Estudiante",
	"Apellidos",
	"Nombres",
	"Grado",
	"Jornada",
	"Email Apoderado",
	"Telefono",
	"Fecha Aprobacion",
}

// ExportAdmittedCSV serializes all APPROVED applications, sorted by student
// last name, as CSV. Every field is double-quoted with inner quotes doubled.
func (svc *Service) ExportAdmittedCSV(actor Actor) ([]byte, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	apps, err := svc.repo.QueryAdmittedApplications()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writeCSVRow(&buf, csvHeader)
	for _, app := range apps {
		email, phone := representativeContact(app)
		var approved string
		if app.ApprovedAt.Valid {
			approved = app.ApprovedAt.Time.Format("2006-01-02")
		}
		writeCSVRow(&buf, []string{
			app.StudentCedula,
			app.StudentLastName,
			app.StudentFirstName,
			app.GradeLevel,
			app.Shift,
			email,
			phone,
			approved,
		})
	}
	return buf.Bytes(), nil
}

func writeCSVRow(buf *bytes.Buffer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('"')
		buf.WriteString(strings.ReplaceAll(f, `"`, `""`))
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
}

// representativeContact digs the guardian's contact info out of the
// representative data blob.
func representativeContact(app Application) (email, phone string) {
	if !app.RepresentativeData.Valid {
		return
	}
	var data map[string]interface{}
	if err := json.Unmarshal(app.RepresentativeData.JSON, &data); err != nil {
		return
	}
	if v, ok := data["email"].(string); ok {
		email = v
	}
	if v, ok := data["telefono"].(string); ok {
		phone = v
	}
	return
}
