package admission_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core/admission"
	testutil "github.com/krodrigz/matricula/tests"
)

const csvHeaderLine = `"Cedula Estudiante","Apellidos","Nombres","Grado","Jornada","Email Apoderado","Telefono","Fecha Aprobacion"`

func TestService_ExportAdmittedCSV(t *testing.T) {
	fix := setup(t)

	t.Run("staff only", func(t *testing.T) {
		if _, err := fix.svc.ExportAdmittedCSV(guardian); err != admission.ErrForbidden {
			t.Errorf("ExportAdmittedCSV() error = %v, want ErrForbidden", err)
		}
	})

	t.Run("empty export is just the header", func(t *testing.T) {
		out, err := fix.svc.ExportAdmittedCSV(secretaria)
		if err != nil {
			t.Fatalf("ExportAdmittedCSV() error = %v", err)
		}
		if got := string(out); got != csvHeaderLine+"\n" {
			t.Errorf("export = %q", got)
		}
	})

	t.Run("rows", func(t *testing.T) {
		approved := time.Date(2025, 11, 3, 14, 30, 0, 0, time.UTC)

		// listed second: sorted by last name
		zu := testutil.CreateApplication(t, fix.repo, guardian.ID, admission.StatusApproved, "8VO", "Matutina", "0911111111")
		zu.StudentFirstName = "Diego"
		zu.StudentLastName = "Zurita"
		zu.ApprovedAt = null.TimeFrom(approved)
		if _, err := fix.repo.UpdateApplication(zu); err != nil {
			t.Fatalf("UpdateApplication() error = %v", err)
		}

		// quotes must be doubled, commas stay inside the quoted field; no
		// representative data, no approval date
		al := testutil.CreateApplication(t, fix.repo, guardian.ID, admission.StatusApproved, "1RO BGU", "Vespertina", "0922222222")
		al.StudentFirstName = `Maria "Mia"`
		al.StudentLastName = "Almeida, de la Torre"
		al.RepresentativeData = null.JSON{}
		if _, err := fix.repo.UpdateApplication(al); err != nil {
			t.Fatalf("UpdateApplication() error = %v", err)
		}

		// not APPROVED, must not appear
		testutil.CreateApplication(t, fix.repo, guardian.ID, admission.StatusMatriculated, "8VO", "Matutina", "0933333333")

		out, err := fix.svc.ExportAdmittedCSV(secretaria)
		if err != nil {
			t.Fatalf("ExportAdmittedCSV() error = %v", err)
		}

		want := strings.Join([]string{
			csvHeaderLine,
			`"0922222222","Almeida, de la Torre","Maria ""Mia""","1RO BGU","Vespertina","","",""`,
			`"0911111111","Zurita","Diego","8VO","Matutina","luis@test.ec","0991234567","2025-11-03"`,
		}, "\n") + "\n"
		if got := string(out); got != want {
			t.Errorf("export =\n%s\nwant:\n%s", got, want)
		}

		// a standard parser reproduces the original values
		records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
		if err != nil {
			t.Fatalf("parsing export: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("got %d records, want 3", len(records))
		}
		if records[1][1] != "Almeida, de la Torre" || records[1][2] != `Maria "Mia"` {
			t.Errorf("parsed row = %v", records[1])
		}
	})
}
