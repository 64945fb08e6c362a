package quota_test

import (
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
	"github.com/krodrigz/matricula/core/quota"
	dummydb "github.com/krodrigz/matricula/storage/database/dummy"
	testutil "github.com/krodrigz/matricula/tests"
)

const academicYear = "2025-2026"

var (
	adminUser  = admission.Actor{ID: "admin-1", Name: "Carmen Rios", Roles: []string{admission.RoleAdmin}}
	secretaria = admission.Actor{ID: "staff-1", Name: "Maria Solis", Roles: []string{admission.RoleSecretary}}
	guardian   = admission.Actor{ID: "guardian-1", Name: "Luis Paredes", Roles: []string{admission.RoleGuardian}}
)

type fixture struct {
	svc  *quota.Service
	apps admission.Repository
}

func setup(t *testing.T) fixture {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	validate, _ := core.NewValidator()
	apps := dummydb.NewApplicationRepository(db)
	svc := quota.NewService(dummydb.NewQuotaRepository(db), apps, academicYear, validate)
	return fixture{svc: svc, apps: apps}
}

func mustCreate(t *testing.T, svc *quota.Service, nq quota.NewQuota) quota.Quota {
	t.Helper()
	q, err := svc.Create(nq, adminUser)
	if err != nil {
		t.Fatalf("Create(%+v) error = %v", nq, err)
	}
	return q
}

// matriculate seeds an application already assigned to a parallel, so it
// occupies a seat.
func matriculate(t *testing.T, apps admission.Repository, gradeLevel, shift, parallel, cedula string) {
	t.Helper()
	app := testutil.CreateApplication(t, apps, guardian.ID, admission.StatusApproved, gradeLevel, shift, cedula)
	if _, err := apps.Matriculate(app.ID, parallel, 100, "staff-1"); err != nil {
		t.Fatalf("Matriculate() failed: %v", err)
	}
}

func TestService_Create(t *testing.T) {
	fix := setup(t)
	nq := quota.NewQuota{Level: "8vo EGB", Parallel: "A", Shift: "Matutina", TotalQuota: 30}

	t.Run("admin only", func(t *testing.T) {
		if _, err := fix.svc.Create(nq, secretaria); err != admission.ErrForbidden {
			t.Errorf("Create() as secretaria error = %v, want ErrForbidden", err)
		}
	})

	t.Run("validation", func(t *testing.T) {
		bad := nq
		bad.TotalQuota = 0
		if _, err := fix.svc.Create(bad, adminUser); err == nil {
			t.Error("Create() with zero seats expected error")
		}
		bad = nq
		bad.Shift = "Nocturna"
		if _, err := fix.svc.Create(bad, adminUser); err == nil {
			t.Error("Create() with unknown shift expected error")
		}
	})

	t.Run("ok with year default", func(t *testing.T) {
		q := mustCreate(t, fix.svc, nq)
		if q.AcademicYear != academicYear {
			t.Errorf("AcademicYear = %q, want %q", q.AcademicYear, academicYear)
		}
		if q.Specialty.Valid {
			t.Error("Specialty set on a non-specialized level")
		}
		if q.ID == "" {
			t.Error("ID not set")
		}
	})

	t.Run("duplicate tuple", func(t *testing.T) {
		if _, err := fix.svc.Create(nq, adminUser); err != quota.ErrQuotaExists {
			t.Errorf("Create() duplicate error = %v, want ErrQuotaExists", err)
		}
		// shift comparison is case-insensitive
		dup := nq
		dup.Shift = "matutina"
		if _, err := fix.svc.Create(dup, adminUser); err != quota.ErrQuotaExists {
			t.Errorf("Create() case-variant duplicate error = %v, want ErrQuotaExists", err)
		}
		// a different specialty is a different tuple
		other := nq
		other.Level = "1ro BGU"
		other.Specialty = "Ciencias"
		mustCreate(t, fix.svc, other)
	})
}

func TestService_All(t *testing.T) {
	fix := setup(t)
	mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "A", Shift: "Matutina", TotalQuota: 2})
	mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "B", Shift: "Matutina", TotalQuota: 30})

	matriculate(t, fix.apps, "8vo EGB", "Matutina", "A", "0911111111")
	matriculate(t, fix.apps, "8vo EGB", "Matutina", "A", "0922222222")

	if _, err := fix.svc.All(guardian); err != admission.ErrForbidden {
		t.Fatalf("All() as guardian error = %v, want ErrForbidden", err)
	}

	rows, err := fix.svc.All(secretaria)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	a := rows[0]
	if a.Parallel != "A" || a.OccupiedQuota != 2 || a.AvailableQuota != 0 || a.OccupancyPercentage != 100 {
		t.Errorf("parallel A status = %+v", a)
	}
	b := rows[1]
	if b.Parallel != "B" || b.OccupiedQuota != 0 || b.AvailableQuota != 30 || b.OccupancyPercentage != 0 {
		t.Errorf("parallel B status = %+v", b)
	}
}

func TestService_Update(t *testing.T) {
	fix := setup(t)
	q := mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "A", Shift: "Matutina", TotalQuota: 30})

	if _, err := fix.svc.Update(q.ID, quota.UpdateQuota{TotalQuota: 25}, secretaria); err != admission.ErrForbidden {
		t.Errorf("Update() as secretaria error = %v, want ErrForbidden", err)
	}
	if _, err := fix.svc.Update(q.ID, quota.UpdateQuota{TotalQuota: 0}, adminUser); err == nil {
		t.Error("Update() with zero seats expected error")
	}
	if _, err := fix.svc.Update("nope", quota.UpdateQuota{TotalQuota: 25}, adminUser); err != quota.ErrNotFound {
		t.Errorf("Update() unknown id error = %v, want ErrNotFound", err)
	}

	got, err := fix.svc.Update(q.ID, quota.UpdateQuota{TotalQuota: 25}, adminUser)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.TotalQuota != 25 {
		t.Errorf("TotalQuota = %d, want 25", got.TotalQuota)
	}
	if got.Level != q.Level || got.Parallel != q.Parallel {
		t.Errorf("tuple changed: %+v", got)
	}
}

func TestService_Remove(t *testing.T) {
	fix := setup(t)
	q := mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "A", Shift: "Matutina", TotalQuota: 30})

	if err := fix.svc.Remove(q.ID, secretaria); err != admission.ErrForbidden {
		t.Errorf("Remove() as secretaria error = %v, want ErrForbidden", err)
	}
	if err := fix.svc.Remove("nope", adminUser); err != quota.ErrNotFound {
		t.Errorf("Remove() unknown id error = %v, want ErrNotFound", err)
	}
	if err := fix.svc.Remove(q.ID, adminUser); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	rows, err := fix.svc.All(adminUser)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows after removal", len(rows))
	}
}

func TestService_Seed(t *testing.T) {
	fix := setup(t)

	if _, err := fix.svc.Seed(secretaria); err != admission.ErrForbidden {
		t.Fatalf("Seed() as secretaria error = %v, want ErrForbidden", err)
	}

	// pre-existing row is skipped, not duplicated
	mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "A", Shift: "Matutina", TotalQuota: 40})

	// 12 EGB levels x 2 shifts x 2 parallels + 3 BGU levels x 3 specialties
	// x 2 parallels = 66, minus the one above
	created, err := fix.svc.Seed(adminUser)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if created != 65 {
		t.Errorf("Seed() created = %d, want 65", created)
	}

	rows, err := fix.svc.All(adminUser)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(rows) != 66 {
		t.Errorf("got %d rows, want 66", len(rows))
	}

	// second run is a no-op
	if created, err = fix.svc.Seed(adminUser); err != nil {
		t.Fatalf("Seed() again error = %v", err)
	}
	if created != 0 {
		t.Errorf("Seed() again created = %d, want 0", created)
	}
}

func TestService_CheckAvailability(t *testing.T) {
	fix := setup(t)

	t.Run("no configured rows means no capacity", func(t *testing.T) {
		got, err := fix.svc.CheckAvailability("8vo EGB", "Matutina", "")
		if err != nil {
			t.Fatalf("CheckAvailability() error = %v", err)
		}
		if got.Available || got.TotalQuotas != 0 {
			t.Errorf("availability = %+v", got)
		}
	})

	mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "A", Shift: "Matutina", TotalQuota: 2})
	mustCreate(t, fix.svc, quota.NewQuota{Level: "8vo EGB", Parallel: "B", Shift: "Matutina", TotalQuota: 1})

	t.Run("sums parallels level-wide", func(t *testing.T) {
		matriculate(t, fix.apps, "8vo EGB", "Matutina", "A", "0911111111")

		got, err := fix.svc.CheckAvailability("8vo EGB", "Matutina", "")
		if err != nil {
			t.Fatalf("CheckAvailability() error = %v", err)
		}
		want := quota.Availability{Available: true, TotalQuotas: 3, UsedQuotas: 1, RemainingQuotas: 2}
		if got != want {
			t.Errorf("availability = %+v, want %+v", got, want)
		}
	})

	t.Run("approved but unassigned applications count too", func(t *testing.T) {
		testutil.CreateApplication(t, fix.apps, guardian.ID, admission.StatusApproved, "8vo EGB", "Matutina", "0922222222")
		testutil.CreateApplication(t, fix.apps, guardian.ID, admission.StatusPaymentValidated, "8vo EGB", "Matutina", "0933333333")

		got, err := fix.svc.CheckAvailability("8vo EGB", "Matutina", "")
		if err != nil {
			t.Fatalf("CheckAvailability() error = %v", err)
		}
		if got.UsedQuotas != 3 || got.RemainingQuotas != 0 || got.Available {
			t.Errorf("availability = %+v", got)
		}
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		testutil.CreateApplication(t, fix.apps, guardian.ID, admission.StatusApproved, "8vo EGB", "Matutina", "0944444444")

		got, err := fix.svc.CheckAvailability("8vo EGB", "Matutina", "")
		if err != nil {
			t.Fatalf("CheckAvailability() error = %v", err)
		}
		if got.UsedQuotas != 4 || got.RemainingQuotas != 0 {
			t.Errorf("availability = %+v", got)
		}
	})
}

func TestService_ParallelQuotas(t *testing.T) {
	fix := setup(t)
	mustCreate(t, fix.svc, quota.NewQuota{Level: "1ro BGU", Parallel: "A", Shift: "Matutina", Specialty: "Ciencias", TotalQuota: 35})
	mustCreate(t, fix.svc, quota.NewQuota{Level: "1ro BGU", Parallel: "B", Shift: "Matutina", Specialty: "Ciencias", TotalQuota: 35})
	mustCreate(t, fix.svc, quota.NewQuota{Level: "1ro BGU", Parallel: "A", Shift: "Matutina", Specialty: "Informática", TotalQuota: 20})

	// the directory contract, as the lifecycle manager consumes it
	var dir admission.QuotaDirectory = fix.svc

	quotas, err := dir.ParallelQuotas("1ro BGU", "matutina", null.StringFrom("Ciencias"))
	if err != nil {
		t.Fatalf("ParallelQuotas() error = %v", err)
	}
	if len(quotas) != 2 {
		t.Fatalf("got %d quotas, want 2", len(quotas))
	}
	if quotas[0].Parallel != "A" || quotas[0].TotalQuota != 35 {
		t.Errorf("quotas[0] = %+v", quotas[0])
	}

	quotas, err = dir.ParallelQuotas("1ro BGU", "Matutina", null.String{})
	if err != nil {
		t.Fatalf("ParallelQuotas() error = %v", err)
	}
	if len(quotas) != 0 {
		t.Errorf("got %d quotas without specialty, want 0", len(quotas))
	}
}
