package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/krodrigz/matricula/core"
	"github.com/krodrigz/matricula/core/admission"
)

// Config returns a self-contained configuration for tests; nothing is read
// from the environment.
func Config() *core.Config {
	return &core.Config{
		Env:          "TEST",
		TestMode:     true,
		AppName:      "Matricula",
		SecretKey:    "test-secret",
		AcademicYear: "2025-2026",
		Server:       core.ServerConfig{JWTExpirationDelta: time.Hour},
	}
}

// CreateApplication seeds a submittable application in the given status.
func CreateApplication(
	t *testing.T,
	repo admission.Repository,
	ownerID string,
	status admission.Status,
	gradeLevel, shift, cedula string,
) admission.Application {
	t.Helper()

	now := time.Now().UTC()
	app := admission.Application{
		ID:               uuid.New().String(),
		UserID:           ownerID,
		Status:           status,
		StudentFirstName: "Ana",
		StudentLastName:  "Paredes",
		StudentCedula:    cedula,
		BirthDate:        null.TimeFrom(now.AddDate(-12, 0, 0)),
		Gender:           "F",
		Address:          "Av. Amazonas N34-451",
		RepresentativeData: null.JSONFrom([]byte(
			`{"nombre":"Luis Paredes","email":"luis@test.ec","telefono":"0991234567"}`,
		)),
		GradeLevel: gradeLevel,
		Shift:      shift,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status != admission.StatusDraft {
		app.SubmittedAt = null.TimeFrom(now)
	}

	app, err := repo.CreateApplication(app)
	if err != nil {
		t.Fatalf("CreateApplication() failed: %v", err)
	}
	return app
}

// AttachRequiredDocuments saves one document of every required type.
func AttachRequiredDocuments(t *testing.T, docs admission.DocumentRepository, applicationID string) {
	t.Helper()

	for _, typ := range admission.RequiredDocumentTypes {
		name := strings.ToLower(string(typ)) + ".pdf"
		_, err := docs.SaveDocument(admission.Document{
			ID:            uuid.New().String(),
			ApplicationID: applicationID,
			Type:          typ,
			FileName:      name,
			FileURL:       "https://files.test/" + applicationID + "/" + name,
			MimeType:      "application/pdf",
			FileSize:      1024,
			UploadedAt:    time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("AttachRequiredDocuments() failed: %v", err)
		}
	}
}
