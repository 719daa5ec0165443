package handlers

import (
	"io"
	"net/http/httptest"
	"testing"

	"expedientes_app_go/middleware"
	"expedientes_app_go/models"
	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	DB       *gorm.DB
	Repo     *services.CaseRepository
	Sessions *services.SessionRegistry
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Expediente{},
		&models.NextAction{},
		&models.UserPreferences{},
		&models.Notification{},
		&models.CaseDocument{},
	)
	if err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	repo := services.NewCaseRepository(db, nil)
	sessions := services.NewSessionRegistry(db, repo)
	t.Cleanup(func() {
		sessions.CloseAll()
		repo.Close()
	})
	return &testEnv{DB: db, Repo: repo, Sessions: sessions}
}

// newRequest builds an authenticated echo context the way the identity
// middleware would leave it.
func newRequest(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set(middleware.UserIDHeader, "user-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("userID", "user-1")
	return c, rec
}

func sampleCaseInput(folio string) services.ExpedienteInput {
	return services.ExpedienteInput{
		Folio:          folio,
		FilingDate:     "2026-01-15",
		RightsCategory: "Derecho de petición",
		Authority:      "Secretaría de Salud",
		Handler:        "L. Martínez",
	}
}
