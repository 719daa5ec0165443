package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"expedientes_app_go/models"
	"expedientes_app_go/services"

	"github.com/stretchr/testify/assert"
)

func TestCreateCase(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	body := `{"folio":"cdh/2026/001","filing_date":"2026-01-15","rights_category":"Salud","authority":"IMSS","handler":"L. Martínez"}`
	c, rec := newRequest(http.MethodPost, "/api/cases", strings.NewReader(body))

	assert.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created models.Expediente
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "CDH-2026-001", created.Folio)
	assert.Equal(t, models.StatusAdmitido, created.Status)

	// The success notification landed in the user's center
	center, err := env.Sessions.Notifications("user-1")
	assert.NoError(t, err)
	items := center.List()
	assert.Len(t, items, 1)
	assert.Equal(t, "Expediente creado", items[0].Title)
}

func TestCreateCaseConflict(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	_, err := env.Repo.Create(sampleCaseInput("CDH-2026-001"))
	assert.NoError(t, err)

	body := `{"folio":"cdh-2026-001","filing_date":"2026-01-15","rights_category":"Salud","authority":"IMSS","handler":"L. Martínez"}`
	c, rec := newRequest(http.MethodPost, "/api/cases", strings.NewReader(body))

	assert.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CDH-2026-001")

	center, err := env.Sessions.Notifications("user-1")
	assert.NoError(t, err)
	items := center.List()
	assert.Len(t, items, 1)
	assert.Equal(t, "Folio duplicado", items[0].Title)
}

func TestCreateCaseValidationFailure(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	body := `{"folio":"not a folio","filing_date":"2026-01-15","rights_category":"Salud","authority":"IMSS","handler":"L. Martínez"}`
	c, rec := newRequest(http.MethodPost, "/api/cases", strings.NewReader(body))

	assert.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "folio")
	assert.Equal(t, 0, env.Repo.Count())
}

func TestGetCaseNotFound(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	c, rec := newRequest(http.MethodGet, "/api/cases/missing", nil)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	assert.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateCaseStatus(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	created, err := env.Repo.Create(sampleCaseInput("CDH-2026-002"))
	assert.NoError(t, err)

	c, rec := newRequest(http.MethodPut, "/api/cases/"+created.ID, strings.NewReader(`{"status":"Resuelto"}`))
	c.SetParamNames("id")
	c.SetParamValues(created.ID)

	assert.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var updated models.Expediente
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.StatusResuelto, updated.Status)
	assert.Equal(t, services.Today(), updated.LastMovementDate)
}

func TestDeleteCase(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	created, err := env.Repo.Create(sampleCaseInput("CDH-2026-003"))
	assert.NoError(t, err)

	c, rec := newRequest(http.MethodDelete, "/api/cases/"+created.ID, nil)
	c.SetParamNames("id")
	c.SetParamValues(created.ID)

	assert.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, env.Repo.Count())
}

func TestListCases(t *testing.T) {
	env := setupTestEnv(t)
	h := NewCaseHandler(env.Repo, env.Sessions)

	_, err := env.Repo.Create(sampleCaseInput("CDH-2026-004"))
	assert.NoError(t, err)
	_, err = env.Repo.Create(sampleCaseInput("CDH-2026-005"))
	assert.NoError(t, err)

	c, rec := newRequest(http.MethodGet, "/api/cases", nil)
	assert.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var cases []models.Expediente
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cases))
	assert.Len(t, cases, 2)
}
