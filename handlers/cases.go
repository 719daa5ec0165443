package handlers

import (
	"fmt"
	"net/http"

	"expedientes_app_go/middleware"
	"expedientes_app_go/models"
	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
)

// CaseHandler exposes the case repository over JSON.
type CaseHandler struct {
	Repo     *services.CaseRepository
	Sessions *services.SessionRegistry
}

func NewCaseHandler(repo *services.CaseRepository, sessions *services.SessionRegistry) *CaseHandler {
	return &CaseHandler{Repo: repo, Sessions: sessions}
}

// notify records a user-visible notification for a mutation outcome.
// Notification failures never affect the response.
func (h *CaseHandler) notify(c echo.Context, kind, title, message string) {
	center, err := h.Sessions.Notifications(middleware.GetCurrentUserID(c))
	if err != nil {
		return
	}
	center.Add(kind, title, message, nil)
}

// List returns the current snapshot, newest first.
func (h *CaseHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Repo.List())
}

// Get returns one case from the snapshot.
func (h *CaseHandler) Get(c echo.Context) error {
	record, ok := h.Repo.Get(c.Param("id"))
	if !ok {
		return writeError(c, &services.NotFoundError{ID: c.Param("id")})
	}
	return c.JSON(http.StatusOK, record)
}

// Refresh forces a reconciling refetch.
func (h *CaseHandler) Refresh(c echo.Context) error {
	if err := h.Repo.Refetch(); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, h.Repo.List())
}

// Create registers a new case.
func (h *CaseHandler) Create(c echo.Context) error {
	var in services.ExpedienteInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	record, err := h.Repo.Create(in)
	if err != nil {
		if services.IsConflict(err) {
			h.notify(c, models.NotificationKindWarning, "Folio duplicado", err.Error())
		}
		return writeError(c, err)
	}

	h.notify(c, models.NotificationKindSuccess, "Expediente creado",
		fmt.Sprintf("Se registró el expediente %s.", record.Folio))
	return c.JSON(http.StatusCreated, record)
}

// Update applies a partial update to an existing case.
func (h *CaseHandler) Update(c echo.Context) error {
	var patch services.ExpedientePatch
	if err := c.Bind(&patch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	record, err := h.Repo.Update(c.Param("id"), patch)
	if err != nil {
		return writeError(c, err)
	}

	h.notify(c, models.NotificationKindSuccess, "Expediente actualizado",
		fmt.Sprintf("Se actualizó el expediente %s.", record.Folio))
	return c.JSON(http.StatusOK, record)
}

// Delete removes a case and its owned records.
func (h *CaseHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	record, _ := h.Repo.Get(id)

	if err := h.Repo.Delete(id); err != nil {
		return writeError(c, err)
	}

	if record != nil {
		h.notify(c, models.NotificationKindInfo, "Expediente eliminado",
			fmt.Sprintf("Se eliminó el expediente %s.", record.Folio))
	}
	return c.NoContent(http.StatusNoContent)
}

// ImportTemplate serves the Excel data-entry workbook.
func (h *CaseHandler) ImportTemplate(c echo.Context) error {
	buf, err := services.GenerateExcelTemplate()
	if err != nil {
		return writeError(c, err)
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename=expedientes_import_template.xlsx")
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Import processes an uploaded backup workbook record by record.
func (h *CaseHandler) Import(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}

	src, err := file.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer src.Close()

	result, err := services.BulkCreateFromExcel(h.Repo, src)
	if err != nil {
		return writeError(c, err)
	}

	h.notify(c, models.NotificationKindInfo, "Importación completada",
		fmt.Sprintf("%d importados, %d duplicados omitidos, %d fallidos.",
			result.Imported, result.SkippedDuplicates, result.Failed))
	return c.JSON(http.StatusOK, result)
}
