package handlers

import (
	"net/http"

	"expedientes_app_go/middleware"
	"expedientes_app_go/models"
	"expedientes_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// DocumentHandler manages case-linked documents: metadata rows in the
// database, bytes in the storage provider under the case's prefix.
type DocumentHandler struct {
	DB      *gorm.DB
	Repo    *services.CaseRepository
	Storage services.StorageProvider
}

func NewDocumentHandler(conn *gorm.DB, repo *services.CaseRepository, storage services.StorageProvider) *DocumentHandler {
	return &DocumentHandler{DB: conn, Repo: repo, Storage: storage}
}

// List returns the document rows for a case.
func (h *DocumentHandler) List(c echo.Context) error {
	caseID := c.Param("id")
	if _, ok := h.Repo.Get(caseID); !ok {
		return writeError(c, &services.NotFoundError{ID: caseID})
	}

	var docs []models.CaseDocument
	if err := h.DB.Where("case_id = ?", caseID).Order("created_at DESC").Find(&docs).Error; err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, docs)
}

// Upload stores a document under the case's storage prefix.
func (h *DocumentHandler) Upload(c echo.Context) error {
	caseID := c.Param("id")
	if _, ok := h.Repo.Get(caseID); !ok {
		return writeError(c, &services.NotFoundError{ID: caseID})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "no file uploaded"})
	}
	if file.Size > services.MaxDocumentSize {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file exceeds the size limit"})
	}
	contentType := file.Header.Get("Content-Type")
	if !services.IsAllowedDocumentType(contentType) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file type not allowed"})
	}

	key := services.CaseDocumentKey(caseID, file.Filename)
	result, err := h.Storage.Upload(c.Request().Context(), file, key)
	if err != nil {
		return writeError(c, err)
	}

	doc := models.CaseDocument{
		CaseID:       caseID,
		FileName:     result.FileName,
		OriginalName: file.Filename,
		StorageKey:   result.Key,
		MimeType:     result.MimeType,
		FileSize:     result.FileSize,
		UploadedBy:   middleware.GetCurrentUserID(c),
	}
	if err := h.DB.Create(&doc).Error; err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// SignedURL returns a short-lived download URL for a document.
func (h *DocumentHandler) SignedURL(c echo.Context) error {
	var doc models.CaseDocument
	if err := h.DB.First(&doc, "id = ?", c.Param("docID")).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	url, err := h.Storage.GetSignedURL(c.Request().Context(), doc.StorageKey, services.SignedURLExpires)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}

// Delete removes a document's bytes and metadata row.
func (h *DocumentHandler) Delete(c echo.Context) error {
	var doc models.CaseDocument
	if err := h.DB.First(&doc, "id = ?", c.Param("docID")).Error; err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "document not found"})
	}

	if err := h.Storage.Delete(c.Request().Context(), doc.StorageKey); err != nil {
		return writeError(c, err)
	}
	if err := h.DB.Delete(&doc).Error; err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
