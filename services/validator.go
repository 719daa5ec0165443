package services

import (
	"html"
	"regexp"
	"strings"

	"expedientes_app_go/models"

	"github.com/microcosm-cc/bluemonday"
)

// Folio format: PREFIX-YYYY-NNN with 3 to 6 trailing digits, e.g.
// CDH-2026-001. Matching is case-insensitive; storage is uppercase.
var folioPattern = regexp.MustCompile(`(?i)^[A-ZÁÉÍÓÚÜÑ]{2,10}-\d{4}-\d{3,6}$`)

var (
	multiHyphen = regexp.MustCompile(`-{2,}`)
	notesPolicy = bluemonday.StrictPolicy()
)

// CollapseWhitespace trims and collapses internal whitespace runs to a
// single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeFolio cleans raw folio input: collapses whitespace,
// uppercases, and converts slashes and spaces to hyphens. Idempotent.
func NormalizeFolio(raw string) string {
	s := CollapseWhitespace(raw)
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, " ", "-")
	return multiHyphen.ReplaceAllString(s, "-")
}

// IsValidFolio reports whether a folio matches the expected format.
func IsValidFolio(folio string) bool {
	return len(folio) <= models.MaxFolioLength && folioPattern.MatchString(folio)
}

// TruncateText collapses whitespace, trims, and hard-cuts to maxLen
// runes.
func TruncateText(s string, maxLen int) string {
	s = CollapseWhitespace(s)
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}

// SanitizeNotes strips any markup from free-text notes and enforces
// the length bound. Stored notes are plain text.
func SanitizeNotes(raw string) string {
	clean := notesPolicy.Sanitize(raw)
	clean = html.UnescapeString(clean)
	return TruncateText(clean, models.MaxNotesLength)
}

// ExpedienteInput carries the raw fields for creating a case record.
type ExpedienteInput struct {
	Folio            string `json:"folio"`
	FilingDate       string `json:"filing_date"`
	RightsCategory   string `json:"rights_category"`
	Authority        string `json:"authority"`
	Handler          string `json:"handler"`
	Status           string `json:"status"`
	LastMovementDate string `json:"last_movement_date"`
	Notes            string `json:"notes"`
}

// ExpedientePatch carries a partial update; nil fields are untouched.
type ExpedientePatch struct {
	Folio            *string `json:"folio,omitempty"`
	FilingDate       *string `json:"filing_date,omitempty"`
	RightsCategory   *string `json:"rights_category,omitempty"`
	Authority        *string `json:"authority,omitempty"`
	Handler          *string `json:"handler,omitempty"`
	Status           *string `json:"status,omitempty"`
	LastMovementDate *string `json:"last_movement_date,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

func requiredText(field, raw string, maxLen int) (string, error) {
	s := TruncateText(raw, maxLen)
	if s == "" {
		return "", validationError(field, "is required")
	}
	return s, nil
}

// ValidateNewExpediente normalizes and validates raw input for a new
// case record. Returns the record ready to persist (without id or
// timestamps) or a validation error.
func ValidateNewExpediente(in ExpedienteInput) (*models.Expediente, error) {
	folio := NormalizeFolio(in.Folio)
	if folio == "" {
		return nil, validationError("folio", "is required")
	}
	if !IsValidFolio(folio) {
		return nil, validationError("folio", "must match the PREFIX-YYYY-NNN format")
	}

	filingDate, err := NormalizeDateOnly(in.FilingDate)
	if err != nil {
		return nil, validationError("filing_date", "invalid date format: expected YYYY-MM-DD")
	}
	if IsFutureDate(filingDate) {
		return nil, validationError("filing_date", "cannot be in the future")
	}

	status := in.Status
	if CollapseWhitespace(status) == "" {
		status = models.StatusAdmitido
	}
	if !models.IsValidStatus(status) {
		return nil, validationError("status", "is not a recognized status")
	}
	// New writes always store the canonical accented spelling.
	status = models.CanonicalStatus(status)

	lastMovement := filingDate
	if CollapseWhitespace(in.LastMovementDate) != "" {
		lastMovement, err = NormalizeDateOnly(in.LastMovementDate)
		if err != nil {
			return nil, validationError("last_movement_date", "invalid date format: expected YYYY-MM-DD")
		}
	}
	if lastMovement < filingDate {
		return nil, validationError("last_movement_date", "cannot precede the filing date")
	}
	if IsFutureDate(lastMovement) {
		return nil, validationError("last_movement_date", "cannot be in the future")
	}

	rights, err := requiredText("rights_category", in.RightsCategory, models.MaxRightsCategoryLength)
	if err != nil {
		return nil, err
	}
	authority, err := requiredText("authority", in.Authority, models.MaxAuthorityLength)
	if err != nil {
		return nil, err
	}
	handler, err := requiredText("handler", in.Handler, models.MaxHandlerLength)
	if err != nil {
		return nil, err
	}

	return &models.Expediente{
		Folio:             folio,
		FilingDate:        filingDate,
		RightsCategory:    rights,
		Authority:         authority,
		Handler:           handler,
		Status:            status,
		LastMovementDate:  lastMovement,
		RegistrationMonth: TruncateText(RegistrationMonthLabel(filingDate), models.MaxMonthLabelLength),
		Notes:             SanitizeNotes(in.Notes),
	}, nil
}

// ValidateExpedientePatch validates a partial update against the
// existing record and returns the column updates to apply. Cross-field
// date checks use the patched filing date when present, otherwise the
// existing one. When a tracked field (status, authority, handler,
// notes) changes without an explicit last-movement date, the
// last-movement date auto-advances to today.
func ValidateExpedientePatch(existing *models.Expediente, patch ExpedientePatch) (map[string]interface{}, error) {
	updates := make(map[string]interface{})

	filingDate := existing.FilingDate
	if patch.FilingDate != nil {
		normalized, err := NormalizeDateOnly(*patch.FilingDate)
		if err != nil {
			return nil, validationError("filing_date", "invalid date format: expected YYYY-MM-DD")
		}
		if IsFutureDate(normalized) {
			return nil, validationError("filing_date", "cannot be in the future")
		}
		filingDate = normalized
		if normalized != existing.FilingDate {
			updates["filing_date"] = normalized
			updates["registration_month"] = TruncateText(RegistrationMonthLabel(normalized), models.MaxMonthLabelLength)
		}
	}

	if patch.Folio != nil {
		folio := NormalizeFolio(*patch.Folio)
		if !IsValidFolio(folio) {
			return nil, validationError("folio", "must match the PREFIX-YYYY-NNN format")
		}
		if folio != existing.Folio {
			updates["folio"] = folio
		}
	}

	trackedChanged := false

	if patch.Status != nil {
		if !models.IsValidStatus(*patch.Status) {
			return nil, validationError("status", "is not a recognized status")
		}
		status := models.CanonicalStatus(*patch.Status)
		if !models.StatusEqual(status, existing.Status) {
			updates["status"] = status
			trackedChanged = true
		}
	}

	if patch.RightsCategory != nil {
		rights, err := requiredText("rights_category", *patch.RightsCategory, models.MaxRightsCategoryLength)
		if err != nil {
			return nil, err
		}
		if rights != existing.RightsCategory {
			updates["rights_category"] = rights
		}
	}

	if patch.Authority != nil {
		authority, err := requiredText("authority", *patch.Authority, models.MaxAuthorityLength)
		if err != nil {
			return nil, err
		}
		if authority != existing.Authority {
			updates["authority"] = authority
			trackedChanged = true
		}
	}

	if patch.Handler != nil {
		handler, err := requiredText("handler", *patch.Handler, models.MaxHandlerLength)
		if err != nil {
			return nil, err
		}
		if handler != existing.Handler {
			updates["handler"] = handler
			trackedChanged = true
		}
	}

	if patch.Notes != nil {
		notes := SanitizeNotes(*patch.Notes)
		if notes != existing.Notes {
			updates["notes"] = notes
			trackedChanged = true
		}
	}

	lastMovement := existing.LastMovementDate
	switch {
	case patch.LastMovementDate != nil:
		normalized, err := NormalizeDateOnly(*patch.LastMovementDate)
		if err != nil {
			return nil, validationError("last_movement_date", "invalid date format: expected YYYY-MM-DD")
		}
		lastMovement = normalized
		if normalized != existing.LastMovementDate {
			updates["last_movement_date"] = normalized
		}
	case trackedChanged:
		// Movement happened; stamp it with today.
		lastMovement = Today()
		updates["last_movement_date"] = lastMovement
	}

	if lastMovement < filingDate {
		return nil, validationError("last_movement_date", "cannot precede the filing date")
	}
	if IsFutureDate(lastMovement) {
		return nil, validationError("last_movement_date", "cannot be in the future")
	}

	return updates, nil
}
