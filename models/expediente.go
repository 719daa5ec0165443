package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Case status constants. The canonical spellings carry accents; the
// unaccented variants exist in data migrated from the old spreadsheet
// system and must stay readable. New writes always use the canonical
// spelling.
const (
	StatusAdmitido       = "Admitido"
	StatusEnIntegracion  = "En integración"
	StatusEnConciliacion = "En conciliación"
	StatusResuelto       = "Resuelto"
	StatusArchivado      = "Archivado"

	// Legacy spellings (read-compatible only)
	StatusEnIntegracionLegacy  = "En integracion"
	StatusEnConciliacionLegacy = "En conciliacion"
)

// Field length limits enforced by the validators and mirrored in the
// column sizes below.
const (
	MaxFolioLength          = 32
	MaxRightsCategoryLength = 120
	MaxAuthorityLength      = 160
	MaxHandlerLength        = 120
	MaxNotesLength          = 2500
	MaxMonthLabelLength     = 60
)

// Expediente represents an administrative case file tracked by the
// commission. Folios are stored normalized (uppercase), so the unique
// index is effectively case-insensitive.
type Expediente struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Identification
	Folio string `gorm:"size:32;not null;uniqueIndex" json:"folio"`

	// Classification
	RightsCategory string `gorm:"size:120;not null" json:"rights_category"`
	Authority      string `gorm:"size:160;not null" json:"authority"`
	Handler        string `gorm:"size:120;not null;index" json:"handler"`

	// Lifecycle. Dates are date-only strings (YYYY-MM-DD) so they
	// compare lexicographically, matching how the validators reason
	// about them.
	Status            string `gorm:"size:40;not null;default:Admitido;index" json:"status"`
	FilingDate        string `gorm:"size:10;not null" json:"filing_date"`
	LastMovementDate  string `gorm:"size:10;not null" json:"last_movement_date"`
	RegistrationMonth string `gorm:"size:60" json:"registration_month"`

	Notes string `gorm:"type:text" json:"notes"`

	// Relationships (hard delete cascades to owned children)
	NextActions []NextAction   `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"next_actions,omitempty"`
	Documents   []CaseDocument `gorm:"foreignKey:CaseID;constraint:OnDelete:CASCADE" json:"documents,omitempty"`
}

// BeforeCreate hook to generate UUID
func (e *Expediente) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Expediente model
func (Expediente) TableName() string {
	return "expedientes"
}

// CanonicalStatus maps a stored status string (including the legacy
// unaccented spellings) to its canonical form. Unknown strings are
// returned unchanged.
func CanonicalStatus(status string) string {
	switch status {
	case StatusEnIntegracionLegacy:
		return StatusEnIntegracion
	case StatusEnConciliacionLegacy:
		return StatusEnConciliacion
	default:
		return status
	}
}

// StatusEqual reports whether two stored status strings name the same
// logical state, treating both spellings of a state as equivalent.
func StatusEqual(a, b string) bool {
	return CanonicalStatus(a) == CanonicalStatus(b)
}

// IsValidStatus checks if the status is one of the accepted stored
// strings (canonical or legacy).
func IsValidStatus(status string) bool {
	validStatuses := []string{
		StatusAdmitido,
		StatusEnIntegracion,
		StatusEnConciliacion,
		StatusResuelto,
		StatusArchivado,
		StatusEnIntegracionLegacy,
		StatusEnConciliacionLegacy,
	}
	for _, s := range validStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// AllStatuses returns the canonical status values in lifecycle order.
func AllStatuses() []string {
	return []string{
		StatusAdmitido,
		StatusEnIntegracion,
		StatusEnConciliacion,
		StatusResuelto,
		StatusArchivado,
	}
}

// IsTerminalStatus reports whether a status ends the case lifecycle.
// Terminal cases are excluded from staleness and work-queue logic.
func IsTerminalStatus(status string) bool {
	c := CanonicalStatus(status)
	return c == StatusResuelto || c == StatusArchivado
}

// IsResolved checks if the case has been resolved
func (e *Expediente) IsResolved() bool {
	return StatusEqual(e.Status, StatusResuelto)
}

// IsTerminal checks if the case is in a terminal state
func (e *Expediente) IsTerminal() bool {
	return IsTerminalStatus(e.Status)
}
