package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Collection caps enforced by the productivity store.
const (
	MaxTemplates    = 24
	MaxSavedFilters = 20
)

// Toggle is a single named on/off preference.
type Toggle struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

// CaseTemplate bundles classification defaults for fast case creation.
type CaseTemplate struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	RightsCategory       string `json:"rights_category"`
	Authority            string `json:"authority"`
	Handler              string `json:"handler"`
	Status               string `json:"status"`
	Notes                string `json:"notes"`
	NextActionText       string `json:"next_action_text"`
	NextActionOffsetDays int    `json:"next_action_offset_days"`
}

// SavedFilter is a named bundle of list-view filter criteria.
type SavedFilter struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Search            string `json:"search"`
	Status            string `json:"status"`
	Handler           string `json:"handler"`
	DatePreset        string `json:"date_preset"`
	DateFrom          string `json:"date_from"`
	DateTo            string `json:"date_to"`
	OnlyStale         bool   `json:"only_stale"`
	OnlyMissingAction bool   `json:"only_missing_action"`
}

// FormDraft is an autosaved snapshot of in-progress form values.
type FormDraft struct {
	Fields  map[string]string `json:"fields"`
	SavedAt time.Time         `json:"saved_at"`
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported column type for JSON scan")
	}
}

// ToggleList stores toggles as a JSON text column. Malformed entries
// are dropped on read instead of failing the whole row.
type ToggleList []Toggle

func (l ToggleList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *ToggleList) Scan(value interface{}) error {
	*l = ToggleList{}
	bytes, err := scanBytes(value)
	if err != nil || len(bytes) == 0 {
		return err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil
	}
	for _, entry := range raw {
		var t Toggle
		if err := json.Unmarshal(entry, &t); err != nil || t.Key == "" {
			continue
		}
		*l = append(*l, t)
	}
	return nil
}

// TemplateList stores case templates as a JSON text column with the
// same drop-malformed-entries read behavior.
type TemplateList []CaseTemplate

func (l TemplateList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *TemplateList) Scan(value interface{}) error {
	*l = TemplateList{}
	bytes, err := scanBytes(value)
	if err != nil || len(bytes) == 0 {
		return err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil
	}
	for _, entry := range raw {
		var t CaseTemplate
		if err := json.Unmarshal(entry, &t); err != nil || t.ID == "" || t.Name == "" {
			continue
		}
		*l = append(*l, t)
	}
	return nil
}

// FilterList stores saved filters as a JSON text column.
type FilterList []SavedFilter

func (l FilterList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *FilterList) Scan(value interface{}) error {
	*l = FilterList{}
	bytes, err := scanBytes(value)
	if err != nil || len(bytes) == 0 {
		return err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil
	}
	for _, entry := range raw {
		var f SavedFilter
		if err := json.Unmarshal(entry, &f); err != nil || f.ID == "" || f.Name == "" {
			continue
		}
		*l = append(*l, f)
	}
	return nil
}

// DraftMap stores form drafts keyed by form identity.
type DraftMap map[string]FormDraft

func (m DraftMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

func (m *DraftMap) Scan(value interface{}) error {
	*m = DraftMap{}
	bytes, err := scanBytes(value)
	if err != nil || len(bytes) == 0 {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil
	}
	for key, entry := range raw {
		var d FormDraft
		if err := json.Unmarshal(entry, &d); err != nil || key == "" {
			continue
		}
		(*m)[key] = d
	}
	return nil
}

// StringList stores the handler-name catalog as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	*l = StringList{}
	bytes, err := scanBytes(value)
	if err != nil || len(bytes) == 0 {
		return err
	}
	var parsed []string
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		return nil
	}
	for _, s := range parsed {
		if s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

// UserPreferences is the one-row-per-user settings aggregate. The
// templates, saved filters, drafts and toggles live inside it as JSON
// sub-collections and are persisted together on every change.
type UserPreferences struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`

	DisplayName string `gorm:"size:120" json:"display_name"`
	Position    string `gorm:"size:120" json:"position"`

	NotificationToggles ToggleList   `gorm:"type:text" json:"notification_toggles"`
	SystemToggles       ToggleList   `gorm:"type:text" json:"system_toggles"`
	Handlers            StringList   `gorm:"type:text" json:"handlers"`
	Templates           TemplateList `gorm:"type:text" json:"templates"`
	SavedFilters        FilterList   `gorm:"type:text" json:"saved_filters"`
	Drafts              DraftMap     `gorm:"type:text" json:"drafts"`
}

// Clone returns a copy whose JSON sub-collections share no backing
// storage with the receiver. Background persists marshal the clone, so
// later in-place mutations under the store lock cannot race the
// encoder.
func (p UserPreferences) Clone() UserPreferences {
	out := p
	out.NotificationToggles = append(ToggleList{}, p.NotificationToggles...)
	out.SystemToggles = append(ToggleList{}, p.SystemToggles...)
	out.Handlers = append(StringList{}, p.Handlers...)
	out.Templates = append(TemplateList{}, p.Templates...)
	out.SavedFilters = append(FilterList{}, p.SavedFilters...)
	out.Drafts = make(DraftMap, len(p.Drafts))
	for key, draft := range p.Drafts {
		out.Drafts[key] = draft
	}
	return out
}

// BeforeCreate hook to generate UUID
func (p *UserPreferences) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for UserPreferences model
func (UserPreferences) TableName() string {
	return "user_preferences"
}
