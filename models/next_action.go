package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxNextActionLength bounds the free-text action description.
const MaxNextActionLength = 220

// NextAction is a per-user follow-up task on a case. At most one
// exists per (user, case) pair; setting it again updates in place.
type NextAction struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_next_action_user_case" json:"user_id"`
	CaseID string `gorm:"type:uuid;not null;uniqueIndex:idx_next_action_user_case;index" json:"case_id"`

	Text    string `gorm:"size:220;not null" json:"text"`
	DueDate string `gorm:"size:10;not null" json:"due_date"`

	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// BeforeCreate hook to generate UUID
func (n *NextAction) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for NextAction model
func (NextAction) TableName() string {
	return "next_actions"
}

// IsOverdue reports whether the action is incomplete with a due date
// strictly before the given date (YYYY-MM-DD).
func (n *NextAction) IsOverdue(today string) bool {
	return !n.Completed && n.DueDate != "" && n.DueDate < today
}

// IsDueOn reports whether the incomplete action falls due on the given date.
func (n *NextAction) IsDueOn(date string) bool {
	return !n.Completed && n.DueDate == date
}
