package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification kinds
const (
	NotificationKindSuccess = "success"
	NotificationKindWarning = "warning"
	NotificationKindInfo    = "info"
	NotificationKindError   = "error"
)

// NotificationRetention is how many entries the local log keeps per
// user. Remote rows beyond the bound are not actively pruned.
const NotificationRetention = 80

// Notification is a user-facing event entry. System-generated entries
// carry a client key so repeated checks upsert rather than duplicate.
type Notification struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_notification_user_key" json:"user_id"`

	// Optional idempotency key for system-generated notifications.
	ClientKey *string `gorm:"size:80;uniqueIndex:idx_notification_user_key" json:"client_key,omitempty"`

	CaseID *string `gorm:"type:uuid" json:"case_id,omitempty"`

	Kind    string `gorm:"size:20;not null" json:"kind"`
	Title   string `gorm:"size:160;not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	Read bool `gorm:"not null;default:false" json:"read"`
}

// BeforeCreate hook to generate UUID
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for Notification model
func (Notification) TableName() string {
	return "notifications"
}

// SameContent reports whether another entry carries identical
// user-visible content, used to skip redundant system upserts.
func (n *Notification) SameContent(kind, title, message string) bool {
	return n.Kind == kind && n.Title == title && n.Message == message
}
