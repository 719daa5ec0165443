package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseDocument is the metadata row for a file stored under the case's
// object-storage prefix. The bytes themselves live in the storage
// provider; deleting the case removes these rows with it.
type CaseDocument struct {
	ID        string    `gorm:"type:uuid;primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	CaseID string `gorm:"type:uuid;not null;index" json:"case_id"`

	FileName     string `gorm:"not null" json:"file_name"`
	OriginalName string `gorm:"not null" json:"original_name"`
	StorageKey   string `gorm:"not null" json:"storage_key"`
	MimeType     string `gorm:"size:120" json:"mime_type"`
	FileSize     int64  `json:"file_size"`

	UploadedBy string `gorm:"type:uuid" json:"uploaded_by"`
}

// BeforeCreate hook to generate UUID
func (d *CaseDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for CaseDocument model
func (CaseDocument) TableName() string {
	return "case_documents"
}
