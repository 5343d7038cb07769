package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog is the persisted summary of one HTTP request/response pair.
// Headers and bodies are only written to the log stream, never stored.
type AuditLog struct {
	ID         string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	RequestID  string    `gorm:"type:varchar(64);index" json:"requestId"`
	UserID     string    `gorm:"type:varchar(36);index" json:"userId,omitempty"`
	Method     string    `gorm:"type:varchar(10);not null" json:"method"`
	Path       string    `gorm:"type:varchar(2048);not null;index" json:"path"`
	StatusCode int       `gorm:"not null;index" json:"statusCode"`
	Duration   int64     `json:"durationMs"` // milliseconds
	IPAddress  string    `gorm:"type:varchar(45)" json:"ipAddress"`
	UserAgent  string    `gorm:"type:text" json:"userAgent"`
	CreatedAt  time.Time `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
