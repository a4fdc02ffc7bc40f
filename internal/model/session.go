package model

import (
	"time"
)

// Session status constants. The intended lifecycle is
// pending → {scheduled, cancelled}, scheduled → {completed, cancelled};
// the API only validates that the target is a known status.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type TherapySession struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID   int64             `gorm:"not null;index" json:"patientId"`
	TherapistID int64             `gorm:"not null;index" json:"therapistId"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	DurationMin int               `gorm:"default:50" json:"durationMin"`
	Topic       string            `gorm:"size:255" json:"topic"`
	Status      string            `gorm:"not null;size:20;default:'pending'" json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	Documents   []SessionDocument `gorm:"foreignKey:SessionID" json:"documents"`
	Resources   []SessionResource `gorm:"foreignKey:SessionID" json:"resources"`
	Patient     Patient           `gorm:"foreignKey:PatientID" json:"-"`
	Therapist   Therapist         `gorm:"foreignKey:TherapistID" json:"-"`
}

func (TherapySession) TableName() string {
	return "therapy_sessions"
}

func ValidSessionStatus(s string) bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// SessionDocument is homework attached to a session. Only metadata is stored;
// the blob lives outside this service under StorageKey.
type SessionDocument struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID  int64     `gorm:"not null;index" json:"sessionId"`
	Title      string    `gorm:"not null;size:255" json:"title"`
	StorageKey string    `gorm:"not null;size:64" json:"storageKey"`
	MimeType   string    `gorm:"size:100" json:"mimeType"`
	SizeBytes  int64     `json:"sizeBytes"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (SessionDocument) TableName() string {
	return "session_documents"
}

// SessionResource links a material to a session with a per-session completed flag.
type SessionResource struct {
	ID         int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID  int64    `gorm:"not null;uniqueIndex:idx_session_resources_pair,priority:1" json:"sessionId"`
	ResourceID int64    `gorm:"not null;uniqueIndex:idx_session_resources_pair,priority:2" json:"resourceId"`
	Completed  bool     `gorm:"not null;default:false" json:"completed"`
	Resource   Resource `gorm:"foreignKey:ResourceID" json:"resource"`
}

func (SessionResource) TableName() string {
	return "session_resources"
}
