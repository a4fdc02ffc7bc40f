package model

import (
	"time"

	"gorm.io/datatypes"
)

// Sender constants
const (
	SenderPatient   = "patient"
	SenderTherapist = "therapist"
)

// Message belongs to a (patient, therapist) pair. Attachment holds metadata
// only ({name, mimeType, sizeBytes}); no blob is stored here.
type Message struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID   int64          `gorm:"not null;index:idx_messages_pair,priority:1" json:"patientId"`
	TherapistID int64          `gorm:"not null;index:idx_messages_pair,priority:2" json:"therapistId"`
	Sender      string         `gorm:"not null;size:20" json:"sender"`
	Body        string         `gorm:"type:text;not null" json:"body"`
	Read        bool           `gorm:"not null;default:false" json:"read"`
	Attachment  datatypes.JSON `json:"attachment,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func (Message) TableName() string {
	return "messages"
}
