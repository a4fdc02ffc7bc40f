package model

import (
	"time"

	"gorm.io/datatypes"
)

// Resource content type constants
const (
	ContentTypeLink  = "link"
	ContentTypeText  = "text"
	ContentTypeVideo = "video"
	ContentTypePDF   = "pdf"
	ContentTypeAudio = "audio"
)

// Resource is an educational material authored by a therapist. Patients see a
// resource only through a SharedResource link.
type Resource struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TherapistID int64          `gorm:"not null;index" json:"therapistId"`
	Title       string         `gorm:"not null;size:255" json:"title"`
	ContentType string         `gorm:"not null;size:20" json:"contentType"`
	Content     string         `gorm:"type:text" json:"content"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Therapist   Therapist      `gorm:"foreignKey:TherapistID" json:"-"`
}

func (Resource) TableName() string {
	return "resources"
}

func ValidContentType(t string) bool {
	switch t {
	case ContentTypeLink, ContentTypeText, ContentTypeVideo, ContentTypePDF, ContentTypeAudio:
		return true
	}
	return false
}

type SharedResource struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceID int64     `gorm:"not null;uniqueIndex:idx_shared_resources_pair,priority:1" json:"resourceId"`
	PatientID  int64     `gorm:"not null;uniqueIndex:idx_shared_resources_pair,priority:2;index" json:"patientId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (SharedResource) TableName() string {
	return "shared_resources"
}

type Comment struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceID int64     `gorm:"not null;index" json:"resourceId"`
	UserID     int64     `gorm:"not null;index" json:"userId"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Comment) TableName() string {
	return "comments"
}

type Favorite struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ResourceID int64     `gorm:"not null;uniqueIndex:idx_favorites_pair,priority:1" json:"resourceId"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_favorites_pair,priority:2" json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Favorite) TableName() string {
	return "favorites"
}
