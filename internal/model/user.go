package model

import "time"

// Role constants
const (
	RoleAdmin     = "admin"
	RoleTherapist = "therapist"
	RolePatient   = "patient"
)

type User struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string    `gorm:"not null;uniqueIndex;size:255" json:"email"`
	PasswordHash  string    `gorm:"not null;size:255" json:"-"`
	Role          string    `gorm:"not null;size:20;index" json:"role"`
	TherapistCode *string   `gorm:"uniqueIndex;size:20" json:"therapistCode,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTherapist, RolePatient:
		return true
	}
	return false
}
