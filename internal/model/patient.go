package model

import "time"

type Patient struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"not null;uniqueIndex" json:"userId"`
	TherapistID   int64     `gorm:"not null;index" json:"therapistId"`
	FullName      string    `gorm:"not null;size:255" json:"fullName"`
	Phone         string    `gorm:"size:30" json:"phone"`
	DateOfBirth   string    `gorm:"size:10" json:"dateOfBirth"`
	JournalAccess bool      `gorm:"default:true" json:"journalAccess"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	User          User      `gorm:"foreignKey:UserID" json:"-"`
	Therapist     Therapist `gorm:"foreignKey:TherapistID" json:"-"`
}

func (Patient) TableName() string {
	return "patients"
}
