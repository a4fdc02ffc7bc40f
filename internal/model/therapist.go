package model

import (
	"time"

	"github.com/lib/pq"
)

type Therapist struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64          `gorm:"not null;uniqueIndex" json:"userId"`
	FullName    string         `gorm:"not null;size:255" json:"fullName"`
	Phone       string         `gorm:"size:30" json:"phone"`
	Approach    string         `gorm:"size:255" json:"approach"`
	Specialties pq.StringArray `gorm:"type:text[]" json:"specialties"`
	Bio         string         `gorm:"type:text" json:"bio"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	User        User           `gorm:"foreignKey:UserID" json:"-"`
}

func (Therapist) TableName() string {
	return "therapists"
}
