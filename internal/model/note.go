package model

import "time"

// Note is therapist-authored. The associated patient may read it; other
// patients never can.
type Note struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID   int64     `gorm:"not null;index" json:"patientId"`
	TherapistID int64     `gorm:"not null;index" json:"therapistId"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Body        string    `gorm:"type:text" json:"body"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Note) TableName() string {
	return "notes"
}
