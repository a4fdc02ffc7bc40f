package model

import "time"

// JournalEntry belongs to exactly one patient. Shared gates therapist
// visibility: unshared entries never leave the patient's own endpoints.
type JournalEntry struct {
	ID          int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	PatientID   int64        `gorm:"not null;index" json:"patientId"`
	Title       string       `gorm:"not null;size:255" json:"title"`
	Body        string       `gorm:"type:text" json:"body"`
	Mood        *int         `json:"mood,omitempty"`
	Shared      bool         `gorm:"not null;default:false" json:"shared"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Tags        []Tag        `gorm:"many2many:journal_entry_tags" json:"tags"`
	Reflections []Reflection `gorm:"foreignKey:JournalEntryID" json:"reflections"`
	Patient     Patient      `gorm:"foreignKey:PatientID" json:"-"`
}

func (JournalEntry) TableName() string {
	return "journal_entries"
}

type Reflection struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	JournalEntryID int64     `gorm:"not null;index" json:"journalEntryId"`
	Body           string    `gorm:"type:text;not null" json:"body"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Reflection) TableName() string {
	return "reflections"
}
