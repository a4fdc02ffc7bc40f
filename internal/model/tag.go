package model

import "time"

// Tag type constants
const (
	TagTypeEmotion  = "emotion"
	TagTypeWeather  = "weather"
	TagTypeActivity = "activity"
	TagTypePerson   = "person"
	TagTypeOther    = "other"
)

// Tag is either global (patient_id null, visible to everyone) or owned by a
// single patient. (type, name, patient_id) is unique, so two patients may each
// have their own "sunny"/weather but one patient cannot have it twice.
type Tag struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Type      string    `gorm:"not null;size:20;uniqueIndex:idx_tags_type_name_patient,priority:1" json:"type"`
	Name      string    `gorm:"not null;size:100;uniqueIndex:idx_tags_type_name_patient,priority:2" json:"name"`
	IsGlobal  bool      `gorm:"not null;default:false" json:"isGlobal"`
	PatientID *int64    `gorm:"uniqueIndex:idx_tags_type_name_patient,priority:3" json:"patientId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Tag) TableName() string {
	return "tags"
}

func ValidTagType(t string) bool {
	switch t {
	case TagTypeEmotion, TagTypeWeather, TagTypeActivity, TagTypePerson, TagTypeOther:
		return true
	}
	return false
}
