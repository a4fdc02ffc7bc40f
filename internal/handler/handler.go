package handler

import (
	"errors"

	"github.com/careloop/api/internal/middleware"
	"github.com/careloop/api/internal/model"
	"github.com/careloop/api/internal/policy"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// identity resolves the caller set by the auth middleware into a policy
// identity, including the role-specific profile row id.
func identity(c *gin.Context, db *gorm.DB) (policy.Identity, error) {
	id := policy.Identity{
		UserID: middleware.MustUserID(c),
		Role:   middleware.MustUserRole(c),
	}

	switch id.Role {
	case model.RolePatient:
		var p model.Patient
		if err := db.Where("user_id = ?", id.UserID).First(&p).Error; err != nil {
			return id, err
		}
		id.ProfileID = p.ID
	case model.RoleTherapist:
		var t model.Therapist
		if err := db.Where("user_id = ?", id.UserID).First(&t).Error; err != nil {
			return id, err
		}
		id.ProfileID = t.ID
	}

	return id, nil
}

// ownPatient returns the patient row if it is assigned to the given therapist.
func ownPatient(db *gorm.DB, therapistID, patientID int64) (*model.Patient, error) {
	var p model.Patient
	if err := db.First(&p, patientID).Error; err != nil {
		return nil, err
	}
	if p.TherapistID != therapistID {
		return nil, policy.ErrForbidden
	}
	return &p, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
