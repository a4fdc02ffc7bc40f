package auth

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateTherapistCode returns a short human-readable code like "T-3F9A2C".
// Uniqueness is enforced by the users.therapist_code unique index; callers
// retry on collision.
func GenerateTherapistCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "T-" + strings.ToUpper(id[:6])
}
