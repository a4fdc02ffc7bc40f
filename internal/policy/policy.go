// Package policy is the single source of truth for row-level authorization.
// Every handler asks Can(identity, action, row) instead of growing its own
// role conditionals, so the visibility rules live in one table.
package policy

import (
	"errors"

	"github.com/careloop/api/internal/model"
)

var ErrForbidden = errors.New("forbidden")

type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Identity is the caller: the credential's user id and role, plus the id of
// the role-specific profile row (patient or therapist; 0 for admins).
type Identity struct {
	UserID    int64
	Role      string
	ProfileID int64
}

// ResourceAccess wraps a material with the one fact the row itself cannot
// carry: whether a SharedResource link grants it to the calling patient.
type ResourceAccess struct {
	Resource *model.Resource
	Shared   bool
}

type Predicate func(id Identity, row interface{}) bool

type ruleKey struct {
	resource string
	action   Action
}

const (
	resTag     = "tag"
	resJournal = "journal_entry"
	resMat     = "resource"
	resSession = "session"
	resMessage = "message"
	resNote    = "note"
)

var rules = map[ruleKey]Predicate{
	// Tags: patients see global ∪ own, therapists see everything. Patients
	// may create and delete only their own non-global tags; global tags are
	// admin-managed.
	{resTag, ActionRead}: func(id Identity, row interface{}) bool {
		t := row.(*model.Tag)
		switch id.Role {
		case model.RoleTherapist, model.RoleAdmin:
			return true
		case model.RolePatient:
			return t.IsGlobal || ownsTag(id, t)
		}
		return false
	},
	{resTag, ActionCreate}: func(id Identity, row interface{}) bool {
		t := row.(*model.Tag)
		if id.Role == model.RoleAdmin {
			return t.IsGlobal && t.PatientID == nil
		}
		if id.Role == model.RolePatient {
			return !t.IsGlobal && ownsTag(id, t)
		}
		return false
	},
	{resTag, ActionDelete}: func(id Identity, row interface{}) bool {
		t := row.(*model.Tag)
		if id.Role == model.RoleAdmin {
			return t.IsGlobal
		}
		if id.Role == model.RolePatient {
			return !t.IsGlobal && ownsTag(id, t)
		}
		return false
	},

	// Journal entries: the owning patient does everything; the assigned
	// therapist reads shared entries while journal access is on. Unshared
	// entries never cross a therapist-facing path.
	{resJournal, ActionRead}: func(id Identity, row interface{}) bool {
		e := row.(*model.JournalEntry)
		if id.Role == model.RolePatient {
			return e.PatientID == id.ProfileID
		}
		if id.Role == model.RoleTherapist {
			return e.Shared && e.Patient.TherapistID == id.ProfileID && e.Patient.JournalAccess
		}
		return false
	},
	{resJournal, ActionCreate}: journalOwner,
	{resJournal, ActionUpdate}: journalOwner,
	{resJournal, ActionDelete}: journalOwner,

	// Materials: therapists own what they authored; patients reach a
	// material only through a share link.
	{resMat, ActionRead}: func(id Identity, row interface{}) bool {
		a := row.(*ResourceAccess)
		if id.Role == model.RoleTherapist {
			return a.Resource.TherapistID == id.ProfileID
		}
		if id.Role == model.RolePatient {
			return a.Shared
		}
		return false
	},
	{resMat, ActionUpdate}: materialAuthor,
	{resMat, ActionDelete}: materialAuthor,

	// Sessions: reads scoped to the session's own pair, writes to its
	// therapist.
	{resSession, ActionRead}: func(id Identity, row interface{}) bool {
		s := row.(*model.TherapySession)
		if id.Role == model.RolePatient {
			return s.PatientID == id.ProfileID
		}
		if id.Role == model.RoleTherapist {
			return s.TherapistID == id.ProfileID
		}
		return false
	},
	{resSession, ActionUpdate}: sessionTherapist,
	{resSession, ActionDelete}: sessionTherapist,

	// Messages: both members of the pair read; only the author mutates.
	{resMessage, ActionRead}: func(id Identity, row interface{}) bool {
		m := row.(*model.Message)
		if id.Role == model.RolePatient {
			return m.PatientID == id.ProfileID
		}
		if id.Role == model.RoleTherapist {
			return m.TherapistID == id.ProfileID
		}
		return false
	},
	{resMessage, ActionUpdate}: func(id Identity, row interface{}) bool {
		return IsAuthor(id, row.(*model.Message))
	},
	{resMessage, ActionDelete}: func(id Identity, row interface{}) bool {
		return IsAuthor(id, row.(*model.Message))
	},

	// Notes: the owning therapist writes; the associated patient may read.
	{resNote, ActionRead}: func(id Identity, row interface{}) bool {
		n := row.(*model.Note)
		if id.Role == model.RolePatient {
			return n.PatientID == id.ProfileID
		}
		if id.Role == model.RoleTherapist {
			return n.TherapistID == id.ProfileID
		}
		return false
	},
	{resNote, ActionCreate}: noteTherapist,
	{resNote, ActionUpdate}: noteTherapist,
	{resNote, ActionDelete}: noteTherapist,
}

// Can evaluates the rule table. A missing rule denies.
func Can(id Identity, action Action, row interface{}) error {
	pred, ok := rules[ruleKey{resourceName(row), action}]
	if !ok || !pred(id, row) {
		return ErrForbidden
	}
	return nil
}

// IsAuthor reports whether the caller wrote the message. Both the sender
// role tag and the pair-side id must match the caller, independent of which
// role branch the handler is executing.
func IsAuthor(id Identity, m *model.Message) bool {
	switch id.Role {
	case model.RolePatient:
		return m.Sender == model.SenderPatient && m.PatientID == id.ProfileID
	case model.RoleTherapist:
		return m.Sender == model.SenderTherapist && m.TherapistID == id.ProfileID
	}
	return false
}

func resourceName(row interface{}) string {
	switch row.(type) {
	case *model.Tag:
		return resTag
	case *model.JournalEntry:
		return resJournal
	case *ResourceAccess:
		return resMat
	case *model.TherapySession:
		return resSession
	case *model.Message:
		return resMessage
	case *model.Note:
		return resNote
	}
	return ""
}

func ownsTag(id Identity, t *model.Tag) bool {
	return t.PatientID != nil && *t.PatientID == id.ProfileID
}

func journalOwner(id Identity, row interface{}) bool {
	e := row.(*model.JournalEntry)
	return id.Role == model.RolePatient && e.PatientID == id.ProfileID
}

func materialAuthor(id Identity, row interface{}) bool {
	a := row.(*ResourceAccess)
	return id.Role == model.RoleTherapist && a.Resource.TherapistID == id.ProfileID
}

func sessionTherapist(id Identity, row interface{}) bool {
	s := row.(*model.TherapySession)
	return id.Role == model.RoleTherapist && s.TherapistID == id.ProfileID
}

func noteTherapist(id Identity, row interface{}) bool {
	n := row.(*model.Note)
	return id.Role == model.RoleTherapist && n.TherapistID == id.ProfileID
}
