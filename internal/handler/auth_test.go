package handler

import (
	"net/http"
	"testing"

	"github.com/careloop/api/internal/model"
)

// Walks the provisioning chain: admin registers a therapist, the therapist
// logs in and registers a patient, the patient logs in and works.
func TestProvisioningFlow(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.seedAdmin(t)

	w := app.do(t, http.MethodPost, "/api/auth/register/therapist", adminToken, map[string]interface{}{
		"email":       "dr.kim@test.local",
		"password":    "password123",
		"fullName":    "Dr. Kim",
		"approach":    "CBT",
		"specialties": []string{"anxiety", "sleep"},
	})
	wantStatus(t, w, http.StatusCreated)
	var registered struct {
		TherapistCode string `json:"therapistCode"`
	}
	decode(t, w, &registered)
	if registered.TherapistCode == "" {
		t.Fatal("no therapist code returned")
	}

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "dr.kim@test.local", "password": "password123",
	})
	wantStatus(t, w, http.StatusOK)
	var login struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expiresIn"`
		Role      string `json:"role"`
		Name      string `json:"name"`
	}
	decode(t, w, &login)
	if login.Role != model.RoleTherapist || login.Name != "Dr. Kim" {
		t.Fatalf("login payload wrong: %+v", login)
	}
	if login.ExpiresIn != 3600 {
		t.Fatalf("expiresIn = %d, want 3600", login.ExpiresIn)
	}

	// Therapist registers a patient; assignment is implicit.
	w = app.do(t, http.MethodPost, "/api/auth/register/patient", login.Token, map[string]interface{}{
		"email": "sam@test.local", "password": "password123", "fullName": "Sam",
	})
	wantStatus(t, w, http.StatusCreated)

	// Admin registers a second patient for the same therapist by code.
	w = app.do(t, http.MethodPost, "/api/auth/register/patient", adminToken, map[string]interface{}{
		"email": "lee@test.local", "password": "password123", "fullName": "Lee",
		"therapistCode": registered.TherapistCode,
	})
	wantStatus(t, w, http.StatusCreated)

	// Admin without a code gets a validation error.
	w = app.do(t, http.MethodPost, "/api/auth/register/patient", adminToken, map[string]interface{}{
		"email": "nobody@test.local", "password": "password123", "fullName": "Nobody",
	})
	wantStatus(t, w, http.StatusBadRequest)

	// Both patients show up in the therapist's list.
	var list struct {
		Data []model.Patient `json:"data"`
	}
	w = app.do(t, http.MethodGet, "/api/patients", login.Token, nil)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if len(list.Data) != 2 {
		t.Fatalf("therapist has %d patients, want 2", len(list.Data))
	}
}

func TestRegisterGates(t *testing.T) {
	app := newTestApp(t)
	therapist, therapistToken := app.seedTherapist(t, "t1@test.local")
	_, patientToken := app.seedPatient(t, "p1@test.local", therapist.ID)

	body := map[string]interface{}{
		"email": "new@test.local", "password": "password123", "fullName": "New",
	}

	// Only admins create therapists.
	w := app.do(t, http.MethodPost, "/api/auth/register/therapist", therapistToken, body)
	wantStatus(t, w, http.StatusForbidden)
	w = app.do(t, http.MethodPost, "/api/auth/register/therapist", "", body)
	wantStatus(t, w, http.StatusUnauthorized)

	// Patients create nobody.
	w = app.do(t, http.MethodPost, "/api/auth/register/patient", patientToken, body)
	wantStatus(t, w, http.StatusForbidden)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	app := newTestApp(t)
	_, adminToken := app.seedAdmin(t)
	app.seedTherapist(t, "taken@test.local")

	w := app.do(t, http.MethodPost, "/api/auth/register/therapist", adminToken, map[string]interface{}{
		"email": "taken@test.local", "password": "password123", "fullName": "Dup",
	})
	wantStatus(t, w, http.StatusBadRequest)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.seedTherapist(t, "t1@test.local")

	w := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "t1@test.local", "password": "wrong-password",
	})
	wantStatus(t, w, http.StatusUnauthorized)

	w = app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "ghost@test.local", "password": "password123",
	})
	wantStatus(t, w, http.StatusUnauthorized)
}

func TestMeAndProfileUpdate(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedTherapist(t, "t1@test.local")

	w := app.do(t, http.MethodGet, "/api/auth/me", token, nil)
	wantStatus(t, w, http.StatusOK)
	var me struct {
		User    model.User      `json:"user"`
		Profile model.Therapist `json:"profile"`
	}
	decode(t, w, &me)
	if me.User.Email != "t1@test.local" || me.Profile.ID == 0 {
		t.Fatalf("me payload wrong: %+v", me)
	}

	// Explicit empty bio is written, absent name is kept.
	w = app.do(t, http.MethodPut, "/api/profile", token, map[string]interface{}{
		"bio": "", "approach": "ACT",
	})
	wantStatus(t, w, http.StatusOK)
	var updated model.Therapist
	decode(t, w, &updated)
	if updated.Approach != "ACT" {
		t.Errorf("approach = %q, want ACT", updated.Approach)
	}
	if updated.FullName != me.Profile.FullName {
		t.Errorf("absent fullName was changed: %q", updated.FullName)
	}
}
