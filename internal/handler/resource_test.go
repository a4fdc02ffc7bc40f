package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/careloop/api/internal/model"
)

func (a *testApp) seedResource(t *testing.T, therapistID int64, title string) model.Resource {
	t.Helper()
	resource := model.Resource{
		TherapistID: therapistID,
		Title:       title,
		ContentType: model.ContentTypeLink,
		Content:     "https://example.org/" + title,
	}
	if err := a.db.Create(&resource).Error; err != nil {
		t.Fatalf("seed resource: %v", err)
	}
	return resource
}

func TestMaterialShareVisibility(t *testing.T) {
	app := newTestApp(t)
	therapist, therapistToken := app.seedTherapist(t, "t1@test.local")
	patientA, tokenA := app.seedPatient(t, "a@test.local", therapist.ID)
	_, tokenB := app.seedPatient(t, "b@test.local", therapist.ID)

	resource := app.seedResource(t, therapist.ID, "breathing")

	// Nothing shared yet.
	var list struct {
		Data []model.Resource `json:"data"`
	}
	w := app.do(t, http.MethodGet, "/api/materials", tokenA, nil)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if len(list.Data) != 0 {
		t.Fatalf("patient sees %d materials before share", len(list.Data))
	}
	w = app.do(t, http.MethodGet, fmt.Sprintf("/api/materials/%d", resource.ID), tokenA, nil)
	wantStatus(t, w, http.StatusForbidden)

	// Share to patient A only.
	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/materials/%d/share", resource.ID), therapistToken,
		map[string]interface{}{"patientIds": []int64{patientA.ID}})
	wantStatus(t, w, http.StatusOK)

	w = app.do(t, http.MethodGet, "/api/materials", tokenA, nil)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if len(list.Data) != 1 || list.Data[0].ID != resource.ID {
		t.Fatalf("shared material missing for patient A: %+v", list.Data)
	}

	w = app.do(t, http.MethodGet, "/api/materials", tokenB, nil)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if len(list.Data) != 0 {
		t.Fatalf("patient B sees material not shared with them")
	}

	// Unshare removes the link but not the resource.
	w = app.do(t, http.MethodDelete,
		fmt.Sprintf("/api/materials/%d/share/%d", resource.ID, patientA.ID), therapistToken, nil)
	wantStatus(t, w, http.StatusOK)

	w = app.do(t, http.MethodGet, "/api/materials", tokenA, nil)
	decode(t, w, &list)
	if len(list.Data) != 0 {
		t.Fatalf("unshared material still visible to patient A")
	}

	w = app.do(t, http.MethodGet, "/api/materials", therapistToken, nil)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if len(list.Data) != 1 {
		t.Fatalf("resource vanished from author's list after unshare")
	}
}

func TestMaterialAuthorScoping(t *testing.T) {
	app := newTestApp(t)
	therapist1, token1 := app.seedTherapist(t, "t1@test.local")
	therapist2, token2 := app.seedTherapist(t, "t2@test.local")

	r1 := app.seedResource(t, therapist1.ID, "one")
	app.seedResource(t, therapist2.ID, "two")

	var list struct {
		Data []model.Resource `json:"data"`
	}
	w := app.do(t, http.MethodGet, "/api/materials", token1, nil)
	wantStatus(t, w, http.StatusOK)
	decode(t, w, &list)
	if len(list.Data) != 1 || list.Data[0].ID != r1.ID {
		t.Fatalf("therapist list not scoped to own resources: %+v", list.Data)
	}

	// A therapist cannot mutate another therapist's material.
	w = app.do(t, http.MethodPut, fmt.Sprintf("/api/materials/%d", r1.ID), token2,
		map[string]interface{}{"title": "hijacked"})
	wantStatus(t, w, http.StatusForbidden)
	w = app.do(t, http.MethodDelete, fmt.Sprintf("/api/materials/%d", r1.ID), token2, nil)
	wantStatus(t, w, http.StatusForbidden)
}

func TestMaterialDeleteCascades(t *testing.T) {
	app := newTestApp(t)
	therapist, therapistToken := app.seedTherapist(t, "t1@test.local")
	patient, patientToken := app.seedPatient(t, "p1@test.local", therapist.ID)

	resource := app.seedResource(t, therapist.ID, "sleep-hygiene")

	w := app.do(t, http.MethodPost, fmt.Sprintf("/api/materials/%d/share", resource.ID), therapistToken,
		map[string]interface{}{"patientIds": []int64{patient.ID}})
	wantStatus(t, w, http.StatusOK)
	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/materials/%d/comments", resource.ID), patientToken,
		map[string]string{"body": "helpful"})
	wantStatus(t, w, http.StatusCreated)
	w = app.do(t, http.MethodPost, fmt.Sprintf("/api/materials/%d/favorite", resource.ID), patientToken, nil)
	wantStatus(t, w, http.StatusOK)

	w = app.do(t, http.MethodDelete, fmt.Sprintf("/api/materials/%d", resource.ID), therapistToken, nil)
	wantStatus(t, w, http.StatusOK)

	var shares, comments, favorites int64
	app.db.Model(&model.SharedResource{}).Where("resource_id = ?", resource.ID).Count(&shares)
	app.db.Model(&model.Comment{}).Where("resource_id = ?", resource.ID).Count(&comments)
	app.db.Model(&model.Favorite{}).Where("resource_id = ?", resource.ID).Count(&favorites)
	if shares != 0 || comments != 0 || favorites != 0 {
		t.Fatalf("delete left orphans: shares=%d comments=%d favorites=%d", shares, comments, favorites)
	}
}

func TestMaterialShareRequiresOwnPatient(t *testing.T) {
	app := newTestApp(t)
	therapist1, token1 := app.seedTherapist(t, "t1@test.local")
	therapist2, _ := app.seedTherapist(t, "t2@test.local")
	foreign, _ := app.seedPatient(t, "p2@test.local", therapist2.ID)

	resource := app.seedResource(t, therapist1.ID, "grounding")

	w := app.do(t, http.MethodPost, fmt.Sprintf("/api/materials/%d/share", resource.ID), token1,
		map[string]interface{}{"patientIds": []int64{foreign.ID}})
	wantStatus(t, w, http.StatusForbidden)
}

func TestMaterialCommentsRequireVisibility(t *testing.T) {
	app := newTestApp(t)
	therapist, _ := app.seedTherapist(t, "t1@test.local")
	_, patientToken := app.seedPatient(t, "p1@test.local", therapist.ID)

	resource := app.seedResource(t, therapist.ID, "unshared")

	w := app.do(t, http.MethodPost, fmt.Sprintf("/api/materials/%d/comments", resource.ID), patientToken,
		map[string]string{"body": "sneaky"})
	wantStatus(t, w, http.StatusForbidden)
}
