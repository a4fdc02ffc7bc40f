package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/careloop/api/internal/auth"
	"github.com/careloop/api/internal/database"
	"github.com/careloop/api/internal/middleware"
	"github.com/careloop/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

type testApp struct {
	db     *gorm.DB
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// A second connection to :memory: would be a second empty database.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &testApp{db: db, router: buildRouter(db)}
}

// buildRouter mirrors the cmd/server route table.
func buildRouter(db *gorm.DB) *gin.Engine {
	authHandler := NewAuthHandler(db, testSecret)
	patientHandler := NewPatientHandler(db)
	tagHandler := NewTagHandler(db)
	journalHandler := NewJournalHandler(db)
	resourceHandler := NewResourceHandler(db)
	sessionHandler := NewSessionHandler(db)
	messageHandler := NewMessageHandler(db)
	noteHandler := NewNoteHandler(db)
	statsHandler := NewStatsHandler(db, nil)

	anyRole := []string{model.RoleAdmin, model.RoleTherapist, model.RolePatient}
	both := []string{model.RolePatient, model.RoleTherapist}

	r := gin.New()
	api := r.Group("/api")

	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register/therapist",
		middleware.RequireRoles(testSecret, model.RoleAdmin), authHandler.RegisterTherapist)
	api.POST("/auth/register/patient",
		middleware.RequireRoles(testSecret, model.RoleAdmin, model.RoleTherapist), authHandler.RegisterPatient)
	api.GET("/auth/me", middleware.RequireRoles(testSecret, anyRole...), authHandler.Me)
	api.PUT("/profile", middleware.RequireRoles(testSecret, both...), authHandler.UpdateProfile)

	api.GET("/patients",
		middleware.RequireRoles(testSecret, model.RoleTherapist, model.RoleAdmin), patientHandler.List)
	api.GET("/patients/:id",
		middleware.RequireRoles(testSecret, model.RoleTherapist, model.RoleAdmin), patientHandler.Get)
	api.PUT("/patients/:id",
		middleware.RequireRoles(testSecret, model.RoleTherapist), patientHandler.Update)
	api.GET("/patients/:id/journal",
		middleware.RequireRoles(testSecret, model.RoleTherapist), journalHandler.ListShared)
	api.GET("/patients/:id/notes",
		middleware.RequireRoles(testSecret, model.RoleTherapist), noteHandler.ListForPatient)

	api.GET("/tags", middleware.RequireRoles(testSecret, anyRole...), tagHandler.List)
	api.POST("/tags",
		middleware.RequireRoles(testSecret, model.RolePatient, model.RoleAdmin), tagHandler.Create)
	api.DELETE("/tags/:id",
		middleware.RequireRoles(testSecret, model.RolePatient, model.RoleAdmin), tagHandler.Delete)

	api.POST("/journal", middleware.RequireRoles(testSecret, model.RolePatient), journalHandler.Create)
	api.GET("/journal", middleware.RequireRoles(testSecret, model.RolePatient), journalHandler.ListMine)
	api.GET("/journal/:id", middleware.RequireRoles(testSecret, both...), journalHandler.Get)
	api.PUT("/journal/:id", middleware.RequireRoles(testSecret, model.RolePatient), journalHandler.Update)
	api.DELETE("/journal/:id", middleware.RequireRoles(testSecret, model.RolePatient), journalHandler.Delete)
	api.POST("/journal/:id/reflections",
		middleware.RequireRoles(testSecret, model.RolePatient), journalHandler.AddReflection)

	api.GET("/materials", middleware.RequireRoles(testSecret, both...), resourceHandler.List)
	api.POST("/materials", middleware.RequireRoles(testSecret, model.RoleTherapist), resourceHandler.Create)
	api.GET("/materials/:id", middleware.RequireRoles(testSecret, both...), resourceHandler.Get)
	api.PUT("/materials/:id", middleware.RequireRoles(testSecret, model.RoleTherapist), resourceHandler.Update)
	api.DELETE("/materials/:id", middleware.RequireRoles(testSecret, model.RoleTherapist), resourceHandler.Delete)
	api.POST("/materials/:id/share",
		middleware.RequireRoles(testSecret, model.RoleTherapist), resourceHandler.Share)
	api.DELETE("/materials/:id/share/:patientId",
		middleware.RequireRoles(testSecret, model.RoleTherapist), resourceHandler.Unshare)
	api.GET("/materials/:id/comments", middleware.RequireRoles(testSecret, both...), resourceHandler.ListComments)
	api.POST("/materials/:id/comments", middleware.RequireRoles(testSecret, both...), resourceHandler.AddComment)
	api.POST("/materials/:id/favorite", middleware.RequireRoles(testSecret, both...), resourceHandler.Favorite)
	api.DELETE("/materials/:id/favorite", middleware.RequireRoles(testSecret, both...), resourceHandler.Unfavorite)

	api.GET("/sessions", middleware.RequireRoles(testSecret, both...), sessionHandler.List)
	api.POST("/sessions", middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.Create)
	api.GET("/sessions/:id", middleware.RequireRoles(testSecret, both...), sessionHandler.Get)
	api.PUT("/sessions/:id", middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.Update)
	api.DELETE("/sessions/:id", middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.Delete)
	api.POST("/sessions/:id/documents",
		middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.AddDocument)
	api.DELETE("/sessions/:id/documents/:docId",
		middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.DeleteDocument)
	api.POST("/sessions/:id/resources",
		middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.AttachResource)
	api.DELETE("/sessions/:id/resources/:resourceId",
		middleware.RequireRoles(testSecret, model.RoleTherapist), sessionHandler.DetachResource)
	api.PUT("/sessions/:id/resources/:resourceId",
		middleware.RequireRoles(testSecret, both...), sessionHandler.CompleteResource)

	api.GET("/messages", middleware.RequireRoles(testSecret, both...), messageHandler.List)
	api.POST("/messages", middleware.RequireRoles(testSecret, both...), messageHandler.Send)
	api.POST("/messages/read", middleware.RequireRoles(testSecret, both...), messageHandler.MarkRead)
	api.PUT("/messages/:id", middleware.RequireRoles(testSecret, both...), messageHandler.Update)
	api.DELETE("/messages/:id", middleware.RequireRoles(testSecret, both...), messageHandler.Delete)

	api.GET("/notes", middleware.RequireRoles(testSecret, both...), noteHandler.ListMine)
	api.POST("/notes", middleware.RequireRoles(testSecret, model.RoleTherapist), noteHandler.Create)
	api.GET("/notes/:id", middleware.RequireRoles(testSecret, both...), noteHandler.Get)
	api.PUT("/notes/:id", middleware.RequireRoles(testSecret, model.RoleTherapist), noteHandler.Update)
	api.DELETE("/notes/:id", middleware.RequireRoles(testSecret, model.RoleTherapist), noteHandler.Delete)

	api.GET("/stats", middleware.RequireRoles(testSecret, model.RoleAdmin), statsHandler.Get)

	return r
}

// do performs a request against the test router and returns the recorder.
func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// Fixture users are written straight to the DB; the register endpoints get
// their own coverage in auth_test.go.

func (a *testApp) seedAdmin(t *testing.T) (model.User, string) {
	t.Helper()
	user := a.seedUser(t, "admin@test.local", model.RoleAdmin, nil)
	return user, a.token(t, &user)
}

func (a *testApp) seedTherapist(t *testing.T, email string) (model.Therapist, string) {
	t.Helper()
	code := auth.GenerateTherapistCode()
	user := a.seedUser(t, email, model.RoleTherapist, &code)
	therapist := model.Therapist{UserID: user.ID, FullName: "Dr. " + email}
	if err := a.db.Create(&therapist).Error; err != nil {
		t.Fatalf("create therapist: %v", err)
	}
	return therapist, a.token(t, &user)
}

func (a *testApp) seedPatient(t *testing.T, email string, therapistID int64) (model.Patient, string) {
	t.Helper()
	user := a.seedUser(t, email, model.RolePatient, nil)
	patient := model.Patient{
		UserID:        user.ID,
		TherapistID:   therapistID,
		FullName:      "Patient " + email,
		JournalAccess: true,
	}
	if err := a.db.Create(&patient).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return patient, a.token(t, &user)
}

func (a *testApp) seedUser(t *testing.T, email, role string, code *string) model.User {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := model.User{Email: email, PasswordHash: hash, Role: role, TherapistCode: code}
	if err := a.db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (a *testApp) token(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user, testSecret)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}
