package main

import (
	"log"

	"github.com/careloop/api/internal/cache"
	"github.com/careloop/api/internal/config"
	"github.com/careloop/api/internal/database"
	"github.com/careloop/api/internal/handler"
	"github.com/careloop/api/internal/middleware"
	"github.com/careloop/api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// The schema is managed by cmd/migrate at deploy time; refuse to serve
	// against an outdated one.
	if err := database.CheckVersion(db); err != nil {
		log.Fatalf("Schema check failed: %v", err)
	}

	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		redisCache = nil
		// Continue without Redis cache (fail-open)
	}

	authHandler := handler.NewAuthHandler(db, cfg.JWTSecret)
	patientHandler := handler.NewPatientHandler(db)
	tagHandler := handler.NewTagHandler(db)
	journalHandler := handler.NewJournalHandler(db)
	resourceHandler := handler.NewResourceHandler(db)
	sessionHandler := handler.NewSessionHandler(db)
	messageHandler := handler.NewMessageHandler(db)
	noteHandler := handler.NewNoteHandler(db)
	statsHandler := handler.NewStatsHandler(db, redisCache)

	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	secret := cfg.JWTSecret
	anyRole := []string{model.RoleAdmin, model.RoleTherapist, model.RolePatient}
	both := []string{model.RolePatient, model.RoleTherapist}

	api := r.Group("/api")
	{
		// Auth
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/register/therapist",
			middleware.RequireRoles(secret, model.RoleAdmin),
			authHandler.RegisterTherapist)
		api.POST("/auth/register/patient",
			middleware.RequireRoles(secret, model.RoleAdmin, model.RoleTherapist),
			authHandler.RegisterPatient)
		api.GET("/auth/me", middleware.RequireRoles(secret, anyRole...), authHandler.Me)
		api.PUT("/profile", middleware.RequireRoles(secret, both...), authHandler.UpdateProfile)

		// Patients
		api.GET("/patients",
			middleware.RequireRoles(secret, model.RoleTherapist, model.RoleAdmin),
			patientHandler.List)
		api.GET("/patients/:id",
			middleware.RequireRoles(secret, model.RoleTherapist, model.RoleAdmin),
			patientHandler.Get)
		api.PUT("/patients/:id",
			middleware.RequireRoles(secret, model.RoleTherapist),
			patientHandler.Update)
		api.GET("/patients/:id/journal",
			middleware.RequireRoles(secret, model.RoleTherapist),
			journalHandler.ListShared)
		api.GET("/patients/:id/notes",
			middleware.RequireRoles(secret, model.RoleTherapist),
			noteHandler.ListForPatient)

		// Tags
		api.GET("/tags", middleware.RequireRoles(secret, anyRole...), tagHandler.List)
		api.POST("/tags",
			middleware.RequireRoles(secret, model.RolePatient, model.RoleAdmin),
			tagHandler.Create)
		api.DELETE("/tags/:id",
			middleware.RequireRoles(secret, model.RolePatient, model.RoleAdmin),
			tagHandler.Delete)

		// Journal
		api.POST("/journal", middleware.RequireRoles(secret, model.RolePatient), journalHandler.Create)
		api.GET("/journal", middleware.RequireRoles(secret, model.RolePatient), journalHandler.ListMine)
		api.GET("/journal/:id", middleware.RequireRoles(secret, both...), journalHandler.Get)
		api.PUT("/journal/:id", middleware.RequireRoles(secret, model.RolePatient), journalHandler.Update)
		api.DELETE("/journal/:id", middleware.RequireRoles(secret, model.RolePatient), journalHandler.Delete)
		api.POST("/journal/:id/reflections",
			middleware.RequireRoles(secret, model.RolePatient),
			journalHandler.AddReflection)

		// Materials
		api.GET("/materials", middleware.RequireRoles(secret, both...), resourceHandler.List)
		api.POST("/materials", middleware.RequireRoles(secret, model.RoleTherapist), resourceHandler.Create)
		api.GET("/materials/:id", middleware.RequireRoles(secret, both...), resourceHandler.Get)
		api.PUT("/materials/:id", middleware.RequireRoles(secret, model.RoleTherapist), resourceHandler.Update)
		api.DELETE("/materials/:id", middleware.RequireRoles(secret, model.RoleTherapist), resourceHandler.Delete)
		api.POST("/materials/:id/share",
			middleware.RequireRoles(secret, model.RoleTherapist),
			resourceHandler.Share)
		api.DELETE("/materials/:id/share/:patientId",
			middleware.RequireRoles(secret, model.RoleTherapist),
			resourceHandler.Unshare)
		api.GET("/materials/:id/comments", middleware.RequireRoles(secret, both...), resourceHandler.ListComments)
		api.POST("/materials/:id/comments", middleware.RequireRoles(secret, both...), resourceHandler.AddComment)
		api.POST("/materials/:id/favorite", middleware.RequireRoles(secret, both...), resourceHandler.Favorite)
		api.DELETE("/materials/:id/favorite", middleware.RequireRoles(secret, both...), resourceHandler.Unfavorite)

		// Sessions
		api.GET("/sessions", middleware.RequireRoles(secret, both...), sessionHandler.List)
		api.POST("/sessions", middleware.RequireRoles(secret, model.RoleTherapist), sessionHandler.Create)
		api.GET("/sessions/:id", middleware.RequireRoles(secret, both...), sessionHandler.Get)
		api.PUT("/sessions/:id", middleware.RequireRoles(secret, model.RoleTherapist), sessionHandler.Update)
		api.DELETE("/sessions/:id", middleware.RequireRoles(secret, model.RoleTherapist), sessionHandler.Delete)
		api.POST("/sessions/:id/documents",
			middleware.RequireRoles(secret, model.RoleTherapist),
			sessionHandler.AddDocument)
		api.DELETE("/sessions/:id/documents/:docId",
			middleware.RequireRoles(secret, model.RoleTherapist),
			sessionHandler.DeleteDocument)
		api.POST("/sessions/:id/resources",
			middleware.RequireRoles(secret, model.RoleTherapist),
			sessionHandler.AttachResource)
		api.DELETE("/sessions/:id/resources/:resourceId",
			middleware.RequireRoles(secret, model.RoleTherapist),
			sessionHandler.DetachResource)
		api.PUT("/sessions/:id/resources/:resourceId",
			middleware.RequireRoles(secret, both...),
			sessionHandler.CompleteResource)

		// Messages
		api.GET("/messages", middleware.RequireRoles(secret, both...), messageHandler.List)
		api.POST("/messages", middleware.RequireRoles(secret, both...), messageHandler.Send)
		api.POST("/messages/read", middleware.RequireRoles(secret, both...), messageHandler.MarkRead)
		api.PUT("/messages/:id", middleware.RequireRoles(secret, both...), messageHandler.Update)
		api.DELETE("/messages/:id", middleware.RequireRoles(secret, both...), messageHandler.Delete)

		// Notes
		api.GET("/notes", middleware.RequireRoles(secret, both...), noteHandler.ListMine)
		api.POST("/notes", middleware.RequireRoles(secret, model.RoleTherapist), noteHandler.Create)
		api.GET("/notes/:id", middleware.RequireRoles(secret, both...), noteHandler.Get)
		api.PUT("/notes/:id", middleware.RequireRoles(secret, model.RoleTherapist), noteHandler.Update)
		api.DELETE("/notes/:id", middleware.RequireRoles(secret, model.RoleTherapist), noteHandler.Delete)

		// Stats
		api.GET("/stats", middleware.RequireRoles(secret, model.RoleAdmin), statsHandler.Get)
	}

	log.Printf("API server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
