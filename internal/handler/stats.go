package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/careloop/api/internal/cache"
	"github.com/careloop/api/internal/model"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const statsCacheKey = "stats:dashboard"
const statsCacheTTL = 60 * time.Second

type StatsHandler struct {
	db    *gorm.DB
	cache *cache.RedisCache
}

func NewStatsHandler(db *gorm.DB, redisCache *cache.RedisCache) *StatsHandler {
	return &StatsHandler{db: db, cache: redisCache}
}

type DashboardStats struct {
	UsersByRole      map[string]int64 `json:"usersByRole"`
	SessionsByStatus map[string]int64 `json:"sessionsByStatus"`
	JournalEntries   int64            `json:"journalEntries"`
	SharedEntries    int64            `json:"sharedEntries"`
	Messages         int64            `json:"messages"`
	Resources        int64            `json:"resources"`
	SharedResources  int64            `json:"sharedResources"`
	Tags             int64            `json:"tags"`
	GlobalTags       int64            `json:"globalTags"`
}

// Get returns practice-wide counts, admin only. Served from redis when warm;
// without redis it just recomputes (fail-open).
func (h *StatsHandler) Get(c *gin.Context) {
	if h.cache != nil {
		var cached DashboardStats
		if err := h.cache.GetJSON(c.Request.Context(), statsCacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	var stats DashboardStats

	stats.UsersByRole = make(map[string]int64)
	type roleCount struct {
		Role  string
		Count int64
	}
	var roleCounts []roleCount
	h.db.Model(&model.User{}).
		Select("role, count(*) as count").
		Group("role").
		Scan(&roleCounts)
	for _, rc := range roleCounts {
		stats.UsersByRole[rc.Role] = rc.Count
	}

	stats.SessionsByStatus = make(map[string]int64)
	type statusCount struct {
		Status string
		Count  int64
	}
	var statusCounts []statusCount
	h.db.Model(&model.TherapySession{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts)
	for _, sc := range statusCounts {
		stats.SessionsByStatus[sc.Status] = sc.Count
	}

	h.db.Model(&model.JournalEntry{}).Count(&stats.JournalEntries)
	h.db.Model(&model.JournalEntry{}).Where("shared = ?", true).Count(&stats.SharedEntries)
	h.db.Model(&model.Message{}).Count(&stats.Messages)
	h.db.Model(&model.Resource{}).Count(&stats.Resources)
	h.db.Model(&model.SharedResource{}).Count(&stats.SharedResources)
	h.db.Model(&model.Tag{}).Count(&stats.Tags)
	h.db.Model(&model.Tag{}).Where("is_global = ?", true).Count(&stats.GlobalTags)

	if h.cache != nil {
		if err := h.cache.SetJSON(c.Request.Context(), statsCacheKey, stats, statsCacheTTL); err != nil {
			log.Printf("Warning: failed to cache stats: %v", err)
		}
	}

	c.JSON(http.StatusOK, stats)
}
