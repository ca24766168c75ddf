package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/models"
	"github.com/teddywilson/wipshare-sub002/quota"
	"github.com/teddywilson/wipshare-sub002/utils"
)

// StatsController exposes usage accounting and per-track play statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a StatsController.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// MyUsage returns the caller's current usage next to their tier limits so
// clients can render quota bars without a second request.
func (s *StatsController) MyUsage(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	limits, err := quota.GetTierLimit(s.db, user.Tier)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load tier limits")
		return
	}

	usage, err := quota.GetUsage(s.db, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to load usage")
		return
	}

	utils.Success(ctx, gin.H{
		"tier": user.Tier,
		"usage": gin.H{
			"track_count":     usage.TrackCount,
			"storage_bytes":   usage.StorageBytes,
			"bandwidth_bytes": usage.BandwidthBytes,
		},
		"limits": gin.H{
			"max_tracks":                 limits.MaxTracks,
			"max_storage_bytes":          limits.MaxStorageBytes,
			"max_bandwidth_bytes":        limits.MaxBandwidthBytes,
			"max_track_size_bytes":       limits.MaxTrackSizeBytes,
			"max_track_duration_seconds": limits.MaxTrackDurationSeconds,
		},
		"features": limits.Features,
	})
}

// TrackStats returns play counts for a track. Everyone sees the total;
// the daily breakdown is reserved for owners on a tier with advanced stats.
func (s *StatsController) TrackStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	var track models.Track
	if err := s.db.First(&track, ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50072, "failed to get track")
		return
	}

	if !track.IsPublic() && track.UserID != userID {
		utils.Error(ctx, http.StatusNotFound, 40402, "track not found")
		return
	}

	var total int64
	if err := s.db.Model(&models.PlayMetric{}).
		Where("track_id = ?", track.ID).
		Select("COALESCE(SUM(count), 0)").
		Scan(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50073, "failed to aggregate plays")
		return
	}

	resp := gin.H{"track_id": track.ID, "total_plays": total}

	if track.UserID == userID {
		var owner models.User
		if err := s.db.First(&owner, track.UserID).Error; err == nil {
			if limits, err := quota.GetTierLimit(s.db, owner.Tier); err == nil &&
				quota.CheckFeature(limits, models.FeatureAdvancedStats) == nil {
				resp["daily"] = s.dailyPlays(track.ID, 30)
			}
		}
	}

	utils.Success(ctx, resp)
}

func (s *StatsController) dailyPlays(trackID uint, days int) []gin.H {
	since := time.Now().UTC().AddDate(0, 0, -days)

	var metrics []models.PlayMetric
	if err := s.db.
		Where("track_id = ? AND date >= ?", trackID, since).
		Order("date ASC").
		Find(&metrics).Error; err != nil {
		utils.Sugar.Errorw("failed to load daily plays", "err", err, "track_id", trackID)
		return nil
	}

	out := make([]gin.H, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, gin.H{
			"date":  m.Date.Format("2006-01-02"),
			"count": m.Count,
		})
	}
	return out
}
