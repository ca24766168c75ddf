package quota

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teddywilson/wipshare-sub002/models"
	"github.com/teddywilson/wipshare-sub002/utils"
)

// GetUsage returns the usage snapshot for a user. Users without a row yet get
// a zero snapshot so quota checks work before the first upload.
func GetUsage(db *gorm.DB, userID uint) (models.UsageSnapshot, error) {
	var snap models.UsageSnapshot
	err := db.Where("user_id = ?", userID).First(&snap).Error
	if err == gorm.ErrRecordNotFound {
		return models.UsageSnapshot{UserID: userID}, nil
	}
	if err != nil {
		return models.UsageSnapshot{}, err
	}
	return snap, nil
}

// ApplyDelta bumps a user's usage counters by a single atomic upsert.
// Counters never drop below zero even if a delete races a reconciler pass.
func ApplyDelta(db *gorm.DB, userID uint, delta Delta) error {
	snap := models.UsageSnapshot{
		UserID:         userID,
		TrackCount:     clampNonNegative(delta.Tracks),
		StorageBytes:   clampNonNegative(delta.StorageBytes),
		BandwidthBytes: clampNonNegative(delta.BandwidthBytes),
	}
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"track_count":     gorm.Expr("GREATEST(track_count + ?, 0)", delta.Tracks),
			"storage_bytes":   gorm.Expr("GREATEST(storage_bytes + ?, 0)", delta.StorageBytes),
			"bandwidth_bytes": gorm.Expr("GREATEST(bandwidth_bytes + ?, 0)", delta.BandwidthBytes),
			"updated_at":      time.Now(),
		}),
	}).Create(&snap).Error
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// RecordPlay bumps the daily play counter for a track. Called asynchronously
// from the download path; failures only log.
func RecordPlay(db *gorm.DB, trackID uint) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	metric := models.PlayMetric{Date: today, TrackID: trackID, Count: 1}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}, {Name: "track_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"count":      gorm.Expr("count + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&metric).Error
	if err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("record play failed track=%d: %v", trackID, err)
	}
}

// StartUsageReconciler launches a background goroutine that periodically
// recomputes track count and storage counters from the track table. The quota
// check and the counter bump are not one transaction, so two concurrent
// uploads can both pass against a stale snapshot; this pass repairs the drift.
// Bandwidth is a monotonic counter and is left alone.
func StartUsageReconciler(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		for {
			// Sleep first to avoid racing immediately at startup
			time.Sleep(interval)
			reconcileOnce(db)
		}
	}()
}

type usageRollup struct {
	UserID       uint
	TrackCount   int64
	StorageBytes int64
}

func reconcileOnce(db *gorm.DB) {
	var rollups []usageRollup
	err := db.Model(&models.Track{}).
		Select("user_id, COUNT(*) AS track_count, COALESCE(SUM(size_bytes), 0) AS storage_bytes").
		Group("user_id").
		Scan(&rollups).Error
	if err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("usage reconciler rollup failed: %v", err)
		}
		return
	}

	seen := make(map[uint]bool, len(rollups))
	for _, r := range rollups {
		seen[r.UserID] = true
		err := db.Model(&models.UsageSnapshot{}).
			Where("user_id = ?", r.UserID).
			Updates(map[string]interface{}{
				"track_count":   r.TrackCount,
				"storage_bytes": r.StorageBytes,
				"updated_at":    time.Now(),
			}).Error
		if err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("usage reconciler update failed user=%d: %v", r.UserID, err)
		}
	}

	// Users whose last track was deleted roll back to zero.
	var stale []models.UsageSnapshot
	if err := db.Where("track_count > 0").Find(&stale).Error; err != nil {
		return
	}
	for _, snap := range stale {
		if seen[snap.UserID] {
			continue
		}
		err := db.Model(&models.UsageSnapshot{}).
			Where("user_id = ?", snap.UserID).
			Updates(map[string]interface{}{
				"track_count":   0,
				"storage_bytes": 0,
				"updated_at":    time.Now(),
			}).Error
		if err != nil && utils.Sugar != nil {
			utils.Sugar.Warnf("usage reconciler zero failed user=%d: %v", snap.UserID, err)
		}
	}
}
