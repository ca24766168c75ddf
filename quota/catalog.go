package quota

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teddywilson/wipshare-sub002/models"
	"github.com/teddywilson/wipshare-sub002/utils"
)

const (
	mib = int64(1) << 20
	gib = int64(1) << 30
)

// DefaultTiers is the catalog seeded at deploy time. Any string is a valid
// tier name at the catalog level; these three are what the product sells.
var DefaultTiers = []models.TierLimit{
	{
		Tier:                    "free",
		MaxTracks:               10,
		MaxStorageBytes:         1 * gib,
		MaxBandwidthBytes:       10 * gib,
		MaxTrackSizeBytes:       50 * mib,
		MaxTrackDurationSeconds: 600,
		Features:                models.FeatureSet{},
	},
	{
		Tier:                    "pro",
		MaxTracks:               100,
		MaxStorageBytes:         50 * gib,
		MaxBandwidthBytes:       500 * gib,
		MaxTrackSizeBytes:       500 * mib,
		MaxTrackDurationSeconds: 3600,
		Features: models.FeatureSet{
			PrivateTracks: true,
			Collaboration: true,
		},
	},
	{
		Tier:                    "enterprise",
		MaxTracks:               models.Unlimited,
		MaxStorageBytes:         models.Unlimited,
		MaxBandwidthBytes:       models.Unlimited,
		MaxTrackSizeBytes:       models.Unlimited,
		MaxTrackDurationSeconds: models.Unlimited,
		Features: models.FeatureSet{
			PrivateTracks: true,
			Collaboration: true,
			AdvancedStats: true,
		},
	},
}

// UpsertTier creates the tier row if absent, else overwrites every limit field
// with the supplied values (full replace, not merge). Repeated calls with
// identical input leave the row unchanged in effect.
func UpsertTier(db *gorm.DB, tier models.TierLimit) error {
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tier"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"max_tracks",
			"max_storage_bytes",
			"max_bandwidth_bytes",
			"max_track_size_bytes",
			"max_track_duration_seconds",
			"features",
			"updated_at",
		}),
	}).Create(&tier).Error
	if err != nil {
		return err
	}
	// Covers both per-tier entries and the catalog listing.
	utils.InvalidateByPrefix("cache:tier")
	return nil
}

// SeedDefaultTiers upserts the built-in catalog. Safe to run any number of
// times; returns the first error encountered.
func SeedDefaultTiers(db *gorm.DB) error {
	for _, tier := range DefaultTiers {
		if err := UpsertTier(db, tier); err != nil {
			return err
		}
	}
	return nil
}

func tierCacheKey(name string) string {
	return "cache:tier:" + name
}

// GetTierLimit loads the limits for a tier name, serving from the Redis cache
// when possible. The catalog is read-mostly, so a short TTL keeps reads cheap
// without risking stale limits for long after a re-seed.
func GetTierLimit(db *gorm.DB, name string) (models.TierLimit, error) {
	if b, ok := utils.CacheGetBytes(tierCacheKey(name)); ok {
		var cached models.TierLimit
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	var limit models.TierLimit
	if err := db.Where("tier = ?", name).First(&limit).Error; err != nil {
		return models.TierLimit{}, err
	}
	utils.CacheSetJSON(tierCacheKey(name), limit, 10*time.Minute)
	return limit, nil
}

// ListTiers returns the whole catalog ordered by name.
func ListTiers(db *gorm.DB) ([]models.TierLimit, error) {
	var tiers []models.TierLimit
	if err := db.Order("tier ASC").Find(&tiers).Error; err != nil {
		return nil, err
	}
	return tiers, nil
}
