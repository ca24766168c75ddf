package quota

import (
	"fmt"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/teddywilson/wipshare-sub002/models"
)

func TestMain(m *testing.M) {
	mr, err := miniredis.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniredis: %v\n", err)
		os.Exit(1)
	}
	host, port, _ := net.SplitHostPort(mr.Addr())
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("REDIS_HOST", host)
	os.Setenv("REDIS_PORT", port)

	code := m.Run()
	mr.Close()
	os.Exit(code)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TierLimit{}))
	return db
}

func loadTier(t *testing.T, db *gorm.DB, name string) models.TierLimit {
	t.Helper()
	var row models.TierLimit
	require.NoError(t, db.Where("tier = ?", name).First(&row).Error)
	return row
}

func TestUpsertTierIdempotent(t *testing.T) {
	db := newTestDB(t)

	tier := models.TierLimit{
		Tier:                    "indie",
		MaxTracks:               25,
		MaxStorageBytes:         5 << 30,
		MaxBandwidthBytes:       50 << 30,
		MaxTrackSizeBytes:       100 << 20,
		MaxTrackDurationSeconds: 1200,
		Features:                models.FeatureSet{PrivateTracks: true},
	}

	require.NoError(t, UpsertTier(db, tier))
	first := loadTier(t, db, "indie")

	require.NoError(t, UpsertTier(db, tier))
	second := loadTier(t, db, "indie")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.MaxTracks, second.MaxTracks)
	assert.Equal(t, first.MaxStorageBytes, second.MaxStorageBytes)
	assert.Equal(t, first.MaxBandwidthBytes, second.MaxBandwidthBytes)
	assert.Equal(t, first.MaxTrackSizeBytes, second.MaxTrackSizeBytes)
	assert.Equal(t, first.MaxTrackDurationSeconds, second.MaxTrackDurationSeconds)
	assert.Equal(t, first.Features, second.Features)

	var count int64
	require.NoError(t, db.Model(&models.TierLimit{}).Where("tier = ?", "indie").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestUpsertTierFullReplace(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, UpsertTier(db, models.TierLimit{
		Tier:                    "label",
		MaxTracks:               200,
		MaxStorageBytes:         100 << 30,
		MaxBandwidthBytes:       models.Unlimited,
		MaxTrackSizeBytes:       1 << 30,
		MaxTrackDurationSeconds: 7200,
		Features:                models.FeatureSet{PrivateTracks: true, Collaboration: true, AdvancedStats: true},
	}))
	before := loadTier(t, db, "label")

	// Re-upsert with smaller and zero values: every column must be
	// overwritten, nothing merged from the previous row.
	require.NoError(t, UpsertTier(db, models.TierLimit{
		Tier:                    "label",
		MaxTracks:               5,
		MaxStorageBytes:         0,
		MaxBandwidthBytes:       1 << 30,
		MaxTrackSizeBytes:       models.Unlimited,
		MaxTrackDurationSeconds: 0,
		Features:                models.FeatureSet{},
	}))
	after := loadTier(t, db, "label")

	assert.Equal(t, before.ID, after.ID)
	assert.EqualValues(t, 5, after.MaxTracks)
	assert.EqualValues(t, 0, after.MaxStorageBytes)
	assert.EqualValues(t, 1<<30, after.MaxBandwidthBytes)
	assert.Equal(t, models.Unlimited, after.MaxTrackSizeBytes)
	assert.EqualValues(t, 0, after.MaxTrackDurationSeconds)
	assert.Equal(t, models.FeatureSet{}, after.Features)
}

func TestSeedDefaultTiersIdempotent(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, SeedDefaultTiers(db))
	require.NoError(t, SeedDefaultTiers(db))

	var count int64
	require.NoError(t, db.Model(&models.TierLimit{}).Count(&count).Error)
	assert.EqualValues(t, len(DefaultTiers), count)

	free := loadTier(t, db, "free")
	assert.EqualValues(t, 10, free.MaxTracks)
	assert.EqualValues(t, 600, free.MaxTrackDurationSeconds)
	assert.False(t, free.Features.PrivateTracks)
}

func TestGetTierLimitReflectsReseed(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, UpsertTier(db, models.TierLimit{Tier: "beta", MaxTracks: 3}))

	got, err := GetTierLimit(db, "beta")
	require.NoError(t, err)
	assert.EqualValues(t, 3, got.MaxTracks)

	// The upsert invalidates the cached entry, so the next read sees the
	// new limits, not the cached old ones.
	require.NoError(t, UpsertTier(db, models.TierLimit{Tier: "beta", MaxTracks: 30}))

	got, err = GetTierLimit(db, "beta")
	require.NoError(t, err)
	assert.EqualValues(t, 30, got.MaxTracks)
}

func TestGetTierLimitUnknownTier(t *testing.T) {
	db := newTestDB(t)
	_, err := GetTierLimit(db, "no-such-tier")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
