package quota

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddywilson/wipshare-sub002/models"
)

func freeLimits() models.TierLimit {
	return models.TierLimit{
		Tier:                    "free",
		MaxTracks:               10,
		MaxStorageBytes:         1 << 30,
		MaxBandwidthBytes:       10 << 30,
		MaxTrackSizeBytes:       50 << 20,
		MaxTrackDurationSeconds: 600,
	}
}

func TestCheckQuotaAllowsWithinLimits(t *testing.T) {
	usage := models.UsageSnapshot{TrackCount: 3, StorageBytes: 100 << 20}
	err := CheckQuota(freeLimits(), usage, Delta{
		Tracks:               1,
		StorageBytes:         10 << 20,
		TrackSizeBytes:       10 << 20,
		TrackDurationSeconds: 300,
	})
	assert.NoError(t, err)
}

func TestCheckQuotaBoundaryInclusive(t *testing.T) {
	limits := freeLimits()
	usage := models.UsageSnapshot{TrackCount: 9}

	// landing exactly on the limit is allowed
	assert.NoError(t, CheckQuota(limits, usage, Delta{Tracks: 1}))

	// one past the limit is denied
	usage.TrackCount = 10
	err := CheckQuota(limits, usage, Delta{Tracks: 1})
	require.Error(t, err)

	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, DimensionTrackCount, qerr.Dimension)
	assert.Empty(t, qerr.Feature)
}

func TestCheckQuotaUnlimitedSentinelNeverDenies(t *testing.T) {
	limits := models.TierLimit{
		Tier:                    "enterprise",
		MaxTracks:               models.Unlimited,
		MaxStorageBytes:         models.Unlimited,
		MaxBandwidthBytes:       models.Unlimited,
		MaxTrackSizeBytes:       models.Unlimited,
		MaxTrackDurationSeconds: models.Unlimited,
	}
	usage := models.UsageSnapshot{
		TrackCount:     1 << 40,
		StorageBytes:   1 << 60,
		BandwidthBytes: 1 << 60,
	}
	err := CheckQuota(limits, usage, Delta{
		Tracks:               1 << 20,
		StorageBytes:         1 << 50,
		BandwidthBytes:       1 << 50,
		TrackSizeBytes:       1 << 50,
		TrackDurationSeconds: 1 << 30,
	})
	assert.NoError(t, err)
}

func TestCheckQuotaReportsFirstDimensionInOrder(t *testing.T) {
	// Both trackCount and storageBytes are exceeded; the earlier dimension
	// in the evaluation order must be the one reported.
	limits := freeLimits()
	usage := models.UsageSnapshot{TrackCount: 10, StorageBytes: 1 << 30}

	err := CheckQuota(limits, usage, Delta{Tracks: 1, StorageBytes: 1})
	require.Error(t, err)

	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, DimensionTrackCount, qerr.Dimension)
}

func TestCheckQuotaPerTrackDimensionsIgnoreUsage(t *testing.T) {
	limits := freeLimits()
	// Storage nearly full, but the per-track size check only looks at the
	// requested size against the cap.
	usage := models.UsageSnapshot{StorageBytes: 0}

	err := CheckQuota(limits, usage, Delta{TrackSizeBytes: 50 << 20})
	assert.NoError(t, err)

	err = CheckQuota(limits, usage, Delta{TrackSizeBytes: 50<<20 + 1})
	require.Error(t, err)
	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, DimensionTrackSizeBytes, qerr.Dimension)
}

func TestCheckQuotaDurationCap(t *testing.T) {
	err := CheckQuota(freeLimits(), models.UsageSnapshot{}, Delta{TrackDurationSeconds: 601})
	require.Error(t, err)
	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, DimensionTrackDurationSeconds, qerr.Dimension)
}

func TestCheckQuotaHugeDeltaDoesNotWrap(t *testing.T) {
	// A bounded storage cap next to an unlimited per-track cap must still
	// deny an absurd declared size instead of wrapping the sum negative.
	limits := freeLimits()
	limits.MaxTrackSizeBytes = models.Unlimited
	usage := models.UsageSnapshot{StorageBytes: 500 << 20}

	err := CheckQuota(limits, usage, Delta{StorageBytes: math.MaxInt64})
	require.Error(t, err)

	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, DimensionStorageBytes, qerr.Dimension)

	// Same shape on the count dimension.
	err = CheckQuota(freeLimits(), models.UsageSnapshot{TrackCount: 5}, Delta{Tracks: math.MaxInt64})
	require.Error(t, err)
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, DimensionTrackCount, qerr.Dimension)
}

func TestCheckQuotaZeroDeltaAtLimit(t *testing.T) {
	// An operation consuming nothing on a maxed-out dimension still passes.
	usage := models.UsageSnapshot{TrackCount: 10}
	assert.NoError(t, CheckQuota(freeLimits(), usage, Delta{BandwidthBytes: 1}))
}

func TestCheckFeature(t *testing.T) {
	limits := models.TierLimit{
		Tier:     "pro",
		Features: models.FeatureSet{PrivateTracks: true},
	}

	assert.NoError(t, CheckFeature(limits, models.FeaturePrivateTracks))

	err := CheckFeature(limits, models.FeatureAdvancedStats)
	require.Error(t, err)

	var qerr *Error
	require.True(t, errors.As(err, &qerr))
	assert.Equal(t, models.FeatureAdvancedStats, qerr.Feature)
	assert.Empty(t, qerr.Dimension)
	assert.Contains(t, err.Error(), "feature not available")
}

func TestErrorMessages(t *testing.T) {
	dim := &Error{Dimension: DimensionStorageBytes}
	assert.Equal(t, "tier limit exceeded: storageBytes", dim.Error())

	feat := &Error{Feature: models.FeaturePrivateTracks}
	assert.Equal(t, "feature not available for tier: private_tracks", feat.Error())
}
