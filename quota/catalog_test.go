package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teddywilson/wipshare-sub002/models"
)

func TestDefaultTiersCatalog(t *testing.T) {
	require.Len(t, DefaultTiers, 3)

	byName := map[string]models.TierLimit{}
	for _, tier := range DefaultTiers {
		byName[tier.Tier] = tier
	}

	free, ok := byName["free"]
	require.True(t, ok)
	assert.EqualValues(t, 10, free.MaxTracks)
	assert.EqualValues(t, 1<<30, free.MaxStorageBytes)
	assert.EqualValues(t, 600, free.MaxTrackDurationSeconds)
	assert.False(t, free.Features.PrivateTracks)
	assert.False(t, free.Features.AdvancedStats)

	pro, ok := byName["pro"]
	require.True(t, ok)
	assert.EqualValues(t, 100, pro.MaxTracks)
	assert.True(t, pro.Features.PrivateTracks)
	assert.True(t, pro.Features.Collaboration)
	assert.False(t, pro.Features.AdvancedStats)

	ent, ok := byName["enterprise"]
	require.True(t, ok)
	assert.Equal(t, models.Unlimited, ent.MaxTracks)
	assert.Equal(t, models.Unlimited, ent.MaxStorageBytes)
	assert.Equal(t, models.Unlimited, ent.MaxBandwidthBytes)
	assert.Equal(t, models.Unlimited, ent.MaxTrackSizeBytes)
	assert.Equal(t, models.Unlimited, ent.MaxTrackDurationSeconds)
	assert.True(t, ent.Features.PrivateTracks)
	assert.True(t, ent.Features.Collaboration)
	assert.True(t, ent.Features.AdvancedStats)
}

func TestFeatureSetRoundTrip(t *testing.T) {
	orig := models.FeatureSet{PrivateTracks: true, AdvancedStats: true}

	val, err := orig.Value()
	require.NoError(t, err)

	var decoded models.FeatureSet
	require.NoError(t, decoded.Scan(val))
	assert.Equal(t, orig, decoded)

	// byte slices come back from some drivers
	var fromBytes models.FeatureSet
	require.NoError(t, fromBytes.Scan([]byte(`{"private_tracks":true}`)))
	assert.True(t, fromBytes.PrivateTracks)
	assert.False(t, fromBytes.Collaboration)

	var fromNil models.FeatureSet
	require.NoError(t, fromNil.Scan(nil))
	assert.Equal(t, models.FeatureSet{}, fromNil)
}

func TestFeatureSetEnabledUnknownFeature(t *testing.T) {
	all := models.FeatureSet{PrivateTracks: true, Collaboration: true, AdvancedStats: true}
	assert.True(t, all.Enabled(models.FeaturePrivateTracks))
	assert.False(t, all.Enabled(models.Feature("time_travel")))
	assert.False(t, all.Enabled(models.Feature("")))
}
