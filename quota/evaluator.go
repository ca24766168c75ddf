package quota

import (
	"fmt"

	"github.com/teddywilson/wipshare-sub002/models"
)

// Dimension names reported on denial. Evaluation always runs in this order and
// stops at the first violation, so concurrent violations report the
// lowest-indexed dimension.
const (
	DimensionTrackCount           = "trackCount"
	DimensionStorageBytes         = "storageBytes"
	DimensionBandwidthBytes       = "bandwidthBytes"
	DimensionTrackSizeBytes       = "trackSizeBytes"
	DimensionTrackDurationSeconds = "trackDurationSeconds"
)

// Delta describes the resources a requested operation would consume.
// Zero fields do not participate in the check.
type Delta struct {
	Tracks               int64
	StorageBytes         int64
	BandwidthBytes       int64
	TrackSizeBytes       int64
	TrackDurationSeconds int64
}

// Error is a denied quota decision. Exactly one of Dimension or Feature is set.
type Error struct {
	Dimension string
	Feature   models.Feature
}

func (e *Error) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("feature not available for tier: %s", e.Feature)
	}
	return fmt.Sprintf("tier limit exceeded: %s", e.Dimension)
}

// CheckQuota decides whether an operation consuming delta is permitted for a
// user with the given tier limits and current usage. It is a pure function of
// its inputs: no I/O, safe to call concurrently. A nil return means allowed;
// otherwise the returned *Error names the first violated dimension.
//
// A limit equal to models.Unlimited always passes its dimension. Otherwise the
// dimension passes iff usage + delta <= limit; requests landing exactly on the
// boundary are allowed.
func CheckQuota(limits models.TierLimit, usage models.UsageSnapshot, delta Delta) error {
	checks := []struct {
		dimension string
		limit     int64
		used      int64
		requested int64
	}{
		{DimensionTrackCount, limits.MaxTracks, usage.TrackCount, delta.Tracks},
		{DimensionStorageBytes, limits.MaxStorageBytes, usage.StorageBytes, delta.StorageBytes},
		{DimensionBandwidthBytes, limits.MaxBandwidthBytes, usage.BandwidthBytes, delta.BandwidthBytes},
		{DimensionTrackSizeBytes, limits.MaxTrackSizeBytes, 0, delta.TrackSizeBytes},
		{DimensionTrackDurationSeconds, limits.MaxTrackDurationSeconds, 0, delta.TrackDurationSeconds},
	}

	for _, c := range checks {
		if c.limit == models.Unlimited {
			continue
		}
		// Headroom form: c.used+c.requested can wrap for huge deltas.
		if c.requested > c.limit-c.used {
			return &Error{Dimension: c.dimension}
		}
	}
	return nil
}

// CheckFeature verifies that a tier-gated capability is enabled for the tier.
// Absent or false flags deny with a feature-specific reason.
func CheckFeature(limits models.TierLimit, feature models.Feature) error {
	if !limits.Features.Enabled(feature) {
		return &Error{Feature: feature}
	}
	return nil
}
