package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Unlimited is the sentinel limit value meaning "no cap on this dimension".
const Unlimited int64 = -1

// Feature identifies a tier-gated capability. The set is closed: handlers gate
// on these constants and FeatureSet.Enabled rejects anything else.
type Feature string

const (
	FeaturePrivateTracks Feature = "private_tracks"
	FeatureCollaboration Feature = "collaboration"
	FeatureAdvancedStats Feature = "advanced_stats"
)

// FeatureSet is the per-tier feature flag set, stored as a JSON column.
type FeatureSet struct {
	PrivateTracks bool `json:"private_tracks"`
	Collaboration bool `json:"collaboration"`
	AdvancedStats bool `json:"advanced_stats"`
}

// Enabled reports whether the given feature is on. Unknown features are off.
func (f FeatureSet) Enabled(feature Feature) bool {
	switch feature {
	case FeaturePrivateTracks:
		return f.PrivateTracks
	case FeatureCollaboration:
		return f.Collaboration
	case FeatureAdvancedStats:
		return f.AdvancedStats
	default:
		return false
	}
}

// Value implements driver.Valuer so GORM stores the set as JSON text.
func (f FeatureSet) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for reading the JSON column back.
func (f *FeatureSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = FeatureSet{}
		return nil
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("unsupported feature set source type %T", src)
	}
}

// TierLimit holds the numeric limits and feature flags for one service tier.
// Exactly one row exists per tier name; rows are written only by the seeding
// upsert and read at request time by the quota evaluator.
type TierLimit struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	Tier                    string     `gorm:"size:32;not null;uniqueIndex" json:"tier"`
	MaxTracks               int64      `gorm:"not null;default:0" json:"max_tracks"`
	MaxStorageBytes         int64      `gorm:"not null;default:0" json:"max_storage_bytes"`
	MaxBandwidthBytes       int64      `gorm:"not null;default:0" json:"max_bandwidth_bytes"`
	MaxTrackSizeBytes       int64      `gorm:"not null;default:0" json:"max_track_size_bytes"`
	MaxTrackDurationSeconds int64      `gorm:"not null;default:0" json:"max_track_duration_seconds"`
	Features                FeatureSet `gorm:"type:text" json:"features"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}
