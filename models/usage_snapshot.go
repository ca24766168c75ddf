package models

import "time"

// UsageSnapshot keeps per-user resource counters evaluated against tier limits.
// Counters are bumped by upload confirmation, download grants and deletions via
// single-row atomic updates; a background reconciler repairs drift from the
// track table.
type UsageSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	TrackCount     int64     `gorm:"not null;default:0" json:"track_count"`
	StorageBytes   int64     `gorm:"not null;default:0" json:"storage_bytes"`
	BandwidthBytes int64     `gorm:"not null;default:0" json:"bandwidth_bytes"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
