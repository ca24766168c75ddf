package models

import "time"

// PlayMetric stores aggregated download/play counts per day and track.
type PlayMetric struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"index:idx_play_date_track,unique;type:date;not null" json:"date"`
	TrackID   uint      `gorm:"index;index:idx_play_date_track,unique;not null" json:"track_id"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
