package models

import "time"

// Comment represents feedback left on a track.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TrackID   uint      `gorm:"index;not null" json:"track_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
