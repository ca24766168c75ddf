package models

import "time"

// Track visibility values accepted over the API.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// Track represents a work-in-progress recording shared by a musician.
// The audio bytes live in object storage; ObjectKey is the durable reference.
type Track struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"index;not null" json:"user_id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Description     string    `gorm:"size:1000" json:"description"`
	Visibility      string    `gorm:"size:16;not null;default:'public'" json:"visibility"`
	Tags            string    `gorm:"type:text" json:"tags"` // JSON array of tag strings
	ObjectKey       string    `gorm:"size:1024;not null;uniqueIndex:idx_tracks_object_key,length:255" json:"object_key"`
	SizeBytes       int64     `gorm:"not null;default:0" json:"size_bytes"`
	DurationSeconds int       `gorm:"not null;default:0" json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	User            User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Comments        []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"comments"`
}

// IsPublic reports whether the track is visible to everyone.
func (t *Track) IsPublic() bool {
	return t.Visibility == VisibilityPublic
}
