package model

import "time"

// ActiveContent is a schedule entry joined with the content it plays.
type ActiveContent struct {
	ScheduleID  string      `db:"schedule_id"`
	ContentID   string      `db:"content_id"`
	ContentType ContentType `db:"content_type"`
	Priority    int         `db:"priority"`
	StartTime   time.Time   `db:"start_time"`
	EndTime     time.Time   `db:"end_time"`
	Name        string      `db:"name"`
	StorageKey  string      `db:"storage_key"`
	Duration    int         `db:"duration"`
}

// Playlist is the self-contained payload pushed to a group.
type Playlist struct {
	GroupID     string         `json:"group_id"`
	Message     string         `json:"message"`
	Ads         []PlaylistItem `json:"ads"`
	Placeholder *string        `json:"placeholder,omitempty"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type PlaylistItem struct {
	ContentID   string      `json:"content_id"`
	ContentType ContentType `json:"content_type"`
	Name        string      `json:"name"`
	URL         string      `json:"url"`
	URLExpiry   time.Time   `json:"url_expires_at"`
	Duration    int         `json:"duration"`
	TotalPlays  int         `json:"total_plays"`
	StartTime   time.Time   `json:"start_time"`
}
