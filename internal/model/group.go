package model

import "time"

// DeviceGroup is a set of devices sharing one playlist topic.
type DeviceGroup struct {
	ID               string     `db:"id"                json:"id"`
	Name             string     `db:"name"              json:"name"`
	ScrollingMessage *string    `db:"scrolling_message" json:"scrolling_message,omitempty"`
	LastPushedAt     *time.Time `db:"last_pushed_at"    json:"last_pushed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at"        json:"created_at"`
}

// Device represents a registered signage player.
type Device struct {
	ID        string     `db:"id"         json:"id"`
	DeviceID  string     `db:"device_id"  json:"device_id"`
	GroupID   *string    `db:"group_id"   json:"group_id,omitempty"`
	LastSeen  *time.Time `db:"last_seen"  json:"last_seen,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
