package model

import "time"

// ImpressionSummary is the per (date, group, ad) daily impression estimate.
type ImpressionSummary struct {
	SummaryDate       time.Time `db:"summary_date"        json:"summary_date"`
	GroupID           string    `db:"group_id"            json:"group_id"`
	AdID              string    `db:"ad_id"               json:"ad_id"`
	DeviceCount       int       `db:"device_count"        json:"device_count"`
	TotalLoopDuration int       `db:"total_loop_duration" json:"total_loop_duration"`
	LoopsPerDay       int       `db:"loops_per_day"       json:"loops_per_day"`
	Impressions       int       `db:"impressions"         json:"impressions"`
}
