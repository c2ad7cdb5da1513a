package packets

import (
	"time"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

// ScheduleEntryResponse flattens times to RFC3339.
type ScheduleEntryResponse struct {
	ScheduleID    string           `json:"schedule_id"`
	ContentID     string           `json:"content_id"`
	ContentType   string           `json:"content_type"`
	GroupID       string           `json:"group_id"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`
	TotalDuration int              `json:"total_duration"`
	Priority      int              `json:"priority"`
	Weekdays      []int            `json:"weekdays"`
	TimeSlots     []model.TimeSlot `json:"time_slots"`
}

func NewScheduleEntryResponse(e model.ScheduleEntry) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		ScheduleID:    e.ScheduleID,
		ContentID:     e.ContentID,
		ContentType:   string(e.ContentType),
		GroupID:       e.GroupID,
		StartTime:     e.StartTime.UTC().Format(time.RFC3339),
		EndTime:       e.EndTime.UTC().Format(time.RFC3339),
		TotalDuration: e.TotalDuration,
		Priority:      e.Priority,
		Weekdays:      e.Weekdays,
		TimeSlots:     e.TimeSlots,
	}
}

type CreateSchedulesResponse struct {
	Created int                     `json:"created"`
	Entries []ScheduleEntryResponse `json:"entries"`
}

type GroupDateResponse struct {
	Date    string `json:"date"`
	GroupID string `json:"group_id"`
}

type DeleteSchedulesResponse struct {
	Deleted  int                 `json:"deleted"`
	Affected []GroupDateResponse `json:"affected"`
}

type PushResponse struct {
	Pushed       bool     `json:"pushed"`
	FailedGroups []string `json:"failed_groups,omitempty"`
}

type ImpressionResponse struct {
	Date              string `json:"date"`
	GroupID           string `json:"group_id"`
	AdID              string `json:"ad_id"`
	DeviceCount       int    `json:"device_count"`
	TotalLoopDuration int    `json:"total_loop_duration"`
	LoopsPerDay       int    `json:"loops_per_day"`
	Impressions       int    `json:"impressions"`
}

func NewImpressionResponse(s model.ImpressionSummary) ImpressionResponse {
	return ImpressionResponse{
		Date:              s.SummaryDate.UTC().Format(time.DateOnly),
		GroupID:           s.GroupID,
		AdID:              s.AdID,
		DeviceCount:       s.DeviceCount,
		TotalLoopDuration: s.TotalLoopDuration,
		LoopsPerDay:       s.LoopsPerDay,
		Impressions:       s.Impressions,
	}
}

type StatusResponse struct {
	Status string `json:"status"`
}
