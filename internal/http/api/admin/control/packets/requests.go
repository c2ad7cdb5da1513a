package packets

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

type TimeSlotRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CreateScheduleRequest is validated by the expander, not by binding tags, so that errors
// come back in a fixed order.
type CreateScheduleRequest struct {
	ContentID     string            `json:"content_id"`
	ContentType   string            `json:"content_type"`
	StartDate     string            `json:"start_date"`
	EndDate       string            `json:"end_date"`
	TotalDuration *int              `json:"total_duration"`
	Priority      *int              `json:"priority"`
	GroupIDs      []string          `json:"group_ids"`
	Weekdays      []int             `json:"weekdays"`
	TimeSlots     []TimeSlotRequest `json:"time_slots"`
}

func (r CreateScheduleRequest) ToModel() (model.ScheduleRequest, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("end_date: %w", err)
	}

	var slots []model.TimeSlot
	for _, s := range r.TimeSlots {
		slots = append(slots, model.TimeSlot{Start: s.Start, End: s.End})
	}

	return model.ScheduleRequest{
		ContentID:     r.ContentID,
		ContentType:   model.ContentType(r.ContentType),
		StartDate:     start,
		EndDate:       end,
		TotalDuration: r.TotalDuration,
		Priority:      r.Priority,
		GroupIDs:      r.GroupIDs,
		Weekdays:      r.Weekdays,
		TimeSlots:     slots,
	}, nil
}

// DeleteSchedulesRequest mirrors model.ScheduleFilter with string dates.
type DeleteSchedulesRequest struct {
	ScheduleIDs []string `json:"schedule_ids"`
	GroupIDs    []string `json:"group_ids"`
	ContentID   string   `json:"content_id"`
	ContentType string   `json:"content_type"`
	From        string   `json:"from"`
	To          string   `json:"to"`
}

func (r DeleteSchedulesRequest) ToFilter() (model.ScheduleFilter, error) {
	f := model.ScheduleFilter{
		ScheduleIDs: r.ScheduleIDs,
		GroupIDs:    r.GroupIDs,
		ContentID:   r.ContentID,
		ContentType: model.ContentType(r.ContentType),
	}
	if f.ContentType != "" && !f.ContentType.Valid() {
		return f, fmt.Errorf("content_type %q is not one of ad, live_content, carousel", r.ContentType)
	}
	if r.From != "" {
		from, err := ParseDate(r.From)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.From = &from
	}
	if r.To != "" {
		to, err := ParseDate(r.To)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		f.To = &to
	}
	return f, nil
}

type PushRequest struct {
	GroupIDs    []string `json:"group_ids"`
	Placeholder *string  `json:"placeholder"`
}

type RecomputeRequest struct {
	Date    string  `json:"date" binding:"required"`
	GroupID *string `json:"group_id"`
}

// ParseDate accepts "2006-01-02" or RFC 3339. Empty input yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	return t, nil
}
