package model

import (
	"database/sql/driver"
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// TimeSlot is a wall-clock window in 24-hour "HH:MM" form.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DefaultTimeSlots is used when a request carries no time slots.
func DefaultTimeSlots() []TimeSlot {
	return []TimeSlot{{Start: "06:00", End: "22:00"}}
}

// Weekdays is a nullable JSONB list of days, 0 = Sunday.
type Weekdays []int

func (w Weekdays) Value() (driver.Value, error) {
	if w == nil {
		return nil, nil
	}
	return json.Marshal([]int(w))
}

func (w *Weekdays) Scan(src any) error {
	raw, ok, err := jsonbBytes(src)
	if err != nil || !ok {
		*w = nil
		return err
	}
	return json.Unmarshal(raw, (*[]int)(w))
}

// TimeSlots is a nullable JSONB list of slots.
type TimeSlots []TimeSlot

func (s TimeSlots) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal([]TimeSlot(s))
}

func (s *TimeSlots) Scan(src any) error {
	raw, ok, err := jsonbBytes(src)
	if err != nil || !ok {
		*s = nil
		return err
	}
	return json.Unmarshal(raw, (*[]TimeSlot)(s))
}

func jsonbBytes(src any) ([]byte, bool, error) {
	switch v := src.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return v, true, nil
	case string:
		return []byte(v), true, nil
	default:
		return nil, false, errors.New("unsupported jsonb source")
	}
}

// ScheduleRequest is a high-level scheduling request before expansion.
// Pointer fields distinguish "absent" from zero.
type ScheduleRequest struct {
	ContentID     string      `json:"content_id"`
	ContentType   ContentType `json:"content_type"`
	StartDate     time.Time   `json:"start_date"`
	EndDate       time.Time   `json:"end_date"`
	TotalDuration *int        `json:"total_duration"`
	Priority      *int        `json:"priority"`
	GroupIDs      []string    `json:"group_ids"`
	Weekdays      []int       `json:"weekdays,omitempty"`
	TimeSlots     []TimeSlot  `json:"time_slots,omitempty"`
}

// ScheduleEntry is one concrete (day, slot, group) schedule row.
type ScheduleEntry struct {
	ScheduleID    string      `db:"schedule_id"    json:"schedule_id"`
	ContentID     string      `db:"content_id"     json:"content_id"`
	ContentType   ContentType `db:"content_type"   json:"content_type"`
	GroupID       string      `db:"group_id"       json:"group_id"`
	StartTime     time.Time   `db:"start_time"     json:"start_time"`
	EndTime       time.Time   `db:"end_time"       json:"end_time"`
	TotalDuration int         `db:"total_duration" json:"total_duration"`
	Priority      int         `db:"priority"       json:"priority"`
	Weekdays      Weekdays    `db:"weekdays"       json:"weekdays,omitempty"`
	TimeSlots     TimeSlots   `db:"time_slots"     json:"time_slots,omitempty"`
	CreatedAt     time.Time   `db:"created_at"     json:"created_at"`
}

// ScheduleFilter selects schedule entries for bulk deletion. Empty fields do not filter.
type ScheduleFilter struct {
	ScheduleIDs []string    `json:"schedule_ids,omitempty"`
	GroupIDs    []string    `json:"group_ids,omitempty"`
	ContentID   string      `json:"content_id,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
	From        *time.Time  `json:"from,omitempty"`
	To          *time.Time  `json:"to,omitempty"`
}

func (f ScheduleFilter) Empty() bool {
	return len(f.ScheduleIDs) == 0 && len(f.GroupIDs) == 0 &&
		f.ContentID == "" && f.ContentType == "" && f.From == nil && f.To == nil
}

// GroupDate keys an impression recompute. Date is always midnight UTC.
type GroupDate struct {
	Date    time.Time `json:"date"`
	GroupID string    `json:"group_id"`
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GroupDatesOf lists every (day, group) pair an entry touches.
func GroupDatesOf(e ScheduleEntry) []GroupDate {
	var out []GroupDate
	last := DateOf(e.EndTime.Add(-time.Nanosecond))
	for d := DateOf(e.StartTime); !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, GroupDate{Date: d, GroupID: e.GroupID})
	}
	return out
}
