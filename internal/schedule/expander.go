package schedule

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// Expander turns a ScheduleRequest into one entry per (day, slot, group).
type Expander struct {
	validator *Validator
	loc       *time.Location
	newID     func() string
}

// NewExpander combines slot times with each day in loc. A nil loc means UTC.
func NewExpander(validator *Validator, loc *time.Location) *Expander {
	if loc == nil {
		loc = time.UTC
	}
	return &Expander{validator: validator, loc: loc, newID: uuid.NewString}
}

type clock struct{ hour, minute int }

type slot struct{ start, end clock }

func (e *Expander) Expand(ctx context.Context, req model.ScheduleRequest) ([]model.ScheduleEntry, error) {
	if _, err := e.validator.Validate(ctx, req.ContentID, req.ContentType); err != nil {
		return nil, err
	}
	if err := checkRequired(req); err != nil {
		return nil, err
	}
	if err := checkWeekdays(req.Weekdays); err != nil {
		return nil, err
	}

	rawSlots := req.TimeSlots
	if len(rawSlots) == 0 {
		rawSlots = model.DefaultTimeSlots()
	}
	slots, err := parseSlots(rawSlots)
	if err != nil {
		return nil, err
	}

	first := calendarDay(req.StartDate, e.loc)
	last := calendarDay(req.EndDate, e.loc)
	if last.Before(first) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidDateRange,
			req.StartDate.Format(time.DateOnly), req.EndDate.Format(time.DateOnly))
	}

	allowed := weekdaySet(req.Weekdays)
	var weekdays model.Weekdays
	if req.Weekdays != nil {
		weekdays = append(model.Weekdays{}, req.Weekdays...)
	}
	var timeSlots model.TimeSlots
	if req.TimeSlots != nil {
		timeSlots = append(model.TimeSlots{}, req.TimeSlots...)
	}

	var entries []model.ScheduleEntry
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if allowed != nil && !allowed[d.Weekday()] {
			continue
		}
		for _, s := range slots {
			start := s.start.on(d)
			end := s.end.on(d)
			for _, g := range req.GroupIDs {
				entries = append(entries, model.ScheduleEntry{
					ScheduleID:    e.newID(),
					ContentID:     req.ContentID,
					ContentType:   req.ContentType,
					GroupID:       g,
					StartTime:     start,
					EndTime:       end,
					TotalDuration: *req.TotalDuration,
					Priority:      *req.Priority,
					Weekdays:      weekdays,
					TimeSlots:     timeSlots,
				})
			}
		}
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: weekday filter excludes every day in range", ErrNoSchedulesGenerated)
	}
	return entries, nil
}

func checkRequired(req model.ScheduleRequest) error {
	var missing []string
	if req.StartDate.IsZero() {
		missing = append(missing, "start_date")
	}
	if req.EndDate.IsZero() {
		missing = append(missing, "end_date")
	}
	if req.TotalDuration == nil {
		missing = append(missing, "total_duration")
	}
	if req.Priority == nil {
		missing = append(missing, "priority")
	}
	if len(req.GroupIDs) == 0 {
		missing = append(missing, "group_ids")
	}
	for _, g := range req.GroupIDs {
		if g == "" {
			missing = append(missing, "group_ids (empty id)")
			break
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingParameter, missing)
	}
	return nil
}

func checkWeekdays(days []int) error {
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
	}
	return nil
}

// weekdaySet returns nil when every day is allowed.
func weekdaySet(days []int) map[time.Weekday]bool {
	if len(days) == 0 {
		return nil
	}
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[time.Weekday(d)] = true
	}
	return set
}

func parseSlots(in []model.TimeSlot) ([]slot, error) {
	out := make([]slot, 0, len(in))
	for i, ts := range in {
		start, err := parseClock(ts.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d start %q", ErrInvalidTimeSlot, i, ts.Start)
		}
		end, err := parseClock(ts.End)
		if err != nil {
			return nil, fmt.Errorf("%w: slot %d end %q", ErrInvalidTimeSlot, i, ts.End)
		}
		if !start.before(end) {
			return nil, fmt.Errorf("%w: slot %d %s-%s ends before it starts", ErrInvalidTimeSlot, i, ts.Start, ts.End)
		}
		out = append(out, slot{start: start, end: end})
	}
	return out, nil
}

func parseClock(s string) (clock, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return clock{}, fmt.Errorf("%q is not HH:MM", s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return clock{hour: h, minute: mm}, nil
}

func (c clock) before(o clock) bool {
	return c.hour*60+c.minute < o.hour*60+o.minute
}

// on places c on day d, in d's location, and returns it in UTC.
func (c clock) on(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.minute, 0, 0, d.Location()).UTC()
}

// calendarDay keeps the date as written and moves it into loc at midnight.
func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
