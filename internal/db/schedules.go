package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

const insertChunkSize = 500

const insertScheduleEntry = `
	INSERT INTO schedule_entries
	  (schedule_id, content_id, content_type, group_id, start_time, end_time,
	   total_duration, priority, weekdays, time_slots)
	VALUES
	  (:schedule_id, :content_id, :content_type, :group_id, :start_time, :end_time,
	   :total_duration, :priority, :weekdays, :time_slots)`

// InsertSchedules writes all entries in one transaction.
func (s *Store) InsertSchedules(ctx context.Context, entries []model.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for start := 0; start < len(entries); start += insertChunkSize {
			end := min(start+insertChunkSize, len(entries))
			if _, err := tx.NamedExecContext(ctx, insertScheduleEntry, entries[start:end]); err != nil {
				return fmt.Errorf("insert schedule entries %d-%d: %w", start, end, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Int("entries", len(entries)).Msg("InsertSchedules failed")
	}
	return err
}

// DeleteSchedules removes every entry matching the filter and returns the removed rows.
func (s *Store) DeleteSchedules(ctx context.Context, filter model.ScheduleFilter) ([]model.ScheduleEntry, error) {
	where, args := scheduleFilterClause(filter)
	if where == "" {
		return nil, fmt.Errorf("refusing to delete schedules without a filter")
	}

	q := `
	DELETE FROM schedule_entries
	 WHERE ` + where + `
	RETURNING schedule_id, content_id, content_type, group_id, start_time, end_time,
	          total_duration, priority, weekdays, time_slots, created_at;`

	out := []model.ScheduleEntry{}
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		log.Error().Err(err).Msg("DeleteSchedules failed")
		return nil, err
	}
	return out, nil
}

// scheduleFilterClause ANDs together every non-empty filter field. From/To select entries
// overlapping [From, To).
func scheduleFilterClause(f model.ScheduleFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.ScheduleIDs) > 0 {
		add("schedule_id = ANY($%d)", pq.Array(f.ScheduleIDs))
	}
	if len(f.GroupIDs) > 0 {
		add("group_id = ANY($%d)", pq.Array(f.GroupIDs))
	}
	if f.ContentID != "" {
		add("content_id = $%d", f.ContentID)
	}
	if f.ContentType != "" {
		add("content_type = $%d", string(f.ContentType))
	}
	if f.From != nil {
		add("end_time > $%d", f.From.UTC())
	}
	if f.To != nil {
		add("start_time < $%d", f.To.UTC())
	}
	return strings.Join(conds, " AND "), args
}
