package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/impression"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

// dates are passed as text and cast server side so the session time zone never shifts them
const dateLayout = "2006-01-02"

// WithImpressionTx runs fn inside one transaction.
func (s *Store) WithImpressionTx(ctx context.Context, fn func(tx impression.Tx) error) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&impressionTx{tx: tx})
	})
}

// ListImpressions returns the stored summaries for a day, optionally for one group.
func (s *Store) ListImpressions(ctx context.Context, date time.Time, groupID *string) ([]model.ImpressionSummary, error) {
	out := []model.ImpressionSummary{}
	q := `
	SELECT summary_date, group_id, ad_id, device_count, total_loop_duration, loops_per_day, impressions
	  FROM impression_summaries
	 WHERE summary_date = $1::date`
	args := []any{model.DateOf(date).Format(dateLayout)}
	if groupID != nil {
		q += ` AND group_id = $2`
		args = append(args, *groupID)
	}
	q += ` ORDER BY group_id, ad_id;`

	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		log.Error().Err(err).Msg("ListImpressions failed")
		return nil, err
	}
	return out, nil
}

type impressionTx struct {
	tx *sqlx.Tx
}

func (t *impressionTx) ListGroupIDs(ctx context.Context) ([]string, error) {
	return listGroupIDs(ctx, t.tx)
}

func (t *impressionTx) LockGroupDate(ctx context.Context, date time.Time, groupID string) error {
	_, err := t.tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1 || '/' || $2));`,
		date.Format(dateLayout), groupID)
	return err
}

func (t *impressionTx) DeleteSummaries(ctx context.Context, date time.Time, groupIDs []string) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		DELETE FROM impression_summaries
		 WHERE summary_date = $1::date
		   AND group_id = ANY($2);`, date.Format(dateLayout), pq.Array(groupIDs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *impressionTx) ActiveAdIDs(ctx context.Context, groupID string, from, to time.Time) ([]string, error) {
	ids := []string{}
	err := t.tx.SelectContext(ctx, &ids, `
		SELECT DISTINCT content_id
		  FROM schedule_entries
		 WHERE group_id = $1
		   AND content_type = 'ad'
		   AND start_time < $3
		   AND end_time > $2
		 ORDER BY content_id;`, groupID, from.UTC(), to.UTC())
	return ids, err
}

func (t *impressionTx) AdDurations(ctx context.Context, adIDs []string) (map[string]int, error) {
	var rows []struct {
		ID       string `db:"id"`
		Duration int    `db:"duration"`
	}
	err := t.tx.SelectContext(ctx, &rows, `
		SELECT id, duration
		  FROM ads
		 WHERE id = ANY($1)
		   AND deleted_at IS NULL;`, pq.Array(adIDs))
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Duration
	}
	return out, nil
}

func (t *impressionTx) CountDevices(ctx context.Context, groupID string) (int, error) {
	var n int
	err := t.tx.GetContext(ctx, &n, `SELECT count(*) FROM devices WHERE group_id = $1;`, groupID)
	return n, err
}

func (t *impressionTx) InsertSummaries(ctx context.Context, rows []model.ImpressionSummary) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := t.tx.PreparexContext(ctx, `
		INSERT INTO impression_summaries
		  (summary_date, group_id, ad_id, device_count, total_loop_duration, loops_per_day, impressions)
		VALUES ($1::date, $2, $3, $4, $5, $6, $7);`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			model.DateOf(r.SummaryDate).Format(dateLayout), r.GroupID, r.AdID,
			r.DeviceCount, r.TotalLoopDuration, r.LoopsPerDay, r.Impressions,
		); err != nil {
			return err
		}
	}
	return nil
}
