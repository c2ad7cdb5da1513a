package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

// FindContent looks an item up across ads, live contents and carousels.
// Soft-deleted rows are returned; callers decide what deleted means.
func (s *Store) FindContent(ctx context.Context, id string, contentType model.ContentType) (*model.Content, error) {
	var c model.Content
	const q = `
	SELECT id, content_type AS type, name, storage_key, duration, deleted_at
	  FROM schedulable_contents
	 WHERE id = $1 AND content_type = $2;`

	err := s.db.GetContext(ctx, &c, q, id, string(contentType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		log.Error().Err(err).Str("content_id", id).Str("content_type", string(contentType)).Msg("FindContent failed")
		return nil, err
	}
	return &c, nil
}

// ActiveContentForGroup joins the group's entries overlapping [from, to) with live content.
func (s *Store) ActiveContentForGroup(ctx context.Context, groupID string, from, to time.Time) ([]model.ActiveContent, error) {
	out := []model.ActiveContent{}
	const q = `
	SELECT se.schedule_id, se.content_id, se.content_type, se.priority,
	       se.start_time, se.end_time, c.name, c.storage_key, c.duration
	  FROM schedule_entries se
	  JOIN schedulable_contents c
	    ON c.id = se.content_id AND c.content_type = se.content_type
	 WHERE se.group_id = $1
	   AND se.start_time < $3
	   AND se.end_time > $2
	   AND c.deleted_at IS NULL
	 ORDER BY se.priority DESC, se.start_time, se.content_id;`

	if err := s.db.SelectContext(ctx, &out, q, groupID, from.UTC(), to.UTC()); err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("ActiveContentForGroup failed")
		return nil, err
	}
	return out, nil
}
