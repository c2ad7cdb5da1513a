package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

func (s *Store) ListGroupIDs(ctx context.Context) ([]string, error) {
	return listGroupIDs(ctx, s.db)
}

func listGroupIDs(ctx context.Context, q sqlx.QueryerContext) ([]string, error) {
	ids := []string{}
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT id FROM device_groups ORDER BY id;`); err != nil {
		log.Error().Err(err).Msg("ListGroupIDs failed")
		return nil, err
	}
	return ids, nil
}

func (s *Store) GetGroup(ctx context.Context, groupID string) (*model.DeviceGroup, error) {
	var g model.DeviceGroup
	err := s.db.GetContext(ctx, &g, `
		SELECT id, name, scrolling_message, last_pushed_at, created_at
		  FROM device_groups
		 WHERE id = $1;`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("GetGroup failed")
		return nil, err
	}
	return &g, nil
}

func (s *Store) MarkGroupPushed(ctx context.Context, groupID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE device_groups SET last_pushed_at = $2 WHERE id = $1;`, groupID, at.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchDevice records a heartbeat. last_seen never moves backwards.
func (s *Store) TouchDevice(ctx context.Context, deviceID string, seenAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE devices
		   SET last_seen = GREATEST(COALESCE(last_seen, $2), $2)
		 WHERE device_id = $1;`, deviceID, seenAt.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (*model.Device, error) {
	var d model.Device
	err := s.db.GetContext(ctx, &d, `
		SELECT id, device_id, group_id, last_seen, created_at
		  FROM devices
		 WHERE device_id = $1;`, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("GetDevice failed")
		return nil, err
	}
	return &d, nil
}
