// exposes a Store that satisfies the persistence interfaces of every core component
package db

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Nixie-Tech-LLC/adcast/internal/heartbeat"
	"github.com/Nixie-Tech-LLC/adcast/internal/impression"
	"github.com/Nixie-Tech-LLC/adcast/internal/playlist"
	"github.com/Nixie-Tech-LLC/adcast/internal/push"
	"github.com/Nixie-Tech-LLC/adcast/internal/schedule"
)

var ErrDeviceNotFound = errors.New("device not found")

type Store struct {
	db *sqlx.DB
}

// compile-time checks that Store implements every consumer's interface
var (
	_ schedule.ContentFinder = (*Store)(nil)
	_ schedule.Store         = (*Store)(nil)
	_ playlist.Store         = (*Store)(nil)
	_ push.Store             = (*Store)(nil)
	_ heartbeat.Store        = (*Store)(nil)
	_ impression.Store       = (*Store)(nil)
	_ impression.Tx          = (*impressionTx)(nil)
)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sqlx.DB { return s.db }

// withTx runs fn in a transaction, rolling back on error or panic.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
