// Package impression maintains the daily per (date, group, ad) impression estimates.
//
// Every recompute deletes the existing rows for its target date and groups and
// recreates them from the current schedule state inside one transaction, so readers
// never observe a partially rebuilt day.
package impression

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Nixie-Tech-LLC/adcast/internal/metrics"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

const SecondsPerDay = 86400

var ErrPersistenceFailed = errors.New("impression persistence failed")

// Tx is the transactional view the aggregator works against.
type Tx interface {
	ListGroupIDs(ctx context.Context) ([]string, error)
	// LockGroupDate serializes recomputes of the same pair until the transaction ends.
	LockGroupDate(ctx context.Context, date time.Time, groupID string) error
	DeleteSummaries(ctx context.Context, date time.Time, groupIDs []string) (int64, error)
	// ActiveAdIDs returns distinct ad ids with an entry overlapping [from, to).
	ActiveAdIDs(ctx context.Context, groupID string, from, to time.Time) ([]string, error)
	// AdDurations returns seconds per ad, omitting soft-deleted ads.
	AdDurations(ctx context.Context, adIDs []string) (map[string]int, error)
	CountDevices(ctx context.Context, groupID string) (int, error)
	InsertSummaries(ctx context.Context, rows []model.ImpressionSummary) error
}

// Store runs fn in a transaction, committing only when fn returns nil.
type Store interface {
	WithImpressionTx(ctx context.Context, fn func(tx Tx) error) error
}

type Aggregator struct {
	store              Store
	placeholderSeconds int
	parallelism        int
}

func NewAggregator(store Store, placeholderSeconds int) *Aggregator {
	return &Aggregator{store: store, placeholderSeconds: placeholderSeconds, parallelism: 4}
}

// Recompute rebuilds the summaries of date for one group, or for every group when groupID is nil.
func (a *Aggregator) Recompute(ctx context.Context, date time.Time, groupID *string) error {
	day := model.DateOf(date)
	next := day.AddDate(0, 0, 1)

	var written int
	err := a.store.WithImpressionTx(ctx, func(tx Tx) error {
		written = 0

		groups, err := a.targetGroups(ctx, tx, groupID)
		if err != nil {
			return persistenceErr("list groups", err)
		}
		if len(groups) == 0 {
			return nil
		}

		for _, g := range groups {
			if err := tx.LockGroupDate(ctx, day, g); err != nil {
				return persistenceErr("lock "+g, err)
			}
		}

		if _, err := tx.DeleteSummaries(ctx, day, groups); err != nil {
			return persistenceErr("delete summaries", err)
		}

		var staged []model.ImpressionSummary
		for _, g := range groups {
			rows, err := a.stageGroup(ctx, tx, day, next, g)
			if err != nil {
				return err
			}
			staged = append(staged, rows...)
		}

		if len(staged) == 0 {
			return nil
		}
		if err := tx.InsertSummaries(ctx, staged); err != nil {
			return persistenceErr("insert summaries", err)
		}
		written = len(staged)
		return nil
	})

	metrics.RecordRecompute(written, err)
	if err != nil {
		ev := log.Error().Err(err).Time("date", day)
		if groupID != nil {
			ev = ev.Str("group_id", *groupID)
		}
		ev.Msg("impression recompute rolled back")
		if !errors.Is(err, ErrPersistenceFailed) {
			err = persistenceErr("transaction", err)
		}
		return err
	}

	log.Debug().Time("date", day).Int("rows", written).Msg("impressions recomputed")
	return nil
}

// RecomputePairs recomputes each pair independently. Distinct pairs run in parallel.
func (a *Aggregator) RecomputePairs(ctx context.Context, pairs []model.GroupDate) error {
	var (
		g    errgroup.Group
		errs = make([]error, len(pairs))
	)
	g.SetLimit(a.parallelism)
	for i, p := range pairs {
		g.Go(func() error {
			gid := p.GroupID
			errs[i] = a.Recompute(ctx, p.Date, &gid)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (a *Aggregator) targetGroups(ctx context.Context, tx Tx, groupID *string) ([]string, error) {
	if groupID != nil {
		return []string{*groupID}, nil
	}
	groups, err := tx.ListGroupIDs(ctx)
	if err != nil {
		return nil, err
	}
	// lock order
	sort.Strings(groups)
	return groups, nil
}

func (a *Aggregator) stageGroup(ctx context.Context, tx Tx, day, next time.Time, groupID string) ([]model.ImpressionSummary, error) {
	adIDs, err := tx.ActiveAdIDs(ctx, groupID, day, next)
	if err != nil {
		return nil, persistenceErr("active ads for "+groupID, err)
	}
	if len(adIDs) == 0 {
		return nil, nil
	}

	durations, err := tx.AdDurations(ctx, adIDs)
	if err != nil {
		return nil, persistenceErr("ad durations for "+groupID, err)
	}

	ads := make([]string, 0, len(adIDs))
	total := a.placeholderSeconds
	for _, id := range adIDs {
		d, ok := durations[id]
		if !ok {
			continue
		}
		ads = append(ads, id)
		total += d
	}
	if len(ads) == 0 {
		return nil, nil
	}
	if total <= 0 {
		log.Warn().Str("group_id", groupID).Time("date", day).Int("total_loop_duration", total).
			Msg("non-positive loop duration, skipping group")
		return nil, nil
	}

	devices, err := tx.CountDevices(ctx, groupID)
	if err != nil {
		return nil, persistenceErr("count devices for "+groupID, err)
	}

	loops := SecondsPerDay / total
	sort.Strings(ads)
	rows := make([]model.ImpressionSummary, 0, len(ads))
	for _, id := range ads {
		rows = append(rows, model.ImpressionSummary{
			SummaryDate:       day,
			GroupID:           groupID,
			AdID:              id,
			DeviceCount:       devices,
			TotalLoopDuration: total,
			LoopsPerDay:       loops,
			Impressions:       loops * devices,
		})
	}
	return rows, nil
}

func persistenceErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistenceFailed, step, err)
}
