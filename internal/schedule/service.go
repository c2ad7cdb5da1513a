package schedule

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/adcast/internal/metrics"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

type Store interface {
	// InsertSchedules persists every entry or none.
	InsertSchedules(ctx context.Context, entries []model.ScheduleEntry) error
	// DeleteSchedules removes matching entries and returns what was removed.
	DeleteSchedules(ctx context.Context, filter model.ScheduleFilter) ([]model.ScheduleEntry, error)
}

type Recomputer interface {
	RecomputePairs(ctx context.Context, pairs []model.GroupDate) error
}

type Pusher interface {
	PushToGroups(ctx context.Context, groupIDs []string, placeholder *string) error
}

// Service persists expanded schedules and keeps impressions and devices in step.
type Service struct {
	expander   *Expander
	store      Store
	recomputer Recomputer
	pusher     Pusher
}

func NewService(expander *Expander, store Store, recomputer Recomputer, pusher Pusher) *Service {
	return &Service{expander: expander, store: store, recomputer: recomputer, pusher: pusher}
}

func (s *Service) ExpandAndPersist(ctx context.Context, req model.ScheduleRequest) ([]model.ScheduleEntry, error) {
	entries, err := s.expander.Expand(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.InsertSchedules(ctx, entries); err != nil {
		log.Error().Err(err).Str("content_id", req.ContentID).Int("entries", len(entries)).Msg("failed to persist schedules")
		return nil, fmt.Errorf("persist schedules: %w", err)
	}
	metrics.ScheduleEntriesCreated.WithLabelValues(string(req.ContentType)).Add(float64(len(entries)))
	log.Info().Str("content_id", req.ContentID).Str("content_type", string(req.ContentType)).
		Int("entries", len(entries)).Msg("schedules created")

	s.afterChange(ctx, entries)
	return entries, nil
}

// DeleteSchedules removes the entries matching filter and returns how many went and which
// (date, group) pairs they covered.
func (s *Service) DeleteSchedules(ctx context.Context, filter model.ScheduleFilter) (int, []model.GroupDate, error) {
	if filter.Empty() {
		return 0, nil, fmt.Errorf("%w: delete filter", ErrMissingParameter)
	}

	deleted, err := s.store.DeleteSchedules(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to delete schedules")
		return 0, nil, fmt.Errorf("delete schedules: %w", err)
	}
	metrics.ScheduleEntriesDeleted.Add(float64(len(deleted)))
	if len(deleted) == 0 {
		return 0, nil, nil
	}

	s.afterChange(ctx, deleted)
	return len(deleted), groupDates(deleted, false), nil
}

// afterChange recomputes ad impressions and re-pushes the touched groups. Failures are
// logged only; the daily refresh and the next change repair them.
func (s *Service) afterChange(ctx context.Context, entries []model.ScheduleEntry) {
	ctx = context.WithoutCancel(ctx)

	if pairs := groupDates(entries, true); len(pairs) > 0 && s.recomputer != nil {
		if err := s.recomputer.RecomputePairs(ctx, pairs); err != nil {
			log.Error().Err(err).Int("pairs", len(pairs)).Msg("impression recompute after schedule change failed")
		}
	}

	if s.pusher == nil {
		return
	}
	groups := groupIDs(entries)
	if err := s.pusher.PushToGroups(ctx, groups, nil); err != nil {
		log.Warn().Err(err).Strs("group_ids", groups).Msg("push after schedule change incomplete")
	}
}

// groupDates lists the distinct (date, group) pairs covered, sorted by date then group.
func groupDates(entries []model.ScheduleEntry, adsOnly bool) []model.GroupDate {
	seen := make(map[model.GroupDate]bool)
	var out []model.GroupDate
	for _, e := range entries {
		if adsOnly && e.ContentType != model.ContentTypeAd {
			continue
		}
		for _, p := range model.GroupDatesOf(e) {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out
}

func groupIDs(entries []model.ScheduleEntry) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range entries {
		if !seen[e.GroupID] {
			seen[e.GroupID] = true
			out = append(out, e.GroupID)
		}
	}
	sort.Strings(out)
	return out
}
