// Package playlist builds the self-contained payload a device group plays.
package playlist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Nixie-Tech-LLC/adcast/internal/metrics"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
	"github.com/Nixie-Tech-LLC/adcast/internal/storage"
)

const (
	// operational day, UTC
	WindowStart = 6 * time.Hour
	WindowEnd   = 22 * time.Hour

	tickerSeparator = "  •  "
)

type Store interface {
	// ActiveContentForGroup returns live content whose entries overlap [from, to).
	ActiveContentForGroup(ctx context.Context, groupID string, from, to time.Time) ([]model.ActiveContent, error)
	GetGroup(ctx context.Context, groupID string) (*model.DeviceGroup, error)
}

type TickerSource interface {
	TickerText(ctx context.Context, groupID string) (string, error)
}

type Config struct {
	DefaultMessage      string
	PlaceholderDuration int
	ResolveTimeout      time.Duration
	MaxConcurrent       int
}

type Assembler struct {
	store    Store
	resolver storage.URLResolver
	ticker   TickerSource
	cfg      Config
	now      func() time.Time
}

// NewAssembler wires the assembler. ticker may be nil.
func NewAssembler(store Store, resolver storage.URLResolver, ticker TickerSource, cfg Config) *Assembler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 5 * time.Second
	}
	return &Assembler{store: store, resolver: resolver, ticker: ticker, cfg: cfg, now: time.Now}
}

// Window returns today's operational window for t.
func Window(t time.Time) (time.Time, time.Time) {
	day := model.DateOf(t)
	return day.Add(WindowStart), day.Add(WindowEnd)
}

type candidate struct {
	item       model.PlaylistItem
	storageKey string
	priority   int
	overlap    time.Duration
}

func (a *Assembler) Assemble(ctx context.Context, groupID string, placeholder *string) (*model.Playlist, error) {
	now := a.now().UTC()
	from, to := Window(now)

	group, err := a.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", groupID, err)
	}

	rows, err := a.store.ActiveContentForGroup(ctx, groupID, from, to)
	if err != nil {
		return nil, fmt.Errorf("active content for %s: %w", groupID, err)
	}

	candidates := mergeRows(rows, from, to)
	resolved := a.resolve(ctx, groupID, candidates)

	loop := 0
	for _, c := range resolved {
		loop += c.item.Duration
	}
	var ph *string
	if placeholder != nil && *placeholder != "" {
		p := *placeholder
		ph = &p
		loop += a.cfg.PlaceholderDuration
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		ci, cj := resolved[i], resolved[j]
		if ci.priority != cj.priority {
			return ci.priority > cj.priority
		}
		if !ci.item.StartTime.Equal(cj.item.StartTime) {
			return ci.item.StartTime.Before(cj.item.StartTime)
		}
		return ci.item.ContentID < cj.item.ContentID
	})

	ads := make([]model.PlaylistItem, 0, len(resolved))
	for _, c := range resolved {
		item := c.item
		if loop > 0 {
			item.TotalPlays = int(c.overlap / (time.Duration(loop) * time.Second))
		}
		ads = append(ads, item)
	}

	return &model.Playlist{
		GroupID:     groupID,
		Message:     a.message(ctx, group),
		Ads:         ads,
		Placeholder: ph,
		GeneratedAt: now,
	}, nil
}

// mergeRows collapses repeated entries of one content item, keeping the highest priority,
// the earliest start and the summed overlap with the window.
func mergeRows(rows []model.ActiveContent, from, to time.Time) []*candidate {
	byKey := make(map[string]*candidate, len(rows))
	var order []*candidate
	for _, r := range rows {
		key := string(r.ContentType) + ":" + r.ContentID
		start, end := r.StartTime, r.EndTime
		if start.Before(from) {
			start = from
		}
		if end.After(to) {
			end = to
		}
		overlap := end.Sub(start)
		if overlap <= 0 {
			continue
		}

		if c, ok := byKey[key]; ok {
			c.overlap += overlap
			if r.Priority > c.priority {
				c.priority = r.Priority
			}
			if r.StartTime.Before(c.item.StartTime) {
				c.item.StartTime = r.StartTime
			}
			continue
		}
		c := &candidate{
			storageKey: r.StorageKey,
			priority:   r.Priority,
			overlap:    overlap,
			item: model.PlaylistItem{
				ContentID:   r.ContentID,
				ContentType: r.ContentType,
				Name:        r.Name,
				Duration:    r.Duration,
				StartTime:   r.StartTime,
			},
		}
		byKey[key] = c
		order = append(order, c)
	}
	return order
}

// resolve fetches playable URLs in parallel; items that fail are dropped.
func (a *Assembler) resolve(ctx context.Context, groupID string, in []*candidate) []*candidate {
	var (
		g   errgroup.Group
		mu  sync.Mutex
		out = make([]*candidate, 0, len(in))
	)
	g.SetLimit(a.cfg.MaxConcurrent)

	for _, c := range in {
		g.Go(func() error {
			rctx, cancel := context.WithTimeout(ctx, a.cfg.ResolveTimeout)
			defer cancel()

			u, exp, err := a.resolver.ResolvePlayableURL(rctx, c.storageKey)
			if err != nil {
				metrics.URLResolutionFailures.Inc()
				log.Warn().Err(err).Str("group_id", groupID).Str("content_id", c.item.ContentID).
					Str("storage_key", c.storageKey).Msg("dropping playlist item, url not resolved")
				return nil
			}
			c.item.URL = u
			c.item.URLExpiry = exp

			mu.Lock()
			out = append(out, c)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *Assembler) message(ctx context.Context, group *model.DeviceGroup) string {
	msg := a.cfg.DefaultMessage
	if group.ScrollingMessage != nil && strings.TrimSpace(*group.ScrollingMessage) != "" {
		msg = strings.TrimSpace(*group.ScrollingMessage)
	}
	if a.ticker == nil {
		return msg
	}

	text, err := a.ticker.TickerText(ctx, group.ID)
	if err != nil {
		log.Warn().Err(err).Str("group_id", group.ID).Msg("ticker text unavailable")
		return msg
	}
	if text == "" {
		return msg
	}
	if msg == "" {
		return text
	}
	return msg + tickerSeparator + text
}
