package push

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type AllPusher interface {
	PushAll(ctx context.Context, placeholder *string) error
}

// Refresher re-pushes every group once a day at a fixed wall-clock time.
type Refresher struct {
	pusher       AllPusher
	hour, minute int
	loc          *time.Location
	timeout      time.Duration
	now          func() time.Time
	after        func(time.Duration) <-chan time.Time
}

func NewRefresher(pusher AllPusher, hour, minute int, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.UTC
	}
	return &Refresher{
		pusher:  pusher,
		hour:    hour,
		minute:  minute,
		loc:     loc,
		timeout: 5 * time.Minute,
		now:     time.Now,
		after:   time.After,
	}
}

// Next returns the first refresh time strictly after t.
func (r *Refresher) Next(t time.Time) time.Time {
	t = t.In(r.loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), r.hour, r.minute, 0, 0, r.loc)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Serve implements suture.Service.
func (r *Refresher) Serve(ctx context.Context) error {
	for {
		next := r.Next(r.now())
		log.Debug().Time("next_refresh", next).Msg("daily refresh scheduled")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.after(next.Sub(r.now())):
		}

		r.refresh(ctx)
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.pusher.PushAll(rctx, nil); err != nil {
		log.Error().Err(err).Msg("daily playlist refresh incomplete")
		return
	}
	log.Info().Msg("daily playlist refresh complete")
}

func (r *Refresher) String() string { return "daily-refresher" }
