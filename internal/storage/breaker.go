package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

type resolved struct {
	url       string
	expiresAt time.Time
}

// BreakerResolver stops calling a failing backend for a while instead of making every
// playlist item wait on it.
type BreakerResolver struct {
	next    URLResolver
	cb      *gobreaker.CircuitBreaker[resolved]
	timeout time.Duration
}

type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	CallTimeout      time.Duration
}

func NewBreakerResolver(next URLResolver, cfg BreakerConfig) *BreakerResolver {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "url-resolver"
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("url resolver circuit breaker state changed")
		},
	}

	return &BreakerResolver{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[resolved](settings),
		timeout: cfg.CallTimeout,
	}
}

var errEmptyKey = errors.New("empty storage key")

func (b *BreakerResolver) ResolvePlayableURL(ctx context.Context, storageKey string) (string, time.Time, error) {
	// an empty key is the caller's fault and must not count against the backend
	if normalizeKey(storageKey) == "" {
		return "", time.Time{}, fmt.Errorf("%w: %w", ErrURLResolutionFailed, errEmptyKey)
	}
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	r, err := b.cb.Execute(func() (resolved, error) {
		u, exp, err := b.next.ResolvePlayableURL(ctx, storageKey)
		return resolved{url: u, expiresAt: exp}, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", time.Time{}, fmt.Errorf("%w: %w", ErrURLResolutionFailed, err)
		}
		if !errors.Is(err, ErrURLResolutionFailed) {
			err = fmt.Errorf("%w: %w", ErrURLResolutionFailed, err)
		}
		return "", time.Time{}, err
	}
	return r.url, r.expiresAt, nil
}

func (b *BreakerResolver) State() gobreaker.State {
	return b.cb.State()
}
