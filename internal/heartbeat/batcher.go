// Package heartbeat collapses device sync events into one last-seen write per device per interval.
package heartbeat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Nixie-Tech-LLC/adcast/internal/metrics"
)

type Store interface {
	TouchDevice(ctx context.Context, deviceID string, seenAt time.Time) error
}

type Config struct {
	FlushInterval time.Duration
	WriteTimeout  time.Duration
	MaxConcurrent int
}

// Batcher owns the pending heartbeat map. Handle may be called from any goroutine.
type Batcher struct {
	store Store
	cfg   Config
	now   func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time

	inflight sync.WaitGroup
}

func NewBatcher(store Store, cfg Config) *Batcher {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 16
	}
	return &Batcher{
		store:   store,
		cfg:     cfg,
		now:     time.Now,
		pending: make(map[string]time.Time),
	}
}

type syncEvent struct {
	DeviceID      string `json:"device_id"`
	DeviceIDCamel string `json:"deviceId"`
}

// DecodeDeviceID extracts the device identity from a sync payload.
func DecodeDeviceID(payload []byte) string {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") {
		var ev syncEvent
		if err := json.Unmarshal([]byte(trimmed), &ev); err != nil {
			return ""
		}
		if ev.DeviceID != "" {
			return strings.TrimSpace(ev.DeviceID)
		}
		return strings.TrimSpace(ev.DeviceIDCamel)
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return trimmed
}

// Handle is the broker callback for the heartbeat topic.
func (b *Batcher) Handle(topic string, payload []byte) {
	id := DecodeDeviceID(payload)
	if id == "" {
		log.Debug().Str("topic", topic).Msg("ignoring heartbeat without device id")
		return
	}
	b.Record(id, b.now())
}

// Record notes a heartbeat. A later timestamp for the same device replaces the earlier one.
func (b *Batcher) Record(deviceID string, at time.Time) {
	metrics.HeartbeatsReceived.Inc()

	b.mu.Lock()
	if prev, ok := b.pending[deviceID]; !ok || at.After(prev) {
		b.pending[deviceID] = at
	}
	b.mu.Unlock()
}

// Pending reports how many devices are waiting for the next flush.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Batcher) swap() map[string]time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = make(map[string]time.Time, len(batch))
	return batch
}

// Serve implements suture.Service. Each tick swaps the buffer and hands it to a background
// writer so slow writes never hold up the timer.
func (b *Batcher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.drain()
			return ctx.Err()
		case <-ticker.C:
			batch := b.swap()
			if batch == nil {
				continue
			}
			b.inflight.Add(1)
			go func() {
				defer b.inflight.Done()
				b.persist(context.WithoutCancel(ctx), batch)
			}()
		}
	}
}

// drain writes whatever is buffered at shutdown and waits for in-flight batches.
func (b *Batcher) drain() {
	if batch := b.swap(); batch != nil {
		b.persist(context.Background(), batch)
	}
	b.inflight.Wait()
}

// Flush synchronously writes the current buffer and returns the number of failed rows.
func (b *Batcher) Flush(ctx context.Context) int {
	batch := b.swap()
	if batch == nil {
		return 0
	}
	return b.persist(ctx, batch)
}

func (b *Batcher) persist(ctx context.Context, batch map[string]time.Time) int {
	metrics.HeartbeatBatchSize.Observe(float64(len(batch)))

	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	g.SetLimit(b.cfg.MaxConcurrent)

	for id, seenAt := range batch {
		g.Go(func() error {
			wctx, cancel := context.WithTimeout(ctx, b.cfg.WriteTimeout)
			defer cancel()

			err := b.store.TouchDevice(wctx, id, seenAt.UTC())
			metrics.RecordHeartbeatWrite(err)
			if err != nil {
				log.Warn().Err(err).Str("device_id", id).Msg("failed to persist heartbeat")
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Debug().Int("devices", len(batch)).Int("failed", failed).Msg("heartbeat batch flushed")
	return failed
}

func (b *Batcher) String() string { return "heartbeat-batcher" }
