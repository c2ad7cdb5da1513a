// Package push publishes group playlists and device commands to the broker.
package push

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Nixie-Tech-LLC/adcast/internal/broker"
	"github.com/Nixie-Tech-LLC/adcast/internal/metrics"
	"github.com/Nixie-Tech-LLC/adcast/internal/model"
)

const (
	MessageTypePlaylist = "playlist"
	MessageTypeExit     = "exit"
)

type Publisher interface {
	Publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error
}

type Assembler interface {
	Assemble(ctx context.Context, groupID string, placeholder *string) (*model.Playlist, error)
}

type Store interface {
	ListGroupIDs(ctx context.Context) ([]string, error)
	MarkGroupPushed(ctx context.Context, groupID string, at time.Time) error
}

type playlistMessage struct {
	Type string `json:"type"`
	*model.Playlist
}

type exitMessage struct {
	Type     string    `json:"type"`
	DeviceID string    `json:"device_id"`
	IssuedAt time.Time `json:"issued_at"`
}

type Broadcaster struct {
	assembler      Assembler
	publisher      Publisher
	store          Store
	publishTimeout time.Duration
	maxConcurrent  int
	now            func() time.Time
}

func NewBroadcaster(assembler Assembler, publisher Publisher, store Store, publishTimeout time.Duration, maxConcurrent int) *Broadcaster {
	if publishTimeout <= 0 {
		publishTimeout = 10 * time.Second
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Broadcaster{
		assembler:      assembler,
		publisher:      publisher,
		store:          store,
		publishTimeout: publishTimeout,
		maxConcurrent:  maxConcurrent,
		now:            time.Now,
	}
}

// PushToGroups assembles and publishes each group's playlist independently. A failing group
// never stops the others; all failures come back together as *GroupErrors.
func (b *Broadcaster) PushToGroups(ctx context.Context, groupIDs []string, placeholder *string) error {
	ids := dedupe(groupIDs)
	if len(ids) == 0 {
		return nil
	}

	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []*GroupError
	)
	g.SetLimit(b.maxConcurrent)

	for _, id := range ids {
		g.Go(func() error {
			if err := b.pushGroup(ctx, id, placeholder); err != nil {
				log.Error().Err(err).Str("group_id", id).Msg("failed to push playlist")
				mu.Lock()
				failures = append(failures, &GroupError{GroupID: id, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		log.Info().Int("groups", len(ids)).Msg("playlists pushed")
		return nil
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].GroupID < failures[j].GroupID })
	return &GroupErrors{Attempted: len(ids), Failures: failures}
}

// PushAll re-publishes every group's playlist.
func (b *Broadcaster) PushAll(ctx context.Context, placeholder *string) error {
	ids, err := b.store.ListGroupIDs(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	return b.PushToGroups(ctx, ids, placeholder)
}

func (b *Broadcaster) pushGroup(ctx context.Context, groupID string, placeholder *string) error {
	pl, err := b.assembler.Assemble(ctx, groupID, placeholder)
	if err != nil {
		metrics.PlaylistPushes.WithLabelValues("assemble_error").Inc()
		return fmt.Errorf("%w: assemble: %w", ErrPublishFailed, err)
	}

	payload, err := json.Marshal(playlistMessage{Type: MessageTypePlaylist, Playlist: pl})
	if err != nil {
		metrics.PlaylistPushes.WithLabelValues("assemble_error").Inc()
		return fmt.Errorf("%w: encode: %w", ErrPublishFailed, err)
	}

	pctx, cancel := context.WithTimeout(ctx, b.publishTimeout)
	defer cancel()

	start := time.Now()
	err = b.publisher.Publish(pctx, broker.GroupTopic(groupID), broker.QoSExactlyOnce, true, payload)
	metrics.RecordPublish(MessageTypePlaylist, time.Since(start))
	if err != nil {
		metrics.PlaylistPushes.WithLabelValues("publish_error").Inc()
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	metrics.PlaylistPushes.WithLabelValues("ok").Inc()

	if err := b.store.MarkGroupPushed(ctx, groupID, b.now().UTC()); err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("playlist published but last_pushed_at not updated")
	}
	log.Debug().Str("group_id", groupID).Int("ads", len(pl.Ads)).Msg("playlist published")
	return nil
}

// NotifyDeviceExit tells one device's player to shut down. Not retained.
func (b *Broadcaster) NotifyDeviceExit(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: empty device id", ErrPublishFailed)
	}
	payload, err := json.Marshal(exitMessage{Type: MessageTypeExit, DeviceID: deviceID, IssuedAt: b.now().UTC()})
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPublishFailed, err)
	}

	pctx, cancel := context.WithTimeout(ctx, b.publishTimeout)
	defer cancel()

	start := time.Now()
	err = b.publisher.Publish(pctx, broker.DeviceTopic(deviceID), broker.QoSAtLeastOnce, false, payload)
	metrics.RecordPublish(MessageTypeExit, time.Since(start))
	if err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to send exit notification")
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	log.Info().Str("device_id", deviceID).Msg("exit notification sent")
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
