package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Push metrics
	PlaylistPushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcast_playlist_pushes_total",
			Help: "Playlist publishes per group by result",
		},
		[]string{"result"}, // "ok", "assemble_error", "publish_error"
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adcast_mqtt_publish_duration_seconds",
			Help:    "Time spent waiting for a broker publish to complete",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // "playlist", "exit"
	)

	URLResolutionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcast_url_resolution_failures_total",
			Help: "Playlist items dropped because their playable URL could not be resolved",
		},
	)

	// Heartbeat metrics
	HeartbeatsReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcast_heartbeats_received_total",
			Help: "Device heartbeat events accepted from the broker",
		},
	)

	HeartbeatWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcast_heartbeat_writes_total",
			Help: "Per-device last-seen writes by result",
		},
		[]string{"result"},
	)

	HeartbeatBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adcast_heartbeat_batch_size",
			Help:    "Distinct devices per heartbeat flush",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)

	// Impression metrics
	RecomputeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcast_impression_recomputes_total",
			Help: "Impression recompute transactions by result",
		},
		[]string{"result"},
	)

	RecomputeRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcast_impression_rows_written_total",
			Help: "Impression summary rows inserted",
		},
	)

	// Schedule metrics
	ScheduleEntriesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adcast_schedule_entries_created_total",
			Help: "Schedule entries persisted by content type",
		},
		[]string{"content_type"},
	)

	ScheduleEntriesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adcast_schedule_entries_deleted_total",
			Help: "Schedule entries removed",
		},
	)
)

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func RecordPublish(kind string, d time.Duration) {
	PublishDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func RecordHeartbeatWrite(err error) {
	HeartbeatWrites.WithLabelValues(result(err)).Inc()
}

func RecordRecompute(rows int, err error) {
	RecomputeRuns.WithLabelValues(result(err)).Inc()
	if err == nil {
		RecomputeRows.Add(float64(rows))
	}
}
