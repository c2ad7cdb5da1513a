// Package supervisor runs the long-lived loops of the server under one suture tree.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/thejerf/suture/v4"
)

type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree splits services into a background layer (heartbeats, refresher) and an api layer,
// so a crashing HTTP server never restarts the background loops and vice versa.
type Tree struct {
	root       *suture.Supervisor
	background *suture.Supervisor
	api        *suture.Supervisor
}

func New(name string, cfg Config) *Tree {
	def := DefaultConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	child := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	rootSpec := child
	rootSpec.EventHook = LogEvent

	t := &Tree{
		root:       suture.New(name, rootSpec),
		background: suture.New("background", child),
		api:        suture.New("api", child),
	}
	t.root.Add(t.background)
	t.root.Add(t.api)
	return t
}

// LogEvent forwards suture events to zerolog.
func LogEvent(e suture.Event) {
	switch e.Type() {
	case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
		log.Error().Fields(e.Map()).Msg(e.String())
	default:
		log.Warn().Fields(e.Map()).Msg(e.String())
	}
}

func (t *Tree) AddBackground(svc suture.Service) suture.ServiceToken {
	return t.background.Add(svc)
}

func (t *Tree) AddAPI(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
