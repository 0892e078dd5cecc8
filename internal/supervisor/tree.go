// Package supervisor runs the long-lived services of the chat backend
// under a suture tree: the chat hub and the notification dispatcher in a
// messaging layer, the HTTP server in an api layer.
package supervisor

import (
	"context"
	"time"

	"camerashop/backend/internal/logging"

	"github.com/thejerf/suture/v4"
)

type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
}

func NewTree(cfg TreeConfig) *Tree {
	def := DefaultTreeConfig()
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
	rootSpec.EventHook = logEvent

	t := &Tree{
		root:      suture.New("camerashop", rootSpec),
		messaging: suture.New("messaging-layer", child),
		api:       suture.New("api-layer", child),
	}
	t.root.Add(t.messaging)
	t.root.Add(t.api)
	return t
}

// AddMessagingService supervises the hub or the notification dispatcher.
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is cancelled and every service has stopped.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// logEvent writes suture events through the service logger.
func logEvent(e suture.Event) {
	ev := logging.Warn()
	switch e.Type() {
	case suture.EventTypeServicePanic, suture.EventTypeStopTimeout:
		ev = logging.Error()
	case suture.EventTypeResume:
		ev = logging.Info()
	}
	ev.Fields(e.Map()).Msg(e.String())
}
