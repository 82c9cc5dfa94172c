// Package robodeck composes the blueprint binding service, the backend
// document client, and the telemetry feed into one runnable app.
package robodeck

import (
	"context"
	"errors"
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/blueprint"
	"github.com/robodeck/robodeck/core"
	"github.com/robodeck/robodeck/internal/appconfig"
	"github.com/robodeck/robodeck/internal/docstore"
	"github.com/robodeck/robodeck/internal/telemetry"
	"github.com/robodeck/robodeck/schema"
)

// App is the composed application.
type App interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error

	Service() core.Service
	Registry() *blueprint.Registry
	Telemetry() *telemetry.Client
}

// AppDeps captures optional dependency overrides. Nil fields are built
// from the config.
type AppDeps struct {
	Store  core.DocumentStore
	Drafts core.DraftStore
	Sinks  []core.EventSink
	Logger pslog.Logger
}

// AppOption toggles app components.
type AppOption func(*appOptions)

type appOptions struct {
	enableTelemetry bool
}

// WithTelemetry enables the live telemetry websocket feed.
func WithTelemetry() AppOption {
	return func(o *appOptions) { o.enableTelemetry = true }
}

// New constructs the app from configuration.
func New(cfg appconfig.Config, deps AppDeps, opts ...AppOption) (App, error) {
	options := appOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	store := deps.Store
	if store == nil {
		client, err := docstore.New(docstore.Config{
			BaseURL: cfg.Server.BaseURL,
			Token:   cfg.Server.Token,
			Timeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}
		store = client
	}

	var sink core.EventSink
	sinks := make([]core.EventSink, 0, len(deps.Sinks))
	for _, s := range deps.Sinks {
		if s != nil {
			sinks = append(sinks, s)
		}
	}
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = eventFanout{sinks: sinks}
	}

	service, err := core.NewService(schema.ServiceConfig{
		StateDir:   cfg.StateDir,
		CopySuffix: cfg.Blueprints.CopySuffix,
		NameMax:    cfg.Blueprints.NameMax,
	}, core.ServiceDeps{
		Store:  store,
		Drafts: deps.Drafts,
		Sink:   sink,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	var feed *telemetry.Client
	if options.enableTelemetry && cfg.Telemetry.URL != "" {
		client, err := telemetry.NewClient(telemetry.Config{
			URL:   cfg.Telemetry.URL,
			Token: cfg.Telemetry.Token,
		}, nil, logger)
		if err != nil {
			return nil, err
		}
		feed = client
	}

	return &app{
		service:  service,
		registry: blueprint.NewRegistry(),
		feed:     feed,
	}, nil
}

type app struct {
	service  core.Service
	registry *blueprint.Registry
	feed     *telemetry.Client

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
	logger  pslog.Logger
}

func (a *app) Service() core.Service         { return a.service }
func (a *app) Registry() *blueprint.Registry { return a.registry }
func (a *app) Telemetry() *telemetry.Client  { return a.feed }

func (a *app) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		pslog.Ctx(ctx).Warn("app start rejected", "reason", "already started")
		return errors.New("app already started")
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.errCh = make(chan error, 1)
	a.started = true
	a.logger = pslog.Ctx(a.ctx)
	a.mu.Unlock()

	log := a.logger
	log.Info("app start", "telemetry", a.feed != nil)
	if a.feed != nil {
		go func() {
			err := a.feed.Run(a.ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("telemetry feed failed", "err", err)
				a.errCh <- err
			}
		}()
	}
	return nil
}

func (a *app) Wait() error {
	a.mu.Lock()
	ctx := a.ctx
	errCh := a.errCh
	started := a.started
	a.mu.Unlock()
	if !started {
		return errors.New("app not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("app stopped", "err", err)
			_ = a.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (a *app) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	started := a.started
	log := a.logger
	a.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("app stop requested")
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("app stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("app stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-a.ctx.Done():
		log.Info("app stopped")
		return nil
	}
}
