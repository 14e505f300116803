// Package app wires configuration, logging, storage, metrics and event
// publishing into a ready sales service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"salescore/internal/core"
	"salescore/internal/events"
)

// App owns the repository, the service built on it and the event publisher.
type App struct {
	Config  Config
	Service *core.Service
	Logger  *log.Logger

	repo      *core.Repository
	publisher events.Publisher
	closer    io.Closer
}

// Option adjusts how Open wires the application.
type Option func(*options)

type options struct {
	logOutput  io.Writer
	registerer prometheus.Registerer
	publisher  events.Publisher
}

// WithLogOutput redirects log output.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// WithRegisterer registers Prometheus collectors on r instead of the default
// registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithPublisher replaces the Kafka publisher selected by configuration.
func WithPublisher(p events.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// Open builds the logger, opens the snapshot store, loads the repository and
// constructs the service. A Kafka producer that cannot be created is logged
// and the service runs without events.
func Open(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Log, o.logOutput)
	if err != nil {
		return nil, err
	}
	entry := logger.WithField("component", "app")

	store, err := core.OpenSnapshotStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	repo, err := core.OpenRepository(ctx, store,
		core.WithRepositoryLogger(core.NewLogrusLogger(logger.WithField("component", "repository"))))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &App{Config: cfg, Logger: logger, repo: repo, publisher: o.publisher}
	if a.publisher == nil {
		a.publisher = a.initPublisher(entry)
	}

	svc, err := core.NewService(repo,
		core.WithLogger(core.NewLogrusLogger(logger.WithField("component", "service"))),
		core.WithMetrics(newMetrics(cfg.Metrics, o.registerer)),
		core.WithEventPublisher(a.publisher))
	if err != nil {
		_ = a.closePublisher(entry)
		_ = repo.Close()
		return nil, err
	}
	a.Service = svc

	entry.WithFields(log.Fields{
		"storage": cfg.Storage.Driver,
		"metrics": cfg.Metrics,
		"events":  len(cfg.Kafka.Brokers) > 0,
	}).Debug("sales service ready")
	return a, nil
}

func (a *App) initPublisher(entry *log.Entry) events.Publisher {
	if len(a.Config.Kafka.Brokers) == 0 {
		return events.Noop{}
	}
	pub, err := events.NewKafkaPublisher(a.Config.Kafka.Brokers, a.Config.Kafka.Topic)
	if err != nil {
		entry.WithError(err).Warn("failed to create kafka producer, continuing without events")
		return events.Noop{}
	}
	entry.WithField("brokers", a.Config.Kafka.Brokers).Info("kafka publisher initialized")
	a.closer = pub
	return pub
}

func newMetrics(backend MetricsBackend, registerer prometheus.Registerer) core.MetricsRecorder {
	switch backend {
	case MetricsNone:
		return nil
	case MetricsExpvar:
		return core.NewExpvarMetricsRecorder("")
	default:
		return core.NewPrometheusMetricsRecorder(registerer)
	}
}

// Close writes the final snapshot, closes the publisher and then the store.
func (a *App) Close(ctx context.Context) error {
	entry := a.Logger.WithField("component", "app")
	var errs []error
	if err := a.repo.Persist(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.closePublisher(entry); err != nil {
		errs = append(errs, err)
	}
	if err := a.repo.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close snapshot store: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) closePublisher(entry *log.Entry) error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	if err != nil {
		entry.WithError(err).Warn("failed to close kafka producer")
	}
	a.closer = nil
	return err
}
