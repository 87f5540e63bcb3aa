package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jbleroy/fieldops/config"
	"github.com/jbleroy/fieldops/core/dispatch"
	coremetrics "github.com/jbleroy/fieldops/core/metrics"
	"github.com/jbleroy/fieldops/core/presence"
	corestore "github.com/jbleroy/fieldops/core/store"
	"github.com/jbleroy/fieldops/infra/logger"
	"github.com/jbleroy/fieldops/infra/metrics"
	"github.com/jbleroy/fieldops/infra/mqtt"
	infrastore "github.com/jbleroy/fieldops/infra/store"
	"github.com/jbleroy/fieldops/internal/eventbus"
)

// purgeInterval is how often expired offers are swept out of the store.
// Lazy expiry keeps acceptance correct between sweeps.
const purgeInterval = 10 * time.Minute

// Service orchestrates the dispatch manager, the MQTT surfaces and metrics.
type Service struct {
	Manager *dispatch.Manager

	client   *mqtt.Client
	notifier *mqtt.Notifier
	feed     *mqtt.PositionFeed
	store    corestore.Store
	log      logger.Logger

	promEnabled bool
	promAddr    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	client, err := mqtt.NewClient(cfg.MQTT)
	if err != nil {
		return nil, fmt.Errorf("mqtt client: %w", err)
	}

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.MetricsSink
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var st corestore.Store
	switch cfg.Store.Backend {
	case "sqlite":
		st, err = infrastore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
	default:
		st = corestore.NewMemoryStore()
	}

	bus := eventbus.New()
	pres := presence.NewMemoryStore()
	directory := mqtt.NewDirectory(client, cfg.Directory)
	manager, err := dispatch.NewManager(st, directory, pres, bus, logg, sink, cfg.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("dispatch manager: %w", err)
	}

	return &Service{
		Manager:     manager,
		client:      client,
		notifier:    mqtt.NewNotifier(client, cfg.MQTT.Prefix(), bus),
		feed:        mqtt.NewPositionFeed(client, cfg.MQTT.PositionTopic, pres),
		store:       st,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promAddr:    cfg.Metrics.PrometheusAddr,
	}, nil
}

// Run starts the service surfaces and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.notifier.Start()
	if err := s.feed.Start(); err != nil {
		return fmt.Errorf("position feed: %w", err)
	}
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	go s.purgeLoop(ctx)

	<-ctx.Done()
	s.feed.Stop()
	return nil
}

func (s *Service) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.store.PurgeExpired(ctx, now)
			if err != nil {
				s.log.Errorf("purge expired offers: %v", err)
			} else if n > 0 {
				s.log.Infof("purged %d expired offers", n)
			}
		}
	}
}

// Close releases resources held by the service. Closing the manager closes
// the bus, which lets the notifier drain its queue before the MQTT
// connection drops.
func (s *Service) Close() error {
	err := s.Manager.Close()
	s.notifier.Wait()
	s.client.Disconnect()
	return err
}
