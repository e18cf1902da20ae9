package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config bounds a Bridge instance.
type Config struct {
	// DatabaseURL is the persistent store DSN (AGENTCORE_DATABASE_URL). An
	// empty value runs the Bridge against an in-memory store only.
	DatabaseURL string
	// PollInterval is the autonomous collector's polling period.
	PollInterval time.Duration
}

// Bridge is the Observability Bridge (C5): one AttachedCollector riding the
// live event stream and one AutonomousCollector polling independently. The
// zero value is not usable; construct with New.
type Bridge struct {
	Attached   *AttachedCollector
	Autonomous *AutonomousCollector
	Metrics    *Metrics
	Store      Store

	closeStore func() error
}

// New builds a Bridge. If cfg.DatabaseURL is empty, the persistent store is
// an in-memory Store and nothing is lost except durability across process
// restarts - the Bridge's own degrade-to-memory behavior, not a special
// case. reg is the Prometheus registerer to attach metrics to; pass
// prometheus.NewRegistry() in tests.
func New(cfg Config, reg prometheus.Registerer, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	var store Store
	var closeStore func() error

	if cfg.DatabaseURL != "" {
		cockroach, err := NewCockroachStoreFromDSN(cfg.DatabaseURL, nil)
		if err != nil {
			logger.Warn("bridge: failed to connect to persistent store, degrading to in-memory", "error", err)
			store = NewMemoryStore()
		} else {
			store = cockroach
			closeStore = cockroach.Close
		}
	} else {
		store = NewMemoryStore()
	}

	metrics := NewMetrics(reg)

	return &Bridge{
		Attached:   NewAttachedCollector(store, metrics, logger),
		Autonomous: NewAutonomousCollector(store, metrics, cfg.PollInterval, logger),
		Metrics:    metrics,
		Store:      store,
		closeStore: closeStore,
	}, nil
}

// Attach resumes the attached collector's processing. Idempotent.
func (b *Bridge) Attach() { b.Attached.Attach() }

// Detach stops the attached collector's processing; the autonomous
// collector, if started, keeps running.
func (b *Bridge) Detach() { b.Attached.Detach() }

// Start launches the autonomous collector's poll loop.
func (b *Bridge) Start(ctx context.Context) { b.Autonomous.Start(ctx) }

// Stop halts the autonomous collector and releases the persistent store's
// connection, if any. Holding no reference to the agent, Stop never blocks
// agent shutdown.
func (b *Bridge) Stop() {
	b.Autonomous.Stop()
	if b.closeStore != nil {
		_ = b.closeStore()
	}
}
