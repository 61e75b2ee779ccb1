package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/heraldbot/herald/pkg/clock"
	"github.com/heraldbot/herald/pkg/log"
	"github.com/heraldbot/herald/pkg/metrics"
	"github.com/heraldbot/herald/pkg/store"
	"github.com/heraldbot/herald/pkg/types"
	"github.com/heraldbot/herald/pkg/upstream"
)

// DefaultTickInterval is the engine's polling cadence.
const DefaultTickInterval = 60 * time.Second

// Config carries the engine's construction parameters. The engine
// does not load configuration; the host hands it in.
type Config struct {
	Organization string
	TickInterval time.Duration
}

// Engine drives the synchronization loop. It exclusively owns the
// upstream client, the store and the outbound queue; the presentation
// collaborator holds a non-owning reference and calls DrainOutbound.
type Engine struct {
	cfg    Config
	client upstream.Client
	store  store.Store
	clock  clock.Clock
	logger zerolog.Logger

	outbound *outboundQueue

	// orgID and watermark are written during Start and inside ticks;
	// ticks are serialized by tickMu.
	orgID     string
	watermark time.Time

	tickMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles an engine. A nil clk selects the production UTC
// clock; a zero TickInterval selects the default cadence.
func New(cfg Config, client upstream.Client, st store.Store, clk clock.Clock) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if clk == nil {
		clk = clock.UTC{}
	}
	return &Engine{
		cfg:      cfg,
		client:   client,
		store:    st,
		clock:    clk,
		logger:   log.WithComponent("engine"),
		outbound: newOutboundQueue(),
	}
}

// Start resolves the organization, recalls the persisted view, runs
// the startup expiration sweep and begins ticking. Resolution failure
// is fatal: the engine cannot operate without the organization UUID.
func (e *Engine) Start(ctx context.Context) error {
	orgID, err := e.client.ResolveOrganizationID(ctx, e.cfg.Organization)
	if err != nil {
		return fmt.Errorf("resolve organization %q: %w", e.cfg.Organization, err)
	}
	e.orgID = orgID

	if err := e.store.Recall(); err != nil {
		return fmt.Errorf("recall store: %w", err)
	}
	e.sweep()

	e.watermark = e.clock.Now()
	metrics.UpdateComponent("engine", true, "running")

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	e.wg.Add(1)
	go e.run(runCtx)

	e.logger.Info().
		Str("organization", e.cfg.Organization).
		Str("organization_id", e.orgID).
		Dur("tick_interval", e.cfg.TickInterval).
		Int("recalled_events", e.store.Len()).
		Msg("Engine started")
	return nil
}

// Stop cancels any in-flight fetch, waits for the current tick to
// observe cancellation, then releases the HTTP session and the
// database handle.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	e.wg.Wait()

	e.client.Close()
	if err := e.store.Close(); err != nil {
		e.logger.Error().Err(err).Msg("Failed to close store")
	}
	metrics.UpdateComponent("engine", false, "stopped")
	e.logger.Info().Msg("Engine stopped")
}

// DrainOutbound atomically removes and returns the buffered changes,
// in the order they were appended. Safe against a tick in progress.
func (e *Engine) DrainOutbound() []types.Change {
	changes := e.outbound.Drain()
	metrics.OutboundQueueDepth.Set(float64(e.outbound.Len()))
	return changes
}

// TrackedEvents reports the number of events currently in the store.
func (e *Engine) TrackedEvents() int {
	return e.store.Len()
}

// PendingChanges reports the current outbound queue depth.
func (e *Engine) PendingChanges() int {
	return e.outbound.Len()
}

// run is the scheduler loop: fixed wall-clock cadence, single-flight
// per tick. A firing that finds the previous tick still running is
// dropped.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !e.tickMu.TryLock() {
				e.logger.Warn().Msg("Previous tick still running, dropping this one")
				metrics.TicksDropped.Inc()
				continue
			}
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				defer e.tickMu.Unlock()
				e.tick(ctx)
			}()
		case <-ctx.Done():
			return
		}
	}
}
