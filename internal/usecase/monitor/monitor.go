package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/domain/service/arbitration"
	"github.com/zono819/ratio-arb/internal/infrastructure/logger"
)

// Sink receives the ranked snapshots of every cycle
type Sink interface {
	Publish(ctx context.Context, snaps []entity.RatioSnapshot) error
}

// Config holds monitor settings
type Config struct {
	Interval  time.Duration
	MinProfit decimal.Decimal
	TopN      int
	// History is the number of cycles of profit kept per ratio trade
	History int
}

// Monitor periodically refreshes every ratio trade and ranks them
type Monitor struct {
	trades []*arbitration.RatioTrade
	config Config
	sinks  []Sink
	log    *logger.Logger

	history *history

	// cycle serialises refresh and read so each cycle sees one snapshot
	cycle sync.Mutex

	mu      sync.RWMutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	latest  []entity.RatioSnapshot

	// onCycle is called with the cycle duration, if set
	onCycle func(time.Duration)
}

// NewMonitor creates a new monitor
func NewMonitor(trades []*arbitration.RatioTrade, cfg Config, log *logger.Logger, sinks ...Sink) *Monitor {
	if log == nil {
		log = logger.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	return &Monitor{
		trades:  trades,
		config:  cfg,
		sinks:   sinks,
		log:     log.WithField("component", "monitor"),
		history: newHistory(cfg.History),
	}
}

// OnCycle registers a callback receiving each cycle's duration
func (m *Monitor) OnCycle(fn func(time.Duration)) {
	m.onCycle = fn
}

// Start starts the monitor loop
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("monitor is already running")
	}
	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stop, m.done
	m.mu.Unlock()

	m.log.Info("Monitoring %d ratio trades every %s", len(m.trades), m.config.Interval)
	go m.loop(ctx, stop, done)
	return nil
}

// Stop stops the monitor loop and waits for the running cycle
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for monitor to stop: %w", ctx.Err())
	}
}

// IsRunning returns true if monitor is running
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Run blocks running cycles until ctx is done
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Stop(stopCtx)
}

func (m *Monitor) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	t := time.NewTicker(m.config.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return
		case <-stop:
			return
		case now := <-t.C:
			snaps := m.Cycle(now)
			m.publish(ctx, snaps)
		}
	}
}

// Cycle refreshes every ratio trade, then reads them all and returns the
// snapshots ranked best first
func (m *Monitor) Cycle(now time.Time) []entity.RatioSnapshot {
	m.cycle.Lock()
	defer m.cycle.Unlock()

	start := time.Now()
	for _, rt := range m.trades {
		rt.RefreshData()
	}

	snaps := make([]entity.RatioSnapshot, 0, len(m.trades))
	for _, rt := range m.trades {
		snaps = append(snaps, rt.Snapshot(now))
	}
	Rank(snaps)
	for _, s := range snaps {
		if s.Ready() {
			m.history.add(s.Name, s.Profit.InexactFloat64())
		}
	}

	m.mu.Lock()
	m.latest = snaps
	m.mu.Unlock()

	if m.onCycle != nil {
		m.onCycle(time.Since(start))
	}
	m.logOpportunities(snaps)
	return snaps
}

// Latest returns a copy of the last cycle's ranked snapshots
func (m *Monitor) Latest() []entity.RatioSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]entity.RatioSnapshot(nil), m.latest...)
}

// ProfitStats returns the recent profit statistics of a ratio trade
func (m *Monitor) ProfitStats(name string) ProfitStats {
	return m.history.stats(name)
}

// Opportunities returns the ready snapshots with profit at or above the
// configured minimum, at most TopN of them when TopN is set
func (m *Monitor) Opportunities(snaps []entity.RatioSnapshot) []entity.RatioSnapshot {
	var out []entity.RatioSnapshot
	for _, s := range snaps {
		if !s.Ready() || s.Profit.LessThan(m.config.MinProfit) {
			continue
		}
		out = append(out, s)
		if m.config.TopN > 0 && len(out) == m.config.TopN {
			break
		}
	}
	return out
}

func (m *Monitor) logOpportunities(snaps []entity.RatioSnapshot) {
	for _, s := range m.Opportunities(snaps) {
		st := m.history.stats(s.Name)
		m.log.WithFields(map[string]interface{}{
			"z_score":     st.ZScore,
			"profit_mean": st.Mean,
			"ratio":       s.Name,
			"profit":      s.Profit.StringFixed(6),
			"profit_last": s.ProfitLast.StringFixed(6),
			"max_size":    s.MaxTradableSize.String(),
		}).Info("Opportunity %s: %s bps x %s", s.Name, s.ProfitBps().StringFixed(1), s.MaxTradableSize)
	}
}

func (m *Monitor) publish(ctx context.Context, snaps []entity.RatioSnapshot) {
	for _, sink := range m.sinks {
		if err := sink.Publish(ctx, snaps); err != nil {
			m.log.Warn("Failed to publish snapshots: %v", err)
		}
	}
}

// Rank sorts snapshots by profit, then max tradable size, both descending,
// then by name
func Rank(snaps []entity.RatioSnapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		a, b := snaps[i], snaps[j]
		if c := a.Profit.Cmp(b.Profit); c != 0 {
			return c > 0
		}
		if c := a.MaxTradableSize.Cmp(b.MaxTradableSize); c != 0 {
			return c > 0
		}
		return a.Name < b.Name
	})
}
