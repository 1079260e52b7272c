package prometheus

import (
	"context"
	"sync"
	"time"

	tpl "github.com/carlcc/go-tpl"
	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider provides current pool scheduler stats snapshots.
type PoolSnapshotProvider interface {
	Stats() tpl.PoolStats
}

// LoopSnapshotProvider provides current loop scheduler stats snapshots.
type LoopSnapshotProvider interface {
	Stats() tpl.LoopStats
}

// SnapshotPoller periodically exports scheduler Stats() snapshots into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	loopsMu sync.RWMutex
	loops   map[string]LoopSnapshotProvider

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	loopQueued  *prom.GaugeVec
	loopRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "tpl",
		Name:      "pool_queued",
		Help:      "Queued callables per pool scheduler.",
	}, []string{"scheduler"})
	poolActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "tpl",
		Name:      "pool_active",
		Help:      "Active callables per pool scheduler.",
	}, []string{"scheduler"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "tpl",
		Name:      "pool_workers",
		Help:      "Worker count per pool scheduler.",
	}, []string{"scheduler"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "tpl",
		Name:      "pool_running",
		Help:      "Pool scheduler running state (1=running, 0=shut down).",
	}, []string{"scheduler"})
	loopQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "tpl",
		Name:      "loop_queued",
		Help:      "Queued callables per loop scheduler.",
	}, []string{"scheduler"})
	loopRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "tpl",
		Name:      "loop_running",
		Help:      "Loop scheduler driven state (1=driven, 0=idle).",
	}, []string{"scheduler"})

	var err error
	if poolQueued, err = registerCollector(reg, poolQueued); err != nil {
		return nil, err
	}
	if poolActive, err = registerCollector(reg, poolActive); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}
	if loopQueued, err = registerCollector(reg, loopQueued); err != nil {
		return nil, err
	}
	if loopRunning, err = registerCollector(reg, loopRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:    interval,
		pools:       make(map[string]PoolSnapshotProvider),
		loops:       make(map[string]LoopSnapshotProvider),
		poolQueued:  poolQueued,
		poolActive:  poolActive,
		poolWorkers: poolWorkers,
		poolRunning: poolRunning,
		loopQueued:  loopQueued,
		loopRunning: loopRunning,
	}, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// AddLoop adds or replaces a loop snapshot provider by name.
func (p *SnapshotPoller) AddLoop(name string, provider LoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "loop")
	p.loopsMu.Lock()
	p.loops[name] = provider
	p.loopsMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		if stats.Running {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()

	p.loopsMu.RLock()
	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopQueued.WithLabelValues(name).Set(float64(stats.Queued))
		if stats.Running {
			p.loopRunning.WithLabelValues(name).Set(1)
		} else {
			p.loopRunning.WithLabelValues(name).Set(0)
		}
	}
	p.loopsMu.RUnlock()
}
