package shell

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/flatearth/internal/metrics"
)

type entry struct {
	shell    *Shell
	lastSeen time.Time
}

// Registry maps client session ids to shells, creating them on first use and
// evicting those left idle.
type Registry struct {
	mu      sync.Mutex
	shells  map[string]*entry
	factory func() *Shell
	idle    time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// NewRegistry creates a registry. factory builds a fresh shell with its own
// session.
func NewRegistry(factory func() *Shell, idle time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		shells:  make(map[string]*entry),
		factory: factory,
		idle:    idle,
		now:     time.Now,
		logger:  logger,
	}
}

// Get returns the shell for id, creating it if needed. created is true for a
// new shell.
func (r *Registry) Get(id string) (sh *Shell, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.shells[id]; ok {
		e.lastSeen = r.now()
		return e.shell, false
	}
	sh = r.factory()
	r.shells[id] = &entry{shell: sh, lastSeen: r.now()}
	metrics.ActiveShells.Inc()
	return sh, true
}

// Sweep closes shells idle for longer than the idle timeout and returns how
// many it evicted.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []*Shell
	for id, e := range r.shells {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.shell)
			delete(r.shells, id)
		}
	}
	r.mu.Unlock()

	for _, sh := range stale {
		metrics.ActiveShells.Dec()
		sh.Close()
	}
	if len(stale) > 0 {
		r.logger.Debug("evicted idle shells", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps periodically until ctx is done, then closes every shell.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// CloseAll closes and forgets every shell.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	shells := r.shells
	r.shells = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range shells {
		metrics.ActiveShells.Dec()
		e.shell.Close()
	}
}
