package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coastal-clean/siteplanner/internal/models"
)

// DefaultAutosaveDelay is how long a surface must be quiet before it is saved.
const DefaultAutosaveDelay = 500 * time.Millisecond

// SaveFunc persists one state.
type SaveFunc func(ctx context.Context, st models.SurfaceState) error

// Autosaver collapses bursts of changes into a single save of the latest
// state once no change has arrived for the configured delay. Saves run on
// the timer goroutine and never block the caller of Schedule.
type Autosaver struct {
	mu      sync.Mutex
	saveMu  sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	pending *models.SurfaceState
	stopped bool
	save    SaveFunc
	logger  *slog.Logger
}

// NewAutosaver creates an autosaver. A non-positive delay means DefaultAutosaveDelay.
func NewAutosaver(delay time.Duration, save SaveFunc, logger *slog.Logger) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDelay
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Autosaver{delay: delay, save: save, logger: logger}
}

// Schedule records st as the latest state and restarts the quiet timer.
// After Stop the state is written immediately instead.
func (a *Autosaver) Schedule(st models.SurfaceState) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		a.logger.Warn("change after autosave stopped, saving now", "units", len(st.Units))
		a.write(st)
		return
	}
	defer a.mu.Unlock()

	a.pending = &st
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
		return
	}
	a.timer.Reset(a.delay)
}

// Pending reports whether a save is waiting for the timer.
func (a *Autosaver) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending != nil
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	st := a.pending
	a.pending = nil
	a.mu.Unlock()

	if st != nil {
		a.write(*st)
	}
}

// Flush saves any pending state now.
func (a *Autosaver) Flush() {
	a.flush(false)
}

// Stop flushes and ends debouncing; later changes are saved synchronously.
func (a *Autosaver) Stop() {
	a.flush(true)
}

func (a *Autosaver) flush(stop bool) {
	a.mu.Lock()
	if stop {
		a.stopped = true
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	st := a.pending
	a.pending = nil
	a.mu.Unlock()

	if st != nil {
		a.write(*st)
	}
}

func (a *Autosaver) write(st models.SurfaceState) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.save(ctx, st); err != nil {
		a.logger.Error("autosave failed", "units", len(st.Units), "error", err)
		return
	}
	a.logger.Debug("autosaved", "units", len(st.Units), "version", st.Version)
}
