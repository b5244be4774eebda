// Package monitor runs the clear-tracking pipeline: read the previous
// snapshot, read the clears sheet, diff them, announce what changed and
// persist the new snapshot.
//
// State is saved only after every notice was delivered. A failed delivery
// leaves the previous snapshot in place so the next run computes the same
// diff again.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/clearwatch/clears"
	"github.com/hazyhaar/clearwatch/idgen"
	"github.com/hazyhaar/clearwatch/kit"
	"github.com/hazyhaar/clearwatch/notify"
	"github.com/hazyhaar/clearwatch/store"
	"github.com/hazyhaar/clearwatch/tiers"
)

// StateStore holds the previous snapshot. *sheets.StateSheet and
// *store.Store satisfy it.
type StateStore interface {
	Load(ctx context.Context) (clears.Snapshot, error)
	Save(ctx context.Context, snap clears.Snapshot) error
}

// GridSource returns the raw clears sheet.
type GridSource func(ctx context.Context) ([][]string, error)

// RunLog records run outcomes. *store.Store satisfies it.
type RunLog interface {
	RecordRun(ctx context.Context, r store.Run) error
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

// Sender delivers rendered notices. *notify.Notifier satisfies it.
type Sender interface {
	Notify(ctx context.Context, notices []notify.Notice) (notify.Delivery, error)
}

// ErrNoRunLog is returned by Runs when no run log is configured.
var ErrNoRunLog = errors.New("monitor: no run log configured")

// Deps wires a Monitor.
type Deps struct {
	Source GridSource
	State  StateStore
	// Tiers returns a fresh lookup for one run. Nil disables tier labels.
	Tiers func() *tiers.Lookup
	// Notifier nil means changes are logged and state is still saved.
	Notifier Sender
	// Runs is optional.
	Runs   RunLog
	Layout clears.Layout
	Logger *slog.Logger
	NewID  idgen.Generator
	Now    func() time.Time
}

// Result describes one run.
type Result struct {
	RunID      string          `json:"run_id"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Status     string          `json:"status"`
	Error      string          `json:"error,omitempty"`
	Notices    []notify.Notice `json:"notices"`
	Delivery   notify.Delivery `json:"delivery"`
	Persisted  bool            `json:"persisted"`

	Events []clears.Event `json:"-"`
}

// Monitor runs the pipeline.
type Monitor struct {
	deps   Deps
	logger *slog.Logger

	// One run at a time: the state store is read then rewritten.
	runMu sync.Mutex

	mu   sync.RWMutex
	last *Result
}

// New creates a Monitor.
func New(deps Deps) *Monitor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.NewID == nil {
		deps.NewID = idgen.Run
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Layout.MinPlayerCol == 0 && deps.Layout.FirstMapRow == 0 {
		deps.Layout = clears.DefaultLayout()
	}
	return &Monitor{deps: deps, logger: deps.Logger}
}

// RunOnce performs one full reconciliation.
func (m *Monitor) RunOnce(ctx context.Context) (*Result, error) {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	res := &Result{RunID: m.deps.NewID(), StartedAt: m.deps.Now().UTC()}
	ctx = kit.WithRunID(ctx, res.RunID)
	log := m.logger.With("run_id", res.RunID)

	err := m.run(ctx, log, res)
	res.FinishedAt = m.deps.Now().UTC()
	if err != nil {
		res.Status = store.StatusFailed
		res.Error = err.Error()
		log.ErrorContext(ctx, "run failed", "error", err)
	}
	log.InfoContext(ctx, "run finished",
		"status", res.Status,
		"events", len(res.Events),
		"delivered", res.Delivery.Delivered,
		"duration_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds())

	m.record(ctx, log, res)
	m.mu.Lock()
	m.last = res
	m.mu.Unlock()
	return res, err
}

func (m *Monitor) run(ctx context.Context, log *slog.Logger, res *Result) error {
	cur, events, err := m.diff(ctx, log)
	if err != nil {
		return err
	}
	res.Events = events

	if len(events) == 0 {
		log.InfoContext(ctx, "no changes detected since last run")
		res.Status = store.StatusNoChanges
		return nil
	}

	res.Notices = m.render(ctx, log, events)
	if m.deps.Notifier == nil {
		log.WarnContext(ctx, "no notification channel configured, changes not announced",
			"notices", len(res.Notices))
	} else {
		err := stage(ctx, log, "notify", func() error {
			var err error
			res.Delivery, err = m.deps.Notifier.Notify(ctx, res.Notices)
			return err
		})
		if err != nil {
			return fmt.Errorf("monitor: notify: %w", err)
		}
	}

	if err := stage(ctx, log, "save_state", func() error {
		return m.deps.State.Save(ctx, cur.Cells)
	}); err != nil {
		return fmt.Errorf("monitor: save state: %w", err)
	}
	res.Persisted = true
	res.Status = store.StatusOK
	return nil
}

// Preview computes the notices the next run would send, without delivering
// them or touching the state store.
func (m *Monitor) Preview(ctx context.Context) ([]notify.Notice, error) {
	log := m.logger.With("preview", true)
	_, events, err := m.diff(ctx, log)
	if err != nil {
		return nil, err
	}
	return m.render(ctx, log, events), nil
}

// State returns the persisted snapshot.
func (m *Monitor) State(ctx context.Context) (clears.Snapshot, error) {
	snap, err := m.deps.State.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("monitor: load state: %w", err)
	}
	return snap, nil
}

// Last returns the most recent run result, or nil before the first run.
func (m *Monitor) Last() *Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Runs lists recent runs from the run log, newest first.
func (m *Monitor) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	if m.deps.Runs == nil {
		return nil, ErrNoRunLog
	}
	return m.deps.Runs.ListRuns(ctx, limit)
}

// TierLookup returns a fresh tier lookup, or nil when tiers are disabled.
func (m *Monitor) TierLookup() *tiers.Lookup {
	if m.deps.Tiers == nil {
		return nil
	}
	return m.deps.Tiers()
}

// Run calls RunOnce immediately, then every interval until ctx is done.
// Failed runs are logged and retried at the next tick.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunOnce(ctx)
		}
	}
}

func (m *Monitor) diff(ctx context.Context, log *slog.Logger) (*clears.Current, []clears.Event, error) {
	var old clears.Snapshot
	if err := stage(ctx, log, "load_state", func() error {
		var err error
		old, err = m.deps.State.Load(ctx)
		return err
	}); err != nil {
		return nil, nil, fmt.Errorf("monitor: load state: %w", err)
	}

	var grid [][]string
	if err := stage(ctx, log, "fetch_sheet", func() error {
		var err error
		grid, err = m.deps.Source(ctx)
		return err
	}); err != nil {
		return nil, nil, fmt.Errorf("monitor: fetch sheet: %w", err)
	}

	var cur *clears.Current
	if err := stage(ctx, log, "build_snapshot", func() error {
		var err error
		cur, err = clears.BuildSnapshot(grid, m.deps.Layout)
		return err
	}); err != nil {
		return nil, nil, fmt.Errorf("monitor: %w", err)
	}

	var events []clears.Event
	stage(ctx, log, "compute_diff", func() error {
		events = clears.Compute(old, cur.Cells, cur.Difficulty)
		return nil
	})
	log.DebugContext(ctx, "diff computed",
		"old_cells", len(old), "cells", len(cur.Cells), "events", len(events))
	return cur, events, nil
}

// render attaches tier labels when a tier page is configured. A tier page
// that cannot be read only costs the labels.
func (m *Monitor) render(ctx context.Context, log *slog.Logger, events []clears.Event) []notify.Notice {
	var labeler notify.TierLabeler
	if lookup := m.TierLookup(); lookup != nil {
		err := stage(ctx, log, "load_tiers", func() error { return lookup.Populate(ctx) })
		if err != nil {
			log.WarnContext(ctx, "tier page unavailable, notices sent without tiers", "error", err)
		} else {
			labeler = lookup
		}
	}
	return notify.RenderAll(ctx, events, labeler)
}

func (m *Monitor) record(ctx context.Context, log *slog.Logger, res *Result) {
	if m.deps.Runs == nil {
		return
	}
	run := store.Run{
		ID:         res.RunID,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Events:     len(res.Events),
		Delivered:  res.Delivery.Delivered,
		Status:     res.Status,
		Error:      res.Error,
	}
	// The run's own context may already be cancelled on shutdown.
	if err := m.deps.Runs.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		log.WarnContext(ctx, "record run", "error", err)
	}
}

// stage runs fn and logs how long it took.
func stage(ctx context.Context, log *slog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	attrs := []any{"stage", name, "duration_ms", time.Since(start).Milliseconds()}
	if err != nil {
		log.DebugContext(ctx, "stage failed", append(attrs, "error", err)...)
		return err
	}
	log.DebugContext(ctx, "stage done", attrs...)
	return nil
}
