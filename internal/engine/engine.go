// Package engine is the single owner of visualization state: the loaded
// snapshot, the filtered view, selection, render performance settings
// and the undo history. All mutation goes through its narrow API;
// subscribers observe state changes through typed events.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/clubgraph/clubgraph/internal/analysis"
	"github.com/clubgraph/clubgraph/internal/export"
	"github.com/clubgraph/clubgraph/internal/filter"
	"github.com/clubgraph/clubgraph/internal/graph"
	"github.com/clubgraph/clubgraph/internal/history"
	"github.com/clubgraph/clubgraph/internal/observability"
	"github.com/clubgraph/clubgraph/internal/render"
	"github.com/clubgraph/clubgraph/internal/source"
)

// EventType tags a state-change notification.
type EventType string

const (
	EventSnapshotReplaced   EventType = "snapshot.replaced"
	EventFiltersApplied     EventType = "filters.applied"
	EventSelectionChanged   EventType = "selection.changed"
	EventPerformanceChanged EventType = "performance.changed"
	EventVisibilityChanged  EventType = "visibility.changed"
	EventHistoryRestored    EventType = "history.restored"
)

// Event carries a state change to subscribers. Only the fields relevant
// to the event type are populated.
type Event struct {
	Type      EventType        `json:"type"`
	Meta      *graph.Metadata  `json:"metadata,omitempty"`
	Criteria  *filter.Criteria `json:"criteria,omitempty"`
	Selection []int            `json:"selection,omitempty"`
	Settings  *render.Settings `json:"settings,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Visible   int              `json:"visible,omitempty"`
	Hidden    int              `json:"hidden,omitempty"`
}

// State is the undoable slice of engine state: filters and selection.
// Snapshots themselves are derived, not stored.
type State struct {
	Criteria  filter.Criteria
	Selection []int
}

// Config configures an Engine.
type Config struct {
	Logger *slog.Logger
	Render render.Config
}

// Engine owns the graph state.
type Engine struct {
	mu sync.Mutex

	loader  *source.Loader
	logger  *slog.Logger
	metrics *observability.GraphMetrics

	full      *graph.Snapshot
	view      *graph.Snapshot
	criteria  filter.Criteria
	selection map[int]bool

	hist       *history.Stack[State]
	renderCtl  *render.Controller
	subMu      sync.Mutex
	subs       map[int]func(Event)
	nextSub    int
	loadErrors []graph.ValidationError
}

// New creates an engine around the given loader. The render controller
// is owned by the engine; its Start/Stop follow the engine's.
func New(loader *source.Loader, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		loader:    loader,
		logger:    logger,
		metrics:   observability.Metrics(),
		full:      graph.Empty(),
		view:      graph.Empty(),
		selection: make(map[int]bool),
		hist:      history.New[State](history.DefaultCapacity),
		subs:      make(map[int]func(Event)),
	}
	// Baseline state so the first mutation is undoable.
	e.hist.Save(State{})

	rc := cfg.Render
	rc.Logger = logger
	userHook := rc.OnChange
	rc.OnChange = func(s render.Settings, reason string) {
		e.onPerformanceChange(s, reason)
		if userHook != nil {
			userHook(s, reason)
		}
	}
	e.renderCtl = render.NewController(rc)
	return e
}

// Start launches the render control loop.
func (e *Engine) Start(ctx context.Context) {
	e.renderCtl.Start(ctx)
}

// Stop tears the engine down: stops the render loop and closes the
// underlying source.
func (e *Engine) Stop(ctx context.Context) error {
	e.renderCtl.Stop()
	return e.loader.Close(ctx)
}

// Subscribe registers a state-change callback and returns an
// unsubscribe function. Callbacks run synchronously on the mutating
// goroutine and must not call back into the engine.
func (e *Engine) Subscribe(fn func(Event)) func() {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subMu.Unlock()
	return func() {
		e.subMu.Lock()
		delete(e.subs, id)
		e.subMu.Unlock()
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Reload pulls a fresh snapshot through the loader and reapplies the
// current filters. On failure the previous state is kept and the error
// returned; an engine that never loaded successfully keeps an empty
// snapshot.
func (e *Engine) Reload(ctx context.Context, forceRefresh bool) error {
	start := time.Now()
	snap, verrs, err := e.loader.Load(ctx, forceRefresh)
	e.metrics.RecordLoad(time.Since(start), len(snap.Nodes), len(snap.Edges), err)
	if err != nil {
		observability.Audit().LogLoadError(err)
		return fmt.Errorf("reload: %w", err)
	}
	observability.Audit().LogLoad(time.Since(start), len(snap.Nodes), len(snap.Edges), len(verrs))

	e.mu.Lock()
	e.full = snap
	e.loadErrors = verrs
	e.view = filter.Apply(snap, e.criteria)
	e.pruneSelectionLocked()
	meta := e.view.Meta
	e.mu.Unlock()

	e.renderCtl.ObserveNodeCount(meta.TotalNodes)
	e.publish(Event{Type: EventSnapshotReplaced, Meta: &meta})
	return nil
}

// Snapshot returns the filtered view.
func (e *Engine) Snapshot() *graph.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// FullSnapshot returns the unfiltered snapshot.
func (e *Engine) FullSnapshot() *graph.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.full
}

// LoadErrors returns the validation problems from the last load.
func (e *Engine) LoadErrors() []graph.ValidationError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErrors
}

// Criteria returns the active filter criteria.
func (e *Engine) Criteria() filter.Criteria {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.criteria
}

// ApplyFilters validates and applies new criteria, recording the
// resulting state in the undo history.
func (e *Engine) ApplyFilters(ctx context.Context, c filter.Criteria) error {
	if verrs := c.Validate(); len(verrs) > 0 {
		return fmt.Errorf("apply filters: %w", verrs[0])
	}
	_, span := observability.StartFilterSpan(ctx)
	defer span.End()

	e.mu.Lock()
	e.criteria = c
	e.view = filter.Apply(e.full, c)
	e.pruneSelectionLocked()
	e.hist.Save(e.stateLocked())
	meta := e.view.Meta
	e.mu.Unlock()

	e.metrics.FiltersAppliedTotal.Inc()
	observability.Audit().LogFilter(meta.TotalNodes, meta.TotalEdges)
	e.renderCtl.ObserveNodeCount(meta.TotalNodes)
	e.publish(Event{Type: EventFiltersApplied, Criteria: &c, Meta: &meta})
	return nil
}

// ClearFilters resets the criteria to zero.
func (e *Engine) ClearFilters(ctx context.Context) error {
	return e.ApplyFilters(ctx, filter.Criteria{})
}

// SelectNodes replaces the selection. Unknown node IDs are rejected.
func (e *Engine) SelectNodes(ids []int) error {
	e.mu.Lock()
	for _, id := range ids {
		if !e.view.HasNode(id) {
			e.mu.Unlock()
			return fmt.Errorf("select: node %d not in view", id)
		}
	}
	e.selection = make(map[int]bool, len(ids))
	for _, id := range ids {
		e.selection[id] = true
	}
	e.hist.Save(e.stateLocked())
	sel := e.selectionLocked()
	e.mu.Unlock()

	e.publish(Event{Type: EventSelectionChanged, Selection: sel})
	return nil
}

// Selection returns the selected node IDs in ascending order.
func (e *Engine) Selection() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectionLocked()
}

func (e *Engine) selectionLocked() []int {
	ids := make([]int, 0, len(e.selection))
	for id := range e.selection {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (e *Engine) stateLocked() State {
	return State{Criteria: e.criteria, Selection: e.selectionLocked()}
}

// pruneSelectionLocked drops selected nodes no longer present in the view.
func (e *Engine) pruneSelectionLocked() {
	for id := range e.selection {
		if !e.view.HasNode(id) {
			delete(e.selection, id)
		}
	}
}

// restoreLocked applies a history state; the caller publishes.
func (e *Engine) restoreLocked(s State) {
	e.criteria = s.Criteria
	e.view = filter.Apply(e.full, s.Criteria)
	e.selection = make(map[int]bool, len(s.Selection))
	for _, id := range s.Selection {
		if e.view.HasNode(id) {
			e.selection[id] = true
		}
	}
}

// Undo steps back one state. Returns false when there is nothing to
// undo. The criteria and selection restore together.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	s, ok := e.hist.Undo()
	if !ok {
		e.mu.Unlock()
		observability.Audit().LogHistory(false, false)
		return false
	}
	e.restoreLocked(s)
	meta := e.view.Meta
	c := e.criteria
	sel := e.selectionLocked()
	e.mu.Unlock()

	observability.Audit().LogHistory(false, true)
	e.renderCtl.ObserveNodeCount(meta.TotalNodes)
	e.publish(Event{Type: EventHistoryRestored, Criteria: &c, Selection: sel, Meta: &meta, Reason: "undo"})
	return true
}

// Redo steps forward one state. Returns false at the newest state.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	s, ok := e.hist.Redo()
	if !ok {
		e.mu.Unlock()
		observability.Audit().LogHistory(true, false)
		return false
	}
	e.restoreLocked(s)
	meta := e.view.Meta
	c := e.criteria
	sel := e.selectionLocked()
	e.mu.Unlock()

	observability.Audit().LogHistory(true, true)
	e.renderCtl.ObserveNodeCount(meta.TotalNodes)
	e.publish(Event{Type: EventHistoryRestored, Criteria: &c, Selection: sel, Meta: &meta, Reason: "redo"})
	return true
}

// CanUndo reports whether an undo step exists.
func (e *Engine) CanUndo() bool { return e.hist.CanUndo() }

// CanRedo reports whether a redo step exists.
func (e *Engine) CanRedo() bool { return e.hist.CanRedo() }

// Analyze runs the network analysis over the current view.
func (e *Engine) Analyze(ctx context.Context) *analysis.Report {
	snap := e.Snapshot()
	_, span := observability.StartAnalysisSpan(ctx, len(snap.Nodes))
	defer span.End()

	start := time.Now()
	report := analysis.Analyze(snap)
	e.metrics.RecordAnalysis(time.Since(start))
	observability.Audit().LogAnalysis(time.Since(start), len(snap.Nodes))
	return report
}

// FindPath runs the strongest-connection path query over the current view.
func (e *Engine) FindPath(ctx context.Context, sourceID, targetID int) analysis.Path {
	snap := e.Snapshot()
	_, span := observability.StartPathSpan(ctx, sourceID, targetID)
	defer span.End()

	p := analysis.ShortestPath(snap, sourceID, targetID)
	observability.RecordPathResult(span, p.Exists, len(p.Nodes), p.Cost)
	e.metrics.PathQueriesTotal.Inc()
	observability.Audit().LogPathQuery(sourceID, targetID, p.Exists, p.Cost)
	return p
}

// Recommend returns connection suggestions for a club from the current view.
func (e *Engine) Recommend(ctx context.Context, clubID, maxResults int) []analysis.Recommendation {
	snap := e.Snapshot()
	_, span := observability.StartRecommendSpan(ctx, clubID)
	defer span.End()

	recs := analysis.Recommend(snap, clubID, maxResults)
	e.metrics.RecommendationsTotal.Inc()
	observability.Audit().LogRecommend(clubID, len(recs))
	return recs
}

// Export serializes the current view.
func (e *Engine) Export(ctx context.Context, format export.Format) ([]byte, error) {
	snap := e.Snapshot()
	_, span := observability.StartExportSpan(ctx, string(format))
	defer span.End()

	data, err := export.Export(snap, format)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	e.metrics.ExportsTotal.Inc()
	observability.Audit().LogExport(string(format), "", len(data))
	return data, nil
}

// Frame is the renderer's per-frame callback, forwarded to the sampler.
func (e *Engine) Frame() {
	e.renderCtl.Frame()
}

// FPS returns the rolling average frame rate.
func (e *Engine) FPS() float64 {
	return e.renderCtl.FPS()
}

// PerformanceSettings returns the current render settings.
func (e *Engine) PerformanceSettings() render.Settings {
	return e.renderCtl.Settings()
}

// SetPerformanceMode pins the render mode by name.
func (e *Engine) SetPerformanceMode(name string) error {
	m, err := render.ParseMode(name)
	if err != nil {
		return err
	}
	e.renderCtl.SetMode(m)
	return nil
}

// SetAutoPerformanceMode returns mode selection to node-count control.
func (e *Engine) SetAutoPerformanceMode() {
	e.renderCtl.SetAutoMode()
}

// SetViewportCulling overrides automatic culling activation.
func (e *Engine) SetViewportCulling(enabled bool) {
	e.renderCtl.SetCulling(enabled)
}

// SetDeviceProfile flags device constraints that block quality recovery.
func (e *Engine) SetDeviceProfile(lowEnd, lowPower bool) {
	e.renderCtl.SetDeviceProfile(lowEnd, lowPower)
}

// ViewportChanged reruns culling for a pan/zoom event over the view's
// elements and publishes the new visibility when a pass ran.
func (e *Engine) ViewportChanged(vp render.Viewport) (render.CullStats, bool) {
	e.mu.Lock()
	view := e.view
	e.mu.Unlock()

	stats, ran := e.renderCtl.ViewportChanged(view.Nodes, view.Edges, vp)
	if ran {
		e.metrics.RecordCullPass(stats.VisibleNodes)
		e.publish(Event{
			Type:    EventVisibilityChanged,
			Visible: stats.VisibleNodes,
			Hidden:  stats.HiddenNodes,
		})
	}
	return stats, ran
}

// onPerformanceChange relays controller adjustments to subscribers and
// repeats culling when the visible cap shrank.
func (e *Engine) onPerformanceChange(s render.Settings, reason string) {
	e.metrics.RecordPerformance(e.renderCtl.FPS(), modeRank(s.Mode))
	if reason == "fps-degrade" {
		e.metrics.DegradationsTotal.Inc()
		observability.Audit().LogDegradation(e.renderCtl.FPS(), s.Quality)
		e.mu.Lock()
		view := e.view
		e.mu.Unlock()
		if stats, ran := e.renderCtl.Recull(view.Nodes, view.Edges); ran {
			e.metrics.RecordCullPass(stats.VisibleNodes)
		}
	}
	e.publish(Event{Type: EventPerformanceChanged, Settings: &s, Reason: reason})
}

func modeRank(m render.Mode) int {
	switch m {
	case render.ModeUltra:
		return 2
	case render.ModeHighPerformance:
		return 1
	default:
		return 0
	}
}
