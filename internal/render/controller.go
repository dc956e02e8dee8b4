package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/clubgraph/clubgraph/internal/graph"
)

// Quality tiers. maxQuality is full fidelity; each degradation step
// moves one tier down.
const (
	minQuality = 0
	maxQuality = 3
)

const (
	defaultCullingThreshold = 1000
	defaultMaxVisibleNodes  = 1000
	degradeBelowFPS         = 30.0
	improveAboveFPS         = 50.0
	sustainWindows          = 3
	// Culling recomputes are capped to the display frame budget.
	cullingInterval = 16 * time.Millisecond

	minVisibleFloor       = 100
	maxUpdateInterval     = 200 * time.Millisecond
	defaultUpdateInterval = 25 * time.Millisecond
)

// Settings is the full renderer-facing state the controller maintains.
type Settings struct {
	Mode            Mode          `json:"mode"`
	Hints           Hints         `json:"hints"`
	Quality         int           `json:"quality"`
	UpdateInterval  time.Duration `json:"update_interval"`
	MaxVisibleNodes int           `json:"max_visible_nodes"`
	Animations      bool          `json:"animations"`
	Shadows         bool          `json:"shadows"`
	CullingActive   bool          `json:"culling_active"`
}

// Config configures a Controller.
type Config struct {
	CullingThreshold int
	MaxVisibleNodes  int
	SampleWindow     time.Duration // FPS window, default 1s
	EvalInterval     time.Duration // control-loop tick, default 1s
	LowEndDevice     bool
	LowPowerMode     bool
	Logger           *slog.Logger

	// OnChange is invoked with the new settings and a short reason tag
	// whenever the controller adjusts anything.
	OnChange func(Settings, string)
}

// Controller runs the adaptive rendering control loop: it tracks frame
// rate and graph size, escalates or relaxes the performance mode, and
// culls off-screen elements. It keeps running for the lifetime of an
// active visualization; Stop tears it down deterministically.
type Controller struct {
	mu sync.Mutex

	cfg      Config
	logger   *slog.Logger
	sampler  *Sampler
	limiter  *rate.Limiter
	onChange func(Settings, string)

	mode         Mode
	modeExplicit bool

	cullingOverride *bool // explicit on/off, nil = automatic
	nodeCount       int
	lastViewport    *Viewport

	quality        int
	updateInterval time.Duration
	maxVisible     int
	animations     bool
	shadows        bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller with full quality settings.
func NewController(cfg Config) *Controller {
	if cfg.CullingThreshold <= 0 {
		cfg.CullingThreshold = defaultCullingThreshold
	}
	if cfg.MaxVisibleNodes <= 0 {
		cfg.MaxVisibleNodes = defaultMaxVisibleNodes
	}
	if cfg.SampleWindow <= 0 {
		cfg.SampleWindow = time.Second
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:            cfg,
		logger:         logger,
		sampler:        NewSampler(cfg.SampleWindow, sustainWindows),
		limiter:        rate.NewLimiter(rate.Every(cullingInterval), 1),
		onChange:       cfg.OnChange,
		mode:           ModeStandard,
		quality:        maxQuality,
		updateInterval: defaultUpdateInterval,
		maxVisible:     cfg.MaxVisibleNodes,
		animations:     true,
		shadows:        true,
	}
}

// Start launches the control loop. It runs until Stop is called or the
// context is cancelled.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	c.done = done
	interval := c.cfg.EvalInterval
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				c.sampler.Tick(now)
				c.evaluate()
			}
		}
	}()
}

// Stop cancels the control loop and waits for it to exit.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

// Frame is the renderer's per-frame callback.
func (c *Controller) Frame() {
	c.sampler.Frame(time.Now())
}

// FPS returns the rolling average frame rate.
func (c *Controller) FPS() float64 {
	return c.sampler.Average()
}

// Settings returns the current renderer-facing settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settingsLocked()
}

func (c *Controller) settingsLocked() Settings {
	return Settings{
		Mode:            c.mode,
		Hints:           c.mode.Hints(),
		Quality:         c.quality,
		UpdateInterval:  c.updateInterval,
		MaxVisibleNodes: c.maxVisible,
		Animations:      c.animations,
		Shadows:         c.shadows,
		CullingActive:   c.cullingActiveLocked(),
	}
}

// ObserveNodeCount feeds the current graph size into the controller,
// escalating the mode automatically when thresholds are crossed. An
// explicitly set mode is never lowered automatically, only raised.
func (c *Controller) ObserveNodeCount(n int) {
	c.mu.Lock()
	c.nodeCount = n
	auto := ModeForNodeCount(n)
	changed := false
	if !c.modeExplicit {
		if auto != c.mode {
			c.mode = auto
			changed = true
		}
	} else if auto.Exceeds(c.mode) {
		c.mode = auto
		changed = true
	}
	settings := c.settingsLocked()
	c.mu.Unlock()

	if changed {
		c.logger.Info("performance mode escalated", "mode", settings.Mode, "nodes", n)
		c.notify(settings, "node-count")
	}
}

// SetMode pins the performance mode explicitly.
func (c *Controller) SetMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	c.modeExplicit = true
	settings := c.settingsLocked()
	c.mu.Unlock()
	c.notify(settings, "explicit")
}

// SetAutoMode returns mode selection to node-count control.
func (c *Controller) SetAutoMode() {
	c.mu.Lock()
	c.modeExplicit = false
	c.mode = ModeForNodeCount(c.nodeCount)
	settings := c.settingsLocked()
	c.mu.Unlock()
	c.notify(settings, "auto")
}

// SetCulling overrides automatic culling activation.
func (c *Controller) SetCulling(enabled bool) {
	c.mu.Lock()
	c.cullingOverride = &enabled
	settings := c.settingsLocked()
	c.mu.Unlock()
	c.notify(settings, "explicit")
}

// SetDeviceProfile flags a low-end device or low-power mode; both block
// automatic quality improvement.
func (c *Controller) SetDeviceProfile(lowEnd, lowPower bool) {
	c.mu.Lock()
	c.cfg.LowEndDevice = lowEnd
	c.cfg.LowPowerMode = lowPower
	c.mu.Unlock()
}

func (c *Controller) cullingActiveLocked() bool {
	if c.cullingOverride != nil {
		return *c.cullingOverride
	}
	return c.nodeCount > c.cfg.CullingThreshold
}

// ViewportChanged recomputes visibility for a pan/zoom event. Calls
// are throttled to the frame budget; a skipped call returns false and
// leaves the previous flags untouched. When culling is inactive every
// element is made visible.
func (c *Controller) ViewportChanged(nodes []graph.Node, edges []graph.Edge, vp Viewport) (CullStats, bool) {
	c.mu.Lock()
	c.nodeCount = len(nodes)
	c.lastViewport = &vp
	active := c.cullingActiveLocked()
	maxVisible := c.maxVisible
	c.mu.Unlock()

	if !active {
		return ShowAll(nodes, edges), true
	}
	if !c.limiter.Allow() {
		return CullStats{}, false
	}
	return Cull(nodes, edges, vp, maxVisible), true
}

// Recull repeats the last culling pass, used after the visible cap
// shrinks. Not throttled.
func (c *Controller) Recull(nodes []graph.Node, edges []graph.Edge) (CullStats, bool) {
	c.mu.Lock()
	vp := c.lastViewport
	active := c.cullingActiveLocked()
	maxVisible := c.maxVisible
	c.mu.Unlock()

	if !active {
		return ShowAll(nodes, edges), true
	}
	if vp == nil {
		return CullStats{}, false
	}
	return Cull(nodes, edges, *vp, maxVisible), true
}

// evaluate is one control-loop step: degrade one level on sustained low
// FPS, improve one level on sustained high FPS when the device allows.
func (c *Controller) evaluate() {
	if c.sampler.SustainedBelow(degradeBelowFPS, sustainWindows) {
		c.degrade()
		return
	}
	if c.sampler.SustainedAbove(improveAboveFPS, sustainWindows) {
		c.improve()
	}
}

func (c *Controller) degrade() {
	c.mu.Lock()
	if c.quality <= minQuality {
		c.mu.Unlock()
		return
	}
	c.quality--
	c.updateInterval *= 2
	if c.updateInterval > maxUpdateInterval {
		c.updateInterval = maxUpdateInterval
	}
	c.maxVisible = c.maxVisible * 3 / 4
	if c.maxVisible < minVisibleFloor {
		c.maxVisible = minVisibleFloor
	}
	c.animations = false
	c.shadows = false
	settings := c.settingsLocked()
	fps := c.sampler.Average()
	c.mu.Unlock()

	c.sampler.Reset()
	c.logger.Warn("render quality degraded",
		"quality", settings.Quality, "fps", fps, "max_visible", settings.MaxVisibleNodes)
	c.notify(settings, "fps-degrade")
}

func (c *Controller) improve() {
	c.mu.Lock()
	if c.cfg.LowEndDevice || c.cfg.LowPowerMode || c.quality >= maxQuality {
		c.mu.Unlock()
		return
	}
	c.quality++
	c.updateInterval /= 2
	if c.updateInterval < defaultUpdateInterval {
		c.updateInterval = defaultUpdateInterval
	}
	c.maxVisible = c.maxVisible * 4 / 3
	if c.maxVisible > c.cfg.MaxVisibleNodes {
		c.maxVisible = c.cfg.MaxVisibleNodes
	}
	if c.quality >= maxQuality {
		c.animations = true
		c.shadows = true
	}
	settings := c.settingsLocked()
	fps := c.sampler.Average()
	c.mu.Unlock()

	c.sampler.Reset()
	c.logger.Info("render quality improved",
		"quality", settings.Quality, "fps", fps, "max_visible", settings.MaxVisibleNodes)
	c.notify(settings, "fps-improve")
}

func (c *Controller) notify(settings Settings, reason string) {
	if c.onChange != nil {
		c.onChange(settings, reason)
	}
}
