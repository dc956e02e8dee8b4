package render

import (
	"sync"
	"time"
)

// Sampler accumulates rendered-frame counts over rolling windows and
// keeps the last few window rates for sustained-FPS decisions. It
// tolerates irregular invocation: a window is closed by whichever
// Frame call first observes that it elapsed, and the rate is computed
// from the real elapsed time rather than the nominal window length.
type Sampler struct {
	mu          sync.Mutex
	window      time.Duration
	keep        int
	frames      int
	windowStart time.Time
	rates       []float64
}

// NewSampler creates a sampler with the given window length, retaining
// the most recent keep window rates.
func NewSampler(window time.Duration, keep int) *Sampler {
	if window <= 0 {
		window = time.Second
	}
	if keep < 1 {
		keep = 3
	}
	return &Sampler{window: window, keep: keep}
}

// Frame records one rendered frame.
func (s *Sampler) Frame(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll(now)
	s.frames++
}

// Tick closes the current window if it elapsed without requiring a
// frame to arrive; the control loop calls it so a stalled renderer
// still produces (zero) samples.
func (s *Sampler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll(now)
}

func (s *Sampler) roll(now time.Time) {
	if s.windowStart.IsZero() {
		s.windowStart = now
		return
	}
	elapsed := now.Sub(s.windowStart)
	if elapsed < s.window {
		return
	}
	rate := float64(s.frames) / elapsed.Seconds()
	s.rates = append(s.rates, rate)
	if len(s.rates) > s.keep {
		s.rates = s.rates[len(s.rates)-s.keep:]
	}
	s.frames = 0
	s.windowStart = now
}

// Average returns the mean rate over the retained windows, or 0 when no
// window has completed yet.
func (s *Sampler) Average() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rates) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range s.rates {
		sum += r
	}
	return sum / float64(len(s.rates))
}

// SustainedBelow reports whether every retained window rate is below
// the threshold and at least windows samples exist.
func (s *Sampler) SustainedBelow(threshold float64, windows int) bool {
	return s.sustained(windows, func(r float64) bool { return r < threshold })
}

// SustainedAbove reports whether every retained window rate is above
// the threshold and at least windows samples exist.
func (s *Sampler) SustainedAbove(threshold float64, windows int) bool {
	return s.sustained(windows, func(r float64) bool { return r > threshold })
}

func (s *Sampler) sustained(windows int, match func(float64) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if windows < 1 {
		windows = 1
	}
	if len(s.rates) < windows {
		return false
	}
	for _, r := range s.rates[len(s.rates)-windows:] {
		if !match(r) {
			return false
		}
	}
	return true
}

// Reset clears all samples, used after a quality change so stale
// windows do not trigger a second step immediately.
func (s *Sampler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = 0
	s.rates = nil
	s.windowStart = time.Time{}
}
