package render

import (
	"testing"
	"time"
)

func TestSamplerWindowRates(t *testing.T) {
	s := NewSampler(time.Second, 3)
	start := time.Now()

	// 60 frames inside the first second.
	for i := 0; i < 60; i++ {
		s.Frame(start.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	// First frame of the next window closes the previous one.
	s.Frame(start.Add(1100 * time.Millisecond))

	avg := s.Average()
	if avg < 50 || avg > 60 {
		t.Errorf("expected ~55-60 fps, got %f", avg)
	}
}

func TestSamplerToleratesIrregularIntervals(t *testing.T) {
	s := NewSampler(time.Second, 3)
	start := time.Now()

	// 30 frames spread over 3 seconds in one burst gap.
	for i := 0; i < 30; i++ {
		s.Frame(start.Add(time.Duration(i) * 100 * time.Millisecond))
	}
	s.Tick(start.Add(3 * time.Second))

	if avg := s.Average(); avg > 15 {
		t.Errorf("expected degraded rate over a long gap, got %f", avg)
	}
}

func TestSamplerSustained(t *testing.T) {
	s := NewSampler(time.Second, 3)
	start := time.Now()

	// Three full windows at ~20 fps.
	for w := 0; w < 3; w++ {
		base := start.Add(time.Duration(w) * time.Second)
		for i := 0; i < 20; i++ {
			s.Frame(base.Add(time.Duration(i) * 50 * time.Millisecond))
		}
	}
	s.Tick(start.Add(3 * time.Second))

	if !s.SustainedBelow(30, 3) {
		t.Error("expected sustained low fps over 3 windows")
	}
	if s.SustainedAbove(50, 3) {
		t.Error("did not expect sustained high fps")
	}
}

func TestSamplerNeedsEnoughWindows(t *testing.T) {
	s := NewSampler(time.Second, 3)
	start := time.Now()

	for i := 0; i < 10; i++ {
		s.Frame(start.Add(time.Duration(i) * 50 * time.Millisecond))
	}
	s.Tick(start.Add(time.Second))

	if s.SustainedBelow(30, 3) {
		t.Error("one window must not count as sustained")
	}
}

func TestSamplerReset(t *testing.T) {
	s := NewSampler(time.Second, 3)
	start := time.Now()
	s.Frame(start)
	s.Tick(start.Add(time.Second))

	s.Reset()
	if s.Average() != 0 {
		t.Error("expected empty sampler after reset")
	}
}
