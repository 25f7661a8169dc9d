package sample

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sample is one 3-axis reading in device units.
type Sample struct {
	X, Y, Z int16
}

func (s Sample) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.X, s.Y, s.Z)
}

// Delta is the difference between two samples.  It is kept at 32 bits because
// the difference of two int16 readings does not fit in 16.
type Delta struct {
	X, Y, Z int32
}

func Sub(a, b Sample) Delta {
	return Delta{
		X: int32(a.X) - int32(b.X),
		Y: int32(a.Y) - int32(b.Y),
		Z: int32(a.Z) - int32(b.Z),
	}
}

func (d Delta) Axes() [3]int32 {
	return [3]int32{d.X, d.Y, d.Z}
}

const WindowSize = 5

type MeanMode int

const (
	// MeanSkipNewest sums all but the newest entry and still divides by
	// WindowSize.  This is how the baseline has always been computed on the
	// robot and collision thresholds were tuned against it.
	MeanSkipNewest MeanMode = iota
	// MeanFull sums every entry.
	MeanFull
)

func (m MeanMode) String() string {
	switch m {
	case MeanSkipNewest:
		return "skip-newest"
	case MeanFull:
		return "full"
	}
	return fmt.Sprintf("MeanMode(%d)", int(m))
}

func ParseMeanMode(s string) (MeanMode, error) {
	switch s {
	case "skip-newest", "":
		return MeanSkipNewest, nil
	case "full":
		return MeanFull, nil
	}
	return 0, errors.Errorf("unknown mean mode %q", s)
}

// Window is a sliding window of the most recent samples, oldest first.  It is
// always full; a new window holds WindowSize zero samples.
type Window struct {
	samples [WindowSize]Sample
}

// Push drops the oldest sample and appends s.
func (w *Window) Push(s Sample) {
	copy(w.samples[:], w.samples[1:])
	w.samples[WindowSize-1] = s
}

func (w *Window) Samples() [WindowSize]Sample {
	return w.samples
}

// Mean returns the per-axis mean, truncated toward zero.  The denominator is
// always WindowSize, whichever mode picks the terms.
func (w *Window) Mean(mode MeanMode) Sample {
	n := WindowSize
	if mode == MeanSkipNewest {
		n = WindowSize - 1
	}
	var x, y, z int32
	for _, s := range w.samples[:n] {
		x += int32(s.X)
		y += int32(s.Y)
		z += int32(s.Z)
	}
	return Sample{
		X: int16(x / WindowSize),
		Y: int16(y / WindowSize),
		Z: int16(z / WindowSize),
	}
}
