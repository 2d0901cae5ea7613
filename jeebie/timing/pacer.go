package timing

import (
	"log/slog"
	"time"

	"github.com/valerio/go-jeebie-color/jeebie/state"
)

const (
	// SyncInterval is the number of base clock cycles between two wall
	// clock checks, 1% of an emulated second.
	SyncInterval = CPUFrequency / 100

	// maxLag is how far behind the pacer may fall before it gives up on
	// catching up and restarts from the current time.
	maxLag = 100 * time.Millisecond
)

// Pacer keeps emulated cycles in step with the wall clock. It busy-waits
// instead of sleeping, since sleep granularity is coarser than the sync
// interval on most hosts.
type Pacer struct {
	now   func() time.Time
	speed float64

	start   time.Time
	elapsed uint64 // cycles accounted since start
	pending int    // cycles since the last sync
	syncs   uint64
	resyncs uint64
}

type PacerOption func(*Pacer)

// WithClock replaces time.Now as the pacer's time source.
func WithClock(now func() time.Time) PacerOption {
	return func(p *Pacer) { p.now = now }
}

// NewPacer returns a pacer running at normal speed.
func NewPacer(opts ...PacerOption) *Pacer {
	p := &Pacer{now: time.Now, speed: 1}
	for _, opt := range opts {
		opt(p)
	}
	p.Reset()
	return p
}

// SetSpeed changes the emulation speed multiplier. 0 disables pacing.
func (p *Pacer) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	p.speed = speed
	p.Reset()
}

func (p *Pacer) Speed() float64 {
	return p.speed
}

// Reset restarts the reference point at the current time. Call it after a
// pause so the pacer doesn't try to catch up.
func (p *Pacer) Reset() {
	p.start = p.now()
	p.elapsed = 0
	p.pending = 0
}

// Advance accounts for cycles of emulation, blocking once per sync interval
// until the wall clock catches up.
func (p *Pacer) Advance(cycles int) {
	if p.speed == 0 {
		return
	}
	p.pending += cycles
	if p.pending < SyncInterval {
		return
	}

	p.elapsed += uint64(p.pending)
	p.pending = 0
	p.syncs++

	target := time.Duration(float64(p.elapsed) / (CPUFrequency * p.speed) * float64(time.Second))
	behind := p.now().Sub(p.start) - target
	if behind > maxLag {
		p.resyncs++
		slog.Debug("Pacer fell behind, resyncing", "behind_ms", behind.Milliseconds())
		p.Reset()
		return
	}

	for p.now().Sub(p.start) < target {
		// busy-wait, sleep is too coarse for a 10ms interval
	}
}

// Syncs returns how many times the pacer compared against the wall clock.
func (p *Pacer) Syncs() uint64 { return p.syncs }

// Resyncs returns how many times the pacer gave up catching up.
func (p *Pacer) Resyncs() uint64 { return p.resyncs }

func (p *Pacer) Save(w *state.Writer) {
	w.WriteFloat64(p.speed)
	w.Write64(p.elapsed)
	w.WriteInt(p.pending)
	w.Write64(p.syncs)
	w.Write64(p.resyncs)
}

// Load restores the counters. Wall clock timestamps are meaningless across
// runs, so the reference point restarts at the current time.
func (p *Pacer) Load(r *state.Reader) {
	p.speed = r.ReadFloat64()
	r.Read64()
	r.ReadInt()
	p.syncs = r.Read64()
	p.resyncs = r.Read64()
	p.Reset()
}
