package serial

import (
	"log/slog"

	"github.com/valerio/go-jeebie-color/jeebie/addr"
	"github.com/valerio/go-jeebie-color/jeebie/bit"
	"github.com/valerio/go-jeebie-color/jeebie/memory"
	"github.com/valerio/go-jeebie-color/jeebie/state"
)

const (
	// transferCycles is the duration of one byte on the internal 8192 Hz clock.
	transferCycles = 4096
	// OutputLimit is how many of the most recent sent bytes Output keeps.
	OutputLimit = 4096
)

// LogSink implements a dummy serial device that just logs outgoing bytes as text.
// Handy for debugging test roms that output to serial. Every sent byte is
// also kept and the most recent OutputLimit bytes can be read back with
// Output.
type LogSink struct {
	mmu            *memory.MMU
	sb, sc         memory.Register
	transferActive bool
	countdown      int
	logger         *slog.Logger

	// settings
	immediate bool
	defaultRX byte // value shifted in from the absent peer

	line   []byte
	output []byte
}

type LogSinkOption func(*LogSink)

// WithFixedTiming sets the sink to complete transfers after a fixed countdown
// (~4096 CPU cycles per byte on DMG) instead of immediately.
func WithFixedTiming() LogSinkOption { return func(s *LogSink) { s.immediate = false } }

// WithLogger routes the line log to logger instead of the default one.
func WithLogger(logger *slog.Logger) LogSinkOption { return func(s *LogSink) { s.logger = logger } }

// NewLogSink creates a new logging serial device attached to SB and SC.
// Completed transfers request the Serial interrupt.
func NewLogSink(mmu *memory.MMU, opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		mmu:       mmu,
		sb:        mmu.Register(addr.SB),
		sc:        mmu.Register(addr.SC),
		immediate: true,
		defaultRX: 0xFF,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	mmu.Attach(addr.SB, addr.SC, s)
	s.Reset()
	return s
}

func (s *LogSink) WriteIO(address uint16, value byte) {
	switch address {
	case addr.SB:
		s.sb.Set(value)
	case addr.SC:
		s.sc.Set(value)
		s.maybeStartTransfer()
	default:
		panic("serial.LogSink: invalid write address")
	}
}

func (s *LogSink) ReadIO(address uint16) byte {
	switch address {
	case addr.SB:
		return s.sb.Get()
	case addr.SC:
		// unused bits read as 1
		return s.sc.Get() | 0x7E
	default:
		panic("serial.LogSink: invalid read address")
	}
}

func (s *LogSink) Tick(cycles int) {
	if s.immediate || !s.transferActive {
		return
	}
	s.countdown -= cycles
	if s.countdown <= 0 {
		s.completeTransfer()
		s.countdown = 0
	}
}

func (s *LogSink) Reset() {
	s.sb.Set(0x00)
	s.sc.Set(0x00)
	s.transferActive = false
	s.countdown = 0
	s.line = s.line[:0]
	s.output = s.output[:0]
}

// Output returns the last OutputLimit bytes sent.
func (s *LogSink) Output() []byte {
	tail := s.tail()
	out := make([]byte, len(tail))
	copy(out, tail)
	return out
}

func (s *LogSink) tail() []byte {
	if len(s.output) > OutputLimit {
		return s.output[len(s.output)-OutputLimit:]
	}
	return s.output
}

// record appends an outgoing byte. The buffer is compacted once it holds
// twice the limit, so the copy is amortized over OutputLimit bytes.
func (s *LogSink) record(b byte) {
	s.output = append(s.output, b)
	if len(s.output) >= 2*OutputLimit {
		s.output = append(s.output[:0], s.tail()...)
	}
}

func (s *LogSink) maybeStartTransfer() {
	if s.transferActive {
		return
	}
	// a transfer should start when bit 7 (start) and bit 0 (clock source) of SC are set.
	sc := s.sc.Get()
	if !bit.IsSet(7, sc) || !bit.IsSet(0, sc) {
		return
	}

	b := s.sb.Get()
	s.record(b)

	// log the outgoing byte as text; buffer until newline for readability
	if b == 0 || b == '\n' || b == '\r' {
		s.flushLine()
	} else {
		s.line = append(s.line, b)
	}

	if s.immediate {
		s.completeTransfer()
		return
	}

	s.transferActive = true
	s.countdown = transferCycles
}

func (s *LogSink) flushLine() {
	if len(s.line) == 0 {
		return
	}
	s.logger.Info("serial", "line", string(s.line))
	s.line = s.line[:0]
}

func (s *LogSink) completeTransfer() {
	s.sb.Set(s.defaultRX)
	// Clear start bit (bit7) to indicate completion
	s.sc.Set(bit.Clear(7, s.sc.Get()))
	s.transferActive = false
	s.mmu.RequestInterrupt(addr.SerialInterrupt)
}

func (s *LogSink) Save(w *state.Writer) {
	w.WriteBool(s.transferActive)
	w.WriteInt(s.countdown)
	w.WriteBytes(s.tail())
}

func (s *LogSink) Load(r *state.Reader) {
	s.transferActive = r.ReadBool()
	s.countdown = r.ReadInt()
	s.output = r.ReadBytes()
	s.output = append(s.output[:0], s.tail()...)
	s.line = s.line[:0]
}
