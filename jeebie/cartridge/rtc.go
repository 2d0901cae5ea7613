package cartridge

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Clock provides wall-clock time to the RTC.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the host wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// RTC register indexes, as selected through 0x4000-0x5FFF.
const (
	rtcSeconds uint8 = 0x08
	rtcMinutes uint8 = 0x09
	rtcHours   uint8 = 0x0A
	rtcDayLow  uint8 = 0x0B
	rtcDayHigh uint8 = 0x0C
)

const (
	dayHighBit    = 0x01
	dayHaltBit    = 0x40
	dayCarryBit   = 0x80
	dayHighMask   = dayHighBit | dayHaltBit | dayCarryBit
	maxDayCounter = 511
)

// rtcRegisterMasks hold the writable bits of S, M, H, DL, DH.
var rtcRegisterMasks = [5]uint8{0x3F, 0x3F, 0x1F, 0xFF, dayHighMask}

// RTC models the MBC3 real time clock.
//
// Live registers advance with wall-clock time since the last update. A write
// of 0 followed by 1 to 0x6000-0x7FFF copies them into the latched set, and
// reads return the latched copy from then on.
type RTC struct {
	clock Clock

	live       [5]uint8
	latched    [5]uint8
	lastUpdate int64 // unix seconds
	isLatched  bool
	latchArmed bool
}

// NewRTC creates a clock starting at zero, based at the current time.
func NewRTC(clock Clock) *RTC {
	if clock == nil {
		clock = SystemClock
	}
	return &RTC{
		clock:      clock,
		lastUpdate: clock.Now().Unix(),
	}
}

// Halted reports whether the halt flag in DH freezes the clock.
func (r *RTC) Halted() bool {
	return r.live[4]&dayHaltBit != 0
}

// Days returns the 9 bit day counter of the live registers.
func (r *RTC) Days() int {
	return int(r.live[4]&dayHighBit)<<8 | int(r.live[3])
}

// Update advances the live registers by the wall-clock delta since the last call.
func (r *RTC) Update() {
	now := r.clock.Now().Unix()
	delta := now - r.lastUpdate
	r.lastUpdate = now

	if r.Halted() || delta <= 0 {
		return
	}

	total := int64(r.live[0]) + delta
	seconds := total % 60
	total = int64(r.live[1]) + total/60
	minutes := total % 60
	total = int64(r.live[2]) + total/60
	hours := total % 24
	days := int64(r.Days()) + total/24

	r.live[0] = uint8(seconds)
	r.live[1] = uint8(minutes)
	r.live[2] = uint8(hours)

	if days > maxDayCounter {
		// the carry stays set until software clears it
		r.live[4] |= dayCarryBit
		days %= maxDayCounter + 1
	}
	r.live[3] = uint8(days)
	r.live[4] = r.live[4]&^dayHighBit | uint8(days>>8)&dayHighBit
}

// WriteLatch handles writes to 0x6000-0x7FFF.
func (r *RTC) WriteLatch(value uint8) {
	switch {
	case value == 0x00:
		r.latchArmed = true
	case value == 0x01 && r.latchArmed:
		r.Update()
		r.latched = r.live
		r.isLatched = true
		r.latchArmed = false
	default:
		r.latchArmed = false
	}
}

// Read returns the selected register: the latched copy once a latch
// happened, the live value otherwise.
func (r *RTC) Read(register uint8) uint8 {
	idx, ok := registerIndex(register)
	if !ok {
		return 0xFF
	}
	if r.isLatched {
		return r.latched[idx]
	}
	r.Update()
	return r.live[idx]
}

// Write sets a live register.
func (r *RTC) Write(register uint8, value uint8) {
	idx, ok := registerIndex(register)
	if !ok {
		return
	}
	// bring the clock up to date so elapsed time is not attributed to the new value
	r.Update()
	r.live[idx] = value & rtcRegisterMasks[idx]
}

func registerIndex(register uint8) (int, bool) {
	if register < rtcSeconds || register > rtcDayHigh {
		return 0, false
	}
	return int(register - rtcSeconds), true
}

// rtcFile is the on-disk layout of the RTC: live then latched registers,
// last update time and latch state, little-endian with no header.
type rtcFile struct {
	Live       [5]uint8
	Latched    [5]uint8
	LastUpdate int64
	IsLatched  uint8
	LatchArmed uint8
}

// MarshalBinary encodes the RTC in its persisted layout.
func (r *RTC) MarshalBinary() ([]byte, error) {
	f := rtcFile{
		Live:       r.live,
		Latched:    r.latched,
		LastUpdate: r.lastUpdate,
		IsLatched:  boolToByte(r.isLatched),
		LatchArmed: boolToByte(r.latchArmed),
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes the persisted layout.
func (r *RTC) UnmarshalBinary(data []byte) error {
	var f rtcFile
	if len(data) != binary.Size(f) {
		return fmt.Errorf("rtc: expected %d bytes, got %d", binary.Size(f), len(data))
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &f); err != nil && err != io.EOF {
		return err
	}
	r.live = f.Live
	r.latched = f.Latched
	r.lastUpdate = f.LastUpdate
	r.isLatched = f.IsLatched != 0
	r.latchArmed = f.LatchArmed != 0
	return nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
