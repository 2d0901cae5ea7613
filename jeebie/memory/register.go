package memory

import "github.com/valerio/go-jeebie-color/jeebie/bit"

// Register is a handle to a single byte of the MMU's flat array. Devices hold
// handles to their own registers instead of going through Read/Write, which
// would loop back into their IOHandler.
type Register struct {
	mem     *[0x10000]byte
	address uint16
}

func (r Register) Address() uint16 { return r.address }

func (r Register) Get() byte { return r.mem[r.address] }

func (r Register) Set(value byte) { r.mem[r.address] = value }

func (r Register) IsSet(index uint8) bool {
	return bit.IsSet(index, r.mem[r.address])
}

func (r Register) SetBit(index uint8, on bool) {
	r.mem[r.address] = bit.SetTo(index, r.mem[r.address], on)
}
