package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderFieldOrder(t *testing.T) {
	w := NewWriter()
	w.Write8(0xAB)
	w.Write16(0x1234)
	w.Write32(0xDEADBEEF)
	w.Write64(0x0102030405060708)
	w.WriteInt(-42)
	w.WriteFloat64(1.5)
	w.WriteBool(true)
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteUint32s([]uint32{0xFFFFFFFF, 0x000000FF})

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(0xAB), r.Read8())
	assert.Equal(t, uint16(0x1234), r.Read16())
	assert.Equal(t, uint32(0xDEADBEEF), r.Read32())
	assert.Equal(t, uint64(0x0102030405060708), r.Read64())
	assert.Equal(t, -42, r.ReadInt())
	assert.Equal(t, 1.5, r.ReadFloat64())
	assert.True(t, r.ReadBool())
	assert.Equal(t, []byte{1, 2, 3}, r.ReadBytes())

	words := make([]uint32, 2)
	r.ExpectUint32s(words)
	assert.Equal(t, []uint32{0xFFFFFFFF, 0x000000FF}, words)

	require.NoError(t, r.Err())
	assert.Zero(t, r.Remaining())
}

func TestWriterIsLittleEndian(t *testing.T) {
	w := NewWriter()
	w.Write16(0xBEEF)
	w.WriteBytes([]byte{0x7F})
	assert.Equal(t, []byte{0xEF, 0xBE, 0x01, 0x00, 0x00, 0x00, 0x7F}, w.Bytes())
}

func TestReaderTruncation(t *testing.T) {
	w := NewWriter()
	w.Write16(0x1234)

	r := NewReader(w.Bytes())
	assert.Equal(t, uint16(0x1234), r.Read16())
	assert.Equal(t, uint32(0), r.Read32())
	assert.ErrorIs(t, r.Err(), ErrTruncated)

	// errors are sticky
	assert.Equal(t, uint8(0), r.Read8())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
}

func TestReaderLengthMismatch(t *testing.T) {
	w := NewWriter()
	w.WriteBytes([]byte{1, 2, 3, 4})

	r := NewReader(w.Bytes())
	dst := make([]byte, 8)
	r.ExpectBytes(dst)
	assert.ErrorIs(t, r.Err(), ErrLength)
	assert.Equal(t, make([]byte, 8), dst, "destination must be untouched on failure")
}

func TestReaderOversizedPrefix(t *testing.T) {
	w := NewWriter()
	w.Write32(1 << 30)

	r := NewReader(w.Bytes())
	assert.Nil(t, r.ReadBytes())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
}
