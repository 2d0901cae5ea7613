package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rawOAM(entries ...[4]byte) []byte {
	raw := make([]byte, objectCount*objectEntryBytes)
	for i, e := range entries {
		copy(raw[i*objectEntryBytes:], e[:])
	}
	return raw
}

func TestDecodeObject(t *testing.T) {
	var o OAM
	o.Scan(rawOAM([4]byte{26, 28, 0x42, 0xFB}))

	obj := o.Objects()[0]
	assert.Equal(t, 10, obj.ScreenY())
	assert.Equal(t, 20, obj.ScreenX())
	assert.Equal(t, uint8(0x42), obj.TileIndex)
	assert.Equal(t, uint8(3), obj.CGBPalette)
	assert.Equal(t, 1, obj.Bank)
	assert.True(t, obj.PaletteOBP1)
	assert.True(t, obj.FlipX)
	assert.True(t, obj.FlipY)
	assert.True(t, obj.BehindBG)
}

func TestObjectsForLine(t *testing.T) {
	tests := []struct {
		name    string
		entries [][4]byte
		line    int
		height  int
		want    []int // OAM indexes in priority order
	}{
		{
			name:    "sorted by x",
			entries: [][4]byte{{16, 30, 0, 0}, {16, 10, 0, 0}, {16, 20, 0, 0}},
			line:    0, height: 8,
			want: []int{1, 2, 0},
		},
		{
			name:    "equal x keeps OAM order",
			entries: [][4]byte{{16, 10, 0, 0}, {16, 5, 0, 0}, {16, 10, 0, 0}},
			line:    0, height: 8,
			want: []int{1, 0, 2},
		},
		{
			name:    "y range",
			entries: [][4]byte{{16, 8, 0, 0}, {24, 8, 0, 0}, {9, 8, 0, 0}},
			line:    7, height: 8,
			want: []int{0},
		},
		{
			name:    "tall objects",
			entries: [][4]byte{{16, 8, 0, 0}, {24, 8, 0, 0}},
			line:    15, height: 16,
			want: []int{0, 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var o OAM
			o.Scan(rawOAM(tt.entries...))
			// unused entries sit at Y=0, off screen
			var got []int
			for _, obj := range o.ObjectsForLine(tt.line, tt.height) {
				got = append(got, obj.OAMIndex)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOffScreenObjectsCountTowardLimit(t *testing.T) {
	entries := make([][4]byte, 12)
	for i := range entries {
		// X=0 hides the first ten horizontally
		entries[i] = [4]byte{16, 0, 0, 0}
	}
	entries[10][1] = 50
	entries[11][1] = 60

	var o OAM
	o.Scan(rawOAM(entries...))
	line := o.ObjectsForLine(0, 8)
	assert.Len(t, line, objectsPerLine)
	for _, obj := range line {
		assert.Less(t, obj.OAMIndex, 10)
	}
}
