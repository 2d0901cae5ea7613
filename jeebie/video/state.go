package video

import (
	"fmt"

	"github.com/valerio/go-jeebie-color/jeebie/state"
)

func (g *GPU) Save(w *state.Writer) {
	w.Write8(uint8(g.mode))
	w.WriteInt(g.cycles)
	w.WriteInt(g.windowLine)
	w.WriteBool(g.frameReady)

	var raw [objectCount * objectEntryBytes]byte
	for i, o := range g.oam.objects {
		copy(raw[i*objectEntryBytes:], []byte{o.Y, o.X, o.TileIndex, o.Flags})
	}
	w.WriteBytes(raw[:])

	w.WriteUint32s(g.tileView.buffer)
	w.WriteUint32s(g.front.buffer)
	w.WriteUint32s(g.back.buffer)

	g.bgPalette.Save(w)
	g.objPalette.Save(w)
}

func (g *GPU) Load(r *state.Reader) {
	mode := GpuMode(r.Read8())
	if mode > vramRead {
		r.Fail(fmt.Errorf("video: invalid GPU mode %d", mode))
		return
	}
	g.mode = mode
	g.cycles = r.ReadInt()
	g.windowLine = r.ReadInt()
	g.frameReady = r.ReadBool()

	var raw [objectCount * objectEntryBytes]byte
	r.ExpectBytes(raw[:])
	g.oam.Scan(raw[:])

	r.ExpectUint32s(g.tileView.buffer)
	r.ExpectUint32s(g.front.buffer)
	r.ExpectUint32s(g.back.buffer)

	g.bgPalette.Load(r)
	g.objPalette.Load(r)
}
