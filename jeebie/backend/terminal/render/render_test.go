package render

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBufferWrapsNewestFirst(t *testing.T) {
	lb := NewLogBuffer(3)
	for i := 0; i < 5; i++ {
		lb.Add(LogEntry{Message: string(rune('a' + i))})
	}

	recent := lb.GetRecent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, "e", recent[0].Message)
	assert.Equal(t, "d", recent[1].Message)
	assert.Equal(t, "c", recent[2].Message)

	assert.Len(t, lb.GetRecent(2), 2)

	lb.Clear()
	assert.Empty(t, lb.GetRecent(10))
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(10)
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := slog.New(NewLogBufferHandler(lb, level))

	logger.Debug("hidden")
	logger.Info("cartridge", "title", "TETRIS")
	logger.With("component", "apu").WithGroup("ch1").Warn("sweep", "freq", 1024)

	recent := lb.GetRecent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "sweep component=apu ch1.freq=1024", recent[0].Message)
	assert.Equal(t, slog.LevelWarn, recent[0].Level)
	assert.Equal(t, "cartridge title=TETRIS", recent[1].Message)

	level.Set(slog.LevelDebug)
	logger.Debug("now visible")
	assert.Equal(t, "now visible", lb.GetRecent(1)[0].Message)
}

func TestFormatLogEntry(t *testing.T) {
	entry := LogEntry{
		Time:    time.Date(2024, 1, 1, 13, 4, 5, 0, time.UTC),
		Level:   slog.LevelError,
		Message: "boom",
	}
	assert.Equal(t, "13:04:05 [ERR] boom", FormatLogEntry(entry))
}

func TestHalfBlocks(t *testing.T) {
	r, g, b := RGB(0x4C8898FF)
	assert.Equal(t, []int32{0x4C, 0x88, 0x98}, []int32{r, g, b})

	assert.Equal(t, FullBlock, HalfBlockChar(0xFFFFFFFF, 0xFFFFFFFF))
	assert.Equal(t, UpperHalf, HalfBlockChar(0xFFFFFFFF, 0x000000FF))
}

func TestClip(t *testing.T) {
	testCases := []struct {
		desc  string
		in    string
		width int
		want  string
	}{
		{"fits", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"ellipsis", "hello world", 8, "hello..."},
		{"too narrow for ellipsis", "hello", 2, "he"},
		{"zero width", "hello", 0, ""},
		{"multibyte", "→ 0150: NOP", 4, "→..."},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			assert.Equal(t, tC.want, Clip(tC.in, tC.width))
		})
	}
}
