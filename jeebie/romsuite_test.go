package jeebie

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// romDirEnv points at a checkout of the community test ROM collection
// (game-boy-test-roms). The suite is skipped when it is unset.
const romDirEnv = "JEEBIE_TEST_ROMS"

// Blargg ROMs report over the serial port and finish with "Passed" or
// "Failed".
func TestBlarggSerialSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ROM suite in short mode")
	}
	dir := os.Getenv(romDirEnv)
	if dir == "" {
		t.Skipf("%s not set", romDirEnv)
	}

	testCases := []struct {
		desc      string
		path      string
		maxFrames int
	}{
		{"01-special", "blargg/cpu_instrs/individual/01-special.gb", 500},
		{"02-interrupts", "blargg/cpu_instrs/individual/02-interrupts.gb", 500},
		{"03-op sp,hl", "blargg/cpu_instrs/individual/03-op sp,hl.gb", 500},
		{"04-op r,imm", "blargg/cpu_instrs/individual/04-op r,imm.gb", 500},
		{"05-op rp", "blargg/cpu_instrs/individual/05-op rp.gb", 500},
		{"06-ld r,r", "blargg/cpu_instrs/individual/06-ld r,r.gb", 500},
		{"07-jr,jp,call,ret,rst", "blargg/cpu_instrs/individual/07-jr,jp,call,ret,rst.gb", 500},
		{"08-misc instrs", "blargg/cpu_instrs/individual/08-misc instrs.gb", 500},
		{"09-op r,r", "blargg/cpu_instrs/individual/09-op r,r.gb", 1000},
		{"10-bit ops", "blargg/cpu_instrs/individual/10-bit ops.gb", 1000},
		{"11-op a,(hl)", "blargg/cpu_instrs/individual/11-op a,(hl).gb", 1500},
		{"instr_timing", "blargg/instr_timing/instr_timing.gb", 1200},
		{"mem_timing", "blargg/mem_timing/mem_timing.gb", 1200},
		{"halt_bug", "blargg/halt_bug.gb", 500},
	}

	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(dir, tC.path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Skipf("ROM not found: %s", path)
			}

			e, err := NewWithFile(path, WithSpeed(0), WithSaveDir(t.TempDir()))
			require.NoError(t, err)
			defer e.Close()

			for frame := 0; frame < tC.maxFrames; frame++ {
				require.NoError(t, e.RunUntilFrame())
				out := e.SerialOutput()
				if bytes.Contains(out, []byte("Passed")) || bytes.Contains(out, []byte("Failed")) {
					break
				}
			}

			out := string(e.SerialOutput())
			assert.Contains(t, out, "Passed", "serial output:\n%s", out)
		})
	}
}
