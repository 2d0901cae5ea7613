package cartridge

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// SaveRAM writes the raw external RAM contents. No-op without RAM.
func (c *Cartridge) SaveRAM(w io.Writer) error {
	if len(c.ram) == 0 {
		return nil
	}
	_, err := w.Write(c.ram)
	return err
}

// LoadRAM restores the external RAM from raw bytes. No-op without RAM.
func (c *Cartridge) LoadRAM(r io.Reader) error {
	if len(c.ram) == 0 {
		return nil
	}
	buf := make([]byte, len(c.ram))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("loading cartridge RAM: %w", err)
	}
	copy(c.ram, buf)
	return nil
}

// SaveRTC writes the RTC registers. No-op without an RTC.
func (c *Cartridge) SaveRTC(w io.Writer) error {
	if c.rtc == nil {
		return nil
	}
	data, err := c.rtc.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// LoadRTC restores the RTC registers. No-op without an RTC.
func (c *Cartridge) LoadRTC(r io.Reader) error {
	if c.rtc == nil {
		return nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("loading RTC: %w", err)
	}
	return c.rtc.UnmarshalBinary(data)
}

// SaveName is the base file name used for battery files of this cartridge.
func (c *Cartridge) SaveName() string {
	title := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, c.header.Title)
	return fmt.Sprintf("%s-%016x", title, c.hash)
}

// SaveBattery persists RAM (.sav) and RTC (.rtc) to dir, if the cartridge
// is battery backed.
func (c *Cartridge) SaveBattery(dir string) error {
	if !c.HasBattery() {
		return nil
	}
	base := filepath.Join(dir, c.SaveName())

	if len(c.ram) > 0 {
		if err := writeFileAtomic(base+".sav", c.SaveRAM); err != nil {
			return err
		}
	}
	if c.rtc != nil {
		if err := writeFileAtomic(base+".rtc", c.SaveRTC); err != nil {
			return err
		}
	}
	slog.Debug("Saved battery data", "path", base)
	return nil
}

// LoadBattery restores RAM and RTC from dir. Missing files are not an error.
func (c *Cartridge) LoadBattery(dir string) error {
	if !c.HasBattery() {
		return nil
	}
	base := filepath.Join(dir, c.SaveName())

	if err := readFileIfExists(base+".sav", c.LoadRAM); err != nil {
		return err
	}
	if err := readFileIfExists(base+".rtc", c.LoadRTC); err != nil {
		return err
	}
	return nil
}

// writeFileAtomic writes through a temporary file and renames it in place,
// so a crash never leaves a half written save behind.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func readFileIfExists(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	slog.Info("Loading battery data", "path", path)
	return read(f)
}
