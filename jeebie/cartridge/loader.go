package cartridge

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
)

// Load reads a ROM from disk and builds a cartridge from it. Plain images
// are used as-is; .zip, .gz and .7z archives are unpacked and their first
// ROM entry is used.
func Load(path string, opts ...Option) (*Cartridge, error) {
	data, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return New(data, opts...)
}

// LoadFile returns the ROM bytes stored at path, decompressing archives.
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ROM %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip ROM %s: %w", path, err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case ".zip":
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening zip ROM %s: %w", path, err)
		}
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || !isROMName(f.Name) {
				continue
			}
			return readArchiveEntry(f.Open)
		}
		return nil, fmt.Errorf("no ROM found in %s", path)
	case ".7z":
		zr, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening 7z ROM %s: %w", path, err)
		}
		for _, f := range zr.File {
			if f.FileInfo().IsDir() || !isROMName(f.Name) {
				continue
			}
			return readArchiveEntry(f.Open)
		}
		return nil, fmt.Errorf("no ROM found in %s", path)
	default:
		return data, nil
	}
}

func isROMName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gb", ".gbc", ".cgb", ".bin":
		return true
	default:
		return false
	}
}

func readArchiveEntry(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
