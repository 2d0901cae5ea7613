package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/valerio/go-jeebie-color/jeebie/video"
)

// FrameImage converts a framebuffer to an RGBA image, scaled by an integer
// factor with nearest neighbour sampling so pixels stay sharp.
func FrameImage(frame *video.FrameBuffer, scale int) *image.RGBA {
	w, h := int(frame.Width()), int(frame.Height())
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			r, g, b, a := video.GBColor(frame.GetPixel(uint(x), uint(y))).RGBA()
			src.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: a})
		}
	}
	if scale <= 1 {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SaveFramePNGToDir writes frame as <baseName>.png into directory, or the
// working directory when directory is empty. It returns the written path.
func SaveFramePNGToDir(frame *video.FrameBuffer, baseName, directory string, scale int) (string, error) {
	if frame == nil {
		return "", fmt.Errorf("no frame data available for snapshot")
	}
	if directory == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		directory = cwd
	}

	img := FrameImage(frame, scale)
	path := filepath.Join(directory, baseName+".png")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode PNG: %w", err)
	}

	b := img.Bounds()
	slog.Info("Snapshot saved", "path", path, "size", fmt.Sprintf("%dx%d", b.Dx(), b.Dy()))
	return path, nil
}
