package session

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
)

// IconLoader produces the hub icon image. It may block (disk or network) and
// must honor ctx.
type IconLoader func(ctx context.Context) (image.Image, error)

// PNGFile loads the hub icon from a PNG on disk.
func PNGFile(path string) IconLoader {
	return func(ctx context.Context) (image.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open icon: %w", err)
		}
		defer f.Close()

		img, err := png.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("failed to decode icon: %w", err)
		}
		return img, nil
	}
}

// DeltaCircle draws the hub icon in memory: a white triangle on a navy disc.
func DeltaCircle(size int) IconLoader {
	return func(ctx context.Context) (image.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if size < 4 {
			size = 4
		}

		navy := color.RGBA{0x05, 0x14, 0x34, 0xff}
		img := image.NewRGBA(image.Rect(0, 0, size, size))
		r := float64(size) / 2

		for y := 0; y < size; y++ {
			for x := 0; x < size; x++ {
				dx := float64(x) + 0.5 - r
				dy := float64(y) + 0.5 - r
				if math.Hypot(dx, dy) > r {
					continue
				}
				img.Set(x, y, navy)

				// Upward triangle inscribed in the inner 60% of the disc
				top := r * 0.4
				bottom := r * 1.6
				fy := float64(y) + 0.5
				if fy >= top && fy <= bottom {
					half := (fy - top) / (bottom - top) * r * 0.6
					if math.Abs(dx) <= half {
						img.Set(x, y, color.White)
					}
				}
			}
		}
		return img, nil
	}
}
