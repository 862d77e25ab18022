// Package ppm writes a composited image out as a binary PPM (P6): the
// final external interface the compositing core hands off to, once a
// scheduler has assembled the whole frame at one rank. Un-premultiplies
// each pixel's alpha before writing, since PPM has no alpha channel.
package ppm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/dstorm-vis/slcompose/internal/colorpix"
	"github.com/dstorm-vis/slcompose/internal/img"
)

// WriteDense writes pixels (in row-major order, width*height entries) as
// a binary PPM to w.
func WriteDense(w io.Writer, width, height int, pixels []colorpix.RGBA8) error {
	if len(pixels) != width*height {
		return fmt.Errorf("ppm: got %d pixels, want %d for %dx%d", len(pixels), width*height, width, height)
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	row := make([]byte, width*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p := pixels[y*width+x]
			r, g, b := unpremultiply(p)
			row[x*3], row[x*3+1], row[x*3+2] = r, g, b
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func unpremultiply(p colorpix.RGBA8) (r, g, b byte) {
	if p.A == 0 {
		return 0, 0, 0
	}
	scale := func(c uint8) byte {
		v := (int(c)*255 + int(p.A)/2) / int(p.A)
		if v > 255 {
			v = 255
		}
		return byte(v)
	}
	return scale(p.R), scale(p.G), scale(p.B)
}

// WriteImage extracts pixels from a dense color or dense color+depth
// image and writes it as PPM; for sparse variants the caller should
// uncompress first.
func WriteImage(w io.Writer, im img.Image) error {
	switch v := im.(type) {
	case *img.DenseColorImage:
		return WriteDense(w, v.Width(), v.Height(), v.Pixels())
	case *img.DenseColorDepthImage:
		return WriteDense(w, v.Width(), v.Height(), v.Colors())
	default:
		return fmt.Errorf("ppm: %T must be uncompressed to a dense variant before writing", im)
	}
}
