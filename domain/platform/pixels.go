package platform

import (
	"fmt"
	"image"
)

// convertBGRA copies a 32-bit BGRX buffer with the given row stride into a
// new RGBA image. The fourth byte is undefined on both GDI and X11, so alpha
// is forced opaque.
func convertBGRA(src []byte, w, h, stride int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("invalid surface %dx%d", w, h)
	}
	if stride < w*4 || len(src) < stride*(h-1)+w*4 {
		return nil, fmt.Errorf("short pixel buffer: %d bytes for %dx%d stride %d", len(src), w, h, stride)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := src[y*stride : y*stride+w*4]
		out := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			out[i+0] = row[i+2]
			out[i+1] = row[i+1]
			out[i+2] = row[i+0]
			out[i+3] = 0xFF
		}
	}
	return dst, nil
}
