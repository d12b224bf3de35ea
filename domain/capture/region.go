package capture

import (
	"image"
	"image/draw"

	"github.com/soocke/wincap/domain/window"
)

// Insets are the frame thicknesses between a window's outer rect and its
// client area: border and title bar.
type Insets struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// FrameInsets derives the non-client insets from screen and client rects,
// both in screen coordinates.
func FrameInsets(screen, client window.Rect) Insets {
	return Insets{
		Left:   client.Left - screen.Left,
		Top:    client.Top - screen.Top,
		Right:  screen.Right - client.Right,
		Bottom: screen.Bottom - client.Bottom,
	}
}

// ClientCrop returns the client area relative to the window origin, i.e. the
// sub-rectangle of a full-window capture that holds client content.
func ClientCrop(screen, client window.Rect) window.Rect {
	return client.Relative(screen.Left, screen.Top)
}

// ClampCrop limits r to [0,w]x[0,h]. Geometry queried before the pixel copy
// can disagree with the captured size; the result may have zero area.
func ClampCrop(r window.Rect, w, h int) window.Rect {
	clamp := func(v, hi int) int {
		if v < 0 {
			return 0
		}
		if v > hi {
			return hi
		}
		return v
	}
	out := window.Rect{
		Left:   clamp(r.Left, w),
		Top:    clamp(r.Top, h),
		Right:  clamp(r.Right, w),
		Bottom: clamp(r.Bottom, h),
	}
	if out.Right < out.Left {
		out.Right = out.Left
	}
	if out.Bottom < out.Top {
		out.Bottom = out.Top
	}
	return out
}

// Crop copies rect out of img into a new image anchored at 0,0. rect is in
// img's coordinate space; the result never aliases img.
func Crop(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	if rect.Empty() {
		return out
	}
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

// CropClient extracts the client area from a full-window image. ok is false
// when the clamped crop has zero area.
func CropClient(full *image.RGBA, screen, client window.Rect) (img *image.RGBA, crop window.Rect, ok bool) {
	b := full.Bounds()
	crop = ClampCrop(ClientCrop(screen, client), b.Dx(), b.Dy())
	if crop.Empty() {
		return nil, crop, false
	}
	r := crop.Image().Add(b.Min)
	return Crop(full, r), crop, true
}
