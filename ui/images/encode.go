package images

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// Format is an output image encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatBMP  Format = "bmp"
	FormatGIF  Format = "gif"
)

const jpegQuality = 92

// FormatFromPath picks an encoding from the file extension. Unknown or
// missing extensions are an error so a typo never silently writes PNG bytes
// into a .tif file.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".bmp":
		return FormatBMP, nil
	case ".gif":
		return FormatGIF, nil
	case "":
		return "", fmt.Errorf("%s: missing file extension", path)
	default:
		return "", fmt.Errorf("%s: unsupported image format %q", path, ext)
	}
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, f Format) error {
	if img == nil {
		return fmt.Errorf("encode %s: nil image", f)
	}
	switch f {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case FormatBMP:
		return bmp.Encode(w, img)
	case FormatGIF:
		return gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("unsupported image format %q", f)
	}
}

// countingWriter tracks bytes written for reporting.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Save encodes img into path, choosing the format from the extension, and
// returns the number of bytes written. A partially written file is removed.
func Save(path string, img image.Image) (int64, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return 0, err
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: out}
	if err := Encode(cw, img, f); err != nil {
		out.Close()
		os.Remove(path)
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return 0, err
	}
	return cw.n, nil
}
