package pipeline

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"
)

// FormatForName picks the encoder from a file name; anything unknown is PNG.
func FormatForName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	default:
		return "png"
	}
}

// Export encodes img as "png" or "jpeg".
func Export(writer io.Writer, img image.Image, format string) error {
	if img == nil || img.Bounds().Empty() {
		return fmt.Errorf("no image data to save")
	}

	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(writer, img, &jpeg.Options{Quality: 95})
	case "png", "":
		err = png.Encode(writer, img)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}
