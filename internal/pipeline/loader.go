package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/anthonynsimon/bild/effect"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Luminance weights (ITU-R BT.601) used for every loaded image.
const (
	LumaR = 0.299
	LumaG = 0.587
	LumaB = 0.114
)

// Image is a decoded grayscale input together with the name it was loaded from.
type Image struct {
	Name string
	Gray *image.Gray
}

func (i Image) Loaded() bool {
	return i.Gray != nil
}

// DecodeError reports bytes that are not a decodable image.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode turns PNG, JPEG, BMP, TIFF or WebP bytes into a grayscale Image. Colour is reduced with
// the BT.601 weights and rounded; transparent pixels count as black.
func Decode(name string, data []byte) (Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, &DecodeError{Name: name, Err: err}
	}
	if img.Bounds().Empty() {
		return Image{}, &DecodeError{Name: name, Err: fmt.Errorf("image has no pixels")}
	}

	rgba := effect.GrayscaleWithWeights(img, LumaR, LumaG, LumaB)
	bounds := rgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			gray.Pix[y*gray.Stride+x] = rgba.Pix[rgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)]
		}
	}

	return Image{Name: name, Gray: gray}, nil
}

// LoadFromReader reads everything from reader and decodes it.
func LoadFromReader(reader io.Reader, name string) (Image, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read image data: %w", err)
	}
	return Decode(name, data)
}
