// Package preview renders results and kernels for on-screen display.
package preview

import (
	"image"

	"kernelscope/internal/convolve"
	"kernelscope/internal/kernel"

	"github.com/anthonynsimon/bild/transform"
)

const DefaultMaxSize = 256

type Options struct {
	// MaxSize bounds the longest side. Images are shrunk, never enlarged.
	MaxSize int
	// Stretch maps the image's min..max range onto 0..255.
	Stretch bool
}

// Render returns a display copy of img. The input is not modified.
func Render(img *image.Gray, opts Options) *image.Gray {
	if img == nil || img.Bounds().Empty() {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}

	maxSize := opts.MaxSize
	if maxSize < 1 {
		maxSize = DefaultMaxSize
	}

	out := Fit(img, maxSize)
	if opts.Stretch {
		stretch(out)
	}
	return out
}

// RenderResponse draws a correlation result. With Stretch the raw response's
// min..max is mapped onto 0..255 before clamping, so a kernel whose sums are
// all negative still shows its structure. Without Stretch, or for a flat or
// missing response, it renders the clamped image.
func RenderResponse(res convolve.Result, opts Options) *image.Gray {
	if !opts.Stretch || res.Image == nil {
		return Render(res.Image, opts)
	}
	b := res.Image.Bounds()
	if len(res.Response) != b.Dx()*b.Dy() {
		return Render(res.Image, opts)
	}

	stretched, ok := stretchResponse(res.Response, b.Dx(), b.Dy())
	if !ok {
		return Render(res.Image, Options{MaxSize: opts.MaxSize})
	}
	return Render(stretched, Options{MaxSize: opts.MaxSize})
}

// Fit scales img down with nearest-neighbour sampling so its longest side is
// at most maxSize. Each side stays at least one pixel.
func Fit(img *image.Gray, maxSize int) *image.Gray {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	longest := w
	if h > longest {
		longest = h
	}
	if longest <= maxSize {
		return clone(img)
	}

	scale := float64(maxSize) / float64(longest)
	outW := max(int(float64(w)*scale+0.5), 1)
	outH := max(int(float64(h)*scale+0.5), 1)

	return toGray(transform.Resize(img, outW, outH, transform.NearestNeighbor))
}

// Kernel draws k with each weight as a scale x scale block of its sheet intensity.
func Kernel(k kernel.Kernel, scale int) *image.Gray {
	rows, cols := k.Dims()
	if rows == 0 || cols == 0 {
		return image.NewGray(image.Rect(0, 0, 0, 0))
	}
	if scale < 1 {
		scale = 1
	}

	img := image.NewGray(image.Rect(0, 0, cols*scale, rows*scale))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := kernel.Intensity(k.At(r, c))
			for y := r * scale; y < (r+1)*scale; y++ {
				row := img.Pix[y*img.Stride:]
				for x := c * scale; x < (c+1)*scale; x++ {
					row[x] = v
				}
			}
		}
	}
	return img
}

func stretch(img *image.Gray) {
	if len(img.Pix) == 0 {
		return
	}
	lo, hi := img.Pix[0], img.Pix[0]
	for _, v := range img.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		return
	}
	span := float64(hi - lo)
	for i, v := range img.Pix {
		img.Pix[i] = uint8(float64(v-lo)/span*255 + 0.5)
	}
}

func stretchResponse(raw []float32, width, height int) (*image.Gray, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	lo, hi := raw[0], raw[0]
	for _, v := range raw {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if lo == hi {
		return nil, false
	}

	span := float64(hi) - float64(lo)
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i, v := range raw {
		img.Pix[i] = uint8((float64(v)-float64(lo))/span*255 + 0.5)
	}
	return img, true
}

func clone(img *image.Gray) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
	}
	return out
}

// toGray takes the red channel; bild returns grey RGBA for grey input.
func toGray(src *image.RGBA) *image.Gray {
	b := src.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			out.Pix[y*out.Stride+x] = src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return out
}
