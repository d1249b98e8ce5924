// Package convolve runs kernels over a grayscale slide.
//
// All backends compute a correlation: the kernel is not flipped. The kernel
// anchor is (cols/2, rows/2) and samples outside the slide count as zero, so
// every result has the same size as the slide. Raw sums are rounded to the
// nearest integer and clamped to [0, 255].
package convolve

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"

	"kernelscope/internal/kernel"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var ErrEmptyInput = errors.New("empty input")

const maxSample = 255

// Result is the output of one kernel.
type Result struct {
	// Image is the response rounded and clamped to [0, 255].
	Image *image.Gray
	// Response holds the raw sums, row-major, before rounding and clamping.
	// Previews stretch from it so negative responses stay visible.
	Response []float32
	// Score is the mean absolute raw response with samples scaled to [0, 1].
	Score float64
}

type Correlator interface {
	Correlate(slide *image.Gray, k kernel.Kernel) (Result, error)
	Name() string
}

// CheckInputs returns ErrEmptyInput when either operand has no pixels.
func CheckInputs(slide *image.Gray, k kernel.Kernel) error {
	if slide == nil || slide.Bounds().Empty() {
		return fmt.Errorf("%w: slide has no pixels", ErrEmptyInput)
	}
	rows, cols := k.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("%w: kernel is %dx%d", ErrEmptyInput, cols, rows)
	}
	return nil
}

// FromResponse turns raw correlation sums (row-major, width*height values)
// into a Result.
func FromResponse(width, height int, raw []float64) Result {
	img := image.NewGray(image.Rect(0, 0, width, height))
	response := make([]float32, len(raw))
	abs := make([]float64, len(raw))
	for i, v := range raw {
		img.Pix[(i/width)*img.Stride+i%width] = clamp(v)
		response[i] = float32(v)
		abs[i] = math.Abs(v) / maxSample
	}
	return Result{Image: img, Response: response, Score: stat.Mean(abs, nil)}
}

func clamp(v float64) uint8 {
	v = math.Round(v)
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// Native is the pure Go correlator.
type Native struct{}

func (Native) Name() string {
	return "native"
}

func (Native) Correlate(slide *image.Gray, k kernel.Kernel) (Result, error) {
	if err := CheckInputs(slide, k); err != nil {
		return Result{}, err
	}

	bounds := slide.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	kh, kw := k.Dims()
	weights := k.Values()
	halfW, halfH := kw/2, kh/2
	base := slide.PixOffset(bounds.Min.X, bounds.Min.Y)

	raw := make([]float64, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var acc float64
			for ky := 0; ky < kh; ky++ {
				sy := y + ky - halfH
				if sy < 0 || sy >= height {
					continue
				}
				row := base + sy*slide.Stride
				for kx := 0; kx < kw; kx++ {
					sx := x + kx - halfW
					if sx < 0 || sx >= width {
						continue
					}
					acc += float64(slide.Pix[row+sx]) * weights[ky*kw+kx]
				}
			}
			raw[y*width+x] = acc
		}
	}

	return FromResponse(width, height, raw), nil
}

// RunAll correlates every kernel with the slide. Results are in kernel order.
// Up to workers kernels run at once; workers < 1 means one at a time. Any
// failure discards the whole run.
func RunAll(ctx context.Context, c Correlator, slide *image.Gray, kernels []kernel.Kernel, workers int) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(kernels))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, k := range kernels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := c.Correlate(slide, k)
			if err != nil {
				return fmt.Errorf("kernel %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
