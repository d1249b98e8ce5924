package convolve

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"kernelscope/internal/kernel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformSlide(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func patternSlide(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*31 + y*17) % 256)})
		}
	}
	return img
}

func mustKernel(t *testing.T, rows, cols int, data []float64) kernel.Kernel {
	t.Helper()
	k, err := kernel.New(rows, cols, data)
	require.NoError(t, err)
	return k
}

func TestIdentityKernelReproducesSlide(t *testing.T) {
	slide := patternSlide(9, 7)
	res, err := Native{}.Correlate(slide, mustKernel(t, 1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, slide.Pix, res.Image.Pix)
	assert.Equal(t, slide.Bounds(), res.Image.Bounds())
}

func TestCenteredIdentityInLargerKernel(t *testing.T) {
	slide := patternSlide(6, 5)
	data := make([]float64, 9)
	data[4] = 1
	res, err := Native{}.Correlate(slide, mustKernel(t, 3, 3, data))
	require.NoError(t, err)
	assert.Equal(t, slide.Pix, res.Image.Pix)
}

func TestZeroKernelProducesZeroImage(t *testing.T) {
	slide := patternSlide(8, 8)
	res, err := Native{}.Correlate(slide, mustKernel(t, 3, 4, make([]float64, 12)))
	require.NoError(t, err)
	for _, v := range res.Image.Pix {
		assert.Equal(t, uint8(0), v)
	}
	assert.Equal(t, 0.0, res.Score)
}

func TestCorrelationIsNotFlipped(t *testing.T) {
	// A single bright pixel correlated with [1 2 3] puts the kernel reversed
	// around it: left neighbour sees weight 3, right neighbour weight 1.
	slide := image.NewGray(image.Rect(0, 0, 5, 1))
	slide.SetGray(2, 0, color.Gray{Y: 10})

	res, err := Native{}.Correlate(slide, mustKernel(t, 1, 3, []float64{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 30, 20, 10, 0}, res.Image.Pix)
}

func TestZeroPaddingAtBorders(t *testing.T) {
	slide := uniformSlide(4, 4, 10)
	res, err := Native{}.Correlate(slide, mustKernel(t, 3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1}))
	require.NoError(t, err)

	want := []uint8{
		40, 60, 60, 40,
		60, 90, 90, 60,
		60, 90, 90, 60,
		40, 60, 60, 40,
	}
	assert.Equal(t, want, res.Image.Pix)
}

func TestEvenKernelAnchor(t *testing.T) {
	// 2x2 kernel anchors at (1,1): out(x,y) sums slide over [x-1,x] x [y-1,y].
	slide := uniformSlide(3, 3, 10)
	res, err := Native{}.Correlate(slide, mustKernel(t, 2, 2, []float64{1, 1, 1, 1}))
	require.NoError(t, err)

	want := []uint8{
		10, 20, 20,
		20, 40, 40,
		20, 40, 40,
	}
	assert.Equal(t, want, res.Image.Pix)
}

func TestClampsWithoutWrapping(t *testing.T) {
	slide := uniformSlide(3, 3, 200)

	high, err := Native{}.Correlate(slide, mustKernel(t, 1, 1, []float64{2}))
	require.NoError(t, err)
	for _, v := range high.Image.Pix {
		assert.Equal(t, uint8(255), v)
	}
	assert.InDelta(t, 400.0/255, high.Score, 1e-12)

	low, err := Native{}.Correlate(slide, mustKernel(t, 1, 1, []float64{-0.5}))
	require.NoError(t, err)
	for _, v := range low.Image.Pix {
		assert.Equal(t, uint8(0), v)
	}
	assert.InDelta(t, 100.0/255, low.Score, 1e-12)

	// The raw response keeps what clamping threw away.
	require.Len(t, low.Response, 9)
	for _, v := range low.Response {
		assert.Equal(t, float32(-100), v)
	}
}

func TestScoreUsesUnitSamples(t *testing.T) {
	// A white slide under a +1 kernel responds with 255 everywhere: score 1.
	res, err := Native{}.Correlate(uniformSlide(2, 2, 255), mustKernel(t, 1, 1, []float64{1}))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Score, 1e-12)

	res = FromResponse(2, 1, []float64{-51, 102})
	assert.InDelta(t, 0.3, res.Score, 1e-12)
	assert.Equal(t, []float32{-51, 102}, res.Response)
	assert.Equal(t, []uint8{0, 102}, res.Image.Pix)
}

func TestNegativeKernelFromSheetClampsToZero(t *testing.T) {
	slide := uniformSlide(4, 4, 100)

	sheet := image.NewGray(image.Rect(0, 0, 2, 1))
	sheet.SetGray(0, 0, color.Gray{Y: 0})
	sheet.SetGray(1, 0, color.Gray{Y: 255})
	kernels, err := kernel.Split(sheet, kernel.Shape{Rows: 1, Cols: 2})
	require.NoError(t, err)
	require.Len(t, kernels, 2)
	require.Equal(t, []float64{-1}, kernels[0].Values())
	require.Equal(t, []float64{1}, kernels[1].Values())

	neg, err := Native{}.Correlate(slide, kernels[0])
	require.NoError(t, err)
	for _, v := range neg.Image.Pix {
		assert.Equal(t, uint8(0), v)
	}

	pos, err := Native{}.Correlate(slide, kernels[1])
	require.NoError(t, err)
	assert.Equal(t, slide.Pix, pos.Image.Pix)
}

func TestTwoBySheetColumnsClampToZero(t *testing.T) {
	// Same scenario with a 2x2 sheet: the kernels become 1 wide and 2 tall.
	slide := uniformSlide(4, 4, 100)
	sheet := image.NewGray(image.Rect(0, 0, 2, 2))
	sheet.SetGray(1, 0, color.Gray{Y: 255})
	sheet.SetGray(1, 1, color.Gray{Y: 255})

	kernels, err := kernel.Split(sheet, kernel.Shape{Rows: 1, Cols: 2})
	require.NoError(t, err)

	neg, err := Native{}.Correlate(slide, kernels[0])
	require.NoError(t, err)
	for _, v := range neg.Image.Pix {
		assert.Equal(t, uint8(0), v)
	}
}

func TestCornerMatchesPaddedFootprint(t *testing.T) {
	// With zero padding the top-left output only sees the in-bounds quarter
	// of a 3x3 footprint.
	slide := patternSlide(5, 5)
	k := mustKernel(t, 3, 3, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9})
	res, err := Native{}.Correlate(slide, k)
	require.NoError(t, err)

	want := float64(slide.GrayAt(0, 0).Y)*0.5 + float64(slide.GrayAt(1, 0).Y)*0.6 +
		float64(slide.GrayAt(0, 1).Y)*0.8 + float64(slide.GrayAt(1, 1).Y)*0.9
	assert.Equal(t, clamp(want), res.Image.GrayAt(0, 0).Y)
}

func TestSubImageSlide(t *testing.T) {
	full := patternSlide(8, 8)
	sub := full.SubImage(image.Rect(2, 3, 6, 7)).(*image.Gray)

	res, err := Native{}.Correlate(sub, mustKernel(t, 1, 1, []float64{1}))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), res.Image.Bounds())
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			assert.Equal(t, full.GrayAt(x+2, y+3), res.Image.GrayAt(x, y))
		}
	}
}

func TestEmptyInput(t *testing.T) {
	_, err := Native{}.Correlate(image.NewGray(image.Rect(0, 0, 0, 3)), mustKernel(t, 1, 1, []float64{1}))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Native{}.Correlate(nil, mustKernel(t, 1, 1, []float64{1}))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = Native{}.Correlate(uniformSlide(2, 2, 1), kernel.Kernel{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestRunAllKeepsOrder(t *testing.T) {
	slide := patternSlide(12, 10)
	kernels := make([]kernel.Kernel, 0, 18)
	for i := 0; i < 18; i++ {
		data := make([]float64, 9)
		for j := range data {
			data[j] = float64((i+j)%5-2) / 4
		}
		kernels = append(kernels, mustKernel(t, 3, 3, data))
	}

	sequential := make([]Result, len(kernels))
	for i, k := range kernels {
		res, err := Native{}.Correlate(slide, k)
		require.NoError(t, err)
		sequential[i] = res
	}

	for _, workers := range []int{0, 1, 4, 32} {
		results, err := RunAll(context.Background(), Native{}, slide, kernels, workers)
		require.NoError(t, err)
		require.Len(t, results, len(kernels))
		for i := range results {
			assert.Equal(t, sequential[i].Image.Pix, results[i].Image.Pix, "workers=%d kernel=%d", workers, i)
			assert.Equal(t, sequential[i].Score, results[i].Score)
			assert.Equal(t, sequential[i].Response, results[i].Response)
		}
	}
}

func TestRunAllEmptyKernelList(t *testing.T) {
	results, err := RunAll(context.Background(), Native{}, uniformSlide(2, 2, 1), nil, 4)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunAllDiscardsRunOnError(t *testing.T) {
	kernels := []kernel.Kernel{mustKernel(t, 1, 1, []float64{1}), {}, mustKernel(t, 1, 1, []float64{1})}
	results, err := RunAll(context.Background(), Native{}, uniformSlide(3, 3, 5), kernels, 1)
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, results)
}

func TestRunAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kernels := []kernel.Kernel{mustKernel(t, 1, 1, []float64{1})}
	results, err := RunAll(ctx, Native{}, uniformSlide(3, 3, 5), kernels, 2)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, results)
}
