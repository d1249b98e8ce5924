// Package filter correlates kernels with OpenCV's filter2D.
package filter

import (
	"fmt"
	"image"

	"kernelscope/internal/convolve"
	"kernelscope/internal/kernel"
	"kernelscope/internal/opencv/bridge"

	"gocv.io/x/gocv"
)

// Filter2D matches convolve.Native: filter2D does not flip the kernel, the
// default anchor is (cols/2, rows/2) and BorderConstant pads with zero.
// Sums are computed in float32, so raw responses can differ from the native
// backend in the last bits.
type Filter2D struct{}

func New() *Filter2D {
	return &Filter2D{}
}

func (f *Filter2D) Name() string {
	return "opencv"
}

func (f *Filter2D) Correlate(slide *image.Gray, k kernel.Kernel) (convolve.Result, error) {
	if err := convolve.CheckInputs(slide, k); err != nil {
		return convolve.Result{}, err
	}

	src, err := bridge.GrayToMat(slide)
	if err != nil {
		return convolve.Result{}, fmt.Errorf("slide: %w", err)
	}
	defer src.Close()

	kmat, err := bridge.KernelToMat(k)
	if err != nil {
		return convolve.Result{}, fmt.Errorf("kernel: %w", err)
	}
	defer kmat.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.Filter2D(src, &dst, gocv.MatTypeCV32F, kmat, image.Pt(-1, -1), 0, gocv.BorderConstant)

	raw, err := bridge.MatToFloats(dst)
	if err != nil {
		return convolve.Result{}, fmt.Errorf("filter2D result: %w", err)
	}
	return convolve.FromResponse(src.Cols(), src.Rows(), raw), nil
}
