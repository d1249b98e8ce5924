package bridge

import (
	"fmt"
	"image"

	"kernelscope/internal/kernel"

	"gocv.io/x/gocv"
)

// GrayToMat copies img into a single-channel CV_32F Mat. The caller closes it.
func GrayToMat(img *image.Gray) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.NewMat(), fmt.Errorf("image has zero dimensions")
	}

	bounds := img.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()
	data := make([]byte, rows*cols)
	for y := 0; y < rows; y++ {
		start := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(data[y*cols:(y+1)*cols], img.Pix[start:start+cols])
	}

	bytesMat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create Mat from image: %w", err)
	}
	defer bytesMat.Close()

	floatMat := gocv.NewMat()
	bytesMat.ConvertTo(&floatMat, gocv.MatTypeCV32F)
	if floatMat.Empty() {
		floatMat.Close()
		return gocv.NewMat(), fmt.Errorf("CV_8U to CV_32F conversion failed")
	}
	return floatMat, nil
}

// KernelToMat copies k into a CV_32F Mat. The caller closes it.
func KernelToMat(k kernel.Kernel) (gocv.Mat, error) {
	rows, cols := k.Dims()
	if rows == 0 || cols == 0 {
		return gocv.NewMat(), fmt.Errorf("kernel has zero dimensions")
	}

	mat := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV32F)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			mat.SetFloatAt(r, c, float32(k.At(r, c)))
		}
	}
	return mat, nil
}

// MatToFloats reads a single-channel CV_32F Mat in row-major order.
func MatToFloats(mat gocv.Mat) ([]float64, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("mat is empty")
	}
	if mat.Channels() != 1 {
		return nil, fmt.Errorf("unsupported number of channels: %d", mat.Channels())
	}
	if mat.Type() != gocv.MatTypeCV32F {
		return nil, fmt.Errorf("unsupported Mat type: %v", mat.Type())
	}

	rows, cols := mat.Rows(), mat.Cols()
	out := make([]float64, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out[y*cols+x] = float64(mat.GetFloatAt(y, x))
		}
	}
	return out, nil
}
