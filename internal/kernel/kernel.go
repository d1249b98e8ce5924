// Package kernel cuts a packed kernel sheet into individual weight matrices.
package kernel

import (
	"errors"
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

const maxIntensity = 255.0

var ErrInvalidShape = errors.New("invalid kernel shape")

// Shape is the number of kernel cells packed on a sheet, not the size of one kernel.
type Shape struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

func (s Shape) Count() int {
	return s.Rows * s.Cols
}

func (s Shape) String() string {
	return fmt.Sprintf("%d x %d", s.Rows, s.Cols)
}

func (s Shape) Validate() error {
	if s.Rows < 1 || s.Cols < 1 {
		return fmt.Errorf("%w: %d rows x %d cols", ErrInvalidShape, s.Rows, s.Cols)
	}
	return nil
}

// Kernel is an immutable matrix of signed weights. The zero value is empty.
type Kernel struct {
	weights *mat.Dense
}

// New copies data (row-major, rows*cols values) into a kernel.
func New(rows, cols int, data []float64) (Kernel, error) {
	if rows < 1 || cols < 1 {
		return Kernel{}, fmt.Errorf("%w: kernel %dx%d", ErrInvalidShape, cols, rows)
	}
	if len(data) != rows*cols {
		return Kernel{}, fmt.Errorf("kernel data has %d values, want %d", len(data), rows*cols)
	}
	values := make([]float64, len(data))
	copy(values, data)
	return Kernel{weights: mat.NewDense(rows, cols, values)}, nil
}

func (k Kernel) Empty() bool {
	return k.weights == nil
}

// Dims returns the kernel height and width.
func (k Kernel) Dims() (rows, cols int) {
	if k.weights == nil {
		return 0, 0
	}
	return k.weights.Dims()
}

func (k Kernel) Rows() int {
	r, _ := k.Dims()
	return r
}

func (k Kernel) Cols() int {
	_, c := k.Dims()
	return c
}

// At returns the weight at row, col. An empty kernel has no weights and
// reads as 0; out-of-range indices on a non-empty kernel panic like mat.Dense.
func (k Kernel) At(row, col int) float64 {
	if k.weights == nil {
		return 0
	}
	return k.weights.At(row, col)
}

// Weights returns a copy of the weight matrix.
func (k Kernel) Weights() *mat.Dense {
	if k.weights == nil {
		return nil
	}
	return mat.DenseCopyOf(k.weights)
}

// Values returns the weights in row-major order. The slice is a copy.
func (k Kernel) Values() []float64 {
	if k.weights == nil {
		return nil
	}
	raw := k.weights.RawMatrix()
	rows, cols := k.weights.Dims()
	out := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		out = append(out, raw.Data[r*raw.Stride:r*raw.Stride+cols]...)
	}
	return out
}

func (k Kernel) Sum() float64 {
	if k.weights == nil {
		return 0
	}
	return mat.Sum(k.weights)
}

// Weight maps a raw 8-bit sheet sample onto [-1, 1]: black is -1, white is +1.
func Weight(raw uint8) float64 {
	return (float64(raw)/maxIntensity)*2 - 1
}

// Intensity is the inverse of Weight, clamped and rounded to 8 bits.
func Intensity(w float64) uint8 {
	v := (w + 1) / 2 * maxIntensity
	if v <= 0 {
		return 0
	}
	if v >= maxIntensity {
		return 255
	}
	return uint8(v + 0.5)
}

// Split cuts sheet into shape.Rows x shape.Cols kernels in row-major order.
// Each kernel is floor(width/cols) wide and floor(height/rows) tall; pixels left
// over on the right and bottom edges are not part of any kernel.
func Split(sheet *image.Gray, shape Shape) ([]Kernel, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if sheet == nil {
		return nil, fmt.Errorf("%w: no sheet", ErrInvalidShape)
	}

	bounds := sheet.Bounds()
	kw := bounds.Dx() / shape.Cols
	kh := bounds.Dy() / shape.Rows
	if kw == 0 || kh == 0 {
		return nil, fmt.Errorf("%w: %s does not fit a %dx%d sheet",
			ErrInvalidShape, shape, bounds.Dx(), bounds.Dy())
	}

	kernels := make([]Kernel, 0, shape.Count())
	for r := 0; r < shape.Rows; r++ {
		for c := 0; c < shape.Cols; c++ {
			data := make([]float64, kw*kh)
			for ky := 0; ky < kh; ky++ {
				y := bounds.Min.Y + r*kh + ky
				for kx := 0; kx < kw; kx++ {
					x := bounds.Min.X + c*kw + kx
					data[ky*kw+kx] = Weight(sheet.GrayAt(x, y).Y)
				}
			}
			kernels = append(kernels, Kernel{weights: mat.NewDense(kh, kw, data)})
		}
	}

	return kernels, nil
}
