package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"kernelscope/internal/convolve"
	"kernelscope/internal/kernel"
)

var (
	ErrSlotsFull  = errors.New("both image slots are already filled")
	ErrNoSlide    = errors.New("no slide loaded")
	ErrNoSheet    = errors.New("no kernel sheet loaded")
	ErrNoKernels  = errors.New("kernels have not been split")
	ErrNoSelected = errors.New("no convolution result to show")
	ErrStaleRun   = errors.New("inputs changed while the convolutions were running")
)

type Slot int

const (
	SlotSlide Slot = iota
	SlotSheet
)

func (s Slot) String() string {
	switch s {
	case SlotSlide:
		return "slide"
	case SlotSheet:
		return "kernel sheet"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// State is everything the explorer shows. Transitions return a new State and
// never modify the receiver or any slice it shares with other States.
//
// Kernels depend on the sheet and shape; results depend on the kernels and the
// slide. Replacing an input drops everything derived from it.
type State struct {
	Slide    Image
	Sheet    Image
	Shape    kernel.Shape
	Kernels  []kernel.Kernel
	Results  []convolve.Result
	Previews []*image.Gray
	Selected int
	Status   string
}

func NewState(shape kernel.Shape) State {
	return State{
		Shape:  shape,
		Status: "Drop two image files: first the slide, then the kernel sheet.",
	}
}

// Drop fills the slide slot first, then the sheet slot.
func (s State) Drop(img Image) (State, Slot, error) {
	switch {
	case !s.Slide.Loaded():
		return s.WithImage(SlotSlide, img), SlotSlide, nil
	case !s.Sheet.Loaded():
		return s.WithImage(SlotSheet, img), SlotSheet, nil
	default:
		return s, 0, ErrSlotsFull
	}
}

func (s State) WithImage(slot Slot, img Image) State {
	switch slot {
	case SlotSlide:
		s.Slide = img
		s = s.withoutResults()
	case SlotSheet:
		s.Sheet = img
		s = s.withoutKernels()
	}
	s.Status = fmt.Sprintf("Loaded %s %q. Choose a kernel shape and split the sheet.", slot, img.Name)
	return s
}

func (s State) WithShape(shape kernel.Shape) State {
	if shape == s.Shape {
		return s
	}
	s.Shape = shape
	s = s.withoutKernels()
	s.Status = fmt.Sprintf("Kernel shape set to %s.", shape)
	return s
}

// Split cuts the sheet with the current shape. On error the receiver's kernels stay.
func (s State) Split() (State, error) {
	if !s.Sheet.Loaded() {
		return s, ErrNoSheet
	}
	kernels, err := kernel.Split(s.Sheet.Gray, s.Shape)
	if err != nil {
		return s, err
	}

	s = s.withoutKernels()
	s.Kernels = kernels
	rows, cols := kernels[0].Dims()
	s.Status = fmt.Sprintf("Split into %d kernels of %dx%d (%s).", len(kernels), cols, rows, s.Shape)
	return s, nil
}

// Run correlates all kernels with the slide. On error the receiver's results stay.
func (s State) Run(ctx context.Context, p *Processor) (State, error) {
	if !s.Slide.Loaded() {
		return s, ErrNoSlide
	}
	if len(s.Kernels) == 0 {
		return s, ErrNoKernels
	}

	results, previews, err := p.Process(ctx, s.Slide.Gray, s.Kernels)
	if err != nil {
		return s, err
	}

	s.Results = results
	s.Previews = previews
	s.Selected = 0
	s.Status = fmt.Sprintf("Computed %d convolution maps.", len(results))
	return s, nil
}

// WithPreviews replaces the previews without touching the results.
func (s State) WithPreviews(previews []*image.Gray) State {
	s.Previews = previews
	return s
}

// Select clamps i to the available results.
func (s State) Select(i int) State {
	switch {
	case len(s.Results) == 0:
		i = 0
	case i < 0:
		i = 0
	case i >= len(s.Results):
		i = len(s.Results) - 1
	}
	s.Selected = i
	return s
}

// Current returns the selected result with its preview and kernel.
func (s State) Current() (convolve.Result, *image.Gray, kernel.Kernel, error) {
	if len(s.Results) == 0 {
		return convolve.Result{}, nil, kernel.Kernel{}, ErrNoSelected
	}
	i := s.Selected
	return s.Results[i], s.Previews[i], s.Kernels[i], nil
}

func (s State) withoutKernels() State {
	s.Kernels = nil
	return s.withoutResults()
}

func (s State) withoutResults() State {
	s.Results = nil
	s.Previews = nil
	s.Selected = 0
	return s
}
