package gui

import (
	"context"
	"image"
	"testing"

	"kernelscope/internal/kernel"
	"kernelscope/internal/pipeline"
	"kernelscope/internal/preview"

	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestViewRenderEmptyState(t *testing.T) {
	test.NewApp()
	w := test.NewWindow(widget.NewLabel(""))
	defer w.Close()

	view := NewView(w, []string{"3 x 6", "6 x 3"})
	view.Render(pipeline.NewState(kernel.Shape{Rows: 3, Cols: 6}))

	assert.Equal(t, "3 x 6", view.kernelPanel.Shape())
	assert.Equal(t, "Kernel: --", view.kernelPanel.IndexText())
	assert.True(t, view.toolbar.SaveButton.Disabled())
	assert.Contains(t, view.toolbar.Status(), "Drop two image files")
}

func TestViewRenderResults(t *testing.T) {
	test.NewApp()
	w := test.NewWindow(widget.NewLabel(""))
	defer w.Close()

	shape := kernel.Shape{Rows: 1, Cols: 2}
	sheet := image.NewGray(image.Rect(0, 0, 2, 1))
	sheet.Pix = []uint8{0, 255}

	state := pipeline.NewState(shape).
		WithImage(pipeline.SlotSlide, pipeline.Image{Name: "slide.png", Gray: solid(6, 4, 100)}).
		WithImage(pipeline.SlotSheet, pipeline.Image{Name: "sheet.png", Gray: sheet})
	state, err := state.Split()
	require.NoError(t, err)
	state, err = state.Run(context.Background(), &pipeline.Processor{Workers: 2, Preview: preview.Options{MaxSize: 64}})
	require.NoError(t, err)
	state = state.Select(1)

	view := NewView(w, []string{shape.String()})
	view.Render(state)

	assert.Equal(t, "Kernel: 2 / 2", view.kernelPanel.IndexText())
	assert.Equal(t, "Score: 0.39216", view.kernelPanel.ScoreText())
	assert.False(t, view.toolbar.SaveButton.Disabled())
	assert.Equal(t, "slide.png (6x4)", view.imageDisplay.SlideCaption.Text)
	assert.Equal(t, "Kernel 2 (1x1)", view.imageDisplay.ResultCaption.Text)
	assert.Equal(t, "Computed 2 convolution maps.", view.toolbar.Status())
}
