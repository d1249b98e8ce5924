package gui

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"kernelscope/internal/algorithms"
	"kernelscope/internal/convolve"
	"kernelscope/internal/kernel"
	"kernelscope/internal/logger"
	"kernelscope/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, shapes []kernel.Shape) (*Manager, *pipeline.Coordinator) {
	return newTestManagerWith(t, nil, shapes)
}

func newTestManagerWith(t *testing.T, correlator convolve.Correlator, shapes []kernel.Shape) (*Manager, *pipeline.Coordinator) {
	t.Helper()
	test.NewApp()
	w := test.NewWindow(widget.NewLabel(""))
	t.Cleanup(w.Close)

	processor := &pipeline.Processor{Correlator: correlator, Workers: 2}
	coord := pipeline.NewCoordinator(processor, shapes[0], logger.NewNop())
	manager, err := NewManager(w, coord, algorithms.NewManager(), shapes, logger.NewNop())
	require.NoError(t, err)
	return manager, coord
}

func TestControllerChangeShape(t *testing.T) {
	shapes := []kernel.Shape{{Rows: 3, Cols: 6}, {Rows: 6, Cols: 3}}
	manager, coord := newTestManager(t, shapes)

	manager.controller.ChangeShape("6 x 3")
	assert.Equal(t, kernel.Shape{Rows: 6, Cols: 3}, coord.State().Shape)
	assert.Equal(t, "6 x 3", manager.view.kernelPanel.Shape())
}

func TestControllerSelectKernel(t *testing.T) {
	shape := kernel.Shape{Rows: 1, Cols: 3}
	manager, coord := newTestManager(t, []kernel.Shape{shape})

	var slide, sheet bytes.Buffer
	require.NoError(t, png.Encode(&slide, solid(4, 4, 50)))
	require.NoError(t, png.Encode(&sheet, solid(3, 1, 255)))
	require.NoError(t, coord.Load(pipeline.SlotSlide, &slide, "slide.png"))
	require.NoError(t, coord.Load(pipeline.SlotSheet, &sheet, "sheet.png"))
	_, err := coord.Split()
	require.NoError(t, err)
	_, err = coord.Run(t.Context())
	require.NoError(t, err)

	manager.controller.SelectKernel(2)
	assert.Equal(t, 2, coord.State().Selected)
	assert.Equal(t, "Kernel: 3 / 3", manager.view.kernelPanel.IndexText())

	manager.controller.SelectKernel(99)
	assert.Equal(t, 2, coord.State().Selected)

	manager.controller.Reset()
	assert.False(t, coord.State().Slide.Loaded())
	assert.Equal(t, "Kernel: --", manager.view.kernelPanel.IndexText())
}

func TestControllerChangeBackend(t *testing.T) {
	manager, _ := newTestManager(t, []kernel.Shape{{Rows: 1, Cols: 1}})

	require.NoError(t, manager.controller.ChangeBackend("native"))
	assert.Equal(t, "native", manager.algorithmManager.Current().Name())

	menus := manager.Menus(false)
	require.Len(t, menus, 2)
	assert.Equal(t, "Backend", menus[0].Label)
	require.Len(t, menus[0].Items, 1)
	assert.True(t, menus[0].Items[0].Checked)
	assert.Equal(t, "View", menus[1].Label)
}

// gatedCorrelator blocks every call until release is closed.
type gatedCorrelator struct {
	calls   *atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (gatedCorrelator) Name() string { return "gated" }

func (g gatedCorrelator) Correlate(slide *image.Gray, k kernel.Kernel) (convolve.Result, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	<-g.release
	return convolve.Native{}.Correlate(slide, k)
}

func loadInputs(t *testing.T, coord *pipeline.Coordinator, slide, sheet *image.Gray) {
	t.Helper()
	var slideBuf, sheetBuf bytes.Buffer
	require.NoError(t, png.Encode(&slideBuf, slide))
	require.NoError(t, png.Encode(&sheetBuf, sheet))
	require.NoError(t, coord.Load(pipeline.SlotSlide, &slideBuf, "slide.png"))
	require.NoError(t, coord.Load(pipeline.SlotSheet, &sheetBuf, "sheet.png"))
}

func TestControllerRunAllIgnoresSecondCall(t *testing.T) {
	gated := gatedCorrelator{
		calls:   new(atomic.Int32),
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	manager, coord := newTestManagerWith(t, gated, []kernel.Shape{{Rows: 1, Cols: 1}})
	loadInputs(t, coord, solid(2, 2, 40), solid(1, 1, 255))
	_, err := coord.Split()
	require.NoError(t, err)

	manager.controller.RunAll()
	select {
	case <-gated.started:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not start")
	}

	assert.True(t, manager.controller.isProcessing())
	assert.True(t, manager.view.toolbar.Running())

	manager.controller.RunAll()
	close(gated.release)

	assert.Eventually(t, func() bool {
		return !manager.controller.isProcessing() && !manager.view.toolbar.Running()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), gated.calls.Load())

	state := coord.State()
	require.Len(t, state.Results, 1)
	assert.Equal(t, []uint8{40, 40, 40, 40}, state.Results[0].Image.Pix)
}

func TestControllerRunAllWithoutInputsReenables(t *testing.T) {
	manager, coord := newTestManager(t, []kernel.Shape{{Rows: 1, Cols: 1}})

	manager.controller.RunAll()

	assert.Eventually(t, func() bool {
		return !manager.controller.isProcessing() && !manager.view.toolbar.Running()
	}, 5*time.Second, 10*time.Millisecond)
	assert.Nil(t, coord.State().Results)
}

func writePNG(t *testing.T, dir, name string, img *image.Gray) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestControllerHandleDropThenSplit(t *testing.T) {
	manager, coord := newTestManager(t, []kernel.Shape{{Rows: 3, Cols: 2}})
	dir := t.TempDir()
	slidePath := writePNG(t, dir, "slide.png", solid(4, 4, 90))
	sheetPath := writePNG(t, dir, "sheet.png", solid(2, 3, 255))

	manager.controller.HandleDrop(fyne.Position{}, []fyne.URI{
		storage.NewFileURI(slidePath),
		storage.NewFileURI(sheetPath),
	})

	assert.Eventually(t, func() bool {
		state := coord.State()
		return state.Slide.Loaded() && state.Sheet.Loaded()
	}, 5*time.Second, 10*time.Millisecond)
	state := coord.State()
	assert.Equal(t, "slide.png", state.Slide.Name)
	assert.Equal(t, "sheet.png", state.Sheet.Name)

	manager.controller.SplitKernels()

	assert.Eventually(t, func() bool {
		return len(coord.State().Kernels) == 6
	}, 5*time.Second, 10*time.Millisecond)
}

func TestControllerHandleDropIgnoresEmpty(t *testing.T) {
	manager, coord := newTestManager(t, []kernel.Shape{{Rows: 1, Cols: 1}})

	manager.controller.HandleDrop(fyne.Position{}, nil)
	assert.False(t, coord.State().Slide.Loaded())
}
