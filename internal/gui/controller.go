package gui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"kernelscope/internal/algorithms"
	"kernelscope/internal/kernel"
	"kernelscope/internal/logger"
	"kernelscope/internal/pipeline"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/storage"
)

const runTimeout = 5 * time.Minute

type Controller struct {
	view             *View
	coordinator      *pipeline.Coordinator
	algorithmManager *algorithms.Manager
	shapes           map[string]kernel.Shape
	logger           logger.Logger

	mu               sync.RWMutex
	processingActive bool
	processCancel    context.CancelFunc
}

func NewController(coord *pipeline.Coordinator, manager *algorithms.Manager, shapes []kernel.Shape, log logger.Logger) *Controller {
	byLabel := make(map[string]kernel.Shape, len(shapes))
	for _, s := range shapes {
		byLabel[s.String()] = s
	}
	return &Controller{
		coordinator:      coord,
		algorithmManager: manager,
		shapes:           byLabel,
		logger:           log,
	}
}

func (c *Controller) SetView(view *View) {
	c.view = view
}

// LoadImage opens a file dialog and puts the chosen image into slot.
func (c *Controller) LoadImage(slot pipeline.Slot) {
	c.view.ShowFileDialog(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			c.handleError("File selection error", err)
			return
		}
		if reader == nil {
			return
		}

		c.updateStatus(fmt.Sprintf("Loading %s...", slot))

		go func() {
			defer reader.Close()

			start := time.Now()
			if err := c.coordinator.Load(slot, reader, reader.URI().Name()); err != nil {
				c.handleError("Image load error", err)
				return
			}
			c.logger.Debug("Controller", "image load finished", map[string]interface{}{
				"slot":      slot.String(),
				"load_time": time.Since(start),
			})
			c.refresh()
		}()
	})
}

// HandleDrop loads dropped files in order: the slide first, then the sheet.
func (c *Controller) HandleDrop(_ fyne.Position, uris []fyne.URI) {
	if len(uris) == 0 {
		return
	}

	go func() {
		defer c.refresh()

		for _, uri := range uris {
			data, err := readURI(uri)
			if err != nil {
				c.handleError("File read error", err)
				return
			}

			slot, err := c.coordinator.Drop(uri.Name(), data)
			if err != nil {
				c.handleError("Drop error", err)
				return
			}
			c.logger.Debug("Controller", "file dropped", map[string]interface{}{
				"uri":  uri.String(),
				"slot": slot.String(),
			})
		}
	}()
}

func readURI(uri fyne.URI) ([]byte, error) {
	reader, err := storage.Reader(uri)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri.Name(), err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", uri.Name(), err)
	}
	return data, nil
}

func (c *Controller) ChangeShape(label string) {
	shape, ok := c.shapes[label]
	if !ok {
		c.handleError("Shape error", fmt.Errorf("unknown kernel shape %q", label))
		return
	}
	c.coordinator.SetShape(shape)
	c.renderNow()
}

func (c *Controller) SplitKernels() {
	if c.isProcessing() {
		return
	}
	c.updateStatus("Splitting kernel sheet...")

	go func() {
		if _, err := c.coordinator.Split(); err != nil {
			c.handleError("Split error", err)
			return
		}
		c.refresh()
	}()
}

// RunAll correlates every kernel with the slide. A second call while a run
// is active is ignored.
func (c *Controller) RunAll() {
	c.mu.Lock()
	if c.processingActive {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	c.processingActive = true
	c.processCancel = cancel
	c.mu.Unlock()

	c.view.SetRunning(true)
	c.updateStatus("Running all convolutions...")

	go func() {
		defer func() {
			cancel()
			c.mu.Lock()
			c.processingActive = false
			c.processCancel = nil
			c.mu.Unlock()
			fyne.Do(func() {
				c.view.SetRunning(false)
			})
		}()

		start := time.Now()
		state, err := c.coordinator.Run(ctx)
		if err != nil {
			c.handleError("Convolution error", err)
			return
		}

		c.logger.Info("Controller", "run completed", map[string]interface{}{
			"results":         len(state.Results),
			"processing_time": time.Since(start),
		})
		c.refresh()
	}()
}

// SelectKernel is called from the slider on the fyne thread.
func (c *Controller) SelectKernel(i int) {
	c.view.Render(c.coordinator.Select(i))
}

func (c *Controller) SaveResult() {
	if _, _, _, err := c.coordinator.State().Current(); err != nil {
		c.handleError("Save error", err)
		return
	}

	c.view.ShowSaveDialog(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			c.handleError("File save error", err)
			return
		}
		if writer == nil {
			return
		}

		c.updateStatus("Saving result...")

		go func() {
			defer writer.Close()

			format := pipeline.FormatForName(writer.URI().Name())
			if err := c.coordinator.SaveSelected(writer, format); err != nil {
				c.handleError("Image save error", err)
				return
			}
			c.updateStatus(fmt.Sprintf("Saved %s", writer.URI().Name()))
		}()
	})
}

func (c *Controller) Reset() {
	c.CancelProcessing()
	c.view.Render(c.coordinator.Reset())
}

// ChangeBackend selects a registered correlator for later runs.
func (c *Controller) ChangeBackend(name string) error {
	if err := c.algorithmManager.SetCurrent(name); err != nil {
		c.handleError("Backend error", err)
		return err
	}
	c.coordinator.SetCorrelator(c.algorithmManager.Current())
	c.updateStatus(fmt.Sprintf("Using the %s backend.", name))
	return nil
}

func (c *Controller) SetStretch(stretch bool) {
	c.view.Render(c.coordinator.SetStretch(stretch))
}

func (c *Controller) CancelProcessing() {
	c.mu.Lock()
	if c.processCancel != nil {
		c.processCancel()
	}
	c.mu.Unlock()
}

// refresh renders the coordinator state from any goroutine.
func (c *Controller) refresh() {
	state := c.coordinator.State()
	fyne.Do(func() {
		c.view.Render(state)
	})
}

func (c *Controller) renderNow() {
	c.view.Render(c.coordinator.State())
}

func (c *Controller) updateStatus(status string) {
	fyne.Do(func() {
		c.view.SetStatus(status)
	})
}

func (c *Controller) handleError(title string, err error) {
	c.logger.Error("Controller", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		c.view.SetStatus(fmt.Sprintf("%s: %v", title, err))
		c.view.ShowError(title, err)
	})
}

func (c *Controller) isProcessing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.processingActive
}

func (c *Controller) Shutdown() {
	c.CancelProcessing()
	c.logger.Info("Controller", "shutdown completed", nil)
}
