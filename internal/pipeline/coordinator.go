package pipeline

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"kernelscope/internal/convolve"
	"kernelscope/internal/kernel"
	"kernelscope/internal/logger"
	"kernelscope/internal/preview"
)

// Coordinator owns the current State. Every method applies one transition
// under the lock and logs the outcome; a failed transition leaves the State as
// it was.
type Coordinator struct {
	mu           sync.RWMutex
	state        State
	defaultShape kernel.Shape
	processor    *Processor
	logger       logger.Logger
	ctx          context.Context
	cancel       context.CancelFunc

	// generation counts changes to the run inputs: slide, kernels and shape.
	generation uint64
}

func NewCoordinator(processor *Processor, defaultShape kernel.Shape, log logger.Logger) *Coordinator {
	if processor.Correlator == nil {
		processor.Correlator = convolve.Native{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	coord := &Coordinator{
		state:        NewState(defaultShape),
		defaultShape: defaultShape,
		processor:    processor,
		logger:       log,
		ctx:          ctx,
		cancel:       cancel,
	}

	log.Info("PipelineCoordinator", "initialized", map[string]interface{}{
		"correlator": processor.Correlator.Name(),
		"workers":    processor.Workers,
		"shape":      defaultShape.String(),
	})
	return coord
}

// State returns a snapshot. It shares slices with the coordinator, which never
// modifies them in place.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Drop decodes data and routes it to the first empty slot.
func (c *Coordinator) Drop(name string, data []byte) (Slot, error) {
	img, err := Decode(name, data)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "drop",
			"name":      name,
		})
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next, slot, err := c.state.Drop(img)
	if err != nil {
		c.logger.Warning("PipelineCoordinator", "drop rejected", map[string]interface{}{
			"name":  name,
			"error": err.Error(),
		})
		return 0, err
	}
	c.state = next
	c.generation++
	c.logLoaded(slot, img)
	return slot, nil
}

func (c *Coordinator) Load(slot Slot, reader io.Reader, name string) error {
	img, err := LoadFromReader(reader, name)
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "load_image",
			"slot":      slot.String(),
			"name":      name,
		})
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.WithImage(slot, img)
	c.generation++
	c.logLoaded(slot, img)
	return nil
}

func (c *Coordinator) logLoaded(slot Slot, img Image) {
	c.logger.Info("PipelineCoordinator", "image loaded", map[string]interface{}{
		"slot":   slot.String(),
		"name":   img.Name,
		"width":  img.Gray.Bounds().Dx(),
		"height": img.Gray.Bounds().Dy(),
	})
}

func (c *Coordinator) SetShape(shape kernel.Shape) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if shape == c.state.Shape {
		return
	}
	c.state = c.state.WithShape(shape)
	c.generation++
	c.logger.Debug("PipelineCoordinator", "shape selected", map[string]interface{}{
		"shape": shape.String(),
	})
}

func (c *Coordinator) Split() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	next, err := c.state.Split()
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "split",
			"shape":     c.state.Shape.String(),
		})
		return c.state, err
	}
	c.state = next
	c.generation++

	c.logger.Info("PipelineCoordinator", "kernels split", map[string]interface{}{
		"count":      len(next.Kernels),
		"shape":      next.Shape.String(),
		"split_time": time.Since(start),
	})
	return c.state, nil
}

// Run correlates every kernel with the slide. The computation runs on a
// snapshot without holding the lock; if the inputs change meanwhile the
// results are dropped with ErrStaleRun.
func (c *Coordinator) Run(ctx context.Context) (State, error) {
	c.mu.RLock()
	snapshot, generation := c.state, c.generation
	processor := *c.processor
	c.mu.RUnlock()

	ctx, cancel := mergeContext(ctx, c.ctx)
	defer cancel()

	start := time.Now()
	next, err := snapshot.Run(ctx, &processor)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil && generation != c.generation {
		err = ErrStaleRun
	}
	if err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "run_all",
			"kernels":   len(snapshot.Kernels),
		})
		return c.state, err
	}
	if processor.Preview != c.processor.Preview {
		next = next.WithPreviews(c.processor.Render(next.Results))
	}
	c.state = next

	c.logger.Info("PipelineCoordinator", "convolutions computed", map[string]interface{}{
		"results":         len(next.Results),
		"correlator":      processor.Correlator.Name(),
		"processing_time": time.Since(start),
	})
	return c.state, nil
}

// SetCorrelator switches the backend used by later runs. Existing results stay.
func (c *Coordinator) SetCorrelator(correlator convolve.Correlator) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processor.Correlator = correlator
	c.logger.Info("PipelineCoordinator", "correlator selected", map[string]interface{}{
		"correlator": correlator.Name(),
	})
}

// SetStretch toggles contrast stretching and redraws the current previews.
func (c *Coordinator) SetStretch(stretch bool) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.processor.Preview.Stretch = stretch
	c.state = c.state.WithPreviews(c.processor.Render(c.state.Results))
	c.logger.Debug("PipelineCoordinator", "preview stretch changed", map[string]interface{}{
		"stretch":  stretch,
		"previews": len(c.state.Previews),
	})
	return c.state
}

func (c *Coordinator) Select(i int) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = c.state.Select(i)
	return c.state
}

func (c *Coordinator) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = NewState(c.defaultShape)
	c.generation++
	c.logger.Info("PipelineCoordinator", "state reset", nil)
	return c.state
}

// SaveSelected writes the full-resolution result of the selected kernel.
func (c *Coordinator) SaveSelected(writer io.Writer, format string) error {
	state := c.State()
	res, _, _, err := state.Current()
	if err != nil {
		return err
	}

	start := time.Now()
	if err := Export(writer, res.Image, format); err != nil {
		c.logger.Error("PipelineCoordinator", err, map[string]interface{}{
			"operation": "save_result",
			"format":    format,
		})
		return err
	}

	c.logger.Info("PipelineCoordinator", "result saved", map[string]interface{}{
		"kernel":    state.Selected,
		"format":    format,
		"save_time": time.Since(start),
	})
	return nil
}

// KernelImage renders the selected kernel for display.
func (c *Coordinator) KernelImage(scale int) (Image, error) {
	state := c.State()
	_, _, k, err := state.Current()
	if err != nil {
		return Image{}, err
	}
	return Image{Name: fmt.Sprintf("kernel %d", state.Selected), Gray: preview.Kernel(k, scale)}, nil
}

func (c *Coordinator) Context() context.Context {
	return c.ctx
}

func (c *Coordinator) Shutdown() {
	c.logger.Info("PipelineCoordinator", "shutdown started", nil)
	c.cancel()

	c.mu.Lock()
	c.state = NewState(c.defaultShape)
	c.generation++
	c.mu.Unlock()

	c.logger.Info("PipelineCoordinator", "shutdown completed", nil)
}

// mergeContext is cancelled when either parent is.
func mergeContext(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(a)
	stop := context.AfterFunc(b, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
