package pipeline

import (
	"context"
	"image"

	"kernelscope/internal/convolve"
	"kernelscope/internal/kernel"
	"kernelscope/internal/preview"
)

// Processor runs every kernel over a slide and renders the previews.
type Processor struct {
	Correlator convolve.Correlator
	Workers    int
	Preview    preview.Options
}

func (p *Processor) Process(ctx context.Context, slide *image.Gray, kernels []kernel.Kernel) ([]convolve.Result, []*image.Gray, error) {
	correlator := p.Correlator
	if correlator == nil {
		correlator = convolve.Native{}
	}

	results, err := convolve.RunAll(ctx, correlator, slide, kernels, p.Workers)
	if err != nil {
		return nil, nil, err
	}

	return results, p.Render(results), nil
}

// Render draws one preview per result with the current preview options.
func (p *Processor) Render(results []convolve.Result) []*image.Gray {
	if len(results) == 0 {
		return nil
	}
	previews := make([]*image.Gray, len(results))
	for i, res := range results {
		previews[i] = preview.RenderResponse(res, p.Preview)
	}
	return previews
}
