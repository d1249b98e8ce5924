package widgets

import (
	"fmt"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// KernelPanel holds the shape selector and the kernel index slider.
type KernelPanel struct {
	container  *fyne.Container
	shapeRadio *widget.RadioGroup
	slider     *widget.Slider
	indexLabel *widget.Label
	scoreLabel *widget.Label

	shapeChangeHandler func(string)
	selectHandler      func(int)

	// updating suppresses handlers while the panel is being set from state.
	updating bool
	count    int
}

func NewKernelPanel(shapes []string) *KernelPanel {
	panel := &KernelPanel{}
	panel.createWidgets(shapes)
	panel.setupLayout()
	return panel
}

func (kp *KernelPanel) createWidgets(shapes []string) {
	kp.shapeRadio = widget.NewRadioGroup(shapes, kp.onShapeChanged)
	kp.shapeRadio.Horizontal = true
	kp.shapeRadio.Required = true

	kp.slider = widget.NewSlider(0, 1)
	kp.slider.Step = 1
	kp.slider.OnChanged = kp.onSliderChanged
	kp.slider.Hide()

	kp.indexLabel = widget.NewLabel("Kernel: --")
	kp.scoreLabel = widget.NewLabel("Score: --")
}

func (kp *KernelPanel) setupLayout() {
	kp.container = container.NewVBox(
		container.NewHBox(widget.NewLabel("Kernel shape (rows x cols):"), kp.shapeRadio),
		container.NewBorder(nil, nil, kp.indexLabel, kp.scoreLabel, kp.slider),
	)
}

func (kp *KernelPanel) onShapeChanged(label string) {
	if kp.updating || kp.shapeChangeHandler == nil || label == "" {
		return
	}
	kp.shapeChangeHandler(label)
}

func (kp *KernelPanel) onSliderChanged(value float64) {
	if kp.updating || kp.selectHandler == nil {
		return
	}
	kp.selectHandler(int(math.Round(value)))
}

func (kp *KernelPanel) GetContainer() *fyne.Container {
	return kp.container
}

func (kp *KernelPanel) SetShapeChangeHandler(handler func(string)) {
	kp.shapeChangeHandler = handler
}

func (kp *KernelPanel) SetSelectHandler(handler func(int)) {
	kp.selectHandler = handler
}

func (kp *KernelPanel) SetShape(label string) {
	kp.updating = true
	defer func() { kp.updating = false }()

	if kp.shapeRadio.Selected != label {
		kp.shapeRadio.SetSelected(label)
	}
}

func (kp *KernelPanel) Shape() string {
	return kp.shapeRadio.Selected
}

// SetSelection shows the slider for count results positioned at selected.
// The slider is hidden while there are fewer than two results.
func (kp *KernelPanel) SetSelection(count, selected int, score float64) {
	kp.updating = true
	defer func() { kp.updating = false }()

	kp.count = count
	if count == 0 {
		kp.slider.Hide()
		kp.indexLabel.SetText("Kernel: --")
		kp.scoreLabel.SetText("Score: --")
		return
	}

	if count > 1 {
		kp.slider.Max = float64(count - 1)
		kp.slider.SetValue(float64(selected))
		kp.slider.Refresh()
		kp.slider.Show()
	} else {
		kp.slider.Hide()
	}
	kp.indexLabel.SetText(fmt.Sprintf("Kernel: %d / %d", selected+1, count))
	kp.scoreLabel.SetText(fmt.Sprintf("Score: %.5f", score))
}

func (kp *KernelPanel) Count() int {
	return kp.count
}

func (kp *KernelPanel) IndexText() string {
	return kp.indexLabel.Text
}

func (kp *KernelPanel) ScoreText() string {
	return kp.scoreLabel.Text
}
