package widgets

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

type Toolbar struct {
	container       *fyne.Container
	loadSlideButton *widget.Button
	loadSheetButton *widget.Button
	splitButton     *widget.Button
	runButton       *widget.Button
	SaveButton      *widget.Button
	resetButton     *widget.Button
	statusLabel     *widget.Label

	loadSlideHandler func()
	loadSheetHandler func()
	splitHandler     func()
	runHandler       func()
	saveHandler      func()
	resetHandler     func()
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.createComponents()
	toolbar.buildLayout()
	return toolbar
}

func (t *Toolbar) createComponents() {
	t.loadSlideButton = widget.NewButton("Load slide", func() { call(t.loadSlideHandler) })
	t.loadSheetButton = widget.NewButton("Load sheet", func() { call(t.loadSheetHandler) })

	t.splitButton = widget.NewButton("Split kernels", func() { call(t.splitHandler) })
	t.splitButton.Importance = widget.HighImportance

	t.runButton = widget.NewButton("Run all convolutions", func() { call(t.runHandler) })
	t.runButton.Importance = widget.HighImportance

	t.SaveButton = widget.NewButton("Save result", func() { call(t.saveHandler) })
	t.resetButton = widget.NewButton("Reset", func() { call(t.resetHandler) })
	t.resetButton.Importance = widget.DangerImportance

	t.statusLabel = widget.NewLabel("Ready")
	t.statusLabel.Truncation = fyne.TextTruncateEllipsis
}

func (t *Toolbar) buildLayout() {
	background := canvas.NewRectangle(color.RGBA{R: 250, G: 249, B: 245, A: 255})
	border := canvas.NewRectangle(color.Transparent)
	border.StrokeWidth = 1.0
	border.StrokeColor = color.RGBA{R: 231, G: 231, B: 231, A: 255}

	leftSection := container.NewHBox(t.loadSlideButton, t.loadSheetButton)
	centerSection := container.NewHBox(t.splitButton, t.runButton)
	rightSection := container.NewHBox(t.SaveButton, t.resetButton)

	content := container.NewBorder(
		nil, nil,
		container.NewHBox(leftSection, widget.NewSeparator(), centerSection, widget.NewSeparator()),
		rightSection,
		t.statusLabel,
	)

	t.container = container.NewStack(
		border,
		container.NewPadded(
			container.NewStack(background, container.NewPadded(content)),
		),
	)
}

func call(handler func()) {
	if handler != nil {
		handler()
	}
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetLoadSlideHandler(handler func()) {
	t.loadSlideHandler = handler
}

func (t *Toolbar) SetLoadSheetHandler(handler func()) {
	t.loadSheetHandler = handler
}

func (t *Toolbar) SetSplitHandler(handler func()) {
	t.splitHandler = handler
}

func (t *Toolbar) SetRunHandler(handler func()) {
	t.runHandler = handler
}

func (t *Toolbar) SetSaveHandler(handler func()) {
	t.saveHandler = handler
}

func (t *Toolbar) SetResetHandler(handler func()) {
	t.resetHandler = handler
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

func (t *Toolbar) Status() string {
	return t.statusLabel.Text
}

// SetRunning disables the actions that would race a run in progress.
func (t *Toolbar) SetRunning(running bool) {
	for _, b := range []*widget.Button{t.splitButton, t.runButton, t.resetButton} {
		if running {
			b.Disable()
		} else {
			b.Enable()
		}
	}
}

// Running reports whether the run actions are disabled.
func (t *Toolbar) Running() bool {
	return t.runButton.Disabled()
}

// SetCanSave enables the save button only when there is a result to write.
func (t *Toolbar) SetCanSave(canSave bool) {
	if canSave {
		t.SaveButton.Enable()
	} else {
		t.SaveButton.Disable()
	}
}
