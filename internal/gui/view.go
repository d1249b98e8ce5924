package gui

import (
	"fmt"
	"image"

	"kernelscope/internal/gui/widgets"
	"kernelscope/internal/pipeline"
	"kernelscope/internal/preview"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
)

type View struct {
	window     fyne.Window
	controller *Controller

	toolbar       *widgets.Toolbar
	imageDisplay  *widgets.ImageDisplay
	kernelPanel   *widgets.KernelPanel
	mainContainer *fyne.Container
}

func NewView(window fyne.Window, shapeLabels []string) *View {
	view := &View{
		window: window,
	}

	view.setupComponents(shapeLabels)
	view.setupLayout()

	return view
}

func (v *View) SetController(controller *Controller) {
	v.controller = controller
	v.setupEventHandlers()
}

func (v *View) setupComponents(shapeLabels []string) {
	v.toolbar = widgets.NewToolbar()
	v.imageDisplay = widgets.NewImageDisplay()
	v.kernelPanel = widgets.NewKernelPanel(shapeLabels)
}

func (v *View) setupLayout() {
	v.mainContainer = container.NewBorder(
		v.toolbar.GetContainer(),
		v.kernelPanel.GetContainer(),
		nil, nil,
		v.imageDisplay.GetContainer(),
	)
}

func (v *View) setupEventHandlers() {
	if v.controller == nil {
		return
	}

	v.toolbar.SetLoadSlideHandler(func() { v.controller.LoadImage(pipeline.SlotSlide) })
	v.toolbar.SetLoadSheetHandler(func() { v.controller.LoadImage(pipeline.SlotSheet) })
	v.toolbar.SetSplitHandler(v.controller.SplitKernels)
	v.toolbar.SetRunHandler(v.controller.RunAll)
	v.toolbar.SetSaveHandler(v.controller.SaveResult)
	v.toolbar.SetResetHandler(v.controller.Reset)

	v.kernelPanel.SetShapeChangeHandler(v.controller.ChangeShape)
	v.kernelPanel.SetSelectHandler(v.controller.SelectKernel)

	v.window.SetOnDropped(v.controller.HandleDrop)
}

func (v *View) GetMainContainer() *fyne.Container {
	return v.mainContainer
}

// Render shows state. Must run on the fyne thread.
func (v *View) Render(state pipeline.State) {
	v.imageDisplay.SetSlide(state.Slide.Name, grayOrNil(state.Slide))
	v.imageDisplay.SetSheet(state.Sheet.Name, grayOrNil(state.Sheet))
	v.kernelPanel.SetShape(state.Shape.String())

	res, prev, k, err := state.Current()
	if err != nil {
		v.imageDisplay.SetResult("", nil, nil)
		v.kernelPanel.SetSelection(0, 0, 0)
	} else {
		rows, cols := k.Dims()
		scale := max(widgets.KernelThumbSize/max(rows, cols), 1)
		caption := fmt.Sprintf("Kernel %d (%dx%d)", state.Selected+1, cols, rows)
		v.imageDisplay.SetResult(caption, prev, preview.Kernel(k, scale))
		v.kernelPanel.SetSelection(len(state.Results), state.Selected, res.Score)
	}

	v.toolbar.SetCanSave(err == nil)
	if state.Status != "" {
		v.toolbar.SetStatus(state.Status)
	}
}

// grayOrNil keeps a missing image a nil interface rather than a nil *image.Gray.
func grayOrNil(img pipeline.Image) image.Image {
	if !img.Loaded() {
		return nil
	}
	return img.Gray
}

func (v *View) SetStatus(status string) {
	v.toolbar.SetStatus(status)
}

func (v *View) SetRunning(running bool) {
	v.toolbar.SetRunning(running)
}

func (v *View) ShowError(title string, err error) {
	dialog.ShowError(fmt.Errorf("%s: %w", title, err), v.window)
}

func (v *View) ShowFileDialog(callback func(fyne.URIReadCloser, error)) {
	dialog.ShowFileOpen(callback, v.window)
}

func (v *View) ShowSaveDialog(callback func(fyne.URIWriteCloser, error)) {
	save := dialog.NewFileSave(callback, v.window)
	save.SetFileName("result.png")
	save.Show()
}

func (v *View) GetWindow() fyne.Window {
	return v.window
}

func (v *View) Show() {
	v.window.SetContent(v.mainContainer)
	v.window.Show()
}

func (v *View) Shutdown() {
	v.window.SetOnDropped(nil)
}
