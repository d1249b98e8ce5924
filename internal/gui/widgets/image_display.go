package widgets

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	ImageAreaWidth  = 320
	ImageAreaHeight = 320
	KernelThumbSize = 96
)

// ImageDisplay shows the slide, the kernel sheet and the selected result with
// its kernel.
type ImageDisplay struct {
	container fyne.CanvasObject

	slideImage  *canvas.Image
	sheetImage  *canvas.Image
	resultImage *canvas.Image
	kernelImage *canvas.Image

	SlideCaption  *widget.Label
	sheetCaption  *widget.Label
	ResultCaption *widget.Label
}

func NewImageDisplay() *ImageDisplay {
	display := &ImageDisplay{}
	display.createComponents()
	display.setupLayout()
	return display
}

func newPane(size fyne.Size) *canvas.Image {
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScalePixels
	img.SetMinSize(size)
	return img
}

func (id *ImageDisplay) createComponents() {
	area := fyne.NewSize(ImageAreaWidth, ImageAreaHeight)
	id.slideImage = newPane(area)
	id.sheetImage = newPane(area)
	id.resultImage = newPane(area)
	id.kernelImage = newPane(fyne.NewSize(KernelThumbSize, KernelThumbSize))

	id.SlideCaption = widget.NewLabel("Drop the slide here")
	id.sheetCaption = widget.NewLabel("Then drop the kernel sheet")
	id.ResultCaption = widget.NewLabel("No results yet")
}

func (id *ImageDisplay) setupLayout() {
	slideContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Slide**"),
		id.SlideCaption, nil, nil,
		id.slideImage,
	)

	sheetContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Kernel sheet**"),
		id.sheetCaption, nil, nil,
		id.sheetImage,
	)

	resultContainer := container.NewBorder(
		widget.NewRichTextFromMarkdown("**Result**"),
		container.NewHBox(id.kernelImage, id.ResultCaption), nil, nil,
		id.resultImage,
	)

	id.container = container.NewGridWithColumns(3, slideContainer, sheetContainer, resultContainer)
}

func (id *ImageDisplay) GetContainer() fyne.CanvasObject {
	return id.container
}

func (id *ImageDisplay) SetSlide(name string, img image.Image) {
	id.slideImage.Image = img
	id.slideImage.Refresh()
	id.SlideCaption.SetText(captionFor(name, img, "Drop the slide here"))
}

func (id *ImageDisplay) SetSheet(name string, img image.Image) {
	id.sheetImage.Image = img
	id.sheetImage.Refresh()
	id.sheetCaption.SetText(captionFor(name, img, "Then drop the kernel sheet"))
}

// SetResult shows a preview and the kernel that produced it. A nil preview
// clears both panes.
func (id *ImageDisplay) SetResult(caption string, preview, kernel image.Image) {
	id.resultImage.Image = preview
	id.resultImage.Refresh()
	id.kernelImage.Image = kernel
	id.kernelImage.Refresh()
	if preview == nil {
		caption = "No results yet"
	}
	id.ResultCaption.SetText(caption)
}

func captionFor(name string, img image.Image, empty string) string {
	if img == nil {
		return empty
	}
	b := img.Bounds()
	return fmt.Sprintf("%s (%dx%d)", name, b.Dx(), b.Dy())
}
