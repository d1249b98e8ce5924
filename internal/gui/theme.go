package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Theme keeps the panes neutral so grey previews are not tinted by the
// surrounding chrome.
type Theme struct{}

func NewTheme() fyne.Theme {
	return &Theme{}
}

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	dark := variant == theme.VariantDark

	switch name {
	case theme.ColorNameBackground:
		if dark {
			return color.Gray{Y: 28}
		}
		return color.RGBA{R: 250, G: 249, B: 245, A: 255}
	case theme.ColorNameInputBackground, theme.ColorNameButton:
		if dark {
			return color.Gray{Y: 52}
		}
		return color.Gray{Y: 236}
	case theme.ColorNamePrimary:
		return color.RGBA{R: 0, G: 128, B: 128, A: 255}
	case theme.ColorNameFocus:
		return color.RGBA{R: 0, G: 128, B: 128, A: 96}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNamePadding {
		return 4
	}
	return theme.DefaultTheme().Size(name)
}
