package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Card colors for model readiness
var (
	readyColor   = color.NRGBA{R: 46, G: 125, B: 50, A: 255}
	missingColor = color.NRGBA{R: 198, G: 40, B: 40, A: 255}
	bannerColor  = color.NRGBA{R: 120, G: 40, B: 40, A: 255}
)

// MediascribeTheme keeps disabled text readable and enlarges text slightly
type MediascribeTheme struct {
	baseTheme fyne.Theme
	isDark    bool
}

// NewMediascribeTheme creates a dark or light theme
func NewMediascribeTheme(dark bool) *MediascribeTheme {
	if dark {
		return &MediascribeTheme{baseTheme: theme.DarkTheme(), isDark: true}
	}
	return &MediascribeTheme{baseTheme: theme.LightTheme(), isDark: false}
}

// Color returns the color for a named color element
func (t *MediascribeTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	if t.isDark {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{R: 26, G: 26, B: 30, A: 255}
		case theme.ColorNameButton:
			return color.NRGBA{R: 44, G: 44, B: 52, A: 255}
		case theme.ColorNameDisabled:
			return color.NRGBA{R: 170, G: 170, B: 170, A: 255}
		case theme.ColorNameForeground:
			return color.NRGBA{R: 238, G: 238, B: 242, A: 255}
		case theme.ColorNamePrimary:
			return color.NRGBA{R: 31, G: 106, B: 165, A: 255}
		case theme.ColorNameInputBackground:
			return color.NRGBA{R: 38, G: 38, B: 46, A: 255}
		case theme.ColorNameSuccess:
			return readyColor
		case theme.ColorNameError:
			return missingColor
		}
	} else {
		switch name {
		case theme.ColorNameDisabled:
			// dark gray so disabled labels stay legible on white
			return color.NRGBA{R: 30, G: 30, B: 30, A: 255}
		case theme.ColorNameInputBackground:
			return color.NRGBA{R: 240, G: 240, B: 240, A: 255}
		}
	}

	return t.baseTheme.Color(name, variant)
}

// Font returns the font for a text style
func (t *MediascribeTheme) Font(style fyne.TextStyle) fyne.Resource {
	return t.baseTheme.Font(style)
}

// Icon returns the icon resource for an icon name
func (t *MediascribeTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return t.baseTheme.Icon(name)
}

// Size returns the size for a specific element
func (t *MediascribeTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return t.baseTheme.Size(name) * 1.1
	case theme.SizeNameInputBorder:
		return 2.0
	}
	return t.baseTheme.Size(name)
}
