package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
)

// Components holds the widgets of the main window that change at runtime
type Components struct {
	FFmpegBanner *fyne.Container
	StatusLine   *widget.Label
	Message      *widget.Label
	ModelCards   *fyne.Container
	DeviceSelect *widget.RadioGroup

	DownloadButton *widget.Button
	ManualButton   *widget.Button
	RefreshButton  *widget.Button
	ProxyButton    *widget.Button
	ResultsButton  *widget.Button
	CopyButton     *widget.Button
	StartButton    *widget.Button

	Progress     *widget.ProgressBar
	StatusLabel  *widget.Label
	Instructions *widget.Label
	MainContent  fyne.CanvasObject
}

// Actions are the callbacks wired to the main window buttons
type Actions struct {
	OnFFmpegPage    func()
	OnFFmpegInstall func()
	OnRefresh       func()
	OnDevice        func(string)
	OnDownload      func()
	OnManual        func()
	OnProxy         func()
	OnResults       func()
	OnCopyPath      func()
	OnStart         func()
}

// createFFmpegBanner is shown only while ffmpeg is missing
func createFFmpegBanner(actions Actions) *fyne.Container {
	text := canvas.NewText("FFmpeg not found. Audio cannot be extracted until it is installed.", theme.ForegroundColor())
	text.TextStyle = fyne.TextStyle{Bold: true}

	buttons := container.NewHBox(
		widget.NewButtonWithIcon("Direct Download", theme.DownloadIcon(), actions.OnFFmpegPage),
		widget.NewButtonWithIcon("Auto Install", theme.ComputerIcon(), actions.OnFFmpegInstall),
		widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), actions.OnRefresh),
	)

	return container.NewStack(
		canvas.NewRectangle(bannerColor),
		container.NewPadded(container.NewVBox(text, buttons)),
	)
}

// modelCard renders one catalog model; the selected card gets a border
func modelCard(st models.Status, selected bool) fyne.CanvasObject {
	bg := canvas.NewRectangle(missingColor)
	if st.Ready {
		bg.FillColor = readyColor
	}
	if selected {
		bg.StrokeColor = theme.PrimaryColor()
		bg.StrokeWidth = 3
	}
	bg.CornerRadius = 6

	name := widget.NewLabelWithStyle(st.Name, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	desc := widget.NewLabelWithStyle(st.Description, fyne.TextAlignCenter, fyne.TextStyle{})
	state := "MISSING"
	if st.Ready {
		state = "READY"
	}
	if selected {
		state += " *"
	}
	stateLabel := widget.NewLabelWithStyle(state, fyne.TextAlignCenter, fyne.TextStyle{Italic: true})

	return container.NewStack(bg, container.NewVBox(name, desc, stateLabel))
}

// fillModelCards replaces the cards with the current model states
func fillModelCards(cards *fyne.Container, statuses []models.Status, selected string, onSelect func(string)) {
	objects := make([]fyne.CanvasObject, 0, len(statuses))
	for _, st := range statuses {
		name := st.Name
		pick := widget.NewButton("Select", func() { onSelect(name) })
		if name == selected {
			pick.Disable()
		}
		objects = append(objects, container.NewBorder(nil, pick, nil, nil, modelCard(st, name == selected)))
	}
	cards.Objects = objects
	cards.Refresh()
}

// CreateUI creates all main window components
func CreateUI(actions Actions) *Components {
	c := &Components{
		FFmpegBanner: createFFmpegBanner(actions),
		StatusLine:   widget.NewLabel(""),
		Message:      widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		ModelCards:   container.NewGridWithColumns(len(models.Catalog)),
		DeviceSelect: widget.NewRadioGroup(config.DevicePreferences, actions.OnDevice),
		Progress:     widget.NewProgressBar(),
		StatusLabel:  widget.NewLabel("Idle"),
		Instructions: widget.NewLabel(""),
	}
	c.StatusLine.Wrapping = fyne.TextWrapWord
	c.Instructions.Wrapping = fyne.TextWrapWord
	c.DeviceSelect.Horizontal = true
	c.DeviceSelect.Required = true

	c.DownloadButton = widget.NewButtonWithIcon("Download Model", theme.DownloadIcon(), actions.OnDownload)
	c.ManualButton = widget.NewButtonWithIcon("Manual Model Install", theme.HelpIcon(), actions.OnManual)
	c.RefreshButton = widget.NewButtonWithIcon("Refresh Models", theme.ViewRefreshIcon(), actions.OnRefresh)
	c.ProxyButton = widget.NewButtonWithIcon("Proxy Settings", theme.SettingsIcon(), actions.OnProxy)
	c.ResultsButton = widget.NewButtonWithIcon("Open Results", theme.FolderOpenIcon(), actions.OnResults)
	c.CopyButton = widget.NewButtonWithIcon("Copy Results Path", theme.ContentCopyIcon(), actions.OnCopyPath)
	c.StartButton = widget.NewButtonWithIcon("START PROCESSING", theme.MediaPlayIcon(), actions.OnStart)
	c.StartButton.Importance = widget.HighImportance

	header := widget.NewLabelWithStyle("Mediascribe", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})

	modelBox := container.NewVBox(
		widget.NewLabelWithStyle("Model", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.ModelCards,
		container.NewHBox(c.DownloadButton, c.ManualButton, c.RefreshButton),
	)

	deviceBox := container.NewHBox(
		widget.NewLabelWithStyle("Device:", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.DeviceSelect,
		layout.NewSpacer(),
		c.ProxyButton,
	)

	runBox := container.NewVBox(
		c.StartButton,
		c.Progress,
		c.StatusLabel,
		container.NewHBox(layout.NewSpacer(), c.ResultsButton, c.CopyButton, layout.NewSpacer()),
	)

	top := container.NewVBox(
		header,
		c.FFmpegBanner,
		c.StatusLine,
		c.Message,
		widget.NewSeparator(),
		modelBox,
		deviceBox,
		widget.NewSeparator(),
		runBox,
		widget.NewSeparator(),
	)

	c.MainContent = container.NewBorder(top, nil, nil, nil, container.NewVScroll(c.Instructions))
	return c
}
