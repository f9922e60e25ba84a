// Package ui provides the desktop and terminal interfaces of mediascribe
package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"github.com/jeff-barlow-spady/mediascribe/internal/clipboard"
	"github.com/jeff-barlow-spady/mediascribe/pkg/app"
	"github.com/jeff-barlow-spady/mediascribe/pkg/ffmpeg"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/resources"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

// App manages the Fyne application and the main window
type App struct {
	svc         *app.Service
	fyneApp     fyne.App
	mainWindow  fyne.Window
	proxyWindow fyne.Window
	ui          *Components
	systray     *SystemTray

	mu     sync.Mutex
	cancel context.CancelFunc
	// busy covers the short window between a click and the service flag
	busy bool
}

// New creates the desktop application around svc
func New(svc *app.Service) *App {
	fyneApp := fyneapp.NewWithID("io.github.mediascribe")
	fyneApp.Settings().SetTheme(NewMediascribeTheme(true))

	mainWindow := fyneApp.NewWindow("Mediascribe - Batch Transcriber")
	mainWindow.Resize(fyne.NewSize(860, 760))

	if icon := resources.LoadAppIcon(); icon != nil {
		fyneApp.SetIcon(icon)
		mainWindow.SetIcon(icon)
	}

	a := &App{
		svc:        svc,
		fyneApp:    fyneApp,
		mainWindow: mainWindow,
	}

	a.ui = CreateUI(Actions{
		OnFFmpegPage:    a.openFFmpegPage,
		OnFFmpegInstall: a.installFFmpeg,
		OnRefresh:       a.refresh,
		OnDevice:        a.setDevice,
		OnDownload:      a.downloadModel,
		OnManual:        a.showManualInstall,
		OnProxy:         a.showProxySettings,
		OnResults:       a.openResults,
		OnCopyPath:      a.copyResultsPath,
		OnStart:         a.startProcessing,
	})
	a.ui.Instructions.SetText(svc.Instructions())
	a.ui.DeviceSelect.SetSelected(svc.Settings().Device)
	mainWindow.SetContent(a.ui.MainContent)

	// With a tray the window only hides on close
	if desk, ok := fyneApp.(desktop.App); ok {
		a.systray = NewSystemTray(desk)
		a.systray.SetCallbacks(a.startProcessing, a.showMainWindow, a.doQuit)
		fyneApp.Lifecycle().SetOnStarted(a.systray.Start)
		mainWindow.SetCloseIntercept(func() {
			a.mainWindow.Hide()
		})
	}

	a.refresh()
	return a
}

// Run shows the main window and blocks until the application quits
func (a *App) Run() {
	a.mainWindow.ShowAndRun()
}

func (a *App) showMainWindow() {
	a.mainWindow.Show()
	a.mainWindow.RequestFocus()
}

func (a *App) doQuit() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()
	a.fyneApp.Quit()
}

// refresh re-reads the service state into every widget
func (a *App) refresh() {
	st := a.svc.Status()

	if st.FFmpegFound {
		a.ui.FFmpegBanner.Hide()
	} else {
		a.ui.FFmpegBanner.Show()
	}
	a.ui.StatusLine.SetText(st.StatusLine())
	a.ui.Message.SetText(st.Message())

	fillModelCards(a.ui.ModelCards, st.Models, st.Model, a.selectModel)

	a.mu.Lock()
	busy := a.busy
	a.mu.Unlock()

	if st.ModelReady || st.Downloading || busy {
		a.ui.DownloadButton.Disable()
	} else {
		a.ui.DownloadButton.Enable()
	}
	if st.Ready && !st.Downloading && !st.Processing && !busy {
		a.ui.StartButton.Enable()
	} else {
		a.ui.StartButton.Disable()
	}
	if a.systray != nil {
		a.systray.SetStartEnabled(st.Ready && !busy)
	}
}

func (a *App) setStatus(text string) {
	a.ui.StatusLabel.SetText(text)
}

// showError logs err to error.log and shows the fix hint
func (a *App) showError(context string, err error) {
	logger.Error(logger.CategoryUI, "%s: %v", context, err)
	report := a.svc.ReportError(context, err)
	a.showMainWindow()
	dialog.ShowError(errors.New(report.Text()), a.mainWindow)
}

// workerPanic shows a panic recovered in a job goroutine
func (a *App) workerPanic(err error) {
	a.setStatus("Unexpected error")
	a.showMainWindow()
	dialog.ShowError(err, a.mainWindow)
}

func (a *App) setDevice(value string) {
	if value == "" || value == a.svc.Settings().Device {
		return
	}
	if err := a.svc.SetDevicePreference(value); err != nil {
		a.showError("Saving device preference failed", err)
	}
	a.refresh()
}

func (a *App) selectModel(name string) {
	if a.svc.Downloading() {
		dialog.ShowInformation("Download running", "Wait for the current download to finish.", a.mainWindow)
		return
	}
	if err := a.svc.SelectModel(name); err != nil {
		a.showError("Selecting model failed", err)
	}
	a.refresh()
}

// begin marks the window busy; false means another job is running
func (a *App) begin() (context.Context, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.busy {
		return nil, false
	}
	a.busy = true
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	return ctx, true
}

func (a *App) end() {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.busy = false
	a.mu.Unlock()
	a.refresh()
}

func (a *App) downloadModel() {
	model := a.svc.Model()
	if a.svc.Status().ModelReady {
		dialog.ShowInformation("Model", fmt.Sprintf("Model %s is already installed.", model.Name), a.mainWindow)
		return
	}
	ctx, ok := a.begin()
	if !ok {
		return
	}
	a.ui.Progress.SetValue(0)
	a.setStatus("Checking model source...")
	a.refresh()

	go func() {
		defer a.end()
		defer logger.Recover(a.svc.Paths().ErrorLog, a.workerPanic)
		err := a.svc.DownloadModel(ctx, func(p models.Progress) {
			a.ui.Progress.SetValue(p.Fraction)
			a.setStatus(downloadText(model.Name, p))
		})
		if err != nil {
			a.setStatus("Download failed")
			a.showError("Model download failed", err)
			return
		}
		a.ui.Progress.SetValue(1)
		a.setStatus(fmt.Sprintf("Model %s installed", model.Name))
		dialog.ShowInformation("Download complete", fmt.Sprintf("Model %s is ready.", model.Name), a.mainWindow)
	}()
}

func (a *App) showManualInstall() {
	model := a.svc.Model()
	help := widget.NewMultiLineEntry()
	help.SetText(models.ManualInstallHelp(a.svc.Paths().ModelsDir, a.svc.HubEndpoint(), model))
	help.Wrapping = fyne.TextWrapWord
	help.SetMinRowsVisible(10)

	d := dialog.NewCustom("Manual Model Install", "Close", help, a.mainWindow)
	d.Resize(fyne.NewSize(620, 380))
	d.SetOnClosed(a.refresh)
	d.Show()
}

func (a *App) openFFmpegPage() {
	u, err := url.Parse(ffmpeg.DownloadPage())
	if err != nil {
		a.showError("Opening the FFmpeg download page failed", err)
		return
	}
	if err := a.fyneApp.OpenURL(u); err != nil {
		a.showError("Opening the FFmpeg download page failed", err)
	}
}

func (a *App) installFFmpeg() {
	dialog.ShowConfirm("Install FFmpeg",
		"Download FFmpeg and place it next to the application?",
		func(yes bool) {
			if !yes {
				return
			}
			ctx, ok := a.begin()
			if !ok {
				return
			}
			a.setStatus("Installing FFmpeg...")
			a.ui.Progress.SetValue(0)
			a.refresh()

			go func() {
				defer a.end()
				defer logger.Recover(a.svc.Paths().ErrorLog, a.workerPanic)
				path, err := a.svc.InstallFFmpeg(ctx)
				if err != nil {
					a.setStatus("FFmpeg install failed")
					a.showError("FFmpeg auto-install failed", err)
					return
				}
				a.ui.Progress.SetValue(1)
				a.setStatus("FFmpeg installed")
				dialog.ShowInformation("FFmpeg", "FFmpeg installed to:\n"+path, a.mainWindow)
			}()
		}, a.mainWindow)
}

// confirmOverwrite blocks the batch goroutine until the user answers
func (a *App) confirmOverwrite(names []string) bool {
	answer := make(chan bool, 1)
	a.showMainWindow()
	dialog.ShowConfirm("Overwrite results?", overwritePrompt(names), func(yes bool) {
		answer <- yes
	}, a.mainWindow)
	return <-answer
}

func (a *App) startProcessing() {
	ctx, ok := a.begin()
	if !ok {
		return
	}
	a.ui.Progress.SetValue(0)
	a.setStatus("Starting...")
	a.refresh()

	go func() {
		defer a.end()
		defer logger.Recover(a.svc.Paths().ErrorLog, a.workerPanic)
		result, err := a.svc.Process(ctx, app.ProcessHooks{
			Confirm: a.confirmOverwrite,
			Status: func(msg string) {
				a.setStatus(msg)
				a.ui.StatusLine.SetText(a.svc.Status().StatusLine())
			},
			Progress: func(e transcription.Event) {
				a.ui.Progress.SetValue(e.Overall)
				if e.Kind == transcription.EventSegment {
					a.setStatus(eventText(e))
				}
			},
		})

		switch {
		case errors.Is(err, app.ErrCancelled):
			a.setStatus("Cancelled")
		case errors.Is(err, app.ErrNoInputFiles):
			a.setStatus("No files to process")
			dialog.ShowInformation("No files",
				"Put media files into:\n"+a.svc.Paths().InputDir, a.mainWindow)
		case err != nil:
			a.setStatus("Processing failed")
			a.showError("Processing failed", err)
		default:
			a.ui.Progress.SetValue(1)
			msg := fmt.Sprintf("Processed %d file(s) on %s (%s).", result.Files, strings.ToUpper(result.Device), result.ComputeType)
			if result.FellBack {
				msg += "\nGPU was not usable, CPU was used instead."
			}
			a.setStatus("All files processed")
			dialog.ShowInformation("Done", msg+"\n\nResults:\n"+a.svc.Paths().OutputDir, a.mainWindow)
		}
	}()
}

// fileURL turns a local directory into a file:// URL
func fileURL(dir string) *url.URL {
	p := filepath.ToSlash(dir)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return &url.URL{Scheme: "file", Path: p}
}

func (a *App) openResults() {
	if err := a.fyneApp.OpenURL(fileURL(a.svc.Paths().OutputDir)); err != nil {
		a.showError("Opening the results folder failed", err)
	}
}

func (a *App) copyResultsPath() {
	dir := a.svc.Paths().OutputDir
	if err := clipboard.SetText(dir); err != nil {
		a.showError("Copying to clipboard failed", err)
		return
	}
	a.setStatus("Copied: " + dir)
}
