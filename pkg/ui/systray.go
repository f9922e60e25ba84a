package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/systray"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
	"github.com/jeff-barlow-spady/mediascribe/pkg/resources"
)

// SystemTray is the tray icon and its menu
type SystemTray struct {
	desk      desktop.App
	isRunning bool

	onStart func()
	onShow  func()
	onQuit  func()

	// Menu items are kept so their state can change later
	menu   *fyne.Menu
	mStart *fyne.MenuItem
	mShow  *fyne.MenuItem
	mQuit  *fyne.MenuItem
}

// NewSystemTray creates a tray for a desktop application
func NewSystemTray(desk desktop.App) *SystemTray {
	return &SystemTray{
		desk: desk,
		onStart: func() {
			logger.Debug(logger.CategoryUI, "Start clicked (default handler)")
		},
		onShow: func() {
			logger.Debug(logger.CategoryUI, "Show clicked (default handler)")
		},
		onQuit: func() {
			logger.Debug(logger.CategoryUI, "Quit clicked (default handler)")
		},
	}
}

// SetCallbacks sets callbacks for tray menu items
func (s *SystemTray) SetCallbacks(onStart, onShow, onQuit func()) {
	if onStart != nil {
		s.onStart = onStart
	}
	if onShow != nil {
		s.onShow = onShow
	}
	if onQuit != nil {
		s.onQuit = onQuit
	}
}

// Start installs the tray menu. It must run after the driver has started.
func (s *SystemTray) Start() {
	if s.isRunning {
		return
	}

	s.mStart = fyne.NewMenuItem("Start Processing", func() { s.onStart() })
	s.mShow = fyne.NewMenuItem("Show Window", func() { s.onShow() })
	s.mQuit = fyne.NewMenuItem("Quit", func() { s.onQuit() })
	s.mQuit.IsQuit = true
	s.menu = fyne.NewMenu("Mediascribe", s.mShow, s.mStart, fyne.NewMenuItemSeparator(), s.mQuit)

	if icon := resources.LoadAppIcon(); icon != nil {
		s.desk.SetSystemTrayIcon(icon)
	}
	s.desk.SetSystemTrayMenu(s.menu)
	systray.SetTooltip("Mediascribe batch transcriber")
	s.isRunning = true
}

// SetStartEnabled greys out Start Processing while the app is not ready
func (s *SystemTray) SetStartEnabled(enabled bool) {
	if s.mStart == nil || s.mStart.Disabled == !enabled {
		return
	}
	s.mStart.Disabled = !enabled
	s.desk.SetSystemTrayMenu(s.menu)
}
