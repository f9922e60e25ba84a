package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

const (
	authNone  = "None"
	authBasic = "Basic"
)

// proxyForm holds the widgets of the proxy settings window
type proxyForm struct {
	enabled *widget.Check
	kind    *widget.Select
	host    *widget.Entry
	port    *widget.Entry
	auth    *widget.RadioGroup
	user    *widget.Entry
	pass    *widget.Entry
}

func newProxyForm(cfg config.ProxyConfig) *proxyForm {
	f := &proxyForm{
		enabled: widget.NewCheck("Use proxy", nil),
		kind:    widget.NewSelect(config.ProxyTypes, nil),
		host:    widget.NewEntry(),
		port:    widget.NewEntry(),
		user:    widget.NewEntry(),
		pass:    widget.NewPasswordEntry(),
	}
	f.auth = widget.NewRadioGroup([]string{authNone, authBasic}, func(string) {
		f.updateAuth()
	})
	f.auth.Horizontal = true

	f.host.SetPlaceHolder("127.0.0.1")
	f.port.SetPlaceHolder("1080")

	f.enabled.SetChecked(cfg.Enabled)
	kind := cfg.Type
	if kind == "" {
		kind = config.ProxyHTTP
	}
	f.kind.SetSelected(kind)
	f.host.SetText(cfg.Host)
	f.port.SetText(cfg.Port)
	f.user.SetText(cfg.User)
	f.pass.SetText(cfg.Pass)
	if cfg.HasAuth() {
		f.auth.SetSelected(authBasic)
	} else {
		f.auth.SetSelected(authNone)
	}
	f.updateAuth()
	return f
}

func (f *proxyForm) updateAuth() {
	if f.auth.Selected == authBasic {
		f.user.Enable()
		f.pass.Enable()
	} else {
		f.user.Disable()
		f.pass.Disable()
	}
}

// config validates the form. Credentials are dropped when auth is None.
func (f *proxyForm) config() (config.ProxyConfig, error) {
	cfg := config.ProxyConfig{
		Enabled: f.enabled.Checked,
		Type:    f.kind.Selected,
		Host:    strings.TrimSpace(f.host.Text),
		Port:    strings.TrimSpace(f.port.Text),
	}
	if cfg.Type == "" {
		cfg.Type = config.ProxyHTTP
	}
	if f.auth.Selected == authBasic {
		cfg.User = strings.TrimSpace(f.user.Text)
		cfg.Pass = f.pass.Text
	}

	if !cfg.Enabled {
		return cfg, nil
	}
	if cfg.Host == "" {
		return cfg, errors.New("proxy host is required")
	}
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return cfg, fmt.Errorf("invalid proxy port %q", cfg.Port)
	}
	if f.auth.Selected == authBasic && cfg.User == "" {
		return cfg, errors.New("user is required for basic auth")
	}
	return cfg, nil
}

// pending returns the form values and whether they differ from saved
func (f *proxyForm) pending(saved config.ProxyConfig) (config.ProxyConfig, bool, error) {
	cfg, err := f.config()
	if err != nil {
		return cfg, true, err
	}
	return cfg, cfg != saved, nil
}

func (f *proxyForm) content() fyne.CanvasObject {
	return container.NewVBox(
		widget.NewLabelWithStyle("Proxy Settings", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		f.enabled,
		container.NewGridWithColumns(2, widget.NewLabel("Type:"), f.kind),
		container.NewGridWithColumns(2, widget.NewLabel("Host:"), f.host),
		container.NewGridWithColumns(2, widget.NewLabel("Port:"), f.port),
		container.NewGridWithColumns(2, widget.NewLabel("Auth:"), f.auth),
		container.NewGridWithColumns(2, widget.NewLabel("User:"), f.user),
		container.NewGridWithColumns(2, widget.NewLabel("Password:"), f.pass),
	)
}

// showProxySettings opens the proxy window, reloading the saved config each time
func (a *App) showProxySettings() {
	if a.proxyWindow != nil {
		a.proxyWindow.Show()
		a.proxyWindow.RequestFocus()
		return
	}

	w := a.fyneApp.NewWindow("Proxy Settings")
	w.Resize(fyne.NewSize(460, 420))
	a.proxyWindow = w
	w.SetOnClosed(func() {
		a.proxyWindow = nil
	})

	saved := config.LoadProxyConfig(a.svc.Paths().ConfigFile)
	form := newProxyForm(saved)
	result := widget.NewLabel("")
	result.Wrapping = fyne.TextWrapWord

	var testButton *widget.Button
	testButton = widget.NewButton("Test Proxy", func() {
		cfg, err := form.config()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		testButton.Disable()
		result.SetText("Testing...")
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
			defer cancel()
			ok, msg := a.svc.TestProxy(ctx, cfg)
			testButton.Enable()
			result.SetText(msg)
			if ok {
				dialog.ShowInformation("Proxy Test", msg, w)
			} else {
				dialog.ShowError(errors.New(msg), w)
			}
		}()
	})

	save := func(cfg config.ProxyConfig) bool {
		if err := a.svc.SaveProxy(cfg); err != nil {
			a.showError("Saving proxy settings failed", err)
			return false
		}
		logger.Info(logger.CategoryUI, "Proxy settings saved")
		a.refresh()
		return true
	}

	saveButton := widget.NewButton("Save", func() {
		cfg, err := form.config()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if save(cfg) {
			w.Close()
		}
	})
	saveButton.Importance = widget.HighImportance

	// Closing the window keeps edits, like Save
	w.SetCloseIntercept(func() {
		cfg, changed, err := form.pending(saved)
		switch {
		case err != nil:
			dialog.ShowConfirm("Discard proxy settings?",
				fmt.Sprintf("The settings are not valid (%v).\nClose without saving?", err),
				func(discard bool) {
					if discard {
						w.Close()
					}
				}, w)
			return
		case changed && !save(cfg):
			return
		}
		w.Close()
	})

	buttons := container.NewHBox(layout.NewSpacer(), testButton, saveButton)
	w.SetContent(container.NewBorder(nil, container.NewVBox(result, buttons), nil, nil,
		container.NewPadded(form.content())))
	w.Show()
}
