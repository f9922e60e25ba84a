// Package resources handles embedded resources for the application
package resources

import (
	"embed"

	"fyne.io/fyne/v2"

	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
)

//go:embed icons
var embeddedFiles embed.FS

const iconPath = "icons/mediascribe.png"

// LoadAppIcon loads the application icon as a Fyne resource
func LoadAppIcon() fyne.Resource {
	iconData, err := embeddedFiles.ReadFile(iconPath)
	if err != nil {
		logger.Warning(logger.CategoryUI, "Could not load app icon: %v", err)
		return nil
	}
	return fyne.NewStaticResource("mediascribe.png", iconData)
}
