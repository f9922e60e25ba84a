package ui

import (
	"fmt"
	"strings"

	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

// maxOverwriteNames is how many existing results the overwrite prompt lists
const maxOverwriteNames = 10

// overwritePrompt lists existing results before a batch replaces them
func overwritePrompt(names []string) string {
	shown := names
	if len(shown) > maxOverwriteNames {
		shown = shown[:maxOverwriteNames]
	}

	var b strings.Builder
	b.WriteString("These files already have results and will be overwritten:\n\n")
	b.WriteString(strings.Join(shown, "\n"))
	if extra := len(names) - len(shown); extra > 0 {
		fmt.Fprintf(&b, "\n... and %d more", extra)
	}
	b.WriteString("\n\nContinue?")
	return b.String()
}

// eventText is the status label for a batch event
func eventText(e transcription.Event) string {
	switch e.Kind {
	case transcription.EventFileStart:
		return fmt.Sprintf("[%d/%d] Processing %s", e.Index, e.Total, e.File)
	case transcription.EventFileDone:
		return fmt.Sprintf("[%d/%d] Done %s", e.Index, e.Total, e.File)
	default:
		return fmt.Sprintf("[%d/%d] %s %d%%", e.Index, e.Total, e.File, percent(e.Overall))
	}
}

// downloadText is the status label for model download progress
func downloadText(name string, p models.Progress) string {
	return fmt.Sprintf("Downloading %s: %d%% | %.1f MB | %.1f MB/s", name, percent(p.Fraction), p.DownloadedMB, p.SpeedMBs)
}

// modelLabel is the card text of one catalog model
func modelLabel(st models.Status) string {
	state := "Missing"
	if st.Ready {
		state = "Ready"
	}
	return fmt.Sprintf("%s (%s) - %s", st.Name, st.Description, state)
}

func percent(fraction float64) int {
	switch {
	case fraction <= 0:
		return 0
	case fraction >= 1:
		return 100
	}
	return int(fraction * 100)
}
