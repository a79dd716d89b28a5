// Package ui provides terminal styling and logger setup for deep-notes.
package ui

import (
	"os"

	"github.com/charmbracelet/log"
)

// InitLogger configures the shared logger: stderr, no timestamps, and
// level/key colors matching the result palette.
func InitLogger() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	log.SetReportCaller(false)
	log.SetReportTimestamp(false)

	styles := log.DefaultStyles()
	styles.Levels[log.WarnLevel] = styles.Levels[log.WarnLevel].Foreground(ColorWarning)
	styles.Levels[log.ErrorLevel] = styles.Levels[log.ErrorLevel].Foreground(ColorError)
	styles.Key = styles.Key.Foreground(ColorMuted)
	log.SetStyles(styles)
}

// SetDebug toggles debug logging.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}
