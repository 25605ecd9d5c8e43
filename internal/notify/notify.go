// Package notify shows desktop notifications.
package notify

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

// AppName is the title used for every notification.
const AppName = "warpvoice"

var send = beeep.Notify

func init() {
	beeep.AppName = AppName
}

// Notifier returns a func that shows a desktop notification, or does nothing
// when disabled. Failures are logged at debug level on logger and dropped.
func Notifier(enabled bool, logger *slog.Logger) func(title, message string) {
	if !enabled {
		return func(string, string) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(title, message string) {
		if err := send(title, message, ""); err != nil {
			logger.Debug("notification failed", "title", title, "error", err)
		}
	}
}
