package serviceutil

import (
	"log/slog"
	"os"
)

// Fatal logs `message` with the error attached and exits the process.
func Fatal(message string, err error) {
	if err != nil {
		slog.Error(message, "err", err.Error())
	} else {
		slog.Error(message)
	}
	os.Exit(1)
}
