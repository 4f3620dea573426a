package logging

import (
	"log/slog"
	"os"
)

// Setup installs the process-wide JSON logger. cmd/server swaps the default
// for a multi-handler once the database sink is ready.
func Setup() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))
}
