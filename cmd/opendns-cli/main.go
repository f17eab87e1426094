package main

import (
	"context"
	"log/slog"
	"opendns-stats/cmd/opendns-cli/commands"
	"opendns-stats/internal/components/telemetry"
	"opendns-stats/lib/osutil"
	"opendns-stats/lib/serviceutil"
	"time"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())

	otel, err := telemetry.SetupFromEnv(ctx, "opendns-cli")
	if err != nil {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	err = commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	if err := otel.Shutdown(shutdownCtx); err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	stop()

	if err != nil {
		serviceutil.Fatal("opendns-cli failed", err)
	}
}
