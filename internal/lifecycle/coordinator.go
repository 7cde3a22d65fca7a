package lifecycle

import (
	"context"
	"log/slog"

	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/tools"
	"github.com/dgnsrekt/web_agent/internal/webcam"
)

// Coordinator drains every managed resource in dependency order during
// shutdown: first stop accepting tool calls, then release engines and
// encoder streams. Each step is best-effort so one stuck resource cannot
// block the rest of teardown.
type Coordinator struct {
	Tools  *tools.Registry
	Pool   *browser.Pool
	Webcam *webcam.Registry
}

// Shutdown runs the full drain. It returns the pool release error, if any,
// after all steps complete; stream teardown failures are only logged.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	slog.Info("shutdown: draining tool dispatch")
	c.Tools.Drain()

	slog.Info("shutdown: stopping webcam streams", "active", len(c.Webcam.Active()))
	c.Webcam.StopAll(ctx)

	slog.Info("shutdown: releasing browser engines", "keys", len(c.Pool.Keys()))
	err := c.Pool.ReleaseAll(ctx)
	if err != nil {
		slog.Warn("shutdown: browser release incomplete", "error", err)
	}

	slog.Info("shutdown: drain complete")
	return err
}
