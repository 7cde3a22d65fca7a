package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/events"
	"github.com/dgnsrekt/web_agent/internal/fault"
	"github.com/dgnsrekt/web_agent/internal/tools"
	"github.com/dgnsrekt/web_agent/internal/webcam"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Deps carries the managers the HTTP surface exposes. Tool invocations go
// through the dispatcher; the remaining endpoints are read-mostly views onto
// the same managers.
type Deps struct {
	Tools     *tools.Registry
	Pool      *browser.Pool
	Webcam    *webcam.Registry
	Artifacts *artifact.Store
	Broker    *events.Broker

	// DefaultDevice is substituted when a webcam endpoint gets no device.
	DefaultDevice string
}

func NewServer(deps *Deps) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Web Agent Controller API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Get("/api/v1/events", events.WSHandler(deps.Broker))

	registerToolHandlers(api, deps)
	registerWebcamHandlers(api, deps)
	registerArtifactHandlers(api, deps)
	registerHealthHandlers(api, deps)

	return router
}

// mapErr translates fault kinds into HTTP status errors. Only the resource
// endpoints use it; tool invocations always answer 200 with an envelope.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *fault.CodedError
	if errors.As(err, &coded) {
		switch coded.Kind {
		case fault.KindInvalidParameter:
			return huma.Error400BadRequest(coded.Message)
		case fault.KindNotFound, fault.KindUnknownTool:
			return huma.Error404NotFound(coded.Message)
		case fault.KindTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case fault.KindResourceUnavailable:
			return huma.Error503ServiceUnavailable(coded.Message)
		case fault.KindLaunchFailure, fault.KindCaptureFailure:
			return huma.Error502BadGateway(coded.Message)
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
