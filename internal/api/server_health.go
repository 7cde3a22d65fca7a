package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func registerHealthHandlers(api huma.API, deps *Deps) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type deepHealthOutput struct {
		Body struct {
			Status        string   `json:"status"`
			Engines       []string `json:"engines"`
			ActiveStreams []string `json:"active_streams"`
			EventClients  int      `json:"event_clients"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "deep-health", Method: http.MethodGet, Path: "/api/v1/health/deep", Summary: "Deep health check covering pooled resources", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*deepHealthOutput, error) {
			out := &deepHealthOutput{}
			out.Body.Status = "ok"
			out.Body.Engines = []string{}
			for _, key := range deps.Pool.Keys() {
				out.Body.Engines = append(out.Body.Engines, key.String())
			}
			out.Body.ActiveStreams = deps.Webcam.Active()
			if out.Body.ActiveStreams == nil {
				out.Body.ActiveStreams = []string{}
			}
			out.Body.EventClients = deps.Broker.ClientCount()
			return out, nil
		})
}
