package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/web_agent/internal/webcam"
)

func registerWebcamHandlers(api huma.API, deps *Deps) {
	type statusInput struct {
		Device string `query:"device" doc:"Device path (empty = default device)"`
	}
	type statusOutput struct {
		Body webcam.StatusInfo
	}
	huma.Register(api, huma.Operation{
		OperationID: "webcam-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/webcam/status",
		Summary:     "Report stream status for one virtual webcam device",
		Tags:        []string{"Webcam"},
	}, func(ctx context.Context, input *statusInput) (*statusOutput, error) {
		device := input.Device
		if device == "" {
			device = deps.DefaultDevice
		}
		out := &statusOutput{}
		out.Body = deps.Webcam.Status(device)
		return out, nil
	})

	type devicesOutput struct {
		Body struct {
			Devices []string `json:"devices"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "webcam-list-devices",
		Method:      http.MethodGet,
		Path:        "/api/v1/webcam/devices",
		Summary:     "List video devices visible to the host",
		Tags:        []string{"Webcam"},
	}, func(ctx context.Context, input *struct{}) (*devicesOutput, error) {
		out := &devicesOutput{}
		out.Body.Devices = deps.Webcam.ListDevices(ctx)
		return out, nil
	})

	type streamsOutput struct {
		Body struct {
			Active []string `json:"active"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "webcam-list-streams",
		Method:      http.MethodGet,
		Path:        "/api/v1/webcam/streams",
		Summary:     "List devices with an active encoder stream",
		Tags:        []string{"Webcam"},
	}, func(ctx context.Context, input *struct{}) (*streamsOutput, error) {
		out := &streamsOutput{}
		out.Body.Active = deps.Webcam.Active()
		return out, nil
	})
}
