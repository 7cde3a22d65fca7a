package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/fault"
)

type startStreamParams struct {
	Device string `json:"device,omitempty" doc:"Virtual device path (default from config)"`
	Mode   string `json:"mode" enum:"image,video,pattern,color,screen,text" doc:"Stream source mode"`
	Source string `json:"source,omitempty" doc:"Mode-specific source: file path, pattern name, color, display, or text"`
	Loop   bool   `json:"loop,omitempty" doc:"Loop file-based sources"`
}

type deviceParams struct {
	Device string `json:"device,omitempty" doc:"Virtual device path (default from config)"`
}

func registerWebcamTools(r *Registry, deps *Deps) {
	register(r, "webcam_start_stream", "Start feeding a virtual webcam device, replacing any active stream",
		func(ctx context.Context, p startStreamParams) (Result, error) {
			info, err := deps.Webcam.StartStream(ctx, deps.defaultDevice(p.Device), p.Mode, p.Source, p.Loop)
			if err != nil {
				return Result{}, err
			}
			return textResult("streaming %s to %s (source: %s, pid: %d)",
				info.Mode, info.Device, info.Source, info.PID), nil
		})

	register(r, "webcam_stop_stream", "Stop the active stream on a virtual webcam device",
		func(ctx context.Context, p deviceParams) (Result, error) {
			device := deps.defaultDevice(p.Device)
			deps.Webcam.StopStream(ctx, device)
			return textResult("stream stopped on %s", device), nil
		})

	register(r, "webcam_status", "Report device presence and stream bookkeeping",
		func(ctx context.Context, p deviceParams) (Result, error) {
			status := deps.Webcam.Status(deps.defaultDevice(p.Device))
			encoded, err := json.Marshal(status)
			if err != nil {
				return Result{}, fault.New(fault.KindInternal, "encode status", err)
			}
			return textResult("%s", encoded), nil
		})

	register(r, "webcam_capture_photo", "Grab one still frame from a device, stored as an artifact and returned inline",
		func(ctx context.Context, p deviceParams) (Result, error) {
			device := deps.defaultDevice(p.Device)
			capture, err := deps.Webcam.CapturePhoto(ctx, device)
			if err != nil {
				return Result{}, err
			}

			meta := artifact.NewMeta(artifact.KindPhoto, "jpg")
			meta.Device = device
			if err := deps.Artifacts.Save(meta, capture.Data); err != nil {
				return Result{}, fmt.Errorf("store photo: %w", err)
			}

			text := fmt.Sprintf("photo captured: id=%s path=%s", meta.ID, capture.Path)
			return imageResult(text, capture.Data, "image/jpeg"), nil
		})

	register(r, "webcam_list_devices", "Enumerate virtual video devices",
		func(ctx context.Context, p struct{}) (Result, error) {
			devices := deps.Webcam.ListDevices(ctx)
			if len(devices) == 0 {
				return textResult("no video devices found"), nil
			}
			encoded, err := json.Marshal(devices)
			if err != nil {
				return Result{}, fault.New(fault.KindInternal, "encode device list", err)
			}
			return textResult("%s", encoded), nil
		})
}
