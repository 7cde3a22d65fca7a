package webcam

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/web_agent/internal/events"
	"github.com/dgnsrekt/web_agent/internal/fault"
)

// StreamInfo describes an active stream on one device.
type StreamInfo struct {
	Device    string    `json:"device"`
	Mode      Mode      `json:"mode"`
	Source    string    `json:"source"`
	Loop      bool      `json:"loop"`
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
}

// StatusInfo reports device status. Exists is an OS-level fact; Streaming
// and Mode reflect registry bookkeeping only (best-effort between a crash
// and its reap notification).
type StatusInfo struct {
	Device         string `json:"device"`
	Exists         bool   `json:"exists"`
	Streaming      bool   `json:"streaming"`
	Mode           Mode   `json:"mode,omitempty"`
	ProcessRunning bool   `json:"process_running"`
}

// CaptureResult holds one still frame grabbed from a device.
type CaptureResult struct {
	Path string
	Data []byte
}

// Options configure registry timing and locations.
type Options struct {
	AssetDir       string
	SpawnGrace     time.Duration
	StopGrace      time.Duration
	CaptureTimeout time.Duration
}

// Registry enforces the one-producer-per-device invariant for encoder
// processes. It exclusively owns every process it spawns.
type Registry struct {
	runner Runner
	broker *events.Broker
	assets assets
	opts   Options

	mu      sync.Mutex
	devices map[string]*deviceState
}

type deviceState struct {
	mu     sync.Mutex
	active *stream
}

type stream struct {
	proc      Process
	mode      Mode
	source    string
	loop      bool
	startedAt time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(runner Runner, broker *events.Broker, opts Options) *Registry {
	if opts.SpawnGrace <= 0 {
		opts.SpawnGrace = time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = 500 * time.Millisecond
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 10 * time.Second
	}
	return &Registry{
		runner:  runner,
		broker:  broker,
		assets:  assets{dir: opts.AssetDir, runner: runner},
		opts:    opts,
		devices: make(map[string]*deviceState),
	}
}

func (r *Registry) device(id string) *deviceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	dev, ok := r.devices[id]
	if !ok {
		dev = &deviceState{}
		r.devices[id] = dev
	}
	return dev
}

// StartStream starts an encoder feeding the device, replacing any existing
// producer first. The existing process is fully terminated before the new
// one spawns; overlapping calls for the same device are serialized.
func (r *Registry) StartStream(ctx context.Context, deviceID, rawMode, source string, loop bool) (StreamInfo, error) {
	mode, err := ParseMode(rawMode)
	if err != nil {
		return StreamInfo{}, err
	}

	dev := r.device(deviceID)
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.active != nil {
		r.stopLocked(deviceID, dev)
		r.broker.Publish(events.FeedStreamStopped, map[string]string{"device": deviceID, "reason": "replaced"})
	}

	resolved, err := r.assets.resolveSource(ctx, mode, source)
	if err != nil {
		if fault.Kind(err) == fault.KindInvalidParameter {
			return StreamInfo{}, err
		}
		return StreamInfo{}, fault.New(fault.KindLaunchFailure, "prepare stream source", err)
	}

	args := encoderArgs(mode, resolved, deviceID, loop)
	proc, err := r.runner.Start(ctx, "ffmpeg", args...)
	if err != nil {
		return StreamInfo{}, fault.New(fault.KindLaunchFailure, "spawn encoder", err)
	}

	// Bounded grace wait. Not a readiness guarantee; it only catches
	// immediate launch failures such as an unwritable device.
	timer := time.NewTimer(r.opts.SpawnGrace)
	defer timer.Stop()
	select {
	case <-proc.Done():
		return StreamInfo{}, fault.New(fault.KindLaunchFailure,
			"encoder exited during startup", proc.ExitErr())
	case <-ctx.Done():
		r.stopProcess(deviceID, proc)
		return StreamInfo{}, fault.New(fault.KindTimeout, "stream start cancelled", ctx.Err())
	case <-timer.C:
	}

	s := &stream{proc: proc, mode: mode, source: resolved, loop: loop, startedAt: time.Now()}
	dev.active = s
	go r.watch(deviceID, dev, s)

	info := StreamInfo{
		Device:    deviceID,
		Mode:      mode,
		Source:    resolved,
		Loop:      loop,
		PID:       proc.PID(),
		StartedAt: s.startedAt,
	}
	slog.Info("webcam stream started", "device", deviceID, "mode", mode, "pid", info.PID)
	r.broker.Publish(events.FeedStreamStarted, info)
	return info, nil
}

// watch clears registry state when the encoder exits on its own.
func (r *Registry) watch(deviceID string, dev *deviceState, s *stream) {
	<-s.proc.Done()

	dev.mu.Lock()
	crashed := dev.active == s
	if crashed {
		dev.active = nil
	}
	dev.mu.Unlock()

	if crashed {
		slog.Warn("webcam encoder exited unexpectedly",
			"device", deviceID, "mode", s.mode, "error", s.proc.ExitErr())
		r.broker.Publish(events.FeedStreamCrashed, map[string]any{
			"device": deviceID,
			"mode":   s.mode,
		})
	}
}

// StopStream stops the device's producer if one is active. Idempotent:
// stopping a device with no stream is a no-op.
func (r *Registry) StopStream(ctx context.Context, deviceID string) {
	dev := r.device(deviceID)
	dev.mu.Lock()
	defer dev.mu.Unlock()

	if dev.active == nil {
		return
	}
	r.stopLocked(deviceID, dev)
	r.broker.Publish(events.FeedStreamStopped, map[string]string{"device": deviceID, "reason": "stopped"})
	slog.Info("webcam stream stopped", "device", deviceID)
}

// stopLocked terminates the active process with bounded grace periods.
// A process that survives SIGKILL's grace window is logged and treated as
// logically stopped. Caller holds dev.mu.
func (r *Registry) stopLocked(deviceID string, dev *deviceState) {
	s := dev.active
	dev.active = nil

	if err := s.proc.Terminate(); err != nil {
		slog.Debug("encoder terminate signal failed", "device", deviceID, "error", err)
	}
	if waitDone(s.proc, r.opts.StopGrace) {
		return
	}
	if err := s.proc.Kill(); err != nil {
		slog.Debug("encoder kill signal failed", "device", deviceID, "error", err)
	}
	if !waitDone(s.proc, r.opts.StopGrace) {
		slog.Warn("encoder did not exit after kill, detaching",
			"device", deviceID, "pid", s.proc.PID())
	}
}

// stopProcess stops a process not yet recorded in the registry (startup
// cancellation path).
func (r *Registry) stopProcess(deviceID string, proc Process) {
	if err := proc.Terminate(); err != nil {
		slog.Debug("encoder terminate signal failed", "device", deviceID, "error", err)
	}
	if waitDone(proc, r.opts.StopGrace) {
		return
	}
	_ = proc.Kill()
	if !waitDone(proc, r.opts.StopGrace) {
		slog.Warn("encoder did not exit after kill, detaching", "device", deviceID)
	}
}

func waitDone(proc Process, grace time.Duration) bool {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-proc.Done():
		return true
	case <-timer.C:
		return false
	}
}

// CapturePhoto grabs one still frame from the device, independent of
// whether this registry is the device's producer.
func (r *Registry) CapturePhoto(ctx context.Context, deviceID string) (CaptureResult, error) {
	if !r.runner.DeviceExists(deviceID) {
		return CaptureResult{}, fault.Newf(fault.KindCaptureFailure, "device %s does not exist", deviceID)
	}
	if err := r.assets.ensureDir(); err != nil {
		return CaptureResult{}, fault.New(fault.KindCaptureFailure, "prepare capture dir", err)
	}

	path := filepath.Join(r.opts.AssetDir, fmt.Sprintf("capture_%d.jpg", time.Now().UnixNano()))
	grabCtx, cancel := context.WithTimeout(ctx, r.opts.CaptureTimeout)
	defer cancel()

	_, err := r.runner.Run(grabCtx, "ffmpeg",
		"-f", "v4l2",
		"-i", deviceID,
		"-frames:v", "1",
		path,
		"-y",
	)
	if err != nil {
		if grabCtx.Err() != nil {
			return CaptureResult{}, fault.New(fault.KindTimeout, "frame grab timed out", err)
		}
		return CaptureResult{}, fault.New(fault.KindCaptureFailure, "frame grab failed", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return CaptureResult{}, fault.New(fault.KindCaptureFailure, "read captured frame", err)
	}
	return CaptureResult{Path: path, Data: data}, nil
}

// Status reports device status. Exists re-checks the OS; Streaming is the
// registry's last known bookkeeping.
func (r *Registry) Status(deviceID string) StatusInfo {
	status := StatusInfo{
		Device: deviceID,
		Exists: r.runner.DeviceExists(deviceID),
	}

	dev := r.device(deviceID)
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.active != nil {
		status.Streaming = true
		status.Mode = dev.active.mode
		status.ProcessRunning = dev.active.proc.ExitErr() == nil
	}
	return status
}

// ListDevices enumerates virtual devices via v4l2-ctl. A missing command or
// empty enumeration yields an empty list, not an error.
func (r *Registry) ListDevices(ctx context.Context) []string {
	out, err := r.runner.Run(ctx, "v4l2-ctl", "--list-devices")
	if err != nil {
		slog.Debug("device enumeration unavailable", "error", err)
		return nil
	}
	var devices []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "/dev/video") {
			devices = append(devices, line)
		}
	}
	return devices
}

// Active returns the devices with a recorded producer.
func (r *Registry) Active() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var active []string
	for _, id := range ids {
		dev := r.device(id)
		dev.mu.Lock()
		if dev.active != nil {
			active = append(active, id)
		}
		dev.mu.Unlock()
	}
	return active
}

// StopAll terminates every registered stream. Best-effort: a stuck process
// is detached and teardown continues.
func (r *Registry) StopAll(ctx context.Context) {
	for _, id := range r.Active() {
		r.StopStream(ctx, id)
	}
}
