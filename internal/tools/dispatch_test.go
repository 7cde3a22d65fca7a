package tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/config"
	"github.com/dgnsrekt/web_agent/internal/events"
	"github.com/dgnsrekt/web_agent/internal/fault"
	"github.com/dgnsrekt/web_agent/internal/webcam"
)

// --- browser fakes ---

type stubSession struct {
	mu          sync.Mutex
	closed      bool
	navigateErr error
}

func (s *stubSession) Navigate(ctx context.Context, url string, opts browser.NavigateOptions) (browser.PageInfo, error) {
	if s.navigateErr != nil {
		return browser.PageInfo{}, s.navigateErr
	}
	return browser.PageInfo{URL: url, Title: "Example"}, nil
}
func (s *stubSession) Screenshot(ctx context.Context, opts browser.ScreenshotOptions) ([]byte, error) {
	return []byte("png-bytes"), nil
}
func (s *stubSession) Evaluate(ctx context.Context, script string, timeout time.Duration) (any, error) {
	return map[string]any{"ok": true}, nil
}
func (s *stubSession) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	return []string{"hello"}, nil
}
func (s *stubSession) Attributes(ctx context.Context, selector, attribute string) ([]string, error) {
	return []string{"https://example.com/a"}, nil
}
func (s *stubSession) Count(ctx context.Context, selector string) (int, error) {
	if strings.HasPrefix(selector, "[name=") {
		return 1, nil
	}
	return 0, nil
}
func (s *stubSession) Fill(ctx context.Context, selector, value string) error { return nil }
func (s *stubSession) Click(ctx context.Context, selector string) error       { return nil }
func (s *stubSession) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubSession) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stubInstance struct {
	mu          sync.Mutex
	sessions    []*stubSession
	navigateErr error
}

func (i *stubInstance) NewSession(ctx context.Context) (browser.Session, error) {
	s := &stubSession{navigateErr: i.navigateErr}
	i.mu.Lock()
	i.sessions = append(i.sessions, s)
	i.mu.Unlock()
	return s, nil
}
func (i *stubInstance) IsConnected() bool               { return true }
func (i *stubInstance) Close(ctx context.Context) error { return nil }

type stubLauncher struct {
	launches    atomic.Int64
	delay       time.Duration
	navigateErr error

	mu        sync.Mutex
	instances []*stubInstance
}

func (l *stubLauncher) Launch(ctx context.Context, key browser.Key) (browser.Instance, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.launches.Add(1)
	inst := &stubInstance{navigateErr: l.navigateErr}
	l.mu.Lock()
	l.instances = append(l.instances, inst)
	l.mu.Unlock()
	return inst, nil
}

func (l *stubLauncher) allSessions() []*stubSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*stubSession
	for _, inst := range l.instances {
		inst.mu.Lock()
		out = append(out, inst.sessions...)
		inst.mu.Unlock()
	}
	return out
}

// --- webcam fake runner ---

type noopProcess struct{ done chan struct{} }

func (p *noopProcess) Done() <-chan struct{} { return p.done }
func (p *noopProcess) ExitErr() error        { return nil }
func (p *noopProcess) Terminate() error      { close(p.done); return nil }
func (p *noopProcess) Kill() error           { return nil }
func (p *noopProcess) PID() int              { return 4242 }

type noopRunner struct{ started atomic.Int64 }

func (r *noopRunner) Start(ctx context.Context, name string, args ...string) (webcam.Process, error) {
	r.started.Add(1)
	return &noopProcess{done: make(chan struct{})}, nil
}
func (r *noopRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return nil, nil
}
func (r *noopRunner) DeviceExists(device string) bool { return false }

// --- harness ---

type harness struct {
	registry *Registry
	launcher *stubLauncher
	runner   *noopRunner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	launcher := &stubLauncher{}
	runner := &noopRunner{}
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact.NewStore() failed: %v", err)
	}
	broker := events.NewBroker()
	cfg := &config.Config{
		DefaultEngine:     "chromium",
		DefaultHeadless:   true,
		NavigateTimeoutMS: 5000,
		EvaluateTimeoutMS: 5000,
		DefaultDevice:     "/dev/video20",
	}
	deps := &Deps{
		Pool:      browser.NewPool(launcher, broker),
		Webcam:    webcam.NewRegistry(runner, broker, webcam.Options{AssetDir: t.TempDir(), SpawnGrace: 5 * time.Millisecond, StopGrace: 20 * time.Millisecond}),
		Artifacts: store,
		Config:    cfg,
	}
	return &harness{registry: NewToolRegistry(deps), launcher: launcher, runner: runner}
}

func (h *harness) dispatch(t *testing.T, tool, args string) Result {
	t.Helper()
	return h.registry.Dispatch(context.Background(), tool, json.RawMessage(args))
}

// --- tests ---

func TestDispatchUnknownTool(t *testing.T) {
	h := newHarness(t)
	res := h.dispatch(t, "open_portal", `{}`)
	if !res.IsError || res.ErrorKind != fault.KindUnknownTool {
		t.Fatalf("result = %+v; want UNKNOWN_TOOL error envelope", res)
	}
}

func TestDispatchReportsAllViolatedFields(t *testing.T) {
	h := newHarness(t)
	// url missing entirely, engine outside the enum.
	res := h.dispatch(t, "navigate_to_page", `{"engine":"netscape"}`)
	if !res.IsError || res.ErrorKind != fault.KindInvalidParameter {
		t.Fatalf("result = %+v; want INVALID_PARAMETER", res)
	}
	msg := res.Content[0].Text
	if !strings.Contains(msg, "url") {
		t.Errorf("message should name the missing url field: %s", msg)
	}
	if !strings.Contains(msg, "engine") {
		t.Errorf("message should name the invalid engine field: %s", msg)
	}
}

func TestValidationPrecedesResourceAcquisition(t *testing.T) {
	h := newHarness(t)

	res := h.dispatch(t, "navigate_to_page", `{"engine":"netscape"}`)
	if !res.IsError {
		t.Fatal("expected an error envelope")
	}
	if got := h.launcher.launches.Load(); got != 0 {
		t.Errorf("engine launches = %d; validation must precede acquisition", got)
	}

	res = h.dispatch(t, "webcam_start_stream", `{"mode":"hologram"}`)
	if !res.IsError || res.ErrorKind != fault.KindInvalidParameter {
		t.Fatalf("result = %+v; want INVALID_PARAMETER", res)
	}
	if got := h.runner.started.Load(); got != 0 {
		t.Errorf("encoders spawned = %d; validation must precede spawn", got)
	}
}

func TestTemperatureOutOfRange(t *testing.T) {
	h := newHarness(t)
	res := h.dispatch(t, "caption_image", `{"image_path":"/tmp/x.jpg","temperature":5.0}`)
	if !res.IsError || res.ErrorKind != fault.KindInvalidParameter {
		t.Fatalf("result = %+v; want INVALID_PARAMETER", res)
	}
	if !strings.Contains(res.Content[0].Text, "temperature") {
		t.Errorf("message should name temperature: %s", res.Content[0].Text)
	}
	if got := h.launcher.launches.Load(); got != 0 {
		t.Errorf("engine launches = %d; want 0", got)
	}
}

func TestConcurrentNavigatesShareOneEngine(t *testing.T) {
	h := newHarness(t)
	h.launcher.delay = 20 * time.Millisecond

	var wg sync.WaitGroup
	results := make([]Result, 2)
	urls := []string{`{"url":"https://a.example"}`, `{"url":"https://b.example"}`}
	for i := range urls {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.dispatch(t, "navigate_to_page", urls[i])
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if res.IsError {
			t.Errorf("call %d failed: %+v", i, res)
		}
	}
	if got := h.launcher.launches.Load(); got != 1 {
		t.Fatalf("engine launches = %d; want exactly 1", got)
	}
}

func TestNavigateTimeoutClosesSession(t *testing.T) {
	h := newHarness(t)
	h.launcher.navigateErr = fault.Newf(fault.KindTimeout, "navigate timed out")

	res := h.dispatch(t, "navigate_to_page", `{"url":"https://slow.example"}`)
	if !res.IsError || res.ErrorKind != fault.KindTimeout {
		t.Fatalf("result = %+v; want TIMEOUT envelope", res)
	}
	sessions := h.launcher.allSessions()
	if len(sessions) != 1 || !sessions[0].wasClosed() {
		t.Error("the per-call session must be closed before the error returns")
	}
}

func TestWebcamStopNeverStartedIsSuccess(t *testing.T) {
	h := newHarness(t)
	res := h.dispatch(t, "webcam_stop_stream", `{"device":"/dev/video42"}`)
	if res.IsError {
		t.Fatalf("result = %+v; stop on an idle device must succeed", res)
	}
}

func TestScreenshotStoresArtifactAndReturnsImage(t *testing.T) {
	h := newHarness(t)
	res := h.dispatch(t, "take_screenshot", `{"url":"https://example.com"}`)
	if res.IsError {
		t.Fatalf("result = %+v; want success", res)
	}
	var image *Content
	for i := range res.Content {
		if res.Content[i].Type == "image" {
			image = &res.Content[i]
		}
	}
	if image == nil || image.Data == "" || image.MimeType != "image/png" {
		t.Fatalf("result missing inline image content: %+v", res)
	}
}

func TestCaptionWithoutServiceIsResourceUnavailable(t *testing.T) {
	h := newHarness(t)
	res := h.dispatch(t, "caption_image", `{"image_path":"/tmp/x.jpg"}`)
	if !res.IsError || res.ErrorKind != fault.KindResourceUnavailable {
		t.Fatalf("result = %+v; want RESOURCE_UNAVAILABLE", res)
	}
}

func TestDrainRejectsNewDispatches(t *testing.T) {
	h := newHarness(t)
	h.registry.Drain()
	res := h.dispatch(t, "navigate_to_page", `{"url":"https://example.com"}`)
	if !res.IsError || res.ErrorKind != fault.KindResourceUnavailable {
		t.Fatalf("result = %+v; want RESOURCE_UNAVAILABLE while draining", res)
	}
	if got := h.launcher.launches.Load(); got != 0 {
		t.Errorf("engine launches = %d; want 0 while draining", got)
	}
}

func TestDescriptorsExposeSchemas(t *testing.T) {
	h := newHarness(t)
	descriptors := h.registry.Descriptors()
	names := make(map[string]bool, len(descriptors))
	for _, d := range descriptors {
		if d.Schema == nil {
			t.Errorf("tool %s has no schema", d.Name)
		}
		names[d.Name] = true
	}
	for _, want := range []string{
		"navigate_to_page", "take_screenshot", "extract_content", "fill_form",
		"click_element", "evaluate_script", "caption_image",
		"webcam_start_stream", "webcam_stop_stream", "webcam_status",
		"webcam_capture_photo", "webcam_list_devices",
	} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}
