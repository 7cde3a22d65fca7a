package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/config"
	"github.com/dgnsrekt/web_agent/internal/events"
	"github.com/dgnsrekt/web_agent/internal/tools"
	"github.com/dgnsrekt/web_agent/internal/webcam"
)

type nilLauncher struct{}

func (nilLauncher) Launch(ctx context.Context, key browser.Key) (browser.Instance, error) {
	return nil, context.Canceled
}

type nilProcess struct{ done chan struct{} }

func (p *nilProcess) Done() <-chan struct{} { return p.done }
func (p *nilProcess) ExitErr() error        { return nil }
func (p *nilProcess) Terminate() error      { close(p.done); return nil }
func (p *nilProcess) Kill() error           { return nil }
func (p *nilProcess) PID() int              { return 1 }

type nilRunner struct{}

func (nilRunner) Start(ctx context.Context, name string, args ...string) (webcam.Process, error) {
	return &nilProcess{done: make(chan struct{})}, nil
}
func (nilRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return []byte("Dummy video device (0x0000):\n\t/dev/video20\n"), nil
}
func (nilRunner) DeviceExists(device string) bool { return device == "/dev/video20" }

func newTestServer(t *testing.T) (http.Handler, *artifact.Store) {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("artifact.NewStore() failed: %v", err)
	}
	broker := events.NewBroker()
	pool := browser.NewPool(nilLauncher{}, broker)
	registry := webcam.NewRegistry(nilRunner{}, broker, webcam.Options{
		AssetDir:   t.TempDir(),
		SpawnGrace: time.Millisecond,
		StopGrace:  time.Millisecond,
	})
	cfg := &config.Config{
		DefaultEngine:     "chromium",
		DefaultHeadless:   true,
		NavigateTimeoutMS: 1000,
		EvaluateTimeoutMS: 1000,
		DefaultDevice:     "/dev/video20",
	}
	toolReg := tools.NewToolRegistry(&tools.Deps{
		Pool:      pool,
		Webcam:    registry,
		Artifacts: store,
		Config:    cfg,
	})
	srv := NewServer(&Deps{
		Tools:         toolReg,
		Pool:          pool,
		Webcam:        registry,
		Artifacts:     store,
		Broker:        broker,
		DefaultDevice: cfg.DefaultDevice,
	})
	return srv, store
}

func get(t *testing.T, srv http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func post(t *testing.T, srv http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestServerRegistersAllEndpointFamilies(t *testing.T) {
	// NewServer registers every handler family against one shared schema
	// registry; a name collision between families panics at construction.
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/openapi.json")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /openapi.json = %d; want 200", rec.Code)
	}
	spec := rec.Body.String()
	for _, opID := range []string{
		"list-tools", "invoke-tool", "call-tool",
		"list-artifacts", "get-artifact-image",
		"webcam-status", "webcam-list-devices",
		"health", "deep-health",
	} {
		if !strings.Contains(spec, opID) {
			t.Errorf("openapi spec missing operation %s", opID)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d; want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s; want status ok", rec.Body.String())
	}
}

func TestListToolsIncludesSchemas(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/api/v1/tools")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/tools = %d; want 200", rec.Code)
	}
	var body struct {
		Tools []struct {
			Name   string          `json:"name"`
			Schema json.RawMessage `json:"schema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(body.Tools) == 0 {
		t.Fatal("tool list is empty")
	}
	for _, tool := range body.Tools {
		if len(tool.Schema) == 0 || string(tool.Schema) == "null" {
			t.Errorf("tool %s listed without a schema", tool.Name)
		}
	}
}

func TestInvokeUnknownToolReturnsEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := post(t, srv, "/api/v1/tools/no_such_tool", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST tool = %d; tool errors must still answer 200", rec.Code)
	}
	var result struct {
		IsError   bool   `json:"isError"`
		ErrorKind string `json:"errorKind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if !result.IsError || result.ErrorKind != "UNKNOWN_TOOL" {
		t.Errorf("envelope = %+v; want UNKNOWN_TOOL error", result)
	}
}

func TestCallEndpointDispatchesByBodyName(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := post(t, srv, "/api/v1/tools/call", `{"name":"webcam_list_devices","arguments":{}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/tools/call = %d; want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/dev/video20") {
		t.Errorf("body = %s; want enumerated device", rec.Body.String())
	}
}

func TestWebcamStatusUsesDefaultDevice(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/api/v1/webcam/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d; want 200", rec.Code)
	}
	var status webcam.StatusInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Device != "/dev/video20" || !status.Exists {
		t.Errorf("status = %+v; want default device, exists", status)
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	srv, store := newTestServer(t)
	meta := artifact.NewMeta(artifact.KindScreenshot, "png")
	if err := store.Save(meta, []byte("png-bytes")); err != nil {
		t.Fatalf("store.Save() failed: %v", err)
	}

	rec := get(t, srv, "/api/v1/artifacts")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), meta.ID) {
		t.Fatalf("GET artifacts = %d body %s; want listing with %s", rec.Code, rec.Body.String(), meta.ID)
	}

	rec = get(t, srv, "/api/v1/artifacts/"+meta.ID+"/image")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET image = %d; want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q; want image/png", got)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("image body = %q; want raw bytes", rec.Body.String())
	}
}

func TestArtifactNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := get(t, srv, "/api/v1/artifacts/00000000-0000-0000-0000-000000000000/metadata")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET missing artifact = %d; want 404", rec.Code)
	}
}
