package tools

import (
	"context"
	"net/http"
	"time"

	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/config"
	"github.com/dgnsrekt/web_agent/internal/webcam"
)

// Deps carries the shared resources tool handlers operate through. Handlers
// never hold raw resource state; they only call manager operations.
type Deps struct {
	Pool      *browser.Pool
	Webcam    *webcam.Registry
	Artifacts *artifact.Store
	Config    *config.Config
	HTTP      *http.Client
}

// NewToolRegistry builds the full tool registry for the server.
func NewToolRegistry(deps *Deps) *Registry {
	if deps.HTTP == nil {
		deps.HTTP = &http.Client{}
	}
	r := NewRegistry()
	registerPageTools(r, deps)
	registerFormTools(r, deps)
	registerWebcamTools(r, deps)
	registerCaptionTool(r, deps)
	return r
}

// resolveKey turns optional engine/headless parameters into a pool key,
// applying configured defaults.
func (d *Deps) resolveKey(engine string, headless *bool) (browser.Key, error) {
	if engine == "" {
		engine = d.Config.DefaultEngine
	}
	eng, err := browser.ParseEngine(engine)
	if err != nil {
		return browser.Key{}, err
	}
	h := d.Config.DefaultHeadless
	if headless != nil {
		h = *headless
	}
	return browser.Key{Engine: eng, Headless: h}, nil
}

func (d *Deps) navigateTimeout(timeoutMS int) time.Duration {
	if timeoutMS > 0 {
		return time.Duration(timeoutMS) * time.Millisecond
	}
	return time.Duration(d.Config.NavigateTimeoutMS) * time.Millisecond
}

func (d *Deps) evaluateTimeout(timeoutMS int) time.Duration {
	if timeoutMS > 0 {
		return time.Duration(timeoutMS) * time.Millisecond
	}
	return time.Duration(d.Config.EvaluateTimeoutMS) * time.Millisecond
}

// withSession runs fn inside the page-tool micro-protocol: acquire the
// pooled handle, open an isolated per-call session, and always close the
// session before returning so no state leaks across calls.
func (d *Deps) withSession(ctx context.Context, engine string, headless *bool, fn func(ctx context.Context, sess browser.Session) (Result, error)) (Result, error) {
	key, err := d.resolveKey(engine, headless)
	if err != nil {
		return Result{}, err
	}
	handle, err := d.Pool.Acquire(ctx, key)
	if err != nil {
		return Result{}, err
	}
	sess, err := handle.NewSession(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = sess.Close(ctx) }()
	return fn(ctx, sess)
}

func (d *Deps) defaultDevice(device string) string {
	if device == "" {
		return d.Config.DefaultDevice
	}
	return device
}
