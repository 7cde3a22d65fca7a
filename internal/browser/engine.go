package browser

import (
	"fmt"

	"github.com/dgnsrekt/web_agent/internal/fault"
)

// Engine identifies a browser engine type.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
	EngineWebkit   Engine = "webkit"
)

// ParseEngine validates a raw engine name.
func ParseEngine(raw string) (Engine, error) {
	switch Engine(raw) {
	case EngineChromium, EngineFirefox, EngineWebkit:
		return Engine(raw), nil
	}
	return "", fault.Newf(fault.KindInvalidParameter,
		"unknown engine %q (expected chromium, firefox, or webkit)", raw)
}

// Key identifies one pooled browser configuration. It is the pool's map key;
// instances with different keys are never interchangeable.
type Key struct {
	Engine   Engine
	Headless bool
}

func (k Key) String() string {
	mode := "headed"
	if k.Headless {
		mode = "headless"
	}
	return fmt.Sprintf("%s/%s", k.Engine, mode)
}
