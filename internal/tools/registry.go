package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/web_agent/internal/fault"
)

// Descriptor declares one callable tool and its parameter schema.
type Descriptor struct {
	Name    string       `json:"name"`
	Summary string       `json:"summary"`
	Schema  *huma.Schema `json:"schema"`

	handler func(ctx context.Context, raw json.RawMessage) (Result, error)
}

// Registry is the single dispatch entry point. It validates parameters
// against each tool's declared schema before any resource is touched.
type Registry struct {
	schemas  huma.Registry
	tools    map[string]*Descriptor
	draining atomic.Bool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		schemas: huma.NewMapRegistry("#/components/schemas/", huma.DefaultSchemaNamer),
		tools:   make(map[string]*Descriptor),
	}
}

// register adds a tool whose parameters are described by the struct P.
// Validation failures report every violated field, not just the first.
func register[P any](r *Registry, name, summary string, fn func(ctx context.Context, params P) (Result, error)) {
	typ := reflect.TypeOf(*new(P))
	schema := r.schemas.Schema(typ, true, name+"Params")

	r.tools[name] = &Descriptor{
		Name:    name,
		Summary: summary,
		Schema:  schema,
		handler: func(ctx context.Context, raw json.RawMessage) (Result, error) {
			if len(raw) == 0 {
				raw = json.RawMessage("{}")
			}

			var generic any
			if err := json.Unmarshal(raw, &generic); err != nil {
				return Result{}, fault.New(fault.KindInvalidParameter, "arguments are not valid JSON", err)
			}

			res := &huma.ValidateResult{}
			pb := huma.NewPathBuffer([]byte(""), 0)
			huma.Validate(r.schemas, schema, pb, huma.ModeWriteToServer, generic, res)
			if len(res.Errors) > 0 {
				return Result{}, fault.Newf(fault.KindInvalidParameter,
					"invalid parameters: %s", joinValidationErrors(res.Errors))
			}

			var params P
			if err := json.Unmarshal(raw, &params); err != nil {
				return Result{}, fault.New(fault.KindInvalidParameter, "decode arguments", err)
			}
			return fn(ctx, params)
		},
	}
}

func joinValidationErrors(errs []error) string {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		var detail *huma.ErrorDetail
		if errors.As(err, &detail) && detail.Location != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", detail.Location, detail.Message))
			continue
		}
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Dispatch validates and executes one named tool invocation, normalizing
// every outcome into a single envelope.
func (r *Registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (result Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = errorResult(name, fault.Newf(fault.KindInternal, "panic: %v", rec))
		}
	}()

	if r.draining.Load() {
		return errorResult(name, fault.Newf(fault.KindResourceUnavailable, "server is shutting down"))
	}

	d, ok := r.tools[name]
	if !ok {
		return errorResult(name, fault.Newf(fault.KindUnknownTool, "unknown tool %q", name))
	}

	res, err := d.handler(ctx, raw)
	if err != nil {
		return errorResult(name, err)
	}
	return res
}

// Drain makes all subsequent dispatches fail fast; used at shutdown so no
// new external work starts while resources tear down.
func (r *Registry) Drain() {
	if r.draining.CompareAndSwap(false, true) {
		slog.Info("tool registry draining, rejecting new dispatches")
	}
}

// Descriptors lists all registered tools sorted by name.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
