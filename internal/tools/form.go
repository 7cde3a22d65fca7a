package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/fault"
)

// selectorStrategy is one way to resolve a form field name to a concrete
// selector. Strategies are tried in priority order with early exit on the
// first one that matches any element.
type selectorStrategy struct {
	name  string
	build func(field string) string
}

var fillStrategies = []selectorStrategy{
	{"css", func(f string) string { return f }},
	{"name", func(f string) string { return fmt.Sprintf("[name=%q]", f) }},
	{"id", func(f string) string { return fmt.Sprintf("[id=%q]", f) }},
	{"placeholder", func(f string) string { return fmt.Sprintf("[placeholder=%q]", f) }},
	{"label", func(f string) string { return fmt.Sprintf("label:has-text(%q) input", f) }},
	{"aria-label", func(f string) string { return fmt.Sprintf("[aria-label=%q]", f) }},
}

// resolveField returns the first strategy selector that matches at least
// one element.
func resolveField(ctx context.Context, sess browser.Session, field string) (string, error) {
	var tried []string
	for _, strat := range fillStrategies {
		sel := strat.build(field)
		n, err := sess.Count(ctx, sel)
		if err != nil {
			// Raw field names are often not valid CSS; skip to the
			// attribute-based strategies.
			tried = append(tried, strat.name)
			continue
		}
		if n > 0 {
			return sel, nil
		}
		tried = append(tried, strat.name)
	}
	return "", fault.Newf(fault.KindInvalidParameter,
		"no element found for field %q (tried strategies: %s)", field, strings.Join(tried, ", "))
}

type formField struct {
	Field string `json:"field" doc:"Field identifier: a CSS selector, name, id, placeholder, or aria-label"`
	Value string `json:"value" doc:"Value to fill in"`
}

type fillFormParams struct {
	URL       string      `json:"url" format:"uri" doc:"Page URL holding the form"`
	Fields    []formField `json:"fields" minItems:"1" doc:"Fields to fill, in order"`
	Submit    string      `json:"submit,omitempty" doc:"Selector to click after filling (optional)"`
	Engine    string      `json:"engine,omitempty" enum:"chromium,firefox,webkit"`
	Headless  *bool       `json:"headless,omitempty"`
	TimeoutMS int         `json:"timeout_ms,omitempty" minimum:"1000" maximum:"300000"`
}

func registerFormTools(r *Registry, deps *Deps) {
	register(r, "fill_form", "Fill form fields on a page and optionally submit",
		func(ctx context.Context, p fillFormParams) (Result, error) {
			return deps.withSession(ctx, p.Engine, p.Headless, func(ctx context.Context, sess browser.Session) (Result, error) {
				if _, err := sess.Navigate(ctx, p.URL, browser.NavigateOptions{
					Timeout: deps.navigateTimeout(p.TimeoutMS),
				}); err != nil {
					return Result{}, err
				}

				filled := make([]string, 0, len(p.Fields))
				for _, f := range p.Fields {
					sel, err := resolveField(ctx, sess, f.Field)
					if err != nil {
						return Result{}, err
					}
					if err := sess.Fill(ctx, sel, f.Value); err != nil {
						return Result{}, fmt.Errorf("fill %q: %w", f.Field, err)
					}
					filled = append(filled, f.Field)
				}

				if p.Submit != "" {
					if err := sess.Click(ctx, p.Submit); err != nil {
						return Result{}, fmt.Errorf("submit %q: %w", p.Submit, err)
					}
				}
				return textResult("filled %d field(s): %s", len(filled), strings.Join(filled, ", ")), nil
			})
		})
}
