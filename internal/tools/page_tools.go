package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/fault"
)

type navigateParams struct {
	URL       string `json:"url" format:"uri" doc:"Page URL to open"`
	Engine    string `json:"engine,omitempty" enum:"chromium,firefox,webkit" doc:"Browser engine (default from config)"`
	Headless  *bool  `json:"headless,omitempty" doc:"Run without a visible window (default from config)"`
	WaitUntil string `json:"wait_until,omitempty" enum:"load,domcontentloaded,networkidle" doc:"Navigation completion signal"`
	TimeoutMS int    `json:"timeout_ms,omitempty" minimum:"1000" maximum:"300000" doc:"Navigation timeout in milliseconds"`
}

type screenshotParams struct {
	URL       string `json:"url" format:"uri" doc:"Page URL to capture"`
	Engine    string `json:"engine,omitempty" enum:"chromium,firefox,webkit"`
	Headless  *bool  `json:"headless,omitempty"`
	FullPage  bool   `json:"full_page,omitempty" doc:"Capture the full scrollable page"`
	Format    string `json:"format,omitempty" enum:"png,jpeg" doc:"Image format (default png)"`
	TimeoutMS int    `json:"timeout_ms,omitempty" minimum:"1000" maximum:"300000"`
}

type extractParams struct {
	URL       string `json:"url" format:"uri" doc:"Page URL to read"`
	Selector  string `json:"selector,omitempty" doc:"CSS selector to match (default body)"`
	Attribute string `json:"attribute,omitempty" doc:"Extract this attribute instead of inner text"`
	Engine    string `json:"engine,omitempty" enum:"chromium,firefox,webkit"`
	Headless  *bool  `json:"headless,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty" minimum:"1000" maximum:"300000"`
}

type evaluateParams struct {
	URL       string `json:"url" format:"uri" doc:"Page URL to open before evaluating"`
	Script    string `json:"script" doc:"JavaScript expression to evaluate in the page"`
	Engine    string `json:"engine,omitempty" enum:"chromium,firefox,webkit"`
	Headless  *bool  `json:"headless,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty" minimum:"1000" maximum:"300000"`
}

type clickParams struct {
	URL       string `json:"url" format:"uri" doc:"Page URL to open"`
	Selector  string `json:"selector" doc:"CSS selector of the element to click"`
	Engine    string `json:"engine,omitempty" enum:"chromium,firefox,webkit"`
	Headless  *bool  `json:"headless,omitempty"`
	TimeoutMS int    `json:"timeout_ms,omitempty" minimum:"1000" maximum:"300000"`
}

func registerPageTools(r *Registry, deps *Deps) {
	register(r, "navigate_to_page", "Open a URL and report the final location and title",
		func(ctx context.Context, p navigateParams) (Result, error) {
			return deps.withSession(ctx, p.Engine, p.Headless, func(ctx context.Context, sess browser.Session) (Result, error) {
				info, err := sess.Navigate(ctx, p.URL, browser.NavigateOptions{
					WaitUntil: p.WaitUntil,
					Timeout:   deps.navigateTimeout(p.TimeoutMS),
				})
				if err != nil {
					return Result{}, err
				}
				return textResult("navigated to %s (title: %s)", info.URL, info.Title), nil
			})
		})

	register(r, "take_screenshot", "Capture a page screenshot, stored as an artifact and returned inline",
		func(ctx context.Context, p screenshotParams) (Result, error) {
			format := p.Format
			if format == "" {
				format = "png"
			}
			return deps.withSession(ctx, p.Engine, p.Headless, func(ctx context.Context, sess browser.Session) (Result, error) {
				if _, err := sess.Navigate(ctx, p.URL, browser.NavigateOptions{
					Timeout: deps.navigateTimeout(p.TimeoutMS),
				}); err != nil {
					return Result{}, err
				}
				data, err := sess.Screenshot(ctx, browser.ScreenshotOptions{
					FullPage: p.FullPage,
					Format:   format,
				})
				if err != nil {
					return Result{}, err
				}

				meta := artifact.NewMeta(artifact.KindScreenshot, format)
				meta.URL = p.URL
				meta.Engine = p.Engine
				if err := deps.Artifacts.Save(meta, data); err != nil {
					return Result{}, fmt.Errorf("store screenshot: %w", err)
				}

				text := fmt.Sprintf("screenshot saved: id=%s path=%s", meta.ID, deps.Artifacts.ImagePath(meta))
				return imageResult(text, data, "image/"+format), nil
			})
		})

	register(r, "extract_content", "Extract text or attribute values from page elements",
		func(ctx context.Context, p extractParams) (Result, error) {
			selector := p.Selector
			if selector == "" {
				selector = "body"
			}
			return deps.withSession(ctx, p.Engine, p.Headless, func(ctx context.Context, sess browser.Session) (Result, error) {
				if _, err := sess.Navigate(ctx, p.URL, browser.NavigateOptions{
					Timeout: deps.navigateTimeout(p.TimeoutMS),
				}); err != nil {
					return Result{}, err
				}

				var values []string
				var err error
				if p.Attribute != "" {
					values, err = sess.Attributes(ctx, selector, p.Attribute)
				} else {
					values, err = sess.InnerTexts(ctx, selector)
				}
				if err != nil {
					return Result{}, err
				}
				if len(values) == 0 {
					return textResult("no elements matched %q", selector), nil
				}
				return textResult("%s", strings.Join(values, "\n")), nil
			})
		})

	register(r, "evaluate_script", "Evaluate a JavaScript expression on a page and return its JSON value",
		func(ctx context.Context, p evaluateParams) (Result, error) {
			return deps.withSession(ctx, p.Engine, p.Headless, func(ctx context.Context, sess browser.Session) (Result, error) {
				if _, err := sess.Navigate(ctx, p.URL, browser.NavigateOptions{
					Timeout: deps.navigateTimeout(p.TimeoutMS),
				}); err != nil {
					return Result{}, err
				}
				value, err := sess.Evaluate(ctx, p.Script, deps.evaluateTimeout(p.TimeoutMS))
				if err != nil {
					return Result{}, err
				}
				encoded, err := json.Marshal(value)
				if err != nil {
					return Result{}, fault.New(fault.KindInternal, "encode evaluation result", err)
				}
				return textResult("%s", encoded), nil
			})
		})

	register(r, "click_element", "Click an element on a page",
		func(ctx context.Context, p clickParams) (Result, error) {
			return deps.withSession(ctx, p.Engine, p.Headless, func(ctx context.Context, sess browser.Session) (Result, error) {
				if _, err := sess.Navigate(ctx, p.URL, browser.NavigateOptions{
					Timeout: deps.navigateTimeout(p.TimeoutMS),
				}); err != nil {
					return Result{}, err
				}
				if err := sess.Click(ctx, p.Selector); err != nil {
					return Result{}, err
				}
				return textResult("clicked %s", p.Selector), nil
			})
		})
}
