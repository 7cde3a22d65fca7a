package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dgnsrekt/web_agent/internal/fault"
	"github.com/playwright-community/playwright-go"
)

const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 720
)

// PlaywrightLauncher launches engine instances through the playwright driver.
type PlaywrightLauncher struct {
	pw *playwright.Playwright
}

// NewPlaywrightLauncher installs (if needed) and starts the playwright
// driver. Call Close when the process shuts down.
func NewPlaywrightLauncher() (*PlaywrightLauncher, error) {
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}
	return &PlaywrightLauncher{pw: pw}, nil
}

// Launch starts one engine process for the given key.
func (l *PlaywrightLauncher) Launch(ctx context.Context, key Key) (Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var bt playwright.BrowserType
	switch key.Engine {
	case EngineChromium:
		bt = l.pw.Chromium
	case EngineFirefox:
		bt = l.pw.Firefox
	case EngineWebkit:
		bt = l.pw.WebKit
	default:
		return nil, fmt.Errorf("unsupported engine %q", key.Engine)
	}

	b, err := bt.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(key.Headless),
	})
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", key.String(), err)
	}
	return &pwInstance{browser: b}, nil
}

// Close stops the playwright driver.
func (l *PlaywrightLauncher) Close() error {
	return l.pw.Stop()
}

type pwInstance struct {
	browser playwright.Browser
}

func (i *pwInstance) NewSession(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bctx, err := i.browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: defaultViewportWidth, Height: defaultViewportHeight},
	})
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &pwSession{bctx: bctx, page: page}, nil
}

func (i *pwInstance) IsConnected() bool { return i.browser.IsConnected() }

func (i *pwInstance) Close(ctx context.Context) error {
	return i.browser.Close()
}

type pwSession struct {
	bctx playwright.BrowserContext
	page playwright.Page
}

func (s *pwSession) Navigate(ctx context.Context, url string, opts NavigateOptions) (PageInfo, error) {
	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		state := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &state
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	if _, err := s.page.Goto(url, gotoOpts); err != nil {
		return PageInfo{}, mapPlaywrightErr("navigate", err)
	}
	title, err := s.page.Title()
	if err != nil {
		title = ""
	}
	return PageInfo{URL: s.page.URL(), Title: title}, nil
}

func (s *pwSession) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	shotType := playwright.ScreenshotTypePng
	if opts.Format == "jpeg" {
		shotType = playwright.ScreenshotTypeJpeg
	}
	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(opts.FullPage),
		Type:     shotType,
	})
	if err != nil {
		return nil, mapPlaywrightErr("screenshot", err)
	}
	return data, nil
}

// Evaluate runs a script on the page. Playwright has no evaluate timeout
// option, so the deadline is enforced here; the caller closes the session
// afterwards, which tears down any still-running evaluation.
func (s *pwSession) Evaluate(ctx context.Context, script string, timeout time.Duration) (any, error) {
	type evalResult struct {
		value any
		err   error
	}
	resCh := make(chan evalResult, 1)
	go func() {
		v, err := s.page.Evaluate(script)
		resCh <- evalResult{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-resCh:
		if res.err != nil {
			return nil, mapPlaywrightErr("evaluate", res.err)
		}
		return res.value, nil
	case <-timer.C:
		return nil, fault.Newf(fault.KindTimeout, "evaluate exceeded %s", timeout)
	case <-ctx.Done():
		return nil, fault.New(fault.KindTimeout, "evaluate cancelled", ctx.Err())
	}
}

func (s *pwSession) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	texts, err := s.page.Locator(selector).AllInnerTexts()
	if err != nil {
		return nil, mapPlaywrightErr("extract text", err)
	}
	return texts, nil
}

func (s *pwSession) Attributes(ctx context.Context, selector, attribute string) ([]string, error) {
	matches, err := s.page.Locator(selector).All()
	if err != nil {
		return nil, mapPlaywrightErr("extract attributes", err)
	}
	var values []string
	for _, m := range matches {
		v, err := m.GetAttribute(attribute)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

func (s *pwSession) Count(ctx context.Context, selector string) (int, error) {
	n, err := s.page.Locator(selector).Count()
	if err != nil {
		return 0, mapPlaywrightErr("count matches", err)
	}
	return n, nil
}

func (s *pwSession) Fill(ctx context.Context, selector, value string) error {
	if err := s.page.Locator(selector).First().Fill(value); err != nil {
		return mapPlaywrightErr("fill", err)
	}
	return nil
}

func (s *pwSession) Click(ctx context.Context, selector string) error {
	if err := s.page.Locator(selector).First().Click(); err != nil {
		return mapPlaywrightErr("click", err)
	}
	return nil
}

func (s *pwSession) Close(ctx context.Context) error {
	return s.bctx.Close()
}

func mapPlaywrightErr(op string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fault.New(fault.KindTimeout, op+" timed out", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
