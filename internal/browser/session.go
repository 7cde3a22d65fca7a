package browser

import (
	"context"
	"time"
)

// PageInfo describes the page after a completed navigation.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// NavigateOptions bound a navigation call.
type NavigateOptions struct {
	WaitUntil string
	Timeout   time.Duration
}

// ScreenshotOptions control image capture of the current page.
type ScreenshotOptions struct {
	FullPage bool
	Format   string // "png" or "jpeg"
}

// Session is one isolated browsing context scoped to a single tool call.
// Cookies, storage, and navigation history never outlive the session.
type Session interface {
	Navigate(ctx context.Context, url string, opts NavigateOptions) (PageInfo, error)
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	Evaluate(ctx context.Context, script string, timeout time.Duration) (any, error)
	InnerTexts(ctx context.Context, selector string) ([]string, error)
	Attributes(ctx context.Context, selector, attribute string) ([]string, error)
	Count(ctx context.Context, selector string) (int, error)
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Close(ctx context.Context) error
}

// Instance is the narrow engine-instance surface the pool manages. One
// Instance hosts many short-lived Sessions.
type Instance interface {
	NewSession(ctx context.Context) (Session, error)
	IsConnected() bool
	Close(ctx context.Context) error
}

// Launcher starts engine instances. Production code uses the playwright
// implementation; tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, key Key) (Instance, error)
}
