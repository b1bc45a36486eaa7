package browser

import (
	"context"
	"time"

	"github.com/entrhq/cookiescope/pkg/cookies"
)

// Session is one isolated browser context with a single page.
type Session interface {
	// Navigate loads url and waits until the network is idle or ctx expires
	Navigate(ctx context.Context, url string) error

	// Cookies returns all cookies held by the context, whatever their domain
	Cookies(ctx context.Context) ([]cookies.Raw, error)

	// DocumentCookie evaluates document.cookie in the page
	DocumentCookie(ctx context.Context) (string, error)

	// Close releases the page, context and browser. It is safe to call twice.
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// LaunchOptions configures a new browser session.
type LaunchOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// UserAgent is presented by the browser context
	UserAgent string
}

// Options configures a Fetcher.
type Options struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// UserAgent overrides DefaultUserAgent
	UserAgent string

	// LaunchTimeout bounds browser startup (0 means DefaultLaunchTimeout)
	LaunchTimeout time.Duration

	// NavigationTimeout bounds navigation (0 means DefaultNavigationTimeout)
	NavigationTimeout time.Duration
}

// Default values for browser fetches
const (
	DefaultLaunchTimeout     = 30 * time.Second
	DefaultNavigationTimeout = 25 * time.Second
	DefaultUserAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	// waitUntil is the Playwright load state navigation waits for
	waitUntil = "networkidle"
)
