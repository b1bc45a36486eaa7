// Package browser fetches pages through a headless Chromium driven by
// Playwright and reports the cookies the page ended up with.
//
// # Architecture
//
// The package is built around two capabilities:
//
// 1. Launcher: starts a browser process and hands back a Session
// 2. Session: one isolated browser context with a single page
//
// Fetcher ties them together for a single request. Every fetch launches its
// own browser with a fresh context, so no cookies or storage leak between
// requests.
//
// # Session Lifecycle
//
//  1. Launch: the Playwright driver is started on first use, then Chromium
//  2. Navigate: wait for network idle, bounded by the navigation timeout
//  3. Read: context cookies for the final URL and document.cookie
//  4. Close: page, context and browser, on every exit path
//
// # Example Usage
//
//	launcher := browser.NewPlaywrightLauncher(logger)
//	defer launcher.Shutdown()
//
//	f := browser.NewFetcher(launcher, browser.Options{Headless: true}, logger)
//	out, err := f.Fetch(ctx, u)
package browser
