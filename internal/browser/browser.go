// Package browser wraps the Rod browser lifecycle so the rest of the code
// deals with a single page and never touches launcher plumbing.
package browser

import (
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Options configures the browser launch.
type Options struct {
	Headless bool
	Width    int
	Height   int
}

// Browser wraps the Rod browser and the single page used for the run.
type Browser struct {
	browser *rod.Browser
	page    *rod.Page
}

// Launch starts a Chromium instance and opens a blank page.
func Launch(opts Options) (*Browser, error) {
	if opts.Width == 0 {
		opts.Width = 1280
	}
	if opts.Height == 0 {
		opts.Height = 720
	}

	path, _ := launcher.LookPath()
	l := launcher.New().Bin(path).Headless(opts.Headless)

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	page.MustSetViewport(opts.Width, opts.Height, 1, false)

	return &Browser{browser: b, page: page}, nil
}

// Page returns the underlying Rod page.
func (b *Browser) Page() *rod.Page {
	return b.page
}

// Close cleans up browser resources.
func (b *Browser) Close() {
	if b.page != nil {
		_ = b.page.Close()
	}
	if b.browser != nil {
		_ = b.browser.Close()
	}
}

// Navigate loads url and waits for the page to settle.
func (b *Browser) Navigate(url string, timeout time.Duration) error {
	if err := b.page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	b.Settle(timeout)
	return nil
}

// Settle waits for the page load event and for the network to go quiet.
// Bounded so persistent connections (websockets, polling) cannot hang the run.
func (b *Browser) Settle(timeout time.Duration) {
	_ = b.page.Timeout(timeout).WaitLoad()
	b.page.Timeout(timeout).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
}

// Cookies returns all cookies held by the browser.
func (b *Browser) Cookies() ([]*proto.NetworkCookie, error) {
	return b.browser.GetCookies()
}

// SetCookies installs cookies into the browser before navigation.
func (b *Browser) SetCookies(cookies []*proto.NetworkCookieParam) error {
	return b.browser.SetCookies(cookies)
}

// Screenshot writes a PNG of the current page, best effort. Used to leave a
// debugging artifact behind when a run fails.
func (b *Browser) Screenshot(path string) {
	data, err := b.page.Screenshot(false, nil)
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}
