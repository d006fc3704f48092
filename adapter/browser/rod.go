// Package browser provides the go-rod implementation of the browser
// transport used by rendered-page adapters.
package browser

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Rod renders pages with a headless Chromium controlled through the DevTools
// protocol. A fresh browser is launched per Render call and torn down with
// it, so a crashed page never poisons later searches.
type Rod struct {
	// Bin overrides browser binary autodetection. Empty means let the
	// launcher decide (or honor ROD_BROWSER_BIN).
	Bin string

	// StableWait bounds how long Render waits for the DOM to settle.
	StableWait time.Duration
}

// New returns a transport with conservative defaults.
func New() *Rod {
	return &Rod{StableWait: 10 * time.Second}
}

// Render loads the page, waits for client-side rendering to settle, and
// returns the resulting HTML.
func (t *Rod) Render(ctx context.Context, pageURL string) (string, error) {
	l := launcher.New().Headless(true).Logger(io.Discard)
	if t.Bin != "" {
		l = l.Bin(t.Bin)
	} else if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer l.Cleanup()

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return "", fmt.Errorf("connect browser: %w", err)
	}
	defer b.Close()

	page, err := b.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	}); err != nil {
		return "", fmt.Errorf("set viewport: %w", err)
	}

	wait := t.StableWait
	if wait <= 0 {
		wait = 10 * time.Second
	}
	timed := page.Timeout(wait)
	if err := timed.WaitStable(time.Second); err == nil {
		_ = timed.WaitDOMStable(2*time.Second, 0.1)
	}

	content, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return content, nil
}
