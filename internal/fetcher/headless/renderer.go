// Package headless renders the audited page in headless Chrome so the
// checklist scores the DOM a browser would show.
package headless

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/seo-audit/internal/seo"
)

const (
	defaultNavTimeout  = 25 * time.Second
	defaultSettleDelay = 500 * time.Millisecond
)

// Config controls the renderer.
type Config struct {
	// Slots bounds concurrent renders across audits; 0 means unbounded.
	Slots             int
	UserAgent         string
	NavigationTimeout time.Duration
	// SettleDelay is how long scripts may run after the body is ready.
	SettleDelay time.Duration
}

// Renderer implements seo.Fetcher with chromedp. Every render gets its own
// tab in one shared browser process.
type Renderer struct {
	cfg          Config
	slots        *semaphore.Weighted
	browser      context.Context
	closeBrowser context.CancelFunc
}

// NewRenderer starts the browser allocator. Chrome itself is launched lazily
// by the first render.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Slots < 0 {
		return nil, fmt.Errorf("render slots must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavTimeout
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	var slots *semaphore.Weighted
	if cfg.Slots > 0 {
		slots = semaphore.NewWeighted(int64(cfg.Slots))
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	browser, closeBrowser := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{cfg: cfg, slots: slots, browser: browser, closeBrowser: closeBrowser}, nil
}

// Close shuts the browser down.
func (r *Renderer) Close() {
	r.closeBrowser()
}

// Fetch renders request.URL and returns the serialized DOM. URL and
// StatusCode describe the main-frame document the tab ended on, after
// server and script redirects. A status of 400 or above is an error, as it
// is for the plain fetch.
func (r *Renderer) Fetch(ctx context.Context, request seo.FetchRequest) (seo.FetchResponse, error) {
	if err := r.acquire(ctx); err != nil {
		return seo.FetchResponse{}, err
	}
	defer r.release()

	tab, closeTab := chromedp.NewContext(r.browser)
	defer closeTab()
	tab, cancel := context.WithTimeout(tab, r.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	nav := &navigation{}
	chromedp.ListenTarget(tab, nav.observe)

	start := time.Now()
	var html, location string
	err := chromedp.Run(tab,
		network.Enable(),
		chromedp.Navigate(request.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(r.cfg.SettleDelay),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return seo.FetchResponse{}, fmt.Errorf("render %s: %w", request.URL, err)
	}

	url, status := nav.landing(request.URL, location)
	if status >= http.StatusBadRequest {
		return seo.FetchResponse{}, fmt.Errorf("render %s: http status %d", url, status)
	}
	return seo.FetchResponse{
		URL:          url,
		StatusCode:   status,
		Body:         []byte(html),
		Duration:     time.Since(start),
		UsedHeadless: true,
	}, nil
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.slots == nil {
		return nil
	}
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for render slot: %w", err)
	}
	return nil
}

func (r *Renderer) release() {
	if r.slots != nil {
		r.slots.Release(1)
	}
}

// navigation follows the tab's main frame. The first document request names
// that frame; iframe documents are ignored.
type navigation struct {
	mu     sync.Mutex
	frame  cdp.FrameID
	url    string
	status int
}

func (n *navigation) observe(ev any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if n.frame == "" && e.Type == network.ResourceTypeDocument {
			n.frame = e.FrameID
		}
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		if n.frame != "" && e.FrameID != n.frame {
			return
		}
		n.url = e.Response.URL
		n.status = int(e.Response.Status)
	}
}

// landing returns where the main frame ended up. Pages served from cache or
// a service worker may report no document response; those count as 200 at
// the browser's location.
func (n *navigation) landing(requested, location string) (string, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	url, status := n.url, n.status
	if location != "" && location != url {
		// Script navigation after the last document response.
		url = location
	}
	if url == "" {
		url = requested
	}
	if status == 0 {
		status = http.StatusOK
	}
	return url, status
}
