package headless

import (
	"context"
	"net/http"
	"testing"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/seo-audit/internal/seo"
)

func TestNewRendererValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRenderer(Config{Slots: -1})
	require.Error(t, err)

	renderer, err := NewRenderer(Config{Slots: 2, UserAgent: "audit-agent"})
	require.NoError(t, err)
	t.Cleanup(renderer.Close)
	require.NotNil(t, renderer.slots)
	require.Equal(t, defaultNavTimeout, renderer.cfg.NavigationTimeout)
	require.Equal(t, defaultSettleDelay, renderer.cfg.SettleDelay)

	unbounded, err := NewRenderer(Config{})
	require.NoError(t, err)
	t.Cleanup(unbounded.Close)
	require.Nil(t, unbounded.slots)
	require.NoError(t, unbounded.acquire(context.Background()))
	unbounded.release()
}

func TestAcquireRespectsCancellation(t *testing.T) {
	t.Parallel()

	renderer := &Renderer{slots: semaphore.NewWeighted(1)}
	require.NoError(t, renderer.acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, renderer.acquire(ctx), context.Canceled)

	renderer.release()
	require.NoError(t, renderer.acquire(context.Background()))
}

func documentRequest(frame string) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{Type: network.ResourceTypeDocument, FrameID: cdp.FrameID(frame)}
}

func documentResponse(frame, url string, status int64) *network.EventResponseReceived {
	return &network.EventResponseReceived{
		Type:     network.ResourceTypeDocument,
		FrameID:  cdp.FrameID(frame),
		Response: &network.Response{URL: url, Status: status},
	}
}

func TestNavigationTracksMainFrame(t *testing.T) {
	t.Parallel()

	nav := &navigation{}
	nav.observe(documentRequest("main"))
	nav.observe(documentResponse("main", "https://example.com/landing", 200))
	nav.observe(documentRequest("ad"))
	nav.observe(documentResponse("ad", "https://ads.example/frame", 404))
	nav.observe(&network.EventResponseReceived{
		Type:     network.ResourceTypeScript,
		FrameID:  cdp.FrameID("main"),
		Response: &network.Response{URL: "https://example.com/app.js", Status: 500},
	})

	url, status := nav.landing("https://example.com", "https://example.com/landing")
	require.Equal(t, "https://example.com/landing", url)
	require.Equal(t, http.StatusOK, status)
}

func TestNavigationReportsErrorDocument(t *testing.T) {
	t.Parallel()

	nav := &navigation{}
	nav.observe(documentRequest("main"))
	nav.observe(documentResponse("main", "https://example.com/gone", 410))

	url, status := nav.landing("https://example.com/gone", "https://example.com/gone")
	require.Equal(t, "https://example.com/gone", url)
	require.Equal(t, http.StatusGone, status)
}

func TestNavigationLandingFallbacks(t *testing.T) {
	t.Parallel()

	nav := &navigation{}
	nav.observe(documentRequest("main"))
	nav.observe(documentResponse("main", "https://example.com/", 200))
	url, _ := nav.landing("https://example.com/", "https://example.com/app/home")
	require.Equal(t, "https://example.com/app/home", url, "script navigation wins")

	url, status := (&navigation{}).landing("https://example.com/", "")
	require.Equal(t, "https://example.com/", url)
	require.Equal(t, http.StatusOK, status)
}

func TestNoopFetcherError(t *testing.T) {
	t.Parallel()

	_, err := NewNoop().Fetch(context.Background(), seo.FetchRequest{URL: "https://example.com"})
	require.ErrorIs(t, err, ErrDisabled)
}
