package navigator

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Renderer produces fully rendered HTML (and optionally a screenshot)
// for sources whose listings only exist after client-side scripting.
type Renderer interface {
	Render(ctx context.Context, url string, profile Profile, captureScreenshot bool) (*Result, error)
	Close() error
}

// ChromeOptions configures the browser allocator. With a RemoteURL the
// renderer attaches to an existing DevTools endpoint (browserless-style
// deployments); otherwise it launches a local headless Chrome.
type ChromeOptions struct {
	RemoteURL string
}

type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

var _ Renderer = (*ChromeRenderer)(nil)

func NewChromeRenderer(opts ChromeOptions) *ChromeRenderer {
	var (
		allocCtx context.Context
		cancel   context.CancelFunc
	)

	if opts.RemoteURL != "" {
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("hide-scrollbars", false),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
		)
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	}

	return &ChromeRenderer{allocCtx: allocCtx, allocCancel: cancel}
}

// Render navigates in a fresh browsing context. A new context per
// navigation keeps retries free of poisoned cookies or challenge state.
func (r *ChromeRenderer) Render(ctx context.Context, url string, profile Profile, captureScreenshot bool) (*Result, error) {
	taskCtx, cancel := chromedp.NewContext(r.allocCtx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		taskCtx, cancelDeadline = context.WithDeadline(taskCtx, deadline)
		defer cancelDeadline()
	}

	var (
		statusCode int
		finalURL   string
		html       string
		screenshot []byte
	)

	// The document response carries the status code the navigation
	// actually landed with.
	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && statusCode == 0 {
				statusCode = int(resp.Response.Status)
			}
		}
	})

	headers := make(network.Headers, len(profile.Headers))
	for key, value := range profile.Headers {
		headers[key] = value
	}

	tasks := chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		emulation.SetUserAgentOverride(profile.UserAgent).
			WithAcceptLanguage(profile.AcceptLanguage),
		chromedp.EmulateViewport(int64(profile.ViewportWidth), int64(profile.ViewportHeight)),
		chromedp.Navigate(url),
		chromedp.Sleep(jitterBetween(profile.DelayMin, profile.DelayMax)),
	}

	if profile.SimulateScroll {
		tasks = append(tasks,
			chromedp.Evaluate(`window.scrollBy({top: 600, behavior: "smooth"})`, nil),
			chromedp.Sleep(jitterBetween(profile.DelayMin, profile.DelayMax)),
			chromedp.Evaluate(`window.scrollTo({top: 0})`, nil),
		)
	}

	tasks = append(tasks,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)

	if captureScreenshot {
		tasks = append(tasks, chromedp.CaptureScreenshot(&screenshot))
	}

	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	if statusCode == 0 {
		statusCode = 200
	}

	return &Result{
		HTML:       html,
		Screenshot: screenshot,
		FinalURL:   finalURL,
		StatusCode: statusCode,
	}, nil
}

func (r *ChromeRenderer) Close() error {
	r.allocCancel()
	return nil
}
