package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/minecart-io/minecart/log"
)

// ChromeOptions configure the headless browser session.
type ChromeOptions struct {
	Headless bool
}

// ChromeDriver implements Driver on a chromedp-managed Chrome session.
// Confirmation dialogs are accepted by a target listener as soon as they
// open; AcceptDialog observes that the acceptance happened. Chrome blocks
// the triggering click until the dialog is handled, so acceptance cannot
// wait for the click to return.
type ChromeDriver struct {
	baseURL string
	opts    ChromeOptions
	logger  *log.Logger

	ctx     context.Context
	cancels []context.CancelFunc
	dialogs chan struct{}
}

// NewChromeDriver creates a driver for the web UI rooted at baseURL.
// The session starts on Open.
func NewChromeDriver(baseURL string, opts ChromeOptions, logger *log.Logger) *ChromeDriver {
	return &ChromeDriver{
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		logger:  logger,
	}
}

func (d *ChromeDriver) Open(ctx context.Context) error {
	if d.ctx != nil {
		return nil
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.NoSandbox,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("starting browser: %w", err)
	}

	d.ctx = browserCtx
	d.cancels = []context.CancelFunc{browserCancel, allocCancel}
	d.dialogs = make(chan struct{}, 4)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		if _, ok := ev.(*page.EventJavascriptDialogOpening); !ok {
			return
		}
		go func() {
			if err := chromedp.Run(browserCtx, page.HandleJavaScriptDialog(true)); err != nil {
				d.logger.Warn("accepting dialog failed", map[string]any{"error": err.Error()})
				return
			}
			select {
			case d.dialogs <- struct{}{}:
			default:
			}
		}()
	})

	d.logger.Info("browser session opened", map[string]any{"headless": d.opts.Headless})
	return nil
}

func (d *ChromeDriver) Login(ctx context.Context, username, password string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := d.run(timeout,
		chromedp.Navigate(d.baseURL+"/login"),
		chromedp.WaitVisible(`input[name="username"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="username"]`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Click(`input[type="submit"]`, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	// Still sitting on the login page means the credentials were rejected.
	var loc string
	if err := d.run(timeout, chromedp.Location(&loc)); err != nil {
		return fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if strings.Contains(loc, "/login") {
		return ErrLoginFailed
	}
	return nil
}

func (d *ChromeDriver) Goto(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.run(timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *ChromeDriver) Count(ctx context.Context, selector string, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var nodes []*cdp.Node
	if err := d.run(timeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return 0, err
	}
	return len(nodes), nil
}

func (d *ChromeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var nodes []*cdp.Node
	if err := d.run(timeout, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", ErrElementMissing, selector)
	}
	return d.run(timeout, chromedp.Click(selector, chromedp.ByQuery))
}

func (d *ChromeDriver) AcceptDialog(ctx context.Context, timeout time.Duration) error {
	if d.dialogs == nil {
		return ErrSessionUnusable
	}
	select {
	case <-d.dialogs:
		return nil
	case <-time.After(timeout):
		return ErrNoDialog
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *ChromeDriver) Close() error {
	if d.ctx == nil {
		return nil
	}
	for _, cancel := range d.cancels {
		cancel()
	}
	d.ctx = nil
	d.cancels = nil
	d.logger.Info("browser session closed", nil)
	return nil
}

// run executes actions against the session with a per-operation deadline.
func (d *ChromeDriver) run(timeout time.Duration, actions ...chromedp.Action) error {
	if d.ctx == nil {
		return ErrSessionUnusable
	}
	if err := d.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnusable, err)
	}
	tctx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()
	err := chromedp.Run(tctx, actions...)
	if err != nil && d.ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrSessionUnusable, err)
	}
	return err
}
