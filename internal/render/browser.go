// Package render prints narrative markup pages to single-page PDFs through a
// shared headless Chrome.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrBrowserClosed is returned once Shutdown has been called.
	ErrBrowserClosed = errors.New("browser has been shut down")
	// ErrBrowserNotStarted is returned by HealthCheck before the first Acquire.
	ErrBrowserNotStarted = errors.New("browser not started")
	// ErrBrowserDisconnected is returned by HealthCheck when the process has gone away.
	ErrBrowserDisconnected = errors.New("browser disconnected")
)

// Launcher starts a browser process. The returned context owns the process and
// must be cancelled through the returned func. It is cancelled by chromedp
// when the connection to the process is lost.
type Launcher func() (context.Context, context.CancelFunc, error)

// Browser is a lazily started, shared browser process. Concurrent callers that
// arrive while the process is starting wait for that single start instead of
// launching their own. A process that has died is replaced on the next Acquire.
type Browser struct {
	launch Launcher
	logger *slog.Logger
	group  singleflight.Group

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	launches int
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithLauncher replaces the Chrome launcher.
func WithLauncher(l Launcher) BrowserOption { return func(b *Browser) { b.launch = l } }

// WithBrowserLogger sets the logger.
func WithBrowserLogger(l *slog.Logger) BrowserOption { return func(b *Browser) { b.logger = l } }

// NewBrowser returns a handle that launches Chrome from execPath (or the
// default lookup when empty) on first use.
func NewBrowser(execPath string, opts ...BrowserOption) *Browser {
	b := &Browser{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	if b.launch == nil {
		b.launch = ChromeLauncher(execPath, b.logger)
	}
	return b
}

// ChromeLauncher starts headless Chrome with flags suitable for containers.
func ChromeLauncher(execPath string, logger *slog.Logger) Launcher {
	return func() (context.Context, context.CancelFunc, error) {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-software-rasterizer", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.Flag("headless", true),
			chromedp.WSURLReadTimeout(60*time.Second),
		)
		if execPath != "" {
			opts = append(opts, chromedp.ExecPath(execPath))
		}
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		ctx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf("chromedp: "+format, args...))
		}))
		// Running no actions starts the process and opens the first target.
		if err := chromedp.Run(ctx); err != nil {
			cancel()
			allocCancel()
			return nil, nil, fmt.Errorf("failed to start chrome: %w", err)
		}
		return ctx, func() {
			cancel()
			allocCancel()
		}, nil
	}
}

// Acquire returns the context of a running browser, starting one if needed.
// The returned context outlives ctx; ctx only bounds how long the caller waits.
func (b *Browser) Acquire(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrowserClosed
	}
	if b.ctx != nil && b.ctx.Err() == nil {
		live := b.ctx
		b.mu.Unlock()
		return live, nil
	}
	b.mu.Unlock()

	ch := b.group.DoChan("launch", func() (any, error) {
		return b.start()
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(context.Context), nil
	}
}

func (b *Browser) start() (context.Context, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBrowserClosed
	}
	if b.ctx != nil && b.ctx.Err() == nil {
		live := b.ctx
		b.mu.Unlock()
		return live, nil
	}
	relaunch := b.ctx != nil
	if b.cancel != nil {
		b.cancel()
	}
	b.ctx, b.cancel = nil, nil
	b.mu.Unlock()

	if relaunch {
		b.logger.Warn("Browser disconnected, relaunching.")
	}
	started := time.Now()
	ctx, cancel, err := b.launch()
	if err != nil {
		b.logger.Error("Failed to launch browser.", "error", err)
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		cancel()
		return nil, ErrBrowserClosed
	}
	b.ctx, b.cancel = ctx, cancel
	b.launches++
	b.logger.Info("Browser started.", "launches", b.launches, "duration", time.Since(started))
	return ctx, nil
}

// HealthCheck reports whether the shared browser is running and answering.
func (b *Browser) HealthCheck(ctx context.Context) error {
	b.mu.Lock()
	bctx, closed := b.ctx, b.closed
	b.mu.Unlock()
	switch {
	case closed:
		return ErrBrowserClosed
	case bctx == nil:
		return ErrBrowserNotStarted
	case bctx.Err() != nil:
		return ErrBrowserDisconnected
	}

	c := chromedp.FromContext(bctx)
	if c == nil || c.Browser == nil {
		return nil
	}
	checkCtx, cancel := context.WithTimeout(cdp.WithExecutor(ctx, c.Browser), 5*time.Second)
	defer cancel()
	if _, _, _, _, _, err := browser.GetVersion().Do(checkCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserDisconnected, err)
	}
	return nil
}

// Launches returns how many times a browser process has been started.
func (b *Browser) Launches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.launches
}

// Shutdown stops the browser process. The handle cannot be reused.
func (b *Browser) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
	b.ctx, b.cancel = nil, nil
	b.logger.Info("Browser shut down.")
}
