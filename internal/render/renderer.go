package render

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"golang.org/x/sync/errgroup"
)

// Concurrency is the number of pages rendered at once.
const Concurrency = 4

// PageError names the logical page whose render failed.
type PageError struct {
	PageID string
	Err    error
}

func (e *PageError) Error() string { return fmt.Sprintf("render page %q: %v", e.PageID, e.Err) }

func (e *PageError) Unwrap() error { return e.Err }

// PageRenderer turns markup pages into single-page PDFs keyed by page ID.
type PageRenderer interface {
	RenderPages(ctx context.Context, pages map[string]string) (map[string][]byte, error)
}

// Options controls page output. Paper sizes are in inches.
type Options struct {
	// BaseURL is injected as <base href> so relative asset references resolve.
	BaseURL     string
	PaperWidth  float64
	PaperHeight float64
	// PageTimeout bounds one page from tab creation to PDF bytes.
	PageTimeout time.Duration
}

// DefaultOptions prints A4 pages.
func DefaultOptions() Options {
	return Options{
		PaperWidth:  8.27,
		PaperHeight: 11.69,
		PageTimeout: 60 * time.Second,
	}
}

// Renderer prints pages in their own tab of a shared Browser.
type Renderer struct {
	browser *Browser
	opts    Options
	logger  *slog.Logger
}

// NewRenderer returns a Renderer backed by b.
func NewRenderer(b *Browser, opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = DefaultOptions().PageTimeout
	}
	if opts.PaperWidth <= 0 || opts.PaperHeight <= 0 {
		d := DefaultOptions()
		opts.PaperWidth, opts.PaperHeight = d.PaperWidth, d.PaperHeight
	}
	return &Renderer{browser: b, opts: opts, logger: logger}
}

// RenderPages renders every page concurrently, at most Concurrency at a time.
// The first failure cancels the batch and is returned as a *PageError.
func (r *Renderer) RenderPages(ctx context.Context, pages map[string]string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(pages))
	if len(pages) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(pages))
	for id := range pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Concurrency)
	for _, id := range ids {
		markup := pages[id]
		g.Go(func() error {
			started := time.Now()
			buf, err := r.renderOne(gctx, markup)
			if err != nil {
				r.logger.Error("Failed to render page.", "pageId", id, "error", err)
				return &PageError{PageID: id, Err: err}
			}
			r.logger.Info("Rendered page.", "pageId", id, "bytes", len(buf), "duration", time.Since(started))
			mu.Lock()
			out[id] = buf
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Renderer) renderOne(ctx context.Context, markup string) ([]byte, error) {
	bctx, err := r.browser.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire browser: %w", err)
	}

	// Large documents go through a file rather than a data URL.
	tmp, err := os.CreateTemp("", "report-page-*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(WithBase(markup, r.opts.BaseURL)); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	// The tab belongs to the shared browser; closing it leaves the browser up.
	tabCtx, closeTab := chromedp.NewContext(bctx)
	defer closeTab()
	tabCtx, cancel := context.WithTimeout(tabCtx, r.opts.PageTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	idle := make(chan cdp.LoaderID, 8)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- e.LoaderID:
			default:
			}
		}
	})

	var pdf []byte
	err = chromedp.Run(tabCtx,
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, loader, errText, err := page.Navigate("file://" + tmp.Name()).Do(ctx)
			if err != nil {
				return err
			}
			if errText != "" {
				return fmt.Errorf("navigation failed: %s", errText)
			}
			return waitIdle(ctx, idle, loader)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(r.opts.PaperWidth).
				WithPaperHeight(r.opts.PaperHeight).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPrintBackground(true).
				WithPageRanges("1").
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}

func waitIdle(ctx context.Context, idle <-chan cdp.LoaderID, loader cdp.LoaderID) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle: %w", ctx.Err())
		case id := <-idle:
			if loader == "" || id == loader {
				return nil
			}
		}
	}
}

var headTag = regexp.MustCompile(`(?i)<head(\s[^>]*)?>`)

// WithBase injects a <base href> element so page-relative references resolve
// against baseURL. Markup without a head element gets one.
func WithBase(markup, baseURL string) string {
	if baseURL == "" {
		return markup
	}
	base := `<base href="` + html.EscapeString(baseURL) + `">`
	if loc := headTag.FindStringIndex(markup); loc != nil {
		return markup[:loc[1]] + base + markup[loc[1]:]
	}
	return "<head>" + base + "</head>" + markup
}
