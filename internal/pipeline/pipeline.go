// Package pipeline turns one DomainRecord into an assembled incident report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/incidentreportflow/internal/assembly"
	"github.com/Lllllllleong/incidentreportflow/internal/fields"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
	"github.com/Lllllllleong/incidentreportflow/internal/render"
	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

// ErrNoRecord is returned when Generate is called without a record.
var ErrNoRecord = errors.New("no domain record")

// Pipeline wires the filler, renderer and assembler together. It holds no
// per-report state and is safe for concurrent use.
type Pipeline struct {
	filler    pdfform.FormFiller
	renderer  render.PageRenderer
	main      templates.Layout
	repeating templates.Layout
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLayouts replaces the embedded main and repeating template layouts.
func WithLayouts(main, repeating templates.Layout) Option {
	return func(p *Pipeline) {
		p.main = main
		p.repeating = repeating
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// New returns a Pipeline that fills with filler and renders with renderer.
func New(filler pdfform.FormFiller, renderer render.PageRenderer, opts ...Option) *Pipeline {
	p := &Pipeline{
		filler:    filler,
		renderer:  renderer,
		main:      templates.Main(),
		repeating: templates.Repeating(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Generate fills the main template, renders the narrative pages and fills the
// repeating pages concurrently, then joins them in the assembler. Any failure
// fails the whole report; renderer failures carry the page that failed as a
// *render.PageError.
func (p *Pipeline) Generate(ctx context.Context, rec *models.DomainRecord, mainTemplate, repeatingTemplate []byte) (*assembly.Result, error) {
	if rec == nil {
		return nil, ErrNoRecord
	}
	logCtx := p.logger.With("incidentId", rec.IncidentID)
	started := time.Now()

	if len(NarrativeOrder) != p.main.DynamicBlockLength {
		return nil, fmt.Errorf("layout %q reserves %d dynamic pages, %d narrative pages defined", p.main.Name, p.main.DynamicBlockLength, len(NarrativeOrder))
	}
	values := fields.Map(rec)
	pages, err := NarrativePages(rec)
	if err != nil {
		return nil, err
	}
	appender, err := assembly.NewAppender(repeatingTemplate, p.repeating, logCtx)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Generating report.", "fields", len(values), "witnesses", len(rec.Witnesses), "vehicles", len(rec.Vehicles))

	var (
		filled    *pdfform.FilledDocument
		rendered  map[string][]byte
		repeating [][]byte
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if filled, err = p.filler.Fill(gctx, mainTemplate, values); err != nil {
			return fmt.Errorf("failed to fill template: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if rendered, err = p.renderer.RenderPages(gctx, pages); err != nil {
			return fmt.Errorf("failed to render narrative pages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if repeating, err = appender.RecordPages(gctx, rec.Witnesses, rec.Vehicles); err != nil {
			return fmt.Errorf("failed to build repeating pages: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logCtx.Error("Report generation failed.", "error", err)
		return nil, err
	}

	ordered := make([][]byte, 0, len(NarrativeOrder))
	for _, id := range NarrativeOrder {
		buf, ok := rendered[id]
		if !ok {
			return nil, &render.PageError{PageID: id, Err: errors.New("renderer returned no output")}
		}
		ordered = append(ordered, buf)
	}

	result, err := assembly.NewAssembler(p.main, logCtx).Assemble(filled, ordered, repeating)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble report: %w", err)
	}
	logCtx.Info("Report generated.", "pages", result.PageCount, "bytes", len(result.Bytes), "duration", time.Since(started))
	return result, nil
}
