package pdfform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/incidentreportflow/internal/fields"
	"github.com/Lllllllleong/incidentreportflow/internal/textfit"
)

// FormFiller fills the main report template. Filler is the in-process
// implementation; remotefill.Client delegates to a document service.
type FormFiller interface {
	Fill(ctx context.Context, template []byte, values fields.Values) (*FilledDocument, error)
}

// FieldError records one field that could not be written.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string { return fmt.Sprintf("field %q: %v", e.Field, e.Err) }

func (e FieldError) Unwrap() error { return e.Err }

// FillReport summarizes a fill run.
type FillReport struct {
	Written  int
	Skipped  int
	Degraded []string
	Failed   []FieldError
}

// Filler fills a template in-process.
type Filler struct {
	resolver *fields.Resolver
	fit      textfit.Params
	declared bool
	logger   *slog.Logger
}

// FillerOption configures a Filler.
type FillerOption func(*Filler)

// WithResolver replaces the default checkbox token resolver.
func WithResolver(r *fields.Resolver) FillerOption { return func(fl *Filler) { fl.resolver = r } }

// WithFitParams replaces the auto-fit font bounds.
func WithFitParams(p textfit.Params) FillerOption { return func(fl *Filler) { fl.fit = p } }

// WithDeclaredStates makes the filler prefer the on-states the template
// declares over the static table.
func WithDeclaredStates(on bool) FillerOption { return func(fl *Filler) { fl.declared = on } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) FillerOption { return func(fl *Filler) { fl.logger = l } }

// NewFiller returns a Filler using the static on-token table.
func NewFiller(opts ...FillerOption) *Filler {
	fl := &Filler{
		resolver: fields.DefaultResolver(),
		fit:      textfit.DefaultParams,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(fl)
	}
	return fl
}

// Fill writes values into template. A missing field or a widget type mismatch
// is logged and skipped; only failures to read or write the document itself
// are returned. The form is left interactive with appearance regeneration
// requested. It is never flattened.
func (fl *Filler) Fill(ctx context.Context, template []byte, values fields.Values) (*FilledDocument, error) {
	form, err := Read(bytes.NewReader(template), fl.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	report, err := fl.Apply(ctx, form, values)
	if err != nil {
		return nil, err
	}
	if err := form.RequestAppearanceRegeneration(); err != nil {
		return nil, fmt.Errorf("failed to request appearance regeneration: %w", err)
	}
	var buf bytes.Buffer
	if err := form.Write(&buf); err != nil {
		return nil, err
	}
	fl.logger.Info("Template filled.", "written", report.Written, "skipped", report.Skipped, "failed", len(report.Failed), "degraded", len(report.Degraded))
	return &FilledDocument{
		data:            buf.Bytes(),
		pageCount:       form.PageCount(),
		fieldCount:      form.FieldCount(),
		needAppearances: form.NeedAppearances(),
		Report:          report,
	}, nil
}

// Apply writes values into an already opened form, field by field.
func (fl *Filler) Apply(ctx context.Context, form *Form, values fields.Values) (FillReport, error) {
	var report FillReport
	resolver := fl.resolver
	if fl.declared {
		resolver = resolver.WithDeclared(form.DeclaredOnStates(), fl.logger)
	}
	for i, name := range values.Names() {
		if i%32 == 0 {
			if err := ctx.Err(); err != nil {
				return report, err
			}
		}
		v := values[name]
		written, degraded, err := fl.applyOne(form, resolver, name, v)
		switch {
		case err != nil:
			fl.logger.Warn("Skipping form field.", "field", name, "kind", v.Kind.String(), "error", err)
			report.Failed = append(report.Failed, FieldError{Field: name, Err: err})
		case !written:
			report.Skipped++
		default:
			report.Written++
			if degraded {
				report.Degraded = append(report.Degraded, name)
			}
		}
	}
	return report, nil
}

func (fl *Filler) applyOne(form *Form, resolver *fields.Resolver, name string, v fields.Value) (written, degraded bool, err error) {
	defer func() {
		// A malformed widget must not take down the remaining fields.
		if r := recover(); r != nil {
			written, degraded, err = false, false, fmt.Errorf("panic while setting field: %v", r)
		}
	}()
	switch v.Kind {
	case fields.KindText:
		if v.Fit {
			fitted, ferr := form.SetTextFit(name, v.Text, fl.fit)
			return ferr == nil, ferr == nil && !fitted, ferr
		}
		terr := form.SetText(name, v.Text)
		return terr == nil, false, terr
	case fields.KindCheck:
		tok, ok := resolver.Resolve(name, v.Check)
		if !ok {
			return false, false, nil
		}
		cerr := form.SetCheck(name, string(tok))
		return cerr == nil, false, cerr
	case fields.KindClear:
		cerr := form.ClearCheck(name)
		return cerr == nil, false, cerr
	default:
		return false, false, errors.New("unknown value kind")
	}
}
