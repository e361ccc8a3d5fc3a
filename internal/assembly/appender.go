package assembly

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Lllllllleong/incidentreportflow/internal/fields"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

// Appender produces one filled page per witness or vehicle from the repeating
// template.
type Appender struct {
	template []byte
	layout   templates.Layout
	filler   *pdfform.Filler
	logger   *slog.Logger
}

// NewAppender checks the repeating template against its declared layout and
// returns an Appender for it. Field dictionary drift is logged, not fatal.
func NewAppender(template []byte, layout templates.Layout, logger *slog.Logger) (*Appender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	form, err := pdfform.Read(bytes.NewReader(template), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open repeating template: %w", err)
	}
	if form.PageCount() != layout.TotalPages {
		return nil, fmt.Errorf("repeating template has %d pages, layout %q declares %d", form.PageCount(), layout.Name, layout.TotalPages)
	}
	if diff := layout.DiffFields(form.FieldNames()); !diff.Empty() {
		logger.Warn("Repeating template fields differ from layout.", "template", layout.Name, "missing", diff.Missing, "unexpected", diff.Unexpected)
	}
	return &Appender{
		template: template,
		layout:   layout,
		filler:   pdfform.NewFiller(pdfform.WithLogger(logger)),
		logger:   logger,
	}, nil
}

// AppendFor copies page pageIndex of the template once per record and fills
// the copy. Each returned buffer is a one-page document whose field names are
// suffixed with the record's 1-based position so copies stay distinct. No
// records means no pages.
func (a *Appender) AppendFor(ctx context.Context, records []fields.Values, pageIndex int) ([][]byte, error) {
	if len(records) == 0 {
		return nil, nil
	}
	if pageIndex < 0 || pageIndex >= a.layout.TotalPages {
		return nil, fmt.Errorf("page index %d out of range for %q", pageIndex, a.layout.Name)
	}
	out := make([][]byte, 0, len(records))
	for i, values := range records {
		page, err := a.fillPage(ctx, values, pageIndex, strconv.Itoa(i+1))
		if err != nil {
			return nil, fmt.Errorf("repeating page %d of %q: %w", i+1, a.layout.Name, err)
		}
		out = append(out, page)
	}
	return out, nil
}

func (a *Appender) fillPage(ctx context.Context, values fields.Values, pageIndex int, suffix string) ([]byte, error) {
	form, err := pdfform.Read(bytes.NewReader(a.template), a.logger)
	if err != nil {
		return nil, err
	}
	if err := form.SelectPages([]int{pageIndex}); err != nil {
		return nil, err
	}
	report, err := a.filler.Apply(ctx, form, values)
	if err != nil {
		return nil, err
	}
	if len(report.Failed) > 0 {
		a.logger.Warn("Repeating page filled with skipped fields.", "page", pageIndex, "failed", len(report.Failed))
	}
	form.RenameFields(func(name string) string { return name + "_" + suffix })
	if err := form.RequestAppearanceRegeneration(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := form.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RecordPages builds the witness pages followed by the vehicle pages.
func (a *Appender) RecordPages(ctx context.Context, witnesses []models.Witness, vehicles []models.OtherVehicle) ([][]byte, error) {
	witnessPage, err := a.layout.PageIndex(templates.PageWitness)
	if err != nil {
		return nil, err
	}
	vehiclePage, err := a.layout.PageIndex(templates.PageVehicle)
	if err != nil {
		return nil, err
	}

	wv := make([]fields.Values, len(witnesses))
	for i, w := range witnesses {
		wv[i] = fields.WitnessValues(i+1, w)
	}
	vv := make([]fields.Values, len(vehicles))
	for i, v := range vehicles {
		vv[i] = fields.VehicleValues(i+1, v)
	}

	pages, err := a.AppendFor(ctx, wv, witnessPage)
	if err != nil {
		return nil, err
	}
	vehiclePages, err := a.AppendFor(ctx, vv, vehiclePage)
	if err != nil {
		return nil, err
	}
	return append(pages, vehiclePages...), nil
}
