package assembly

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

// Result is the assembled report. It is built once and not modified again.
type Result struct {
	Bytes     []byte
	PageCount int
}

// Assembler joins page sources according to the main template's layout.
type Assembler struct {
	layout templates.Layout
	logger *slog.Logger
}

// NewAssembler returns an Assembler for layout.
func NewAssembler(layout templates.Layout, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{layout: layout, logger: logger}
}

// Assemble builds the report from the filled template, the rendered dynamic
// pages in block order and the repeating pages (witnesses then vehicles).
// Page objects are copied as they are: nothing is flattened, re-rendered,
// optimized or compressed.
func (a *Assembler) Assemble(filled *pdfform.FilledDocument, rendered, repeating [][]byte) (*Result, error) {
	if err := CheckFilled(filled); err != nil {
		return nil, err
	}
	if filled.PageCount() != a.layout.TotalPages {
		return nil, fmt.Errorf("filled document has %d pages, layout %q declares %d", filled.PageCount(), a.layout.Name, a.layout.TotalPages)
	}
	plan, err := Plan(a.layout, len(rendered), len(repeating))
	if err != nil {
		return nil, err
	}
	conf := pdfform.Configuration()
	for i, r := range rendered {
		if err := singlePage(r, "rendered", i); err != nil {
			return nil, err
		}
	}
	for i, r := range repeating {
		if err := singlePage(r, "repeating", i); err != nil {
			return nil, err
		}
	}

	sources := make([]io.ReadSeeker, 0, 1+len(rendered)+len(repeating))
	sources = append(sources, bytes.NewReader(filled.Bytes()))
	for _, r := range rendered {
		sources = append(sources, bytes.NewReader(r))
	}
	for _, r := range repeating {
		sources = append(sources, bytes.NewReader(r))
	}
	var merged bytes.Buffer
	if err := api.MergeRaw(sources, &merged, false, conf); err != nil {
		return nil, fmt.Errorf("failed to merge page sources: %w", err)
	}

	form, err := pdfform.Read(bytes.NewReader(merged.Bytes()), a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open merged document: %w", err)
	}
	if _, err := form.HoistMergedFields(); err != nil {
		return nil, fmt.Errorf("failed to restore copied field names: %w", err)
	}
	if err := form.SelectPages(mergedOrder(plan, filled.PageCount(), len(rendered))); err != nil {
		return nil, fmt.Errorf("failed to order pages: %w", err)
	}
	adopted, err := form.AdoptWidgets()
	if err != nil {
		return nil, fmt.Errorf("failed to register form fields: %w", err)
	}
	if err := form.RequestAppearanceRegeneration(); err != nil {
		return nil, fmt.Errorf("failed to request appearance regeneration: %w", err)
	}
	var out bytes.Buffer
	if err := form.Write(&out); err != nil {
		return nil, err
	}

	want := len(plan)
	got, err := api.PageCount(bytes.NewReader(out.Bytes()), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to count assembled pages: %w", err)
	}
	if got != want {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrPageCountMismatch, got, want)
	}
	a.logger.Info("Report assembled.", "pages", got, "rendered", len(rendered), "repeating", len(repeating), "fields", form.FieldCount(), "adoptedFields", adopted, "bytes", out.Len())
	return &Result{Bytes: out.Bytes(), PageCount: got}, nil
}

func singlePage(doc []byte, kind string, i int) error {
	n, err := api.PageCount(bytes.NewReader(doc), pdfform.Configuration())
	if err != nil {
		return fmt.Errorf("%s page %d is not a readable PDF: %w", kind, i, err)
	}
	if n != 1 {
		return fmt.Errorf("%s page %d has %d pages, want 1", kind, i, n)
	}
	return nil
}
