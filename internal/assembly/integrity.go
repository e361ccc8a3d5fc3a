package assembly

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
)

var (
	// ErrFlattenedInput is returned when the filled document no longer carries
	// form fields.
	ErrFlattenedInput = errors.New("filled document has no form fields")
	// ErrAppearancesNotRequested is returned when the filled document does not
	// ask the viewer to regenerate widget appearances.
	ErrAppearancesNotRequested = errors.New("filled document does not request appearance regeneration")
	// ErrPageCountMismatch is returned when the assembled page count differs
	// from the planned one.
	ErrPageCountMismatch = errors.New("assembled page count mismatch")
)

// CheckFilled enforces the rule the assembler relies on: its input is filled
// but interactive, with viewer-side appearance regeneration requested. A form
// is never flattened in the same run that requests regeneration.
func CheckFilled(doc *pdfform.FilledDocument) error {
	if doc == nil {
		return errors.New("no filled document")
	}
	if doc.FieldCount() == 0 {
		return ErrFlattenedInput
	}
	if !doc.NeedAppearances() {
		return ErrAppearancesNotRequested
	}
	return nil
}

// Compress runs pdfcpu's optimizer over an assembled report. It is not part
// of report generation: merged documents with filled and rendered sources have
// come out of this pass with broken cross-references and blank pages in some
// viewers. Callers that use it must verify the result themselves.
func Compress(in []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(in), &out, conf); err != nil {
		return nil, fmt.Errorf("failed to optimize report: %w", err)
	}
	return out.Bytes(), nil
}
