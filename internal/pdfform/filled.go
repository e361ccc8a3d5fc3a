package pdfform

import (
	"bytes"
	"fmt"
)

// FilledDocument is a filled but still interactive template. There is no way to
// flatten one: the type only offers read access to the bytes it was built from.
type FilledDocument struct {
	data            []byte
	pageCount       int
	fieldCount      int
	needAppearances bool
	Report          FillReport
}

// NewFilledDocument wraps bytes filled elsewhere, such as by the remote
// document service, reading back the properties assembly relies on.
func NewFilledDocument(data []byte) (*FilledDocument, error) {
	form, err := Read(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read filled document: %w", err)
	}
	return &FilledDocument{
		data:            data,
		pageCount:       form.PageCount(),
		fieldCount:      form.FieldCount(),
		needAppearances: form.NeedAppearances(),
	}, nil
}

// Bytes returns the serialized document. Callers must not modify it.
func (d *FilledDocument) Bytes() []byte { return d.data }

// PageCount returns the number of pages.
func (d *FilledDocument) PageCount() int { return d.pageCount }

// FieldCount returns the number of form fields still present.
func (d *FilledDocument) FieldCount() int { return d.fieldCount }

// NeedAppearances reports whether viewer-side appearance regeneration is on.
func (d *FilledDocument) NeedAppearances() bool { return d.needAppearances }
