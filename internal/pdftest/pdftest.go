// Package pdftest builds small, well-formed PDF files with AcroForm fields for
// tests. Streams are left uncompressed so tests can look for page text in the
// output bytes.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Field kinds.
const (
	Text     = "text"
	Checkbox = "checkbox"
)

// FieldSpec describes one form field, which is also its own widget.
type FieldSpec struct {
	Name string
	Kind string
	// On is the export value of a checkbox's on-state. Defaults to "Yes".
	On   string
	Page int
	// Rect is [llx lly urx ury]. Defaults to a 200x14 box.
	Rect [4]float64
	// NoAppearance drops the checkbox's /AP dictionary, as seen on widgets
	// whose glyphs were never baked.
	NoAppearance bool
	// NoDA drops the field's own default appearance string.
	NoDA bool
}

// Spec describes a whole document.
type Spec struct {
	Pages  int
	Fields []FieldSpec
	// PageText is drawn on the matching page (index-aligned, may be shorter).
	PageText []string
	// BareAcroForm omits the form-level /DA and /DR entries.
	BareAcroForm bool
}

type builder struct {
	buf     bytes.Buffer
	offsets []int
}

func (b *builder) reserve() int {
	b.offsets = append(b.offsets, 0)
	return len(b.offsets)
}

func (b *builder) write(num int, body string) {
	b.offsets[num-1] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

func (b *builder) stream(num int, dict, content string) {
	b.write(num, fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(content), content))
}

// Build renders spec to PDF bytes.
func Build(spec Spec) []byte {
	if spec.Pages <= 0 {
		spec.Pages = 1
	}
	b := &builder{}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	catalog := b.reserve()
	pages := b.reserve()
	font := b.reserve()
	acroForm := 0
	if len(spec.Fields) > 0 {
		acroForm = b.reserve()
	}

	pageNums := make([]int, spec.Pages)
	contentNums := make([]int, spec.Pages)
	for i := range pageNums {
		pageNums[i] = b.reserve()
		contentNums[i] = b.reserve()
	}

	fieldNums := make([]int, len(spec.Fields))
	annots := make([][]string, spec.Pages)
	for i, f := range spec.Fields {
		fieldNums[i] = b.reserve()
		p := f.Page
		if p < 0 || p >= spec.Pages {
			p = 0
		}
		annots[p] = append(annots[p], ref(fieldNums[i]))
	}

	if acroForm != 0 {
		b.write(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s /AcroForm %s >>", ref(pages), ref(acroForm)))
	} else {
		b.write(catalog, fmt.Sprintf("<< /Type /Catalog /Pages %s >>", ref(pages)))
	}

	kids := make([]string, spec.Pages)
	for i, n := range pageNums {
		kids[i] = ref(n)
	}
	b.write(pages, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), spec.Pages))
	b.write(font, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	if acroForm != 0 {
		refs := make([]string, len(fieldNums))
		for i, n := range fieldNums {
			refs[i] = ref(n)
		}
		if spec.BareAcroForm {
			b.write(acroForm, fmt.Sprintf("<< /Fields [%s] >>", strings.Join(refs, " ")))
		} else {
			b.write(acroForm, fmt.Sprintf("<< /Fields [%s] /DA (/Helv 0 Tf 0 g) /DR << /Font << /Helv %s >> >> >>", strings.Join(refs, " "), ref(font)))
		}
	}

	for i := range pageNums {
		text := fmt.Sprintf("Page %d", i+1)
		if i < len(spec.PageText) && spec.PageText[i] != "" {
			text = spec.PageText[i]
		}
		content := fmt.Sprintf("BT /Helv 12 Tf 72 720 Td (%s) Tj ET", Escape(text))
		b.stream(contentNums[i], "", content)
		annotEntry := ""
		if len(annots[i]) > 0 {
			annotEntry = fmt.Sprintf(" /Annots [%s]", strings.Join(annots[i], " "))
		}
		b.write(pageNums[i], fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 612 792] /Resources << /Font << /Helv %s >> >> /Contents %s%s >>",
			ref(pages), ref(font), ref(contentNums[i]), annotEntry))
	}

	for i, f := range spec.Fields {
		b.writeField(fieldNums[i], pageNums[clampPage(f.Page, spec.Pages)], f)
	}

	return b.finish(catalog)
}

func (b *builder) writeField(num, page int, f FieldSpec) {
	rect := f.Rect
	if rect == [4]float64{} {
		rect = [4]float64{50, 50, 250, 64}
	}
	common := fmt.Sprintf("/Type /Annot /Subtype /Widget /T (%s) /Rect [%g %g %g %g] /P %s /F 4",
		Escape(f.Name), rect[0], rect[1], rect[2], rect[3], ref(page))

	switch f.Kind {
	case Checkbox:
		on := f.On
		if on == "" {
			on = "Yes"
		}
		ap := ""
		if !f.NoAppearance {
			onStream := b.reserve()
			offStream := b.reserve()
			bbox := fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 %g %g]", rect[2]-rect[0], rect[3]-rect[1])
			b.stream(onStream, bbox, "q 0 g 1 1 8 8 re f Q")
			b.stream(offStream, bbox, "q Q")
			ap = fmt.Sprintf(" /AP << /N << /%s %s /Off %s >> >>", on, ref(onStream), ref(offStream))
		}
		da := " /DA (/ZaDb 0 Tf 0 g)"
		if f.NoDA {
			da = ""
		}
		b.write(num, fmt.Sprintf("<< %s /FT /Btn /V /Off /AS /Off%s%s /MK << /CA (4) >> >>", common, da, ap))
	default:
		da := " /DA (/Helv 10 Tf 0 g)"
		if f.NoDA {
			da = ""
		}
		b.write(num, fmt.Sprintf("<< %s /FT /Tx%s >>", common, da))
	}
}

func (b *builder) finish(root int) []byte {
	xref := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", len(b.offsets)+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for _, off := range b.offsets {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %s >>\nstartxref\n%d\n%%%%EOF\n", len(b.offsets)+1, ref(root), xref)
	return b.buf.Bytes()
}

func clampPage(p, n int) int {
	if p < 0 || p >= n {
		return 0
	}
	return p
}

func ref(n int) string { return fmt.Sprintf("%d 0 R", n) }

// Escape escapes a PDF literal string body.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// RenderedPage returns a one-page document carrying text, standing in for a
// page printed by the browser.
func RenderedPage(text string) []byte {
	return Build(Spec{Pages: 1, PageText: []string{text}})
}
