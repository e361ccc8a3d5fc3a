package pdfform

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/Lllllllleong/incidentreportflow/internal/textfit"
)

// Text field flags.
const (
	ffMultiline   = 1 << 12
	ffDoNotScroll = 1 << 23
)

const (
	defaultFontName = "Helv"
	defaultDA       = "/Helv 0 Tf 0 g"
	// fieldPadding is subtracted from each side of the widget rectangle.
	fieldPadding = 2.0
)

var errNoStyle = errors.New("no default appearance")

// SetText writes value into a text field.
func (f *Form) SetText(name, value string) error {
	fld, err := f.lookup(name, KindText)
	if err != nil {
		return err
	}
	fld.dict["V"] = encodeText(value)
	return nil
}

// SetTextFit writes value and sizes the field's font so the text stays inside
// the widget, switching the field to multi-line with scrolling. When the field
// has no usable style record and one cannot be synthesized, the text is still
// written with the field's style untouched; the returned bool is false then.
func (f *Form) SetTextFit(name, value string, p textfit.Params) (bool, error) {
	fld, err := f.lookup(name, KindText)
	if err != nil {
		return false, err
	}
	fld.dict["V"] = encodeText(value)

	ff := f.intEntry(fld.dict, "Ff")
	fld.dict["Ff"] = types.Integer((ff | ffMultiline) &^ ffDoNotScroll)

	box, ok := f.widgetBox(fld)
	if !ok {
		return false, nil
	}
	size := textfit.FontSize(box, value, p)

	da, err := f.defaultAppearance(fld)
	if err != nil {
		f.logger.Warn("Leaving field style untouched.", "field", name, "error", err)
		return false, nil
	}
	fld.dict["DA"] = types.StringLiteral(escapeLiteral(withFontSize(da, size)))
	return true, nil
}

// Text reads a text field's current value.
func (f *Form) Text(name string) (string, error) {
	fld, err := f.lookup(name, KindText)
	if err != nil {
		return "", err
	}
	v, found := fld.dict.Find("V")
	if !found && fld.parent != nil {
		v, found = fld.parent.Find("V")
	}
	if !found {
		return "", nil
	}
	s, err := f.ctx.DereferenceStringOrHexLiteral(v, model.V10, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read value of %q: %w", name, err)
	}
	return s, nil
}

// DefaultAppearance returns the raw /DA string that applies to a field.
func (f *Form) DefaultAppearance(name string) (string, bool) {
	fld, ok := f.fields[name]
	if !ok {
		return "", false
	}
	da, err := f.stringEntry(fld.dict, "DA")
	if err == nil && da != "" {
		return da, true
	}
	return "", false
}

// Flags returns a field's /Ff value.
func (f *Form) Flags(name string) int {
	fld, ok := f.fields[name]
	if !ok {
		return 0
	}
	return f.intEntry(fld.dict, "Ff")
}

func (f *Form) widgetBox(fld *field) (textfit.Box, bool) {
	for _, w := range fld.widgets {
		o, found := w.Find("Rect")
		if !found {
			continue
		}
		arr, err := f.ctx.DereferenceArray(o)
		if err != nil || len(arr) != 4 {
			continue
		}
		var c [4]float64
		for i, n := range arr {
			v, err := f.ctx.DereferenceNumber(n)
			if err != nil {
				return textfit.Box{}, false
			}
			c[i] = v
		}
		box := textfit.Box{
			Width:  math.Abs(c[2]-c[0]) - 2*fieldPadding,
			Height: math.Abs(c[3]-c[1]) - 2*fieldPadding,
		}
		if box.Width <= 0 || box.Height <= 0 {
			return textfit.Box{}, false
		}
		return box, true
	}
	return textfit.Box{}, false
}

// defaultAppearance returns the field's /DA, falling back to the form-level
// one and finally synthesizing a Helvetica record. The font the DA names is
// registered in the form's /DR when missing.
func (f *Form) defaultAppearance(fld *field) (string, error) {
	for _, d := range []types.Dict{fld.dict, fld.parent, f.acroForm} {
		if d == nil {
			continue
		}
		if da, err := f.stringEntry(d, "DA"); err == nil && da != "" {
			if err := f.ensureFont(fontName(da)); err != nil {
				return "", err
			}
			return da, nil
		}
	}
	if f.acroForm == nil {
		return "", fmt.Errorf("%w and no AcroForm to attach one to", errNoStyle)
	}
	if err := f.ensureFont(defaultFontName); err != nil {
		return "", err
	}
	return defaultDA, nil
}

func (f *Form) stringEntry(d types.Dict, key string) (string, error) {
	o, found := d.Find(key)
	if !found {
		return "", errNoStyle
	}
	return f.ctx.DereferenceStringOrHexLiteral(o, model.V10, nil)
}

// ensureFont makes sure /DR /Font carries name, adding a standard Helvetica
// font dictionary when it does not.
func (f *Form) ensureFont(name string) error {
	if name == "" {
		return nil
	}
	if f.acroForm == nil {
		return ErrNoAcroForm
	}
	drObj, found := f.acroForm.Find("DR")
	if !found {
		drObj = types.Dict{}
		f.acroForm["DR"] = drObj
	}
	dr, err := f.ctx.DereferenceDict(drObj)
	if err != nil || dr == nil {
		return fmt.Errorf("failed to dereference DR: %v", err)
	}
	fontsObj, found := dr.Find("Font")
	if !found {
		fontsObj = types.Dict{}
		dr["Font"] = fontsObj
	}
	fonts, err := f.ctx.DereferenceDict(fontsObj)
	if err != nil || fonts == nil {
		return fmt.Errorf("failed to dereference DR font dictionary: %v", err)
	}
	if _, ok := fonts.Find(name); ok {
		return nil
	}
	fontDict := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	ir, err := f.ctx.IndRefForNewObject(fontDict)
	if err != nil {
		return fmt.Errorf("failed to add font %s: %w", name, err)
	}
	fonts[name] = *ir
	return nil
}

var tfPattern = regexp.MustCompile(`(/[^\s/]+)\s+[-+]?[0-9]*\.?[0-9]+\s+Tf`)

// withFontSize rewrites the size operand of the DA's Tf operator, inserting a
// Helvetica Tf when there is none.
func withFontSize(da string, size float64) string {
	sz := strconv.FormatFloat(size, 'f', -1, 64)
	if tfPattern.MatchString(da) {
		return tfPattern.ReplaceAllString(da, "${1} "+sz+" Tf")
	}
	return strings.TrimSpace("/" + defaultFontName + " " + sz + " Tf " + da)
}

// FontSize extracts the Tf size from a DA string.
func FontSize(da string) (float64, bool) {
	m := tfPattern.FindString(da)
	if m == "" {
		return 0, false
	}
	parts := strings.Fields(m)
	v, err := strconv.ParseFloat(parts[len(parts)-2], 64)
	return v, err == nil
}

func fontName(da string) string {
	m := tfPattern.FindStringSubmatch(da)
	if m == nil {
		return ""
	}
	return strings.TrimPrefix(m[1], "/")
}

// encodeText produces a PDF string object: a literal for printable ASCII and a
// UTF-16BE hex string with BOM for anything else.
func encodeText(s string) types.Object {
	if isPrintableASCII(s) {
		return types.StringLiteral(escapeLiteral(s))
	}
	units := utf16.Encode([]rune(s))
	b := make([]byte, 2, 2+2*len(units))
	b[0], b[1] = 0xFE, 0xFF
	for _, u := range units {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.HexLiteral(hex.EncodeToString(b))
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e {
			if c != '\n' && c != '\r' && c != '\t' {
				return false
			}
		}
	}
	return true
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", `\r`, "\n", `\n`, "\t", `\t`)

func escapeLiteral(s string) string { return literalEscaper.Replace(s) }
