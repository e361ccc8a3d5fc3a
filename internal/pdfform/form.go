// Package pdfform reads and writes AcroForm fields directly on pdfcpu's object
// model. It fills values and asks viewers to regenerate appearances; it never
// flattens.
package pdfform

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

var (
	// ErrFieldNotFound is returned when a name is not in the field dictionary.
	ErrFieldNotFound = errors.New("field not found")
	// ErrFieldKind is returned when a setter does not match the widget type.
	ErrFieldKind = errors.New("field kind mismatch")
	// ErrNoAcroForm is returned by operations that need a form on a document without one.
	ErrNoAcroForm = errors.New("document has no AcroForm")
)

// FieldKind classifies terminal fields.
type FieldKind int

const (
	KindOther FieldKind = iota
	KindText
	KindCheckbox
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCheckbox:
		return "checkbox"
	default:
		return "other"
	}
}

// Button field flags.
const (
	ffRadio      = 1 << 15
	ffPushbutton = 1 << 16
)

type field struct {
	name    string
	dict    types.Dict
	parent  types.Dict
	kind    FieldKind
	widgets []types.Dict
}

// Form is an opened PDF with its field dictionary indexed by fully qualified
// name. A Form is not safe for concurrent use.
type Form struct {
	ctx      *model.Context
	acroForm types.Dict
	fields   map[string]*field
	logger   *slog.Logger
}

// Configuration is the pdfcpu configuration every read and write in this
// package uses: relaxed validation and no optimisation pass.
func Configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.Optimize = false
	conf.OptimizeResourceDicts = false
	conf.OptimizeDuplicateContentStreams = false
	return conf
}

// Read parses a PDF and indexes its form fields.
func Read(rs io.ReadSeeker, logger *slog.Logger) (*Form, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := api.ReadContext(rs, Configuration())
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("failed to ensure page count: %w", err)
	}
	f := &Form{ctx: ctx, fields: make(map[string]*field), logger: logger}
	if err := f.index(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Form) index() error {
	catalog, err := f.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	obj, found := catalog.Find("AcroForm")
	if !found {
		return nil
	}
	acroForm, err := f.ctx.DereferenceDict(obj)
	if err != nil {
		return fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroForm == nil {
		return nil
	}
	f.acroForm = acroForm

	fieldsObj, found := acroForm.Find("Fields")
	if !found {
		return nil
	}
	arr, err := f.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return fmt.Errorf("failed to dereference Fields array: %w", err)
	}
	for _, o := range arr {
		if err := f.walk(o, "", "", nil, 0); err != nil {
			f.logger.Warn("Skipping unreadable form field.", "error", err)
		}
	}
	return nil
}

const maxFieldDepth = 32

func (f *Form) walk(o types.Object, prefix, inheritedFT string, parent types.Dict, depth int) error {
	if depth > maxFieldDepth {
		return fmt.Errorf("field tree deeper than %d under %q", maxFieldDepth, prefix)
	}
	d, err := f.ctx.DereferenceDict(o)
	if err != nil {
		return fmt.Errorf("failed to dereference field: %w", err)
	}
	if d == nil {
		return nil
	}

	name := prefix
	if t, found := d.Find("T"); found {
		partial, err := f.ctx.DereferenceStringOrHexLiteral(t, model.V10, nil)
		if err != nil {
			return fmt.Errorf("failed to read field name under %q: %w", prefix, err)
		}
		if prefix == "" {
			name = partial
		} else {
			name = prefix + "." + partial
		}
	}

	ft := inheritedFT
	if ftObj, found := d.Find("FT"); found {
		if n, err := f.ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			ft = string(n)
		}
	}

	var widgets []types.Dict
	if kidsObj, found := d.Find("Kids"); found {
		kids, err := f.ctx.DereferenceArray(kidsObj)
		if err != nil {
			return fmt.Errorf("failed to dereference Kids of %q: %w", name, err)
		}
		for _, k := range kids {
			kd, err := f.ctx.DereferenceDict(k)
			if err != nil || kd == nil {
				continue
			}
			if _, isField := kd.Find("T"); isField {
				if err := f.walk(k, name, ft, d, depth+1); err != nil {
					f.logger.Warn("Skipping unreadable form field.", "parent", name, "error", err)
				}
				continue
			}
			widgets = append(widgets, kd)
		}
		if len(widgets) == 0 {
			return nil
		}
	}
	if sub := d.NameEntry("Subtype"); sub != nil && *sub == "Widget" {
		widgets = append(widgets, d)
	}
	if name == "" {
		return nil
	}

	f.fields[name] = &field{
		name:    name,
		dict:    d,
		parent:  parent,
		kind:    f.classify(d, parent, ft),
		widgets: widgets,
	}
	return nil
}

func (f *Form) classify(d, parent types.Dict, ft string) FieldKind {
	switch ft {
	case "Tx":
		return KindText
	case "Btn":
		flags := f.intEntry(d, "Ff")
		if flags == 0 && parent != nil {
			flags = f.intEntry(parent, "Ff")
		}
		if flags&(ffRadio|ffPushbutton) != 0 {
			return KindOther
		}
		return KindCheckbox
	default:
		return KindOther
	}
}

func (f *Form) intEntry(d types.Dict, key string) int {
	o, found := d.Find(key)
	if !found {
		return 0
	}
	i, err := f.ctx.DereferenceInteger(o)
	if err != nil || i == nil {
		return 0
	}
	return int(*i)
}

func (f *Form) lookup(name string, kind FieldKind) (*field, error) {
	fld, ok := f.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	if fld.kind != kind {
		return nil, fmt.Errorf("%w: %q is %s, want %s", ErrFieldKind, name, fld.kind, kind)
	}
	return fld, nil
}

// HasAcroForm reports whether the document carries an interactive form.
func (f *Form) HasAcroForm() bool { return f.acroForm != nil }

// PageCount returns the number of pages.
func (f *Form) PageCount() int { return f.ctx.PageCount }

// FieldCount returns the number of indexed terminal fields.
func (f *Form) FieldCount() int { return len(f.fields) }

// FieldNames returns every terminal field name in sorted order.
func (f *Form) FieldNames() []string {
	names := make([]string, 0, len(f.fields))
	for n := range f.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Kind returns the kind of a named field.
func (f *Form) Kind(name string) (FieldKind, bool) {
	fld, ok := f.fields[name]
	if !ok {
		return KindOther, false
	}
	return fld.kind, true
}

// RequestAppearanceRegeneration sets /NeedAppearances on the AcroForm so the
// viewer rebuilds widget appearances, including checkboxes that never had a
// baked glyph. Must never be combined with flattening the same document.
func (f *Form) RequestAppearanceRegeneration() error {
	if f.acroForm == nil {
		return ErrNoAcroForm
	}
	f.acroForm["NeedAppearances"] = types.Boolean(true)
	return nil
}

// NeedAppearances reports the current /NeedAppearances flag.
func (f *Form) NeedAppearances() bool {
	if f.acroForm == nil {
		return false
	}
	o, found := f.acroForm.Find("NeedAppearances")
	if !found {
		return false
	}
	o, err := f.ctx.Dereference(o)
	if err != nil {
		return false
	}
	b, ok := o.(types.Boolean)
	return ok && bool(b)
}

// RenameFields renames every top-level terminal field through rename. Nested
// fields keep their names; the templates this pipeline copies do not nest.
func (f *Form) RenameFields(rename func(string) string) {
	renamed := make(map[string]*field, len(f.fields))
	for name, fld := range f.fields {
		if fld.parent != nil {
			renamed[name] = fld
			continue
		}
		next := rename(name)
		fld.dict["T"] = encodeText(next)
		fld.name = next
		renamed[next] = fld
	}
	f.fields = renamed
}

// Write serializes the document. No optimisation or compression pass runs.
func (f *Form) Write(w io.Writer) error {
	if err := api.WriteContext(f.ctx, w); err != nil {
		return fmt.Errorf("failed to write PDF context: %w", err)
	}
	return nil
}
