package pdfform

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// HoistMergedFields undoes the grouping pdfcpu applies when it merges a form
// into a document that already has one: the source's top-level fields are
// moved under a synthetic parent whose /T is the destination's field count.
// Each such parent is replaced in /Fields by its kids so copied fields keep
// their own names. It returns the number of parents removed.
func (f *Form) HoistMergedFields() (int, error) {
	if f.acroForm == nil {
		return 0, nil
	}
	fieldsObj, found := f.acroForm.Find("Fields")
	if !found {
		return 0, nil
	}
	arr, err := f.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return 0, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	taken := make(map[string]bool)
	for _, o := range arr {
		if _, ok := f.mergeGroup(o); ok {
			continue
		}
		if name, ok := f.partialName(o); ok {
			taken[name] = true
		}
	}

	out := make(types.Array, 0, len(arr))
	hoisted := 0
	for _, o := range arr {
		kids, ok := f.mergeGroup(o)
		if !ok {
			out = append(out, o)
			continue
		}
		names := make([]string, 0, len(kids))
		clash := ""
		for _, k := range kids {
			name, _ := f.partialName(k)
			if taken[name] {
				clash = name
				break
			}
			names = append(names, name)
		}
		if clash != "" {
			f.logger.Warn("Keeping merged field group, a copied field name is already taken.", "field", clash)
			out = append(out, o)
			continue
		}
		for i, k := range kids {
			kd, err := f.ctx.DereferenceDict(k)
			if err != nil || kd == nil {
				continue
			}
			delete(kd, "Parent")
			taken[names[i]] = true
			out = append(out, k)
		}
		hoisted++
	}
	if hoisted == 0 {
		return 0, nil
	}
	f.acroForm["Fields"] = out
	if err := f.reindex(); err != nil {
		return 0, err
	}
	return hoisted, nil
}

// mergeGroup reports whether o is a parent created by pdfcpu's merge: a
// numeric /T, no type or value of its own and only field kids.
func (f *Form) mergeGroup(o types.Object) (types.Array, bool) {
	d, err := f.ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return nil, false
	}
	for _, key := range []string{"FT", "V", "Subtype"} {
		if _, found := d.Find(key); found {
			return nil, false
		}
	}
	name, ok := f.partialName(d)
	if !ok || !numeric(name) {
		return nil, false
	}
	kidsObj, found := d.Find("Kids")
	if !found {
		return nil, false
	}
	kids, err := f.ctx.DereferenceArray(kidsObj)
	if err != nil || len(kids) == 0 {
		return nil, false
	}
	for _, k := range kids {
		if _, ok := f.partialName(k); !ok {
			return nil, false
		}
	}
	return kids, true
}

func (f *Form) partialName(o types.Object) (string, bool) {
	d, err := f.ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return "", false
	}
	t, found := d.Find("T")
	if !found {
		return "", false
	}
	name, err := f.ctx.DereferenceStringOrHexLiteral(t, model.V10, nil)
	if err != nil {
		return "", false
	}
	return name, true
}

func numeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
