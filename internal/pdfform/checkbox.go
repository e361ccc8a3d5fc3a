package pdfform

import (
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const offState = "Off"

// SetCheck checks a checkbox by writing token as both its value and the
// appearance state of every widget.
func (f *Form) SetCheck(name, token string) error {
	fld, err := f.lookup(name, KindCheckbox)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("empty on-token for %q", name)
	}
	f.setState(fld, token)
	return nil
}

// ClearCheck explicitly unchecks a checkbox.
func (f *Form) ClearCheck(name string) error {
	fld, err := f.lookup(name, KindCheckbox)
	if err != nil {
		return err
	}
	f.setState(fld, offState)
	return nil
}

func (f *Form) setState(fld *field, state string) {
	fld.dict["V"] = types.Name(state)
	for _, w := range fld.widgets {
		w["AS"] = types.Name(state)
	}
}

// CheckState returns the checkbox's current /V name, "Off" when unset.
func (f *Form) CheckState(name string) (string, error) {
	fld, err := f.lookup(name, KindCheckbox)
	if err != nil {
		return "", err
	}
	v, found := fld.dict.Find("V")
	if !found {
		return offState, nil
	}
	n, err := f.ctx.DereferenceName(v, model.V10, nil)
	if err != nil {
		return "", fmt.Errorf("failed to read state of %q: %w", name, err)
	}
	if n == "" {
		return offState, nil
	}
	return string(n), nil
}

// DeclaredOnStates reads the on-state each checkbox widget declares in its
// normal appearance dictionary. Checkboxes without appearances are absent from
// the result.
func (f *Form) DeclaredOnStates() map[string]string {
	out := make(map[string]string)
	for name, fld := range f.fields {
		if fld.kind != KindCheckbox {
			continue
		}
		if state := f.declaredOnState(fld); state != "" {
			out[name] = state
		}
	}
	return out
}

func (f *Form) declaredOnState(fld *field) string {
	for _, w := range fld.widgets {
		apObj, found := w.Find("AP")
		if !found {
			continue
		}
		ap, err := f.ctx.DereferenceDict(apObj)
		if err != nil || ap == nil {
			continue
		}
		nObj, found := ap.Find("N")
		if !found {
			continue
		}
		n, err := f.ctx.DereferenceDict(nObj)
		if err != nil || n == nil {
			continue
		}
		states := make([]string, 0, len(n))
		for k := range n {
			if k != offState {
				states = append(states, k)
			}
		}
		if len(states) > 0 {
			sort.Strings(states)
			return states[0]
		}
	}
	return ""
}

// HasAppearance reports whether any widget of the checkbox has a baked /AP.
func (f *Form) HasAppearance(name string) bool {
	fld, ok := f.fields[name]
	if !ok {
		return false
	}
	for _, w := range fld.widgets {
		if _, found := w.Find("AP"); found {
			return true
		}
	}
	return false
}
