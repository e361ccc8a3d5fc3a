package fields

import "sort"

// Kind says which widget setter a Value is meant for.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindCheck
	// KindClear explicitly unchecks a checkbox. Only paired yes/no questions use it.
	KindClear
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindCheck:
		return "check"
	case KindClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Value is a single entry destined for the form template.
type Value struct {
	Kind  Kind
	Text  string
	Check Tristate
	// Fit asks the filler to shrink the font so Text stays inside the box.
	Fit bool
}

// Text builds a text field value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// TextFit builds a text value that is laid out with auto-fit.
func TextFit(s string) Value { return Value{Kind: KindText, Text: s, Fit: true} }

// Check builds a checkbox value.
func Check(t Tristate) Value { return Value{Kind: KindCheck, Check: t} }

// Clear builds an explicit uncheck.
func Clear() Value { return Value{Kind: KindClear, Check: False} }

// Values maps PDF field names to the value to write.
type Values map[string]Value

// SetText records s under name unless s is empty.
func (v Values) SetText(name, s string) {
	if s == "" {
		return
	}
	v[name] = Text(s)
}

// SetCheck records t under name unless it is Absent.
func (v Values) SetCheck(name string, t Tristate) {
	if t == Absent {
		return
	}
	v[name] = Check(t)
}

// SetPair derives both boxes of a yes/no question from one answer: the matching
// box is checked and its partner explicitly cleared. An Absent answer is not a
// boolean and leaves both untouched, the same as any other unanswered datum.
func (v Values) SetPair(yesName, noName string, t Tristate) {
	switch t {
	case True:
		v[yesName] = Check(True)
		v[noName] = Clear()
	case False:
		v[yesName] = Clear()
		v[noName] = Check(True)
	}
}

// Names returns the field names in sorted order.
func (v Values) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Strings renders the set as the flat string map the remote fill service expects:
// text as-is, checkboxes as their resolved token, explicit clears as "Off" and
// skipped checkboxes omitted.
func (v Values) Strings(r *Resolver) map[string]string {
	out := make(map[string]string, len(v))
	for name, val := range v {
		switch val.Kind {
		case KindText:
			out[name] = val.Text
		case KindCheck:
			if tok, ok := r.Resolve(name, val.Check); ok {
				out[name] = string(tok)
			}
		case KindClear:
			out[name] = OffToken
		}
	}
	return out
}
