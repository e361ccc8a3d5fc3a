// Package templates describes the PDF form templates the report is built from:
// page layout and the field dictionary each revision is expected to carry.
package templates

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Template names used in manifest.yaml.
const (
	MainTemplate      = "incident-report"
	RepeatingTemplate = "witness-vehicle"
)

// Repeating page roles.
const (
	PageWitness = "witness"
	PageVehicle = "vehicle"
)

//go:embed manifest.yaml
var manifestYAML []byte

// Field is one entry of a template's field dictionary.
type Field struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// On is the declared export value of a checkbox.
	On string `yaml:"on,omitempty"`
	// Page is only set for templates whose fields are page-specific.
	Page int `yaml:"page,omitempty"`
}

// Layout is the single declared fact about where things sit in a template.
type Layout struct {
	Name               string         `yaml:"name"`
	Revision           string         `yaml:"revision"`
	TotalPages         int            `yaml:"totalPages"`
	DynamicBlockStart  int            `yaml:"dynamicBlockStart"`
	DynamicBlockLength int            `yaml:"dynamicBlockLength"`
	Pages              map[string]int `yaml:"pages,omitempty"`
	Fields             []Field        `yaml:"fields"`
}

type manifest struct {
	Templates []Layout `yaml:"templates"`
}

var (
	loadOnce sync.Once
	layouts  map[string]Layout
	loadErr  error
)

func load() (map[string]Layout, error) {
	loadOnce.Do(func() {
		layouts, loadErr = Parse(manifestYAML)
	})
	return layouts, loadErr
}

// Parse decodes and validates a manifest document.
func Parse(data []byte) (map[string]Layout, error) {
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode template manifest: %w", err)
	}
	out := make(map[string]Layout, len(m.Templates))
	for _, l := range m.Templates {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[l.Name]; dup {
			return nil, fmt.Errorf("template %q declared twice", l.Name)
		}
		out[l.Name] = l
	}
	return out, nil
}

// Get returns the layout registered under name.
func Get(name string) (Layout, error) {
	all, err := load()
	if err != nil {
		return Layout{}, err
	}
	l, ok := all[name]
	if !ok {
		return Layout{}, fmt.Errorf("unknown template %q", name)
	}
	return l, nil
}

// Main returns the main report template layout. The manifest is embedded, so a
// failure here is a build defect.
func Main() Layout { return mustGet(MainTemplate) }

// Repeating returns the witness/vehicle template layout.
func Repeating() Layout { return mustGet(RepeatingTemplate) }

func mustGet(name string) Layout {
	l, err := Get(name)
	if err != nil {
		panic(err)
	}
	return l
}

// Validate checks the layout's page arithmetic.
func (l Layout) Validate() error {
	if l.Name == "" {
		return fmt.Errorf("template layout without a name")
	}
	if l.TotalPages <= 0 {
		return fmt.Errorf("template %q: totalPages must be positive", l.Name)
	}
	if l.DynamicBlockStart < 0 || l.DynamicBlockLength < 0 {
		return fmt.Errorf("template %q: dynamic block must not be negative", l.Name)
	}
	if l.DynamicBlockStart+l.DynamicBlockLength > l.TotalPages {
		return fmt.Errorf("template %q: dynamic block [%d,%d) exceeds %d pages", l.Name, l.DynamicBlockStart, l.DynamicBlockStart+l.DynamicBlockLength, l.TotalPages)
	}
	for role, idx := range l.Pages {
		if idx < 0 || idx >= l.TotalPages {
			return fmt.Errorf("template %q: page %q index %d out of range", l.Name, role, idx)
		}
	}
	return nil
}

// DynamicBlockEnd is the first page index after the dynamic block.
func (l Layout) DynamicBlockEnd() int { return l.DynamicBlockStart + l.DynamicBlockLength }

// PageIndex returns the zero-based index of a named page.
func (l Layout) PageIndex(role string) (int, error) {
	idx, ok := l.Pages[role]
	if !ok {
		return 0, fmt.Errorf("template %q has no %q page", l.Name, role)
	}
	return idx, nil
}

// FieldNames returns the declared field names in sorted order.
func (l Layout) FieldNames() []string {
	names := make([]string, 0, len(l.Fields))
	for _, f := range l.Fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// OnStates returns the declared export value of every checkbox.
func (l Layout) OnStates() map[string]string {
	out := make(map[string]string)
	for _, f := range l.Fields {
		if f.Kind == "checkbox" {
			out[f.Name] = f.On
		}
	}
	return out
}

// FieldDiff is the result of comparing a declared field dictionary against the
// one found in an actual template file.
type FieldDiff struct {
	Missing    []string
	Unexpected []string
}

// Empty reports whether both sides agree.
func (d FieldDiff) Empty() bool { return len(d.Missing) == 0 && len(d.Unexpected) == 0 }

// DiffFields compares the declared field names with actual.
func (l Layout) DiffFields(actual []string) FieldDiff {
	have := make(map[string]struct{}, len(actual))
	for _, n := range actual {
		have[n] = struct{}{}
	}
	want := make(map[string]struct{}, len(l.Fields))
	var d FieldDiff
	for _, f := range l.Fields {
		want[f.Name] = struct{}{}
		if _, ok := have[f.Name]; !ok {
			d.Missing = append(d.Missing, f.Name)
		}
	}
	for _, n := range actual {
		if _, ok := want[n]; !ok {
			d.Unexpected = append(d.Unexpected, n)
		}
	}
	sort.Strings(d.Missing)
	sort.Strings(d.Unexpected)
	return d
}
