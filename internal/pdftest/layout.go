package pdftest

import (
	"strconv"

	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

// FromLayout builds a fixture whose field dictionary matches l. Fields without
// an explicit page are spread over the pages outside the dynamic block.
func FromLayout(l templates.Layout) Spec {
	var static []int
	for p := 0; p < l.TotalPages; p++ {
		if p >= l.DynamicBlockStart && p < l.DynamicBlockEnd() {
			continue
		}
		static = append(static, p)
	}
	if len(static) == 0 {
		static = []int{0}
	}

	spec := Spec{Pages: l.TotalPages, PageText: make([]string, l.TotalPages)}
	for p := range spec.PageText {
		spec.PageText[p] = l.Name + " page " + strconv.Itoa(p+1)
	}
	paged := len(l.Pages) > 0
	for i, f := range l.Fields {
		page := static[i%len(static)]
		if paged {
			page = f.Page
		}
		y := 700 - float64(i%40)*16
		fs := FieldSpec{Name: f.Name, Page: page, Rect: [4]float64{60, y, 300, y + 14}}
		if f.Kind == "checkbox" {
			fs.Kind = Checkbox
			fs.On = f.On
			fs.Rect = [4]float64{320, y, 332, y + 12}
		} else {
			fs.Kind = Text
		}
		spec.Fields = append(spec.Fields, fs)
	}
	return spec
}

// MainTemplate builds the main report template fixture.
func MainTemplate() []byte { return Build(FromLayout(templates.Main())) }

// RepeatingTemplate builds the witness/vehicle template fixture.
func RepeatingTemplate() []byte { return Build(FromLayout(templates.Repeating())) }
