// Package assembly joins the filled template, the rendered narrative pages and
// the per-record repeating pages into the final report.
package assembly

import (
	"fmt"

	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

// SourceKind says where an output page comes from.
type SourceKind int

const (
	FromTemplate SourceKind = iota
	FromRendered
	FromRepeating
)

func (k SourceKind) String() string {
	switch k {
	case FromTemplate:
		return "template"
	case FromRendered:
		return "rendered"
	case FromRepeating:
		return "repeating"
	default:
		return "unknown"
	}
}

// PageSource is one output page: the Index-th page of its source.
type PageSource struct {
	Kind  SourceKind
	Index int
}

func (p PageSource) String() string { return fmt.Sprintf("%s[%d]", p.Kind, p.Index) }

// Plan lays out the output document: template pages before the dynamic block,
// the rendered pages in place of the block, the remaining template pages and
// then every repeating page in order.
func Plan(l templates.Layout, rendered, repeating int) ([]PageSource, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	if rendered != l.DynamicBlockLength {
		return nil, fmt.Errorf("template %q reserves %d dynamic pages, got %d rendered", l.Name, l.DynamicBlockLength, rendered)
	}
	if repeating < 0 {
		return nil, fmt.Errorf("negative repeating page count %d", repeating)
	}
	plan := make([]PageSource, 0, l.TotalPages+repeating)
	for i := 0; i < l.DynamicBlockStart; i++ {
		plan = append(plan, PageSource{Kind: FromTemplate, Index: i})
	}
	for i := 0; i < rendered; i++ {
		plan = append(plan, PageSource{Kind: FromRendered, Index: i})
	}
	for i := l.DynamicBlockEnd(); i < l.TotalPages; i++ {
		plan = append(plan, PageSource{Kind: FromTemplate, Index: i})
	}
	for i := 0; i < repeating; i++ {
		plan = append(plan, PageSource{Kind: FromRepeating, Index: i})
	}
	return plan, nil
}

// mergedOrder translates a plan into page indexes of the document produced by
// merging [template, rendered..., repeating...] in that order, where every
// rendered and repeating source is a single page.
func mergedOrder(plan []PageSource, templatePages, rendered int) []int {
	order := make([]int, len(plan))
	for i, p := range plan {
		switch p.Kind {
		case FromTemplate:
			order[i] = p.Index
		case FromRendered:
			order[i] = templatePages + p.Index
		case FromRepeating:
			order[i] = templatePages + rendered + p.Index
		}
	}
	return order
}
