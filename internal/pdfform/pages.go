package pdfform

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Page attributes a leaf may inherit from its ancestors in the page tree.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

const maxPageTreeDepth = 64

type pageLeaf struct {
	ref  types.IndirectRef
	dict types.Dict
}

// pages returns the leaf page objects in document order. Attributes inherited
// from intermediate nodes are copied onto each leaf so it can be re-parented.
func (f *Form) pages() (types.IndirectRef, types.Dict, []pageLeaf, error) {
	catalog, err := f.ctx.Catalog()
	if err != nil {
		return types.IndirectRef{}, nil, nil, fmt.Errorf("failed to get catalog: %w", err)
	}
	rootObj, found := catalog.Find("Pages")
	if !found {
		return types.IndirectRef{}, nil, nil, fmt.Errorf("catalog has no page tree")
	}
	rootRef, ok := rootObj.(types.IndirectRef)
	if !ok {
		return types.IndirectRef{}, nil, nil, fmt.Errorf("page tree root is not an indirect object")
	}
	root, err := f.ctx.DereferenceDict(rootRef)
	if err != nil || root == nil {
		return types.IndirectRef{}, nil, nil, fmt.Errorf("failed to dereference page tree root: %v", err)
	}
	var leaves []pageLeaf
	if err := f.collectPages(root, types.Dict{}, 0, &leaves); err != nil {
		return types.IndirectRef{}, nil, nil, err
	}
	return rootRef, root, leaves, nil
}

func (f *Form) collectPages(node, inherited types.Dict, depth int, leaves *[]pageLeaf) error {
	if depth > maxPageTreeDepth {
		return fmt.Errorf("page tree deeper than %d", maxPageTreeDepth)
	}
	next := types.Dict{}
	for k, v := range inherited {
		next[k] = v
	}
	for _, k := range inheritable {
		if v, found := node.Find(k); found {
			next[k] = v
		}
	}
	kidsObj, found := node.Find("Kids")
	if !found {
		return nil
	}
	kids, err := f.ctx.DereferenceArray(kidsObj)
	if err != nil {
		return fmt.Errorf("failed to dereference page tree kids: %w", err)
	}
	for _, k := range kids {
		ref, ok := k.(types.IndirectRef)
		if !ok {
			return fmt.Errorf("page tree kid is not an indirect object")
		}
		d, err := f.ctx.DereferenceDict(ref)
		if err != nil || d == nil {
			return fmt.Errorf("failed to dereference page tree kid %d: %v", int(ref.ObjectNumber), err)
		}
		if t := d.NameEntry("Type"); t != nil && *t == "Pages" {
			if err := f.collectPages(d, next, depth+1, leaves); err != nil {
				return err
			}
			continue
		}
		for k, v := range next {
			if _, has := d.Find(k); !has {
				d[k] = v
			}
		}
		*leaves = append(*leaves, pageLeaf{ref: ref, dict: d})
	}
	return nil
}

// SelectPages rebuilds the page tree so it holds exactly the zero-based pages
// in order. Pages left out are detached along with every form field whose
// widgets all sat on them. Page objects are re-parented, never re-rendered.
func (f *Form) SelectPages(order []int) error {
	rootRef, root, leaves, err := f.pages()
	if err != nil {
		return err
	}
	kids := make(types.Array, 0, len(order))
	kept := make(map[int]bool, len(order))
	for _, i := range order {
		if i < 0 || i >= len(leaves) {
			return fmt.Errorf("page index %d out of range [0,%d)", i, len(leaves))
		}
		leaf := leaves[i]
		num := int(leaf.ref.ObjectNumber)
		if kept[num] {
			return fmt.Errorf("page index %d selected twice", i)
		}
		kept[num] = true
		leaf.dict["Parent"] = rootRef
		kids = append(kids, leaf.ref)
	}
	root["Kids"] = kids
	root["Count"] = types.Integer(len(kids))
	f.ctx.PageCount = len(kids)

	if len(kept) == len(leaves) || f.acroForm == nil {
		return nil
	}
	return f.pruneFields(kept)
}

func (f *Form) pruneFields(kept map[int]bool) error {
	fieldsObj, found := f.acroForm.Find("Fields")
	if !found {
		return nil
	}
	arr, err := f.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return fmt.Errorf("failed to dereference Fields array: %w", err)
	}
	remaining := make(types.Array, 0, len(arr))
	for _, o := range arr {
		if f.onKeptPage(o, kept, 0) {
			remaining = append(remaining, o)
		}
	}
	f.acroForm["Fields"] = remaining
	return f.reindex()
}

// onKeptPage reports whether any widget below o sits on a kept page. Widgets
// without a /P entry are kept.
func (f *Form) onKeptPage(o types.Object, kept map[int]bool, depth int) bool {
	if depth > maxFieldDepth {
		return false
	}
	d, err := f.ctx.DereferenceDict(o)
	if err != nil || d == nil {
		return false
	}
	if kidsObj, found := d.Find("Kids"); found {
		kids, err := f.ctx.DereferenceArray(kidsObj)
		if err == nil {
			for _, k := range kids {
				if f.onKeptPage(k, kept, depth+1) {
					return true
				}
			}
			if len(kids) > 0 {
				return false
			}
		}
	}
	p, found := d.Find("P")
	if !found {
		return true
	}
	ref, ok := p.(types.IndirectRef)
	return !ok || kept[int(ref.ObjectNumber)]
}

// AdoptWidgets registers every top-level widget found on a page but missing
// from the AcroForm's /Fields array, creating the AcroForm if needed. It
// returns the number of fields added.
func (f *Form) AdoptWidgets() (int, error) {
	_, _, leaves, err := f.pages()
	if err != nil {
		return 0, err
	}
	known := make(map[int]bool)
	if f.acroForm != nil {
		if fieldsObj, found := f.acroForm.Find("Fields"); found {
			arr, err := f.ctx.DereferenceArray(fieldsObj)
			if err != nil {
				return 0, fmt.Errorf("failed to dereference Fields array: %w", err)
			}
			for _, o := range arr {
				if ref, ok := o.(types.IndirectRef); ok {
					known[int(ref.ObjectNumber)] = true
				}
			}
		}
	}

	var orphans types.Array
	for _, leaf := range leaves {
		annotsObj, found := leaf.dict.Find("Annots")
		if !found {
			continue
		}
		annots, err := f.ctx.DereferenceArray(annotsObj)
		if err != nil {
			continue
		}
		for _, a := range annots {
			ref, ok := a.(types.IndirectRef)
			if !ok || known[int(ref.ObjectNumber)] {
				continue
			}
			d, err := f.ctx.DereferenceDict(ref)
			if err != nil || d == nil {
				continue
			}
			if sub := d.NameEntry("Subtype"); sub == nil || *sub != "Widget" {
				continue
			}
			if _, isField := d.Find("T"); !isField {
				continue
			}
			if _, hasParent := d.Find("Parent"); hasParent {
				continue
			}
			known[int(ref.ObjectNumber)] = true
			orphans = append(orphans, ref)
		}
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	if f.acroForm == nil {
		if err := f.createAcroForm(); err != nil {
			return 0, err
		}
	}
	var existing types.Array
	if fieldsObj, found := f.acroForm.Find("Fields"); found {
		if arr, err := f.ctx.DereferenceArray(fieldsObj); err == nil {
			existing = arr
		}
	}
	f.acroForm["Fields"] = append(append(types.Array{}, existing...), orphans...)
	if err := f.reindex(); err != nil {
		return 0, err
	}
	return len(orphans), nil
}

func (f *Form) createAcroForm() error {
	catalog, err := f.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	acroForm := types.Dict{
		"Fields": types.Array{},
		"DA":     types.StringLiteral(defaultDA),
	}
	ir, err := f.ctx.IndRefForNewObject(acroForm)
	if err != nil {
		return fmt.Errorf("failed to add AcroForm: %w", err)
	}
	catalog["AcroForm"] = *ir
	f.acroForm = acroForm
	return f.ensureFont(defaultFontName)
}

func (f *Form) reindex() error {
	f.fields = make(map[string]*field)
	f.acroForm = nil
	return f.index()
}
