// Package reconcile is the tree alignment and reconciliation engine. It
// prepares two section fragments for diffing, hands the actual alignment to
// the remote diff engine, and reconciles the raw merged output into a
// correctly ordered, minimally fragmented annotated tree.
package reconcile

import (
	"strconv"

	"github.com/nicolagi/specdiff/internal/fragment"
	"github.com/nicolagi/specdiff/internal/marker"
)

// OrdinalAttr is the reserved attribute carrying a node's identity ordinal
// between numbering and strip. Specification sources use data-* attributes
// of their own, but none with this name.
const OrdinalAttr = "data-ordinal"

type side int

const (
	leftSide  side = 0
	rightSide side = 1
)

// number returns a copy of the tree with every element tagged with a fresh
// identity ordinal. Sides draw from disjoint namespaces (left even, right
// odd), so an ordinal can never match across sides; ordinals only ever
// identify two pieces of the same original element on the same side.
func number(f *fragment.Fragment, s side) *fragment.Fragment {
	next := int(s)
	var walk func(f *fragment.Fragment) *fragment.Fragment
	walk = func(f *fragment.Fragment) *fragment.Fragment {
		g := f.CloneHeader()
		if g.Attr == nil {
			g.Attr = make(map[string]string, 1)
		}
		g.Attr[OrdinalAttr] = strconv.Itoa(next)
		next += 2
		for _, c := range f.Children {
			if cf, ok := c.(*fragment.Fragment); ok {
				g.Children = append(g.Children, walk(cf))
			} else {
				g.Children = append(g.Children, c)
			}
		}
		return g
	}
	return walk(f)
}

// strip returns a copy of the tree without identity ordinals. Ordinals never
// survive an invocation, asymmetric or not.
func strip(f *fragment.Fragment) *fragment.Fragment {
	g := f.CloneHeader()
	delete(g.Attr, OrdinalAttr)
	if len(g.Attr) == 0 {
		g.Attr = nil
	}
	for _, c := range f.Children {
		if cf, ok := c.(*fragment.Fragment); ok {
			g.Children = append(g.Children, strip(cf))
		} else {
			g.Children = append(g.Children, c)
		}
	}
	return g
}

func sameOrdinal(a, b *fragment.Fragment) bool {
	oa, ok := a.Attr[OrdinalAttr]
	if !ok {
		return false
	}
	ob, ok := b.Attr[OrdinalAttr]
	return ok && oa == ob
}

// combineListItems merges adjacent list-item siblings still carrying the
// same identity ordinal, at any depth: the undo of pre-split's item
// splitting. Item boundaries are semantically significant, which is why this
// runs before serialization rather than waiting for the generic post-diff
// combine.
func combineListItems(f *fragment.Fragment) *fragment.Fragment {
	g := f.CloneHeader()
	for _, c := range f.Children {
		cf, ok := c.(*fragment.Fragment)
		if !ok {
			g.Children = append(g.Children, c)
			continue
		}
		merged := combineListItems(cf)
		if last := lastElement(g.Children); last != nil &&
			merged.Name == "li" && last.Name == "li" && sameOrdinal(last, merged) {
			last.Children = append(last.Children, merged.Children...)
			continue
		}
		g.Children = append(g.Children, merged)
	}
	return g
}

// combineTopLevel merges adjacent top-level elements of any tag sharing an
// identity ordinal: the generic undo of pre-split's over-splitting, run once
// diffing is done.
func combineTopLevel(f *fragment.Fragment) *fragment.Fragment {
	g := f.CloneHeader()
	for _, c := range f.Children {
		cf, ok := c.(*fragment.Fragment)
		if !ok {
			g.Children = append(g.Children, c)
			continue
		}
		cf = cf.Clone()
		if last := lastElement(g.Children); last != nil &&
			cf.Name == last.Name && sameOrdinal(last, cf) {
			last.Children = append(last.Children, cf.Children...)
			continue
		}
		g.Children = append(g.Children, cf)
	}
	return g
}

// lastElement returns the trailing child if it is an element immediately at
// the end of the list, nil otherwise.
func lastElement(children []fragment.Child) *fragment.Fragment {
	if len(children) == 0 {
		return nil
	}
	last, _ := children[len(children)-1].(*fragment.Fragment)
	return last
}

// normalizeOrder restores the engine's deletion-before-insertion adjacency.
// Combining can merge a node ending in insertion wrappers with a node
// starting with deletion wrappers, which leaves (ins, del) pairs; each
// deletion wrapper moves left past the whole contiguous run of insertion
// wrappers in front of it, at every level. Afterwards no (ins, del)
// adjacency remains, so one pass reaches a fixed point and the stage is
// idempotent. Relative order within the insertions and within the deletions
// is preserved.
func normalizeOrder(f *fragment.Fragment) *fragment.Fragment {
	g := f.CloneHeader()
	children := make([]fragment.Child, 0, len(f.Children))
	for _, c := range f.Children {
		if cf, ok := c.(*fragment.Fragment); ok {
			children = append(children, normalizeOrder(cf))
		} else {
			children = append(children, c)
		}
	}
	for i := 1; i < len(children); i++ {
		b, ok := children[i].(*fragment.Fragment)
		if !ok || !b.IsDeletion() {
			continue
		}
		for j := i; j > 0; j-- {
			a, ok := children[j-1].(*fragment.Fragment)
			if !ok || !a.IsInsertion() {
				break
			}
			children[j-1], children[j] = children[j], children[j-1]
		}
	}
	g.Children = children
	return g
}

// countChanges counts insertion and deletion wrappers in the reconciled
// tree, for the net-change summary.
func countChanges(f *fragment.Fragment) (inserted, deleted int) {
	for _, c := range f.Children {
		cf, ok := c.(*fragment.Fragment)
		if !ok {
			continue
		}
		if cf.IsInsertion() {
			inserted++
		}
		if cf.IsDeletion() {
			deleted++
		}
		i, d := countChanges(cf)
		inserted += i
		deleted += d
	}
	return inserted, deleted
}

// MarkerAttr carries the rendered list marker of an <li>. Markers are
// recomputed from scratch on every render; a cached marker would go stale
// the moment a diff inserts or removes an item.
const MarkerAttr = "data-marker"

// annotateListMarkers writes the canonical marker text onto every ordered
// list item. Items inside insertion/deletion wrappers keep counting in their
// parent list's sequence.
func annotateListMarkers(f *fragment.Fragment) *fragment.Fragment {
	return annotateMarkers(f, 0)
}

func annotateMarkers(f *fragment.Fragment, depth int) *fragment.Fragment {
	g := f.CloneHeader()
	if f.Name == "ol" {
		index := 0
		g.Children = annotateItems(f.Children, depth+1, &index)
		return g
	}
	for _, c := range f.Children {
		if cf, ok := c.(*fragment.Fragment); ok {
			g.Children = append(g.Children, annotateMarkers(cf, depth))
		} else {
			g.Children = append(g.Children, c)
		}
	}
	return g
}

func annotateItems(children []fragment.Child, depth int, index *int) []fragment.Child {
	var out []fragment.Child
	for _, c := range children {
		cf, ok := c.(*fragment.Fragment)
		if !ok {
			out = append(out, c)
			continue
		}
		switch {
		case cf.Name == "li":
			item := annotateMarkers(cf, depth)
			if item.Attr == nil {
				item.Attr = make(map[string]string, 1)
			}
			item.Attr[MarkerAttr] = marker.Text(*index, depth)
			*index++
			out = append(out, item)
		case cf.IsInsertion() || cf.IsDeletion():
			w := cf.CloneHeader()
			w.Children = annotateItems(cf.Children, depth, index)
			out = append(out, w)
		default:
			out = append(out, annotateMarkers(cf, depth))
		}
	}
	return out
}
