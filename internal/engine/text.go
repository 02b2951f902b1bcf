package engine

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/net/html"

	"github.com/nicolagi/specdiff/internal/fragment"
)

// textDiff merges two plain markup strings into one annotated string.
// Deletions always precede insertions at a shared position; the pipeline's
// order normalization counts on that.
func textDiff(s1, s2 string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(s1, s2, false))
	for i := 1; i < len(diffs); i++ {
		if diffs[i-1].Type == diffmatchpatch.DiffInsert && diffs[i].Type == diffmatchpatch.DiffDelete {
			diffs[i-1], diffs[i] = diffs[i], diffs[i-1]
		}
	}
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(`<` + fragment.DeletedName + ` class="` + fragment.ClassDeleted + ` ` + fragment.ClassChange + `">`)
			b.WriteString(html.EscapeString(d.Text))
			b.WriteString(`</` + fragment.DeletedName + `>`)
		case diffmatchpatch.DiffInsert:
			b.WriteString(`<` + fragment.InsertedName + ` class="` + fragment.ClassInserted + ` ` + fragment.ClassChange + `">`)
			b.WriteString(html.EscapeString(d.Text))
			b.WriteString(`</` + fragment.InsertedName + `>`)
		default:
			b.WriteString(html.EscapeString(d.Text))
		}
	}
	return b.String()
}

// splitForDiff re-segments both markup strings so that a list-item boundary
// present on one side, landing inside text the two sides share, gets a
// matching boundary injected on the other side. The injected item carries
// the same attributes as the item it was cut from, so both halves share an
// identity ordinal; the pipeline's combine stages reassemble them after
// diffing.
func splitForDiff(s1, s2 string) ([2]string, error) {
	f1, err := fragment.Parse(s1)
	if err != nil {
		return [2]string{}, err
	}
	f2, err := fragment.Parse(s2)
	if err != nil {
		return [2]string{}, err
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(f1.Text(), f2.Text(), false)
	cuts2 := mapBoundaries(listBoundaries(f1), diffs, false)
	cuts1 := mapBoundaries(listBoundaries(f2), diffs, true)
	f1 = splitListItems(f1, cuts1)
	f2 = splitListItems(f2, cuts2)
	return [2]string{f1.InnerHTML(), f2.InnerHTML()}, nil
}

// listBoundaries returns, in document order, the text offsets at which one
// list item ends and an adjacent sibling list item begins. Whitespace-only
// text and comments between the two items do not break adjacency.
func listBoundaries(root *fragment.Fragment) []int {
	var bounds []int
	pos := 0
	var walk func(f *fragment.Fragment)
	walk = func(f *fragment.Fragment) {
		pendingEnd := -1
		for _, c := range f.Children {
			switch c := c.(type) {
			case fragment.Text:
				if !whitespaceOnly(string(c)) {
					pendingEnd = -1
				}
				pos += len(c)
			case fragment.Comment:
				// Keeps adjacency.
			case *fragment.Fragment:
				if c.Name == "li" && pendingEnd >= 0 {
					bounds = append(bounds, pendingEnd)
				}
				walk(c)
				if c.Name == "li" {
					pendingEnd = pos
				} else {
					pendingEnd = -1
				}
			}
		}
	}
	walk(root)
	return bounds
}

func whitespaceOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// mapBoundaries translates text offsets from one side to the other through
// the equal runs of the diff. An offset is only translatable if it falls
// strictly inside text both sides share.
func mapBoundaries(bounds []int, diffs []diffmatchpatch.Diff, fromRight bool) []int {
	var out []int
	for _, o := range bounds {
		if m, ok := mapOffset(diffs, o, fromRight); ok {
			out = append(out, m)
		}
	}
	sort.Ints(out)
	dedup := out[:0]
	for i, o := range out {
		if i == 0 || o != out[i-1] {
			dedup = append(dedup, o)
		}
	}
	return dedup
}

func mapOffset(diffs []diffmatchpatch.Diff, o int, fromRight bool) (int, bool) {
	from, to := 0, 0
	for _, d := range diffs {
		n := len(d.Text)
		switch {
		case d.Type == diffmatchpatch.DiffEqual:
			if o > from && o < from+n {
				return to + (o - from), true
			}
			from += n
			to += n
		case (d.Type == diffmatchpatch.DiffDelete) != fromRight:
			// Text present only on the side we map from.
			from += n
		default:
			to += n
		}
	}
	return 0, false
}

// splitListItems rebuilds the tree with every list item containing a cut
// offset split in two at that offset. Cuts are applied only where they land
// in a list item's direct text children (or exactly between two of its
// children); cuts buried in nested structure are discarded rather than
// guessed at.
func splitListItems(root *fragment.Fragment, cuts []int) *fragment.Fragment {
	if len(cuts) == 0 {
		return root
	}
	s := &splitter{cuts: cuts}
	out := root.CloneHeader()
	out.Children = s.children(root)
	return out
}

type splitter struct {
	cuts []int
	pos  int
}

// nextCut returns the smallest unapplied cut at or past the current
// position, discarding any the walk has already moved beyond.
func (s *splitter) nextCut() int {
	for len(s.cuts) > 0 && s.cuts[0] < s.pos {
		s.cuts = s.cuts[1:]
	}
	if len(s.cuts) == 0 {
		return -1
	}
	return s.cuts[0]
}

func (s *splitter) takeCut() {
	s.cuts = s.cuts[1:]
}

func (s *splitter) children(f *fragment.Fragment) []fragment.Child {
	var out []fragment.Child
	for _, c := range f.Children {
		switch c := c.(type) {
		case fragment.Text:
			s.pos += len(c)
			out = append(out, c)
		case fragment.Comment:
			out = append(out, c)
		case *fragment.Fragment:
			if c.Name == "li" {
				out = append(out, s.splitItem(c)...)
			} else {
				g := c.CloneHeader()
				g.Children = s.children(c)
				out = append(out, g)
			}
		}
	}
	return out
}

func (s *splitter) splitItem(li *fragment.Fragment) []fragment.Child {
	start := s.pos
	end := start + li.TextLen()
	var pieces []fragment.Child
	current := li.CloneHeader()
	closePiece := func() {
		pieces = append(pieces, current)
		current = li.CloneHeader()
	}
	for _, c := range li.Children {
		if cut := s.nextCut(); cut == s.pos && s.pos > start && s.pos < end && len(current.Children) > 0 {
			s.takeCut()
			closePiece()
		}
		switch c := c.(type) {
		case fragment.Text:
			text := string(c)
			for {
				cut := s.nextCut()
				if cut > s.pos && cut < s.pos+len(text) {
					k := cut - s.pos
					current.Children = append(current.Children, fragment.Text(text[:k]))
					s.pos += k
					text = text[k:]
					s.takeCut()
					closePiece()
					continue
				}
				break
			}
			if text != "" {
				current.Children = append(current.Children, fragment.Text(text))
				s.pos += len(text)
			}
		case fragment.Comment:
			current.Children = append(current.Children, c)
		case *fragment.Fragment:
			g := c.CloneHeader()
			g.Children = s.children(c)
			current.Children = append(current.Children, g)
		}
	}
	pieces = append(pieces, current)
	return pieces
}

