// Package fragment holds the document tree model shared by the diff pipeline
// and the diff engine: a Fragment is a subtree of structural markup under
// comparison, its leaves are Text units. The package also owns the HTML
// parse/render boundary and the JSON wire codec used to talk to the engine.
package fragment

import (
	"sort"
	"strings"
)

// Child is one ordered entry in a Fragment's child list. The order of
// children is semantically significant and must be preserved by every
// transform in the pipeline.
type Child interface {
	child()
	// TextLen is the aggregate length of the text under this child.
	TextLen() int
}

// Text is a leaf string. After segmentation each Text is a minimal
// diff-addressable unit; before segmentation it is whatever run of character
// data the parser produced.
type Text string

func (Text) child() {}

func (t Text) TextLen() int { return len(t) }

// Comment is a markup comment. Comments never reach the engine; they exist in
// the model only because whitespace-only text adjacent to a comment is
// treated as source formatting and dropped during serialization.
type Comment string

func (Comment) child() {}

func (Comment) TextLen() int { return 0 }

// Fragment is an element node: tag name, optional identifier, attributes and
// ordered children.
type Fragment struct {
	Name     string
	ID       string
	Attr     map[string]string
	Children []Child
}

func (*Fragment) child() {}

func (f *Fragment) TextLen() int {
	n := 0
	for _, c := range f.Children {
		n += c.TextLen()
	}
	return n
}

// CloneHeader copies the element itself (name, id, attributes) with an
// empty child list. Pipeline stages build new trees instead of mutating
// their input, and most of them rebuild child lists from scratch.
func (f *Fragment) CloneHeader() *Fragment {
	g := &Fragment{Name: f.Name, ID: f.ID}
	if f.Attr != nil {
		g.Attr = make(map[string]string, len(f.Attr))
		for k, v := range f.Attr {
			g.Attr[k] = v
		}
	}
	return g
}

// Clone returns a deep copy.
func (f *Fragment) Clone() *Fragment {
	g := f.CloneHeader()
	for _, c := range f.Children {
		switch c := c.(type) {
		case *Fragment:
			g.Children = append(g.Children, c.Clone())
		default:
			g.Children = append(g.Children, c)
		}
	}
	return g
}

// Text returns the concatenation of all text units under f, in order.
func (f *Fragment) Text() string {
	var b strings.Builder
	f.appendText(&b)
	return b.String()
}

func (f *Fragment) appendText(b *strings.Builder) {
	for _, c := range f.Children {
		switch c := c.(type) {
		case Text:
			b.WriteString(string(c))
		case *Fragment:
			c.appendText(b)
		}
	}
}

// HasClass reports whether the space-separated class attribute contains name.
func (f *Fragment) HasClass(name string) bool {
	for _, field := range strings.Fields(f.Attr["class"]) {
		if field == name {
			return true
		}
	}
	return false
}

// attrNames returns the attribute names in a stable order, so that rendering
// a fragment is deterministic.
func (f *Fragment) attrNames() []string {
	names := make([]string, 0, len(f.Attr))
	for k := range f.Attr {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
