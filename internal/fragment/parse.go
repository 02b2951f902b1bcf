package fragment

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ContainerName is the tag used to wrap a parsed run of markup. Sections
// arrive as inner markup with any number of top-level elements; the pipeline
// needs a single root to thread through its stages.
const ContainerName = "div"

// Parse parses markup in body context and returns it wrapped in a container
// fragment. The parser is the lenient HTML5 one, so the usual
// specification-source quirks (unclosed <li>, raw ampersands) do not error.
func Parse(markup string) (*Fragment, error) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, errorf("Parse", "%v", err)
	}
	root := &Fragment{Name: ContainerName}
	for _, n := range nodes {
		if c := convert(n); c != nil {
			root.Children = append(root.Children, c)
		}
	}
	return root, nil
}

func convert(n *html.Node) Child {
	switch n.Type {
	case html.TextNode:
		return Text(n.Data)
	case html.CommentNode:
		return Comment(n.Data)
	case html.ElementNode:
		f := &Fragment{Name: n.Data}
		for _, a := range n.Attr {
			if a.Key == "id" {
				f.ID = a.Val
				continue
			}
			if f.Attr == nil {
				f.Attr = make(map[string]string)
			}
			f.Attr[a.Key] = a.Val
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if converted := convert(c); converted != nil {
				f.Children = append(f.Children, converted)
			}
		}
		return f
	default:
		// Doctype and document nodes cannot occur in body context.
		return nil
	}
}

// Void elements per the HTML syntax; they render without a closing tag and
// never hold children.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// OuterHTML renders the fragment including its own tag.
func (f *Fragment) OuterHTML() string {
	var b strings.Builder
	f.render(&b)
	return b.String()
}

// InnerHTML renders the fragment's children only. This is the engine-facing
// form: the container wrapper is an artifact of Parse, not document content.
func (f *Fragment) InnerHTML() string {
	var b strings.Builder
	for _, c := range f.Children {
		renderChild(&b, c)
	}
	return b.String()
}

func (f *Fragment) render(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(f.Name)
	if f.ID != "" {
		b.WriteString(` id="`)
		b.WriteString(html.EscapeString(f.ID))
		b.WriteByte('"')
	}
	for _, k := range f.attrNames() {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(f.Attr[k]))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	if voidElements[f.Name] {
		return
	}
	for _, c := range f.Children {
		renderChild(b, c)
	}
	b.WriteString("</")
	b.WriteString(f.Name)
	b.WriteByte('>')
}

func renderChild(b *strings.Builder, c Child) {
	switch c := c.(type) {
	case Text:
		b.WriteString(html.EscapeString(string(c)))
	case Comment:
		b.WriteString("<!--")
		b.WriteString(string(c))
		b.WriteString("-->")
	case *Fragment:
		c.render(b)
	}
}
