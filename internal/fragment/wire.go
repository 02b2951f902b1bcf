package fragment

import "encoding/json"

// Wire is the engine-facing shape of a Fragment:
//
//	{ name, id?, attributes, childNodes, textLength }
//
// Leaf text travels as plain JSON strings inside childNodes.
type Wire struct {
	Name       string            `json:"name"`
	ID         string            `json:"id,omitempty"`
	Attributes map[string]string `json:"attributes"`
	ChildNodes []WireChild       `json:"childNodes"`
	TextLength int               `json:"textLength"`
}

// WireChild is either a nested Wire node or a bare string.
type WireChild struct {
	Node *Wire
	Text string
}

// IsText reports whether the child is a bare string.
func (c WireChild) IsText() bool { return c.Node == nil }

func (c WireChild) MarshalJSON() ([]byte, error) {
	if c.Node != nil {
		return json.Marshal(c.Node)
	}
	return json.Marshal(c.Text)
}

func (c *WireChild) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		c.Node = nil
		return json.Unmarshal(data, &c.Text)
	}
	c.Node = new(Wire)
	return json.Unmarshal(data, c.Node)
}

// Serialize converts a fragment to wire form, segmenting all text into
// minimal units and dropping whitespace-only text adjacent to comments and
// block-level elements. Comments are dropped outright.
func Serialize(f *Fragment) *Wire {
	w := &Wire{
		Name:       f.Name,
		ID:         f.ID,
		Attributes: make(map[string]string, len(f.Attr)),
	}
	for k, v := range f.Attr {
		w.Attributes[k] = v
	}
	for i, c := range f.Children {
		switch c := c.(type) {
		case Comment:
			// Not content.
		case Text:
			if droppable(f.Children, i) {
				continue
			}
			for _, unit := range Split(string(c)) {
				w.ChildNodes = append(w.ChildNodes, WireChild{Text: unit})
				w.TextLength += len(unit)
			}
		case *Fragment:
			cw := Serialize(c)
			w.ChildNodes = append(w.ChildNodes, WireChild{Node: cw})
			w.TextLength += cw.TextLength
		}
	}
	return w
}

// Deserialize converts wire form back into a live fragment. The stored
// textLength is discarded; it is derived state and recomputed on demand.
func Deserialize(w *Wire) *Fragment {
	f := &Fragment{Name: w.Name, ID: w.ID}
	if len(w.Attributes) > 0 {
		f.Attr = make(map[string]string, len(w.Attributes))
		for k, v := range w.Attributes {
			f.Attr[k] = v
		}
	}
	for _, c := range w.ChildNodes {
		if c.IsText() {
			f.Children = append(f.Children, Text(c.Text))
		} else {
			f.Children = append(f.Children, Deserialize(c.Node))
		}
	}
	return f
}
