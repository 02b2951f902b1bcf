package engine

import (
	"strings"

	"github.com/nicolagi/specdiff/internal/fragment"
)

// mergeTrees merges two serialized fragments into one annotated tree. The
// algorithm is a longest-common-subsequence alignment of child sequences,
// keyed by subtree content; attributes are deliberately excluded from the
// keys because each side carries its own identity ordinals. Unmatched runs
// are wrapped in deletion and insertion markers, deletion always first.
func mergeTrees(a, b *fragment.Wire) *fragment.Wire {
	if a.Name != b.Name {
		container := &fragment.Wire{
			Name:       fragment.ContainerName,
			Attributes: map[string]string{},
		}
		container.ChildNodes = []fragment.WireChild{
			wrapper(fragment.DeletedName, []fragment.WireChild{{Node: a}}),
			wrapper(fragment.InsertedName, []fragment.WireChild{{Node: b}}),
		}
		container.TextLength = childrenTextLength(container.ChildNodes)
		return container
	}
	merged := &fragment.Wire{
		Name:       b.Name,
		ID:         b.ID,
		Attributes: copyAttributes(b.Attributes),
	}
	merged.ChildNodes = mergeChildren(a.ChildNodes, b.ChildNodes)
	merged.TextLength = childrenTextLength(merged.ChildNodes)
	return merged
}

func mergeChildren(as, bs []fragment.WireChild) []fragment.WireChild {
	ak := make([]string, len(as))
	for i, c := range as {
		ak[i] = childKey(c)
	}
	bk := make([]string, len(bs))
	for j, c := range bs {
		bk[j] = childKey(c)
	}
	dp := make([][]int, len(as)+1)
	for i := range dp {
		dp[i] = make([]int, len(bs)+1)
	}
	for i := 1; i <= len(as); i++ {
		for j := 1; j <= len(bs); j++ {
			if ak[i-1] == bk[j-1] {
				dp[i][j] = dp[i-1][j-1] + 1
			} else if dp[i-1][j] >= dp[i][j-1] {
				dp[i][j] = dp[i-1][j]
			} else {
				dp[i][j] = dp[i][j-1]
			}
		}
	}

	type edit struct {
		kind byte // '=', '-', '+'
		i, j int
	}
	var script []edit
	i, j := len(as), len(bs)
	for i > 0 || j > 0 {
		switch {
		case i > 0 && j > 0 && ak[i-1] == bk[j-1]:
			script = append(script, edit{'=', i - 1, j - 1})
			i--
			j--
		case j > 0 && (i == 0 || dp[i][j-1] >= dp[i-1][j]):
			script = append(script, edit{'+', 0, j - 1})
			j--
		default:
			script = append(script, edit{'-', i - 1, 0})
			i--
		}
	}
	for l, r := 0, len(script)-1; l < r; l, r = l+1, r-1 {
		script[l], script[r] = script[r], script[l]
	}

	var out []fragment.WireChild
	var dels, inss []fragment.WireChild
	flush := func() {
		// A removed element facing an added element of the same name is a
		// modification, not a remove-plus-add; recurse instead of wrapping.
		for len(dels) > 0 && len(inss) > 0 &&
			!dels[0].IsText() && !inss[0].IsText() &&
			dels[0].Node.Name == inss[0].Node.Name {
			out = append(out, fragment.WireChild{Node: mergeTrees(dels[0].Node, inss[0].Node)})
			dels, inss = dels[1:], inss[1:]
		}
		if len(dels) > 0 {
			out = append(out, wrapper(fragment.DeletedName, dels))
			dels = nil
		}
		if len(inss) > 0 {
			out = append(out, wrapper(fragment.InsertedName, inss))
			inss = nil
		}
	}
	for _, e := range script {
		switch e.kind {
		case '=':
			flush()
			out = append(out, bs[e.j])
		case '-':
			dels = append(dels, as[e.i])
		case '+':
			inss = append(inss, bs[e.j])
		}
	}
	flush()
	return out
}

func childKey(c fragment.WireChild) string {
	if c.IsText() {
		return "t\x00" + c.Text
	}
	var b strings.Builder
	b.WriteString("e\x00")
	b.WriteString(c.Node.Name)
	b.WriteByte('(')
	for _, cc := range c.Node.ChildNodes {
		b.WriteString(childKey(cc))
		b.WriteByte(',')
	}
	b.WriteByte(')')
	return b.String()
}

func wrapper(name string, children []fragment.WireChild) fragment.WireChild {
	w := &fragment.Wire{
		Name:       name,
		Attributes: map[string]string{"class": name + " " + fragment.ClassChange},
		ChildNodes: append([]fragment.WireChild(nil), children...),
	}
	w.TextLength = childrenTextLength(w.ChildNodes)
	return fragment.WireChild{Node: w}
}

func childrenTextLength(children []fragment.WireChild) int {
	n := 0
	for _, c := range children {
		if c.IsText() {
			n += len(c.Text)
		} else {
			n += c.Node.TextLength
		}
	}
	return n
}

func copyAttributes(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
