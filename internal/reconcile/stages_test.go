package reconcile

import (
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicolagi/specdiff/internal/fragment"
)

func parse(t *testing.T, markup string) *fragment.Fragment {
	t.Helper()
	f, err := fragment.Parse(markup)
	require.Nil(t, err)
	return f
}

func TestNumberAssignsDisjointOrdinals(t *testing.T) {
	markup := `<p>a</p><ul><li>b</li><li>c</li></ul>`
	left := number(parse(t, markup), leftSide)
	right := number(parse(t, markup), rightSide)
	var seen []int
	var collect func(f *fragment.Fragment, wantParity int)
	collect = func(f *fragment.Fragment, wantParity int) {
		n, err := strconv.Atoi(f.Attr[OrdinalAttr])
		require.Nil(t, err)
		assert.Equal(t, wantParity, n%2)
		seen = append(seen, n)
		for _, c := range f.Children {
			if cf, ok := c.(*fragment.Fragment); ok {
				collect(cf, wantParity)
			}
		}
	}
	collect(left, 0)
	collect(right, 1)
	unique := make(map[int]bool)
	for _, n := range seen {
		assert.False(t, unique[n], "ordinal %d assigned twice", n)
		unique[n] = true
	}
}

func TestNumberDoesNotMutateInput(t *testing.T) {
	in := parse(t, `<p>a</p>`)
	_ = number(in, leftSide)
	p := in.Children[0].(*fragment.Fragment)
	_, ok := p.Attr[OrdinalAttr]
	assert.False(t, ok)
}

func TestStripRemovesAllOrdinals(t *testing.T) {
	in := parse(t, `<p>a<span>b</span></p>`)
	out := strip(number(in, rightSide))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("strip(number(x)) != x (-want +got):\n%s", diff)
	}
}

func TestStripKeepsAsymmetricOrdinalsUntilStrip(t *testing.T) {
	// An ordinal present on only one side is not an error anywhere in the
	// pipeline; it just never matches, and strip removes it like any other.
	in := parse(t, `<p data-ordinal="7">x</p><p>y</p>`)
	combined := combineTopLevel(in)
	if diff := cmp.Diff(in, combined); diff != "" {
		t.Fatalf("combine with asymmetric ordinal not a no-op (-want +got):\n%s", diff)
	}
	out := strip(in)
	p := out.Children[0].(*fragment.Fragment)
	assert.Nil(t, p.Attr)
}

func TestCombineListItemsMergesSplitItem(t *testing.T) {
	in := parse(t, `<ol><li data-ordinal="2">Hello, </li><li data-ordinal="2">world.</li></ol>`)
	out := combineListItems(in)
	ol := out.Children[0].(*fragment.Fragment)
	require.Equal(t, 1, len(ol.Children))
	li := ol.Children[0].(*fragment.Fragment)
	assert.Equal(t, "Hello, world.", li.Text())
	assert.Equal(t, []fragment.Child{fragment.Text("Hello, "), fragment.Text("world.")}, li.Children)
}

func TestCombineListItemsRequiresSameOrdinal(t *testing.T) {
	in := parse(t, `<ol><li data-ordinal="2">a</li><li data-ordinal="4">b</li></ol>`)
	out := combineListItems(in)
	ol := out.Children[0].(*fragment.Fragment)
	assert.Equal(t, 2, len(ol.Children))
}

func TestCombineListItemsNoOpWithoutDuplicates(t *testing.T) {
	in := number(parse(t, `<ol><li>a</li><li>b</li></ol><p>c</p>`), leftSide)
	out := combineListItems(in)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("expected no-op (-want +got):\n%s", diff)
	}
}

func TestCombineListItemsIgnoresOtherTags(t *testing.T) {
	in := parse(t, `<p data-ordinal="2">a</p><p data-ordinal="2">b</p>`)
	out := combineListItems(in)
	assert.Equal(t, 2, len(out.Children))
}

func TestCombineTopLevelMergesAnyTag(t *testing.T) {
	in := parse(t, `<p data-ordinal="3">a</p><p data-ordinal="3">b</p><p data-ordinal="5">c</p>`)
	out := combineTopLevel(in)
	require.Equal(t, 2, len(out.Children))
	assert.Equal(t, "ab", out.Children[0].(*fragment.Fragment).Text())
	assert.Equal(t, "c", out.Children[1].(*fragment.Fragment).Text())
}

func TestCombineTopLevelIsShallow(t *testing.T) {
	in := parse(t, `<div><p data-ordinal="3">a</p><p data-ordinal="3">b</p></div>`)
	out := combineTopLevel(in)
	inner := out.Children[0].(*fragment.Fragment)
	assert.Equal(t, 2, len(inner.Children))
}

func TestCombineTopLevelNoOpWithoutDuplicates(t *testing.T) {
	in := number(parse(t, `<p>a</p><blockquote>b</blockquote>`), rightSide)
	out := combineTopLevel(in)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("expected no-op (-want +got):\n%s", diff)
	}
}

func TestNormalizeOrderSwapsInvertedPair(t *testing.T) {
	in := parse(t, `<p>before</p>`+
		`<ins class="ins change">A</ins>`+
		`<del class="del change">B</del>`+
		`<p>after</p>`)
	out := normalizeOrder(in)
	del := out.Children[1].(*fragment.Fragment)
	ins := out.Children[2].(*fragment.Fragment)
	assert.Equal(t, "del", del.Name)
	assert.Equal(t, "B", del.Text())
	assert.Equal(t, "ins", ins.Name)
	assert.Equal(t, "A", ins.Text())
	assert.Equal(t, "before", out.Children[0].(*fragment.Fragment).Text())
	assert.Equal(t, "after", out.Children[3].(*fragment.Fragment).Text())
}

func TestNormalizeOrderAfterCombineInversion(t *testing.T) {
	// Combining merges a node ending in an insertion with a node starting
	// with a deletion; the inversion surfaces inside the merged node and
	// must be fixed there.
	in := parse(t, `<p data-ordinal="3">x<ins class="ins change">A</ins></p>`+
		`<p data-ordinal="3"><del class="del change">B</del>y</p>`)
	out := normalizeOrder(combineTopLevel(in))
	p := out.Children[0].(*fragment.Fragment)
	require.Equal(t, 4, len(p.Children))
	assert.Equal(t, "del", p.Children[1].(*fragment.Fragment).Name)
	assert.Equal(t, "ins", p.Children[2].(*fragment.Fragment).Name)
}

func TestNormalizeOrderDeletionCrossesInsertionRun(t *testing.T) {
	// A purely inserted piece combined between a piece ending in ins and one
	// starting with del leaves a run of insertions ahead of the deletion; the
	// deletion must come out ahead of the whole run, not one slot over.
	in := parse(t, `<ins class="ins change">A</ins>`+
		`<ins class="ins change">B</ins>`+
		`<del class="del change">C</del>`)
	out := normalizeOrder(in)
	var texts []string
	for _, c := range out.Children {
		cf := c.(*fragment.Fragment)
		texts = append(texts, cf.Name+":"+cf.Text())
	}
	assert.Equal(t, []string{"del:C", "ins:A", "ins:B"}, texts)
}

func TestNormalizeOrderIsIdempotent(t *testing.T) {
	for _, markup := range []string{
		`<ins class="ins change">A</ins>` +
			`<del class="del change">B</del>` +
			`<del class="del change">C</del>` +
			`<ins class="ins change">D</ins>`,
		`<ins class="ins change">A</ins>` +
			`<ins class="ins change">B</ins>` +
			`<del class="del change">C</del>`,
		`<p><ins class="ins change">A</ins>` +
			`<ins class="ins change">B</ins>` +
			`<del class="del change">C</del>` +
			`<del class="del change">D</del></p>`,
	} {
		once := normalizeOrder(parse(t, markup))
		twice := normalizeOrder(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("not idempotent for %s (-once +twice):\n%s", markup, diff)
		}
	}
}

func TestNormalizeOrderLeavesUnpairedMarkersAlone(t *testing.T) {
	// Only paired-change markers participate; a bare ins element from the
	// source document is content, not a marker.
	in := parse(t, `<ins>A</ins><del class="del change">B</del>`)
	out := normalizeOrder(in)
	assert.Equal(t, "ins", out.Children[0].(*fragment.Fragment).Name)
	assert.Equal(t, "del", out.Children[1].(*fragment.Fragment).Name)
}

func TestCountChanges(t *testing.T) {
	in := parse(t, `<p><ins class="ins change">a</ins></p>`+
		`<del class="del change">b</del>`+
		`<del class="del change"><ins class="ins change">c</ins></del>`+
		`<ins>not a marker</ins>`)
	inserted, deleted := countChanges(in)
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 2, deleted)
}

func TestAnnotateListMarkers(t *testing.T) {
	in := parse(t, `<ol><li>one</li><li>two<ol><li>nested</li></ol></li></ol>`)
	out := annotateListMarkers(in)
	ol := out.Children[0].(*fragment.Fragment)
	first := ol.Children[0].(*fragment.Fragment)
	second := ol.Children[1].(*fragment.Fragment)
	assert.Equal(t, "1", first.Attr[MarkerAttr])
	assert.Equal(t, "2", second.Attr[MarkerAttr])
	nested := second.Children[1].(*fragment.Fragment).Children[0].(*fragment.Fragment)
	assert.Equal(t, "a", nested.Attr[MarkerAttr])
}

func TestAnnotateListMarkersThroughWrappers(t *testing.T) {
	// A deleted item still occupies its slot in the sequence, so markers
	// stay aligned with what is displayed.
	in := parse(t, `<ol><li>one</li>`+
		`<del class="del change"><li>gone</li></del>`+
		`<li>three</li></ol>`)
	out := annotateListMarkers(in)
	ol := out.Children[0].(*fragment.Fragment)
	items := []struct {
		path *fragment.Fragment
		want string
	}{
		{ol.Children[0].(*fragment.Fragment), "1"},
		{ol.Children[1].(*fragment.Fragment).Children[0].(*fragment.Fragment), "2"},
		{ol.Children[2].(*fragment.Fragment), "3"},
	}
	for _, item := range items {
		assert.Equal(t, item.want, item.path.Attr[MarkerAttr])
	}
}

func TestAnnotateListMarkersUnorderedListUntouched(t *testing.T) {
	in := parse(t, `<ul><li>one</li></ul>`)
	out := annotateListMarkers(in)
	li := out.Children[0].(*fragment.Fragment).Children[0].(*fragment.Fragment)
	_, ok := li.Attr[MarkerAttr]
	assert.False(t, ok)
}
