package main

import (
	"testing"

	"github.com/andreyvit/diff"
	"github.com/stretchr/testify/assert"

	"github.com/nicolagi/specdiff/internal/reconcile"
)

func TestRenderPage(t *testing.T) {
	got := renderPage(reconcile.SectionDiff{
		ID:    "4.2",
		Num:   "4.2",
		Title: "Conformance",
		HTML:  `<p>all of it <ins class="ins change">now </ins>applies</p>`,
	})
	want := `<!doctype html>
<meta charset="utf-8">
<title>4.2 Conformance</title>
<style>
ins.change { background: #e6ffec; text-decoration: none; }
del.change { background: #ffebe9; }
li[data-marker] { list-style: none; }
li[data-marker]::before { content: attr(data-marker) ". "; }
</style>
<h1>4.2 Conformance</h1>
<p>all of it <ins class="ins change">now </ins>applies</p>
`
	if got != want {
		t.Errorf("page mismatch:\n%s", diff.LineDiff(want, got))
	}
}

func TestSetLogLevel(t *testing.T) {
	assert.Nil(t, setLogLevel("debug"))
	assert.NotNil(t, setLogLevel("chatty"))
	assert.Nil(t, setLogLevel("info"))
}
