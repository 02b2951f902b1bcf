package marker

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextStyles(t *testing.T) {
	cases := []struct {
		index, depth int
		want         string
	}{
		{0, 1, "1"},
		{9, 1, "10"},
		{0, 2, "a"},
		{25, 2, "z"},
		{26, 2, "aa"},
		{27, 2, "ab"},
		{51, 2, "az"},
		{52, 2, "ba"},
		{0, 3, "i"},
		{3, 3, "iv"},
		{8, 3, "ix"},
		{38, 3, "xxxix"},
		{443, 3, "cdxliv"},
		{3998, 3, "mmmcmxcix"},
		// Fourth level starts the cycle over.
		{0, 4, "1"},
		{0, 5, "a"},
		{0, 6, "i"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Text(c.index, c.depth), "index=%d depth=%d", c.index, c.depth)
	}
}

func TestTextRomanOutOfRange(t *testing.T) {
	// The digit substitution runs out at 3999; past that, plain decimal.
	assert.Equal(t, "4000", Text(3999, 3))
	assert.Equal(t, "5000", Text(4999, 6))
}

func TestTextNonPositiveDepth(t *testing.T) {
	assert.Equal(t, "1", Text(0, 0))
	assert.Equal(t, "7", Text(6, 0))
	assert.Equal(t, "3", Text(2, -3))
}

func TestTextNeverEmpty(t *testing.T) {
	for depth := 1; depth <= 30; depth++ {
		for index := 0; index <= 1000; index++ {
			got := Text(index, depth)
			if got == "" {
				t.Fatalf("empty marker for index=%d depth=%d", index, depth)
			}
			if depth%3 == 1 && got != strconv.Itoa(index+1) {
				t.Fatalf("marker for index=%d depth=%d is %q, want decimal", index, depth, got)
			}
		}
	}
}
