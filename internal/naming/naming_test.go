package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "pages_1-3_split.pdf", FileName("pages_1-3", "split"))
	assert.Equal(t, "pages_1-3.pdf", FileName("pages_1-3", ""))
}

func TestFileNameKeepsSuffixWhitespace(t *testing.T) {
	assert.Equal(t, "part_2_   .pdf", FileName("part_2", "   "))
	assert.Equal(t, "odd_pages_ v2 .pdf", FileName("odd_pages", " v2 "))
}

func TestArchiveName(t *testing.T) {
	tests := map[string]string{
		"":                 DefaultArchiveName,
		"   ":              DefaultArchiveName,
		"out.zip":          "out.zip",
		"bundle":           "bundle",
		"../../etc/x.zip":  "x.zip",
		`C:\tmp\split.zip`: "split.zip",
		"..":               DefaultArchiveName,
		`a"b.zip`:          "ab.zip",
	}
	for in, want := range tests {
		assert.Equal(t, want, ArchiveName(in), "input %q", in)
	}
}
