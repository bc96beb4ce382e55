// Package pdftest builds small but valid PDF documents for tests.
//
// Page i (0-based) of a built document has a MediaBox of
// Width x (BaseHeight + i), so the height of a page identifies where it
// came from after pages have been extracted or merged.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	Width      = 200
	BaseHeight = 300

	// pdfcpu searches a fixed-size tail window for the xref; shorter files
	// are reported as having no xref section.
	MinSize = 1024
)

// Build returns a PDF with n pages.
func Build(n int) []byte {
	return BuildOffset(n, 0)
}

// BuildOffset is like Build but numbers page heights starting at
// BaseHeight+offset, so two documents can be told apart after a merge.
func BuildOffset(n, offset int) []byte {
	var buf bytes.Buffer
	// object number -> byte offset; objects are 1-based
	offsets := make([]int, 0, 2+2*n)

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := new(bytes.Buffer)
	for i := 0; i < n; i++ {
		fmt.Fprintf(kids, "%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [ %s] /Count %d >>", kids.String(), n))

	for i := 0; i < n; i++ {
		height := BaseHeight + offset + i
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources << >> /Contents %d 0 R >>",
			Width, height, 4+2*i))
		content := fmt.Sprintf("0 0 m %d %d l S", Width, height)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	tail := func(xref int) string {
		var t bytes.Buffer
		fmt.Fprintf(&t, "xref\n0 %d\n", len(offsets)+1)
		t.WriteString("0000000000 65535 f \n")
		for _, off := range offsets {
			fmt.Fprintf(&t, "%010d 00000 n \n", off)
		}
		fmt.Fprintf(&t, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
		return t.String()
	}

	// a comment line before xref; the extra 8 covers startxref growing a digit
	if pad := MinSize - buf.Len() - len(tail(buf.Len())); pad > 0 {
		buf.WriteString("%" + strings.Repeat("-", pad+8) + "\n")
	}
	buf.WriteString(tail(buf.Len()))
	return buf.Bytes()
}
