// Package naming builds the names of output PDFs and of the ZIP download.
package naming

import (
	"path"
	"strings"
)

// DefaultArchiveName is used when no archive name is supplied.
const DefaultArchiveName = "result.zip"

// FileName builds the output file name for a group label:
// "{label}_{suffix}.pdf", or "{label}.pdf" without a suffix. The suffix is
// used verbatim, whitespace included.
func FileName(label, suffix string) string {
	if suffix == "" {
		return label + ".pdf"
	}
	return label + "_" + suffix + ".pdf"
}

// ArchiveName returns the download name for the ZIP. Directory parts are
// dropped; the extension is left as given.
func ArchiveName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = strings.ReplaceAll(path.Base(name), `"`, "")
	switch name {
	case "", ".", "/", "..":
		return DefaultArchiveName
	}
	return name
}
