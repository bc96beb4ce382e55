package filetype

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// ErrNotPDF is returned when content is not a PDF by its magic bytes.
var ErrNotPDF = errors.New("not a pdf")

const pdfMIME = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	IsPDF       bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type of data using magic bytes, not
// the file name the client sent.
func (d *Detector) Detect(data []byte) *FileTypeInfo {
	return classify(mimetype.Detect(data))
}

// DetectReader is like Detect but only reads the header mimetype needs.
func (d *Detector) DetectReader(r io.Reader) (*FileTypeInfo, error) {
	mtype, err := mimetype.DetectReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}
	return classify(mtype), nil
}

// RequirePDF returns ErrNotPDF unless data is a PDF. name is only used
// for the error message.
func (d *Detector) RequirePDF(name string, data []byte) error {
	info := d.Detect(data)
	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Str("file", name).Msg("detected file type")
	if !info.IsPDF {
		return fmt.Errorf("%w: %s is %s", ErrNotPDF, name, info.Description)
	}
	return nil
}

func classify(mtype *mimetype.MIME) *FileTypeInfo {
	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	switch {
	case mtype.Is(pdfMIME):
		info.IsPDF = true
		info.Description = "PDF document"
	case mtype.Is("application/zip"):
		info.Description = "ZIP archive"
	case mtype.Is("text/plain"):
		info.Description = "plain text"
	default:
		info.Description = mtype.String()
	}
	return info
}
