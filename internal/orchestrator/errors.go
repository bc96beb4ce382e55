package orchestrator

import (
    "context"
    "errors"
    "net/http"

    "github.com/local/pdfsplitter/internal/archive"
    "github.com/local/pdfsplitter/internal/filetype"
    "github.com/local/pdfsplitter/internal/imagerender"
    "github.com/local/pdfsplitter/internal/limiter"
    "github.com/local/pdfsplitter/internal/pagerange"
    "github.com/local/pdfsplitter/internal/pdfdoc"
    "github.com/local/pdfsplitter/internal/selection"
    "github.com/local/pdfsplitter/internal/storage"
)

// kinds maps sentinel errors to stable names used in responses and logs.
// Order matters: the first match wins.
var kinds = []struct {
    err  error
    kind string
}{
    {ErrEmptySelection, "EmptySelection"},
    {ErrNoDocument, "NoDocument"},
    {pagerange.ErrInvalidRangeSyntax, "InvalidRangeSyntax"},
    {pagerange.ErrRangeOutOfBounds, "RangeOutOfBounds"},
    {pagerange.ErrInvalidPageNumber, "InvalidPageNumber"},
    {pagerange.ErrPageOutOfBounds, "PageOutOfBounds"},
    {imagerender.ErrPageOutOfRange, "PageOutOfBounds"},
    {selection.ErrUnknownMode, "UnknownMode"},
    {selection.ErrInvalidChunkSize, "InvalidChunkSize"},
    {selection.ErrInvalidOddEven, "InvalidOddEven"},
    {selection.ErrInsufficientInputs, "InsufficientInputs"},
    {selection.ErrDocumentCount, "DocumentCount"},
    {filetype.ErrNotPDF, "NotPDF"},
    {pdfdoc.ErrUnreadable, "UnreadablePDF"},
    {pdfdoc.ErrNoPages, "NoPages"},
    {storage.ErrTooLarge, "TooLarge"},
    {storage.ErrUnsupportedRef, "UnsupportedRef"},
    {storage.ErrFetch, "FetchFailed"},
    {limiter.ErrBusy, "Busy"},
    {context.Canceled, "Canceled"},
    {context.DeadlineExceeded, "Canceled"},
    {archive.ErrArchive, "ArchiveError"},
}

// ErrorKind classifies err into a stable string. It returns "" for nil and
// "Internal" for anything unrecognised.
func ErrorKind(err error) string {
    if err == nil {
        return ""
    }
    for _, k := range kinds {
        if errors.Is(err, k.err) {
            return k.kind
        }
    }
    var maxErr *http.MaxBytesError
    if errors.As(err, &maxErr) {
        return "TooLarge"
    }
    var asmErr *pdfdoc.AssemblyError
    if errors.As(err, &asmErr) {
        return "AssemblyError"
    }
    return "Internal"
}

func httpStatus(kind string) int {
    switch kind {
    case "EmptySelection":
        return http.StatusOK
    case "NotPDF":
        return http.StatusUnsupportedMediaType
    case "UnreadablePDF", "NoPages":
        return http.StatusUnprocessableEntity
    case "TooLarge":
        return http.StatusRequestEntityTooLarge
    case "Busy":
        return http.StatusTooManyRequests
    case "FetchFailed":
        return http.StatusBadGateway
    case "Canceled":
        return http.StatusServiceUnavailable
    case "AssemblyError", "ArchiveError", "Internal":
        return http.StatusInternalServerError
    default:
        return http.StatusBadRequest
    }
}
