package orchestrator

import (
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"

    "github.com/rs/zerolog/log"

    "github.com/local/pdfsplitter/internal/imagerender"
    "github.com/local/pdfsplitter/internal/metrics"
    "github.com/local/pdfsplitter/internal/pdfdoc"
    "github.com/local/pdfsplitter/internal/selection"
    "github.com/local/pdfsplitter/internal/storage"
)

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
    mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request){ w.WriteHeader(http.StatusOK); _,_ = w.Write([]byte("ok")) })
    mux.HandleFunc("/status", s.handleStatus)
    mux.Handle("/metrics", metrics.Handler())
    mux.HandleFunc("/inspect", s.handleInspect)
    mux.HandleFunc("/preview", s.handlePreview)
    mux.HandleFunc("/split", s.handleSplit)
    mux.HandleFunc("/jobs/", s.handleJob)
}

type errorResp struct {
    Error string `json:"error"`
    Kind  string `json:"kind"`
}

type emptyResp struct {
    Status  string `json:"status"`
    Message string `json:"message"`
}

type inspectResp struct {
    Name  string `json:"name"`
    Pages int    `json:"pages"`
    MIME  string `json:"mime"`
}

type jobResp struct {
    JobID    string         `json:"job_id"`
    Status   string         `json:"status"`
    Mode     string         `json:"mode"`
    Message  string         `json:"message"`
    Start    string         `json:"start_time,omitempty"`
    End      string         `json:"end_time,omitempty"`
    Metadata map[string]any `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(code)
    _ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
    kind := ErrorKind(err)
    code := httpStatus(kind)
    if code >= http.StatusInternalServerError {
        log.Error().Err(err).Str("kind", kind).Msg("request failed")
    } else {
        log.Warn().Err(err).Str("kind", kind).Msg("request rejected")
    }
    writeJSON(w, code, errorResp{Error: err.Error(), Kind: kind})
}

// readDocuments streams the multipart body and loads "file" uploads and
// "file_url" references in the order they were sent. Every other field is
// returned in form.
func (s *Service) readDocuments(w http.ResponseWriter, r *http.Request) ([]*pdfdoc.Document, url.Values, error) {
    r.Body = http.MaxBytesReader(w, r.Body, s.deps.MaxUploadBytes)
    mr, err := r.MultipartReader()
    if err != nil { return nil, nil, fmt.Errorf("%w: invalid multipart form: %v", ErrNoDocument, err) }

    form := url.Values{}
    var docs []*pdfdoc.Document
    for {
        p, err := mr.NextPart()
        if err == io.EOF { break }
        if err != nil { return nil, nil, s.bodyError(err) }
        data, err := io.ReadAll(p)
        p.Close()
        if err != nil { return nil, nil, s.bodyError(err) }

        switch {
        case p.FormName() == "file" && p.FileName() != "":
            doc, err := s.loadDocument(p.FileName(), data)
            if err != nil { return nil, nil, err }
            docs = append(docs, doc)
        case p.FormName() == "file_url":
            ref := strings.TrimSpace(string(data))
            if ref == "" { continue }
            if s.deps.Fetcher == nil {
                return nil, nil, fmt.Errorf("%w: remote documents are disabled", storage.ErrUnsupportedRef)
            }
            name, body, err := s.deps.Fetcher.Fetch(r.Context(), ref)
            if err != nil { return nil, nil, err }
            doc, err := s.loadDocument(name, body)
            if err != nil { return nil, nil, err }
            docs = append(docs, doc)
        default:
            form.Add(p.FormName(), string(data))
        }
    }
    if len(docs) == 0 { return nil, nil, ErrNoDocument }
    return docs, form, nil
}

func (s *Service) bodyError(err error) error {
    var maxErr *http.MaxBytesError
    if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
        return fmt.Errorf("%w: upload over %d bytes", storage.ErrTooLarge, s.deps.MaxUploadBytes)
    }
    return fmt.Errorf("%w: invalid multipart form: %v", ErrNoDocument, err)
}

func (s *Service) loadDocument(name string, data []byte) (*pdfdoc.Document, error) {
    if err := s.deps.Detector.RequirePDF(name, data); err != nil { return nil, err }
    return pdfdoc.FromBytes(name, data)
}

// formValue returns the submitted value for key, or def when the field
// was not sent at all. An explicitly empty field stays empty.
func formValue(form url.Values, key, def string) string {
    if vs, ok := form[key]; ok && len(vs) > 0 {
        return vs[0]
    }
    return def
}

func (s *Service) splitOptions(form url.Values) (Options, error) {
    d := s.deps.Defaults
    opts := Options{
        Mode:        selection.Mode(strings.TrimSpace(formValue(form, "mode", d.Mode))),
        RangeExpr:   formValue(form, "ranges", ""),
        OddEven:     formValue(form, "odd_even", d.OddEven),
        Suffix:      formValue(form, "suffix", d.Suffix),
        ArchiveName: formValue(form, "archive_name", d.ArchiveName),
        ChunkSize:   d.ChunkSize,
    }
    if opts.Mode == "" { opts.Mode = selection.Mode(d.Mode) }
    if v := strings.TrimSpace(formValue(form, "chunk_size", "")); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil { return Options{}, fmt.Errorf("%w: %q", selection.ErrInvalidChunkSize, v) }
        opts.ChunkSize = n
    }
    return opts, nil
}

func (s *Service) handleSplit(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }

    release, err := s.deps.Slots.Acquire(r.Context())
    if err != nil { writeError(w, err); return }
    defer release()

    docs, form, err := s.readDocuments(w, r)
    if err != nil { writeError(w, err); return }
    opts, err := s.splitOptions(form)
    if err != nil { writeError(w, err); return }

    res, err := s.Run(r.Context(), opts, docs)
    if errors.Is(err, ErrEmptySelection) {
        writeJSON(w, http.StatusOK, emptyResp{Status: "empty", Message: "No pages matched the selection; nothing to download."})
        return
    }
    if err != nil { writeError(w, err); return }

    w.Header().Set("Content-Type", "application/zip")
    w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.ArchiveName))
    w.Header().Set("Content-Length", strconv.Itoa(len(res.Archive)))
    w.Header().Set("X-Job-ID", res.JobID)
    w.Header().Set("X-Output-Files", strconv.Itoa(len(res.Files)))
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(res.Archive)
}

func (s *Service) handleInspect(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    docs, _, err := s.readDocuments(w, r)
    if err != nil { writeError(w, err); return }
    d := docs[0]
    info := s.deps.Detector.Detect(d.Bytes())
    writeJSON(w, http.StatusOK, inspectResp{Name: d.Name(), Pages: d.PageCount(), MIME: info.MIMEType})
}

func (s *Service) handlePreview(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    docs, form, err := s.readDocuments(w, r)
    if err != nil { writeError(w, err); return }

    page := 1
    if v := strings.TrimSpace(formValue(form, "page", "")); v != "" {
        if page, err = strconv.Atoi(v); err != nil {
            writeError(w, fmt.Errorf("%w: %q", imagerender.ErrPageOutOfRange, v)); return
        }
    }
    dpi := s.deps.Preview.DPI
    if v := strings.TrimSpace(formValue(form, "dpi", "")); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { dpi = n }
    }
    if dpi <= 0 { dpi = 72 }
    if s.deps.Preview.MaxDPI > 0 && dpi > s.deps.Preview.MaxDPI { dpi = s.deps.Preview.MaxDPI }

    p, err := imagerender.RenderPage(docs[0].Bytes(), page, dpi, s.deps.Preview.Quality, imagerender.ColorRGB)
    if err != nil { writeError(w, err); return }
    w.Header().Set("Content-Type", "image/jpeg")
    w.Header().Set("Content-Length", strconv.Itoa(len(p.JPEG)))
    w.WriteHeader(http.StatusOK)
    _, _ = w.Write(p.JPEG)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, s.deps.Checker.Summary(r.Context()))
}

func (s *Service) handleJob(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    jobID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
    if jobID == "" || s.deps.Status == nil { http.NotFound(w, r); return }
    st, ok, err := s.deps.Status.Get(r.Context(), jobID)
    if err != nil {
        log.Error().Err(err).Str("job_id", jobID).Msg("job record read failed")
        http.Error(w, "status store unavailable", http.StatusServiceUnavailable)
        return
    }
    if !ok { http.NotFound(w, r); return }
    resp := jobResp{JobID: jobID, Status: st.Status, Mode: st.Mode, Message: st.Message, Metadata: st.Metadata}
    if st.Start != nil { resp.Start = st.Start.Format("2006-01-02T15:04:05.000Z07:00") }
    if st.End != nil { resp.End = st.End.Format("2006-01-02T15:04:05.000Z07:00") }
    writeJSON(w, http.StatusOK, resp)
}
