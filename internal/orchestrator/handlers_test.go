package orchestrator

import (
    "bytes"
    "context"
    "encoding/json"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "path"
    "testing"
    "time"

    "github.com/pdfcpu/pdfcpu/pkg/api"
    "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/local/pdfsplitter/internal/config"
    "github.com/local/pdfsplitter/internal/limiter"
    "github.com/local/pdfsplitter/internal/pdftest"
    "github.com/local/pdfsplitter/internal/storage"
)

type part struct {
    field, filename string
    data            []byte
}

func multipartRequest(t *testing.T, path string, files []part, fields map[string]string) *http.Request {
    t.Helper()
    var body bytes.Buffer
    mw := multipart.NewWriter(&body)
    for _, f := range files {
        if f.filename == "" {
            require.NoError(t, mw.WriteField(f.field, string(f.data)))
            continue
        }
        w, err := mw.CreateFormFile(f.field, f.filename)
        require.NoError(t, err)
        _, err = w.Write(f.data)
        require.NoError(t, err)
    }
    for k, v := range fields {
        require.NoError(t, mw.WriteField(k, v))
    }
    require.NoError(t, mw.Close())
    req := httptest.NewRequest(http.MethodPost, path, &body)
    req.Header.Set("Content-Type", mw.FormDataContentType())
    return req
}

func defaults() config.SplitConfig {
    return config.SplitConfig{Mode: "each_page", ChunkSize: 5, OddEven: "odd", Suffix: "split", ArchiveName: "result.zip"}
}

func newTestMux(deps Dependencies) (*http.ServeMux, *Service) {
    if deps.Defaults.Mode == "" { deps.Defaults = defaults() }
    svc := New(deps)
    mux := http.NewServeMux()
    svc.RegisterRoutes(mux)
    return mux, svc
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
    rec := httptest.NewRecorder()
    mux.ServeHTTP(rec, req)
    return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResp {
    t.Helper()
    var e errorResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
    return e
}

func TestHealth(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, httptest.NewRequest(http.MethodGet, "/health", nil))
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "ok", rec.Body.String())
}

func TestSplitDefaults(t *testing.T) {
    st := newMemStatus()
    mux, _ := newTestMux(Dependencies{Status: st})
    rec := serve(mux, multipartRequest(t, "/split", []part{{"file", "doc.pdf", pdftest.Build(2)}}, nil))

    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
    assert.Equal(t, `attachment; filename="result.zip"`, rec.Header().Get("Content-Disposition"))
    assert.Equal(t, "2", rec.Header().Get("X-Output-Files"))
    jobID := rec.Header().Get("X-Job-ID")
    assert.NotEmpty(t, jobID)
    assert.Equal(t, []string{"page_1_split.pdf", "page_2_split.pdf"}, zipNames(t, rec.Body.Bytes()))

    rec = serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/"+jobID, nil))
    require.Equal(t, http.StatusOK, rec.Code)
    var job jobResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
    assert.Equal(t, jobID, job.JobID)
    assert.Equal(t, "success", job.Status)
    assert.Equal(t, "each_page", job.Mode)
}

func TestSplitFormFields(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, multipartRequest(t, "/split",
        []part{{"file", "doc.pdf", pdftest.Build(7)}},
        map[string]string{"mode": "every_n", "chunk_size": "3", "suffix": "", "archive_name": "../chunks.zip"}))

    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, `attachment; filename="chunks.zip"`, rec.Header().Get("Content-Disposition"))
    assert.Equal(t, []string{"part_1.pdf", "part_2.pdf", "part_3.pdf"}, zipNames(t, rec.Body.Bytes()))
}

func TestSplitMergeMultipleKeepsUploadOrder(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, multipartRequest(t, "/split",
        []part{{"file", "a.pdf", pdftest.BuildOffset(1, 0)}, {"file", "b.pdf", pdftest.BuildOffset(2, 50)}},
        map[string]string{"mode": "merge_multiple"}))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, []string{"merged_files_split.pdf"}, zipNames(t, rec.Body.Bytes()))
}

type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(_ context.Context, ref string) (string, []byte, error) {
    data, ok := m[ref]
    if !ok { return "", nil, storage.ErrFetch }
    return path.Base(ref), data, nil
}

func TestSplitMergeKeepsOrderAcrossUploadsAndURLs(t *testing.T) {
    mux, _ := newTestMux(Dependencies{Fetcher: mapFetcher{"mem://remote.pdf": pdftest.BuildOffset(2, 50)}})
    rec := serve(mux, multipartRequest(t, "/split", []part{
        {"mode", "", []byte("merge_multiple")},
        {"file_url", "", []byte("mem://remote.pdf")},
        {"file", "local.pdf", pdftest.BuildOffset(1, 0)},
    }, map[string]string{"suffix": ""}))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    require.Equal(t, []string{"merged_files.pdf"}, zipNames(t, rec.Body.Bytes()))

    merged := zipEntry(t, rec.Body.Bytes(), "merged_files.pdf")
    conf := model.NewDefaultConfiguration()
    conf.ValidationMode = model.ValidationRelaxed
    dims, err := api.PageDims(bytes.NewReader(merged), conf)
    require.NoError(t, err)
    var got []int
    for _, d := range dims { got = append(got, int(d.Height)) }
    base := pdftest.BaseHeight
    assert.Equal(t, []int{base + 50, base + 51, base}, got)
}

func TestSplitErrors(t *testing.T) {
    pdf := pdftest.Build(3)
    cases := []struct {
        name   string
        files  []part
        fields map[string]string
        code   int
        kind   string
    }{
        {"no file", nil, map[string]string{"mode": "each_page"}, http.StatusBadRequest, "NoDocument"},
        {"bad range", []part{{"file", "a.pdf", pdf}}, map[string]string{"mode": "custom_ranges", "ranges": "2-x"},
            http.StatusBadRequest, "InvalidRangeSyntax"},
        {"chunk not a number", []part{{"file", "a.pdf", pdf}}, map[string]string{"mode": "every_n", "chunk_size": "two"},
            http.StatusBadRequest, "InvalidChunkSize"},
        {"chunk zero", []part{{"file", "a.pdf", pdf}}, map[string]string{"mode": "every_n", "chunk_size": "0"},
            http.StatusBadRequest, "InvalidChunkSize"},
        {"merge single", []part{{"file", "a.pdf", pdf}}, map[string]string{"mode": "merge_multiple"},
            http.StatusBadRequest, "InsufficientInputs"},
        {"not a pdf", []part{{"file", "a.pdf", []byte("hello there, plain text")}}, nil,
            http.StatusUnsupportedMediaType, "NotPDF"},
        {"remote disabled", nil, map[string]string{"file_url": "s3://bucket/a.pdf"},
            http.StatusBadRequest, "UnsupportedRef"},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            mux, _ := newTestMux(Dependencies{})
            rec := serve(mux, multipartRequest(t, "/split", tc.files, tc.fields))
            assert.Equal(t, tc.code, rec.Code, rec.Body.String())
            assert.Equal(t, tc.kind, decodeError(t, rec).Kind)
        })
    }
}

func TestSplitEmptySelection(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, multipartRequest(t, "/split",
        []part{{"file", "a.pdf", pdftest.Build(1)}}, map[string]string{"mode": "odd_even", "odd_even": "even"}))
    require.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
    var e emptyResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
    assert.Equal(t, "empty", e.Status)
}

func TestSplitBlankRangesIsEmptySelection(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    for _, fields := range []map[string]string{
        {"mode": "custom_ranges"},
        {"mode": "custom_ranges", "ranges": "  "},
    } {
        rec := serve(mux, multipartRequest(t, "/split", []part{{"file", "a.pdf", pdftest.Build(3)}}, fields))
        require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
        assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
        var e emptyResp
        require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
        assert.Equal(t, "empty", e.Status)
    }
}

func TestSplitTooLarge(t *testing.T) {
    mux, _ := newTestMux(Dependencies{MaxUploadBytes: 512})
    rec := serve(mux, multipartRequest(t, "/split", []part{{"file", "a.pdf", bytes.Repeat([]byte("x"), 4096)}}, nil))
    assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
    assert.Equal(t, "TooLarge", decodeError(t, rec).Kind)
}

func TestSplitBusy(t *testing.T) {
    slots := limiter.New(limiter.Options{MaxInflight: 1})
    release, err := slots.Acquire(context.Background())
    require.NoError(t, err)
    defer release()

    mux, _ := newTestMux(Dependencies{Slots: slots})
    rec := serve(mux, multipartRequest(t, "/split", []part{{"file", "a.pdf", pdftest.Build(1)}}, nil))
    assert.Equal(t, http.StatusTooManyRequests, rec.Code)
    assert.Equal(t, "Busy", decodeError(t, rec).Kind)
}

func TestSplitFileURL(t *testing.T) {
    pdf := pdftest.Build(2)
    src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write(pdf) }))
    defer src.Close()

    mux, _ := newTestMux(Dependencies{Fetcher: storage.NewFetcher(storage.Options{Timeout: 5 * time.Second})})
    rec := serve(mux, multipartRequest(t, "/split", nil, map[string]string{"file_url": src.URL + "/remote.pdf", "mode": "merge_all"}))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, []string{"merged_all_split.pdf"}, zipNames(t, rec.Body.Bytes()))
}

func TestSplitMethodNotAllowed(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, httptest.NewRequest(http.MethodGet, "/split", nil))
    assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestInspect(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, multipartRequest(t, "/inspect", []part{{"file", "report.pdf", pdftest.Build(4)}}, nil))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    var info inspectResp
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
    assert.Equal(t, inspectResp{Name: "report.pdf", Pages: 4, MIME: "application/pdf"}, info)
}

func TestPreview(t *testing.T) {
    mux, _ := newTestMux(Dependencies{Preview: config.PreviewConfig{DPI: 72, MaxDPI: 100, Quality: 80}})
    rec := serve(mux, multipartRequest(t, "/preview", []part{{"file", "a.pdf", pdftest.Build(2)}}, map[string]string{"page": "2", "dpi": "500"}))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
    assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
    assert.NotZero(t, rec.Body.Len())

    rec = serve(mux, multipartRequest(t, "/preview", []part{{"file", "a.pdf", pdftest.Build(2)}}, map[string]string{"page": "3"}))
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Equal(t, "PageOutOfBounds", decodeError(t, rec).Kind)
}

func TestJobNotFound(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    assert.Equal(t, http.StatusNotFound, serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/abc", nil)).Code)

    mux, _ = newTestMux(Dependencies{Status: newMemStatus()})
    assert.Equal(t, http.StatusNotFound, serve(mux, httptest.NewRequest(http.MethodGet, "/jobs/abc", nil)).Code)
}

func TestStatusEndpoint(t *testing.T) {
    mux, _ := newTestMux(Dependencies{})
    rec := serve(mux, httptest.NewRequest(http.MethodGet, "/status", nil))
    require.Equal(t, http.StatusOK, rec.Code)
    var body map[string]map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
    assert.Equal(t, true, body["pdfcpu"]["ok"])
    assert.Equal(t, false, body["redis"]["ok"])
}
