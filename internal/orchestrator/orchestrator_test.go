package orchestrator

import (
    "bytes"
    "context"
    "errors"
    "io"
    "net/http"
    "sync"
    "testing"

    "github.com/klauspost/compress/zip"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/local/pdfsplitter/internal/archive"
    "github.com/local/pdfsplitter/internal/pagerange"
    "github.com/local/pdfsplitter/internal/pdfdoc"
    "github.com/local/pdfsplitter/internal/pdftest"
    "github.com/local/pdfsplitter/internal/selection"
)

type memStatus struct {
    mu   sync.Mutex
    recs map[string][]Status
    err  error
}

func newMemStatus() *memStatus { return &memStatus{recs: map[string][]Status{}} }

func (m *memStatus) Set(_ context.Context, jobID string, st Status) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    m.recs[jobID] = append(m.recs[jobID], st)
    return m.err
}

func (m *memStatus) Get(_ context.Context, jobID string) (Status, bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    h := m.recs[jobID]
    if len(h) == 0 { return Status{}, false, nil }
    return h[len(h)-1], true, nil
}

type failingAssembler struct {
    failOn int
    calls  int
}

func (f *failingAssembler) Assemble(context.Context, []*pdfdoc.Document, []selection.PageRef) ([]byte, error) {
    f.calls++
    if f.calls == f.failOn {
        return nil, &pdfdoc.AssemblyError{Doc: "x.pdf", Err: errors.New("boom")}
    }
    return []byte("%PDF-fake"), nil
}

func mustDoc(t *testing.T, name string, pages, offset int) *pdfdoc.Document {
    t.Helper()
    d, err := pdfdoc.FromBytes(name, pdftest.BuildOffset(pages, offset))
    require.NoError(t, err)
    return d
}

func zipNames(t *testing.T, data []byte) []string {
    t.Helper()
    zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
    require.NoError(t, err)
    var names []string
    for _, f := range zr.File { names = append(names, f.Name) }
    return names
}

func zipEntry(t *testing.T, data []byte, name string) []byte {
    t.Helper()
    zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
    require.NoError(t, err)
    for _, f := range zr.File {
        if f.Name != name { continue }
        rc, err := f.Open()
        require.NoError(t, err)
        defer rc.Close()
        b, err := io.ReadAll(rc)
        require.NoError(t, err)
        return b
    }
    t.Fatalf("zip entry %s not found", name)
    return nil
}

func TestRunEachPage(t *testing.T) {
    st := newMemStatus()
    svc := New(Dependencies{Status: st})

    var progress []int
    res, err := svc.Run(context.Background(), Options{
        Mode:        selection.EachPage,
        Suffix:      "split",
        ArchiveName: "out.zip",
        Progress:    func(done, total int) { progress = append(progress, done); assert.Equal(t, 3, total) },
    }, []*pdfdoc.Document{mustDoc(t, "a.pdf", 3, 0)})
    require.NoError(t, err)

    assert.Equal(t, "out.zip", res.ArchiveName)
    assert.Equal(t, []string{"page_1_split.pdf", "page_2_split.pdf", "page_3_split.pdf"}, res.Files)
    assert.Equal(t, res.Files, zipNames(t, res.Archive))
    assert.Equal(t, []int{1, 2, 3}, progress)

    second, err := pdfdoc.FromBytes("p2", zipEntry(t, res.Archive, "page_2_split.pdf"))
    require.NoError(t, err)
    assert.Equal(t, 1, second.PageCount())

    h := st.recs[res.JobID]
    require.Len(t, h, 2)
    assert.Equal(t, "processing", h[0].Status)
    assert.Equal(t, "success", h[1].Status)
    assert.Equal(t, "each_page", h[1].Mode)
    assert.NotNil(t, h[1].End)
}

func TestRunModes(t *testing.T) {
    cases := []struct {
        name  string
        opts  Options
        docs  []int
        files []string
        pages []int
    }{
        {"custom ranges", Options{Mode: selection.CustomRanges, RangeExpr: "4, 1-2"}, []int{5},
            []string{"pages_1-2.pdf", "pages_4.pdf"}, []int{2, 1}},
        {"every n", Options{Mode: selection.EveryN, ChunkSize: 2}, []int{5},
            []string{"part_1.pdf", "part_2.pdf", "part_3.pdf"}, []int{2, 2, 1}},
        {"odd even default", Options{Mode: selection.OddEven}, []int{5},
            []string{"odd_pages.pdf"}, []int{3}},
        {"odd even both", Options{Mode: selection.OddEven, OddEven: "both"}, []int{4},
            []string{"odd_pages.pdf", "even_pages.pdf"}, []int{2, 2}},
        {"merge all", Options{Mode: "merge-all"}, []int{3},
            []string{"merged_all.pdf"}, []int{3}},
        {"merge multiple", Options{Mode: selection.MergeMultiple}, []int{2, 3},
            []string{"merged_files.pdf"}, []int{5}},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            var docs []*pdfdoc.Document
            for i, n := range tc.docs { docs = append(docs, mustDoc(t, "in.pdf", n, 100*i)) }

            res, err := New(Dependencies{}).Run(context.Background(), tc.opts, docs)
            require.NoError(t, err)
            assert.Equal(t, "result.zip", res.ArchiveName)
            assert.Equal(t, tc.files, res.Files)
            for i, f := range tc.files {
                d, err := pdfdoc.FromBytes(f, zipEntry(t, res.Archive, f))
                require.NoError(t, err)
                assert.Equal(t, tc.pages[i], d.PageCount(), f)
            }
        })
    }
}

func TestRunValidation(t *testing.T) {
    one := []*pdfdoc.Document{mustDoc(t, "a.pdf", 3, 0)}
    cases := []struct {
        name string
        opts Options
        docs []*pdfdoc.Document
        want error
    }{
        {"no document", Options{Mode: selection.EachPage}, nil, ErrNoDocument},
        {"unknown mode", Options{Mode: "shuffle"}, one, selection.ErrUnknownMode},
        {"bad range", Options{Mode: selection.CustomRanges, RangeExpr: "1-9"}, one, pagerange.ErrRangeOutOfBounds},
        {"bad chunk", Options{Mode: selection.EveryN}, one, selection.ErrInvalidChunkSize},
        {"bad parity", Options{Mode: selection.OddEven, OddEven: "third"}, one, selection.ErrInvalidOddEven},
        {"merge one", Options{Mode: selection.MergeMultiple}, one, selection.ErrInsufficientInputs},
        {"two docs split", Options{Mode: selection.EachPage}, append(one, mustDoc(t, "b.pdf", 1, 0)), selection.ErrDocumentCount},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            st := newMemStatus()
            _, err := New(Dependencies{Status: st}).Run(context.Background(), tc.opts, tc.docs)
            assert.ErrorIs(t, err, tc.want)
            for _, h := range st.recs {
                assert.Equal(t, "error", h[len(h)-1].Status)
            }
        })
    }
}

func TestRunEmptySelection(t *testing.T) {
    st := newMemStatus()
    res, err := New(Dependencies{Status: st}).Run(context.Background(),
        Options{Mode: selection.OddEven, OddEven: "even"}, []*pdfdoc.Document{mustDoc(t, "a.pdf", 1, 0)})
    assert.Nil(t, res)
    assert.ErrorIs(t, err, ErrEmptySelection)
    assert.Equal(t, "EmptySelection", ErrorKind(err))
    for _, h := range st.recs {
        assert.Equal(t, "empty", h[len(h)-1].Status)
    }
}

func TestRunBlankRangesIsEmptySelection(t *testing.T) {
    for _, expr := range []string{"", "   "} {
        st := newMemStatus()
        res, err := New(Dependencies{Status: st}).Run(context.Background(),
            Options{Mode: selection.CustomRanges, RangeExpr: expr}, []*pdfdoc.Document{mustDoc(t, "a.pdf", 3, 0)})
        assert.Nil(t, res)
        assert.ErrorIs(t, err, ErrEmptySelection, "ranges %q", expr)
        assert.Equal(t, http.StatusOK, httpStatus(ErrorKind(err)))
        for _, h := range st.recs {
            assert.Equal(t, "empty", h[len(h)-1].Status)
        }
    }
}

func TestRunAssemblyFailureAborts(t *testing.T) {
    asm := &failingAssembler{failOn: 2}
    var progress int
    res, err := New(Dependencies{Assembler: asm}).Run(context.Background(),
        Options{Mode: selection.EachPage, Progress: func(done, _ int) { progress = done }},
        []*pdfdoc.Document{mustDoc(t, "a.pdf", 4, 0)})
    assert.Nil(t, res)
    var asmErr *pdfdoc.AssemblyError
    require.ErrorAs(t, err, &asmErr)
    assert.Equal(t, "AssemblyError", ErrorKind(err))
    assert.Equal(t, 2, asm.calls)
    assert.Equal(t, 1, progress)
}

type failingArchiver struct{}

func (failingArchiver) Build([]archive.Entry) ([]byte, error) {
    return nil, archive.ErrArchive
}

func TestRunArchiveFailure(t *testing.T) {
    _, err := New(Dependencies{Archiver: failingArchiver{}}).Run(context.Background(),
        Options{Mode: selection.MergeAll}, []*pdfdoc.Document{mustDoc(t, "a.pdf", 2, 0)})
    assert.ErrorIs(t, err, archive.ErrArchive)
    assert.Equal(t, "ArchiveError", ErrorKind(err))
}

func TestRunStatusWriteFailureIgnored(t *testing.T) {
    st := newMemStatus()
    st.err = errors.New("redis down")
    res, err := New(Dependencies{Status: st}).Run(context.Background(),
        Options{Mode: selection.MergeAll}, []*pdfdoc.Document{mustDoc(t, "a.pdf", 2, 0)})
    require.NoError(t, err)
    assert.Equal(t, []string{"merged_all.pdf"}, res.Files)
}

func TestRunDeterministic(t *testing.T) {
    doc := mustDoc(t, "a.pdf", 6, 0)
    opts := Options{Mode: selection.EveryN, ChunkSize: 4, Suffix: "x"}
    a, err := New(Dependencies{}).Run(context.Background(), opts, []*pdfdoc.Document{doc})
    require.NoError(t, err)
    b, err := New(Dependencies{}).Run(context.Background(), opts, []*pdfdoc.Document{doc})
    require.NoError(t, err)
    assert.Equal(t, a.Files, b.Files)
    assert.Equal(t, a.Groups, b.Groups)
    assert.NotEqual(t, a.JobID, b.JobID)
}
