package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"

    "github.com/local/pdfsplitter/internal/archive"
    "github.com/local/pdfsplitter/internal/config"
    "github.com/local/pdfsplitter/internal/filetype"
    "github.com/local/pdfsplitter/internal/limiter"
    "github.com/local/pdfsplitter/internal/logger"
    "github.com/local/pdfsplitter/internal/metrics"
    "github.com/local/pdfsplitter/internal/naming"
    "github.com/local/pdfsplitter/internal/pagerange"
    "github.com/local/pdfsplitter/internal/pdfdoc"
    "github.com/local/pdfsplitter/internal/selection"
    "github.com/local/pdfsplitter/internal/statuscheck"
)

var (
    // ErrEmptySelection means the request was valid but matched no pages.
    // It is a notice for the caller rather than a failure.
    ErrEmptySelection = errors.New("selection produced no output files")
    ErrNoDocument     = errors.New("no document provided")
)

type Assembler interface {
    Assemble(ctx context.Context, docs []*pdfdoc.Document, refs []selection.PageRef) ([]byte, error)
}

type Archiver interface {
    Build(entries []archive.Entry) ([]byte, error)
}

// Fetcher resolves file_url references (s3://, http(s)://, file://).
type Fetcher interface {
    Fetch(ctx context.Context, ref string) (string, []byte, error)
}

type Status struct {
    Status   string
    Mode     string
    Message  string
    Start    *time.Time
    End      *time.Time
    Metadata map[string]any
}

type StatusStore interface {
    Set(ctx context.Context, jobID string, st Status) error
    Get(ctx context.Context, jobID string) (Status, bool, error)
}

type Checker interface {
    Summary(ctx context.Context) statuscheck.Summary
}

type Dependencies struct {
    Assembler Assembler
    Archiver  Archiver
    Status    StatusStore
    Fetcher   Fetcher
    Detector  *filetype.Detector
    Slots     *limiter.Slots
    Checker   Checker

    Defaults       config.SplitConfig
    Preview        config.PreviewConfig
    MaxUploadBytes int64
}

// Options describes one split/merge request.
type Options struct {
    Mode        selection.Mode
    RangeExpr   string
    ChunkSize   int
    OddEven     string
    Suffix      string
    ArchiveName string

    // Progress, when set, is called after each output file is assembled.
    Progress func(done, total int)
}

// Result is a finished job.
type Result struct {
    JobID       string
    ArchiveName string
    Archive     []byte
    Files       []string
    Groups      []selection.Group
}

type Service struct {
    deps Dependencies
}

func New(deps Dependencies) *Service {
    if deps.Assembler == nil { deps.Assembler = pdfdoc.NewAssembler() }
    if deps.Archiver == nil { deps.Archiver = archive.New(deps.Defaults.ZipLevel) }
    if deps.Detector == nil { deps.Detector = filetype.New() }
    if deps.Slots == nil { deps.Slots = limiter.New(limiter.Options{MaxInflight: 1}) }
    if deps.Checker == nil { deps.Checker = statuscheck.New(statuscheck.Options{}) }
    if deps.MaxUploadBytes <= 0 { deps.MaxUploadBytes = 64 << 20 }
    return &Service{deps: deps}
}

// Run turns docs into a ZIP of PDFs according to opts. Output files are
// built in group order; any failure aborts the job with no partial output.
func (s *Service) Run(ctx context.Context, opts Options, docs []*pdfdoc.Document) (*Result, error) {
    jobID := uuid.NewString()
    mode := modeLabel(opts.Mode)
    lg := logger.ForJob(jobID, mode)
    start := time.Now()

    names := make([]string, len(docs))
    for i, d := range docs { names[i] = d.Name() }
    s.record(ctx, lg, jobID, Status{Status: "processing", Mode: mode, Message: "started", Start: &start,
        Metadata: map[string]any{"files": names, "pages": pdfdoc.PageCounts(docs)}})
    lg.Info().Strs("files", names).Msg("job started")

    res, err := s.run(ctx, lg, jobID, opts, docs)

    end := time.Now()
    outcome, msg := "success", "completed"
    meta := map[string]any{"files": names}
    switch {
    case errors.Is(err, ErrEmptySelection):
        outcome, msg = "empty", err.Error()
    case err != nil:
        outcome, msg = "error", err.Error()
        meta["kind"] = ErrorKind(err)
    default:
        meta["output_files"] = res.Files
        meta["archive"] = res.ArchiveName
        meta["archive_bytes"] = len(res.Archive)
    }
    metrics.ObserveJob(mode, outcome, end.Sub(start))
    s.record(ctx, lg, jobID, Status{Status: outcome, Mode: mode, Message: msg, Start: &start, End: &end, Metadata: meta})

    ev := lg.Info()
    if outcome == "error" { ev = lg.Error().Err(err) }
    ev.Str("result", outcome).Dur("duration", end.Sub(start)).Msg("job finished")
    return res, err
}

func (s *Service) run(ctx context.Context, lg zerolog.Logger, jobID string, opts Options, docs []*pdfdoc.Document) (*Result, error) {
    if len(docs) == 0 { return nil, ErrNoDocument }
    mode, err := selection.ParseMode(string(opts.Mode))
    if err != nil { return nil, err }

    req := selection.Request{Mode: mode, ChunkSize: opts.ChunkSize, PageCounts: pdfdoc.PageCounts(docs)}
    switch mode {
    case selection.CustomRanges:
        // a blank expression selects nothing and ends as ErrEmptySelection
        req.Pages, err = pagerange.Parse(opts.RangeExpr, docs[0].PageCount())
        if err != nil { return nil, err }
    case selection.OddEven:
        req.OddEven = selection.Odd
        if strings.TrimSpace(opts.OddEven) != "" {
            if req.OddEven, err = selection.ParseOddEven(opts.OddEven); err != nil { return nil, err }
        }
    }

    groups, err := selection.Select(req)
    if err != nil { return nil, err }
    if len(groups) == 0 { return nil, ErrEmptySelection }
    lg.Debug().Int("groups", len(groups)).Msg("selection ready")

    entries := make([]archive.Entry, 0, len(groups))
    files := make([]string, 0, len(groups))
    for i, g := range groups {
        data, err := s.deps.Assembler.Assemble(ctx, docs, g.Pages)
        if err != nil { return nil, fmt.Errorf("assemble %s: %w", g.Label, err) }
        name := naming.FileName(g.Label, opts.Suffix)
        entries = append(entries, archive.Entry{Name: name, Data: data})
        files = append(files, name)
        lg.Debug().Str("file", name).Int("pages", len(g.Pages)).Int("bytes", len(data)).Msg("output file assembled")
        if opts.Progress != nil { opts.Progress(i+1, len(groups)) }
    }

    zipData, err := s.deps.Archiver.Build(entries)
    if err != nil { return nil, err }

    metrics.AddOutputFiles(string(mode), len(files))
    for _, n := range req.PageCounts { metrics.AddInputPages(n) }

    return &Result{
        JobID:       jobID,
        ArchiveName: naming.ArchiveName(opts.ArchiveName),
        Archive:     zipData,
        Files:       files,
        Groups:      groups,
    }, nil
}

func (s *Service) record(ctx context.Context, lg zerolog.Logger, jobID string, st Status) {
    if s.deps.Status == nil { return }
    if err := s.deps.Status.Set(ctx, jobID, st); err != nil {
        lg.Warn().Err(err).Msg("job record write failed")
    }
}

// modeLabel keeps metric label values bounded to known modes.
func modeLabel(m selection.Mode) string {
    if parsed, err := selection.ParseMode(string(m)); err == nil { return string(parsed) }
    return "invalid"
}
