package main

import (
    "context"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/pdfsplitter/internal/archive"
    cfgpkg "github.com/local/pdfsplitter/internal/config"
    "github.com/local/pdfsplitter/internal/filetype"
    "github.com/local/pdfsplitter/internal/limiter"
    logpkg "github.com/local/pdfsplitter/internal/logger"
    "github.com/local/pdfsplitter/internal/metrics"
    "github.com/local/pdfsplitter/internal/orchestrator"
    "github.com/local/pdfsplitter/internal/pdfdoc"
    "github.com/local/pdfsplitter/internal/statuscheck"
    "github.com/local/pdfsplitter/internal/storage"
    "github.com/local/pdfsplitter/internal/store"
    "github.com/local/pdfsplitter/internal/web"
)

func main() {
    cfg := cfgpkg.FromEnv()

    // Init logging
    if err := logpkg.Init(logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        MaxSizeMB: cfg.Logging.MaxSizeMB,
        MaxBackups: cfg.Logging.MaxBackups,
        MaxAgeDays: cfg.Logging.MaxAgeDays,
        Compress: cfg.Logging.Compress,
        SendToAxiom: cfg.Axiom.Send && cfg.Axiom.APIKey != "",
        AxiomAPIKey: cfg.Axiom.APIKey,
        AxiomOrgID: cfg.Axiom.OrgID,
        AxiomDataset: cfg.Axiom.Dataset,
        AxiomFlush: cfg.Axiom.FlushInterval,
        Service: "pdfsplitter",
    }); err != nil {
        fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
    }
    defer logpkg.Close()

    metrics.Init()

    fetcher := storage.NewFetcher(storage.Options{
        Region: cfg.Storage.S3Region,
        DefaultBucket: cfg.Storage.S3Bucket,
        AccessKeyID: cfg.Storage.AccessKeyID,
        SecretAccessKey: cfg.Storage.SecretAccessKey,
        Timeout: cfg.Storage.FetchTimeout,
        MaxBytes: cfg.HTTP.MaxUploadMB << 20,
        AllowFileRefs: cfg.Storage.AllowFileRefs,
    })

    // Job records (optional)
    var status orchestrator.StatusStore
    var checkOpts = statuscheck.Options{Bucket: fetcher}
    if cfg.Redis.URL != "" {
        rs, err := store.NewRedisStatus(cfg.Redis.URL, cfg.Redis.RecordTTL)
        if err != nil {
            log.Warn().Err(err).Msg("redis unavailable; job records disabled")
        } else {
            defer rs.Close()
            status = orchestrator.NewStatusAdapter(rs)
            checkOpts.Redis = rs
        }
    }

    svc := orchestrator.New(orchestrator.Dependencies{
        Assembler: pdfdoc.NewAssembler(),
        Archiver: archive.New(cfg.Split.ZipLevel),
        Status: status,
        Fetcher: fetcher,
        Detector: filetype.New(),
        Slots: limiter.New(limiter.Options{MaxInflight: cfg.HTTP.MaxConcurrentJobs, Wait: cfg.HTTP.JobSlotWait}),
        Checker: statuscheck.New(checkOpts),
        Defaults: cfg.Split,
        Preview: cfg.Preview,
        MaxUploadBytes: cfg.HTTP.MaxUploadMB << 20,
    })
    mux := http.NewServeMux()
    svc.RegisterRoutes(mux)

    // Upload form
    web.New(web.Options{Username: cfg.Web.Username, Password: cfg.Web.Password, Defaults: cfg.Split}).RegisterRoutes(mux)

    srv := &http.Server{
        Addr: ":" + cfg.HTTP.Port,
        Handler: mux,
        ReadTimeout: cfg.HTTP.ReadTimeout,
        WriteTimeout: cfg.HTTP.WriteTimeout,
    }

    go func(){
        log.Info().Msgf("HTTP server listening on :%s", cfg.HTTP.Port)
        if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    stop := make(chan os.Signal, 1)
    signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
    <-stop
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()
    _ = srv.Shutdown(ctx)
    log.Info().Msg("shutdown complete")
}
