package metrics

import (
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    jobsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pdfsplitter",
            Name:      "jobs_total",
            Help:      "Split/merge jobs by mode and result (success, empty, error)",
        },
        []string{"mode", "result"},
    )

    jobDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "pdfsplitter",
            Name:      "job_duration_seconds",
            Help:      "Duration of split/merge jobs by mode",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"mode"},
    )

    outputFiles = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "pdfsplitter",
            Name:      "output_files_total",
            Help:      "PDF files written into result archives, by mode",
        },
        []string{"mode"},
    )

    inputPages = prometheus.NewCounter(
        prometheus.CounterOpts{
            Namespace: "pdfsplitter",
            Name:      "input_pages_total",
            Help:      "Pages of all source documents received",
        },
    )

    assemblyLatency = prometheus.NewHistogram(
        prometheus.HistogramOpts{
            Namespace: "pdfsplitter",
            Name:      "assembly_duration_seconds",
            Help:      "Time to assemble one output PDF",
            Buckets:   prometheus.DefBuckets,
        },
    )

    jobsInflight = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "pdfsplitter",
            Name:      "jobs_inflight",
            Help:      "Jobs currently holding a processing slot",
        },
    )

    once sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
    once.Do(func() {
        prometheus.MustRegister(jobsTotal, jobDuration, outputFiles, inputPages, assemblyLatency, jobsInflight)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveJob(mode, result string, dur time.Duration) {
    jobsTotal.WithLabelValues(mode, result).Inc()
    jobDuration.WithLabelValues(mode).Observe(dur.Seconds())
}

func AddOutputFiles(mode string, n int) { outputFiles.WithLabelValues(mode).Add(float64(n)) }
func AddInputPages(n int)               { inputPages.Add(float64(n)) }
func ObserveAssembly(d time.Duration)   { assemblyLatency.Observe(d.Seconds()) }

func JobStarted()  { jobsInflight.Inc() }
func JobFinished() { jobsInflight.Dec() }
