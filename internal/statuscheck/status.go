package statuscheck

import (
    "context"
    "errors"
    "time"

    "github.com/gen2brain/go-fitz"
    "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
    Ping(ctx context.Context) error
}

// BucketChecker reports whether the document bucket is reachable.
type BucketChecker interface {
    HeadBucket(ctx context.Context) error
    Bucket() string
}

// Checker aggregates health checks for the optional backends.
type Checker struct {
    redis  RedisPinger
    bucket BucketChecker
}

// Options configures the Checker. Nil fields are reported as not configured.
type Options struct {
    Redis  RedisPinger
    Bucket BucketChecker
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Redis    Status `json:"redis"`
    S3       Status `json:"s3"`
    PDFCPU   Status `json:"pdfcpu"`
    Renderer Status `json:"renderer"`
}

func New(opts Options) *Checker {
    return &Checker{redis: opts.Redis, bucket: opts.Bucket}
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Redis:    c.checkRedis(ctx),
        S3:       c.checkS3(ctx),
        PDFCPU:   c.checkPDFCPU(),
        Renderer: c.checkRenderer(),
    }
}

func (c *Checker) checkRedis(ctx context.Context) Status {
    if c.redis == nil {
        return Status{OK: false, Message: "Not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := c.redis.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkS3(ctx context.Context) Status {
    if c.bucket == nil || c.bucket.Bucket() == "" {
        return Status{OK: false, Message: "Bucket not configured"}
    }
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    if err := c.bucket.HeadBucket(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkPDFCPU() Status {
    if model.NewDefaultConfiguration() == nil {
        return Status{OK: false, Message: "Configuration unavailable"}
    }
    return Status{OK: true, Message: "Embedded"}
}

func (c *Checker) checkRenderer() Status {
    // an empty buffer must be rejected by mupdf, proving the library is linked
    if _, err := fitz.NewFromMemory(nil); err == nil {
        return Status{OK: false, Message: "Unexpected renderer state"}
    }
    return Status{OK: true, Message: "Embedded"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    if errors.Is(err, context.DeadlineExceeded) {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
