package limiter

import (
    "context"
    "errors"
    "time"

    "github.com/local/pdfsplitter/internal/metrics"
)

// ErrBusy is returned when no slot frees up before the wait expires.
var ErrBusy = errors.New("all job slots busy")

// Slots bounds how many jobs run at once in this process.
type Slots struct {
    sem  chan struct{}
    wait time.Duration
}

type Options struct {
    MaxInflight int
    Wait        time.Duration
}

func New(opts Options) *Slots {
    if opts.MaxInflight <= 0 { opts.MaxInflight = 1 }
    if opts.Wait < 0 { opts.Wait = 0 }
    return &Slots{sem: make(chan struct{}, opts.MaxInflight), wait: opts.Wait}
}

// Acquire blocks until a slot is free, the wait elapses (ErrBusy) or ctx
// is done. The returned release func must be called exactly once.
func (s *Slots) Acquire(ctx context.Context) (func(), error) {
    select {
    case s.sem <- struct{}{}:
        return s.release(), nil
    default:
    }
    if s.wait == 0 {
        return nil, ErrBusy
    }

    timer := time.NewTimer(s.wait)
    defer timer.Stop()
    select {
    case s.sem <- struct{}{}:
        return s.release(), nil
    case <-timer.C:
        return nil, ErrBusy
    case <-ctx.Done():
        return nil, ctx.Err()
    }
}

// Allow tries to reserve a slot without waiting.
func (s *Slots) Allow() (func(), bool) {
    select {
    case s.sem <- struct{}{}:
        return s.release(), true
    default:
        return func(){}, false
    }
}

func (s *Slots) InUse() int { return len(s.sem) }

func (s *Slots) release() func() {
    metrics.JobStarted()
    return func() {
        metrics.JobFinished()
        <-s.sem
    }
}
