package orchestrator

import (
    "context"

    "github.com/local/pdfsplitter/internal/store"
)

type redisStatusAdapter struct{ s *store.RedisStatus }

func NewStatusAdapter(s *store.RedisStatus) StatusStore { return &redisStatusAdapter{s: s} }

func (a *redisStatusAdapter) Set(ctx context.Context, jobID string, st Status) error {
    return a.s.Set(ctx, jobID, store.Record{
        Status:   st.Status,
        Mode:     st.Mode,
        Message:  st.Message,
        Start:    st.Start,
        End:      st.End,
        Metadata: st.Metadata,
    })
}

func (a *redisStatusAdapter) Get(ctx context.Context, jobID string) (Status, bool, error) {
    rec, ok, err := a.s.Get(ctx, jobID)
    if !ok || err != nil { return Status{}, ok, err }
    return Status{
        Status:   rec.Status,
        Mode:     rec.Mode,
        Message:  rec.Message,
        Start:    rec.Start,
        End:      rec.End,
        Metadata: rec.Metadata,
    }, true, nil
}
