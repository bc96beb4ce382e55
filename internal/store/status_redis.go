package store

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    redis "github.com/redis/go-redis/v9"
)

// Record is the audit entry kept for one split/merge job.
type Record struct {
    Status   string                 `json:"status"`
    Mode     string                 `json:"mode"`
    Message  string                 `json:"message"`
    Start    *time.Time             `json:"start_time,omitempty"`
    End      *time.Time             `json:"end_time,omitempty"`
    Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RedisStatus stores job records as hashes that expire after ttl.
type RedisStatus struct {
    client *redis.Client
    keyNS  string
    ttl    time.Duration
}

func NewRedisStatus(redisURL string, ttl time.Duration) (*RedisStatus, error) {
    opt, err := redis.ParseURL(redisURL)
    if err != nil { return nil, fmt.Errorf("parse redis url: %w", err) }
    c := redis.NewClient(opt)
    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()
    if err := c.Ping(ctx).Err(); err != nil { return nil, fmt.Errorf("redis ping: %w", err) }
    return NewRedisStatusClient(c, ttl), nil
}

// NewRedisStatusClient wraps an existing client.
func NewRedisStatusClient(c *redis.Client, ttl time.Duration) *RedisStatus {
    if ttl <= 0 { ttl = 24 * time.Hour }
    return &RedisStatus{client: c, keyNS: "job", ttl: ttl}
}

func (s *RedisStatus) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisStatus) Set(ctx context.Context, jobID string, rec Record) error {
    m := map[string]interface{}{
        "status":  rec.Status,
        "mode":    rec.Mode,
        "message": rec.Message,
    }
    if rec.Start != nil { m["start"] = rec.Start.Format(time.RFC3339Nano) }
    if rec.End != nil { m["end"] = rec.End.Format(time.RFC3339Nano) }
    if rec.Metadata != nil {
        b, err := json.Marshal(rec.Metadata)
        if err != nil { return fmt.Errorf("encode metadata: %w", err) }
        m["metadata"] = string(b)
    }
    k := s.key(jobID)
    pipe := s.client.TxPipeline()
    pipe.HSet(ctx, k, m)
    pipe.Expire(ctx, k, s.ttl)
    _, err := pipe.Exec(ctx)
    return err
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Record, bool, error) {
    res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
    if err != nil { return Record{}, false, err }
    if len(res) == 0 { return Record{}, false, nil }
    rec := Record{
        Status:  res["status"],
        Mode:    res["mode"],
        Message: res["message"],
    }
    if v := res["start"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { rec.Start = &t }
    }
    if v := res["end"]; v != "" {
        if t, err := time.Parse(time.RFC3339Nano, v); err == nil { rec.End = &t }
    }
    if v := res["metadata"]; v != "" {
        _ = json.Unmarshal([]byte(v), &rec.Metadata)
    }
    return rec, true, nil
}

// Ping checks redis connectivity.
func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStatus) Close() error { return s.client.Close() }
