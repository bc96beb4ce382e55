package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupportedRef = errors.New("unsupported document reference")
	ErrTooLarge       = errors.New("document exceeds size limit")
	ErrFetch          = errors.New("fetch failed")
)

// Options configures a Fetcher.
type Options struct {
	Region          string
	DefaultBucket   string
	AccessKeyID     string
	SecretAccessKey string
	Timeout         time.Duration
	MaxBytes        int64
	AllowFileRefs   bool
	HTTPClient      *http.Client
}

// Fetcher resolves document references to bytes. Supported forms:
//   - s3://bucket/key
//   - http(s)://...
//   - file://path (only when AllowFileRefs is set)
//   - a bare key, read from DefaultBucket when one is configured
type Fetcher struct {
	opts Options

	mu         sync.Mutex
	client     *s3.Client
	downloader *manager.Downloader
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{opts: opts}
}

// Fetch downloads ref and returns a display name with its content.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (string, []byte, error) {
	ref = strings.TrimSpace(ref)
	// drop an optional #page fragment
	if i := strings.Index(ref, "#"); i >= 0 {
		ref = ref[:i]
	}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		bucket, key, err := splitS3(ref)
		if err != nil {
			return "", nil, err
		}
		return f.fetchS3(ctx, bucket, key)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		return f.fetchHTTP(ctx, ref)
	case strings.HasPrefix(ref, "file://"):
		if !f.opts.AllowFileRefs {
			return "", nil, fmt.Errorf("%w: file references are disabled", ErrUnsupportedRef)
		}
		return f.fetchFile(strings.TrimPrefix(ref, "file://"))
	case ref != "" && !strings.Contains(ref, "://") && f.opts.DefaultBucket != "":
		return f.fetchS3(ctx, f.opts.DefaultBucket, strings.TrimPrefix(ref, "/"))
	default:
		return "", nil, fmt.Errorf("%w: %q", ErrUnsupportedRef, ref)
	}
}

func splitS3(ref string) (string, string, error) {
	p := strings.TrimPrefix(ref, "s3://")
	slash := strings.Index(p, "/")
	if slash <= 0 || slash == len(p)-1 {
		return "", "", fmt.Errorf("%w: invalid s3 url %q", ErrUnsupportedRef, ref)
	}
	return p[:slash], p[slash+1:], nil
}

func (f *Fetcher) s3Downloader(ctx context.Context) (*manager.Downloader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downloader != nil {
		return f.downloader, nil
	}

	var loadOpts []func(*awscfg.LoadOptions) error
	if f.opts.Region != "" {
		loadOpts = append(loadOpts, awscfg.WithRegion(f.opts.Region))
	}
	if f.opts.AccessKeyID != "" && f.opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(f.opts.AccessKeyID, f.opts.SecretAccessKey, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	f.client = s3.NewFromConfig(cfg)
	f.downloader = manager.NewDownloader(f.client)
	return f.downloader, nil
}

func (f *Fetcher) fetchS3(ctx context.Context, bucket, key string) (string, []byte, error) {
	d, err := f.s3Downloader(ctx)
	if err != nil {
		return "", nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	buf := manager.NewWriteAtBuffer(nil)
	n, err := d.Download(ctx, buf, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return "", nil, fmt.Errorf("%w: s3://%s/%s: %v", ErrFetch, bucket, key, err)
	}
	if f.opts.MaxBytes > 0 && n > f.opts.MaxBytes {
		return "", nil, fmt.Errorf("%w: s3://%s/%s is %d bytes", ErrTooLarge, bucket, key, n)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Msg("downloaded s3 pdf")
	return path.Base(key), buf.Bytes(), nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnsupportedRef, err)
	}
	resp, err := f.opts.HTTPClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("%w: %s: http %d", ErrFetch, rawURL, resp.StatusCode)
	}
	data, err := f.readLimited(resp.Body, rawURL)
	if err != nil {
		return "", nil, err
	}
	name := "download.pdf"
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}
	log.Info().Str("url", rawURL).Int("bytes", len(data)).Msg("downloaded http pdf")
	return name, data, nil
}

func (f *Fetcher) fetchFile(p string) (string, []byte, error) {
	fh, err := os.Open(p)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer fh.Close()
	data, err := f.readLimited(fh, p)
	if err != nil {
		return "", nil, err
	}
	return path.Base(p), data, nil
}

func (f *Fetcher) readLimited(r io.Reader, what string) ([]byte, error) {
	if f.opts.MaxBytes > 0 {
		r = io.LimitReader(r, f.opts.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFetch, what, err)
	}
	if f.opts.MaxBytes > 0 && int64(len(data)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, what)
	}
	return data, nil
}

// HeadBucket checks that the default bucket is reachable.
func (f *Fetcher) HeadBucket(ctx context.Context) error {
	if f.opts.DefaultBucket == "" {
		return errors.New("bucket not configured")
	}
	if _, err := f.s3Downloader(ctx); err != nil {
		return err
	}
	_, err := f.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(f.opts.DefaultBucket)})
	return err
}

// Bucket returns the configured default bucket.
func (f *Fetcher) Bucket() string { return f.opts.DefaultBucket }
