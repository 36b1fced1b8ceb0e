package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

var pdfMagic = []byte("%PDF-")

// Fetcher downloads tender PDFs with a per-attempt timeout, bounded retries
// and a shared rate limit.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     common.FetchConfig
	retry   common.RetryOptions
	logger  *slog.Logger
}

type FetchOption func(*Fetcher)

func WithHTTPClient(c *http.Client) FetchOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}
func WithRetryDelay(d time.Duration) FetchOption {
	return func(f *Fetcher) {
		f.retry.InitialDelay = d
	}
}

func NewFetcher(cfg common.FetchConfig, logger *slog.Logger, opts ...FetchOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	f := &Fetcher{
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		retry: common.RetryOptions{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		logger: logger,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch downloads rawURL into the download directory and returns the local
// path. Files are named by content hash, so fetching the same PDF twice
// yields the same path.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: bad tender url %q", common.ErrInvalidInput, rawURL)
	}

	var body []byte
	err = common.WithRetry(ctx, f.logger, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return common.Permanent(err)
		}
		b, err := f.get(ctx, u.String())
		if err != nil {
			return err
		}
		body = b
		return nil
	}, f.retry)
	if err != nil {
		f.logger.Error("fetch failed", "url", rawURL, "error", err)
		return "", common.NewAppError(common.CodeFetch, "download "+rawURL, err)
	}
	if !bytes.HasPrefix(body, pdfMagic) {
		return "", fmt.Errorf("%w: %s is not a pdf", common.ErrInvalidInput, rawURL)
	}

	sum := sha256.Sum256(body)
	name := hex.EncodeToString(sum[:])[:16] + ".pdf"
	if err := os.MkdirAll(f.cfg.DownloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(f.cfg.DownloadDir, name)
	if err := writeAtomic(path, body); err != nil {
		return "", err
	}
	f.logger.Info("fetched tender document", "url", rawURL, "path", path, "bytes", len(body))
	return path, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, common.Permanent(err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
		// 4xx other than 408/429 will not improve on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return nil, common.Permanent(err)
		}
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close download: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// IngestURL downloads rawURL and ingests it like a local file, recording the
// URL and host on the tender.
func (i *FSIngestor) IngestURL(ctx context.Context, f *Fetcher, rawURL string) (IngestionResult, error) {
	path, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return IngestionResult{SourcePath: rawURL, Err: err.Error()}, err
	}
	extra := entity.TenderMetadata{TenderURL: rawURL}
	if u, err := url.Parse(rawURL); err == nil {
		extra.SourceSite = u.Host
	}
	return i.ingest(ctx, path, extra)
}
