// Package download fetches remote media into the local cache with at most
// one transfer per destination.
package download

import (
	"EnclosureAPI/internal/helper"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

var ErrUnsupportedScheme = errors.New("unsupported download scheme")

// ObjectFetcher streams an object from a bucket addressed as scheme://bucket/key.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
}

// ProgressFunc receives a percentage in [0, 100].
type ProgressFunc func(percent int)

type Manager struct {
	httpClient *http.Client
	fetchers   map[string]ObjectFetcher
	policy     *Policy
	group      singleflight.Group

	mu     sync.Mutex
	active map[string]string

	maxRetries int
	baseDelay  time.Duration
}

// NewManager registers fetchers by URL scheme, e.g. "s3" or "gs". A nil
// policy allows any URL.
func NewManager(httpClient *http.Client, fetchers map[string]ObjectFetcher, policy *Policy) *Manager {
	if fetchers == nil {
		fetchers = map[string]ObjectFetcher{}
	}
	return &Manager{
		httpClient: httpClient,
		fetchers:   fetchers,
		policy:     policy,
		active:     make(map[string]string),
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
}

// Check reports whether the policy permits fetching rawURL.
func (m *Manager) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrURLNotAllowed, err)
	}
	if m.policy == nil {
		return nil
	}
	return m.policy.Check(ctx, u)
}

// Download stores rawURL at dest. Concurrent calls for the same dest share
// one transfer, and an existing dest is treated as already downloaded.
func (m *Manager) Download(ctx context.Context, rawURL, fileName, dest string, onProgress ProgressFunc) error {
	if err := m.Check(ctx, rawURL); err != nil {
		return err
	}

	if fileExists(dest) {
		report(onProgress, 100)
		return nil
	}

	_, err, shared := m.group.Do(filepath.Clean(dest), func() (interface{}, error) {
		if fileExists(dest) {
			return nil, nil
		}

		m.track(dest, fileName, true)
		defer m.track(dest, fileName, false)

		return nil, m.fetch(ctx, rawURL, dest, onProgress)
	})
	if shared {
		slog.Debug("Joined in-flight download", "file", fileName)
	}
	if err != nil {
		return err
	}

	report(onProgress, 100)
	return nil
}

// Active lists the file names currently being transferred.
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.active))
	for _, name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) track(dest, fileName string, started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if started {
		m.active[dest] = fileName
		return
	}
	delete(m.active, dest)
}

func (m *Manager) fetch(ctx context.Context, rawURL, dest string, onProgress ProgressFunc) error {
	body, total, err := m.open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	src := io.Reader(body)
	if total > 0 && onProgress != nil {
		src = &progressReader{r: body, total: total, onProgress: onProgress, last: -1}
	}

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("write download: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close download: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("commit download: %w", err)
	}
	return nil
}

func (m *Manager) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse download url: %w", err)
	}

	switch scheme := strings.ToLower(u.Scheme); scheme {
	case "http", "https":
		return m.openHTTP(ctx, rawURL)
	default:
		fetcher, ok := m.fetchers[scheme]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
		}
		return fetcher.Fetch(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	}
}

func (m *Manager) openHTTP(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	operation := func() (*http.Response, bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, false, err
		}

		resp, err := m.httpClient.Do(req)
		if helper.ShouldRetryHTTP(resp, err) {
			if resp != nil {
				resp.Body.Close()
				err = fmt.Errorf("download returned status %d", resp.StatusCode)
			}
			return nil, true, err
		}
		if err != nil {
			return nil, false, err
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, false, fmt.Errorf("failed to download file, status code: %d", resp.StatusCode)
		}

		return resp, false, nil
	}

	resp, err := helper.RetryWithBackoff(ctx, operation, m.maxRetries, m.baseDelay)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body, resp.ContentLength, nil
}

type progressReader struct {
	r          io.Reader
	read       int64
	total      int64
	last       int
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)

	percent := int(p.read * 100 / p.total)
	if percent > 100 {
		percent = 100
	}
	if percent != p.last {
		p.last = percent
		p.onProgress(percent)
	}
	return n, err
}

func report(onProgress ProgressFunc, percent int) {
	if onProgress != nil {
		onProgress(percent)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
