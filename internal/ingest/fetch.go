package ingest

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FetchOptions configures remote source retrieval.
type FetchOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retries   int
}

func (o FetchOptions) withDefaults() FetchOptions {
	if o.UserAgent == "" {
		o.UserAgent = "partmatch-cli/1.0"
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Retries == 0 {
		o.Retries = 3
	}
	return o
}

// Fetch resolves a source argument to a local file path. Local paths pass
// through untouched; http(s) and ftp URLs are downloaded to a temp file
// that keeps the remote extension so LoadSource can dispatch on it. The
// cleanup func removes the temp file and is a no-op for local paths.
func Fetch(ctx context.Context, source string, opts FetchOptions) (string, func(), error) {
	noop := func() {}
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		if u != nil && u.Scheme == "file" {
			return u.Path, noop, nil
		}
		return source, noop, nil
	}

	switch u.Scheme {
	case "http", "https", "ftp":
	default:
		// Windows drive letters parse as single-letter schemes.
		if len(u.Scheme) == 1 {
			return source, noop, nil
		}
		return "", noop, eris.Errorf("ingest: unsupported source scheme %q", u.Scheme)
	}

	tmp, err := os.CreateTemp("", "partmatch-*"+filepath.Ext(u.Path))
	if err != nil {
		return "", noop, eris.Wrap(err, "ingest: create temp file")
	}
	cleanup := func() { _ = os.Remove(tmp.Name()) }

	opts = opts.withDefaults()
	zap.L().Debug("fetching remote source",
		zap.String("url", source),
		zap.String("dest", tmp.Name()))

	switch u.Scheme {
	case "ftp":
		err = fetchFTP(ctx, u, tmp, opts)
	default:
		err = fetchHTTP(ctx, source, tmp, opts)
	}
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = eris.Wrap(cerr, "ingest: close temp file")
	}
	if err != nil {
		cleanup()
		return "", noop, err
	}
	return tmp.Name(), cleanup, nil
}

func fetchHTTP(ctx context.Context, rawURL string, dest io.Writer, opts FetchOptions) error {
	client := &http.Client{Timeout: opts.Timeout}

	var lastErr error
	for attempt := range opts.Retries {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return eris.Wrap(err, "ingest: create request")
		}
		req.Header.Set("User-Agent", opts.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			zap.L().Warn("source download failed, retrying",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			fetchBackoff(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("ingest: http %d from %s", resp.StatusCode, rawURL)
			zap.L().Warn("source download rejected, retrying",
				zap.String("url", rawURL),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1))
			fetchBackoff(ctx, attempt)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return eris.Errorf("ingest: unexpected status %d from %s", resp.StatusCode, rawURL)
		}

		_, err = io.Copy(dest, resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return eris.Wrap(err, "ingest: write download")
		}
		return nil
	}
	return eris.Wrap(lastErr, "ingest: download retries exhausted")
}

func fetchFTP(ctx context.Context, u *url.URL, dest io.Writer, opts FetchOptions) error {
	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "21")
	}
	if u.Path == "" {
		return eris.New("ingest: empty path in ftp url")
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return eris.Wrap(err, "ingest: ftp dial")
	}
	defer conn.Quit() //nolint:errcheck

	user, pass := "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if p, ok := u.User.Password(); ok {
			pass = p
		}
	}
	if err := conn.Login(user, pass); err != nil {
		return eris.Wrap(err, "ingest: ftp login")
	}

	resp, err := conn.Retr(u.Path)
	if err != nil {
		return eris.Wrap(err, "ingest: ftp retrieve")
	}
	defer resp.Close() //nolint:errcheck

	if _, err := io.Copy(dest, resp); err != nil {
		return eris.Wrap(err, "ingest: write download")
	}
	return nil
}

func fetchBackoff(ctx context.Context, attempt int) {
	base := time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// RemoteSource reports whether the source argument needs fetching.
func RemoteSource(source string) bool {
	for _, p := range []string{"http://", "https://", "ftp://"} {
		if strings.HasPrefix(source, p) {
			return true
		}
	}
	return false
}
