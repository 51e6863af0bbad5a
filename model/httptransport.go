package model

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360/textann/errors"
)

// maxBlobSize caps model artifact downloads at 256 MiB.
const maxBlobSize = 256 << 20

// HTTPTransport fetches model artifacts from an HTTP artifact store and
// optionally caches them on disk so restarts do not re-download.
type HTTPTransport struct {
	baseURL  string
	client   *http.Client
	cacheDir string
	logger   *slog.Logger
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) { t.client = client }
}

// WithCacheDir enables the on-disk artifact cache.
func WithCacheDir(dir string) HTTPTransportOption {
	return func(t *HTTPTransport) { t.cacheDir = dir }
}

// WithTransportLogger sets the transport logger.
func WithTransportLogger(logger *slog.Logger) HTTPTransportOption {
	return func(t *HTTPTransport) { t.logger = logger }
}

// NewHTTPTransport creates a transport rooted at baseURL. Artifacts are
// expected at <baseURL>/<tag>.model.
func NewHTTPTransport(baseURL string, opts ...HTTPTransportOption) (*HTTPTransport, error) {
	if baseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "HTTPTransport", "NewHTTPTransport",
			"base URL is required")
	}

	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "model_transport")

	if t.cacheDir != "" {
		if err := os.MkdirAll(t.cacheDir, 0o755); err != nil {
			return nil, errors.WrapFatal(err, "HTTPTransport", "NewHTTPTransport",
				"create cache directory")
		}
	}
	return t, nil
}

func (t *HTTPTransport) artifactURL(id Identifier) string {
	return t.baseURL + "/" + id.LanguageTag() + ".model"
}

func (t *HTTPTransport) cachePath(id Identifier) string {
	return filepath.Join(t.cacheDir, id.LanguageTag()+".model")
}

// Fetch retrieves the artifact for a language, serving from the disk
// cache when present. Download conditions are accepted but not enforced:
// cellular and background constraints are device-side concerns, and this
// transport runs server-side on wired links where neither applies. Server
// errors are transient so the manager's retry policy applies; a missing
// artifact is invalid and not retried.
func (t *HTTPTransport) Fetch(ctx context.Context, id Identifier, _ DownloadConditions) (Blob, error) {
	if !id.Valid() {
		return Blob{}, errors.WrapInvalid(errors.ErrUnknownModel, "HTTPTransport", "Fetch",
			"invalid language identifier")
	}

	if t.cacheDir != "" {
		if data, err := os.ReadFile(t.cachePath(id)); err == nil && len(data) > 0 {
			t.logger.Debug("artifact served from cache", "language", id)
			return Blob{Identifier: id, Data: data, Version: "cached"}, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.artifactURL(id), nil)
	if err != nil {
		return Blob{}, errors.WrapInvalid(err, "HTTPTransport", "Fetch", "build request")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return Blob{}, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrTransport, err),
			"HTTPTransport", "Fetch", "check artifact store connectivity")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Blob{}, errors.WrapInvalid(
			fmt.Errorf("%w: no artifact for %s", errors.ErrUnknownModel, id),
			"HTTPTransport", "Fetch", "publish the artifact first")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Blob{}, errors.WrapInvalid(
			fmt.Errorf("%w: artifact store returned %d", errors.ErrTransport, resp.StatusCode),
			"HTTPTransport", "Fetch", "check the artifact store configuration")
	case resp.StatusCode != http.StatusOK:
		return Blob{}, errors.WrapTransient(
			fmt.Errorf("%w: artifact store returned %d", errors.ErrTransport, resp.StatusCode),
			"HTTPTransport", "Fetch", "retry later")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBlobSize+1))
	if err != nil {
		return Blob{}, errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrTransport, err),
			"HTTPTransport", "Fetch", "read artifact body")
	}
	if len(data) > maxBlobSize {
		return Blob{}, errors.WrapInvalid(
			fmt.Errorf("%w: artifact exceeds %d bytes", errors.ErrTransport, maxBlobSize),
			"HTTPTransport", "Fetch", "artifact too large")
	}
	if len(data) == 0 {
		return Blob{}, errors.WrapInvalid(
			fmt.Errorf("%w: empty artifact", errors.ErrTransport),
			"HTTPTransport", "Fetch", "artifact store returned no data")
	}

	version := resp.Header.Get("ETag")
	if version == "" {
		version = resp.Header.Get("Last-Modified")
	}

	if t.cacheDir != "" {
		if err := t.writeCache(id, data); err != nil {
			t.logger.Warn("artifact cache write failed", "language", id, "error", err)
		}
	}

	t.logger.Info("artifact fetched", "language", id, "bytes", len(data), "version", version)
	return Blob{Identifier: id, Data: data, Version: version}, nil
}

// writeCache persists the artifact atomically: write to a temp file, then
// rename over the final path.
func (t *HTTPTransport) writeCache(id Identifier, data []byte) error {
	tmp, err := os.CreateTemp(t.cacheDir, id.LanguageTag()+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, t.cachePath(id))
}

// Delete removes the cached artifact. Without a cache directory there is
// nothing to remove.
func (t *HTTPTransport) Delete(_ context.Context, id Identifier) error {
	if !id.Valid() {
		return errors.WrapInvalid(errors.ErrUnknownModel, "HTTPTransport", "Delete",
			"invalid language identifier")
	}
	if t.cacheDir == "" {
		return nil
	}
	if err := os.Remove(t.cachePath(id)); err != nil && !os.IsNotExist(err) {
		return errors.WrapTransient(err, "HTTPTransport", "Delete", "remove cached artifact")
	}
	return nil
}

// Compile-time interface check.
var _ Transport = (*HTTPTransport)(nil)
