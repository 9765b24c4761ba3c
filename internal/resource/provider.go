package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// UnavailableError means a remote or local resource could not be fetched or decoded.
type UnavailableError struct {
	URL string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("resource %s unavailable: %v", e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Provider fetches the raw bytes behind a URL.
type Provider interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPProvider fetches http(s) URLs.
type HTTPProvider struct {
	Client *http.Client
}

func NewHTTPProvider(timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{Client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProvider) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &UnavailableError{URL: rawURL, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// FileProvider reads file:// URLs and bare paths.
type FileProvider struct{}

func (FileProvider) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}
	path := strings.TrimPrefix(rawURL, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}
	return data, nil
}

// Router dispatches on the URL scheme and inflates .gz and .zst payloads.
type Router struct {
	HTTP Provider
	File Provider
	// S3 is optional; s3:// URLs fail without it.
	S3 Provider
}

func NewRouter(httpTimeout time.Duration, s3 Provider) *Router {
	return &Router{
		HTTP: NewHTTPProvider(httpTimeout),
		File: FileProvider{},
		S3:   s3,
	}
}

var errNoS3 = errors.New("s3 storage is not configured")

func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}

	var p Provider
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		p = r.HTTP
	case "s3":
		if r.S3 == nil {
			return nil, &UnavailableError{URL: rawURL, Err: errNoS3}
		}
		p = r.S3
	case "file", "":
		p = r.File
	default:
		return nil, &UnavailableError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}

	data, err := p.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	data, err = decompress(u.Path, data)
	if err != nil {
		return nil, &UnavailableError{URL: rawURL, Err: err}
	}
	return data, nil
}
