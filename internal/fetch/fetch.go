// Package fetch downloads stored shipment documents over HTTP(S).
// The full payload is returned as bytes together with a MIME type derived from the file name.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; FreightDocReview/1.0)"

// DefaultMaxBytes caps a single document download.
const DefaultMaxBytes int64 = 50 << 20

// DefaultMIMEType is used when the file extension is missing or unknown.
const DefaultMIMEType = "application/pdf"

var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// DocumentResult holds a downloaded document.
type DocumentResult struct {
	URL         string
	Data        []byte
	ContentType string
	StatusCode  int
}

// Error represents an error during document download.
type Error struct {
	URL        string
	Message    string
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the download was abandoned because a deadline passed.
func (e *Error) Timeout() bool {
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Cause, &te) && te.Timeout()
}

// Options configures the fetch behavior.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Headers   map[string]string
	MaxBytes  int64
	Client    *http.Client
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:   DefaultTimeout,
		UserAgent: DefaultUserAgent,
		MaxBytes:  DefaultMaxBytes,
	}
}

func (o *Options) normalize() *Options {
	out := DefaultOptions()
	if o == nil {
		return out
	}
	if o.Timeout > 0 {
		out.Timeout = o.Timeout
	}
	if o.UserAgent != "" {
		out.UserAgent = o.UserAgent
	}
	if o.MaxBytes > 0 {
		out.MaxBytes = o.MaxBytes
	}
	out.Headers = o.Headers
	out.Client = o.Client
	return out
}

// Document retrieves the complete body stored at urlStr.
// Any transport failure, timeout or non-2xx status is returned as *Error; a nil error
// always comes with a non-empty payload.
func Document(ctx context.Context, urlStr string, opts *Options) (*DocumentResult, error) {
	opts = opts.normalize()

	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Host == "" || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", opts.UserAgent)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, opts.MaxBytes+1))
	if err != nil {
		return nil, &Error{
			URL:        urlStr,
			Message:    "failed to read response body",
			StatusCode: resp.StatusCode,
			Cause:      err,
		}
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("document exceeds %d bytes", opts.MaxBytes),
			StatusCode: resp.StatusCode,
		}
	}
	if len(data) == 0 {
		return nil, &Error{
			URL:        urlStr,
			Message:    "empty response body",
			StatusCode: resp.StatusCode,
		}
	}

	return &DocumentResult{
		URL:         urlStr,
		Data:        data,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}

// MIMEType infers the document MIME type from the extension of fileName.
// Unknown or missing extensions map to application/pdf; content is never sniffed.
func MIMEType(fileName string) string {
	name := fileName
	if u, err := url.Parse(fileName); err == nil && u.Scheme != "" {
		name = path.Base(u.Path)
	}
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return DefaultMIMEType
	}
	if mt, ok := mimeTypes[strings.ToLower(name[idx+1:])]; ok {
		return mt
	}
	return DefaultMIMEType
}
