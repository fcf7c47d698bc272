package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("%PDF-1.4 test"))
	}))
	defer server.Close()

	result, err := Document(context.Background(), server.URL+"/invoice.pdf", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 test"), result.Data)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestDocument_SetsUserAgentAndHeaders(t *testing.T) {
	var gotUA, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("data"))
	}))
	defer server.Close()

	_, err := Document(context.Background(), server.URL, &Options{
		Headers: map[string]string{"Authorization": "Bearer token"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUA)
	assert.Equal(t, "Bearer token", gotAuth)
}

func TestDocument_InvalidURL(t *testing.T) {
	for _, u := range []string{"not-a-valid-url", "ftp://example.com/file.pdf", ""} {
		_, err := Document(context.Background(), u, nil)
		require.Error(t, err, u)

		var fetchErr *Error
		assert.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestDocument_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := Document(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Nil(t, result)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestDocument_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Document(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response body")
}

func TestDocument_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer server.Close()

	_, err := Document(context.Background(), server.URL, &Options{MaxBytes: 16})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestDocument_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := Document(context.Background(), server.URL, &Options{Timeout: 50 * time.Millisecond})
	require.Error(t, err)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, fetchErr.Timeout())
}

func TestMIMEType(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{name: "pdf", file: "invoice.pdf", want: "application/pdf"},
		{name: "png upper case", file: "scan.PNG", want: "image/png"},
		{name: "jpg", file: "photo.jpg", want: "image/jpeg"},
		{name: "jpeg", file: "photo.jpeg", want: "image/jpeg"},
		{name: "gif", file: "stamp.gif", want: "image/gif"},
		{name: "webp", file: "label.webp", want: "image/webp"},
		{name: "multiple dots", file: "packing.list.v2.png", want: "image/png"},
		{name: "unknown extension", file: "sheet.xlsx", want: "application/pdf"},
		{name: "no extension", file: "permit", want: "application/pdf"},
		{name: "url with query", file: "https://cdn.example.com/docs/bl.jpg?token=abc", want: "image/jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MIMEType(tt.file))
		})
	}
}
