// Package datasource reads the static JSON documents Kairo plans from:
// the curriculum index, per-program curricula and scraped term offerings.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oumizumi/Kairo-sub002/pkg/storage"
)

// ErrNotFound the named document does not exist
var ErrNotFound = errors.New("document not found")

// Source fetches a document by slash-separated name.
// Version returns an opaque tag that changes whenever the document does.
type Source interface {
	Fetch(ctx context.Context, name string) (body []byte, version string, err error)
	Version(ctx context.Context, name string) (string, error)
}

// ── local directory ──

// FileSource reads documents below a root directory.
type FileSource struct {
	root string
}

// NewFileSource creates a FileSource
func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

func (s *FileSource) resolve(name string) (string, error) {
	clean := path.Clean("/" + name)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (s *FileSource) Fetch(_ context.Context, name string) ([]byte, string, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, "", err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, "", err
	}
	body, err := os.ReadFile(p)
	if err != nil {
		return nil, "", err
	}
	return body, fileVersion(info), nil
}

func (s *FileSource) Version(_ context.Context, name string) (string, error) {
	p, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return "", err
	}
	return fileVersion(info), nil
}

func fileVersion(info os.FileInfo) string {
	return strconv.FormatInt(info.ModTime().UnixNano(), 36) + "-" + strconv.FormatInt(info.Size(), 36)
}

// ── static web server ──

// HTTPSource fetches documents from the site that serves /curriculums and /api/data.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates an HTTPSource
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

const maxDocumentSize = 64 << 20

func (s *HTTPSource) do(ctx context.Context, method, name string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+"/"+strings.TrimLeft(name, "/"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: HTTP %d", name, resp.StatusCode)
	}
	return resp, nil
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, string, error) {
	resp, err := s.do(ctx, http.MethodGet, name)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", name, err)
	}
	return body, httpVersion(resp), nil
}

func (s *HTTPSource) Version(ctx context.Context, name string) (string, error) {
	resp, err := s.do(ctx, http.MethodHead, name)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	return httpVersion(resp), nil
}

func httpVersion(resp *http.Response) string {
	if etag := resp.Header.Get("ETag"); etag != "" {
		return etag
	}
	return resp.Header.Get("Last-Modified")
}

// ── object storage ──

// ObjectStore is the subset of the MinIO client a Source needs.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
	ETag(ctx context.Context, key string) (string, error)
}

// ObjectSource reads documents from a bucket, optionally below a key prefix.
type ObjectSource struct {
	store  ObjectStore
	prefix string
}

// NewObjectSource creates an ObjectSource
func NewObjectSource(store ObjectStore, prefix string) *ObjectSource {
	return &ObjectSource{store: store, prefix: strings.Trim(prefix, "/")}
}

func (s *ObjectSource) key(name string) string {
	name = strings.TrimLeft(name, "/")
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func (s *ObjectSource) Fetch(ctx context.Context, name string) ([]byte, string, error) {
	body, etag, err := s.store.Get(ctx, s.key(name))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return body, etag, err
}

func (s *ObjectSource) Version(ctx context.Context, name string) (string, error) {
	etag, err := s.store.ETag(ctx, s.key(name))
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return etag, err
}
