// Package storage holds uploaded sketch images and returns public URLs.
package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	ErrTooLarge        = errors.New("file exceeds upload limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmpty           = errors.New("file is empty")
)

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// Object describes a stored file.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Store is the blob boundary: it accepts a file and returns a public URL.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (*Object, error)
}

// SketchKey builds sketches/{userID}/{unixMilli}-{name} with every character
// outside [a-zA-Z0-9.-] replaced by an underscore.
func SketchKey(userID uint, filename string, now time.Time) string {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "upload"
	}
	return fmt.Sprintf("sketches/%d/%d-%s", userID, now.UnixMilli(), unsafeChars.ReplaceAllString(name, "_"))
}

// LocalStore writes objects under a directory that the HTTP server exposes
// at PublicURL.
type LocalStore struct {
	dir       string
	publicURL string
	maxBytes  int64
}

func NewLocalStore(dir, publicURL string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/"), maxBytes: maxBytes}, nil
}

func (s *LocalStore) Dir() string { return s.dir }

// Put sniffs the content type, enforces the size limit and writes the
// object atomically.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (*Object, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return nil, fmt.Errorf("invalid key %q", key)
	}

	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, err
	}
	if len(head) == 0 {
		return nil, ErrEmpty
	}
	contentType := http.DetectContentType(head)
	if !allowedTypes[contentType] {
		return nil, ErrUnsupportedType
	}

	dest := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	var src io.Reader = br
	if s.maxBytes > 0 {
		src = io.LimitReader(br, s.maxBytes+1)
	}
	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		return nil, ErrTooLarge
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, err
	}
	return &Object{
		Key:         clean,
		URL:         s.publicURL + "/" + clean,
		ContentType: contentType,
		Size:        n,
	}, nil
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
