// Package storage holds uploaded attachments and background music in named
// buckets and hands back the public URL each object is served under.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Bucket names.
const (
	CaseFilesBucket = "case-files"
	MusicBucket     = "music"
)

// ErrInvalidKey is returned for keys that would escape the bucket.
var ErrInvalidKey = errors.New("invalid object key")

// Bucket stores objects under flat keys.
type Bucket interface {
	Put(ctx context.Context, key string, r io.Reader) error
	PublicURL(key string) string
}

// DiskBucket is a Bucket rooted at <root>/<name>, served by the HTTP layer
// at <baseURL>/storage/<name>/<key>.
type DiskBucket struct {
	name    string
	dir     string
	baseURL string
}

// NewDiskBucket creates the bucket directory if needed.
func NewDiskBucket(root, name, baseURL string) (*DiskBucket, error) {
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return &DiskBucket{name: name, dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Name is the bucket name.
func (b *DiskBucket) Name() string { return b.name }

// Put writes r to key.  The object is written to a temporary file first so a
// failed upload never leaves a truncated object behind.
func (b *DiskBucket) Put(ctx context.Context, key string, r io.Reader) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	tmp, err := os.CreateTemp(b.dir, ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(b.dir, key))
}

// PublicURL is the URL key is served under.
func (b *DiskBucket) PublicURL(key string) string {
	return b.baseURL + "/storage/" + b.name + "/" + url.PathEscape(key)
}

func validKey(key string) bool {
	return key != "" && key != "." && key != ".." &&
		!strings.ContainsAny(key, `/\`) && !strings.HasPrefix(key, ".")
}

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

// AttachmentKey names a case file attachment: "<unix millis>.<ext>".
func AttachmentKey(now time.Time, filename string) string {
	return fmt.Sprintf("%d.%s", now.UnixMilli(), Ext(filename))
}

// MusicKey names a background music upload: "bg-music-<unix millis>.<ext>".
func MusicKey(now time.Time, filename string) string {
	return fmt.Sprintf("bg-music-%d.%s", now.UnixMilli(), Ext(filename))
}

// Ext is the text after the last dot of filename, or the whole base name when
// there is no dot.  Anything outside [A-Za-z0-9] is dropped; an empty result
// becomes "bin".
func Ext(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[i+1:]
	}
	ext := strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, base)
	if ext == "" {
		return "bin"
	}
	return ext
}
