package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"

	ioutils "github.com/handiism/tubesync/internal/io"
	"github.com/handiism/tubesync/internal/model"
)

// ErrNoBucket is returned by Open for an empty bucket URL.
var ErrNoBucket = errors.New("archive: no bucket configured")

// Archiver uploads local files to a bucket.
type Archiver struct {
	bucket *blob.Bucket
}

// Open opens the bucket at bucketURL ("file:///dir", "mem://", "s3://bucket",
// "gs://bucket").
func Open(ctx context.Context, bucketURL string) (*Archiver, error) {
	if bucketURL == "" {
		return nil, ErrNoBucket
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return New(bucket), nil
}

// New wraps an already open bucket. Close closes it.
func New(bucket *blob.Bucket) *Archiver {
	return &Archiver{bucket: bucket}
}

// Bucket returns the underlying bucket.
func (a *Archiver) Bucket() *blob.Bucket {
	return a.bucket
}

// Close closes the bucket.
func (a *Archiver) Close() error {
	return a.bucket.Close()
}

// Key returns the object key for file within set. An empty set puts the
// file at the top level.
func Key(set string, file *model.LocalFile) string {
	name := filepath.Base(file.Path)
	if dir := ioutils.SanitizeFileName(set); dir != "" {
		return path.Join(dir, name)
	}
	return name
}

// Upload copies file into the bucket and returns its key.
func (a *Archiver) Upload(ctx context.Context, set string, file *model.LocalFile) (string, error) {
	src, err := os.Open(file.Path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	key := Key(set, file)
	opts := &blob.WriterOptions{
		ContentType: contentType(file.Path),
		Metadata: map[string]string{
			"title": file.DisplayTitle(),
		},
	}
	if file.Uploader != "" {
		opts.Metadata["uploader"] = file.Uploader
	}
	if set != "" {
		opts.Metadata["set"] = set
	}

	w, err := a.bucket.NewWriter(ctx, key, opts)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", key, err)
	}
	return key, nil
}

// Exists reports whether key is already archived.
func (a *Archiver) Exists(ctx context.Context, key string) (bool, error) {
	return a.bucket.Exists(ctx, key)
}

// Archived reports whether key is already stored with the given size.
// A missing object is not an error.
func (a *Archiver) Archived(ctx context.Context, key string, size int64) (bool, error) {
	attrs, err := a.bucket.Attributes(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return false, nil
		}
		return false, err
	}
	return attrs.Size == size, nil
}

func contentType(p string) string {
	switch ext := filepath.Ext(p); ext {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
