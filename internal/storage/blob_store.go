// Package storage is the client side of the attachment store. Buckets are
// opened through gocloud.dev URLs so the same code runs against S3, a local
// directory or an in-memory bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/spec-kit/support-desk/internal/config"
)

// StoredObject identifies a blob after a successful write.
type StoredObject struct {
	Key string
	URL string
}

// BlobStore writes attachment blobs into a bucket and resolves public URLs for them.
type BlobStore struct {
	bucket  *blob.Bucket
	baseURL string
}

// Open connects to the bucket named by cfg.BucketURL.
func Open(ctx context.Context, cfg config.StorageConfig) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BucketURL) == "" {
		return nil, errors.New("storage bucket url not configured")
	}
	bucket, err := blob.OpenBucket(ctx, cfg.BucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBlobStore(bucket, cfg.PublicBaseURL), nil
}

// NewBlobStore wraps an already opened bucket.
func NewBlobStore(bucket *blob.Bucket, publicBaseURL string) *BlobStore {
	return &BlobStore{bucket: bucket, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Put uploads data under key and returns its retrieval address.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) (StoredObject, error) {
	key = SanitizeKey(key)
	if key == "" {
		return StoredObject{}, errors.New("empty object key")
	}
	opts := &blob.WriterOptions{ContentType: contentType, Metadata: metadata}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return StoredObject{}, fmt.Errorf("write %s: %w", key, err)
	}
	return StoredObject{Key: key, URL: s.URL(key)}, nil
}

// URL returns the public address for key.
func (s *BlobStore) URL(key string) string {
	key = SanitizeKey(key)
	if s.baseURL == "" {
		return "/" + key
	}
	return s.baseURL + "/" + key
}

// List returns every key under prefix. It is used to find orphaned attachments.
func (s *BlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = SanitizeKey(prefix)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	iter := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	var keys []string
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Ping checks that the bucket is reachable.
func (s *BlobStore) Ping(ctx context.Context) error {
	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("bucket not accessible")
	}
	return nil
}

// Close releases the bucket.
func (s *BlobStore) Close() error {
	if s == nil || s.bucket == nil {
		return nil
	}
	return s.bucket.Close()
}

// SanitizeKey prevents path traversal and strips leading slashes.
func SanitizeKey(key string) string {
	key = strings.ReplaceAll(key, "\\", "/")
	parts := strings.Split(key, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, "/")
}

// SafeFilename reduces a client supplied name to its base component.
func SafeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
