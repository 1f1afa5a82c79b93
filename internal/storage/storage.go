// Package storage defines the object storage capability consumed by the pipeline.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// ObjectStore reads and writes artifacts in a storage bucket.
type ObjectStore interface {
	// Fetch downloads an object and returns its contents.
	Fetch(ctx context.Context, bucket, key string) ([]byte, error)
	// Store uploads data to the given location.
	Store(ctx context.Context, bucket, key string, data []byte) error
	// Copy duplicates an object server-side without downloading it.
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
}

// URI formats a bucket and key as an s3:// location.
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// ParseURI splits an s3:// location into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	trimmed, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}

	bucket, key, ok = strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 uri: %q", uri)
	}

	return bucket, key, nil
}
