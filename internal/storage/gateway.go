// Package storage defines the object storage gateway used by every pipeline
// stage, with GCS and in-memory implementations in subpackages.
package storage

import (
	"context"
	"time"
)

// Object describes a stored object as returned by a listing.
type Object struct {
	Key         string
	Size        int64
	Updated     time.Time
	ContentType string
}

// Listing is one page of a delimited list: Prefixes holds the "folders"
// rolled up under the delimiter, Objects the keys at this level.
type Listing struct {
	Prefixes []string
	Objects  []Object
}

// Gateway is a thin pass-through to a bucket's list/get/put API.
// Implementations must honor ctx cancellation.
type Gateway interface {
	// List returns objects under prefix. A non-empty delimiter rolls keys
	// with a further delimiter up into Listing.Prefixes, giving the
	// one-level folder/file split.
	List(ctx context.Context, bucket, prefix, delimiter string) (Listing, error)
	// Get fetches an object's bytes and stored content type.
	Get(ctx context.Context, bucket, key string) ([]byte, string, error)
	// Put writes an object with the given content type.
	Put(ctx context.Context, bucket, key, contentType string, data []byte) error
}
