// Package memory stores objects in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CyborPunk-2077/article-scraper/internal/storage"
)

type object struct {
	data        []byte
	contentType string
	updated     time.Time
}

// Gateway implements storage.Gateway over nested maps, with real
// prefix/delimiter semantics so listings behave like the GCS gateway.
type Gateway struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
	now     func() time.Time
}

// New creates an empty in-memory gateway.
func New() *Gateway {
	return &Gateway{
		buckets: make(map[string]map[string]object),
		now:     time.Now,
	}
}

// List returns objects under prefix, rolling keys containing the delimiter
// past the prefix up into Listing.Prefixes.
func (g *Gateway) List(_ context.Context, bucket, prefix, delimiter string) (storage.Listing, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	objects := g.buckets[bucket]
	var listing storage.Listing
	seenPrefixes := make(map[string]bool)

	keys := make([]string, 0, len(objects))
	for key := range objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if delimiter != "" {
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				p := prefix + rest[:idx+len(delimiter)]
				if !seenPrefixes[p] {
					seenPrefixes[p] = true
					listing.Prefixes = append(listing.Prefixes, p)
				}
				continue
			}
		}
		obj := objects[key]
		listing.Objects = append(listing.Objects, storage.Object{
			Key:         key,
			Size:        int64(len(obj.data)),
			Updated:     obj.updated,
			ContentType: obj.contentType,
		})
	}
	return listing, nil
}

// Get returns a copy of the stored bytes and content type.
func (g *Gateway) Get(_ context.Context, bucket, key string) ([]byte, string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	obj, ok := g.buckets[bucket][key]
	if !ok {
		return nil, "", fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

// Put stores a copy of data under bucket/key.
func (g *Gateway) Put(_ context.Context, bucket, key, contentType string, data []byte) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("bucket and key are required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.buckets[bucket] == nil {
		g.buckets[bucket] = make(map[string]object)
	}
	g.buckets[bucket][key] = object{
		data:        append([]byte(nil), data...),
		contentType: contentType,
		updated:     g.now(),
	}
	return nil
}

// Keys returns the sorted keys of a bucket. Test helper.
func (g *Gateway) Keys(bucket string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.buckets[bucket]))
	for key := range g.buckets[bucket] {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
