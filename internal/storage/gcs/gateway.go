// Package gcs provides a storage.Gateway backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/CyborPunk-2077/article-scraper/internal/storage"
)

// Gateway implements storage.Gateway against GCS buckets. Authentication is
// handled via Application Default Credentials.
type Gateway struct {
	client *gstorage.Client
}

// New wraps an existing GCS client.
func New(client *gstorage.Client) (*Gateway, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return &Gateway{client: client}, nil
}

// List iterates objects under prefix. With a delimiter, synthetic prefix
// entries from the iterator become Listing.Prefixes.
func (g *Gateway) List(ctx context.Context, bucket, prefix, delimiter string) (storage.Listing, error) {
	if bucket == "" {
		return storage.Listing{}, fmt.Errorf("bucket is required")
	}
	it := g.client.Bucket(bucket).Objects(ctx, &gstorage.Query{
		Prefix:    prefix,
		Delimiter: delimiter,
	})
	var listing storage.Listing
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return storage.Listing{}, fmt.Errorf("list objects in %s: %w", bucket, err)
		}
		if attrs.Prefix != "" {
			listing.Prefixes = append(listing.Prefixes, attrs.Prefix)
			continue
		}
		listing.Objects = append(listing.Objects, storage.Object{
			Key:         attrs.Name,
			Size:        attrs.Size,
			Updated:     attrs.Updated,
			ContentType: attrs.ContentType,
		})
	}
	return listing, nil
}

// Get reads an object fully into memory and returns its content type.
func (g *Gateway) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	if bucket == "" || key == "" {
		return nil, "", fmt.Errorf("bucket and key are required")
	}
	reader, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("open object %s/%s: %w", bucket, key, err)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		closeErr := reader.Close()
		if closeErr != nil {
			return nil, "", fmt.Errorf("read object %s/%s: %w (close reader: %v)", bucket, key, err, closeErr)
		}
		return nil, "", fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	contentType := reader.Attrs.ContentType
	if err := reader.Close(); err != nil {
		return nil, "", fmt.Errorf("close reader for %s/%s: %w", bucket, key, err)
	}
	return data, contentType, nil
}

// Put uploads data, finalizing via writer Close as the client requires.
func (g *Gateway) Put(ctx context.Context, bucket, key, contentType string, data []byte) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("bucket and key are required")
	}
	writer := g.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object %s/%s: %w (close writer: %v)", bucket, key, err, closeErr)
		}
		return fmt.Errorf("write object %s/%s: %w", bucket, key, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer for %s/%s: %w", bucket, key, err)
	}
	return nil
}
