// Package gcsdocs resolves gs:// document URIs for verify_with_document,
// adapted from the original uploader's GCS download helper — the upload and
// signed-URL paths it also carried have no Numa use case, since verify only
// ever needs to read a document the client already placed in the bucket.
package gcsdocs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// Fetcher retrieves receipt/statement bytes from Google Cloud Storage.
type Fetcher struct {
	client *storage.Client
}

// Open constructs a Fetcher backed by a fresh storage.Client.
func Open(ctx context.Context) (*Fetcher, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsdocs: create storage client: %w", err)
	}
	return &Fetcher{client: client}, nil
}

// Close releases the underlying storage client.
func (f *Fetcher) Close() error {
	return f.client.Close()
}

// Fetch downloads the object at uri, which must be in "gs://bucket/object"
// form.
func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := splitGCSURI(uri)
	if err != nil {
		return nil, err
	}

	r, err := f.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcsdocs: open object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcsdocs: read object: %w", err)
	}
	return data, nil
}

// splitGCSURI parses "gs://bucket/path/to/object" into its bucket and
// object components.
func splitGCSURI(uri string) (bucket, object string, err error) {
	const prefix = "gs://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("gcsdocs: uri %q is not a gs:// reference", uri)
	}
	rest := strings.TrimPrefix(uri, prefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("gcsdocs: uri %q is missing bucket or object", uri)
	}
	return parts[0], parts[1], nil
}
