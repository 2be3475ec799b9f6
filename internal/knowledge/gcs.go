package knowledge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// ObjectReader reads a whole object from a bucket.
type ObjectReader interface {
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}

// GCSReader reads objects with Application Default Credentials.
type GCSReader struct{}

// ReadObject downloads bucket/object.
func (GCSReader) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// GCSSource reads a JSON seed array stored in Cloud Storage.
type GCSSource struct {
	URI    string
	Reader ObjectReader
}

func (s GCSSource) Name() string { return "gcs" }

func (s GCSSource) Load(ctx context.Context) ([]domain.KnowledgeDoc, error) {
	bucket, object, err := ParseGCSURI(s.URI)
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Load: %w", err)
	}
	reader := s.Reader
	if reader == nil {
		reader = GCSReader{}
	}
	data, err := reader.ReadObject(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Load: %w", err)
	}
	docs, err := decodeSeed(data, s.Name())
	if err != nil {
		return nil, fmt.Errorf("GCSSource.Load: %w", err)
	}
	return docs, nil
}
