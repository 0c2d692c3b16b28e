package delivery

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"vidframe/logger"
)

// gcsTarget streams objects into a Google Cloud Storage bucket.
type gcsTarget struct {
	client *storage.Client
	bucket string
	prefix string
}

// credentialsJSON may be base64 encoded or raw JSON. Without it the client
// falls back to application default credentials.
func newGCSTarget(ctx context.Context, settings map[string]string) (*gcsTarget, error) {
	bucket := settings["bucket"]
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	var opts []option.ClientOption
	if raw := settings["credentialsJSON"]; raw != "" {
		opts = append(opts, option.WithCredentialsJSON(decodeMaybeBase64(raw)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return &gcsTarget{client: client, bucket: bucket, prefix: settings["prefix"]}, nil
}

func (t *gcsTarget) Write(ctx context.Context, name string, r io.Reader) error {
	objectName := path.Join(t.prefix, name)
	wc := t.client.Bucket(t.bucket).Object(objectName).NewWriter(ctx)

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %w", err)
	}

	logger.Debugf("Uploaded object '%s' to bucket '%s'", objectName, t.bucket)
	return nil
}

func (t *gcsTarget) Close() error {
	return t.client.Close()
}

func decodeMaybeBase64(s string) []byte {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}
