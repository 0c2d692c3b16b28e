package bucket

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidframe/apierr"
	"vidframe/logger"
)

// HeadAPI checks object existence.
type HeadAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

var _ HeadAPI = (*s3.Client)(nil)

// Upload streams reader to bucket/key with the S3 transfer manager, which
// switches to multipart uploads for large videos.
func Upload(ctx context.Context, api manager.UploadAPIClient, bucket, key string, reader io.Reader) error {
	uploader := manager.NewUploader(api)

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}

// UploadInput uploads the local video file to bucket/key.
func UploadInput(ctx context.Context, api manager.UploadAPIClient, bucket, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open input file %s: %w", file, err)
	}
	defer f.Close()

	return Upload(ctx, api, bucket, key, f)
}

// InputExists reports whether bucket/key exists. A missing key is not an
// error; any other failure is.
func InputExists(ctx context.Context, api HeadAPI, bucket, key string) (bool, error) {
	_, err := api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if apierr.Is(err, apierr.NotFound) {
			return false, nil
		}
		return false, fmt.Errorf("head object %s: %w", URI(bucket, key), err)
	}
	return true, nil
}

func contentType(key string) string {
	switch ext(key) {
	case "mp4", "m4v":
		return "video/mp4"
	case "mov":
		return "video/quicktime"
	case "mkv":
		return "video/x-matroska"
	case "webm":
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

func ext(key string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(key), "."))
}
