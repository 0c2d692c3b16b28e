package delivery

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidframe/logger"
)

// SourceAPI lists and reads objects from the job's output bucket.
type SourceAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ SourceAPI = (*s3.Client)(nil)

// Mirror copies the objects in bucket whose keys start with dir+match to
// target, naming them relative to dir, and returns how many were written.
// An empty match mirrors all of dir. Folder placeholder keys are skipped.
func Mirror(ctx context.Context, api SourceAPI, bucket, dir, match string, target Target) (int, error) {
	prefix := dir + match
	paginator := s3.NewListObjectsV2Paginator(api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	count := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return count, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, dir)
			if name == "" || strings.HasSuffix(key, "/") {
				continue
			}

			if err := copyObject(ctx, api, bucket, key, name, target); err != nil {
				return count, err
			}
			count++
		}
	}

	logger.Infof("Mirrored %d objects from s3://%s/%s", count, bucket, prefix)
	return count, nil
}

func copyObject(ctx context.Context, api SourceAPI, bucket, key, name string, target Target) error {
	out, err := api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	if err := target.Write(ctx, name, out.Body); err != nil {
		return fmt.Errorf("deliver %s: %w", key, err)
	}
	return nil
}
