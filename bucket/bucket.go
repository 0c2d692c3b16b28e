// Package bucket provisions the S3 bucket MediaConvert reads from and writes to.
package bucket

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"vidframe/apierr"
	"vidframe/logger"
	"vidframe/models"
)

// DefaultRegion is the one region where CreateBucket must not carry a
// location constraint.
const DefaultRegion = "us-east-1"

// API is the subset of the S3 client the provisioner calls.
type API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutBucketPolicy(ctx context.Context, params *s3.PutBucketPolicyInput, optFns ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error)
}

var _ API = (*s3.Client)(nil)

// Bucket is the provisioned bucket.
type Bucket struct {
	Name    string
	Region  string
	Policy  string
	Created bool // false when the caller already owned it
}

// Policy returns the resource policy letting MediaConvert read inputs from
// and write outputs to every key in the bucket.
func Policy(name string) (string, error) {
	principal := map[string]string{"Service": "mediaconvert.amazonaws.com"}
	resource := fmt.Sprintf("arn:aws:s3:::%s/*", name)

	doc := models.PolicyDocument{
		Version: models.PolicyVersion,
		Statement: []models.Statement{
			{
				Sid:       "MediaConvertInput",
				Effect:    "Allow",
				Principal: principal,
				Action:    []string{"s3:GetObject", "s3:GetObjectAcl"},
				Resource:  resource,
			},
			{
				Sid:       "MediaConvertOutput",
				Effect:    "Allow",
				Principal: principal,
				Action:    []string{"s3:PutObject", "s3:PutObjectAcl", "s3:PutObjectTagging"},
				Resource:  resource,
			},
		},
	}
	s, err := doc.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal bucket policy: %w", err)
	}
	return s, nil
}

// createInput shapes CreateBucket for region: us-east-1 takes no
// configuration, every other region needs an explicit location constraint.
func createInput(name, region string) *s3.CreateBucketInput {
	in := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if region != DefaultRegion {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	return in
}

// Ensure creates the bucket in region and applies the MediaConvert policy.
// A bucket the caller already owns is kept and its policy reapplied. A name
// owned by another account yields an *apierr.Error with code
// BucketAlreadyExists.
func Ensure(ctx context.Context, api API, name, region string) (*Bucket, error) {
	policy, err := Policy(name)
	if err != nil {
		return nil, err
	}

	b := &Bucket{Name: name, Region: region, Policy: policy, Created: true}

	if _, err := api.CreateBucket(ctx, createInput(name, region)); err != nil {
		switch apierr.CodeOf(err) {
		case apierr.BucketAlreadyOwnedByYou:
			logger.Infof("Bucket %s already exists and is owned by this account", name)
			b.Created = false
		case apierr.BucketAlreadyExists:
			logger.Errorf("Bucket name %s is already used by another account", name)
			return nil, apierr.Wrap("CreateBucket", err)
		default:
			logger.Errorf("Failed to create bucket %s: %v", name, err)
			return nil, err
		}
	} else {
		logger.Infof("Created bucket: %s", name)
	}

	if _, err := api.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(name),
		Policy: aws.String(policy),
	}); err != nil {
		logger.Errorf("Failed to apply policy to bucket %s: %v", name, err)
		return nil, fmt.Errorf("put bucket policy on %s: %w", name, err)
	}

	if b.Created {
		logger.Info("Applied bucket policy")
	} else {
		logger.Info("Updated bucket policy")
	}
	return b, nil
}

// URI returns the s3:// location of key in bucket.
func URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
