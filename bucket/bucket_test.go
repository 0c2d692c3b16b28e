package bucket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidframe/apierr"
	"vidframe/models"
)

type fakeS3 struct {
	owned     map[string]bool
	foreign   map[string]bool
	creates   []*s3.CreateBucketInput
	policies  map[string][]string
	createErr error
	objects   map[string][]byte
	puts      []*s3.PutObjectInput
	headErr   error
	policyErr error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{
		owned:    map[string]bool{},
		foreign:  map[string]bool{},
		policies: map[string][]string{},
		objects:  map[string][]byte{},
	}
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.creates = append(f.creates, in)
	name := aws.ToString(in.Bucket)
	switch {
	case f.createErr != nil:
		return nil, f.createErr
	case f.foreign[name]:
		return nil, &smithy.GenericAPIError{Code: "BucketAlreadyExists", Message: "taken"}
	case f.owned[name]:
		return nil, &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou", Message: "yours"}
	}
	f.owned[name] = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, in *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	if f.policyErr != nil {
		return nil, f.policyErr
	}
	name := aws.ToString(in.Bucket)
	f.policies[name] = append(f.policies[name], aws.ToString(in.Policy))
	return &s3.PutBucketPolicyOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]; !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts = append(f.puts, in)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) UploadPart(context.Context, *s3.UploadPartInput, ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CreateMultipartUpload(context.Context, *s3.CreateMultipartUploadInput, ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) CompleteMultipartUpload(context.Context, *s3.CompleteMultipartUploadInput, ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("multipart not expected")
}

func (f *fakeS3) AbortMultipartUpload(context.Context, *s3.AbortMultipartUploadInput, ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return &s3.AbortMultipartUploadOutput{}, nil
}

func TestEnsureCreatesBucketWithPolicy(t *testing.T) {
	api := newFakeS3()

	b, err := Ensure(context.Background(), api, "video-test", "us-west-2")
	require.NoError(t, err)

	assert.Equal(t, "video-test", b.Name)
	assert.True(t, b.Created)
	require.Len(t, api.creates, 1)
	require.NotNil(t, api.creates[0].CreateBucketConfiguration)
	assert.Equal(t, "us-west-2", string(api.creates[0].CreateBucketConfiguration.LocationConstraint))
	assert.Equal(t, []string{b.Policy}, api.policies["video-test"])
}

func TestEnsureDefaultRegionOmitsLocationConstraint(t *testing.T) {
	api := newFakeS3()

	_, err := Ensure(context.Background(), api, "video-test", "us-east-1")
	require.NoError(t, err)

	require.Len(t, api.creates, 1)
	assert.Nil(t, api.creates[0].CreateBucketConfiguration)
}

func TestEnsureTwiceReappliesPolicy(t *testing.T) {
	api := newFakeS3()

	first, err := Ensure(context.Background(), api, "video-test", "us-west-2")
	require.NoError(t, err)
	second, err := Ensure(context.Background(), api, "video-test", "us-west-2")
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.False(t, second.Created)
	assert.Len(t, api.policies["video-test"], 2)
}

func TestEnsureForeignBucketIsTerminal(t *testing.T) {
	api := newFakeS3()
	api.foreign["video-test"] = true

	_, err := Ensure(context.Background(), api, "video-test", "us-west-2")
	require.Error(t, err)

	var typed *apierr.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, apierr.BucketAlreadyExists, typed.Code)
	assert.Empty(t, api.policies)
}

func TestEnsurePropagatesUnknownErrors(t *testing.T) {
	api := newFakeS3()
	api.createErr = &smithy.GenericAPIError{Code: "InvalidBucketName", Message: "bad"}

	_, err := Ensure(context.Background(), api, "Bad_Name", "us-west-2")
	assert.Same(t, api.createErr, err)
}

func TestEnsurePolicyFailure(t *testing.T) {
	api := newFakeS3()
	api.policyErr = errors.New("denied")

	_, err := Ensure(context.Background(), api, "video-test", "us-west-2")
	assert.ErrorIs(t, err, api.policyErr)
}

func TestPolicy(t *testing.T) {
	doc, err := Policy("video-test")
	require.NoError(t, err)

	var parsed models.PolicyDocument
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))
	require.Len(t, parsed.Statement, 2)

	assert.Equal(t, "MediaConvertInput", parsed.Statement[0].Sid)
	assert.Equal(t, "MediaConvertOutput", parsed.Statement[1].Sid)
	for _, stmt := range parsed.Statement {
		assert.Equal(t, "arn:aws:s3:::video-test/*", stmt.Resource)
		assert.Equal(t, "mediaconvert.amazonaws.com", stmt.Principal["Service"])
	}
	assert.ElementsMatch(t, []interface{}{"s3:GetObject", "s3:GetObjectAcl"}, parsed.Statement[0].Action)
}

func TestUploadInputAndExists(t *testing.T) {
	api := newFakeS3()
	file := filepath.Join(t.TempDir(), "clip.MP4")
	require.NoError(t, os.WriteFile(file, []byte("not really a video"), 0o600))

	exists, err := InputExists(context.Background(), api, "video-test", "clip.MP4")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, UploadInput(context.Background(), api, "video-test", "clip.MP4", file))
	require.Len(t, api.puts, 1)
	assert.Equal(t, "video/mp4", aws.ToString(api.puts[0].ContentType))
	assert.Equal(t, "not really a video", string(api.objects["video-test/clip.MP4"]))

	exists, err = InputExists(context.Background(), api, "video-test", "clip.MP4")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInputExistsOtherError(t *testing.T) {
	api := newFakeS3()
	api.headErr = &smithy.GenericAPIError{Code: "Forbidden", Message: "no"}

	_, err := InputExists(context.Background(), api, "video-test", "clip.mp4")
	assert.Error(t, err)
}

func TestUploadInputMissingFile(t *testing.T) {
	err := UploadInput(context.Background(), newFakeS3(), "video-test", "k", filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "failed to open input file"))
}

func TestURI(t *testing.T) {
	assert.Equal(t, "s3://video-test/frames/", URI("video-test", "frames/"))
}
