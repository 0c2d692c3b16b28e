package apierr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want Code
	}{
		{"EntityAlreadyExists", EntityAlreadyExists},
		{"BucketAlreadyOwnedByYou", BucketAlreadyOwnedByYou},
		{"BucketAlreadyExists", BucketAlreadyExists},
		{"BadRequestException", BadRequest},
		{"ForbiddenException", Forbidden},
		{"NotFoundException", NotFound},
		{"ThrottlingException", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := &smithy.GenericAPIError{Code: tt.code, Message: "boom"}
			code, provider, msg := Classify(fmt.Errorf("op failed: %w", err))
			assert.Equal(t, tt.want, code)
			assert.Equal(t, tt.code, provider)
			assert.Equal(t, "boom", msg)
		})
	}
}

func TestClassifyNonAPIError(t *testing.T) {
	code, provider, _ := Classify(errors.New("dial tcp: timeout"))
	assert.Equal(t, Unknown, code)
	assert.Empty(t, provider)
	assert.False(t, Is(nil, Unknown))
}

func TestWrapKnownCode(t *testing.T) {
	orig := &smithy.GenericAPIError{Code: "ForbiddenException", Message: "denied"}

	err := Wrap("CreateJob", orig)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, Forbidden, typed.Code)
	assert.Equal(t, "check your IAM permissions", typed.Hint())
	assert.Contains(t, err.Error(), "CreateJob")
	assert.Contains(t, err.Error(), "check your IAM permissions")
	assert.ErrorIs(t, err, orig)
}

func TestWrapUnknownCodeUnchanged(t *testing.T) {
	orig := &smithy.GenericAPIError{Code: "InternalServerErrorException", Message: "oops"}

	err := Wrap("CreateJob", orig)

	assert.Same(t, orig, err)
	assert.NoError(t, Wrap("CreateJob", nil))
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "BucketAlreadyExists", BucketAlreadyExists.String())
	assert.Equal(t, "Unknown", Unknown.String())
	assert.Empty(t, Unknown.Hint())
}
