// Package apierr classifies AWS provider errors into a small typed enum.
//
// Provisioners and the job client branch on Code instead of comparing raw
// error-code strings. Errors with a known code are wrapped in *Error, which
// carries a human-readable hint and unwraps to the provider error; anything
// else is returned unchanged by callers.
package apierr

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Code is a provider error code this tool knows how to react to.
type Code int

const (
	Unknown Code = iota
	EntityAlreadyExists
	NoSuchEntity
	BucketAlreadyOwnedByYou
	BucketAlreadyExists
	BadRequest
	Forbidden
	NotFound
	Conflict
	TooManyRequests
)

var codeNames = map[string]Code{
	"EntityAlreadyExists":      EntityAlreadyExists,
	"NoSuchEntity":             NoSuchEntity,
	"BucketAlreadyOwnedByYou":  BucketAlreadyOwnedByYou,
	"BucketAlreadyExists":      BucketAlreadyExists,
	"BadRequestException":      BadRequest,
	"ForbiddenException":       Forbidden,
	"NotFoundException":        NotFound,
	"NotFound":                 NotFound, // S3 HeadObject
	"NoSuchKey":                NotFound,
	"ConflictException":        Conflict,
	"TooManyRequestsException": TooManyRequests,
}

var hints = map[Code]string{
	EntityAlreadyExists:     "the IAM role already exists",
	NoSuchEntity:            "the IAM role or policy does not exist",
	BucketAlreadyOwnedByYou: "the bucket already exists and belongs to this account",
	BucketAlreadyExists:     "the bucket name is already used by another account; choose a different name",
	BadRequest:              "check your job settings and IAM role ARN",
	Forbidden:               "check your IAM permissions",
	NotFound:                "check if the input file exists and the IAM role is correct",
	Conflict:                "the request conflicts with the current state of the resource",
	TooManyRequests:         "request rate exceeded; try again later",
}

var names = [...]string{
	Unknown:                 "Unknown",
	EntityAlreadyExists:     "EntityAlreadyExists",
	NoSuchEntity:            "NoSuchEntity",
	BucketAlreadyOwnedByYou: "BucketAlreadyOwnedByYou",
	BucketAlreadyExists:     "BucketAlreadyExists",
	BadRequest:              "BadRequest",
	Forbidden:               "Forbidden",
	NotFound:                "NotFound",
	Conflict:                "Conflict",
	TooManyRequests:         "TooManyRequests",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(names) {
		return "Unknown"
	}
	return names[c]
}

// Hint returns the friendly message for c, or "" for Unknown.
func (c Code) Hint() string {
	return hints[c]
}

// Error is a provider error with a recognised code.
type Error struct {
	Op       string // provider operation, e.g. "CreateJob"
	Code     Code
	Provider string // raw provider code
	Message  string // provider message
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Op, e.Provider, e.Message)
	if h := e.Code.Hint(); h != "" {
		msg += " (" + h + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Hint returns the friendly message for the error's code.
func (e *Error) Hint() string { return e.Code.Hint() }

// Classify returns the Code of the first smithy.APIError in err's chain, the
// raw provider code and message. Errors without an APIError are Unknown.
func Classify(err error) (Code, string, string) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return Unknown, "", ""
	}
	return codeNames[apiErr.ErrorCode()], apiErr.ErrorCode(), apiErr.ErrorMessage()
}

// CodeOf returns only the Code of err.
func CodeOf(err error) Code {
	c, _, _ := Classify(err)
	return c
}

// Is reports whether err carries the provider code c.
func Is(err error, c Code) bool {
	return err != nil && CodeOf(err) == c
}

// Wrap converts err into *Error when its code is recognised. Unknown and nil
// errors are returned as they are, so callers can propagate them untouched.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	code, provider, message := Classify(err)
	if code == Unknown {
		return err
	}
	return &Error{Op: op, Code: code, Provider: provider, Message: message, Err: err}
}
