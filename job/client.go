// Package job builds, submits and polls MediaConvert frame-extraction jobs.
package job

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/google/uuid"

	"vidframe/apierr"
	"vidframe/logger"
)

// API is the subset of the MediaConvert client used to create and read jobs.
type API interface {
	CreateJob(ctx context.Context, params *mediaconvert.CreateJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error)
	GetJob(ctx context.Context, params *mediaconvert.GetJobInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.GetJobOutput, error)
}

// EndpointAPI discovers the account-specific MediaConvert endpoint.
type EndpointAPI interface {
	DescribeEndpoints(ctx context.Context, params *mediaconvert.DescribeEndpointsInput, optFns ...func(*mediaconvert.Options)) (*mediaconvert.DescribeEndpointsOutput, error)
}

var (
	_ API         = (*mediaconvert.Client)(nil)
	_ EndpointAPI = (*mediaconvert.Client)(nil)
)

// Client submits jobs and reads their status through one resolved endpoint.
type Client struct {
	api      API
	endpoint string
	queueARN string
	newToken func() string
}

// Option configures a Client.
type Option func(*Client)

// WithQueue submits jobs to queueARN instead of the account's default queue.
func WithQueue(queueARN string) Option {
	return func(c *Client) { c.queueARN = queueARN }
}

// WithRequestToken overrides how idempotency tokens are generated.
func WithRequestToken(fn func() string) Option {
	return func(c *Client) { c.newToken = fn }
}

// NewWithAPI wraps an already configured MediaConvert API.
func NewWithAPI(api API, opts ...Option) *Client {
	c := &Client{api: api, newToken: uuid.NewString}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New resolves the account endpoint for awsCfg.Region and returns a Client
// bound to it.
func New(ctx context.Context, awsCfg aws.Config, opts ...Option) (*Client, error) {
	endpoint, err := ResolveEndpoint(ctx, mediaconvert.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}

	api := mediaconvert.NewFromConfig(awsCfg, func(o *mediaconvert.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	c := NewWithAPI(api, opts...)
	c.endpoint = endpoint
	return c, nil
}

// ResolveEndpoint returns the first endpoint URL DescribeEndpoints reports.
// An empty result means the regional default endpoint should be used.
func ResolveEndpoint(ctx context.Context, api EndpointAPI) (string, error) {
	out, err := api.DescribeEndpoints(ctx, &mediaconvert.DescribeEndpointsInput{})
	if err != nil {
		logProviderError(err)
		return "", apierr.Wrap("DescribeEndpoints", err)
	}
	if len(out.Endpoints) == 0 || aws.ToString(out.Endpoints[0].Url) == "" {
		logger.Warn("MediaConvert returned no account endpoint, using the regional default")
		return "", nil
	}
	endpoint := aws.ToString(out.Endpoints[0].Url)
	logger.Debugf("Resolved MediaConvert endpoint: %s", endpoint)
	return endpoint, nil
}

// Endpoint is the resolved account endpoint, or "" for the regional default.
func (c *Client) Endpoint() string { return c.endpoint }

// CreateInput assembles the CreateJob request for r, run as roleARN.
func (c *Client) CreateInput(roleARN string, r Request) *mediaconvert.CreateJobInput {
	in := &mediaconvert.CreateJobInput{
		Role:                 aws.String(roleARN),
		Settings:             BuildSettings(r),
		UserMetadata:         map[string]string{"input": r.InputKey},
		BillingTagsSource:    types.BillingTagsSourceJob,
		AccelerationSettings: &types.AccelerationSettings{Mode: types.AccelerationModeDisabled},
		StatusUpdateInterval: types.StatusUpdateIntervalSeconds60,
		Priority:             aws.Int32(0),
		ClientRequestToken:   aws.String(c.newToken()),
	}
	if c.queueARN != "" {
		in.Queue = aws.String(c.queueARN)
	}
	return in
}

// Submit creates the job and returns its ID. Errors with a known provider
// code come back as *apierr.Error with a hint; anything else is returned
// unchanged.
func (c *Client) Submit(ctx context.Context, roleARN string, r Request) (string, error) {
	if err := r.validate(); err != nil {
		return "", err
	}
	if roleARN == "" {
		return "", fmt.Errorf("role ARN is required")
	}

	out, err := c.api.CreateJob(ctx, c.CreateInput(roleARN, r))
	if err != nil {
		logProviderError(err)
		return "", apierr.Wrap("CreateJob", err)
	}

	id := aws.ToString(out.Job.Id)
	logger.Infof("Job created with ID: %s", id)
	return id, nil
}

// Status makes a single GetJob call and returns the job's current status.
func (c *Client) Status(ctx context.Context, id string) (Status, error) {
	out, err := c.api.GetJob(ctx, &mediaconvert.GetJobInput{Id: aws.String(id)})
	if err != nil {
		logProviderError(err)
		return "", err
	}
	return Status(out.Job.Status), nil
}

// Describe returns the full provider view of the job.
func (c *Client) Describe(ctx context.Context, id string) (*types.Job, error) {
	out, err := c.api.GetJob(ctx, &mediaconvert.GetJobInput{Id: aws.String(id)})
	if err != nil {
		logProviderError(err)
		return nil, err
	}
	return out.Job, nil
}

func logProviderError(err error) {
	code, provider, message := apierr.Classify(err)
	if provider == "" {
		logger.Errorf("MediaConvert request failed: %v", err)
		return
	}
	logger.Errorf("AWS Error: %s - %s", provider, message)
	if hint := code.Hint(); hint != "" {
		logger.Warn(hint)
	}
}
