package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vidframe/apierr"
)

type fakeMediaConvert struct {
	created   []*mediaconvert.CreateJobInput
	createErr error
	statuses  []types.JobStatus
	gets      int
	getErr    error
	endpoints []types.Endpoint
	endErr    error
}

func (f *fakeMediaConvert) CreateJob(_ context.Context, in *mediaconvert.CreateJobInput, _ ...func(*mediaconvert.Options)) (*mediaconvert.CreateJobOutput, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &mediaconvert.CreateJobOutput{Job: &types.Job{Id: aws.String("1700000000000-abc123")}}, nil
}

func (f *fakeMediaConvert) GetJob(_ context.Context, in *mediaconvert.GetJobInput, _ ...func(*mediaconvert.Options)) (*mediaconvert.GetJobOutput, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	i := f.gets - 1
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return &mediaconvert.GetJobOutput{Job: &types.Job{Id: in.Id, Status: f.statuses[i]}}, nil
}

func (f *fakeMediaConvert) DescribeEndpoints(context.Context, *mediaconvert.DescribeEndpointsInput, ...func(*mediaconvert.Options)) (*mediaconvert.DescribeEndpointsOutput, error) {
	if f.endErr != nil {
		return nil, f.endErr
	}
	return &mediaconvert.DescribeEndpointsOutput{Endpoints: f.endpoints}, nil
}

func testRequest() Request {
	return Request{
		InputBucket:   "video-test",
		InputKey:      "VideoClipping0911.mp4",
		OutputBucket:  "video-test",
		FrameInterval: DefaultFrameInterval,
	}
}

func TestBuildSettingsTwoOutputGroups(t *testing.T) {
	s := BuildSettings(testRequest())

	require.Len(t, s.Inputs, 1)
	assert.Equal(t, "s3://video-test/VideoClipping0911.mp4", aws.ToString(s.Inputs[0].FileInput))

	require.Len(t, s.OutputGroups, 2)
	frames, video := s.OutputGroups[0], s.OutputGroups[1]

	assert.Equal(t, FrameCaptureGroup, aws.ToString(frames.Name))
	assert.Equal(t, "s3://video-test/frames/", aws.ToString(frames.OutputGroupSettings.FileGroupSettings.Destination))
	fc := frames.Outputs[0].VideoDescription.CodecSettings.FrameCaptureSettings
	assert.Equal(t, types.VideoCodecFrameCapture, frames.Outputs[0].VideoDescription.CodecSettings.Codec)
	assert.Equal(t, int32(30), aws.ToInt32(fc.FramerateNumerator))
	assert.Equal(t, int32(88), aws.ToInt32(fc.FramerateDenominator))
	assert.Equal(t, int32(1), aws.ToInt32(fc.MaxCaptures))
	assert.Equal(t, int32(80), aws.ToInt32(fc.Quality))
	assert.Equal(t, types.ContainerTypeRaw, frames.Outputs[0].ContainerSettings.Container)

	assert.Equal(t, VideoOutputGroup, aws.ToString(video.Name))
	assert.Equal(t, "s3://video-test/video/", aws.ToString(video.OutputGroupSettings.FileGroupSettings.Destination))
	h264 := video.Outputs[0].VideoDescription.CodecSettings.H264Settings
	assert.Equal(t, types.VideoCodecH264, video.Outputs[0].VideoDescription.CodecSettings.Codec)
	assert.Equal(t, types.H264RateControlModeQvbr, h264.RateControlMode)
	assert.Equal(t, int32(5000000), aws.ToInt32(h264.MaxBitrate))
	assert.Equal(t, int32(7), aws.ToInt32(h264.QvbrSettings.QvbrQualityLevel))
	assert.Equal(t, int32(640), aws.ToInt32(video.Outputs[0].VideoDescription.Width))
	assert.Equal(t, int32(480), aws.ToInt32(video.Outputs[0].VideoDescription.Height))
	assert.Equal(t, types.ContainerTypeMp4, video.Outputs[0].ContainerSettings.Container)
}

func TestSubmitBuildsRequest(t *testing.T) {
	api := &fakeMediaConvert{}
	c := NewWithAPI(api, WithQueue("arn:aws:mediaconvert:us-west-2:1:queues/Default"), WithRequestToken(func() string { return "tok" }))

	id, err := c.Submit(context.Background(), "arn:aws:iam::1:role/MediaConvert_Default_Role", testRequest())
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-abc123", id)

	require.Len(t, api.created, 1)
	in := api.created[0]
	assert.Equal(t, "arn:aws:iam::1:role/MediaConvert_Default_Role", aws.ToString(in.Role))
	assert.Equal(t, "arn:aws:mediaconvert:us-west-2:1:queues/Default", aws.ToString(in.Queue))
	assert.Equal(t, "tok", aws.ToString(in.ClientRequestToken))
	assert.Equal(t, "VideoClipping0911.mp4", in.UserMetadata["input"])
	assert.Equal(t, types.BillingTagsSourceJob, in.BillingTagsSource)
	assert.Equal(t, types.StatusUpdateIntervalSeconds60, in.StatusUpdateInterval)
	assert.Equal(t, int32(0), aws.ToInt32(in.Priority))
	assert.Len(t, in.Settings.OutputGroups, 2)
}

func TestSubmitWithoutQueueUsesDefault(t *testing.T) {
	api := &fakeMediaConvert{}
	c := NewWithAPI(api)

	_, err := c.Submit(context.Background(), "arn:role", testRequest())
	require.NoError(t, err)
	assert.Nil(t, api.created[0].Queue)
	assert.NotEmpty(t, aws.ToString(api.created[0].ClientRequestToken))
}

func TestSubmitKnownErrorCarriesHint(t *testing.T) {
	api := &fakeMediaConvert{createErr: &smithy.GenericAPIError{Code: "BadRequestException", Message: "bad role"}}
	c := NewWithAPI(api)

	_, err := c.Submit(context.Background(), "arn:role", testRequest())
	require.Error(t, err)

	var typed *apierr.Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, apierr.BadRequest, typed.Code)
	assert.Equal(t, "check your job settings and IAM role ARN", typed.Hint())
	assert.ErrorIs(t, err, api.createErr)
}

func TestSubmitUnknownErrorUnchanged(t *testing.T) {
	api := &fakeMediaConvert{createErr: &smithy.GenericAPIError{Code: "InternalServerErrorException", Message: "boom"}}
	c := NewWithAPI(api)

	_, err := c.Submit(context.Background(), "arn:role", testRequest())
	assert.Same(t, api.createErr, err)
}

func TestSubmitValidates(t *testing.T) {
	api := &fakeMediaConvert{}
	c := NewWithAPI(api)

	bad := testRequest()
	bad.FrameInterval = 0
	_, err := c.Submit(context.Background(), "arn:role", bad)
	assert.Error(t, err)

	bad = testRequest()
	bad.FrameInterval = 3000000000
	_, err = c.Submit(context.Background(), "arn:role", bad)
	assert.Error(t, err, "interval must fit the int32 framerate denominator")

	_, err = c.Submit(context.Background(), "", testRequest())
	assert.Error(t, err)
	assert.Empty(t, api.created)
}

func TestFramePrefix(t *testing.T) {
	assert.Equal(t, "VideoClipping0911.", FramePrefix("VideoClipping0911.mp4"))
	assert.Equal(t, "clip.", FramePrefix("uploads/2024/clip.mov"))
	assert.Equal(t, "raw.", Request{InputKey: "raw"}.FramePrefix())
}

func TestResolveEndpoint(t *testing.T) {
	api := &fakeMediaConvert{endpoints: []types.Endpoint{
		{Url: aws.String("https://abcd1234.mediaconvert.us-west-2.amazonaws.com")},
		{Url: aws.String("https://other.example.com")},
	}}

	endpoint, err := ResolveEndpoint(context.Background(), api)
	require.NoError(t, err)
	assert.Equal(t, "https://abcd1234.mediaconvert.us-west-2.amazonaws.com", endpoint)

	endpoint, err = ResolveEndpoint(context.Background(), &fakeMediaConvert{})
	require.NoError(t, err)
	assert.Empty(t, endpoint)

	forbidden := &fakeMediaConvert{endErr: &smithy.GenericAPIError{Code: "ForbiddenException", Message: "no"}}
	_, err = ResolveEndpoint(context.Background(), forbidden)
	assert.True(t, apierr.Is(err, apierr.Forbidden))
}

func TestStatusSingleCall(t *testing.T) {
	api := &fakeMediaConvert{statuses: []types.JobStatus{types.JobStatusProgressing}}
	c := NewWithAPI(api)

	status, err := c.Status(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProgressing, status)
	assert.Equal(t, 1, api.gets)
}

func TestStatusErrorUnchanged(t *testing.T) {
	api := &fakeMediaConvert{getErr: &smithy.GenericAPIError{Code: "NotFoundException", Message: "gone"}}
	c := NewWithAPI(api)

	_, err := c.Status(context.Background(), "job-1")
	assert.Same(t, api.getErr, err)
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusComplete, StatusError, StatusCanceled} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []Status{StatusSubmitted, StatusProgressing, Status("")} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestWaitStopsAtTerminalStatus(t *testing.T) {
	api := &fakeMediaConvert{statuses: []types.JobStatus{
		types.JobStatusSubmitted,
		types.JobStatusProgressing,
		types.JobStatusProgressing,
		types.JobStatusComplete,
		types.JobStatusComplete,
	}}
	c := NewWithAPI(api)

	var seen []Status
	status, err := Wait(context.Background(), c, "job-1", time.Millisecond, func(s Status) { seen = append(seen, s) })
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, status)
	assert.Equal(t, 4, api.gets)
	assert.Equal(t, []Status{StatusSubmitted, StatusProgressing, StatusProgressing, StatusComplete}, seen)
}

func TestWaitReturnsImmediatelyWhenAlreadyTerminal(t *testing.T) {
	api := &fakeMediaConvert{statuses: []types.JobStatus{types.JobStatusError}}
	c := NewWithAPI(api)

	start := time.Now()
	status, err := Wait(context.Background(), c, "job-1", time.Hour, nil)
	require.NoError(t, err)

	assert.Equal(t, StatusError, status)
	assert.Equal(t, 1, api.gets)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitHonoursContext(t *testing.T) {
	api := &fakeMediaConvert{statuses: []types.JobStatus{types.JobStatusProgressing}}
	c := NewWithAPI(api)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	status, err := Wait(ctx, c, "job-1", time.Hour, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, StatusProgressing, status)
	assert.Equal(t, 1, api.gets)
}

func TestWaitPropagatesStatusError(t *testing.T) {
	api := &fakeMediaConvert{getErr: errors.New("network down")}
	c := NewWithAPI(api)

	_, err := Wait(context.Background(), c, "job-1", time.Millisecond, nil)
	assert.Same(t, api.getErr, err)
}
