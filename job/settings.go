package job

import (
	"fmt"
	"math"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
)

// Output group names and the prefixes they write under in the output bucket.
const (
	FrameCaptureGroup = "Frame Capture"
	VideoOutputGroup  = "Video Output"

	FramesPrefix = "frames/"
	VideoPrefix  = "video/"

	DefaultFrameInterval = 88
)

// Request is everything needed to describe one frame-extraction job.
type Request struct {
	InputBucket   string
	InputKey      string
	OutputBucket  string
	FrameInterval int // framerate denominator for the frame-capture output
}

// InputURI is the s3:// location of the source video.
func (r Request) InputURI() string {
	return fmt.Sprintf("s3://%s/%s", r.InputBucket, r.InputKey)
}

// Destinations maps each output group name to its s3:// destination prefix.
func (r Request) Destinations() map[string]string {
	return map[string]string{
		FrameCaptureGroup: fmt.Sprintf("s3://%s/%s", r.OutputBucket, FramesPrefix),
		VideoOutputGroup:  fmt.Sprintf("s3://%s/%s", r.OutputBucket, VideoPrefix),
	}
}

// FramePrefix is the key prefix of this job's captures under FramesPrefix.
// MediaConvert names them after the input's base name, e.g.
// "clip.0000000.jpg" for "videos/clip.mp4".
func (r Request) FramePrefix() string {
	return FramePrefix(r.InputKey)
}

// FramePrefix returns the capture name prefix for inputKey.
func FramePrefix(inputKey string) string {
	base := path.Base(inputKey)
	return strings.TrimSuffix(base, path.Ext(base)) + "."
}

func (r Request) validate() error {
	if r.InputBucket == "" || r.InputKey == "" {
		return fmt.Errorf("input bucket and key are required")
	}
	if r.OutputBucket == "" {
		return fmt.Errorf("output bucket is required")
	}
	if r.FrameInterval <= 0 || r.FrameInterval > math.MaxInt32 {
		return fmt.Errorf("frame interval must be between 1 and %d, got %d", math.MaxInt32, r.FrameInterval)
	}
	return nil
}

// BuildSettings returns the job settings for r: one input and exactly two
// file-group outputs, still frames and a transcoded MP4.
func BuildSettings(r Request) *types.JobSettings {
	dest := r.Destinations()

	return &types.JobSettings{
		TimecodeConfig: &types.TimecodeConfig{
			Source: types.TimecodeSourceZerobased,
		},
		Inputs: []types.Input{{
			TimecodeSource: types.InputTimecodeSourceZerobased,
			VideoSelector:  &types.VideoSelector{},
			AudioSelectors: map[string]types.AudioSelector{
				"Audio Selector 1": {DefaultSelection: types.AudioDefaultSelectionDefault},
			},
			FileInput: aws.String(r.InputURI()),
		}},
		FollowSource: aws.Int32(1),
		OutputGroups: []types.OutputGroup{
			frameCaptureGroup(dest[FrameCaptureGroup], r.FrameInterval),
			videoOutputGroup(dest[VideoOutputGroup]),
		},
	}
}

func fileGroup(name, destination string, output types.Output) types.OutputGroup {
	return types.OutputGroup{
		Name: aws.String(name),
		OutputGroupSettings: &types.OutputGroupSettings{
			Type: types.OutputGroupTypeFileGroupSettings,
			FileGroupSettings: &types.FileGroupSettings{
				Destination: aws.String(destination),
			},
		},
		Outputs: []types.Output{output},
	}
}

func frameCaptureGroup(destination string, interval int) types.OutputGroup {
	return fileGroup(FrameCaptureGroup, destination, types.Output{
		ContainerSettings: &types.ContainerSettings{
			Container: types.ContainerTypeRaw,
		},
		VideoDescription: &types.VideoDescription{
			CodecSettings: &types.VideoCodecSettings{
				Codec: types.VideoCodecFrameCapture,
				FrameCaptureSettings: &types.FrameCaptureSettings{
					FramerateNumerator:   aws.Int32(30),
					FramerateDenominator: aws.Int32(int32(interval)),
					MaxCaptures:          aws.Int32(1),
					Quality:              aws.Int32(80),
				},
			},
			Width:  aws.Int32(1920),
			Height: aws.Int32(1080),
		},
	})
}

func videoOutputGroup(destination string) types.OutputGroup {
	return fileGroup(VideoOutputGroup, destination, types.Output{
		ContainerSettings: &types.ContainerSettings{
			Container: types.ContainerTypeMp4,
			Mp4Settings: &types.Mp4Settings{
				CslgAtom:      types.Mp4CslgAtomInclude,
				FreeSpaceBox:  types.Mp4FreeSpaceBoxExclude,
				MoovPlacement: types.Mp4MoovPlacementProgressiveDownload,
			},
		},
		VideoDescription: &types.VideoDescription{
			CodecSettings: &types.VideoCodecSettings{
				Codec: types.VideoCodecH264,
				H264Settings: &types.H264Settings{
					MaxBitrate:         aws.Int32(5000000),
					RateControlMode:    types.H264RateControlModeQvbr,
					SceneChangeDetect:  types.H264SceneChangeDetectTransitionDetection,
					QualityTuningLevel: types.H264QualityTuningLevelSinglePass,
					QvbrSettings: &types.H264QvbrSettings{
						QvbrQualityLevel: aws.Int32(7),
					},
					FramerateControl:     types.H264FramerateControlSpecified,
					FramerateNumerator:   aws.Int32(30),
					FramerateDenominator: aws.Int32(1),
				},
			},
			Width:  aws.Int32(640),
			Height: aws.Int32(480),
		},
	})
}
