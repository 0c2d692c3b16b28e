// Package workflow runs the end-to-end scenario: bucket, role, job
// submission, polling, record keeping and optional frame delivery.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/mediaconvert/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"vidframe/bucket"
	"vidframe/config"
	"vidframe/delivery"
	"vidframe/failures"
	"vidframe/job"
	"vidframe/logger"
	"vidframe/models"
	"vidframe/queue"
	"vidframe/role"
	"vidframe/success"
)

// ErrJobNotComplete is returned when a job ends in ERROR or CANCELED.
var ErrJobNotComplete = errors.New("job did not complete")

// S3API is every S3 operation the workflow touches.
type S3API interface {
	bucket.API
	bucket.HeadAPI
	manager.UploadAPIClient
	delivery.SourceAPI
}

var _ S3API = (*s3.Client)(nil)

// JobAPI submits jobs and reports their status.
type JobAPI interface {
	job.StatusGetter
	Submit(ctx context.Context, roleARN string, r job.Request) (string, error)
}

// describer is implemented by job.Client; it lets failed jobs carry the
// provider's error message.
type describer interface {
	Describe(ctx context.Context, id string) (*types.Job, error)
}

// Deps are the collaborators a run needs. The success and failure stores
// must already be initialized. Target may be nil.
type Deps struct {
	IAM     role.API
	S3      S3API
	Jobs    JobAPI
	Pending *queue.Pending
	Target  delivery.Target
}

// Result summarizes a finished job.
type Result struct {
	Record    models.JobRecord
	Status    job.Status
	Delivered int
}

// Run executes the whole scenario described by cfg.
func Run(ctx context.Context, d Deps, cfg *config.Config) (*Result, error) {
	if _, err := bucket.Ensure(ctx, d.S3, cfg.Bucket, cfg.Region); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}
	outputBucket := cfg.OutputBucket
	if outputBucket == "" {
		outputBucket = cfg.Bucket
	}
	if outputBucket != cfg.Bucket {
		if _, err := bucket.Ensure(ctx, d.S3, outputBucket, cfg.Region); err != nil {
			return nil, fmt.Errorf("ensure output bucket %s: %w", outputBucket, err)
		}
	}

	if err := prepareInput(ctx, d.S3, cfg); err != nil {
		return nil, err
	}

	r, err := role.Ensure(ctx, d.IAM, role.Spec{Name: cfg.RoleName})
	if err != nil {
		return nil, fmt.Errorf("ensure role: %w", err)
	}

	req := job.Request{
		InputBucket:   cfg.Bucket,
		InputKey:      cfg.InputKey,
		OutputBucket:  outputBucket,
		FrameInterval: cfg.FrameInterval,
	}
	rec, err := Submit(ctx, d, cfg.Region, r.ARN, req)
	if err != nil {
		return nil, err
	}

	res, err := Track(ctx, d, rec, cfg.PollInterval)
	if err != nil {
		return res, err
	}

	if res.Status != job.StatusComplete {
		return res, fmt.Errorf("job %s finished with status %s: %w", rec.JobID, res.Status, ErrJobNotComplete)
	}

	if d.Target != nil {
		n, err := delivery.Mirror(ctx, d.S3, outputBucket, job.FramesPrefix, req.FramePrefix(), d.Target)
		res.Delivered = n
		if err != nil {
			return res, fmt.Errorf("deliver frames: %w", err)
		}
	}

	logger.Infof("Frames written to %s", res.Record.Destinations[job.FrameCaptureGroup])
	logger.Infof("Video written to %s", res.Record.Destinations[job.VideoOutputGroup])
	return res, nil
}

func prepareInput(ctx context.Context, api S3API, cfg *config.Config) error {
	if cfg.InputFile != "" {
		logger.Infof("Uploading %s to %s", cfg.InputFile, bucket.URI(cfg.Bucket, cfg.InputKey))
		if err := bucket.UploadInput(ctx, api, cfg.Bucket, cfg.InputKey, cfg.InputFile); err != nil {
			return err
		}
	}

	exists, err := bucket.InputExists(ctx, api, cfg.Bucket, cfg.InputKey)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("input %s does not exist; upload it or set VIDFRAME_INPUT_FILE", bucket.URI(cfg.Bucket, cfg.InputKey))
	}
	return nil
}

// Submit creates the job and records it in the pending queue. A rejected
// submission is stored as a failure without a job ID.
func Submit(ctx context.Context, d Deps, region, roleARN string, req job.Request) (models.JobRecord, error) {
	now := time.Now()
	rec := models.JobRecord{
		Region:       region,
		RoleARN:      roleARN,
		Input:        req.InputURI(),
		Destinations: req.Destinations(),
		SubmittedAt:  now,
	}

	id, err := d.Jobs.Submit(ctx, roleARN, req)
	if err != nil {
		if storeErr := failures.StoreFailure(rec, err); storeErr != nil {
			logger.Errorf("Failed to record submission failure: %v", storeErr)
		}
		return rec, fmt.Errorf("submit job: %w", err)
	}

	rec.JobID = id
	rec.Status = string(job.StatusSubmitted)
	if err := d.Pending.Add(rec); err != nil {
		logger.Errorf("Failed to queue job %s for tracking: %v", id, err)
	}
	return rec, nil
}

// Track polls rec until it is terminal and moves it from the pending queue
// to the success or failure store. If ctx ends first the job stays pending.
func Track(ctx context.Context, d Deps, rec models.JobRecord, interval time.Duration) (*Result, error) {
	last := rec.Status
	status, err := job.Wait(ctx, d.Jobs, rec.JobID, interval, func(s job.Status) {
		if string(s) == last || s.Terminal() {
			return
		}
		last = string(s)
		rec.Status = last
		if err := d.Pending.Add(rec); err != nil {
			logger.Warnf("Failed to update pending job %s: %v", rec.JobID, err)
		}
	})
	if err != nil {
		return &Result{Record: rec, Status: job.Status(rec.Status)}, err
	}

	rec.Status = string(status)
	rec.UpdatedAt = time.Now()

	if status == job.StatusComplete {
		if err := success.StoreSuccess(rec); err != nil {
			return nil, fmt.Errorf("record success for job %s: %w", rec.JobID, err)
		}
	} else {
		if err := failures.StoreFailure(rec, jobError(ctx, d.Jobs, rec.JobID, status)); err != nil {
			return nil, fmt.Errorf("record failure for job %s: %w", rec.JobID, err)
		}
	}

	if err := d.Pending.Delete(rec.JobID); err != nil {
		logger.Warnf("Failed to remove job %s from pending queue: %v", rec.JobID, err)
	}

	logger.Infof("Job %s finished with status %s", rec.JobID, status)
	return &Result{Record: rec, Status: status}, nil
}

func jobError(ctx context.Context, jobs JobAPI, id string, status job.Status) error {
	if d, ok := jobs.(describer); ok {
		if j, err := d.Describe(ctx, id); err == nil && j.ErrorMessage != nil {
			return fmt.Errorf("job %s: %s", status, *j.ErrorMessage)
		}
	}
	return fmt.Errorf("job %s", status)
}

// Resume tracks every job left in the pending queue by an earlier process.
// It keeps going after a failed job and returns the joined errors.
func Resume(ctx context.Context, d Deps, interval time.Duration) ([]*Result, error) {
	pending, err := d.Pending.List()
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	logger.Infof("Resuming %d pending jobs", len(pending))

	var (
		results []*Result
		errs    []error
	)
	for _, rec := range pending {
		res, err := Track(ctx, d, rec, interval)
		if err != nil {
			if ctx.Err() != nil {
				return results, err
			}
			logger.Errorf("Failed to track job %s: %v", rec.JobID, err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
