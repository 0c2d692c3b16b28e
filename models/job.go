package models

import "time"

// JobRecord is the local summary of a submitted MediaConvert job. The job
// itself lives at the provider; this is what the stores keep about it.
type JobRecord struct {
	JobID        string            `json:"job_id"`
	Region       string            `json:"region"`
	RoleARN      string            `json:"role_arn"`
	Input        string            `json:"input"`        // s3://bucket/key
	Destinations map[string]string `json:"destinations"` // output group name -> s3 prefix
	Status       string            `json:"status"`
	Error        string            `json:"error,omitempty"`
	SubmittedAt  time.Time         `json:"submitted_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}
