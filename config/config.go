package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the workflow needs. Nothing below the CLI reads
// the environment directly; packages receive the parts they use.
type Config struct {
	Region string

	// Static credentials are optional; when empty the SDK default chain is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	Bucket       string
	OutputBucket string
	InputKey     string
	InputFile    string // local file uploaded to Bucket/InputKey before submitting

	RoleName      string
	QueueARN      string
	FrameInterval int
	PollInterval  time.Duration
	MaxAttempts   int

	DataDir  string
	LogFile  string
	LogLevel string
	HTTPAddr string

	Delivery DeliveryConfig
}

// DeliveryConfig selects where extracted frames are mirrored after a job completes.
type DeliveryConfig struct {
	Type     string // none, local, gcs or sftp
	Settings map[string]string
}

// Defaults describe the single-video scenario run by "vidframe run".
const (
	DefaultRegion        = "us-west-2"
	DefaultBucket        = "video-test"
	DefaultInputKey      = "VideoClipping0911.mp4"
	DefaultRoleName      = "MediaConvert_Default_Role"
	DefaultFrameInterval = 88
	DefaultPollInterval  = 30 * time.Second
	DefaultMaxAttempts   = 3
)

// Load reads an optional .env file and then the process environment.
// A missing env file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	bucket := getEnv("VIDFRAME_BUCKET", DefaultBucket)
	cfg := &Config{
		Region:          getEnv("AWS_REGION", DefaultRegion),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Bucket:          bucket,
		OutputBucket:    getEnv("VIDFRAME_OUTPUT_BUCKET", bucket),
		InputKey:        getEnv("VIDFRAME_INPUT_KEY", DefaultInputKey),
		InputFile:       os.Getenv("VIDFRAME_INPUT_FILE"),
		RoleName:        getEnv("VIDFRAME_ROLE_NAME", DefaultRoleName),
		QueueARN:        os.Getenv("VIDFRAME_QUEUE_ARN"),
		FrameInterval:   getEnvAsInt("VIDFRAME_FRAME_INTERVAL", DefaultFrameInterval),
		PollInterval:    getEnvAsDuration("VIDFRAME_POLL_INTERVAL", DefaultPollInterval),
		MaxAttempts:     getEnvAsInt("VIDFRAME_MAX_ATTEMPTS", DefaultMaxAttempts),
		DataDir:         getEnv("VIDFRAME_DATA_DIR", "./data"),
		LogFile:         os.Getenv("VIDFRAME_LOG_FILE"),
		LogLevel:        getEnv("VIDFRAME_LOG_LEVEL", "info"),
		HTTPAddr:        getEnv("VIDFRAME_HTTP_ADDR", ":8080"),
		Delivery: DeliveryConfig{
			Type: getEnv("VIDFRAME_DELIVERY_TYPE", "none"),
			Settings: map[string]string{
				"baseDir":         os.Getenv("VIDFRAME_DELIVERY_DIR"),
				"bucket":          os.Getenv("VIDFRAME_DELIVERY_GCS_BUCKET"),
				"credentialsJSON": os.Getenv("VIDFRAME_DELIVERY_GCS_CREDENTIALS"),
				"prefix":          os.Getenv("VIDFRAME_DELIVERY_GCS_PREFIX"),
				"host":            os.Getenv("VIDFRAME_DELIVERY_SFTP_HOST"),
				"port":            os.Getenv("VIDFRAME_DELIVERY_SFTP_PORT"),
				"user":            os.Getenv("VIDFRAME_DELIVERY_SFTP_USER"),
				"password":        os.Getenv("VIDFRAME_DELIVERY_SFTP_PASSWORD"),
				"privateKey":      os.Getenv("VIDFRAME_DELIVERY_SFTP_KEY"),
				"remoteDir":       os.Getenv("VIDFRAME_DELIVERY_SFTP_DIR"),
				"hostKey":         os.Getenv("VIDFRAME_DELIVERY_SFTP_HOST_KEY"),
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the provider would refuse anyway.
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region must not be empty")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket must not be empty")
	}
	if c.InputKey == "" {
		return fmt.Errorf("input key must not be empty")
	}
	if c.FrameInterval <= 0 || c.FrameInterval > math.MaxInt32 {
		return fmt.Errorf("frame interval must be between 1 and %d, got %d", math.MaxInt32, c.FrameInterval)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	switch c.Delivery.Type {
	case "", "none", "local", "gcs", "sftp":
	default:
		return fmt.Errorf("unknown delivery type: %s", c.Delivery.Type)
	}
	return nil
}

// PendingDBPath returns the path of the queue of submitted, unfinished jobs.
// Path: {DataDir}/pending.db
func (c *Config) PendingDBPath() string {
	return filepath.Join(c.DataDir, "pending.db")
}

// SuccessDBPath returns the path of the completed job store.
// Path: {DataDir}/success.db
func (c *Config) SuccessDBPath() string {
	return filepath.Join(c.DataDir, "success.db")
}

// FailuresDBPath returns the path of the failed job store.
// Path: {DataDir}/failures.db
func (c *Config) FailuresDBPath() string {
	return filepath.Join(c.DataDir, "failures.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
