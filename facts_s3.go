package hypercube

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// FactSource supplies fact rows for cube registration. The engine only
// consumes the interface; how facts were assembled (connectors, watermarks,
// merges) belongs to the external loader.
type FactSource interface {
	FetchFacts(ctx context.Context) ([]FactRow, error)
}

// S3FactSourceConfig configures the S3 fact source.
type S3FactSourceConfig struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string // For S3-compatible services (MinIO, etc.)
	// AccessKeyID for authentication. Prefer using IAM roles, instance
	// profiles, or environment variables (AWS_ACCESS_KEY_ID,
	// AWS_SECRET_ACCESS_KEY) instead of setting these directly.
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool // Use path-style addressing

	// MaxRetries is the max retry attempts for S3 operations (default: 3).
	MaxRetries int
}

// S3FactSource reads newline-delimited JSON fact rows from an S3 object.
// Each line is one FactRow document: {"dimensions": {...}, "metrics": {...}}.
type S3FactSource struct {
	client  *s3.Client
	config  S3FactSourceConfig
	retryer *Retryer
}

var _ FactSource = (*S3FactSource)(nil)

// NewS3FactSource creates a fact source for one S3 object.
func NewS3FactSource(cfg S3FactSourceConfig) (*S3FactSource, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("key is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	var opts []func(*config.LoadOptions) error
	opts = append(opts, config.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}

	return &S3FactSource{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		config: cfg,
		retryer: NewRetryer(RetryConfig{
			MaxAttempts:       cfg.MaxRetries + 1,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            0.1,
			RetryIf:           IsRetryable,
		}),
	}, nil
}

// FetchFacts downloads the object and parses its NDJSON fact rows.
func (s *S3FactSource) FetchFacts(ctx context.Context) ([]FactRow, error) {
	var body []byte
	err := s.retryer.Do(ctx, func() error {
		resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(s.config.Key),
		})
		if err != nil {
			return fmt.Errorf("S3 get object failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("S3 read body failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ParseFactLines(body)
}

// ParseFactLines parses newline-delimited JSON fact rows. Blank lines are
// skipped.
func ParseFactLines(data []byte) ([]FactRow, error) {
	var facts []FactRow
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var fact FactRow
		if err := json.Unmarshal(raw, &fact); err != nil {
			return nil, fmt.Errorf("fact line %d: %w", line, err)
		}
		facts = append(facts, fact)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return facts, nil
}
