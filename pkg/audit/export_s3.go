package audit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Exporter archives the audit trail to an S3-compatible bucket. Objects
// are keyed by upload time and content hash, so re-exporting an unchanged
// trail is idempotent.
type S3Exporter struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ExporterConfig holds settings for the exporter. Endpoint supports
// MinIO and other S3-compatible stores.
type S3ExporterConfig struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
}

// NewS3Exporter creates an exporter from ambient AWS credentials.
func NewS3Exporter(ctx context.Context, cfg S3ExporterConfig) (*S3Exporter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("audit: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "audit/"
	}
	return &S3Exporter{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// ExportFile uploads the audit file at path and returns the object key.
func (e *S3Exporter) ExportFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("audit: read trail: %w", err)
	}

	sum := sha256.Sum256(data)
	key := fmt.Sprintf("%s%s-%s.jsonl", e.prefix, time.Now().UTC().Format("20060102T150405Z"), hex.EncodeToString(sum[:8]))

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/jsonl"),
	})
	if err != nil {
		return "", fmt.Errorf("audit: upload trail: %w", err)
	}
	return key, nil
}
