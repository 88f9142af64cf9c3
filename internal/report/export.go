package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kozaktomas/library-kiosk/internal/config"
)

// putObjectAPI is the subset of *s3.Client used for uploads.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Exporter writes rendered reports to a local path or an s3://bucket/key URL.
type Exporter struct {
	cfg config.ReportConfig
	s3  putObjectAPI
}

// NewExporter creates an exporter. The S3 client is created on first S3 export.
func NewExporter(cfg config.ReportConfig) *Exporter {
	return &Exporter{cfg: cfg}
}

// NewS3Client builds an S3 client from the report settings. Credentials come
// from the default AWS chain.
func NewS3Client(ctx context.Context, cfg config.ReportConfig) (*s3.Client, error) {
	region := cfg.S3Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3PathStyle {
			o.UsePathStyle = true
		}
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		}
	}), nil
}

// Export writes data to dest and returns the location written.
func (e *Exporter) Export(ctx context.Context, dest string, data []byte, format Format) (string, error) {
	if !strings.HasPrefix(dest, "s3://") {
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", dest, err)
		}
		return dest, nil
	}

	bucket, key, err := e.parseS3URL(dest)
	if err != nil {
		return "", err
	}
	if e.s3 == nil {
		client, err := NewS3Client(ctx, e.cfg)
		if err != nil {
			return "", err
		}
		e.s3 = client
	}

	_, err = e.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(format)),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}
	return "s3://" + bucket + "/" + key, nil
}

// parseS3URL splits s3://bucket/key. An empty bucket falls back to REPORT_S3_BUCKET.
func (e *Exporter) parseS3URL(dest string) (bucket, key string, err error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", dest, err)
	}
	bucket = u.Host
	if bucket == "" {
		bucket = e.cfg.S3Bucket
	}
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", errors.New("s3 bucket required: use s3://bucket/key or set REPORT_S3_BUCKET")
	}
	if key == "" {
		return "", "", fmt.Errorf("s3 object key missing in %s", dest)
	}
	return bucket, key, nil
}

func contentType(format Format) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "text/plain; charset=utf-8"
}
