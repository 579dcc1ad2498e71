// Package storage issues presigned S3 URLs for justification evidence.
// Files never pass through the API: students upload straight to the bucket
// and reviewers download from it.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliyamo/asistetec/internal/config"
)

// ErrDisabled is returned by a nil *EvidenceStore.
var ErrDisabled = errors.New("evidence storage is not configured")

// EvidenceStore presigns uploads and downloads in a single bucket.
type EvidenceStore struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	now     func() time.Time
}

// NewEvidenceStore builds the S3 client.  It returns nil, nil when no bucket
// is configured.
func NewEvidenceStore(ctx context.Context, cfg config.StorageConfig) (*EvidenceStore, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and LocalStack serve buckets under the path.
			o.UsePathStyle = true
		}
	})
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &EvidenceStore{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

// NewKey returns a fresh object key for a student's evidence.
func (s *EvidenceStore) NewKey(studentID int64) string {
	d := s.now().UTC()
	return fmt.Sprintf("evidencias/%d/%04d/%02d/%s", studentID, d.Year(), d.Month(), uuid.NewString())
}

// UploadURL presigns a PUT for key.
func (s *EvidenceStore) UploadURL(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// DownloadURL presigns a GET for key.
func (s *EvidenceStore) DownloadURL(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", ErrDisabled
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// TTL is how long presigned URLs stay valid.
func (s *EvidenceStore) TTL() time.Duration { return s.ttl }
