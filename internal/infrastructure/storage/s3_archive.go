// Package storage archives committed audit entries to S3-compatible object
// storage.
package storage

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/finanzas/backend/internal/domain/audit"
	infraconfig "github.com/finanzas/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// s3API is the subset of *s3.Client the archive uses
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3AuditArchive writes one JSON object per audit entry. Object keys are
// derived from the entry, so re-exporting an entry overwrites the same
// object.
type S3AuditArchive struct {
	client s3API
	bucket string
	prefix string
	logger *zap.Logger
}

var _ audit.Exporter = (*S3AuditArchive)(nil)

// Option configures an S3AuditArchive
type Option func(*S3AuditArchive)

func WithLogger(logger *zap.Logger) Option {
	return func(s *S3AuditArchive) { s.logger = logger }
}

// defaultRegion signs requests when the configuration leaves region empty.
// MinIO and other S3-compatible services accept any region.
const defaultRegion = "us-east-1"

// NewS3AuditArchive builds a client from cfg. Static credentials apply when
// both keys are set; otherwise the SDK's default chain resolves them.
func NewS3AuditArchive(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...Option) (*S3AuditArchive, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("storage: configuration is required")
	case cfg.Bucket == "":
		return nil, errors.New("storage: bucket is required")
	case (cfg.AccessKey == "") != (cfg.SecretKey == ""):
		return nil, errors.New("storage: access key and secret key must be set together")
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	region := cmp.Or(cfg.Region, defaultRegion)
	loaders := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" {
		static := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		loaders = append(loaders, config.WithCredentialsProvider(static))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = &endpoint
		}
	})
	return newS3AuditArchive(client, cfg.Bucket, cfg.Prefix, opts...), nil
}

func newS3AuditArchive(client s3API, bucket, prefix string, opts ...Option) *S3AuditArchive {
	s := &S3AuditArchive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// normalizeEndpoint returns "" for AWS itself, or an absolute URL for
// S3-compatible services such as MinIO. A bare host gets a scheme from useSSL.
func normalizeEndpoint(endpoint string, useSSL bool) (string, error) {
	if endpoint == "" {
		return "", nil
	}
	if !strings.Contains(endpoint, "://") {
		scheme := "http://"
		if useSSL {
			scheme = "https://"
		}
		endpoint = scheme + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("storage: invalid endpoint %q", endpoint)
	}
	return endpoint, nil
}

// missing reports S3's "not there" answers for objects and buckets
func missing(err error) bool {
	var (
		notFound     *types.NotFound
		noSuchKey    *types.NoSuchKey
		noSuchBucket *types.NoSuchBucket
	)
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket)
}

// ObjectKey returns where e is archived:
// <prefix>/<entity type>/<entity id>/<yyyy>/<mm>/<audit id>.json
func (s *S3AuditArchive) ObjectKey(e audit.Entry) string {
	ts := e.Timestamp.UTC()
	return path.Join(s.prefix, string(e.EntityType), e.EntityID,
		ts.Format("2006"), ts.Format("01"), e.ID+".json")
}

// Export uploads e as JSON
func (s *S3AuditArchive) Export(ctx context.Context, e audit.Entry) error {
	if e.ID == "" {
		return errors.New("storage: audit entry id is required")
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("storage: encode audit entry %s: %w", e.ID, err)
	}
	key := s.ObjectKey(e)
	in := &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"entity-type": string(e.EntityType), "action": string(e.Action)},
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("storage: archive audit entry %s: %w", e.ID, err)
	}
	s.logger.Debug("Audit entry archived", zap.String("key", key))
	return nil
}

// Exists reports whether e has already been archived
func (s *S3AuditArchive) Exists(ctx context.Context, e audit.Entry) (bool, error) {
	key := s.ObjectKey(e)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	switch {
	case err == nil:
		return true, nil
	case missing(err):
		return false, nil
	default:
		return false, fmt.Errorf("storage: head %s: %w", key, err)
	}
}

// EnsureBucket creates the bucket on first start. A bucket we already own
// counts as success.
func (s *S3AuditArchive) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: &s.bucket})
	if err == nil {
		return nil
	}
	if !missing(err) {
		return fmt.Errorf("storage: head bucket %s: %w", s.bucket, err)
	}

	s.logger.Info("Creating audit archive bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.bucket})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("storage: create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3AuditArchive) Bucket() string {
	return s.bucket
}
