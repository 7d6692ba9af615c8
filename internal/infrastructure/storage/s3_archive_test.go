package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/finanzas/backend/internal/domain/audit"
	"github.com/finanzas/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	buckets   map[string]bool
	putErr    error
	createHit int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, buckets: map[string]bool{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.buckets[aws.ToString(in.Bucket)] {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createHit++
	f.buckets[aws.ToString(in.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

func sampleEntry() audit.Entry {
	return audit.Entry{
		ID:         "a1b2",
		EntityType: audit.EntityProject,
		EntityID:   "P-1",
		Action:     audit.ActionHandoff,
		After:      map[string]any{"baseline_id": "base_1"},
		Actor:      "pmo@example.com",
		Timestamp:  time.Date(2025, 2, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewS3AuditArchive_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3AuditArchive(ctx, nil)
	assert.ErrorContains(t, err, "configuration is required")

	_, err = NewS3AuditArchive(ctx, &config.StorageConfig{})
	assert.ErrorContains(t, err, "bucket is required")

	_, err = NewS3AuditArchive(ctx, &config.StorageConfig{Bucket: "b", AccessKey: "only-key"})
	assert.ErrorContains(t, err, "set together")

	archive, err := NewS3AuditArchive(ctx, &config.StorageConfig{
		Bucket:       "audit",
		AccessKey:    "k",
		SecretKey:    "s",
		Endpoint:     "localhost:9000",
		UsePathStyle: true,
		Prefix:       "/finz/audit/",
	})
	require.NoError(t, err)
	assert.Equal(t, "audit", archive.Bucket())
	assert.Equal(t, "finz/audit", archive.prefix)
}

func TestNormalizeEndpoint(t *testing.T) {
	got, err := normalizeEndpoint("", false)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = normalizeEndpoint("minio:9000", false)
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", got)

	got, err = normalizeEndpoint("s3.example.com", true)
	require.NoError(t, err)
	assert.Equal(t, "https://s3.example.com", got)
}

func TestS3AuditArchive_Export(t *testing.T) {
	fake := newFakeS3()
	archive := newS3AuditArchive(fake, "audit", "audit")
	ctx := context.Background()
	e := sampleEntry()

	assert.Equal(t, "audit/project/P-1/2025/02/a1b2.json", archive.ObjectKey(e))

	exists, err := archive.Exists(ctx, e)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, archive.Export(ctx, e))
	exists, err = archive.Exists(ctx, e)
	require.NoError(t, err)
	assert.True(t, exists)

	var decoded audit.Entry
	require.NoError(t, json.Unmarshal(fake.objects[archive.ObjectKey(e)], &decoded))
	assert.Equal(t, e.Action, decoded.Action)
	assert.Equal(t, "base_1", decoded.After["baseline_id"])
}

func TestS3AuditArchive_ExportErrors(t *testing.T) {
	fake := newFakeS3()
	archive := newS3AuditArchive(fake, "audit", "")

	e := sampleEntry()
	e.ID = ""
	assert.Error(t, archive.Export(context.Background(), e))

	fake.putErr = errors.New("boom")
	err := archive.Export(context.Background(), sampleEntry())
	assert.ErrorContains(t, err, "boom")
}

func TestS3AuditArchive_EnsureBucket(t *testing.T) {
	fake := newFakeS3()
	archive := newS3AuditArchive(fake, "audit", "")
	ctx := context.Background()

	require.NoError(t, archive.EnsureBucket(ctx))
	require.NoError(t, archive.EnsureBucket(ctx))
	assert.Equal(t, 1, fake.createHit)
}
