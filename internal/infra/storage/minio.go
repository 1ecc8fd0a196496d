package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/unitecon/internal/domain/analysis"
)

// Store archives degraded model replies in a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
}

// New buat koneksi MinIO, bucket dibuat kalau belum ada
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region}, nil
}

// ObjectKey is degraded/<yyyy>/<mm>/<dd>/<request_id>.json, dated in UTC.
func ObjectKey(rec analysis.DegradedRecord) string {
	t := rec.ReceivedAt.UTC()
	return path.Join("degraded", t.Format("2006"), t.Format("01"), t.Format("02"), rec.RequestID+".json")
}

// SaveDegraded implements analysis.Archive.
func (s *Store) SaveDegraded(ctx context.Context, rec analysis.DegradedRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := ObjectKey(rec)
	_, err = s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(b), int64(len(b)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

// Ping checks the bucket is reachable, for /health.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}
