package checks

import (
	"context"
	"fmt"

	"domain-manager/core/storage"

	"github.com/minio/minio-go/v7"
)

// StorageReport describes the export bucket.
type StorageReport struct {
	Status  string `json:"status"`
	Bucket  string `json:"bucket"`
	Exists  bool   `json:"exists"`
	Objects int    `json:"objects"`
}

// CheckStorage reports whether the export bucket exists and how many objects it holds.
func CheckStorage(ctx context.Context, client storage.Client, bucket string) (*StorageReport, error) {
	report := &StorageReport{Status: "error", Bucket: bucket}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.Exists = exists
	if !exists {
		return report, nil
	}

	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, obj.Err)
		}
		report.Objects++
	}
	report.Status = "ok"
	return report, nil
}

// FixStorage creates the export bucket if it is missing.
func FixStorage(ctx context.Context, client storage.Client, bucket, region string) error {
	return storage.EnsureBucket(ctx, client, bucket, region)
}
