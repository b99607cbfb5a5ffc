package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"domain-manager/core/names"
	"domain-manager/core/orchestrator"
	"domain-manager/core/storage"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const (
	latestObject    = "latest.json"
	timestampLayout = "20060102T150405Z"
)

// Source provides the snapshot to export.
type Source interface {
	Snapshot() orchestrator.Snapshot
}

// Object describes one stored export.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// Service handles snapshot exports.
type Service struct {
	client storage.Client
	bucket string
	region string
	source Source
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new export service.
func NewService(client storage.Client, bucket, region string, source Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		client: client,
		bucket: bucket,
		region: region,
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

func prefix(account names.Address) string {
	return string(account) + "/"
}

// Export stores the current snapshot and updates the account's latest pointer.
func (s *Service) Export(ctx context.Context) (Object, error) {
	snap := s.source.Snapshot()
	if snap.Account == "" {
		return Object{}, names.ErrInvalidAccount
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return Object{}, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := storage.EnsureBucket(ctx, s.client, s.bucket, s.region); err != nil {
		return Object{}, err
	}

	key := fmt.Sprintf("%s%s-v%d.json", prefix(snap.Account), s.now().UTC().Format(timestampLayout), snap.Version)
	for _, name := range []string{key, prefix(snap.Account) + latestObject} {
		opts := minio.PutObjectOptions{ContentType: "application/json"}
		if _, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), opts); err != nil {
			return Object{}, fmt.Errorf("failed to upload %s: %w", name, err)
		}
	}

	s.logger.Info("Snapshot exported",
		zap.String("account", string(snap.Account)),
		zap.String("key", key),
		zap.Uint64("version", snap.Version),
		zap.Int("bytes", len(data)),
	)
	return Object{Key: key, Size: int64(len(data)), LastModified: s.now().UTC()}, nil
}

// List returns the exports of an account, oldest first.
func (s *Service) List(ctx context.Context, account string) ([]Object, error) {
	addr := names.NormalizeAddress(account)
	if addr == "" {
		return nil, names.ErrInvalidAccount
	}

	opts := minio.ListObjectsOptions{Prefix: prefix(addr), Recursive: true}
	var out []Object
	for obj := range s.client.ListObjects(ctx, s.bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list exports: %w", obj.Err)
		}
		if path.Base(obj.Key) == latestObject || !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		out = append(out, Object{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Latest reads the most recent export of an account.
func (s *Service) Latest(ctx context.Context, account string) (orchestrator.Snapshot, error) {
	addr := names.NormalizeAddress(account)
	if addr == "" {
		return orchestrator.Snapshot{}, names.ErrInvalidAccount
	}

	obj, err := s.client.GetObject(ctx, s.bucket, prefix(addr)+latestObject, minio.GetObjectOptions{})
	if err != nil {
		return orchestrator.Snapshot{}, fmt.Errorf("failed to open latest export: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return orchestrator.Snapshot{}, fmt.Errorf("failed to read latest export: %w", err)
	}
	var snap orchestrator.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return orchestrator.Snapshot{}, fmt.Errorf("failed to decode latest export: %w", err)
	}
	return snap, nil
}

// Prune removes all but the newest keep exports of an account and returns
// how many were removed.
func (s *Service) Prune(ctx context.Context, account string, keep int) (int, error) {
	if keep < 0 {
		return 0, names.NewError(names.KindInvalidInput, "prune", "keep must not be negative", nil)
	}
	objects, err := s.List(ctx, account)
	if err != nil {
		return 0, err
	}
	if len(objects) <= keep {
		return 0, nil
	}
	stale := objects[:len(objects)-keep]

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, obj := range stale {
			select {
			case objectsCh <- minio.ObjectInfo{Key: obj.Key}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var failed []string
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		s.logger.Warn("Failed to remove export", zap.String("key", rErr.ObjectName), zap.Error(rErr.Err))
		failed = append(failed, rErr.ObjectName)
	}
	if len(failed) > 0 {
		return len(stale) - len(failed), fmt.Errorf("failed to remove %d exports", len(failed))
	}

	s.logger.Info("Exports pruned", zap.String("account", account), zap.Int("removed", len(stale)), zap.Int("kept", keep))
	return len(stale), nil
}
