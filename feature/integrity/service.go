package integrity

import (
	"context"
	"errors"

	"domain-manager/core/ledger"
	"domain-manager/core/storage"
	"domain-manager/feature/integrity/checks"

	"go.uber.org/zap"
)

// ErrStorageDisabled is returned by storage checks when no client is configured.
var ErrStorageDisabled = errors.New("snapshot storage is not configured")

// Service handles integrity checks.
type Service struct {
	client storage.Client
	bucket string
	region string
	ledger ledger.Client
	schema checks.SchemaVerifier
	logger *zap.Logger
}

// NewService creates a new integrity service. client and schema may be nil.
func NewService(client storage.Client, cfg storage.Config, l ledger.Client, schema checks.SchemaVerifier, logger *zap.Logger) *Service {
	return &Service{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
		ledger: l,
		schema: schema,
		logger: logger,
	}
}

// Report is the combined result of all checks.
type Report struct {
	Ledger  *checks.LedgerReport  `json:"ledger"`
	Schema  *checks.SchemaReport  `json:"schema"`
	Storage *checks.StorageReport `json:"storage,omitempty"`
	Errors  map[string]string     `json:"errors,omitempty"`
}

// Healthy reports whether every check passed.
func (r *Report) Healthy() bool {
	if len(r.Errors) > 0 {
		return false
	}
	if r.Ledger != nil && !r.Ledger.Reachable {
		return false
	}
	if r.Schema != nil && !r.Schema.Matched {
		return false
	}
	return r.Storage == nil || r.Storage.Exists
}

// CheckLedger checks ledger reachability.
func (s *Service) CheckLedger(ctx context.Context) *checks.LedgerReport {
	return checks.CheckLedger(ctx, s.ledger)
}

// CheckSchema verifies the SQL mirror, if any.
func (s *Service) CheckSchema() *checks.SchemaReport {
	return checks.CheckSchema(s.schema)
}

// CheckStorage inspects the export bucket.
func (s *Service) CheckStorage(ctx context.Context) (*checks.StorageReport, error) {
	if s.client == nil {
		return nil, ErrStorageDisabled
	}
	return checks.CheckStorage(ctx, s.client, s.bucket)
}

// FixStorage creates the export bucket.
func (s *Service) FixStorage(ctx context.Context) error {
	if s.client == nil {
		return ErrStorageDisabled
	}
	if err := checks.FixStorage(ctx, s.client, s.bucket, s.region); err != nil {
		return err
	}
	s.logger.Info("Export bucket ensured", zap.String("bucket", s.bucket))
	return nil
}

// CheckAll runs every check. Failures of individual checks are collected in
// Report.Errors.
func (s *Service) CheckAll(ctx context.Context) *Report {
	report := &Report{
		Ledger: s.CheckLedger(ctx),
		Schema: s.CheckSchema(),
	}
	if s.client != nil {
		storageReport, err := s.CheckStorage(ctx)
		if err != nil {
			report.Errors = map[string]string{"storage": err.Error()}
		}
		report.Storage = storageReport
	}
	return report
}
