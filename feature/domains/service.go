package domains

import (
	"context"
	"sync"

	"domain-manager/core/names"
	"domain-manager/core/orchestrator"
	"domain-manager/core/reconcile"

	"go.uber.org/zap"
)

// Engine is the part of the orchestrator the feature drives.
type Engine interface {
	Snapshot() orchestrator.Snapshot
	Subscribe(fn func(orchestrator.Snapshot)) (unsubscribe func())
	ChangeAccount(ctx context.Context, account string) error
	ReloadOwnership(ctx context.Context) error
	RequestDetail(ctx context.Context, id names.EntityID) (orchestrator.Detail, error)
	SubmitEdit(ctx context.Context, id names.EntityID, key names.RecordKey, action reconcile.Action, value string) (reconcile.Edit, error)
	RetryEdit(ctx context.Context, id names.EntityID, key names.RecordKey) (reconcile.Edit, error)
	DismissEdit(id names.EntityID, key names.RecordKey) error
}

// Service handles domain operations.
type Service struct {
	engine Engine
	logger *zap.Logger

	// ctx bounds the snapshot streams.
	ctx  context.Context
	stop context.CancelFunc
}

// NewService creates a new domains service.
func NewService(engine Engine, logger *zap.Logger) *Service {
	ctx, stop := context.WithCancel(context.Background())
	return &Service{engine: engine, logger: logger, ctx: ctx, stop: stop}
}

func (s *Service) Snapshot() orchestrator.Snapshot {
	return s.engine.Snapshot()
}

// Subscribe streams snapshots into a buffered channel. When the consumer
// falls behind, older undelivered snapshots are dropped in favour of newer
// ones. The returned cancel function unsubscribes and closes the channel.
func (s *Service) Subscribe(buffer int) (<-chan orchestrator.Snapshot, func()) {
	ch := make(chan orchestrator.Snapshot, buffer)
	var (
		mu     sync.Mutex
		closed bool
	)
	unsubscribe := s.engine.Subscribe(func(snap orchestrator.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		for {
			select {
			case ch <- snap:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}

func (s *Service) ChangeAccount(ctx context.Context, account string) error {
	return s.engine.ChangeAccount(ctx, account)
}

func (s *Service) Reload(ctx context.Context) error {
	return s.engine.ReloadOwnership(ctx)
}

func (s *Service) Detail(ctx context.Context, id names.EntityID) (orchestrator.Detail, error) {
	return s.engine.RequestDetail(ctx, id)
}

func (s *Service) SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value string) (reconcile.Edit, error) {
	return s.engine.SubmitEdit(ctx, id, key, reconcile.ActionSet, value)
}

func (s *Service) DeleteRecord(ctx context.Context, id names.EntityID, key names.RecordKey) (reconcile.Edit, error) {
	return s.engine.SubmitEdit(ctx, id, key, reconcile.ActionDelete, "")
}

func (s *Service) Retry(ctx context.Context, id names.EntityID, key names.RecordKey) (reconcile.Edit, error) {
	return s.engine.RetryEdit(ctx, id, key)
}

func (s *Service) Dismiss(id names.EntityID, key names.RecordKey) error {
	return s.engine.DismissEdit(id, key)
}
