package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"domain-manager/core/metrics"
	"domain-manager/core/names"
	"domain-manager/core/records"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Writer is the part of the ledger the reconciler needs.
type Writer interface {
	GetRecords(ctx context.Context, id names.EntityID) ([]names.Record, error)
	SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value *string) error
}

type edit struct {
	Edit
}

// Reconciler tracks edit intents and commits them to the ledger.
type Reconciler struct {
	writer   Writer
	cache    *records.Cache
	logger   *zap.Logger
	metrics  *metrics.Metrics
	onChange func(names.EntityID)

	mu       sync.Mutex
	edits    map[names.EntityID]map[names.RecordKey]*edit
	inflight map[names.EntityID]struct{}
	idle     []chan struct{}
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// WithOnChange registers a callback run after any edit of a name changes
// state. It is called without the reconciler lock held.
func WithOnChange(fn func(names.EntityID)) Option {
	return func(r *Reconciler) {
		r.onChange = fn
	}
}

// New creates a reconciler writing through w and refreshing cache after commits.
func New(w Writer, cache *records.Cache, opts ...Option) *Reconciler {
	r := &Reconciler{
		writer:   w,
		cache:    cache,
		logger:   zap.NewNop(),
		edits:    make(map[names.EntityID]map[names.RecordKey]*edit),
		inflight: make(map[names.EntityID]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit records an intent and schedules its write. The write itself runs
// detached from ctx, so cancelling the caller never aborts it.
func (r *Reconciler) Submit(ctx context.Context, in Intent) (Edit, error) {
	if err := in.Validate(); err != nil {
		return Edit{}, err
	}
	if in.Action == ActionDelete {
		in.Value = ""
	}

	now := time.Now()
	e := &edit{Edit{
		ID:          uuid.NewString(),
		Entity:      in.Entity,
		Key:         in.Key,
		Action:      in.Action,
		Value:       in.Value,
		State:       StatePending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}}

	r.mu.Lock()
	keys := r.edits[in.Entity]
	if keys == nil {
		keys = make(map[names.RecordKey]*edit)
		r.edits[in.Entity] = keys
	}
	if prev, ok := keys[in.Key]; ok && prev.State == StateCommitting {
		prev.Superseded = true
		r.metrics.AddEdits("superseded", 1)
	}
	keys[in.Key] = e
	out := e.Edit
	next, start := r.scheduleLocked(in.Entity)
	r.mu.Unlock()

	r.logger.Debug("Edit submitted",
		zap.String("edit_id", e.ID),
		zap.String("entity", string(in.Entity)),
		zap.String("key", string(in.Key)),
		zap.String("action", string(in.Action)),
	)
	r.notify(in.Entity)
	if start {
		go r.flush(context.WithoutCancel(ctx), next)
	}
	return out, nil
}

// Retry moves a failed edit back to Pending. Edits the ledger rejected cannot
// be retried; the caller must submit a changed intent instead.
func (r *Reconciler) Retry(ctx context.Context, entity names.EntityID, key names.RecordKey) (Edit, error) {
	r.mu.Lock()
	e, ok := r.edits[entity][key]
	if !ok {
		r.mu.Unlock()
		return Edit{}, ErrUnknownEdit
	}
	if !e.Retryable() {
		r.mu.Unlock()
		return e.Edit, ErrNotRetryable
	}
	e.State = StatePending
	e.Err, e.Error, e.Kind = nil, "", ""
	e.UpdatedAt = time.Now()
	out := e.Edit
	next, start := r.scheduleLocked(entity)
	r.mu.Unlock()

	r.logger.Debug("Edit retried", zap.String("edit_id", e.ID), zap.String("entity", string(entity)))
	r.notify(entity)
	if start {
		go r.flush(context.WithoutCancel(ctx), next)
	}
	return out, nil
}

// Dismiss clears a settled edit, returning the key to Idle.
func (r *Reconciler) Dismiss(entity names.EntityID, key names.RecordKey) error {
	r.mu.Lock()
	e, ok := r.edits[entity][key]
	if !ok {
		r.mu.Unlock()
		return ErrUnknownEdit
	}
	if e.State != StateCommitted && e.State != StateFailed {
		r.mu.Unlock()
		return ErrEditActive
	}
	delete(r.edits[entity], key)
	if len(r.edits[entity]) == 0 {
		delete(r.edits, entity)
	}
	r.mu.Unlock()

	r.notify(entity)
	return nil
}

// State returns the visible state of a record key.
func (r *Reconciler) State(entity names.EntityID, key names.RecordKey) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.edits[entity][key]; ok {
		return e.State
	}
	return StateIdle
}

// Get returns the visible edit of a record key.
func (r *Reconciler) Get(entity names.EntityID, key names.RecordKey) (Edit, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.edits[entity][key]
	if !ok {
		return Edit{}, false
	}
	return e.Edit, true
}

// Edits returns every non-idle edit ordered by name then catalog position.
func (r *Reconciler) Edits() []Edit {
	r.mu.Lock()
	all := make([]*edit, 0)
	for _, keys := range r.edits {
		for _, e := range keys {
			all = append(all, e)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Entity < all[j].Entity })
	out := make([]Edit, 0, len(all))
	for start := 0; start < len(all); {
		end := start
		for end < len(all) && all[end].Entity == all[start].Entity {
			end++
		}
		group := all[start:end]
		sortEdits(group)
		for _, e := range group {
			out = append(out, e.Edit)
		}
		start = end
	}
	r.mu.Unlock()
	return out
}

// Wait blocks until no batch is in flight or ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	r.mu.Lock()
	if len(r.inflight) == 0 {
		r.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	r.idle = append(r.idle, ch)
	r.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scheduleLocked claims the name for a new batch if none is in flight.
func (r *Reconciler) scheduleLocked(entity names.EntityID) (batch, bool) {
	if _, busy := r.inflight[entity]; busy {
		return batch{}, false
	}
	b := r.takePendingLocked(entity)
	if len(b.edits) == 0 {
		return batch{}, false
	}
	r.inflight[entity] = struct{}{}
	return b, true
}

// takePendingLocked moves every Pending edit of a name to Committing.
func (r *Reconciler) takePendingLocked(entity names.EntityID) batch {
	b := batch{entity: entity}
	now := time.Now()
	for _, e := range r.edits[entity] {
		if e.State != StatePending {
			continue
		}
		e.State = StateCommitting
		e.UpdatedAt = now
		b.edits = append(b.edits, e)
	}
	sortEdits(b.edits)
	return b
}

// flush commits batches for one name until none is pending.
func (r *Reconciler) flush(ctx context.Context, b batch) {
	stale := false
	for len(b.edits) > 0 {
		r.metrics.AddInFlight(len(b.edits))
		started := time.Now()
		applied, err := apply(ctx, r.writer, b)
		r.metrics.AddInFlight(-len(b.edits))

		r.mu.Lock()
		superseded := false
		now := time.Now()
		for i, e := range b.edits {
			if r.edits[b.entity][e.Key] != e {
				superseded = true
				e.Superseded = true
			}
			e.UpdatedAt = now
			if i < applied {
				e.State = StateCommitted
				continue
			}
			e.State = StateFailed
			e.Err = err
			e.Error = err.Error()
			e.Kind = names.KindOf(err)
		}
		r.mu.Unlock()

		log := r.logger.With(
			zap.String("entity", string(b.entity)),
			zap.Int("writes", len(b.edits)),
			zap.Duration("took", time.Since(started)),
		)
		r.metrics.AddEdits("committed", applied)
		if err != nil {
			r.metrics.AddEdits("failed", len(b.edits)-applied)
			log.Warn("Record batch failed", zap.Int("applied", applied), zap.Error(err))
		} else {
			log.Info("Record batch committed")
		}
		r.notify(b.entity)

		// A superseded key has a newer write queued, so the next batch of
		// this loop refreshes whether it commits or fails.
		stale = stale || applied > 0
		if stale && !superseded && r.cache != nil {
			stale = false
			if rerr := r.cache.Refresh(ctx, b.entity, r.writer.GetRecords); rerr != nil {
				log.Warn("Record refresh after commit failed", zap.Error(rerr))
			}
		}

		r.mu.Lock()
		b = r.takePendingLocked(b.entity)
		var waiters []chan struct{}
		if len(b.edits) == 0 {
			delete(r.inflight, b.entity)
			if len(r.inflight) == 0 {
				waiters = r.idle
				r.idle = nil
			}
		}
		r.mu.Unlock()

		if len(b.edits) > 0 {
			r.notify(b.entity)
		}
		for _, ch := range waiters {
			close(ch)
		}
	}
}

func (r *Reconciler) notify(entity names.EntityID) {
	if r.onChange != nil {
		r.onChange(entity)
	}
}
