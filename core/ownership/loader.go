package ownership

import (
	"context"
	"strings"
	"sync"
	"time"

	"domain-manager/core/metrics"
	"domain-manager/core/names"

	"go.uber.org/zap"
)

const (
	// DefaultPageSize is the listing page size.
	DefaultPageSize = 10
	// DefaultEmitEvery is the number of ids between intermediate snapshots.
	DefaultEmitEvery = 10
)

// Source enumerates owned names.
type Source interface {
	CountOwned(ctx context.Context, account names.Address) (int, error)
	ListOwned(ctx context.Context, account names.Address, offset, limit int) ([]names.EntityID, error)
}

// Status is the state of a load.
type Status string

const (
	StatusLoading  Status = "loading"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Snapshot is one progress report of a load.
type Snapshot struct {
	Generation uint64
	Account    names.Address
	// Total is nil until the ledger reported a count.
	Total  *int
	Loaded int
	Status Status
	// Batch holds the ids first seen since the previous snapshot.
	Batch []names.EntityID
	// IDs is the full ordered ownership set, only on a Complete snapshot.
	IDs []names.EntityID
	Err error
}

// Terminal reports whether this is the last snapshot of its load.
func (s Snapshot) Terminal() bool {
	return s.Status != StatusLoading
}

// Loader drives paginated ownership enumeration.
type Loader struct {
	source    Source
	pageSize  int
	emitEvery int
	logger    *zap.Logger
	metrics   *metrics.Metrics

	mu      sync.Mutex
	seq     uint64
	current map[names.Address]uint64
}

// Option configures a Loader.
type Option func(*Loader)

// WithPageSize sets the listing page size.
func WithPageSize(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// WithEmitEvery sets how many new ids trigger an intermediate snapshot.
func WithEmitEvery(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.emitEvery = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Loader) {
		l.metrics = m
	}
}

// NewLoader creates a loader reading from source.
func NewLoader(source Source, opts ...Option) *Loader {
	l := &Loader{
		source:    source,
		pageSize:  DefaultPageSize,
		emitEvery: DefaultEmitEvery,
		logger:    zap.NewNop(),
		current:   make(map[names.Address]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load starts enumerating the names owned by account. The returned channel
// is closed after the terminal snapshot, when ctx is cancelled, or when a
// newer load for the same account supersedes this one.
func (l *Loader) Load(ctx context.Context, account names.Address) (<-chan Snapshot, error) {
	if strings.TrimSpace(string(account)) == "" {
		return nil, names.ErrInvalidAccount
	}
	account = names.NormalizeAddress(string(account))

	l.mu.Lock()
	l.seq++
	gen := l.seq
	l.current[account] = gen
	l.mu.Unlock()

	out := make(chan Snapshot)
	go l.run(ctx, account, gen, out)
	return out, nil
}

// Generation returns the latest generation started for account.
func (l *Loader) Generation(account names.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current[names.NormalizeAddress(string(account))]
}

func (l *Loader) isCurrent(account names.Address, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current[account] == gen
}

func (l *Loader) run(ctx context.Context, account names.Address, gen uint64, out chan<- Snapshot) {
	defer close(out)
	started := time.Now()
	log := l.logger.With(zap.String("account", string(account)), zap.Uint64("generation", gen))

	emit := func(s Snapshot) bool {
		if !l.isCurrent(account, gen) {
			log.Debug("Dropping superseded ownership snapshot",
				zap.Int("loaded", s.Loaded),
				zap.Error(names.ErrStaleGeneration),
			)
			return false
		}
		s.Generation = gen
		s.Account = account
		select {
		case out <- s:
			return true
		case <-ctx.Done():
			return false
		}
	}

	fail := func(total *int, loaded int, err error) {
		if ctx.Err() != nil {
			return
		}
		log.Warn("Ownership load failed", zap.Int("loaded", loaded), zap.Error(err))
		l.metrics.ObserveLoad(string(StatusFailed), started)
		emit(Snapshot{Total: total, Loaded: loaded, Status: StatusFailed, Err: err})
	}

	count, err := l.source.CountOwned(ctx, account)
	if err != nil {
		fail(nil, 0, names.Classify("countOwned", err))
		return
	}
	var total *int
	if count >= 0 {
		total = intPtr(count)
	}
	if !emit(Snapshot{Total: copyInt(total), Status: StatusLoading}) {
		return
	}

	seen := make(map[names.EntityID]struct{})
	ids := make([]names.EntityID, 0, max(count, 0))
	var batch []names.EntityID

	for offset := 0; ; {
		page, err := l.source.ListOwned(ctx, account, offset, l.pageSize)
		if err != nil {
			fail(copyInt(total), len(ids), names.Classify("listOwned", err))
			return
		}
		offset += len(page)

		for _, id := range page {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
			batch = append(batch, id)

			// The count may lag behind the listing
			if total != nil && len(ids) > *total {
				total = intPtr(len(ids))
			}
			if len(ids)%l.emitEvery == 0 {
				l.metrics.SetLoaded(len(ids))
				if !emit(Snapshot{Total: copyInt(total), Loaded: len(ids), Status: StatusLoading, Batch: batch}) {
					return
				}
				batch = nil
			}
		}

		if len(page) < l.pageSize {
			break
		}
	}

	if total == nil || *total != len(ids) {
		log.Debug("Ownership count mismatch", zap.Any("count", total), zap.Int("listed", len(ids)))
	}
	final := len(ids)
	l.metrics.SetLoaded(final)
	l.metrics.ObserveLoad(string(StatusComplete), started)
	log.Info("Ownership load complete", zap.Int("loaded", final), zap.Duration("took", time.Since(started)))
	emit(Snapshot{Total: intPtr(final), Loaded: final, Status: StatusComplete, Batch: batch, IDs: ids})
}

func intPtr(n int) *int {
	return &n
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}
