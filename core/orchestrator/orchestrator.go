package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"

	"domain-manager/core/ledger"
	"domain-manager/core/lookup"
	"domain-manager/core/metrics"
	"domain-manager/core/names"
	"domain-manager/core/ownership"
	"domain-manager/core/reconcile"
	"domain-manager/core/records"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// backfillLimit bounds concurrent owner lookups per progress batch.
const backfillLimit = 4

type subscriber struct {
	fn   func(Snapshot)
	last uint64
}

// Orchestrator owns the engine components and the account-scoped state.
type Orchestrator struct {
	client     ledger.Client
	loader     *ownership.Loader
	lookups    *lookup.Cache
	records    *records.Cache
	reconciler *reconcile.Reconciler
	logger     *zap.Logger
	metrics    *metrics.Metrics
	loaderOpts []ownership.Option

	base     context.Context
	shutdown context.CancelFunc

	mu         sync.Mutex
	account    names.Address
	generation uint64
	ownership  []names.EntityID
	progress   Progress
	domains    map[names.EntityID]names.Domain
	cancelLoad context.CancelFunc

	version atomic.Uint64
	changed chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics sink shared by every component.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// WithLoaderOptions passes options to the ownership loader.
func WithLoaderOptions(opts ...ownership.Option) Option {
	return func(o *Orchestrator) {
		o.loaderOpts = append(o.loaderOpts, opts...)
	}
}

// New builds the engine around client and starts the snapshot dispatcher.
// Call Close to stop it.
func New(client ledger.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		logger:  zap.NewNop(),
		domains: make(map[names.EntityID]names.Domain),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
		subs:    make(map[int]*subscriber),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.base, o.shutdown = context.WithCancel(context.Background())
	o.version.Store(1)

	loaderOpts := append([]ownership.Option{
		ownership.WithLogger(o.logger.Named("ownership")),
		ownership.WithMetrics(o.metrics),
	}, o.loaderOpts...)
	o.loader = ownership.NewLoader(client, loaderOpts...)
	o.lookups = lookup.NewCache(client,
		lookup.WithLogger(o.logger.Named("lookup")),
		lookup.WithMetrics(o.metrics),
		lookup.WithOnChange(func(names.Address) { o.touch() }),
	)
	o.records = records.NewCache(func(names.EntityID) { o.touch() })
	o.reconciler = reconcile.New(client, o.records,
		reconcile.WithLogger(o.logger.Named("reconcile")),
		reconcile.WithMetrics(o.metrics),
		reconcile.WithOnChange(func(names.EntityID) { o.touch() }),
	)

	o.wg.Add(1)
	go o.dispatch()
	return o
}

// Records exposes the record cache.
func (o *Orchestrator) Records() *records.Cache {
	return o.records
}

// Reconciler exposes the edit reconciler.
func (o *Orchestrator) Reconciler() *reconcile.Reconciler {
	return o.reconciler
}

// ChangeAccount switches to a new account. The previous ownership set and
// progress are discarded and the previous load is cancelled; record writes
// already submitted keep running.
func (o *Orchestrator) ChangeAccount(ctx context.Context, account string) error {
	addr := names.NormalizeAddress(account)
	if addr == "" {
		return names.ErrInvalidAccount
	}

	o.mu.Lock()
	o.account = addr
	o.ownership = nil
	ch, gen, err := o.startLoadLocked()
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.logger.Info("Account changed", zap.String("account", string(addr)), zap.Uint64("generation", gen))
	o.touch()
	o.follow(gen, ch)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.lookups.Resolve(o.base, addr); err != nil {
			o.logger.Warn("Primary name lookup failed", zap.String("account", string(addr)), zap.Error(err))
		}
	}()
	return nil
}

// ReloadOwnership restarts the ownership load of the current account. The
// last good set stays visible, marked stale, until the new load completes.
func (o *Orchestrator) ReloadOwnership(ctx context.Context) error {
	o.mu.Lock()
	if o.account == "" {
		o.mu.Unlock()
		return names.ErrInvalidAccount
	}
	ch, gen, err := o.startLoadLocked()
	o.mu.Unlock()
	if err != nil {
		return err
	}

	o.logger.Info("Ownership reload", zap.String("account", string(o.Account())), zap.Uint64("generation", gen))
	o.touch()
	o.follow(gen, ch)
	return nil
}

// startLoadLocked cancels the running load and starts a new one for o.account.
func (o *Orchestrator) startLoadLocked() (<-chan ownership.Snapshot, uint64, error) {
	if o.cancelLoad != nil {
		o.cancelLoad()
	}
	ctx, cancel := context.WithCancel(o.base)
	ch, err := o.loader.Load(ctx, o.account)
	if err != nil {
		cancel()
		return nil, 0, err
	}
	o.cancelLoad = cancel
	o.generation = o.loader.Generation(o.account)
	o.progress = Progress{Loading: true, Stale: o.ownership != nil}
	return ch, o.generation, nil
}

// follow applies the snapshots of one load generation.
func (o *Orchestrator) follow(gen uint64, ch <-chan ownership.Snapshot) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		for s := range ch {
			if !o.apply(gen, s) {
				continue
			}
			o.touch()
			o.backfill(s.Batch)
		}
	}()
}

// apply folds one load snapshot into the state. It reports false for
// snapshots of a superseded generation.
func (o *Orchestrator) apply(gen uint64, s ownership.Snapshot) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.generation != gen {
		return false
	}

	p := Progress{Total: s.Total, Loaded: s.Loaded, Stale: o.progress.Stale}
	switch s.Status {
	case ownership.StatusLoading:
		p.Loading = true
	case ownership.StatusComplete:
		o.ownership = s.IDs
		p.Stale = false
	case ownership.StatusFailed:
		p.Failed = true
		p.Stale = o.ownership != nil
		p.Error = s.Err.Error()
		p.Kind = names.KindOf(s.Err)
	}
	if p.Total != nil && p.Loaded > *p.Total {
		p.Loaded = *p.Total
	}
	o.progress = p
	return true
}

// backfill resolves reverse records of owners known from fetched metadata.
func (o *Orchestrator) backfill(batch []names.EntityID) {
	if len(batch) == 0 {
		return
	}
	o.mu.Lock()
	owners := make(map[names.Address]struct{})
	for _, id := range batch {
		if d, ok := o.domains[id]; ok && d.Owner != "" {
			owners[d.Owner] = struct{}{}
		}
	}
	o.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(backfillLimit)
	for owner := range owners {
		if _, ok := o.lookups.Peek(owner); ok {
			continue
		}
		g.Go(func() error {
			_, err := o.lookups.Resolve(o.base, owner)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.Debug("Owner backfill incomplete", zap.Error(err))
	}
}

// RequestDetail loads metadata and records of one name, then resolves its
// owner. Fetch failures are reported in Detail.Error.
func (o *Orchestrator) RequestDetail(ctx context.Context, id names.EntityID) (Detail, error) {
	if id == "" {
		return Detail{}, names.NewError(names.KindInvalidInput, "requestDetail", "entity id is required", nil)
	}

	var (
		domain    names.Domain
		domainErr error
		recordErr error
		g         errgroup.Group
	)
	g.Go(func() error {
		domain, domainErr = o.client.GetDomain(ctx, id)
		return nil
	})
	g.Go(func() error {
		recordErr = o.records.Refresh(ctx, id, o.client.GetRecords)
		return nil
	})
	_ = g.Wait()

	detail := Detail{Domain: names.Domain{ID: id}}
	if domainErr == nil {
		detail.Domain = domain
		o.mu.Lock()
		o.domains[id] = domain
		detail.Owned = domain.OwnedBy(string(o.account))
		o.mu.Unlock()
		o.touch()

		if domain.Owner != "" {
			if e, err := o.lookups.Resolve(ctx, domain.Owner); err == nil {
				detail.Owner = &e
			} else {
				o.logger.Debug("Owner lookup failed", zap.String("owner", string(domain.Owner)), zap.Error(err))
			}
		}
	}

	if err := firstError(domainErr, recordErr); err != nil {
		o.logger.Warn("Detail request failed", zap.String("entity", string(id)), zap.Error(err))
		detail.Error = err.Error()
	}
	detail.Records = o.records.Get(id)
	for _, e := range o.reconciler.Edits() {
		if e.Entity == id {
			detail.Edits = append(detail.Edits, e)
		}
	}
	return detail, nil
}

// SubmitEdit records a set or delete intent for one record.
func (o *Orchestrator) SubmitEdit(ctx context.Context, id names.EntityID, key names.RecordKey, action reconcile.Action, value string) (reconcile.Edit, error) {
	return o.reconciler.Submit(ctx, reconcile.Intent{Entity: id, Key: key, Action: action, Value: value})
}

// RetryEdit re-submits a failed edit.
func (o *Orchestrator) RetryEdit(ctx context.Context, id names.EntityID, key names.RecordKey) (reconcile.Edit, error) {
	return o.reconciler.Retry(ctx, id, key)
}

// DismissEdit clears a settled edit.
func (o *Orchestrator) DismissEdit(id names.EntityID, key names.RecordKey) error {
	return o.reconciler.Dismiss(id, key)
}

// Account returns the current account.
func (o *Orchestrator) Account() names.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.account
}

// Snapshot returns a consistent copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	s := Snapshot{Version: o.version.Load()}

	o.mu.Lock()
	s.Account = o.account
	s.Generation = o.generation
	if o.ownership != nil {
		s.Ownership = append(make([]names.EntityID, 0, len(o.ownership)), o.ownership...)
	}
	s.Progress = copyProgress(o.progress)
	s.Domains = make(map[names.EntityID]names.Domain, len(o.domains))
	for id, d := range o.domains {
		s.Domains[id] = d
	}
	o.mu.Unlock()

	s.Records = o.records.Snapshot()
	s.ReverseLookups = o.lookups.Snapshot()
	s.PendingEdits = o.reconciler.Edits()
	return s
}

// Subscribe registers fn to receive every new snapshot, in version order,
// starting with the current one. fn runs on the dispatcher goroutine and must
// not block. The returned function unsubscribes.
func (o *Orchestrator) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	o.subMu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = &subscriber{fn: fn}
	o.subMu.Unlock()

	o.signal()
	return func() {
		o.subMu.Lock()
		delete(o.subs, id)
		o.subMu.Unlock()
	}
}

// Close cancels the running load, stops the dispatcher and waits for the
// engine goroutines. Submitted record writes are not waited for.
func (o *Orchestrator) Close() {
	o.once.Do(func() {
		o.shutdown()
		close(o.done)
		o.wg.Wait()
	})
}

// touch marks the state changed.
func (o *Orchestrator) touch() {
	o.version.Add(1)
	o.signal()
}

func (o *Orchestrator) signal() {
	select {
	case o.changed <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) dispatch() {
	defer o.wg.Done()
	for {
		select {
		case <-o.done:
			return
		case <-o.changed:
		}

		snap := o.Snapshot()
		o.subMu.Lock()
		targets := make([]*subscriber, 0, len(o.subs))
		for _, sub := range o.subs {
			if sub.last < snap.Version {
				sub.last = snap.Version
				targets = append(targets, sub)
			}
		}
		o.subMu.Unlock()

		for _, sub := range targets {
			sub.fn(snap)
		}
		if len(targets) > 0 {
			o.metrics.IncSnapshots()
		}
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
