// Package memory provides an in-memory ledger.
//
// It backs the "memory" ledger driver for offline development and is the fake
// used throughout the engine's tests: calls are counted per operation, failures
// can be injected and calls can be held until released.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"domain-manager/core/ledger"
	"domain-manager/core/names"
)

// Operation names used by Calls, Fail and Hold.
const (
	OpCountOwned    = "countOwned"
	OpListOwned     = "listOwned"
	OpGetRecords    = "getRecords"
	OpSetRecord     = "setRecord"
	OpSetRecords    = "setRecords"
	OpReverseLookup = "reverseLookup"
	OpGetDomain     = "getDomain"
)

// Ledger is a thread-safe in-memory ledger.
type Ledger struct {
	mu       sync.Mutex
	domains  map[names.EntityID]names.Domain
	owned    map[names.Address][]names.EntityID
	records  map[names.EntityID]map[names.RecordKey]string
	reverse  map[names.Address]names.EntityID
	counts   map[names.Address]int
	calls    map[string]int
	failures map[string]error
	holds    map[string]chan struct{}
	writes   []ledger.Write
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{
		domains:  make(map[names.EntityID]names.Domain),
		owned:    make(map[names.Address][]names.EntityID),
		records:  make(map[names.EntityID]map[names.RecordKey]string),
		reverse:  make(map[names.Address]names.EntityID),
		counts:   make(map[names.Address]int),
		calls:    make(map[string]int),
		failures: make(map[string]error),
		holds:    make(map[string]chan struct{}),
	}
}

// AddDomain registers a name for its owner, with optional initial records.
func (l *Ledger) AddDomain(d names.Domain, records ...names.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d.Owner = names.NormalizeAddress(string(d.Owner))
	l.domains[d.ID] = d
	l.owned[d.Owner] = append(l.owned[d.Owner], d.ID)
	set := make(map[names.RecordKey]string, len(records))
	for _, r := range records {
		set[r.Key] = r.Value
	}
	l.records[d.ID] = set
}

// AddOwned appends ids to an account without metadata (duplicates allowed).
func (l *Ledger) AddOwned(account string, ids ...names.EntityID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	addr := names.NormalizeAddress(account)
	for _, id := range ids {
		if _, ok := l.domains[id]; !ok {
			l.domains[id] = names.Domain{ID: id, Name: string(id), Owner: addr}
		}
		l.owned[addr] = append(l.owned[addr], id)
	}
}

// SetCount overrides the count reported for an account.
func (l *Ledger) SetCount(account string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[names.NormalizeAddress(account)] = n
}

// SetReverse sets the primary name of an address.
func (l *Ledger) SetReverse(addr string, name names.EntityID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reverse[names.NormalizeAddress(addr)] = name
}

// Fail makes every call of op return err until cleared with a nil err.
func (l *Ledger) Fail(op string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.failures, op)
		return
	}
	l.failures[op] = err
}

// Hold blocks calls of op until the returned release function is called.
func (l *Ledger) Hold(op string) (release func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan struct{})
	l.holds[op] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			if l.holds[op] == ch {
				delete(l.holds, op)
			}
			l.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op was invoked.
func (l *Ledger) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// Writes returns every write applied so far, in order.
func (l *Ledger) Writes() []ledger.Write {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ledger.Write, len(l.writes))
	copy(out, l.writes)
	return out
}

// enter records the call, waits on a hold and returns an injected failure.
func (l *Ledger) enter(ctx context.Context, op string) error {
	l.mu.Lock()
	l.calls[op]++
	hold := l.holds[op]
	l.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[op]
}

func (l *Ledger) CountOwned(ctx context.Context, account names.Address) (int, error) {
	if err := l.enter(ctx, OpCountOwned); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if n, ok := l.counts[account]; ok {
		return n, nil
	}
	return len(l.owned[account]), nil
}

func (l *Ledger) ListOwned(ctx context.Context, account names.Address, offset, limit int) ([]names.EntityID, error) {
	if err := l.enter(ctx, OpListOwned); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := l.owned[account]
	if offset >= len(ids) {
		return []names.EntityID{}, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}
	page := make([]names.EntityID, end-offset)
	copy(page, ids[offset:end])
	return page, nil
}

func (l *Ledger) GetRecords(ctx context.Context, id names.EntityID) ([]names.Record, error) {
	if err := l.enter(ctx, OpGetRecords); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	set := l.records[id]
	out := make([]names.Record, 0, len(set))
	for k, v := range set {
		out = append(out, names.Record{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (l *Ledger) SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value *string) error {
	if err := l.enter(ctx, OpSetRecord); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.applyLocked(id, ledger.Write{Key: key, Value: value})
}

// SetRecords applies all writes atomically.
func (l *Ledger) SetRecords(ctx context.Context, id names.EntityID, writes []ledger.Write) error {
	if err := l.enter(ctx, OpSetRecords); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.domains[id]; !ok {
		return names.NewError(names.KindRemoteRejected, OpSetRecords, fmt.Sprintf("unknown name %s", id), nil)
	}
	for _, w := range writes {
		if err := l.applyLocked(id, w); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) applyLocked(id names.EntityID, w ledger.Write) error {
	if _, ok := l.domains[id]; !ok {
		return names.NewError(names.KindRemoteRejected, OpSetRecord, fmt.Sprintf("unknown name %s", id), nil)
	}
	set := l.records[id]
	if set == nil {
		set = make(map[names.RecordKey]string)
		l.records[id] = set
	}
	if w.Value == nil {
		delete(set, w.Key)
	} else {
		set[w.Key] = *w.Value
	}
	l.writes = append(l.writes, w)
	return nil
}

func (l *Ledger) ReverseLookup(ctx context.Context, addr names.Address) (names.EntityID, bool, error) {
	if err := l.enter(ctx, OpReverseLookup); err != nil {
		return "", false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	name, ok := l.reverse[addr]
	return name, ok, nil
}

func (l *Ledger) GetDomain(ctx context.Context, id names.EntityID) (names.Domain, error) {
	if err := l.enter(ctx, OpGetDomain); err != nil {
		return names.Domain{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.domains[id]
	if !ok {
		return names.Domain{}, names.NewError(names.KindRemoteRejected, OpGetDomain, fmt.Sprintf("unknown name %s", id), nil)
	}
	return d, nil
}
