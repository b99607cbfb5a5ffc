package records

import (
	"context"
	"sync"

	"domain-manager/core/names"
)

// Ticket identifies one invalidation of an entry.
type Ticket uint64

// Entity is a copy of the cached state of one name.
type Entity struct {
	Records []names.Record `json:"records"`
	Loading bool           `json:"loading"`
	Loaded  bool           `json:"loaded"`
}

type entry struct {
	values  map[names.RecordKey]string
	loading bool
	loaded  bool
	ticket  Ticket
}

// Cache stores record sets per name.
type Cache struct {
	mu       sync.RWMutex
	entries  map[names.EntityID]*entry
	onChange func(names.EntityID)
}

// NewCache creates an empty cache. onChange, if set, is called after every
// mutation, outside the cache lock.
func NewCache(onChange func(names.EntityID)) *Cache {
	return &Cache{
		entries:  make(map[names.EntityID]*entry),
		onChange: onChange,
	}
}

func (c *Cache) notify(id names.EntityID) {
	if c.onChange != nil {
		c.onChange(id)
	}
}

func (c *Cache) entryLocked(id names.EntityID) *entry {
	e, ok := c.entries[id]
	if !ok {
		e = &entry{values: make(map[names.RecordKey]string)}
		c.entries[id] = e
	}
	return e
}

// Get returns the known records of a name, in catalog order.
func (c *Cache) Get(id names.EntityID) []names.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return nil
	}
	return e.recordsLocked()
}

// Lookup returns the value of a single record and whether it is present.
func (c *Cache) Lookup(id names.EntityID, key names.RecordKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return "", false
	}
	v, ok := e.values[key]
	return v, ok
}

// IsLoading reports whether a fetch for the name is in flight.
func (c *Cache) IsLoading(id names.EntityID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return ok && e.loading
}

// Invalidate marks the entry stale and loading, keeping the last-known values.
func (c *Cache) Invalidate(id names.EntityID) Ticket {
	c.mu.Lock()
	e := c.entryLocked(id)
	e.ticket++
	e.loading = true
	t := e.ticket
	c.mu.Unlock()

	c.notify(id)
	return t
}

// Replace overwrites every record of the name and clears the loading flag.
func (c *Cache) Replace(id names.EntityID, records []names.Record) {
	c.mu.Lock()
	e := c.entryLocked(id)
	e.ticket++
	e.replaceLocked(records)
	c.mu.Unlock()

	c.notify(id)
}

// Complete applies the result of a fetch started with ticket t. It reports
// false and changes nothing if the entry was invalidated again since. On a
// fetch error the last-known values stay and loading stops.
func (c *Cache) Complete(id names.EntityID, t Ticket, records []names.Record, err error) bool {
	c.mu.Lock()
	e := c.entryLocked(id)
	if e.ticket != t {
		c.mu.Unlock()
		return false
	}
	if err != nil {
		e.loading = false
	} else {
		e.replaceLocked(records)
	}
	c.mu.Unlock()

	c.notify(id)
	return true
}

// Refresh invalidates the entry, fetches the authoritative record set and
// applies it.
func (c *Cache) Refresh(ctx context.Context, id names.EntityID, fetch func(context.Context, names.EntityID) ([]names.Record, error)) error {
	t := c.Invalidate(id)
	records, err := fetch(ctx, id)
	c.Complete(id, t, records, err)
	return err
}

// Snapshot copies every entry.
func (c *Cache) Snapshot() map[names.EntityID]Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[names.EntityID]Entity, len(c.entries))
	for id, e := range c.entries {
		out[id] = Entity{Records: e.recordsLocked(), Loading: e.loading, Loaded: e.loaded}
	}
	return out
}

func (e *entry) replaceLocked(records []names.Record) {
	values := make(map[names.RecordKey]string, len(records))
	for _, r := range records {
		values[r.Key] = r.Value
	}
	e.values = values
	e.loading = false
	e.loaded = true
}

func (e *entry) recordsLocked() []names.Record {
	out := make([]names.Record, 0, len(e.values))
	for k, v := range e.values {
		out = append(out, names.Record{Key: k, Value: v})
	}
	names.SortRecords(out)
	return out
}
