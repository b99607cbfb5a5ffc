package reconcile

import (
	"context"
	"fmt"
	"sort"

	"domain-manager/core/ledger"
	"domain-manager/core/names"
)

// batch is the set of edits of one name sent to the ledger together.
type batch struct {
	entity names.EntityID
	edits  []*edit
}

func (b batch) writes() []ledger.Write {
	writes := make([]ledger.Write, len(b.edits))
	for i, e := range b.edits {
		writes[i] = ledger.Write{Key: e.Key}
		if e.Action == ActionSet {
			writes[i].Value = ledger.Value(e.Value)
		}
	}
	return writes
}

// sortEdits orders a batch by catalog position so writes are deterministic.
func sortEdits(edits []*edit) {
	records := make([]names.Record, len(edits))
	pos := make(map[names.RecordKey]int, len(edits))
	for i, e := range edits {
		records[i] = names.Record{Key: e.Key}
	}
	names.SortRecords(records)
	for i, r := range records {
		pos[r.Key] = i
	}
	sort.SliceStable(edits, func(i, j int) bool {
		return pos[edits[i].Key] < pos[edits[j].Key]
	})
}

// apply sends a batch to the ledger and returns how many writes took effect.
// A BatchWriter applies all or nothing; otherwise writes go one at a time and
// stop at the first failure.
func apply(ctx context.Context, w Writer, b batch) (applied int, err error) {
	writes := b.writes()

	if bw, ok := w.(ledger.BatchWriter); ok {
		if err := bw.SetRecords(ctx, b.entity, writes); err != nil {
			return 0, names.Classify("setRecords", err)
		}
		return len(writes), nil
	}

	for _, wr := range writes {
		if err := w.SetRecord(ctx, b.entity, wr.Key, wr.Value); err != nil {
			return applied, names.Classify("setRecord", fmt.Errorf("write %s: %w", wr.Key, err))
		}
		applied++
	}
	return applied, nil
}
