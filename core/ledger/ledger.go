package ledger

import (
	"context"

	"domain-manager/core/names"
)

// Client is the ledger contract the engine consumes.
type Client interface {
	// CountOwned returns the number of names owned by account, or -1 when the
	// ledger cannot tell.
	CountOwned(ctx context.Context, account names.Address) (int, error)

	// ListOwned returns up to limit owned name ids starting at offset, in ledger order.
	ListOwned(ctx context.Context, account names.Address, offset, limit int) ([]names.EntityID, error)

	// GetRecords returns the complete record set of a name.
	GetRecords(ctx context.Context, id names.EntityID) ([]names.Record, error)

	// SetRecord writes a record. A nil value deletes it.
	SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value *string) error

	// ReverseLookup resolves an address to its primary name.
	// found is false for an explicit miss.
	ReverseLookup(ctx context.Context, addr names.Address) (name names.EntityID, found bool, err error)

	// GetDomain returns owner and resolver metadata of a name.
	GetDomain(ctx context.Context, id names.EntityID) (names.Domain, error)
}

// Write is one record mutation inside a batch. A nil Value deletes the record.
type Write struct {
	Key   names.RecordKey `json:"key"`
	Value *string         `json:"value"`
}

// BatchWriter is implemented by ledgers that can apply several record writes
// for one name in a single transaction.
type BatchWriter interface {
	SetRecords(ctx context.Context, id names.EntityID, writes []Write) error
}

// Value returns a pointer to s, for building Write values.
func Value(s string) *string {
	return &s
}
