package ledger

import (
	"context"
	"errors"
	"time"

	"domain-manager/core/names"
)

// WithTimeout bounds every call on c by d. Expired calls fail with kind Timeout,
// other failures are classified as network failures unless already typed.
// A non-positive d returns c with classification only.
// The result is a BatchWriter only when c is one, so callers of a
// sequential ledger still see how many writes landed.
func WithTimeout(c Client, d time.Duration) Client {
	t := &timeoutClient{next: c, timeout: d}
	if bw, ok := c.(BatchWriter); ok {
		return &batchTimeoutClient{timeoutClient: t, batch: bw}
	}
	return t
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

func (t *timeoutClient) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var e *names.Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return names.NewError(names.KindTimeout, op, "", err)
	}
	return names.NewError(names.KindNetworkFailure, op, "", err)
}

func (t *timeoutClient) CountOwned(ctx context.Context, account names.Address) (int, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	n, err := t.next.CountOwned(ctx, account)
	return n, classify(ctx, "countOwned", err)
}

func (t *timeoutClient) ListOwned(ctx context.Context, account names.Address, offset, limit int) ([]names.EntityID, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	ids, err := t.next.ListOwned(ctx, account, offset, limit)
	return ids, classify(ctx, "listOwned", err)
}

func (t *timeoutClient) GetRecords(ctx context.Context, id names.EntityID) ([]names.Record, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	records, err := t.next.GetRecords(ctx, id)
	return records, classify(ctx, "getRecords", err)
}

func (t *timeoutClient) SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value *string) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return classify(ctx, "setRecord", t.next.SetRecord(ctx, id, key, value))
}

func (t *timeoutClient) ReverseLookup(ctx context.Context, addr names.Address) (names.EntityID, bool, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	name, found, err := t.next.ReverseLookup(ctx, addr)
	return name, found, classify(ctx, "reverseLookup", err)
}

func (t *timeoutClient) GetDomain(ctx context.Context, id names.EntityID) (names.Domain, error) {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	d, err := t.next.GetDomain(ctx, id)
	return d, classify(ctx, "getDomain", err)
}

type batchTimeoutClient struct {
	*timeoutClient
	batch BatchWriter
}

func (t *batchTimeoutClient) SetRecords(ctx context.Context, id names.EntityID, writes []Write) error {
	ctx, cancel := t.bound(ctx)
	defer cancel()
	return classify(ctx, "setRecords", t.batch.SetRecords(ctx, id, writes))
}
