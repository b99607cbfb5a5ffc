package rpc

import (
	"context"

	"domain-manager/core/ledger"
	"domain-manager/core/names"
	"domain-manager/core/utils"
)

const (
	methodCountOwned    = "names_countOwned"
	methodListOwned     = "names_listOwned"
	methodGetRecords    = "names_getRecords"
	methodSetRecord     = "names_setRecord"
	methodSetRecords    = "names_setRecords"
	methodReverseLookup = "names_reverseLookup"
	methodGetDomain     = "names_getDomain"
)

var (
	_ ledger.Client      = (*Client)(nil)
	_ ledger.BatchWriter = (*Client)(nil)
)

// CountOwned accepts a JSON number, a decimal string or a hex quantity.
// A null or unparseable result is an unknown count, reported as -1.
func (c *Client) CountOwned(ctx context.Context, account names.Address) (int, error) {
	var raw any
	if err := c.read(ctx, methodCountOwned, &raw, account); err != nil {
		return 0, err
	}
	n, ok := utils.ParseInt(raw)
	if !ok || n < 0 {
		return -1, nil
	}
	return n, nil
}

func (c *Client) ListOwned(ctx context.Context, account names.Address, offset, limit int) ([]names.EntityID, error) {
	var ids []names.EntityID
	if err := c.read(ctx, methodListOwned, &ids, account, offset, limit); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []names.EntityID{}
	}
	return ids, nil
}

// GetRecords decodes a key to value object. Null values are absent records.
func (c *Client) GetRecords(ctx context.Context, id names.EntityID) ([]names.Record, error) {
	var raw map[names.RecordKey]*string
	if err := c.read(ctx, methodGetRecords, &raw, id); err != nil {
		return nil, err
	}
	out := make([]names.Record, 0, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		out = append(out, names.Record{Key: k, Value: *v})
	}
	names.SortRecords(out)
	return out, nil
}

// SetRecord sends null as the value to delete the record.
func (c *Client) SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value *string) error {
	return c.call(ctx, methodSetRecord, nil, id, key, value)
}

// SetRecords applies the writes in one ledger transaction.
func (c *Client) SetRecords(ctx context.Context, id names.EntityID, writes []ledger.Write) error {
	return c.call(ctx, methodSetRecords, nil, id, writes)
}

// ReverseLookup treats a null or empty result as an explicit miss.
func (c *Client) ReverseLookup(ctx context.Context, addr names.Address) (names.EntityID, bool, error) {
	var raw any
	if err := c.read(ctx, methodReverseLookup, &raw, addr); err != nil {
		return "", false, err
	}
	name := utils.ToString(raw)
	if name == "" {
		return "", false, nil
	}
	return names.EntityID(name), true, nil
}

func (c *Client) GetDomain(ctx context.Context, id names.EntityID) (names.Domain, error) {
	var d names.Domain
	if err := c.read(ctx, methodGetDomain, &d, id); err != nil {
		return names.Domain{}, err
	}
	if d.ID == "" {
		d.ID = id
	}
	d.Owner = names.NormalizeAddress(string(d.Owner))
	return d, nil
}
