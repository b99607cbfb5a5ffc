package orchestrator

import (
	"domain-manager/core/lookup"
	"domain-manager/core/names"
	"domain-manager/core/reconcile"
	"domain-manager/core/records"
)

// Progress describes the current ownership load.
type Progress struct {
	// Total is nil until the ledger reported a count.
	Total   *int       `json:"total"`
	Loaded  int        `json:"loaded"`
	Loading bool       `json:"loading"`
	Failed  bool       `json:"failed"`
	Stale   bool       `json:"stale"`
	Error   string     `json:"error,omitempty"`
	Kind    names.Kind `json:"kind,omitempty"`
}

// Snapshot is an immutable view of the engine state. Every map and slice is
// a private copy.
type Snapshot struct {
	Account    names.Address `json:"account"`
	Generation uint64        `json:"generation"`
	Version    uint64        `json:"version"`

	// Ownership is nil until the first load for the account completes.
	Ownership []names.EntityID `json:"ownership"`
	Progress  Progress         `json:"progress"`

	Records        map[names.EntityID]records.Entity `json:"records"`
	Domains        map[names.EntityID]names.Domain   `json:"domains"`
	ReverseLookups map[names.Address]lookup.Entry    `json:"reverse_lookups"`
	PendingEdits   []reconcile.Edit                  `json:"pending_edits"`
}

// PrimaryName returns the reverse record of the current account, if resolved.
func (s Snapshot) PrimaryName() (lookup.Entry, bool) {
	e, ok := s.ReverseLookups[s.Account]
	return e, ok
}

// Detail is the result of a detail request for one name.
type Detail struct {
	Domain  names.Domain     `json:"domain"`
	Records []names.Record   `json:"records"`
	Owner   *lookup.Entry    `json:"owner,omitempty"`
	Edits   []reconcile.Edit `json:"edits"`
	Owned   bool             `json:"owned"`
	Error   string           `json:"error,omitempty"`
}

func copyProgress(p Progress) Progress {
	if p.Total != nil {
		t := *p.Total
		p.Total = &t
	}
	return p
}
