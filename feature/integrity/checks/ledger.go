package checks

import (
	"context"
	"time"

	"domain-manager/core/ledger"
	"domain-manager/core/names"
)

// ZeroAddress is queried to test ledger reachability. It owns nothing.
const ZeroAddress names.Address = "0x0000000000000000000000000000000000000000"

// LedgerReport is the result of probing the ledger with read calls.
type LedgerReport struct {
	Status    string        `json:"status"`
	Reachable bool          `json:"reachable"`
	Latency   time.Duration `json:"latency_ns"`
	Error     string        `json:"error,omitempty"`
	Kind      names.Kind    `json:"kind,omitempty"`
}

// CheckLedger issues a count and a reverse lookup for ZeroAddress. A
// rejected call still proves the ledger answers; transport failures do not.
func CheckLedger(ctx context.Context, client ledger.Client) *LedgerReport {
	started := time.Now()
	_, err := client.CountOwned(ctx, ZeroAddress)
	if err == nil {
		_, _, err = client.ReverseLookup(ctx, ZeroAddress)
	}

	report := &LedgerReport{Status: "ok", Reachable: true, Latency: time.Since(started)}
	if err != nil {
		report.Error = err.Error()
		report.Kind = names.KindOf(err)
		if names.IsRetryable(err) {
			report.Status = "error"
			report.Reachable = false
		} else {
			report.Status = "warning"
		}
	}
	return report
}
