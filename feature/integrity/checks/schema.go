package checks

import (
	"domain-manager/core/ledger/sqlstore"
)

// SchemaVerifier checks a SQL ledger mirror against its models.
type SchemaVerifier interface {
	Verify() (map[string]sqlstore.TableReport, error)
}

// SchemaReport represents the result of the mirror schema check.
type SchemaReport struct {
	Status  string                          `json:"status"`
	Matched bool                            `json:"matched"`
	Tables  map[string]sqlstore.TableReport `json:"tables,omitempty"`
	Error   string                          `json:"error,omitempty"`
}

// CheckSchema verifies the mirror tables. A nil verifier means the ledger is
// not SQL backed and the check is skipped.
func CheckSchema(v SchemaVerifier) *SchemaReport {
	if v == nil {
		return &SchemaReport{Status: "skipped", Matched: true}
	}
	tables, err := v.Verify()
	report := &SchemaReport{Status: "ok", Matched: err == nil, Tables: tables}
	if err != nil {
		report.Status = "error"
		report.Error = err.Error()
	}
	return report
}
