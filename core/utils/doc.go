// Package utils provides loose type conversions for values decoded from
// untyped JSON, such as ledger RPC results that may arrive as numbers,
// decimal strings or 0x-prefixed hex quantities.
package utils
