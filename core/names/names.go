package names

import (
	"sort"
	"strings"
)

// EntityID identifies a registered name (typically its token id).
type EntityID string

// Address is an account or owner address in canonical lowercase form.
type Address string

// NormalizeAddress trims and lowercases an address for comparison and keying.
func NormalizeAddress(s string) Address {
	return Address(strings.ToLower(strings.TrimSpace(s)))
}

// SameAddress reports whether two addresses refer to the same account.
func SameAddress(a, b string) bool {
	na, nb := NormalizeAddress(a), NormalizeAddress(b)
	return na != "" && na == nb
}

// RecordKey names a record slot on a registered name.
type RecordKey string

const (
	KeyEVM         RecordKey = "evm"
	KeyBTC         RecordKey = "btc"
	KeyAvatar      RecordKey = "text.avatar"
	KeyEmail       RecordKey = "text.email"
	KeyURL         RecordKey = "text.url"
	KeyTwitter     RecordKey = "text.twitter"
	KeyGithub      RecordKey = "text.github"
	KeyDiscord     RecordKey = "text.discord"
	KeyDescription RecordKey = "text.description"
)

// RecordType groups catalog keys.
type RecordType string

const (
	RecordTypeAddress RecordType = "address"
	RecordTypeText    RecordType = "text"
)

// CatalogEntry describes one supported record key.
type CatalogEntry struct {
	Key   RecordKey  `json:"key"`
	Label string     `json:"label"`
	Type  RecordType `json:"type"`
}

// Catalog is the ordered list of record keys a name can carry.
var Catalog = []CatalogEntry{
	{Key: KeyEVM, Label: "EVM Address", Type: RecordTypeAddress},
	{Key: KeyBTC, Label: "Bitcoin Address", Type: RecordTypeAddress},
	{Key: KeyAvatar, Label: "Avatar", Type: RecordTypeText},
	{Key: KeyEmail, Label: "Email", Type: RecordTypeText},
	{Key: KeyURL, Label: "Website", Type: RecordTypeText},
	{Key: KeyTwitter, Label: "Twitter", Type: RecordTypeText},
	{Key: KeyGithub, Label: "GitHub", Type: RecordTypeText},
	{Key: KeyDiscord, Label: "Discord", Type: RecordTypeText},
	{Key: KeyDescription, Label: "Description", Type: RecordTypeText},
}

var catalogIndex = func() map[RecordKey]int {
	idx := make(map[RecordKey]int, len(Catalog))
	for i, e := range Catalog {
		idx[e.Key] = i
	}
	return idx
}()

// Valid reports whether the key is part of the catalog.
func (k RecordKey) Valid() bool {
	_, ok := catalogIndex[k]
	return ok
}

// Label returns the human readable label of a catalog key, or the key itself.
func (k RecordKey) Label() string {
	if i, ok := catalogIndex[k]; ok {
		return Catalog[i].Label
	}
	return string(k)
}

// Record is a single (key, value) pair scoped to one name.
// An empty Value is a present record; absent records are never represented.
type Record struct {
	Key   RecordKey `json:"key"`
	Value string    `json:"value"`
}

// SortRecords orders records by catalog position, then unknown keys alphabetically.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ii, iok := catalogIndex[records[i].Key]
		ji, jok := catalogIndex[records[j].Key]
		switch {
		case iok && jok:
			return ii < ji
		case iok:
			return true
		case jok:
			return false
		default:
			return records[i].Key < records[j].Key
		}
	})
}

// Domain is the per-name metadata fetched on demand.
type Domain struct {
	ID       EntityID `json:"id"`
	Name     string   `json:"name"`
	Owner    Address  `json:"owner"`
	Resolver string   `json:"resolver,omitempty"`
}

// OwnedBy reports whether the domain belongs to the given account.
func (d Domain) OwnedBy(account string) bool {
	return SameAddress(string(d.Owner), account)
}
