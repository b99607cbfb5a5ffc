package sqlstore

// DomainRow is a registered name and its ownership.
type DomainRow struct {
	ID       string `gorm:"column:id;primaryKey;size:128"`
	Name     string `gorm:"column:name;size:255"`
	Owner    string `gorm:"column:owner;size:128;index"`
	Resolver string `gorm:"column:resolver;size:128"`
	// Position keeps the ledger listing order per owner.
	Position int `gorm:"column:position;index"`
}

func (DomainRow) TableName() string { return "domains" }

// RecordRow is one record of a name. Absent records have no row.
type RecordRow struct {
	DomainID string `gorm:"column:domain_id;primaryKey;size:128"`
	Key      string `gorm:"column:record_key;primaryKey;size:64"`
	Value    string `gorm:"column:value;type:text"`
}

func (RecordRow) TableName() string { return "domain_records" }

// ReverseRow maps an address to its primary name.
type ReverseRow struct {
	Address string `gorm:"column:address;primaryKey;size:128"`
	Name    string `gorm:"column:name;size:128"`
}

func (ReverseRow) TableName() string { return "reverse_records" }

// schema lists the columns each table must have.
var schema = map[string][]string{
	"domains":         {"id", "name", "owner", "resolver", "position"},
	"domain_records":  {"domain_id", "record_key", "value"},
	"reverse_records": {"address", "name"},
}
