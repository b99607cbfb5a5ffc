// Package sqlstore serves the ledger contract from a SQL mirror of the ledger,
// such as the tables an indexer maintains. Record writes for one name run in a
// single database transaction.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"domain-manager/core/database"
	"domain-manager/core/ledger"
	"domain-manager/core/names"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	_ ledger.Client      = (*Store)(nil)
	_ ledger.BatchWriter = (*Store)(nil)
)

// Store is a gorm backed ledger.
type Store struct {
	db *gorm.DB
}

// New creates a store on db. Call Migrate or Verify before serving.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the mirror tables.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&DomainRow{}, &RecordRow{}, &ReverseRow{}); err != nil {
		return fmt.Errorf("failed to migrate ledger tables: %w", err)
	}
	return nil
}

// TableReport is the schema check result of one table.
type TableReport struct {
	Status         string   `json:"status"`
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// Verify checks an existing schema against the models without altering it.
func (s *Store) Verify() (map[string]TableReport, error) {
	tables := make([]string, 0, len(schema))
	for t := range schema {
		tables = append(tables, t)
	}
	sort.Strings(tables)

	report := make(map[string]TableReport, len(schema))
	var broken []string
	for _, table := range tables {
		missing, err := database.MissingColumns(s.db, table, schema[table]...)
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			report[table] = TableReport{Status: "error", MissingColumns: missing}
			broken = append(broken, table)
			continue
		}
		report[table] = TableReport{Status: "ok"}
	}
	if len(broken) > 0 {
		return report, fmt.Errorf("ledger schema mismatch in %v", broken)
	}
	return report, nil
}

// PutDomain inserts or updates a name, appending it to its owner's listing.
func (s *Store) PutDomain(ctx context.Context, d names.Domain) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pos int64
		if err := tx.Model(&DomainRow{}).Where("owner = ?", string(names.NormalizeAddress(string(d.Owner)))).Count(&pos).Error; err != nil {
			return err
		}
		row := DomainRow{
			ID:       string(d.ID),
			Name:     d.Name,
			Owner:    string(names.NormalizeAddress(string(d.Owner))),
			Resolver: d.Resolver,
			Position: int(pos),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "owner", "resolver"}),
		}).Create(&row).Error
	})
}

// PutReverse sets the primary name of an address.
func (s *Store) PutReverse(ctx context.Context, addr names.Address, name names.EntityID) error {
	row := ReverseRow{Address: string(names.NormalizeAddress(string(addr))), Name: string(name)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) CountOwned(ctx context.Context, account names.Address) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&DomainRow{}).Where("owner = ?", string(account)).Count(&n).Error
	if err != nil {
		return 0, names.Classify("countOwned", err)
	}
	return int(n), nil
}

func (s *Store) ListOwned(ctx context.Context, account names.Address, offset, limit int) ([]names.EntityID, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&DomainRow{}).
		Where("owner = ?", string(account)).
		Order("position, id").
		Offset(offset).Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, names.Classify("listOwned", err)
	}
	out := make([]names.EntityID, len(ids))
	for i, id := range ids {
		out[i] = names.EntityID(id)
	}
	return out, nil
}

func (s *Store) GetRecords(ctx context.Context, id names.EntityID) ([]names.Record, error) {
	var rows []RecordRow
	if err := s.db.WithContext(ctx).Where("domain_id = ?", string(id)).Find(&rows).Error; err != nil {
		return nil, names.Classify("getRecords", err)
	}
	out := make([]names.Record, len(rows))
	for i, r := range rows {
		out[i] = names.Record{Key: names.RecordKey(r.Key), Value: r.Value}
	}
	names.SortRecords(out)
	return out, nil
}

func (s *Store) SetRecord(ctx context.Context, id names.EntityID, key names.RecordKey, value *string) error {
	return s.SetRecords(ctx, id, []ledger.Write{{Key: key, Value: value}})
}

// SetRecords applies every write or none.
func (s *Store) SetRecords(ctx context.Context, id names.EntityID, writes []ledger.Write) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&DomainRow{}).Where("id = ?", string(id)).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return names.NewError(names.KindRemoteRejected, "setRecords", fmt.Sprintf("unknown name %s", id), nil)
		}
		for _, w := range writes {
			if err := applyWrite(tx, id, w); err != nil {
				return err
			}
		}
		return nil
	})
	return names.Classify("setRecords", err)
}

func applyWrite(tx *gorm.DB, id names.EntityID, w ledger.Write) error {
	if w.Value == nil {
		return tx.Where("domain_id = ? AND record_key = ?", string(id), string(w.Key)).Delete(&RecordRow{}).Error
	}
	row := RecordRow{DomainID: string(id), Key: string(w.Key), Value: *w.Value}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "domain_id"}, {Name: "record_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
}

func (s *Store) ReverseLookup(ctx context.Context, addr names.Address) (names.EntityID, bool, error) {
	var row ReverseRow
	err := s.db.WithContext(ctx).Where("address = ?", string(addr)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, names.Classify("reverseLookup", err)
	}
	return names.EntityID(row.Name), true, nil
}

func (s *Store) GetDomain(ctx context.Context, id names.EntityID) (names.Domain, error) {
	var row DomainRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return names.Domain{}, names.NewError(names.KindRemoteRejected, "getDomain", fmt.Sprintf("unknown name %s", id), nil)
	}
	if err != nil {
		return names.Domain{}, names.Classify("getDomain", err)
	}
	return names.Domain{ID: names.EntityID(row.ID), Name: row.Name, Owner: names.Address(row.Owner), Resolver: row.Resolver}, nil
}
