// Package session keeps the message-to-sender records of the latest run so a
// follow-up action can target every message of a chosen sender. The data lives
// in an in-memory SQLite database and is gone when the process exits.
package session

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"sendertally/internal/model"

	_ "modernc.org/sqlite"
)

// Store indexes run records by sender address.
type Store struct {
	db *sql.DB
}

// Open creates an empty in-memory store.
func Open() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// Every pooled connection to :memory: would get its own database.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS records (
	seq     INTEGER PRIMARY KEY,
	id      TEXT NOT NULL UNIQUE,
	address TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS records_address ON records (address);
`
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "migrate schema")
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Replace drops whatever the previous run left and stores records in order.
func (s *Store) Replace(ctx context.Context, records []model.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return errors.Wrap(err, "clear records")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, address) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET address = excluded.address
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if r.Address == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, string(r.Ref), r.Address); err != nil {
			return errors.Wrapf(err, "insert record %s", r.Ref)
		}
	}
	return tx.Commit()
}

// MessageIDsFrom returns the ids of every stored message sent by one of
// addresses, in the order the run resolved them. Addresses are matched in
// their normalized (lowercase) form.
func (s *Store) MessageIDsFrom(ctx context.Context, addresses []string) ([]model.MessageRef, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(addresses))
	args := make([]any, len(addresses))
	for i, a := range addresses {
		placeholders[i] = "?"
		args[i] = strings.ToLower(strings.TrimSpace(a))
	}
	query := "SELECT id FROM records WHERE address IN (" + strings.Join(placeholders, ",") + ") ORDER BY seq"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []model.MessageRef
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, model.MessageRef(id))
	}
	return ids, rows.Err()
}

// Forget removes ids, typically after they were trashed.
func (s *Store) Forget(ctx context.Context, ids []model.MessageRef) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM records WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, string(id)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}
