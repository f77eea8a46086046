package store

import (
	"database/sql"
	"fmt"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

const unitColumns = "path, hash, rules_hash, changed, output, lines, sites, rewritten, last_processed"

// UpsertUnit inserts u or replaces the row with the same path.
func (s *Store) UpsertUnit(u *Unit) error {
	return upsertUnit(s.db, u)
}

func upsertUnit(db execer, u *Unit) error {
	_, err := db.Exec(
		`INSERT INTO units (`+unitColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			rules_hash = excluded.rules_hash,
			changed = excluded.changed,
			output = excluded.output,
			lines = excluded.lines,
			sites = excluded.sites,
			rewritten = excluded.rewritten,
			last_processed = excluded.last_processed`,
		u.Path, u.Hash, u.RulesHash, u.Changed, u.Output, marshalLines(u.Lines),
		u.Sites, u.Rewritten, u.LastProcessed,
	)
	if err != nil {
		return fmt.Errorf("upsert unit %s: %w", u.Path, err)
	}
	return nil
}

// UnitByPath returns the cached unit for path, or nil when there is none.
func (s *Store) UnitByPath(path string) (*Unit, error) {
	row := s.db.QueryRow("SELECT "+unitColumns+" FROM units WHERE path = ?", path)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("unit by path: %w", err)
	}
	return u, nil
}

// Units returns every cached unit ordered by path.
func (s *Store) Units() ([]*Unit, error) {
	rows, err := s.db.Query("SELECT " + unitColumns + " FROM units ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()
	var units []*Unit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// DeleteUnits removes the rows for paths. Unknown paths are ignored.
func (s *Store) DeleteUnits(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.db.Exec(
		"DELETE FROM units WHERE path IN ("+placeholderList(len(paths))+")",
		stringsToArgs(paths)...,
	)
	if err != nil {
		return fmt.Errorf("delete units: %w", err)
	}
	return nil
}

// PruneStale removes units whose rules hash differs from rulesHash and
// returns how many rows were dropped.
func (s *Store) PruneStale(rulesHash string) (int64, error) {
	res, err := s.db.Exec("DELETE FROM units WHERE rules_hash != ?", rulesHash)
	if err != nil {
		return 0, fmt.Errorf("prune stale units: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUnit(sc scanner) (*Unit, error) {
	u := &Unit{}
	var lines string
	var last sql.NullTime
	if err := sc.Scan(&u.Path, &u.Hash, &u.RulesHash, &u.Changed, &u.Output, &lines,
		&u.Sites, &u.Rewritten, &last); err != nil {
		return nil, err
	}
	u.Lines = unmarshalLines(lines)
	if last.Valid {
		u.LastProcessed = last.Time
	}
	return u, nil
}
