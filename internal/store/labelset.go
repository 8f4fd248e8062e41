package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signify/internal/labels"
)

// LabelSet is an imported label table.
type LabelSet struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Active    bool           `json:"active"`
	Count     int            `json:"count"`
	CreatedAt time.Time      `json:"created_at"`
	Entries   []labels.Entry `json:"entries,omitempty"`
}

// Table builds a lookup table from the set's entries.
func (ls *LabelSet) Table() (*labels.Table, error) {
	return labels.New(ls.Entries)
}

// LabelRepository stores label sets.
type LabelRepository struct {
	db *sql.DB
}

// Labels returns the label set repository for this store.
func (s *Store) Labels() *LabelRepository {
	return &LabelRepository{db: s.db}
}

// Import stores entries as a new set called name. Duplicate indices keep
// the last entry, matching the file parser.
func (r *LabelRepository) Import(name string, entries []labels.Entry) (*LabelSet, error) {
	table, err := labels.New(entries)
	if err != nil {
		return nil, err
	}

	ls := &LabelSet{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
		Entries:   table.Entries(),
	}
	ls.Count = len(ls.Entries)

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO label_sets (id, name, active, created_at) VALUES (?, ?, 0, ?)`,
		ls.ID, ls.Name, ls.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("insert label set %q: %w", name, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO labels (set_id, class_index, label) VALUES (?, ?, ?)`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, e := range ls.Entries {
		if _, err := stmt.Exec(ls.ID, e.Index, e.Label); err != nil {
			return nil, fmt.Errorf("insert label %d: %w", e.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ls, nil
}

// Get retrieves a set with its entries.
func (r *LabelRepository) Get(id string) (*LabelSet, error) {
	ls := &LabelSet{}
	err := r.db.QueryRow(
		`SELECT s.id, s.name, s.active, s.created_at,
		        (SELECT COUNT(*) FROM labels l WHERE l.set_id = s.id)
		 FROM label_sets s WHERE s.id = ?`,
		id,
	).Scan(&ls.ID, &ls.Name, &ls.Active, &ls.CreatedAt, &ls.Count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	ls.Entries, err = r.entries(id)
	if err != nil {
		return nil, err
	}
	return ls, nil
}

// Active retrieves the active set with its entries, or ErrNotFound.
func (r *LabelRepository) Active() (*LabelSet, error) {
	var id string
	err := r.db.QueryRow(`SELECT id FROM label_sets WHERE active = 1`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r.Get(id)
}

// Activate makes id the only active set.
func (r *LabelRepository) Activate(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE label_sets SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(`UPDATE label_sets SET active = 0 WHERE id != ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// List retrieves all sets without their entries, newest first.
func (r *LabelRepository) List() ([]*LabelSet, error) {
	rows, err := r.db.Query(
		`SELECT s.id, s.name, s.active, s.created_at, COUNT(l.class_index)
		 FROM label_sets s LEFT JOIN labels l ON l.set_id = s.id
		 GROUP BY s.id
		 ORDER BY s.created_at DESC, s.name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*LabelSet
	for rows.Next() {
		ls := &LabelSet{}
		if err := rows.Scan(&ls.ID, &ls.Name, &ls.Active, &ls.CreatedAt, &ls.Count); err != nil {
			return nil, err
		}
		sets = append(sets, ls)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

// Delete removes a set and its entries.
func (r *LabelRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM label_sets WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *LabelRepository) entries(setID string) ([]labels.Entry, error) {
	rows, err := r.db.Query(
		`SELECT class_index, label FROM labels WHERE set_id = ? ORDER BY class_index`,
		setID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []labels.Entry
	for rows.Next() {
		var e labels.Entry
		if err := rows.Scan(&e.Index, &e.Label); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
