package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Label sets - one imported label table each
		`CREATE TABLE IF NOT EXISTS label_sets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			active INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Labels - class index to display label, per set
		`CREATE TABLE IF NOT EXISTS labels (
			set_id TEXT NOT NULL REFERENCES label_sets(id) ON DELETE CASCADE,
			class_index INTEGER NOT NULL CHECK(class_index >= 0),
			label TEXT NOT NULL,
			PRIMARY KEY (set_id, class_index)
		)`,

		// Settings - recognition tuning as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_labels_set_id ON labels(set_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
