package storage

import (
	"database/sql"
	"fmt"
)

// Migration: одна миграция схемы
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.Tx) error
}

// allMigrations: по порядку версий, уже применённые пропускаются
var allMigrations = []Migration{
	{Version: 1, Name: "pos_transactions", Up: migration001POSTransactions},
	{Version: 2, Name: "reconciliation_audit", Up: migration002ReconciliationAudit},
	{Version: 3, Name: "settings", Up: migration003Settings},
	{Version: 4, Name: "pos_transactions_category_key", Up: migration004POSCategoryKey},
}

// runMigrations применяет недостающие миграции, каждую в своей транзакции
func (s *Store) runMigrations() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	for _, m := range allMigrations {
		if applied[m.Version] {
			continue
		}
		s.logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("running migration")

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	applied := make(map[int]bool)

	rows, err := s.db.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, q := range queries {
		if _, err := tx.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// суммы храним TEXT-десятичными, без потерь float
func migration001POSTransactions(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS pos_transactions (
			id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			sale_date TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			product_name TEXT NOT NULL DEFAULT '',
			product_category TEXT NOT NULL DEFAULT '',
			quantity REAL NOT NULL DEFAULT 0,
			total_amount TEXT NOT NULL DEFAULT '0',
			sku_number TEXT NOT NULL DEFAULT '',
			is_voided INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pos_category_date ON pos_transactions(category, sale_date)`,
	})
}

func migration002ReconciliationAudit(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS reconciliation_sessions (
			session_id TEXT PRIMARY KEY,
			category TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			total_invoice_items INTEGER NOT NULL,
			total_pos_records INTEGER NOT NULL,
			matched_count INTEGER NOT NULL,
			invoice_only_count INTEGER NOT NULL,
			pos_only_count INTEGER NOT NULL,
			total_invoice_amount TEXT NOT NULL,
			total_pos_amount TEXT NOT NULL,
			match_rate REAL NOT NULL,
			variance_amount TEXT NOT NULL,
			variance_percentage REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS reconciliation_items (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES reconciliation_sessions(session_id) ON DELETE CASCADE,
			item_partition TEXT NOT NULL,
			invoice_item_id TEXT NOT NULL DEFAULT '',
			pos_record_id TEXT NOT NULL DEFAULT '',
			item_date TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			invoice_amount TEXT,
			pos_amount TEXT,
			match_type TEXT NOT NULL DEFAULT '',
			confidence REAL,
			amount_diff REAL,
			quantity_diff REAL,
			name_similarity REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_session ON reconciliation_items(session_id)`,
	})
}

func migration003Settings(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	})
}

// один и тот же id кассы может прийти в разных категориях: ключ (category, id)
func migration004POSCategoryKey(tx *sql.Tx) error {
	return execAll(tx, []string{
		`CREATE TABLE pos_transactions_v4 (
			id TEXT NOT NULL,
			category TEXT NOT NULL,
			sale_date TEXT NOT NULL,
			customer_name TEXT NOT NULL DEFAULT '',
			product_name TEXT NOT NULL DEFAULT '',
			product_category TEXT NOT NULL DEFAULT '',
			quantity REAL NOT NULL DEFAULT 0,
			total_amount TEXT NOT NULL DEFAULT '0',
			sku_number TEXT NOT NULL DEFAULT '',
			is_voided INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (category, id)
		)`,
		`INSERT INTO pos_transactions_v4
		 SELECT id, category, sale_date, customer_name, product_name, product_category,
		        quantity, total_amount, sku_number, is_voided
		 FROM pos_transactions`,
		`DROP TABLE pos_transactions`,
		`ALTER TABLE pos_transactions_v4 RENAME TO pos_transactions`,
		`CREATE INDEX IF NOT EXISTS idx_pos_category_date ON pos_transactions(category, sale_date)`,
	})
}
