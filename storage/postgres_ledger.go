package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"fhrs-tracker/models"
	"fhrs-tracker/utils"
)

// PostgresLedger mirrors new-record rows into PostgreSQL for downstream
// consumption. It is insert-only: the table is never cleared or rewritten.
type PostgresLedger struct {
	db *sql.DB
}

// NewPostgresLedger opens a connection, runs schema migrations and returns
// a ready-to-use PostgresLedger.
func NewPostgresLedger(dsn string, logger *utils.Logger) (*PostgresLedger, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: 2 * time.Second, Logger: logger}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pl := &PostgresLedger{db: db}
	if err := pl.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pl, nil
}

func (pl *PostgresLedger) migrate() error {
	_, err := pl.db.Exec(`
		CREATE TABLE IF NOT EXISTS new_establishments (
			id             TEXT PRIMARY KEY,
			date_added     DATE NOT NULL,
			name           TEXT NOT NULL DEFAULT '',
			category       VARCHAR(32) NOT NULL,
			business_type  TEXT NOT NULL DEFAULT '',
			region         TEXT NOT NULL DEFAULT '',
			postcode       TEXT NOT NULL DEFAULT '',
			rating_value   TEXT NOT NULL DEFAULT '',
			rating_date    TEXT NOT NULL DEFAULT '',
			address        TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_new_establishments_date     ON new_establishments(date_added);
		CREATE INDEX IF NOT EXISTS idx_new_establishments_category ON new_establishments(category);
		CREATE INDEX IF NOT EXISTS idx_new_establishments_region   ON new_establishments(region);
	`)
	return err
}

// Append batch-inserts the rows. Rows whose identifier already exists are
// left untouched, so replays never duplicate.
func (pl *PostgresLedger) Append(rows []models.LedgerRow) error {
	const batchSize = 50
	for i := 0; i < len(rows); i += batchSize {
		end := i + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := pl.insertBatch(rows[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pl *PostgresLedger) insertBatch(batch []models.LedgerRow) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*10)

	for idx, row := range batch {
		base := idx * 10
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10))
		r := row.Record
		valueArgs = append(valueArgs,
			r.ID, row.DateAdded, r.Name, string(row.Category), r.BusinessType,
			r.Region, r.PostCode, r.RatingValue, r.RatingDate, r.SingleLineAddress())
	}

	query := fmt.Sprintf(`
		INSERT INTO new_establishments
			(id, date_added, name, category, business_type, region, postcode, rating_value, rating_date, address)
		VALUES %s
		ON CONFLICT (id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	if _, err := pl.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (pl *PostgresLedger) Close() error {
	return pl.db.Close()
}
