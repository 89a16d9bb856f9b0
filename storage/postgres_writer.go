package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"psa-scraper/models"
)

const recordColumns = 11

// PostgresWriter persists dataset records to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	return NewPostgresWriterFromDB(db)
}

// NewPostgresWriterFromDB wraps an open handle and migrates the schema.
func NewPostgresWriterFromDB(db *sql.DB) (*PostgresWriter, error) {
	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS dataset_records (
			id           SERIAL PRIMARY KEY,
			title        TEXT          NOT NULL,
			condition    TEXT          NOT NULL DEFAULT 'N/A',
			price        TEXT          NOT NULL DEFAULT 'N/A',
			price_value  NUMERIC(12,2) NOT NULL DEFAULT 0,
			url          TEXT          UNIQUE NOT NULL,
			image_count  INTEGER       NOT NULL DEFAULT 0,
			image_folder TEXT          NOT NULL DEFAULT '',
			grade        SMALLINT      NOT NULL DEFAULT 0,
			page_grade   SMALLINT      NOT NULL DEFAULT 0,
			filter_grade SMALLINT      NOT NULL DEFAULT 0,
			scraped_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_dataset_records_grade ON dataset_records(grade);
		CREATE INDEX IF NOT EXISTS idx_dataset_records_price ON dataset_records(price_value);
	`)
	return err
}

// Write upserts records in batches. A listing scraped again replaces its
// previous row.
func (pw *PostgresWriter) Write(records []*models.DatasetRecord) error {
	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.DatasetRecord) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*recordColumns)

	for idx, r := range batch {
		base := idx * recordColumns
		placeholders := make([]string, recordColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.Title, r.Condition, r.Price, r.PriceValue, r.URL, r.ImageCount,
			r.ImageFolder, r.Grade, r.PageGrade, r.FilterGrade, r.ScrapedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO dataset_records (title, condition, price, price_value, url, image_count,
			image_folder, grade, page_grade, filter_grade, scraped_at)
		VALUES %s
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			condition = EXCLUDED.condition,
			price = EXCLUDED.price,
			price_value = EXCLUDED.price_value,
			image_count = EXCLUDED.image_count,
			image_folder = EXCLUDED.image_folder,
			grade = EXCLUDED.grade,
			page_grade = EXCLUDED.page_grade,
			filter_grade = EXCLUDED.filter_grade,
			scraped_at = EXCLUDED.scraped_at
	`, strings.Join(valueStrings, ","))

	if _, err := pw.db.Exec(query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert batch: %w", err)
	}
	return nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored records, used by the report.
func (pw *PostgresWriter) FetchAll() ([]*models.DatasetRecord, error) {
	rows, err := pw.db.Query(`
		SELECT id, title, condition, price, price_value, url, image_count,
			image_folder, grade, page_grade, filter_grade, scraped_at
		FROM dataset_records
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var records []*models.DatasetRecord
	for rows.Next() {
		r := &models.DatasetRecord{}
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Condition, &r.Price, &r.PriceValue, &r.URL, &r.ImageCount,
			&r.ImageFolder, &r.Grade, &r.PageGrade, &r.FilterGrade, &r.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
