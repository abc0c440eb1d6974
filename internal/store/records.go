package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"time"
)

// timeLayout is fixed width so created_at orders correctly as TEXT.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (s *SQLiteStore) AddRecord(ctx context.Context, rec *Record, capacity int, policy EvictionPolicy) (int, error) {
	vecBuf := new(bytes.Buffer)
	if err := binary.Write(vecBuf, binary.LittleEndian, rec.Vector); err != nil {
		return 0, fmt.Errorf("failed to encode vector: %w", err)
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.ID == "" {
		rec.ID = s.newID(rec.CreatedAt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	evicted := 0
	if capacity > 0 {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&count); err != nil {
			return 0, fmt.Errorf("failed to count records: %w", err)
		}
		if count >= capacity {
			var res sql.Result
			switch policy {
			case EvictAll:
				res, err = tx.ExecContext(ctx, `DELETE FROM records`)
			default:
				excess := count + 1 - capacity
				res, err = tx.ExecContext(ctx,
					`DELETE FROM records WHERE id IN (SELECT id FROM records ORDER BY created_at ASC, id ASC LIMIT ?)`,
					excess)
			}
			if err != nil {
				return 0, fmt.Errorf("failed to evict records: %w", err)
			}
			n, _ := res.RowsAffected()
			evicted = int(n)
		}
	}

	query := `INSERT INTO records (id, intent, command, vector, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query, rec.ID, rec.Intent, rec.Command, vecBuf.Bytes(), rec.CreatedAt.Format(timeLayout)); err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit record: %w", err)
	}
	return evicted, nil
}

// ScanRecords returns every record, newest first.
func (s *SQLiteStore) ScanRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, intent, command, vector, created_at FROM records ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) CountRecords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) ClearRecords(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM records`)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var vecBlob []byte
	var createdAt string

	if err := row.Scan(&rec.ID, &rec.Intent, &rec.Command, &vecBlob, &createdAt); err != nil {
		return rec, err
	}

	rec.Vector = make([]float32, len(vecBlob)/4)
	if err := binary.Read(bytes.NewReader(vecBlob), binary.LittleEndian, &rec.Vector); err != nil {
		return rec, fmt.Errorf("failed to decode vector for %s: %w", rec.ID, err)
	}

	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, createdAt)
	}
	if err != nil {
		return rec, fmt.Errorf("failed to parse created_at for %s: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
