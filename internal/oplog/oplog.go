// Package oplog persists an audit trail of stamping operations and detects
// repeat operations so the caller can demand a reprint reason.
package oplog

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os/user"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Operation types.
const (
	OpDownload = "download"
	OpPrint    = "print"
)

// Operation identifies one user-triggered batch for duplicate detection.
// Two operations with the same hash are considered repeats regardless of
// template selection order.
type Operation struct {
	TimePoint      string
	CenterCode     string
	HospitalNumber string
	Templates      []string
	Type           string
	Merge          bool
}

// Hash returns the operation's SHA-256 fingerprint over a canonical,
// order-independent composite of its fields.
func (o Operation) Hash() string {
	sorted := append([]string(nil), o.Templates...)
	sort.Strings(sorted)

	composite := struct {
		CenterCode     string   `json:"center_code"`
		HospitalNumber string   `json:"hospital_number"`
		MergeFlag      bool     `json:"merge_flag"`
		OperationType  string   `json:"operation_type"`
		PDFFiles       []string `json:"pdf_files"`
		TimePoint      string   `json:"time_point"`
	}{o.CenterCode, o.HospitalNumber, o.Merge, o.Type, sorted, o.TimePoint}

	b, _ := json.Marshal(composite)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Record is one row of the audit trail.
type Record struct {
	ID            int64
	BatchID       string
	Timestamp     time.Time
	Operation     Operation
	IsDuplicate   bool
	ReprintReason string
	Username      string
	OutputPath    string
}

// Store is the SQLite-backed operation log.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the operation log database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation log: %w", err)
	}
	// One writer at a time; the tool is single-threaded anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	// journal_mode returns a result row, so it cannot ride along in Exec.
	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS operations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			batch_id TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			operation_type TEXT NOT NULL,
			time_point TEXT NOT NULL,
			center_code TEXT NOT NULL,
			hospital_number TEXT NOT NULL,
			pdf_files TEXT NOT NULL,
			merge_flag INTEGER NOT NULL,
			is_duplicate INTEGER NOT NULL,
			reprint_reason TEXT,
			username TEXT,
			operation_hash TEXT NOT NULL,
			file_count INTEGER NOT NULL,
			output_path TEXT
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_operation_hash ON operations(operation_hash);
		CREATE INDEX IF NOT EXISTS idx_hospital_number ON operations(hospital_number);
		CREATE INDEX IF NOT EXISTS idx_timestamp ON operations(timestamp);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize operation log schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckDuplicate returns the most recent record matching op's hash, or nil
// when the operation has not been performed before.
func (s *Store) CheckDuplicate(op Operation) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT id, batch_id, timestamp, operation_type, time_point, center_code,
		       hospital_number, pdf_files, merge_flag, is_duplicate,
		       COALESCE(reprint_reason, ''), COALESCE(username, ''), COALESCE(output_path, '')
		FROM operations
		WHERE operation_hash = ?
		ORDER BY timestamp DESC
		LIMIT 1`, op.Hash())

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query for duplicate operation: %w", err)
	}
	return rec, nil
}

// Record appends op to the audit trail. A repeat of an already-recorded
// operation updates the existing row in place with the new timestamp and
// reprint reason instead of inserting a second row.
func (s *Store) Record(op Operation, batchID string, isDuplicate bool, reprintReason, outputPath string) error {
	sorted := append([]string(nil), op.Templates...)
	sort.Strings(sorted)
	files, err := json.Marshal(sorted)
	if err != nil {
		return fmt.Errorf("failed to encode template list: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO operations (
			batch_id, timestamp, operation_type, time_point, center_code,
			hospital_number, pdf_files, merge_flag, is_duplicate,
			reprint_reason, username, operation_hash, file_count, output_path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(operation_hash) DO UPDATE SET
			batch_id = excluded.batch_id,
			timestamp = excluded.timestamp,
			is_duplicate = 1,
			reprint_reason = excluded.reprint_reason,
			output_path = excluded.output_path`,
		batchID,
		time.Now().Format(time.RFC3339),
		op.Type,
		op.TimePoint,
		op.CenterCode,
		op.HospitalNumber,
		string(files),
		boolToInt(op.Merge),
		boolToInt(isDuplicate),
		reprintReason,
		currentUsername(),
		op.Hash(),
		len(op.Templates),
		outputPath,
	)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT id, batch_id, timestamp, operation_type, time_point, center_code,
		       hospital_number, pdf_files, merge_flag, is_duplicate,
		       COALESCE(reprint_reason, ''), COALESCE(username, ''), COALESCE(output_path, '')
		FROM operations
		ORDER BY timestamp DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operation record: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var (
		rec       Record
		ts        string
		files     string
		mergeFlag int
		dupFlag   int
	)
	err := sc.Scan(
		&rec.ID, &rec.BatchID, &ts,
		&rec.Operation.Type, &rec.Operation.TimePoint, &rec.Operation.CenterCode,
		&rec.Operation.HospitalNumber, &files, &mergeFlag, &dupFlag,
		&rec.ReprintReason, &rec.Username, &rec.OutputPath,
	)
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
		rec.Timestamp = t
	}
	if jerr := json.Unmarshal([]byte(files), &rec.Operation.Templates); jerr != nil {
		return nil, fmt.Errorf("corrupt template list in record %d: %w", rec.ID, jerr)
	}
	rec.Operation.Merge = mergeFlag != 0
	rec.IsDuplicate = dupFlag != 0
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}
