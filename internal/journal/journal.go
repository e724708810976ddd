package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"onionbot/internal/classifier"
	"onionbot/internal/services"
	"onionbot/internal/session"
	"onionbot/internal/telemetry"
)

// Journal is the SQLite index of meta records.
type Journal struct {
	db   *sql.DB
	path string
}

// Entry is one indexed meta record.
type Entry struct {
	ID            string
	Session       string
	MeasurementID int
	TimeStamp     string
	ActiveLabel   string
	MetaPath      string
	CameraPath    string
	ThermalPath   string
	Persisted     bool
	Uploaded      bool
	CreatedAt     time.Time
	Body          json.RawMessage
}

// Record decodes the stored meta record.
func (e Entry) Record() (telemetry.MetaRecord, error) {
	var record telemetry.MetaRecord
	if err := json.Unmarshal(e.Body, &record); err != nil {
		return telemetry.MetaRecord{}, fmt.Errorf("decode record %s: %w", e.ID, err)
	}
	return record, nil
}

// ClassificationEntry is one completed classification job.
type ClassificationEntry struct {
	ID          int64
	ImagePath   string
	Aggregation classifier.Aggregation
	CompletedAt time.Time
}

// Open creates or opens the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	j := &Journal{db: db, path: path}
	if err := j.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the database file path.
func (j *Journal) Path() string { return j.path }

// RecordMeta indexes a composed record. Re-recording an id replaces it.
func (j *Journal) RecordMeta(ctx context.Context, record telemetry.MetaRecord, paths session.FilePathSet, persisted bool) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	attrs := record.Attributes
	_, err = j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO records (
            id, session, measurement_id, time_stamp, active_label,
            meta_path, camera_path, thermal_path, persisted, uploaded, created_at, body
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		record.ID,
		attrs.SessionName,
		attrs.MeasurementID,
		attrs.TimeStamp,
		attrs.ActiveLabel,
		nullableString(paths.Meta),
		nullableString(paths.Camera),
		nullableString(paths.Thermal),
		boolToInt(persisted),
		time.Now().UTC().Format(time.RFC3339Nano),
		string(body),
	)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "record meta", record.ID, err)
	}
	return nil
}

// LatestMeta returns the newest record of sessionName, or of any session
// when sessionName is empty. It returns nil when nothing is recorded.
func (j *Journal) LatestMeta(ctx context.Context, sessionName string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM records`
	args := []any{}
	if sessionName != "" {
		query += ` WHERE session = ?`
		args = append(args, sessionName)
	}
	query += ` ORDER BY rowid DESC LIMIT 1`

	entry, err := scanEntry(j.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest meta: %w", err)
	}
	return entry, nil
}

// ListSession returns every record of a session ordered by measurement id.
func (j *Journal) ListSession(ctx context.Context, sessionName string) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM records WHERE session = ? ORDER BY measurement_id`, sessionName)
	if err != nil {
		return nil, fmt.Errorf("list session: %w", err)
	}
	return collectEntries(rows)
}

// PendingUploads returns persisted records not yet uploaded, oldest first.
func (j *Journal) PendingUploads(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM records WHERE persisted = 1 AND uploaded = 0 ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending uploads: %w", err)
	}
	return collectEntries(rows)
}

// MarkUploaded flags a record as uploaded.
func (j *Journal) MarkUploaded(ctx context.Context, id string) error {
	res, err := j.db.ExecContext(ctx, `UPDATE records SET uploaded = 1 WHERE id = ?`, id)
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "mark uploaded", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return services.Wrap(services.ErrNotFound, "journal", "mark uploaded", id, nil)
	}
	return nil
}

// RecordClassification stores a completed job's aggregation.
func (j *Journal) RecordClassification(ctx context.Context, imagePath string, agg classifier.Aggregation) error {
	if agg == nil {
		agg = classifier.Aggregation{}
	}
	data, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("encode aggregation: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		`INSERT INTO classifications (image_path, aggregation, completed_at) VALUES (?, ?, ?)`,
		imagePath, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return services.Wrap(services.ErrPersistence, "journal", "record classification", imagePath, err)
	}
	return nil
}

// RecentClassifications returns up to limit jobs, newest first.
func (j *Journal) RecentClassifications(ctx context.Context, limit int) ([]ClassificationEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, image_path, aggregation, completed_at FROM classifications ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent classifications: %w", err)
	}
	defer rows.Close()

	var out []ClassificationEntry
	for rows.Next() {
		var (
			entry        ClassificationEntry
			aggregation  string
			completedRaw string
		)
		if err := rows.Scan(&entry.ID, &entry.ImagePath, &aggregation, &completedRaw); err != nil {
			return nil, fmt.Errorf("scan classification: %w", err)
		}
		if err := json.Unmarshal([]byte(aggregation), &entry.Aggregation); err != nil {
			return nil, fmt.Errorf("decode aggregation %d: %w", entry.ID, err)
		}
		entry.CompletedAt = parseTime(completedRaw)
		out = append(out, entry)
	}
	return out, rows.Err()
}
