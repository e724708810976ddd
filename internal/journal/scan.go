package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const entryColumns = "id, session, measurement_id, time_stamp, active_label, meta_path, camera_path, thermal_path, persisted, uploaded, created_at, body"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		metaPath    sql.NullString
		cameraPath  sql.NullString
		thermalPath sql.NullString
		persisted   int
		uploaded    int
		createdRaw  string
		body        string
	)
	if err := scanner.Scan(
		&entry.ID,
		&entry.Session,
		&entry.MeasurementID,
		&entry.TimeStamp,
		&entry.ActiveLabel,
		&metaPath,
		&cameraPath,
		&thermalPath,
		&persisted,
		&uploaded,
		&createdRaw,
		&body,
	); err != nil {
		return nil, err
	}
	entry.MetaPath = metaPath.String
	entry.CameraPath = cameraPath.String
	entry.ThermalPath = thermalPath.String
	entry.Persisted = persisted != 0
	entry.Uploaded = uploaded != 0
	entry.CreatedAt = parseTime(createdRaw)
	entry.Body = json.RawMessage(body)
	return &entry, nil
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
