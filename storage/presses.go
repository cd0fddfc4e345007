package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Press is one dispatched key press: the key code, the action it resolved
// to, and whether the spawn succeeded.
type Press struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Code         uint16    `json:"code"`
	Kind         string    `json:"kind"`
	Value        string    `json:"value"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// SavePress records a dispatched press
func (db *DB) SavePress(p *Press) error {
	query := `
		INSERT INTO presses (code, kind, value, success, error_message)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query, p.Code, p.Kind, p.Value, p.Success, p.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to save press: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	p.ID = id
	return nil
}

// GetPresses retrieves dispatch history with pagination, newest first
func (db *DB) GetPresses(limit, offset int) ([]Press, error) {
	query := `
		SELECT id, timestamp, code, kind, value, success, error_message
		FROM presses
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query presses: %w", err)
	}
	defer rows.Close()

	var presses []Press
	for rows.Next() {
		var p Press
		var errorMessage sql.NullString

		err := rows.Scan(&p.ID, &p.Timestamp, &p.Code, &p.Kind, &p.Value, &p.Success, &errorMessage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan press: %w", err)
		}

		if errorMessage.Valid {
			p.ErrorMessage = errorMessage.String
		}

		presses = append(presses, p)
	}

	return presses, rows.Err()
}

// GetPressCount returns the total number of recorded presses
func (db *DB) GetPressCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM presses").Scan(&count)
	return count, err
}

// DeletePress deletes a history entry by ID
func (db *DB) DeletePress(id int64) error {
	query := `DELETE FROM presses WHERE id = ?`

	result, err := db.conn.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete press: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("press not found")
	}

	return nil
}

// ClearPresses deletes the entire dispatch history
func (db *DB) ClearPresses() error {
	if _, err := db.conn.Exec("DELETE FROM presses"); err != nil {
		return fmt.Errorf("failed to clear presses: %w", err)
	}
	return nil
}

// DailyStats represents dispatch statistics for a single day
type DailyStats struct {
	Date         string `json:"date"`
	TotalPresses int    `json:"total_presses"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_presses,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) as failure_count
		FROM presses
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.TotalPresses, &s.SuccessCount, &s.FailureCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// TopKey represents how often one key code fired in a period
type TopKey struct {
	Code         uint16 `json:"code"`
	TotalPresses int    `json:"total_presses"`
}

// GetTopKeys retrieves the most used key codes for the last N days
func (db *DB) GetTopKeys(days, limit int) ([]TopKey, error) {
	query := `
		SELECT code, COUNT(*) as total_presses
		FROM presses
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY code
		ORDER BY total_presses DESC
		LIMIT ?
	`

	rows, err := db.conn.Query(query, days, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top keys: %w", err)
	}
	defer rows.Close()

	var keys []TopKey
	for rows.Next() {
		var k TopKey
		if err := rows.Scan(&k.Code, &k.TotalPresses); err != nil {
			return nil, fmt.Errorf("failed to scan top key: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}
