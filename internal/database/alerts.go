package database

import (
	"database/sql"
	"errors"
	"fmt"

	"crypto-telegram-bot/internal/alert"
	"crypto-telegram-bot/internal/types"
)

// LoadDocument reads the JSON document of ns. found is false when no row exists.
func (db *DB) LoadDocument(ns types.Namespace) (types.Alerts, bool, error) {
	query := `SELECT body FROM alert_documents WHERE name = ?;`

	var body string
	err := db.conn.QueryRow(query, ns.DocumentName()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s: %w", ns.DocumentName(), err)
	}

	alerts, err := alert.DecodeDocument([]byte(body))
	if err != nil {
		return nil, true, fmt.Errorf("failed to parse %s: %w", ns.DocumentName(), err)
	}
	return alerts, true, nil
}

// SaveDocument replaces the JSON document of ns.
func (db *DB) SaveDocument(ns types.Namespace, alerts types.Alerts) error {
	body, err := alert.EncodeDocument(alerts)
	if err != nil {
		return err
	}

	query := `
	INSERT OR REPLACE INTO alert_documents (name, body, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP);`
	if _, err := db.conn.Exec(query, ns.DocumentName(), string(body)); err != nil {
		return fmt.Errorf("failed to save %s: %w", ns.DocumentName(), err)
	}
	return nil
}
