package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/npezzotti/rocketgate/internal/types"
)

func (db *SQLiteStateRepository) SaveSession(session types.Session) error {
	profile, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = db.conn.Exec(
		"INSERT INTO session (id, auth_token, user_id, profile) VALUES (1, $1, $2, $3) "+
			"ON CONFLICT (id) DO UPDATE SET auth_token = $1, user_id = $2, profile = $3",
		session.AuthToken,
		session.UserID,
		string(profile),
	)
	return err
}

func (db *SQLiteStateRepository) LoadSession() (types.Session, bool, error) {
	row := db.conn.QueryRow(
		"SELECT auth_token, user_id, profile FROM session WHERE id = 1",
	)

	var (
		session types.Session
		profile string
	)
	err := row.Scan(&session.AuthToken, &session.UserID, &profile)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Session{}, false, nil
	}
	if err != nil {
		return types.Session{}, false, err
	}

	if profile != "" && profile != "null" {
		var p types.Profile
		if err := json.Unmarshal([]byte(profile), &p); err != nil {
			return types.Session{}, false, fmt.Errorf("decode profile: %w", err)
		}
		session.User = &p
	}

	return session, true, nil
}

func (db *SQLiteStateRepository) DeleteSession() error {
	_, err := db.conn.Exec("DELETE FROM session WHERE id = 1")
	return err
}

func (db *SQLiteStateRepository) SetDoNotDisturb(enabled bool) error {
	_, err := db.conn.Exec(
		"INSERT INTO preferences (id, do_not_disturb) VALUES (1, $1) "+
			"ON CONFLICT (id) DO UPDATE SET do_not_disturb = $1",
		enabled,
	)
	return err
}

func (db *SQLiteStateRepository) GetDoNotDisturb() (bool, error) {
	row := db.conn.QueryRow("SELECT do_not_disturb FROM preferences WHERE id = 1")

	var enabled bool
	err := row.Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return enabled, err
}

func (db *SQLiteStateRepository) AddDismissals(dismissals []Dismissal) error {
	if len(dismissals) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, d := range dismissals {
		if _, err := tx.Exec(
			"INSERT INTO dismissals (room_id, unread) VALUES ($1, $2) "+
				"ON CONFLICT (room_id) DO UPDATE SET unread = $2",
			d.RoomID,
			d.Unread,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *SQLiteStateRepository) RemoveDismissal(roomID string) error {
	_, err := db.conn.Exec("DELETE FROM dismissals WHERE room_id = $1", roomID)
	return err
}

func (db *SQLiteStateRepository) ListDismissals() ([]Dismissal, error) {
	rows, err := db.conn.Query("SELECT room_id, unread FROM dismissals")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dismissals []Dismissal
	for rows.Next() {
		var d Dismissal
		if err := rows.Scan(&d.RoomID, &d.Unread); err != nil {
			return nil, err
		}
		dismissals = append(dismissals, d)
	}

	return dismissals, rows.Err()
}

func (db *SQLiteStateRepository) ClearDismissals() error {
	_, err := db.conn.Exec("DELETE FROM dismissals")
	return err
}
