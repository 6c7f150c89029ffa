package directory

import (
	"database/sql"
	"time"

	"github.com/pairchat/pairchat/internal/bus"
)

// InsertClient stores a new identity record and publishes insert.clients.
func (db *DB) InsertClient(c *Client) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	_, err := db.Exec(`
		INSERT INTO clients (id, name, email, mobile, password, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Mobile, c.Password, c.CreatedAt)
	if err != nil {
		return err
	}
	db.publish("insert.clients", c)
	return nil
}

// GetClient returns a client by id, or nil if absent.
func (db *DB) GetClient(id string) (*Client, error) {
	var c Client
	err := db.QueryRow(`
		SELECT id, name, email, mobile, password, created_at
		FROM clients WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Mobile, &c.Password, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindClientByLogin returns the client whose email or mobile matches the
// given value and whose stored password equals password, or nil if none.
// Passwords are compared as stored; hashing is the store owner's concern.
func (db *DB) FindClientByLogin(emailOrMobile, password string) (*Client, error) {
	var c Client
	err := db.QueryRow(`
		SELECT id, name, email, mobile, password, created_at
		FROM clients
		WHERE (email = ? OR mobile = ?) AND password = ?`,
		emailOrMobile, emailOrMobile, password).
		Scan(&c.ID, &c.Name, &c.Email, &c.Mobile, &c.Password, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients returns all clients except excludeID, ordered by name.
func (db *DB) ListClients(excludeID string) ([]Client, error) {
	rows, err := db.Query(`
		SELECT id, name, email, mobile, password, created_at
		FROM clients WHERE id != ? ORDER BY name ASC`, excludeID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Mobile, &c.Password, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// SearchClients returns clients whose name contains term (case-insensitive),
// excluding excludeID.
func (db *DB) SearchClients(term, excludeID string) ([]Client, error) {
	rows, err := db.Query(`
		SELECT id, name, email, mobile, password, created_at
		FROM clients
		WHERE id != ? AND name LIKE '%' || ? || '%' COLLATE NOCASE
		ORDER BY name ASC`, excludeID, term)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Mobile, &c.Password, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (db *DB) publish(kind string, payload any) {
	if db.bus == nil {
		return
	}
	db.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}
