// Package peerstore is the persistent (host, port) -> last_seen table
// backed by SQLite, serialized by an internal lock per the specification's
// concurrency model for this store.
package peerstore

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	_ "github.com/mattn/go-sqlite3"
)

// Peer is one row of the peer table.
type Peer struct {
	Host     string
	Port     int
	LastSeen time.Time
}

// Store is the peer table's access point. All operations take the internal
// lock. The *sql.DB is limited to one open connection, which it keeps idle
// between queries rather than opening a new one per query; the explicit
// mutex also serializes SampleOne's read-then-decide logic.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	clock clock.Clock
}

// Open opens (creating if absent) the SQLite database at path and ensures
// the peers table exists.
func Open(path string, c clock.Clock) (*Store, error) {
	if c == nil {
		c = clock.New()
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open peer store: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping peer store: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS peers (
		host TEXT NOT NULL,
		port INTEGER NOT NULL,
		last_seen INTEGER NOT NULL,
		PRIMARY KEY (host, port)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init peer store schema: %w", err)
	}

	return &Store{db: db, clock: c}, nil
}

// Upsert records a sighting of (host, port), stamping last_seen with the
// current UTC instant.
func (s *Store) Upsert(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC().Unix()
	_, err := s.db.Exec(`
		INSERT INTO peers (host, port, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(host, port) DO UPDATE SET last_seen = excluded.last_seen
	`, host, port, now)
	if err != nil {
		return fmt.Errorf("upsert peer %s:%d: %w", host, port, err)
	}
	return nil
}

// List returns every known peer, most recently seen first.
func (s *Store) List() ([]Peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT host, port, last_seen FROM peers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("list peers: %w", err)
	}
	defer rows.Close()

	var peers []Peer
	for rows.Next() {
		var p Peer
		var lastSeen int64
		if err := rows.Scan(&p.Host, &p.Port, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan peer row: %w", err)
		}
		p.LastSeen = time.Unix(lastSeen, 0).UTC()
		peers = append(peers, p)
	}
	return peers, rows.Err()
}

// SampleOne returns one uniformly-random known peer, or false if the table
// is empty.
func (s *Store) SampleOne() (Peer, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT host, port, last_seen FROM peers ORDER BY RANDOM() LIMIT 1`)
	var p Peer
	var lastSeen int64
	if err := row.Scan(&p.Host, &p.Port, &lastSeen); err != nil {
		if err == sql.ErrNoRows {
			return Peer{}, false, nil
		}
		return Peer{}, false, fmt.Errorf("sample peer: %w", err)
	}
	p.LastSeen = time.Unix(lastSeen, 0).UTC()
	return p, true, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
