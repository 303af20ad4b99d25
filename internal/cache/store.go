// Package cache persists session lists, per-session message arrays,
// scroll offsets, and the model selection in a single sqlite key/value
// table. Reads are best effort: any failure, expired entry, or
// corrupted payload degrades to a miss so the caller falls back to the
// backend.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"lumina-cli/internal/chat"
)

// TTL bounds how long session and message entries are served. Scroll
// offsets and the model selection do not expire.
const TTL = 2 * time.Hour

// ErrMiss is returned for any unusable entry: absent, expired, or
// corrupt.
var ErrMiss = errors.New("cache miss")

// Store is a sqlite-backed key/value cache. One row per namespaced
// key; the ts column records the write time for expiry checks.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

// Open creates or opens the cache database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache database ping failed: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		ts    INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &Store{db: db, log: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func sessionsKey(userID string) string {
	return "sessions:" + userID
}

func messagesKey(userID, sessionID string) string {
	return "messages:" + userID + ":" + sessionID
}

func scrollKey(userID, sessionID string) string {
	return "scroll:" + userID + ":" + sessionID
}

func modelKey(userID string) string {
	return "model:" + userID
}

// SaveSessions stores the session list, previews included.
func (s *Store) SaveSessions(userID string, sessions []chat.Session) error {
	return s.put(sessionsKey(userID), sessions)
}

// LoadSessions returns the cached session list or ErrMiss.
func (s *Store) LoadSessions(userID string) ([]chat.Session, error) {
	var sessions []chat.Session
	if err := s.get(sessionsKey(userID), TTL, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// SaveMessages stores one session's full message array.
func (s *Store) SaveMessages(userID, sessionID string, msgs []chat.Message) error {
	return s.put(messagesKey(userID, sessionID), msgs)
}

// LoadMessages returns a session's cached messages or ErrMiss.
func (s *Store) LoadMessages(userID, sessionID string) ([]chat.Message, error) {
	var msgs []chat.Message
	if err := s.get(messagesKey(userID, sessionID), TTL, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SaveScroll remembers the viewport offset for a session.
func (s *Store) SaveScroll(userID, sessionID string, offset int) error {
	return s.put(scrollKey(userID, sessionID), offset)
}

// LoadScroll returns the remembered viewport offset or ErrMiss.
func (s *Store) LoadScroll(userID, sessionID string) (int, error) {
	var offset int
	if err := s.get(scrollKey(userID, sessionID), 0, &offset); err != nil {
		return 0, err
	}
	return offset, nil
}

// SaveModel remembers the user's model selection.
func (s *Store) SaveModel(userID, model string) error {
	return s.put(modelKey(userID), model)
}

// LoadModel returns the remembered model selection or ErrMiss.
func (s *Store) LoadModel(userID string) (string, error) {
	var model string
	if err := s.get(modelKey(userID), 0, &model); err != nil {
		return "", err
	}
	return model, nil
}

// DeleteSession drops a deleted session's cached messages and scroll
// offset. The session list entry is refreshed by the next SaveSessions.
func (s *Store) DeleteSession(userID, sessionID string) error {
	for _, key := range []string{messagesKey(userID, sessionID), scrollKey(userID, sessionID)} {
		if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete %q: %w", key, err)
		}
	}
	return nil
}

func (s *Store) put(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %q: %w", key, err)
	}
	_, err = s.db.Exec(
		"INSERT INTO kv (key, value, ts) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, ts = excluded.ts",
		key, string(payload), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store %q: %w", key, err)
	}
	return nil
}

// get loads key into out. maxAge of 0 disables expiry. Expired rows
// are purged before reporting the miss.
func (s *Store) get(key string, maxAge time.Duration, out any) error {
	var value string
	var ts int64
	err := s.db.QueryRow("SELECT value, ts FROM kv WHERE key = ?", key).Scan(&value, &ts)
	switch {
	case err == sql.ErrNoRows:
		return ErrMiss
	case err != nil:
		s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return ErrMiss
	}

	if maxAge > 0 {
		age := s.now().Sub(time.UnixMilli(ts))
		if age >= maxAge {
			if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
				s.log.Warn("failed to purge expired entry", zap.String("key", key), zap.Error(err))
			}
			return ErrMiss
		}
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		s.log.Warn("corrupt cache entry", zap.String("key", key), zap.Error(err))
		return ErrMiss
	}
	return nil
}
