// Package sqlite implements ai.Storage on a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	ai "github.com/bitop-dev/ai-sdk-go"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	metadata   TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	session_id    TEXT NOT NULL REFERENCES sessions(id),
	message       TEXT NOT NULL,
	model_id      TEXT NOT NULL DEFAULT '',
	finish_reason TEXT NOT NULL DEFAULT '',
	usage         TEXT,
	created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS messages_session ON messages(session_id, created_at, seq);
`

// Store is an ai.Storage backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ ai.Storage = (*Store)(nil)

// Open opens the database at path, creating it and its schema if missing.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_pragma=foreign_keys(1)"
	} else {
		dsn += "?_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, dbErr("open", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dbErr("open", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, dbErr("open", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) GenerateSessionID() string { return uuid.NewString() }
func (s *Store) GenerateMessageID() string { return uuid.NewString() }

func (s *Store) StoreSession(ctx context.Context, sess ai.Session) error {
	if sess.ID == "" {
		return &ai.StorageError{Kind: ai.StorageInvalidInput, Op: "store session", Cause: errors.New("session id is required")}
	}
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = sess.CreatedAt
	}
	meta, err := marshalNullable(sess.Metadata, len(sess.Metadata) > 0)
	if err != nil {
		return &ai.StorageError{Kind: ai.StorageSerialization, Op: "store session", Cause: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, title, metadata, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title, metadata = excluded.metadata, updated_at = excluded.updated_at`,
		sess.ID, sess.Title, meta, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano())
	if err != nil {
		return dbErr("store session", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*ai.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, metadata, created_at, updated_at FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ai.StorageError{Kind: ai.StorageNotFound, Op: "get session " + id}
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) StoreMessages(ctx context.Context, sessionID string, msgs []ai.StoredMessage) error {
	type row struct {
		msg   ai.StoredMessage
		body  []byte
		usage any
	}
	rows := make([]row, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == "" {
			return &ai.StorageError{Kind: ai.StorageInvalidInput, Op: "store messages", Cause: errors.New("message id is required")}
		}
		body, err := json.Marshal(m.Message)
		if err != nil {
			return &ai.StorageError{Kind: ai.StorageSerialization, Op: "store messages", Cause: err}
		}
		usage, err := marshalNullable(m.Usage, m.Usage != nil)
		if err != nil {
			return &ai.StorageError{Kind: ai.StorageSerialization, Op: "store messages", Cause: err}
		}
		rows = append(rows, row{msg: m, body: body, usage: usage})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("store messages", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, now.UnixNano(), sessionID)
	if err != nil {
		return dbErr("store messages", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ai.StorageError{Kind: ai.StorageNotFound, Op: "store messages " + sessionID}
	}
	for _, r := range rows {
		created := r.msg.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, session_id, message, model_id, finish_reason, usage, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			r.msg.ID, sessionID, string(r.body), r.msg.ModelID, string(r.msg.FinishReason), r.usage, created.UnixNano())
		if err != nil {
			return dbErr("store messages", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return dbErr("store messages", err)
	}
	return nil
}

func (s *Store) GetMessages(ctx context.Context, sessionID string, limit int) ([]ai.StoredMessage, error) {
	if _, err := s.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	query := `SELECT id, session_id, message, model_id, finish_reason, usage, created_at FROM messages
		WHERE session_id = ? ORDER BY created_at DESC, seq DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("get messages", err)
	}
	defer rows.Close()

	var out []ai.StoredMessage
	for rows.Next() {
		var (
			m       ai.StoredMessage
			body    string
			reason  string
			usage   sql.NullString
			created int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &body, &m.ModelID, &reason, &usage, &created); err != nil {
			return nil, dbErr("get messages", err)
		}
		if err := json.Unmarshal([]byte(body), &m.Message); err != nil {
			return nil, &ai.StorageError{Kind: ai.StorageSerialization, Op: "get messages", Cause: err}
		}
		if usage.Valid {
			var u ai.Usage
			if err := json.Unmarshal([]byte(usage.String), &u); err != nil {
				return nil, &ai.StorageError{Kind: ai.StorageSerialization, Op: "get messages", Cause: err}
			}
			m.Usage = &u
		}
		m.FinishReason = ai.FinishReason(reason)
		m.CreatedAt = time.Unix(0, created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("get messages", err)
	}
	// Rows were read newest first so LIMIT keeps the latest ones.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]ai.Session, error) {
	query := `SELECT id, title, metadata, created_at, updated_at FROM sessions ORDER BY updated_at DESC, id ASC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbErr("list sessions", err)
	}
	defer rows.Close()

	var out []ai.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("list sessions", err)
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dbErr("delete session", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return dbErr("delete session", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return dbErr("delete session", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ai.StorageError{Kind: ai.StorageNotFound, Op: "delete session " + id}
	}
	if err := tx.Commit(); err != nil {
		return dbErr("delete session", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (ai.Session, error) {
	var (
		sess             ai.Session
		meta             sql.NullString
		created, updated int64
	)
	if err := row.Scan(&sess.ID, &sess.Title, &meta, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ai.Session{}, err
		}
		return ai.Session{}, dbErr("scan session", err)
	}
	if meta.Valid {
		if err := json.Unmarshal([]byte(meta.String), &sess.Metadata); err != nil {
			return ai.Session{}, &ai.StorageError{Kind: ai.StorageSerialization, Op: "scan session", Cause: err}
		}
	}
	sess.CreatedAt = time.Unix(0, created)
	sess.UpdatedAt = time.Unix(0, updated)
	return sess, nil
}

func marshalNullable(v any, ok bool) (any, error) {
	if !ok {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func dbErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ai.StorageError{Kind: ai.StorageDatabase, Op: op, Cause: err}
}
