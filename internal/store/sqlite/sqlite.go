// Package sqlite persists documents and their precomputed embeddings in a
// single-file SQLite database (pure-Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/quarry-ml/sonar/internal/model"
)

// Store wraps *sql.DB for the documents table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the document database and applies PRAGMAs.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return &Store{db: db}, nil
}

// EnsureSchema creates the documents table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const stmt = `CREATE TABLE IF NOT EXISTS documents (
        id         TEXT PRIMARY KEY,
        title      TEXT NOT NULL,
        content    TEXT NOT NULL,
        embedding  BLOB NOT NULL,
        dim        INTEGER NOT NULL,
        created_at DATETIME NOT NULL
    );`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: ensure schema: %w", err)
	}
	return nil
}

// Insert stores a document with its embedding.
func (s *Store) Insert(ctx context.Context, doc model.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("sqlite: document id is empty: %w", model.ErrInvalidArgument)
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (id, title, content, embedding, dim, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Content,
		model.EncodeVector(doc.Embedding), len(doc.Embedding), createdAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert document %s: %w", doc.ID, err)
	}
	return nil
}

// ListAll returns every stored document with its decoded embedding. The
// returned slice is a fresh snapshot safe to scan without locking.
func (s *Store) ListAll(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, embedding, dim, created_at FROM documents ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var doc model.Document
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Content, &blob, &doc.Dim, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan document: %w", err)
		}
		vec, err := model.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("sqlite: document %s: %w", doc.ID, err)
		}
		if len(vec) != doc.Dim {
			return nil, fmt.Errorf("sqlite: document %s embedding has %d values, recorded dim %d",
				doc.ID, len(vec), doc.Dim)
		}
		doc.Embedding = vec
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count documents: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
