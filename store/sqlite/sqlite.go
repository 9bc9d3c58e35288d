/*
Package sqlite provides the SQLite-backed document metadata store.

PURPOSE:
  Records every generated document: which deal it belongs to, what kind
  of document it is, where the rendered body lives in object storage and
  where it is in its lifecycle. The rendered bytes themselves live in
  store/blob; this table only points at them.

KEY TABLES:
  documents: One row per document, updated in place on regeneration

  The schema lives in migrations/ and is applied with golang-migrate on
  open.

DOCUMENT LIFECYCLE:
  pending -> generating -> ready
                        -> failed
  ready/failed -> generating (regeneration)

REGENERATION GUARD:
  Regeneration calls out to a slow prose service, so two requests for the
  same document must not both run. BeginRegeneration is an optimistic
  check-then-set: the UPDATE only matches rows that are not already
  generating. If the generation fails, RollbackRegeneration restores the
  previous status on a best-effort basis.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The guard's correctness comes from
  the conditional UPDATE, not the mutex.

USAGE:
  store, err := sqlite.New("./data/docfin.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/blob: Rendered document bodies
  - api/handlers.go: Document endpoints
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrDocumentNotFound is returned when no document has the given ID.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrGenerationInProgress is returned when a regeneration is requested
	// for a document that is already generating.
	ErrGenerationInProgress = errors.New("document generation already in progress")
)

// IsNotFound returns true if err is a missing-document error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// =============================================================================
// STORE
// =============================================================================

// Store is the document metadata store.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

//go:embed migrations/*.sql
var migrations embed.FS

// migrate brings the schema up to the latest embedded migration.
func (s *Store) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	// m.Close would close s.db
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentStatus is where a document is in its lifecycle.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusGenerating DocumentStatus = "generating"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is a document metadata row.
type Document struct {
	ID        string
	DealID    string
	Kind      string
	Title     string
	Format    string
	Status    DocumentStatus
	BlobKey   string
	SizeBytes int64
	TermsJSON string
	Version   int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const documentColumns = `id, deal_id, kind, title, format, status, blob_key, size_bytes,
	terms_json, version, error, created_at, updated_at`

// SaveDocument inserts or replaces a document row.
func (s *Store) SaveDocument(ctx context.Context, d Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			format = excluded.format,
			status = excluded.status,
			blob_key = excluded.blob_key,
			size_bytes = excluded.size_bytes,
			terms_json = excluded.terms_json,
			error = excluded.error,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.Version == 0 {
		d.Version = 1
	}

	_, err := s.db.ExecContext(ctx, query,
		d.ID, d.DealID, d.Kind, d.Title, d.Format, string(d.Status),
		nullString(d.BlobKey), d.SizeBytes, d.TermsJSON, d.Version, nullString(d.Error),
		d.CreatedAt.Format(timeLayout), now.Format(timeLayout),
	)
	return err
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return getDocument(ctx, s.db, id)
}

// ListDocuments returns documents newest first. An empty dealID lists all.
func (s *Store) ListDocuments(ctx context.Context, dealID string, limit int) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := "SELECT " + documentColumns + " FROM documents"
	args := []any{}
	if dealID != "" {
		query += " WHERE deal_id = ?"
		args = append(args, dealID)
	}
	query += " ORDER BY created_at DESC, id LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document row.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// =============================================================================
// REGENERATION GUARD
// =============================================================================

// BeginRegeneration moves a document to generating and returns the row as
// it was before the transition. Returns ErrGenerationInProgress if another
// generation holds the document.
func (s *Store) BeginRegeneration(ctx context.Context, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := getDocument(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if prev.Status == StatusGenerating {
		return nil, ErrGenerationInProgress
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, error = NULL, updated_at = ? WHERE id = ? AND status != ?",
		string(StatusGenerating), time.Now().UTC().Format(timeLayout), id, string(StatusGenerating),
	)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrGenerationInProgress
	}
	return prev, nil
}

// CompleteRegeneration records the new body and bumps the version.
func (s *Store) CompleteRegeneration(ctx context.Context, id, blobKey string, size int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, blob_key = ?, size_bytes = ?, version = version + 1, error = NULL, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(StatusReady), blobKey, size, time.Now().UTC().Format(timeLayout), id, string(StatusGenerating),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("document %s is not generating", id)
	}
	return nil
}

// RollbackRegeneration restores the previous status after a failed
// generation and records the failure.
func (s *Store) RollbackRegeneration(ctx context.Context, id string, previous DocumentStatus, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(previous), nullString(cause), time.Now().UTC().Format(timeLayout), id, string(StatusGenerating),
	)
	return err
}

// FailStaleGenerations marks documents that have been generating since
// before the cutoff as failed. A process that dies mid-generation never
// rolls back; this is what releases those rows.
func (s *Store) FailStaleGenerations(ctx context.Context, before time.Time, cause string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, error = ?, updated_at = ? WHERE status = ? AND updated_at < ?",
		string(StatusFailed), nullString(cause), time.Now().UTC().Format(timeLayout),
		string(StatusGenerating), before.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Helper functions

// fixed-width so that text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func getDocument(ctx context.Context, db *sql.DB, id string) (*Document, error) {
	row := db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDocument(r rowScanner) (Document, error) {
	var d Document
	var status, createdAt, updatedAt string
	var blobKey, errMsg sql.NullString

	err := r.Scan(&d.ID, &d.DealID, &d.Kind, &d.Title, &d.Format, &status, &blobKey,
		&d.SizeBytes, &d.TermsJSON, &d.Version, &errMsg, &createdAt, &updatedAt)
	if err != nil {
		return Document{}, err
	}

	d.Status = DocumentStatus(status)
	d.BlobKey = blobKey.String
	d.Error = errMsg.String
	d.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	d.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return d, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.TrimSpace(s), Valid: true}
}
