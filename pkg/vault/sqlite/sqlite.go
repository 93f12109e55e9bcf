package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rexliu/otpbridge/pkg/ipc"
	"github.com/rexliu/otpbridge/pkg/oath"
)

// ErrNotFound indicates the named credential does not exist.
var ErrNotFound = errors.New("credential not found")

// Store owns the SQLite credential vault for a profile.
type Store struct {
	db   *sql.DB
	path string
}

// Path returns the underlying SQLite file path.
func (s *Store) Path() string {
	return s.path
}

// Open initializes a SQLite database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Init ensures pragmas and schema are configured.
func (s *Store) Init(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("nil store")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = DELETE;",
		"PRAGMA synchronous = FULL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, stmt := range pragmas {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}
	return s.applySchema(ctx)
}

func (s *Store) applySchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES ('schemaVersion','1');`,
		`CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			secret TEXT NOT NULL,
			kind TEXT NOT NULL CHECK (kind IN ('totp','hotp')),
			algorithm TEXT NOT NULL DEFAULT 'SHA1',
			digits INTEGER NOT NULL DEFAULT 6,
			period INTEGER NOT NULL DEFAULT 30,
			counter INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_name_nocase ON credentials(name COLLATE NOCASE);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Add inserts a new credential. The name must be unique in the vault.
func (s *Store) Add(ctx context.Context, cred oath.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}
	if cred.ID == "" {
		cred.ID = oath.NewID()
	}
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials(id, name, secret, kind, algorithm, digits, period, counter, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`,
		cred.ID, cred.Name, oath.NormalizeSecret(cred.Secret), string(credType(cred)),
		string(credAlgorithm(cred)), credDigits(cred), credPeriod(cred), cred.Counter, now, now)
	if err != nil {
		return fmt.Errorf("add credential %q: %w", cred.Name, err)
	}
	return nil
}

// List returns all credentials in insertion order.
func (s *Store) List(ctx context.Context) ([]oath.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, secret, kind, algorithm, digits, period, counter, created_at, updated_at
		FROM credentials
		ORDER BY created_at, id;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []oath.Credential
	for rows.Next() {
		var cred oath.Credential
		var kind, algorithm string
		if err := rows.Scan(&cred.ID, &cred.Name, &cred.Secret, &kind, &algorithm,
			&cred.Digits, &cred.Period, &cred.Counter, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
			return nil, err
		}
		cred.Type = oath.Type(kind)
		cred.Algorithm = oath.Algorithm(algorithm)
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return creds, nil
}

// Get returns the credential with the exact name.
func (s *Store) Get(ctx context.Context, name string) (oath.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, secret, kind, algorithm, digits, period, counter, created_at, updated_at
		FROM credentials WHERE name = ?;
	`, name)
	var cred oath.Credential
	var kind, algorithm string
	err := row.Scan(&cred.ID, &cred.Name, &cred.Secret, &kind, &algorithm,
		&cred.Digits, &cred.Period, &cred.Counter, &cred.CreatedAt, &cred.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return oath.Credential{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return oath.Credential{}, err
	}
	cred.Type = oath.Type(kind)
	cred.Algorithm = oath.Algorithm(algorithm)
	return cred, nil
}

// Remove deletes the credential with the exact name.
func (s *Store) Remove(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE name = ?`, name)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

// SetCounter persists a HOTP counter advance.
func (s *Store) SetCounter(ctx context.Context, id string, counter uint64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE credentials SET counter = ?, updated_at = ? WHERE id = ?`,
		counter, time.Now().UnixMilli(), id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: id %q", ErrNotFound, id)
	}
	return nil
}

// Opener opens the vault for one bridge dispatch.
type Opener struct {
	Path string
}

// Open satisfies ipc.StoreOpener. The handle is scoped to a single dispatch
// and closed by the dispatcher.
func (o *Opener) Open(ctx context.Context) (ipc.Store, error) {
	store, err := Open(o.Path)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("init vault: %w", err)
	}
	return store, nil
}

func credType(cred oath.Credential) oath.Type {
	if cred.Type == "" {
		return oath.TypeTOTP
	}
	return cred.Type
}

func credAlgorithm(cred oath.Credential) oath.Algorithm {
	if cred.Algorithm == "" {
		return oath.SHA1
	}
	return cred.Algorithm
}

func credDigits(cred oath.Credential) int {
	if cred.Digits <= 0 {
		return oath.DefaultDigits
	}
	return cred.Digits
}

func credPeriod(cred oath.Credential) int {
	if cred.Period <= 0 {
		return oath.DefaultPeriod
	}
	return cred.Period
}
