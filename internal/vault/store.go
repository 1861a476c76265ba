package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/netcmd/netcmd/pkg/plugin"
)

// Store provides persistence for credential sets.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store and runs vault migrations.
func NewStore(ctx context.Context, store plugin.Store) (*Store, error) {
	if err := store.Migrate(ctx, "vault", vaultMigrations); err != nil {
		return nil, fmt.Errorf("vault migrations: %w", err)
	}
	return &Store{db: store.DB()}, nil
}

// Create inserts a new credential set.
func (s *Store) Create(ctx context.Context, cs *CredentialSet) error {
	platforms, err := marshalPlatforms(cs.Platforms)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credential_sets
			(id, owner_id, name, encrypted_username, encrypted_password, key_id,
			 access_token, platforms, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cs.ID, cs.OwnerID, cs.Name, cs.EncryptedUsername, cs.EncryptedPassword,
		cs.KeyID, cs.AccessToken, platforms, cs.IsActive, cs.CreatedAt, cs.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ValidationError("a credential set with this name already exists")
		}
		return fmt.Errorf("create credential set: %w", err)
	}
	return nil
}

// GetByID returns a credential set owned by the given user.
func (s *Store) GetByID(ctx context.Context, id, ownerID string) (*CredentialSet, error) {
	cs, err := scanCredentialSet(s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credential_sets WHERE id = ? AND owner_id = ?`,
		id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cs, err
}

// ListByOwner returns all credential sets owned by a user, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]CredentialSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credential_sets
		 WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list credential sets: %w", err)
	}
	defer rows.Close()

	var sets []CredentialSet
	for rows.Next() {
		cs, err := scanCredentialSet(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, *cs)
	}
	return sets, rows.Err()
}

// GetByTokenAndOwner looks up a credential set by access token scoped to
// its owner. Both conditions sit in one query so a caller cannot tell a
// missing token apart from someone else's token.
func (s *Store) GetByTokenAndOwner(ctx context.Context, token, ownerID string) (*CredentialSet, error) {
	cs, err := scanCredentialSet(s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credential_sets
		 WHERE access_token = ? AND owner_id = ?`, token, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	return cs, err
}

// Update rewrites a credential set's mutable fields.
func (s *Store) Update(ctx context.Context, cs *CredentialSet) error {
	platforms, err := marshalPlatforms(cs.Platforms)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE credential_sets
		SET name = ?, encrypted_username = ?, encrypted_password = ?, key_id = ?,
		    platforms = ?, is_active = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		cs.Name, cs.EncryptedUsername, cs.EncryptedPassword, cs.KeyID,
		platforms, cs.IsActive, cs.UpdatedAt, cs.ID, cs.OwnerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ValidationError("a credential set with this name already exists")
		}
		return fmt.Errorf("update credential set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAccessToken replaces only the access token of an owned set.
func (s *Store) UpdateAccessToken(ctx context.Context, id, ownerID, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credential_sets SET access_token = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?`,
		token, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("rotate access token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastUsed records a confirmed use of the credential set.
func (s *Store) TouchLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE credential_sets SET last_used = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	return err
}

// Delete removes an owned credential set.
func (s *Store) Delete(ctx context.Context, id, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM credential_sets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete credential set: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite constraint failure.
// The extended result code keeps the specific constraint in its high
// byte, so only the primary code is compared.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

const credentialColumns = `id, owner_id, name, encrypted_username, encrypted_password,
	key_id, access_token, platforms, is_active, last_used, created_at, updated_at`

func scanCredentialSet(row interface{ Scan(dest ...any) error }) (*CredentialSet, error) {
	var cs CredentialSet
	var platforms string
	var lastUsed sql.NullTime

	err := row.Scan(&cs.ID, &cs.OwnerID, &cs.Name, &cs.EncryptedUsername,
		&cs.EncryptedPassword, &cs.KeyID, &cs.AccessToken, &platforms,
		&cs.IsActive, &lastUsed, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		cs.LastUsed = &t
	}
	if platforms != "" {
		if err := json.Unmarshal([]byte(platforms), &cs.Platforms); err != nil {
			return nil, fmt.Errorf("decode platforms: %w", err)
		}
	}
	return &cs, nil
}

func marshalPlatforms(platforms []string) (string, error) {
	if len(platforms) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(platforms)
	if err != nil {
		return "", fmt.Errorf("encode platforms: %w", err)
	}
	return string(b), nil
}

// vaultMigrations for the vault module.
var vaultMigrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create credential_sets table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE credential_sets (
					id                 TEXT PRIMARY KEY,
					owner_id           TEXT NOT NULL,
					name               TEXT NOT NULL,
					encrypted_username TEXT NOT NULL,
					encrypted_password TEXT NOT NULL,
					key_id             TEXT NOT NULL,
					access_token       TEXT NOT NULL UNIQUE,
					platforms          TEXT NOT NULL DEFAULT '[]',
					is_active          INTEGER NOT NULL DEFAULT 1,
					last_used          DATETIME,
					created_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					updated_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
					UNIQUE (owner_id, name)
				)`)
			if err != nil {
				return err
			}
			_, err = tx.Exec(`CREATE INDEX idx_credential_sets_owner ON credential_sets(owner_id)`)
			return err
		},
	},
}
