package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

type (
	// Store is the credential store, a keyed lookup service over a
	// single sqlite database. One Store per process is expected but
	// nothing breaks with more than one.
	Store struct {
		db        *sql.DB
		writeable bool
	}
)

// columns that UpdateField is allowed to touch, everything else in the
// accounts table is either immutable or owned by this package.
var mutableColumns = map[string]bool{
	"display_name":  true,
	"avatar_url":    true,
	"password_hash": true,
}

func openAccountDatabase(ctx context.Context, dir string, readwrite bool) (*sql.DB, error) {
	dbfile := filepath.Join(dir, "accounts.db")
	if readwrite {
		err := os.MkdirAll(filepath.Dir(dbfile), 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory %v to store accounts, cause %w", dbfile, err)
		}
	}
	var connstr string
	if readwrite {
		connstr = fmt.Sprintf("file:%v?_writable_schema=false&_journal=wal&_fk=true&mode=rwc", dbfile)
	} else {
		connstr = fmt.Sprintf("file:%v?_writable_schema=false&mode=r", dbfile)
	}
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %v", dbfile, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to ping account database %v, cause %v", dbfile, err)
	}
	return conn, nil
}

// Open loads (creating if needed and writeable) the account database
// stored under dir.
func Open(ctx context.Context, dir string, readwrite bool) (*Store, error) {
	conn, err := openAccountDatabase(ctx, dir, readwrite)
	if err != nil {
		return nil, err
	}
	s := &Store{db: conn, writeable: readwrite}
	err = s.init(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to init account store at %v, cause %v", dir, err)
	}
	return s, nil
}

// Insert adds a new account. Email and username are case-normalized
// before storage, the id is assigned here and returned via the given
// account. Duplicate email/username surface as Duplicate errors.
func (s *Store) Insert(ctx context.Context, acct *Account) error {
	acct.ID = uuid.NewString()
	acct.Email = normalizeIdentifier(acct.Email)
	acct.Username = normalizeIdentifier(acct.Username)
	acct.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `insert into accounts
		(account_id, email, email_hash64, username, username_hash64, password_hash, display_name, avatar_url, created_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acct.ID, acct.Email, hash64(acct.Email), acct.Username, hash64(acct.Username),
		acct.PasswordHash, acct.DisplayName, acct.AvatarURL, acct.CreatedAt.Unix())
	if err != nil {
		var serr sqlite3.Error
		if errors.As(err, &serr) && serr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return Duplicate{Field: duplicateField(serr)}
		}
		return fmt.Errorf("unable to insert account %v, cause %w", acct.Email, err)
	}
	return nil
}

// FindByIdentifier looks up an account by email or username. Email is
// tried first, so an identifier that somehow matches the email of one
// account and the username of another resolves to the email match.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	identifier = normalizeIdentifier(identifier)
	acct, err := s.findOne(ctx, `email_hash64 = ? and email = ?`, hash64(identifier), identifier)
	if err == nil {
		return acct, nil
	} else if !errors.As(err, &NotFound{}) {
		return nil, err
	}
	acct, err = s.findOne(ctx, `username_hash64 = ? and username = ?`, hash64(identifier), identifier)
	if errors.As(err, &NotFound{}) {
		return nil, NotFound{Identifier: identifier}
	}
	return acct, err
}

// FindByID fetches the account whose id is known to exist, usually
// after a token verification.
func (s *Store) FindByID(ctx context.Context, id string) (*Account, error) {
	acct, err := s.findOne(ctx, `account_id = ?`, id)
	if errors.As(err, &NotFound{}) {
		return nil, NotFound{Identifier: id}
	}
	return acct, err
}

func (s *Store) findOne(ctx context.Context, where string, args ...interface{}) (*Account, error) {
	var acct Account
	var createdAt int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`select account_id, email, username, password_hash, display_name, avatar_url, created_at
		from accounts where %v`, where), args...).
		Scan(&acct.ID, &acct.Email, &acct.Username, &acct.PasswordHash, &acct.DisplayName, &acct.AvatarURL, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound{}
	} else if err != nil {
		return nil, fmt.Errorf("unable to load account, cause %w", err)
	}
	acct.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &acct, nil
}

// UpdateField changes a single mutable profile column of an account.
// Columns outside the mutable set are rejected outright.
func (s *Store) UpdateField(ctx context.Context, id string, column string, value interface{}) error {
	if !mutableColumns[column] {
		return fmt.Errorf("column %v cannot be updated", column)
	}
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`update accounts set %v = ? where account_id = ?`, column), value, id)
	if err != nil {
		return fmt.Errorf("unable to update %v of account %v, cause %w", column, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to update %v of account %v, cause %w", column, id, err)
	}
	if n == 0 {
		return NotFound{Identifier: id}
	}
	return nil
}

func normalizeIdentifier(val string) string {
	return strings.ToLower(strings.TrimSpace(val))
}

func hash64(val string) int64 {
	return int64(xxhash.Sum64String(val))
}

func duplicateField(err sqlite3.Error) string {
	if strings.Contains(err.Error(), "accounts.username") {
		return "username"
	}
	return "email"
}

func (s *Store) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists accounts(
			account_id text not null primary key,
			email text not null unique,
			email_hash64 integer not null,
			username text not null unique,
			username_hash64 integer not null,
			password_hash blob not null,
			display_name text not null default '',
			avatar_url text not null default '',
			created_at integer not null
		)`,
		`create index if not exists idx_accounts_email_hash64
			on accounts(email_hash64)
		`,
		`create index if not exists idx_accounts_username_hash64
			on accounts(username_hash64)
		`,
	} {
		_, err := s.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
