package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/guilherme-santos/calmanager/internal"
)

const DriverName = "sqlite3"

// Storage is the local calendar store. It is a Source on its own (the
// "local" platform) and the id registry of the remote sources, which record
// every calendar they list here to get a stable numeric id for it.
type Storage struct {
	db *sqlx.DB
}

func Open(filename string) (*Storage, error) {
	db, err := sql.Open(DriverName, filename)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases alive and serialises
	// writers the way sqlite wants.
	db.SetMaxOpenConns(1)

	s := &Storage{
		db: sqlx.NewDb(db, DriverName),
	}
	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: running migrations on %s: %w", filename, err)
	}
	return s, nil
}

// NewStorage wraps an already open database and panics if it cannot be
// migrated.
func NewStorage(db *sql.DB) *Storage {
	s := &Storage{
		db: sqlx.NewDb(db, DriverName),
	}
	err := s.RunMigrations()
	if err != nil {
		panic(fmt.Sprintf("sqlite: running migrations: %v", err))
	}
	return s
}

func (s Storage) Close() error {
	return s.db.Close()
}

func (s Storage) AddCredential(ctx context.Context, cred *internal.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, auth) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET auth=?;
	`, cred.ID(), cred.Auth, cred.Auth)
	return err
}

func (s Storage) Credentials(ctx context.Context, platform string) ([]internal.Credential, error) {
	var accs []Account

	err := s.db.SelectContext(ctx, &accs, `
		SELECT id, auth FROM accounts WHERE id LIKE ? || '/%' ORDER BY id
	`, platform)
	if err != nil {
		return nil, err
	}

	res := make([]internal.Credential, len(accs))
	for i, a := range accs {
		res[i] = a.Convert()
	}
	return res, nil
}

// AddAccount inserts acc and sets its ID.
func (s Storage) AddAccount(ctx context.Context, acc *internal.Account) error {
	if acc.Platform == "" {
		acc.Platform = internal.PlatformLocal
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calendars (platform, account_name, provider_id, display_name, owner_name, access_role)
		VALUES (?, ?, ?, ?, ?, ?)
	`, acc.Platform, acc.AccountName, acc.ProviderID, acc.DisplayName, acc.OwnerName, acc.AccessRole)
	if err != nil {
		return err
	}
	acc.ID, err = res.LastInsertId()
	return err
}

func (s Storage) Account(ctx context.Context, id int64) (internal.Account, error) {
	var cal Calendar

	err := s.db.GetContext(ctx, &cal, `
		SELECT _id, platform, account_name, provider_id, display_name, owner_name, access_role
		FROM calendars
		WHERE _id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.Account{}, internal.ErrAccountNotFound
	}
	if err != nil {
		return internal.Account{}, err
	}
	return cal.Convert(), nil
}

func (s Storage) ListAccounts(ctx context.Context) ([]internal.Account, error) {
	return s.accounts(ctx, `1 = 1`)
}

func (s Storage) AccountsByPlatform(ctx context.Context, platform string) ([]internal.Account, error) {
	return s.accounts(ctx, `platform = ?`, platform)
}

// AccountsOf returns the calendars recorded for one account of platform.
func (s Storage) AccountsOf(ctx context.Context, platform, accountName string) ([]internal.Account, error) {
	return s.accounts(ctx, `platform = ? AND account_name = ?`, platform, accountName)
}

func (s Storage) accounts(ctx context.Context, where string, args ...any) ([]internal.Account, error) {
	var cals []Calendar

	err := s.db.SelectContext(ctx, &cals, `
		SELECT _id, platform, account_name, provider_id, display_name, owner_name, access_role
		FROM calendars
		WHERE `+where+`
		ORDER BY _id
	`, args...)
	if err != nil {
		return nil, err
	}

	res := make([]internal.Account, len(cals))
	for i, c := range cals {
		res[i] = c.Convert()
	}
	return res, nil
}

func (s Storage) DeleteAccount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE _id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return internal.ErrAccountNotFound
	}
	return nil
}

// ReplaceAccounts makes the calendars stored for platform/accountName match
// accs: known calendars keep their id, new ones get one, and the ones that
// are gone upstream are removed.
func (s Storage) ReplaceAccounts(ctx context.Context, platform, accountName string, accs []internal.Account) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	providerIDs := make([]string, 0, len(accs))
	for _, acc := range accs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO calendars (platform, account_name, provider_id, display_name, owner_name, access_role)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(platform, account_name, provider_id) WHERE provider_id != '' DO UPDATE
				SET display_name = excluded.display_name,
					owner_name = excluded.owner_name,
					access_role = excluded.access_role;
		`, platform, accountName, acc.ProviderID, acc.DisplayName, acc.OwnerName, acc.AccessRole)
		if err != nil {
			return fmt.Errorf("calendar %s: %v", acc.ProviderID, err)
		}
		providerIDs = append(providerIDs, acc.ProviderID)
	}

	if len(providerIDs) == 0 {
		_, err = tx.ExecContext(ctx, `
			DELETE FROM calendars WHERE platform = ? AND account_name = ?
		`, platform, accountName)
	} else {
		var (
			query string
			args  []any
		)
		query, args, err = sqlx.In(`
			DELETE FROM calendars
			WHERE platform = ? AND account_name = ? AND provider_id NOT IN (?)
		`, platform, accountName, providerIDs)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
	}
	if err != nil {
		return fmt.Errorf("pruning calendars: %v", err)
	}
	return tx.Commit()
}
