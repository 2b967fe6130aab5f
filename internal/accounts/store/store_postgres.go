package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"medbridge/internal/accounts/models"
	id "medbridge/pkg/domain"
	"medbridge/pkg/platform/sentinel"
	txcontext "medbridge/pkg/platform/tx"
)

const (
	listPending  = "pending"
	listApproved = "approved"
)

const schema = `
CREATE TABLE IF NOT EXISTS onboarding_accounts (
	id                  UUID PRIMARY KEY,
	session_id          UUID NOT NULL UNIQUE,
	role                TEXT NOT NULL,
	email               TEXT NOT NULL,
	password_hash       TEXT NOT NULL,
	license_number      TEXT NOT NULL DEFAULT '',
	first_name          TEXT NOT NULL DEFAULT '',
	last_name           TEXT NOT NULL DEFAULT '',
	institution         TEXT NOT NULL DEFAULT '',
	years_of_experience INTEGER NOT NULL DEFAULT 0,
	specialties         TEXT[] NOT NULL DEFAULT '{}',
	status              TEXT NOT NULL,
	list                TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	seq                 BIGSERIAL
);
CREATE INDEX IF NOT EXISTS onboarding_accounts_list_seq ON onboarding_accounts (list, seq);
`

const selectColumns = `id, session_id, role, email, password_hash, license_number, first_name,
	last_name, institution, years_of_experience, specialties, status, created_at`

// PostgresStore persists accounts in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) txcontext.Executor {
	return txcontext.ExecutorFrom(ctx, s.db)
}

// EnsureSchema creates the accounts table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure accounts schema: %w", err)
	}
	return nil
}

// Create inserts account unless the session already produced one, in which
// case the existing account is returned.
func (s *PostgresStore) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	list := listPending
	if account.IsApproved() {
		list = listApproved
	}
	specialties := account.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO onboarding_accounts (id, session_id, role, email, password_hash, license_number,
			first_name, last_name, institution, years_of_experience, specialties, status, list, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (session_id) DO NOTHING`,
		uuid.UUID(account.ID), uuid.UUID(account.SessionID), string(account.Role), account.Email,
		account.PasswordHash, account.LicenseNumber, account.FirstName, account.LastName,
		account.Institution, account.YearsOfExperience, pq.Array(specialties),
		string(account.Status), list, account.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", err)
	}
	return s.FindBySession(ctx, account.SessionID)
}

func (s *PostgresStore) FindBySession(ctx context.Context, sessionID id.SessionID) (*models.Account, error) {
	row := s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM onboarding_accounts WHERE session_id = $1`,
		uuid.UUID(sessionID))
	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account by session: %w", err)
	}
	return account, nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]*models.Account, error) {
	return s.list(ctx, listPending)
}

func (s *PostgresStore) ListApproved(ctx context.Context) ([]*models.Account, error) {
	return s.list(ctx, listApproved)
}

func (s *PostgresStore) list(ctx context.Context, list string) ([]*models.Account, error) {
	rows, err := s.execer(ctx).QueryContext(ctx,
		`SELECT `+selectColumns+` FROM onboarding_accounts WHERE list = $1 ORDER BY seq`, list)
	if err != nil {
		return nil, fmt.Errorf("list %s accounts: %w", list, err)
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*models.Account, error) {
	var (
		account   models.Account
		accountID uuid.UUID
		sessionID uuid.UUID
		role      string
		status    string
	)
	err := row.Scan(&accountID, &sessionID, &role, &account.Email, &account.PasswordHash,
		&account.LicenseNumber, &account.FirstName, &account.LastName, &account.Institution,
		&account.YearsOfExperience, pq.Array(&account.Specialties), &status, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	account.ID = id.AccountID(accountID)
	account.SessionID = id.SessionID(sessionID)
	account.Role = models.Role(role)
	account.Status = models.Status(status)
	return &account, nil
}
