package main

import (
	"context"
	"database/sql"
	"time"

	accountmodels "medbridge/internal/accounts/models"
	accountstore "medbridge/internal/accounts/store"
	id "medbridge/pkg/domain"
	txcontext "medbridge/pkg/platform/tx"
)

const defaultAccountTxTimeout = 5 * time.Second

// accountsPostgresTx runs account creation and its read-back in one
// transaction.
type accountsPostgresTx struct {
	db      *sql.DB
	store   *accountstore.PostgresStore
	timeout time.Duration
}

func newAccountsPostgresTx(db *sql.DB, store *accountstore.PostgresStore) *accountsPostgresTx {
	return &accountsPostgresTx{db: db, store: store}
}

func (t *accountsPostgresTx) Create(ctx context.Context, account *accountmodels.Account) (*accountmodels.Account, error) {
	var created *accountmodels.Account
	err := t.runInTx(ctx, func(ctx context.Context) error {
		var err error
		created, err = t.store.Create(ctx, account)
		return err
	})
	return created, err
}

func (t *accountsPostgresTx) FindBySession(ctx context.Context, sessionID id.SessionID) (*accountmodels.Account, error) {
	return t.store.FindBySession(ctx, sessionID)
}

func (t *accountsPostgresTx) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultAccountTxTimeout
	}
	return txcontext.Run(ctx, t.db, timeout, fn)
}
