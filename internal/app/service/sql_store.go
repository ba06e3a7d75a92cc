package service

import (
	"context"
	"database/sql"

	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

type sqlStore struct{ db *sql.DB }

// NewSQLStore arma el Store sobre la base real.
func NewSQLStore(db *sql.DB) Store { return sqlStore{db: db} }

func (s sqlStore) Ledgers() Ledgers { return ledgersOn(s.db) }

func (s sqlStore) InTx(ctx context.Context, guildID string, fn func(l Ledgers) error) error {
	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := storage.LockGuild(ctx, tx, guildID); err != nil {
			return err
		}
		return fn(ledgersOn(tx))
	})
}

func ledgersOn(db storage.DBTX) Ledgers {
	return Ledgers{
		Warns: storage.NewWarnRepo(db),
		Mutes: storage.NewMuteRepo(db),
	}
}
