package storage

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

type MuteRepo struct{ db DBTX }

func NewMuteRepo(db DBTX) *MuteRepo { return &MuteRepo{db: db} }

const muteColumns = `id, guild_id, user_id, muted_by, created_at, reason, ends_at, discarded`

func (r *MuteRepo) Insert(ctx context.Context, guildID, userID, mutedBy, reason string, endsAt time.Time) (domain.Mute, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO mute (guild_id, user_id, muted_by, reason, ends_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING `+muteColumns,
		guildID, userID, mutedBy, reason, endsAt,
	)
	return scanMute(row)
}

// ActiveMutes: no descartados con ends_at > now.
func (r *MuteRepo) ActiveMutes(ctx context.Context, guildID, userID string, now time.Time) ([]domain.Mute, error) {
	return r.list(ctx, `
SELECT `+muteColumns+`
  FROM mute
 WHERE guild_id = $1 AND user_id = $2
   AND discarded = FALSE
   AND ends_at > $3
 ORDER BY ends_at DESC
`, guildID, userID, now)
}

func (r *MuteRepo) HasActiveMutes(ctx context.Context, guildID, userID string, now time.Time) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (
  SELECT 1 FROM mute
   WHERE guild_id = $1 AND user_id = $2
     AND discarded = FALSE
     AND ends_at > $3
)`, guildID, userID, now).Scan(&ok)
	return ok, err
}

// ExpiredMutes es la cola del sweep. Dentro de una tx las filas quedan bloqueadas;
// otro proceso que barra el mismo guild se las salta.
func (r *MuteRepo) ExpiredMutes(ctx context.Context, guildID string, now time.Time) ([]domain.Mute, error) {
	return r.list(ctx, `
SELECT `+muteColumns+`
  FROM mute
 WHERE guild_id = $1
   AND discarded = FALSE
   AND ends_at <= $2
 ORDER BY ends_at ASC, id ASC
 FOR UPDATE SKIP LOCKED
`, guildID, now)
}

func (r *MuteRepo) Discard(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE mute SET discarded = TRUE WHERE id = $1`, id)
	return err
}

// DiscardIDs descarta en bloque (= ANY($1)).
func (r *MuteRepo) DiscardIDs(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE mute
   SET discarded = TRUE
 WHERE id = ANY($1) AND discarded = FALSE
`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *MuteRepo) DiscardAllActive(ctx context.Context, guildID, userID string, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE mute
   SET discarded = TRUE
 WHERE guild_id = $1 AND user_id = $2
   AND discarded = FALSE
   AND ends_at > $3
`, guildID, userID, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *MuteRepo) list(ctx context.Context, q string, args ...any) ([]domain.Mute, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Mute
	for rows.Next() {
		m, err := scanMute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMute(s rowScanner) (domain.Mute, error) {
	var m domain.Mute
	err := s.Scan(&m.ID, &m.GuildID, &m.UserID, &m.MutedBy, &m.CreatedAt, &m.Reason, &m.EndsAt, &m.Discarded)
	return m, err
}
