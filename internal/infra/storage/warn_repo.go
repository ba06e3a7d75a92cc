package storage

import (
	"context"
	"time"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

type WarnRepo struct{ db DBTX }

func NewWarnRepo(db DBTX) *WarnRepo { return &WarnRepo{db: db} }

const warnColumns = `id, guild_id, user_id, warned_by, created_at, severity, severity_weight, reason, discarded`

// Insert resuelve el peso desde la etiqueta y devuelve la fila guardada (id + created_at).
func (r *WarnRepo) Insert(ctx context.Context, guildID, userID, warnedBy string, sev domain.Severity, reason string) (domain.Warning, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO warn (guild_id, user_id, warned_by, severity, severity_weight, reason)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING `+warnColumns,
		guildID, userID, warnedBy, string(sev), sev.Weight(), reason,
	)
	return scanWarn(row)
}

// TotalActiveSeverity suma pesos no descartados creados después de cutoff.
func (r *WarnRepo) TotalActiveSeverity(ctx context.Context, guildID, userID string, cutoff time.Time) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(severity_weight), 0)
  FROM warn
 WHERE guild_id = $1 AND user_id = $2
   AND discarded = FALSE
   AND created_at > $3
`, guildID, userID, cutoff).Scan(&total)
	return total, err
}

// DiscardAll marca todas las advertencias del usuario. Las filas quedan para auditoría.
func (r *WarnRepo) DiscardAll(ctx context.Context, guildID, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE warn
   SET discarded = TRUE
 WHERE guild_id = $1 AND user_id = $2 AND discarded = FALSE
`, guildID, userID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ListByUser: más recientes primero, incluye descartadas.
func (r *WarnRepo) ListByUser(ctx context.Context, guildID, userID string, limit int) ([]domain.Warning, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+warnColumns+`
  FROM warn
 WHERE guild_id = $1 AND user_id = $2
 ORDER BY created_at DESC, id DESC
 LIMIT $3
`, guildID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Warning
	for rows.Next() {
		w, err := scanWarn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWarn(s rowScanner) (domain.Warning, error) {
	var w domain.Warning
	var sev string
	err := s.Scan(&w.ID, &w.GuildID, &w.UserID, &w.WarnedBy, &w.CreatedAt, &sev, &w.SeverityWeight, &w.Reason, &w.Discarded)
	w.Severity = domain.Severity(sev)
	return w, err
}
