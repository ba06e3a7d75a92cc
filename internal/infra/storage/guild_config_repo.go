package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

// GuildConfigRepo guarda la config de moderación por guild. La primera lectura
// de un guild sin fila inserta los defaults del proceso.
type GuildConfigRepo struct {
	db       *sql.DB
	defaults domain.GuildModeration
}

func NewGuildConfigRepo(db *sql.DB, defaults domain.GuildModeration) *GuildConfigRepo {
	return &GuildConfigRepo{db: db, defaults: defaults}
}

func (r *GuildConfigRepo) Get(ctx context.Context, guildID string) (domain.GuildModeration, error) {
	var g domain.GuildModeration
	err := r.db.QueryRowContext(ctx, `
SELECT guild_id, max_warn_severity, warn_timeout_days, mute_role_id, log_channel_id, staff_role_id, created_at, updated_at
  FROM guild_moderation
 WHERE guild_id = $1
`, guildID).Scan(
		&g.GuildID, &g.MaxWarnSeverity, &g.WarnTimeoutDays, &g.MuteRoleID, &g.LogChannelID, &g.StaffRoleID, &g.CreatedAt, &g.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// crea default
		d := r.defaults
		_, err := r.db.ExecContext(ctx, `
INSERT INTO guild_moderation (guild_id, max_warn_severity, warn_timeout_days, mute_role_id, log_channel_id, staff_role_id)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (guild_id) DO NOTHING
`, guildID, d.MaxWarnSeverity, d.WarnTimeoutDays, d.MuteRoleID, d.LogChannelID, d.StaffRoleID)
		if err != nil {
			return domain.GuildModeration{}, err
		}
		return r.Get(ctx, guildID)
	}
	return g, err
}

// Update aplica sólo los campos no-nil del patch.
func (r *GuildConfigRepo) Update(ctx context.Context, guildID string, u GuildModerationUpdate) (domain.GuildModeration, error) {
	// asegura que la fila exista
	if _, err := r.Get(ctx, guildID); err != nil {
		return domain.GuildModeration{}, err
	}

	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	i := 1
	add := func(col string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, v)
		i++
	}

	if u.MaxWarnSeverity != nil {
		add("max_warn_severity", *u.MaxWarnSeverity)
	}
	if u.WarnTimeoutDays != nil {
		add("warn_timeout_days", *u.WarnTimeoutDays)
	}
	if u.MuteRoleID != nil {
		add("mute_role_id", *u.MuteRoleID)
	}
	if u.LogChannelID != nil {
		add("log_channel_id", *u.LogChannelID)
	}
	if u.StaffRoleID != nil {
		add("staff_role_id", *u.StaffRoleID)
	}
	if len(sets) == 0 {
		// nada que cambiar
		return r.Get(ctx, guildID)
	}
	add("updated_at", time.Now())
	args = append(args, guildID)

	_, err := r.db.ExecContext(ctx, `
UPDATE guild_moderation
   SET `+strings.Join(sets, ", ")+`
 WHERE guild_id = $`+fmt.Sprint(i), args...)
	if err != nil {
		return domain.GuildModeration{}, err
	}
	return r.Get(ctx, guildID)
}

// ListGuildIDs devuelve los guilds con config; el sweeper recorre esta lista.
func (r *GuildConfigRepo) ListGuildIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT guild_id FROM guild_moderation ORDER BY guild_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
