package service

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/modledger-bot/internal/domain"
	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

// Lo implementa internal/adapters/discord.Platform
type Platform interface {
	SendDirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error
	SendChannelMessage(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error
	AddMuteRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveMuteRole(ctx context.Context, guildID, userID, roleID string) error
	HasMuteRole(ctx context.Context, guildID, userID, roleID string) (bool, error)
	BanUser(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error
	IsBanned(ctx context.Context, guildID, userID string) (bool, error)
	CanBan(ctx context.Context, guildID, moderatorID, targetID string) (bool, error)
}

// Lo implementa internal/infra/storage.GuildConfigRepo
type GuildConfigs interface {
	Get(ctx context.Context, guildID string) (domain.GuildModeration, error)
	Update(ctx context.Context, guildID string, u storage.GuildModerationUpdate) (domain.GuildModeration, error)
	ListGuildIDs(ctx context.Context) ([]string, error)
}

// Lo implementa internal/infra/storage.WarnRepo
type WarnLedger interface {
	Insert(ctx context.Context, guildID, userID, warnedBy string, sev domain.Severity, reason string) (domain.Warning, error)
	TotalActiveSeverity(ctx context.Context, guildID, userID string, cutoff time.Time) (int, error)
	DiscardAll(ctx context.Context, guildID, userID string) (int64, error)
	ListByUser(ctx context.Context, guildID, userID string, limit int) ([]domain.Warning, error)
}

// Lo implementa internal/infra/storage.MuteRepo
type MuteLedger interface {
	Insert(ctx context.Context, guildID, userID, mutedBy, reason string, endsAt time.Time) (domain.Mute, error)
	ActiveMutes(ctx context.Context, guildID, userID string, now time.Time) ([]domain.Mute, error)
	HasActiveMutes(ctx context.Context, guildID, userID string, now time.Time) (bool, error)
	ExpiredMutes(ctx context.Context, guildID string, now time.Time) ([]domain.Mute, error)
	Discard(ctx context.Context, id int64) error
	DiscardIDs(ctx context.Context, ids []int64) (int64, error)
	DiscardAllActive(ctx context.Context, guildID, userID string, now time.Time) (int64, error)
}

// Ledgers agrupa los dos ledgers atados a la misma conexión o transacción.
type Ledgers struct {
	Warns WarnLedger
	Mutes MuteLedger
}

// Store da acceso a los ledgers. InTx serializa las transacciones del mismo guild
// (también entre procesos) y hace commit sólo si fn devuelve nil.
type Store interface {
	Ledgers() Ledgers
	InTx(ctx context.Context, guildID string, fn func(l Ledgers) error) error
}
