package service

import (
	"context"
	"fmt"

	"github.com/jose-valero/modledger-bot/internal/domain"
	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

// ModConfigService atiende /modconfig show|set.
type ModConfigService struct {
	repo GuildConfigs
}

func NewModConfigService(r GuildConfigs) *ModConfigService { return &ModConfigService{repo: r} }

func (s *ModConfigService) Get(ctx context.Context, guildID string) (domain.GuildModeration, error) {
	g, err := s.repo.Get(ctx, guildID)
	return g, domain.Persistence("modconfig get", err)
}

func (s *ModConfigService) Show(ctx context.Context, guildID string) (string, error) {
	g, err := s.Get(ctx, guildID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(
		"**Moderación de %s**\n• max_warn_severity: **%d**\n• warn_timeout_days: **%d**\n• mute_role: %s\n• log_channel: %s\n• staff_role: %s",
		guildID, g.MaxWarnSeverity, g.WarnTimeoutDays, roleMention(g.MuteRoleID), channelMention(g.LogChannelID), roleMention(g.StaffRoleID),
	), nil
}

func (s *ModConfigService) Update(ctx context.Context, guildID string, patch storage.GuildModerationUpdate) (string, error) {
	const op = "modconfig set"
	if patch.Empty() {
		return "", domain.Validation(op, "no hay nada para cambiar")
	}
	if patch.MaxWarnSeverity != nil && *patch.MaxWarnSeverity <= 0 {
		return "", domain.Validation(op, "max_warn_severity tiene que ser > 0")
	}
	if patch.WarnTimeoutDays != nil && *patch.WarnTimeoutDays <= 0 {
		return "", domain.Validation(op, "warn_timeout_days tiene que ser > 0")
	}
	if _, err := s.repo.Update(ctx, guildID, patch); err != nil {
		return "", domain.Persistence(op, err)
	}
	return s.Show(ctx, guildID)
}

func roleMention(id string) string {
	if id == "" {
		return "_(sin configurar)_"
	}
	return "<@&" + id + ">"
}

func channelMention(id string) string {
	if id == "" {
		return "_(sin configurar)_"
	}
	return "<#" + id + ">"
}
