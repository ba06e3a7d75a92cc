package discord

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/modledger-bot/internal/app/service"
)

// Platform implementa service.Platform sobre la sesión de discordgo.
type Platform struct {
	s *discordgo.Session
}

func NewPlatform(s *discordgo.Session) *Platform { return &Platform{s: s} }

func (p *Platform) SendDirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	ch, err := p.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = p.s.ChannelMessageSendEmbed(ch.ID, embed, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) SendChannelMessage(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	_, err := p.s.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx))
	return err
}

func (p *Platform) AddMuteRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return p.s.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
}

func (p *Platform) RemoveMuteRole(ctx context.Context, guildID, userID, roleID string) error {
	err := p.s.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx))
	if isUnknownMember(err) {
		// ya no está en el guild: no hay rol que sacar
		return nil
	}
	return err
}

// HasMuteRole: un usuario que se fue del guild no tiene el rol.
func (p *Platform) HasMuteRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	m, err := p.member(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	if m == nil {
		return false, nil
	}
	for _, rid := range m.Roles {
		if rid == roleID {
			return true, nil
		}
	}
	return false, nil
}

func (p *Platform) BanUser(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error {
	return p.s.GuildBanCreateWithReason(guildID, userID, reason, deleteMessageDays, discordgo.WithContext(ctx))
}

// IsBanned consulta el ban del guild; un 404 es "no baneado".
func (p *Platform) IsBanned(ctx context.Context, guildID, userID string) (bool, error) {
	_, err := p.s.GuildBan(guildID, userID, discordgo.WithContext(ctx))
	if err == nil {
		return true, nil
	}
	var re *discordgo.RESTError
	if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

func (p *Platform) CanBan(ctx context.Context, guildID, moderatorID, targetID string) (bool, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return false, err
	}
	roles := g.Roles
	if len(roles) == 0 {
		if roles, err = p.s.GuildRoles(guildID, discordgo.WithContext(ctx)); err != nil {
			return false, err
		}
	}
	mod, err := p.member(ctx, guildID, moderatorID)
	if err != nil {
		return false, err
	}
	target, err := p.member(ctx, guildID, targetID)
	if err != nil {
		return false, err
	}
	return canBanMember(g, roles, mod, target), nil
}

func (p *Platform) ChannelMessage(ctx context.Context, channelID, messageID string) (service.ChannelMessage, error) {
	m, err := p.s.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return service.ChannelMessage{}, err
	}
	return toChannelMessage(m), nil
}

func (p *Platform) MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]service.ChannelMessage, error) {
	msgs, err := p.s.ChannelMessages(channelID, limit, "", afterID, "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]service.ChannelMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toChannelMessage(m))
	}
	return out, nil
}

func (p *Platform) BulkDelete(ctx context.Context, channelID string, ids []string) error {
	return p.s.ChannelMessagesBulkDelete(channelID, ids, discordgo.WithContext(ctx))
}

func (p *Platform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	return p.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func toChannelMessage(m *discordgo.Message) service.ChannelMessage {
	cm := service.ChannelMessage{ID: m.ID, CreatedAt: m.Timestamp}
	if m.Author != nil {
		cm.AuthorID = m.Author.ID
	}
	return cm
}

// member: primero el state, después REST. nil,nil si no es miembro.
func (p *Platform) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if m, err := p.s.State.Member(guildID, userID); err == nil && m != nil {
		return m, nil
	}
	m, err := p.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if isUnknownMember(err) {
		return nil, nil
	}
	return m, err
}

func (p *Platform) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if g, err := p.s.State.Guild(guildID); err == nil && g != nil {
		return g, nil
	}
	return p.s.Guild(guildID, discordgo.WithContext(ctx))
}

func isUnknownMember(err error) bool {
	var re *discordgo.RESTError
	if !errors.As(err, &re) {
		return false
	}
	if re.Message != nil && (re.Message.Code == discordgo.ErrCodeUnknownMember || re.Message.Code == discordgo.ErrCodeUnknownUser) {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusNotFound
}
