// handlers de los slash commands: validan la entrada y despachan al servicio de moderación
package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/modledger-bot/internal/app/service"
	"github.com/jose-valero/modledger-bot/internal/domain"
	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

// targetUser lee la opción "user"; los bots se rechazan acá, antes del ledger.
func targetUser(c *Ctx, verb string) (*discordgo.User, error) {
	u, ok := optUser(c.Event, "user")
	if !ok {
		return nil, domain.Validation(verb, "falta el usuario")
	}
	if u.Bot {
		return nil, domain.Validation(verb, fmt.Sprintf("no se puede %s a bots", verb))
	}
	return u, nil
}

func (r *Router) handleWarn(ctx context.Context, c *Ctx) error {
	u, err := targetUser(c, "advertir")
	if err != nil {
		return err
	}
	raw, _ := optStr(c.Event, "severity")
	sev, err := domain.ParseSeverity(raw)
	if err != nil {
		return err
	}
	reason, _ := optStr(c.Event, "reason")
	quiet, _ := optBool(c.Event, "quiet")

	res, err := r.mod.Warn(ctx, service.WarnRequest{
		GuildID:   c.GuildID,
		Target:    userRef(u),
		Moderator: userRef(c.Invoker),
		Severity:  sev,
		Reason:    reason,
		ChannelID: c.Event.ChannelID,
		Quiet:     quiet,
	})
	if err != nil && !service.IsPartial(err) {
		return err
	}

	msg := fmt.Sprintf("✅ Advertencia %s para <@%s> (%d/%d).", sev, u.ID, res.TotalSeverity, res.MaxSeverity)
	switch {
	case res.Banned:
		msg += "\n🔨 Superó el máximo: usuario baneado."
	case res.AlreadyBanned:
		msg += "\n🔨 Superó el máximo; ya estaba baneado."
	}
	if err != nil {
		msg = partialMessage(msg+"\n🔨 Superó el máximo pero el ban no salió.", err)
	}
	c.Reply(msg)
	return nil
}

func (r *Router) handleClearWarns(ctx context.Context, c *Ctx) error {
	u, ok := optUser(c.Event, "user")
	if !ok {
		return domain.Validation("clearwarns", "falta el usuario")
	}
	n, err := r.mod.ClearWarns(ctx, c.GuildID, userRef(u), userRef(c.Invoker))
	if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("🧹 Se descartaron %d advertencia(s) de <@%s>.", n, u.ID))
	return nil
}

func (r *Router) handleWarns(ctx context.Context, c *Ctx) error {
	u, ok := optUser(c.Event, "user")
	if !ok {
		return domain.Validation("warns", "falta el usuario")
	}
	view, err := r.mod.Warnings(ctx, c.GuildID, u.ID, service.DefaultWarnsListed)
	if err != nil {
		return err
	}
	c.Reply("", warningsEmbed(u, view))
	return nil
}

func warningsEmbed(u *discordgo.User, v service.WarningsView) *discordgo.MessageEmbed {
	var b strings.Builder
	if len(v.Warnings) == 0 {
		b.WriteString("Sin advertencias.")
	}
	for _, w := range v.Warnings {
		line := fmt.Sprintf("`#%d` **%s** <t:%d:d> por <@%s>: %s", w.ID, w.Severity, w.CreatedAt.Unix(), w.WarnedBy, w.Reason)
		if w.Discarded {
			line = "~~" + line + "~~"
		}
		b.WriteString(line + "\n")
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Advertencias de %s", userRef(u).Display()),
		Description: b.String(),
		Color:       0xFFA500,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Total vigente %d/%d (últimos %d días)", v.TotalSeverity, v.MaxSeverity, v.WarnTimeout),
		},
	}
}

func (r *Router) handleMute(ctx context.Context, c *Ctx) error {
	u, err := targetUser(c, "mutear")
	if err != nil {
		return err
	}
	reason, _ := optStr(c.Event, "reason")
	quiet, _ := optBool(c.Event, "quiet")

	d := service.DefaultMuteDuration
	if raw, ok := optStr(c.Event, "duration"); ok && strings.TrimSpace(raw) != "" {
		if d, err = parseDuration(raw); err != nil {
			return domain.Validation("mute", err.Error())
		}
	}

	res, err := r.mod.Mute(ctx, service.MuteRequest{
		GuildID:   c.GuildID,
		Target:    userRef(u),
		Moderator: userRef(c.Invoker),
		Reason:    reason,
		Duration:  d,
		ChannelID: c.Event.ChannelID,
		Quiet:     quiet,
	})
	// sin fila commiteada no hay éxito parcial que informar
	if err != nil && (!service.IsPartial(err) || res.Mute.ID == 0) {
		return err
	}

	msg := fmt.Sprintf("🔇 <@%s> muteado hasta <t:%d:f>.", u.ID, res.Mute.EndsAt.Unix())
	if res.Extended {
		msg = fmt.Sprintf("🔇 Mute de <@%s> extendido hasta <t:%d:f>.", u.ID, res.Mute.EndsAt.Unix())
	}
	if err != nil {
		msg = partialMessage(msg, err)
	}
	c.Reply(msg)
	return nil
}

func (r *Router) handleUnmute(ctx context.Context, c *Ctx) error {
	u, ok := optUser(c.Event, "user")
	if !ok {
		return domain.Validation("unmute", "falta el usuario")
	}
	res, err := r.mod.Unmute(ctx, c.GuildID, userRef(u), userRef(c.Invoker))
	if err != nil && !service.IsPartial(err) {
		return err
	}

	msg := fmt.Sprintf("🔊 <@%s> desmuteado.", u.ID)
	if res.Discarded == 0 && !res.MarkerRemoved {
		msg = fmt.Sprintf("<@%s> no estaba muteado.", u.ID)
	}
	if err != nil {
		msg = partialMessage(msg, err)
	}
	c.Reply(msg)
	return nil
}

func (r *Router) handleBan(ctx context.Context, c *Ctx) error {
	u, ok := optUser(c.Event, "user")
	if !ok {
		return domain.Validation("ban", "falta el usuario")
	}
	reason, _ := optStr(c.Event, "reason")
	quiet, _ := optBool(c.Event, "quiet")

	err := r.mod.Ban(ctx, service.BanRequest{
		GuildID:   c.GuildID,
		Target:    userRef(u),
		Moderator: userRef(c.Invoker),
		Reason:    reason,
		ChannelID: c.Event.ChannelID,
		Quiet:     quiet,
	})
	if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("🔨 <@%s> baneado.", u.ID))
	return nil
}

// handlePurge ya corre en el pool; el borrado usa su propio plazo, no el del comando.
func (r *Router) handlePurge(_ context.Context, c *Ctx) error {
	until, _ := optStr(c.Event, "until")
	req := service.PurgeRequest{
		GuildID:   c.GuildID,
		ChannelID: c.Event.ChannelID,
		UntilID:   strings.TrimSpace(until),
		Moderator: userRef(c.Invoker),
		Started:   func() { c.Reply("🧹 Purga iniciada: los mensajes se van a borrar.") },
	}
	if u, ok := optUser(c.Event, "user"); ok {
		req.UserID = u.ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()
	rep, err := r.purge.Purge(ctx, req)
	if err != nil {
		return err
	}
	c.Reply(fmt.Sprintf("🧹 Purga terminada: %d mensaje(s) borrados.", rep.Deleted))
	return nil
}

func (r *Router) handleModConfig(ctx context.Context, c *Ctx) error {
	sub, ok := subcmdName(c.Event)
	if !ok {
		c.Reply("Usa `/modconfig show` o `/modconfig set`.")
		return nil
	}
	switch sub {
	case "show":
		msg, err := r.modcfg.Show(ctx, c.GuildID)
		if err != nil {
			return err
		}
		c.Reply(msg)
	case "set":
		msg, err := r.modcfg.Update(ctx, c.GuildID, modConfigPatch(c.Event))
		if err != nil {
			return err
		}
		c.Reply("✅ Configuración actualizada.\n" + msg)
	}
	return nil
}

func modConfigPatch(ic *discordgo.InteractionCreate) storage.GuildModerationUpdate {
	var patch storage.GuildModerationUpdate
	if v, ok := optInt(ic, "max_warn_severity"); ok {
		patch.MaxWarnSeverity = &v
	}
	if v, ok := optInt(ic, "warn_timeout_days"); ok {
		patch.WarnTimeoutDays = &v
	}
	if v, ok := optID(ic, "mute_role"); ok {
		patch.MuteRoleID = &v
	}
	if v, ok := optID(ic, "log_channel"); ok {
		patch.LogChannelID = &v
	}
	if v, ok := optID(ic, "staff_role"); ok {
		patch.StaffRoleID = &v
	}
	return patch
}
