package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// requireAccess contesta el rechazo y devuelve false si el invocador no alcanza el nivel.
func (r *Router) requireAccess(ctx context.Context, s *discordgo.Session, ic *discordgo.InteractionCreate, lvl access) bool {
	if ic.Member == nil || ic.Member.User == nil {
		ReplyEphemeral(s, ic, "🔒 Este comando sólo se puede usar dentro de un servidor.")
		return false
	}

	// Owner
	if g, _ := s.State.Guild(ic.GuildID); g != nil && ic.Member.User.ID == g.OwnerID {
		return true
	}

	// Administrator bit (Discord ya lo calcula en la interacción)
	if ic.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}

	allowed := append([]string(nil), r.adminRoleIDs...)
	if lvl == accessStaff {
		if cfg, err := r.modcfg.Get(ctx, ic.GuildID); err == nil && cfg.StaffRoleID != "" {
			allowed = append(allowed, cfg.StaffRoleID)
		}
	}
	if hasAnyRole(ic.Member.Roles, allowed) {
		return true
	}

	ReplyEphemeral(s, ic, "🔒 No tienes permisos para esta acción.")
	return false
}

func hasAnyRole(have, want []string) bool {
	if len(want) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(have))
	for _, rid := range have {
		set[rid] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}

// canBanMember: el objetivo no es owner, el moderador tiene BanMembers (o admin)
// y su rol más alto está por encima del rol más alto del objetivo.
// target nil = el usuario no está en el guild.
func canBanMember(g *discordgo.Guild, roles []*discordgo.Role, mod, target *discordgo.Member) bool {
	if mod == nil || mod.User == nil {
		return false
	}
	if target != nil && target.User != nil && target.User.ID == g.OwnerID {
		return false
	}
	if mod.User.ID == g.OwnerID {
		return true
	}

	byID := make(map[string]*discordgo.Role, len(roles))
	for _, ro := range roles {
		byID[ro.ID] = ro
	}

	var perms int64
	if everyone, ok := byID[g.ID]; ok {
		perms |= everyone.Permissions
	}
	for _, rid := range mod.Roles {
		if ro, ok := byID[rid]; ok {
			perms |= ro.Permissions
		}
	}
	if perms&(discordgo.PermissionAdministrator|discordgo.PermissionBanMembers) == 0 {
		return false
	}
	if target == nil {
		return true
	}
	return topPosition(byID, mod.Roles) > topPosition(byID, target.Roles)
}

func topPosition(byID map[string]*discordgo.Role, ids []string) int {
	top := 0
	for _, rid := range ids {
		if ro, ok := byID[rid]; ok && ro.Position > top {
			top = ro.Position
		}
	}
	return top
}
