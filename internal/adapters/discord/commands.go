package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

var (
	permModerate int64 = discordgo.PermissionModerateMembers
	permBan      int64 = discordgo.PermissionBanMembers
	permManage   int64 = discordgo.PermissionManageGuild
	permMessages int64 = discordgo.PermissionManageMessages
)

var commandOrder = []string{"warn", "clearwarns", "warns", "mute", "unmute", "ban", "purge", "modconfig"}

func userOpt(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: desc, Required: true,
	}
}

func quietOpt() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionBoolean, Name: "quiet", Description: "No avisar en este canal",
	}
}

func reasonOpt(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Motivo", Required: required,
	}
}

func severityChoices() []*discordgo.ApplicationCommandOptionChoice {
	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, 3)
	for _, s := range domain.Severities() {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: string(s), Value: string(s)})
	}
	return out
}

var warnCmd = &discordgo.ApplicationCommand{
	Name:                     "warn",
	Description:              "Advierte a un usuario",
	DefaultMemberPermissions: &permModerate,
	Options: []*discordgo.ApplicationCommandOption{
		userOpt("Usuario a advertir"),
		{
			Type: discordgo.ApplicationCommandOptionString, Name: "severity", Description: "Severidad",
			Required: true, Choices: severityChoices(),
		},
		reasonOpt(true),
		quietOpt(),
	},
}

var clearWarnsCmd = &discordgo.ApplicationCommand{
	Name:                     "clearwarns",
	Description:              "Descarta todas las advertencias de un usuario",
	DefaultMemberPermissions: &permModerate,
	Options:                  []*discordgo.ApplicationCommandOption{userOpt("Usuario")},
}

var warnsCmd = &discordgo.ApplicationCommand{
	Name:                     "warns",
	Description:              "Lista las advertencias de un usuario",
	DefaultMemberPermissions: &permModerate,
	Options:                  []*discordgo.ApplicationCommandOption{userOpt("Usuario")},
}

var muteCmd = &discordgo.ApplicationCommand{
	Name:                     "mute",
	Description:              "Mutea a un usuario (se apila si ya está muteado)",
	DefaultMemberPermissions: &permModerate,
	Options: []*discordgo.ApplicationCommandOption{
		userOpt("Usuario a mutear"),
		reasonOpt(true),
		{
			Type: discordgo.ApplicationCommandOptionString, Name: "duration",
			Description: "Duración ISO-8601 (PT30M, P1D, PT1H30M). Default PT30M",
		},
		quietOpt(),
	},
}

var unmuteCmd = &discordgo.ApplicationCommand{
	Name:                     "unmute",
	Description:              "Saca el mute de un usuario",
	DefaultMemberPermissions: &permModerate,
	Options:                  []*discordgo.ApplicationCommandOption{userOpt("Usuario")},
}

var banCmd = &discordgo.ApplicationCommand{
	Name:                     "ban",
	Description:              "Banea a un usuario",
	DefaultMemberPermissions: &permBan,
	Options: []*discordgo.ApplicationCommandOption{
		userOpt("Usuario a banear"),
		reasonOpt(true),
		quietOpt(),
	},
}

var purgeCmd = &discordgo.ApplicationCommand{
	Name:                     "purge",
	Description:              "Borra los mensajes del canal desde un mensaje en adelante",
	DefaultMemberPermissions: &permMessages,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type: discordgo.ApplicationCommandOptionString, Name: "until",
			Description: "Id del primer mensaje a borrar", Required: true,
		},
		{
			Type: discordgo.ApplicationCommandOptionUser, Name: "user",
			Description: "Borrar sólo los mensajes de este usuario",
		},
	},
}

var modConfigCmd = &discordgo.ApplicationCommand{
	Name:                     "modconfig",
	Description:              "Ver o cambiar la config de moderación (admins)",
	DefaultMemberPermissions: &permManage,
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "show", Description: "Ver configuración"},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set",
			Description: "Actualizar configuración (sólo lo que pases)",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "max_warn_severity", Description: "Severidad total que dispara el ban"},
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "warn_timeout_days", Description: "Días que cuenta una advertencia"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "mute_role", Description: "Rol de mute"},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "log_channel", Description: "Canal de log de moderación"},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "staff_role", Description: "Rol de staff"},
			},
		},
	},
}
