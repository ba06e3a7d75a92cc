package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/modledger-bot/internal/app/service"
)

// findOpt busca una opción por nombre, también dentro de un subcomando.
func findOpt(ic *discordgo.InteractionCreate, name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Name == name {
			return o, true
		}
		// subcommand
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			for _, so := range o.Options {
				if so.Name == name {
					return so, true
				}
			}
		}
	}
	return nil, false
}

func optStr(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionString {
		return "", false
	}
	return o.StringValue(), true
}

func optBool(ic *discordgo.InteractionCreate, name string) (bool, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionBoolean {
		return false, false
	}
	return o.BoolValue(), true
}

func optInt(ic *discordgo.InteractionCreate, name string) (int, bool) {
	o, ok := findOpt(ic, name)
	if !ok || o.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return int(o.IntValue()), true
}

// optID devuelve el snowflake de opciones user/role/channel/mentionable.
func optID(ic *discordgo.InteractionCreate, name string) (string, bool) {
	o, ok := findOpt(ic, name)
	if !ok {
		return "", false
	}
	switch o.Type {
	case discordgo.ApplicationCommandOptionUser, discordgo.ApplicationCommandOptionRole,
		discordgo.ApplicationCommandOptionChannel, discordgo.ApplicationCommandOptionMentionable:
		id, _ := o.Value.(string)
		return id, id != ""
	}
	return "", false
}

// optUser usa los datos resueltos de la interacción (traen el flag Bot).
func optUser(ic *discordgo.InteractionCreate, name string) (*discordgo.User, bool) {
	id, ok := optID(ic, name)
	if !ok {
		return nil, false
	}
	if res := ic.ApplicationCommandData().Resolved; res != nil {
		if u, ok := res.Users[id]; ok && u != nil {
			return u, true
		}
	}
	return &discordgo.User{ID: id}, true
}

func subcmdName(ic *discordgo.InteractionCreate) (string, bool) {
	if ic.Type != discordgo.InteractionApplicationCommand {
		return "", false
	}
	for _, o := range ic.ApplicationCommandData().Options {
		if o.Type == discordgo.ApplicationCommandOptionSubCommand {
			return o.Name, true
		}
	}
	return "", false
}

func invoker(ic *discordgo.InteractionCreate) *discordgo.User {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User
	}
	return ic.User
}

func userRef(u *discordgo.User) service.UserRef {
	if u == nil {
		return service.UserRef{}
	}
	ref := service.UserRef{ID: u.ID, Name: u.Username}
	if u.GlobalName != "" {
		ref.Name = u.GlobalName
	}
	if u.Avatar != "" {
		ref.AvatarURL = u.AvatarURL("")
	}
	return ref
}
