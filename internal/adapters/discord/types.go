package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

type Ctx struct {
	Log     logrus.FieldLogger
	Session *discordgo.Session
	Event   *discordgo.InteractionCreate
	GuildID string
	// Invoker es quien ejecutó el comando.
	Invoker *discordgo.User
}

func (c *Ctx) Reply(content string, embeds ...*discordgo.MessageEmbed) {
	ReplyEphemeral(c.Session, c.Event, content, embeds...)
}

type CommandHandler func(ctx context.Context, c *Ctx) error

type access int

const (
	accessStaff access = iota // staff_role, ADMIN_ROLE_IDS o admin
	accessAdmin               // ADMIN_ROLE_IDS o admin
)

// Command ata la definición que se registra en Discord con su handler.
type Command struct {
	Def     *discordgo.ApplicationCommand
	Access  access
	Handler CommandHandler
}

type registry map[string]Command

func (reg registry) add(c Command) { reg[c.Def.Name] = c }

func (reg registry) defs() []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(reg))
	for _, name := range commandOrder {
		if c, ok := reg[name]; ok {
			out = append(out, c.Def)
		}
	}
	return out
}
