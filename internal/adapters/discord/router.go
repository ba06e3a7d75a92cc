package discord

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/modledger-bot/internal/app/service"
	"github.com/jose-valero/modledger-bot/internal/app/workpool"
)

const (
	commandTimeout = 12 * time.Second
	purgeTimeout   = 10 * time.Minute
)

type Router struct {
	s       *discordgo.Session
	guildID string

	mod    *service.ModerationService
	modcfg *service.ModConfigService
	purge  *service.PurgeService

	pool         *workpool.Pool
	adminRoleIDs []string
	limiter      *userLimiter
	commands     registry
	log          logrus.FieldLogger
}

func NewRouter(
	s *discordgo.Session,
	guildID string,
	mod *service.ModerationService,
	modcfg *service.ModConfigService,
	purge *service.PurgeService,
	pool *workpool.Pool,
	adminRoleIDs []string,
	log logrus.FieldLogger,
) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	replyLog = log
	r := &Router{
		s:            s,
		guildID:      guildID,
		mod:          mod,
		modcfg:       modcfg,
		purge:        purge,
		pool:         pool,
		adminRoleIDs: adminRoleIDs,
		limiter:      newUserLimiter(2 * time.Second),
		log:          log,
	}
	r.commands = r.buildRegistry()
	return r
}

func (r *Router) buildRegistry() registry {
	reg := registry{}
	reg.add(Command{Def: warnCmd, Access: accessStaff, Handler: r.handleWarn})
	reg.add(Command{Def: clearWarnsCmd, Access: accessStaff, Handler: r.handleClearWarns})
	reg.add(Command{Def: warnsCmd, Access: accessStaff, Handler: r.handleWarns})
	reg.add(Command{Def: muteCmd, Access: accessStaff, Handler: r.handleMute})
	reg.add(Command{Def: unmuteCmd, Access: accessStaff, Handler: r.handleUnmute})
	reg.add(Command{Def: banCmd, Access: accessStaff, Handler: r.handleBan})
	reg.add(Command{Def: purgeCmd, Access: accessStaff, Handler: r.handlePurge})
	reg.add(Command{Def: modConfigCmd, Access: accessAdmin, Handler: r.handleModConfig})
	return reg
}

// Register pisa los comandos del guild con los del registro.
func (r *Router) Register() error {
	appID := r.s.State.User.ID
	_, err := r.s.ApplicationCommandBulkOverwrite(appID, r.guildID, r.commands.defs())
	return err
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		// el gateway no espera: el comando corre en el pool
		err := r.pool.Submit(context.Background(), func() { r.handleSlashCommand(s, ic) })
		if err != nil {
			r.log.WithError(err).Warn("pool submit failed")
		}
	})
}

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	u := invoker(ic)
	log := r.log.WithFields(logrus.Fields{"cmd": data.Name, "guild": ic.GuildID, "req_id": uuid.NewString()})
	if u != nil {
		log = log.WithField("by", u.ID)
	}
	log.Info("slash")

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("panic in cmd /%s: %v", data.Name, rec)
			ReplyEphemeral(s, ic, "❌ Ocurrió un error inesperado procesando el comando. Contacta con un administrador.")
		}
	}()

	cmd, ok := r.commands[data.Name]
	if !ok {
		_ = SendEphemeral(s, ic, "Comando desconocido.")
		return
	}
	if ic.GuildID == "" || u == nil {
		_ = SendEphemeral(s, ic, "Este comando sólo se puede usar dentro de un servidor.")
		return
	}
	if !r.limiter.Allow(u.ID) {
		_ = SendEphemeral(s, ic, "⏳ Más despacio, probá en un par de segundos.")
		return
	}

	_ = DeferEphemeral(s, ic)
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if !r.requireAccess(ctx, s, ic, cmd.Access) {
		return
	}

	done := step(log, "cmd."+data.Name)
	err := cmd.Handler(ctx, &Ctx{Log: log, Session: s, Event: ic, GuildID: ic.GuildID, Invoker: u})
	done()
	if err != nil {
		log.WithError(err).Warn("command failed")
		ReplyEphemeral(s, ic, errorMessage(err))
	}
}
