// janitor: una pasada del sweep de mutes vencidos por invocación (EventBridge cada minuto).
package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	discordrouter "github.com/jose-valero/modledger-bot/internal/adapters/discord"
	"github.com/jose-valero/modledger-bot/internal/app/service"
	"github.com/jose-valero/modledger-bot/internal/infra/config"
	"github.com/jose-valero/modledger-bot/internal/infra/logging"
	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

type result struct {
	Guilds  int `json:"guilds"`
	Expired int `json:"expired"`
	Unmuted int `json:"unmuted"`
	Failed  int `json:"failed"`
}

func handler(ctx context.Context) (result, error) {
	cfg, err := config.Parse()
	if err != nil {
		return result{}, err
	}
	log, err := logging.New(cfg.LogLevel, "json")
	if err != nil {
		return result{}, err
	}

	db, err := storage.Open(ctx, cfg.DatabaseURL, storage.PoolOptions{MaxOpenConns: 2, MaxIdleConns: 1})
	if err != nil {
		return result{}, fmt.Errorf("db: %w", err)
	}
	defer db.Close()

	// sólo REST: no hace falta abrir el gateway
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return result{}, err
	}
	s.StateEnabled = false

	guildCfgs := storage.NewGuildConfigRepo(db, cfg.GuildDefaults())
	platform := discordrouter.NewPlatform(s)
	notifier := service.NewNotifier(platform, log)
	svc := service.NewModerationService(service.NewSQLStore(db), platform, guildCfgs, notifier, service.WithLogger(log))

	reps := service.NewSweeper(svc, guildCfgs, 0, log).RunOnce(ctx)
	// la lambda se congela al volver: las notificaciones tienen que salir antes
	notifier.Wait()

	out := result{Guilds: len(reps)}
	for _, r := range reps {
		out.Expired += r.Expired
		out.Unmuted += r.Unmuted
		out.Failed += r.Failed
	}
	log.WithFields(logrus.Fields{"guilds": out.Guilds, "expired": out.Expired, "unmuted": out.Unmuted}).Info("janitor sweep")
	return out, nil
}

func main() { lambda.Start(handler) }
