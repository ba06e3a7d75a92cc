package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	discordrouter "github.com/jose-valero/modledger-bot/internal/adapters/discord"
	"github.com/jose-valero/modledger-bot/internal/adapters/httpapi"
	"github.com/jose-valero/modledger-bot/internal/app/service"
	"github.com/jose-valero/modledger-bot/internal/app/workpool"
	"github.com/jose-valero/modledger-bot/internal/infra/config"
	"github.com/jose-valero/modledger-bot/internal/infra/logging"
	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}
	logging.RouteDiscordgo(log)

	// DB
	db, err := storage.Open(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Info("✅ DB lista y migrada")

	// Repos
	guildCfgs := storage.NewGuildConfigRepo(db, cfg.GuildDefaults())
	// asegura la fila del guild principal: el sweeper recorre guild_moderation
	if _, err := guildCfgs.Get(context.Background(), cfg.DiscordGuild); err != nil {
		log.Fatalf("guild config: %v", err)
	}

	// Discord session
	auth := cfg.DiscordToken
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(auth)), "bot ") {
		auth = "Bot " + strings.TrimSpace(auth)
	}
	s, err := discordgo.New(auth)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds
	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Infof("✅ Conectado como %s (%s)", s.State.User.Username, s.State.User.ID)

	// Services
	platform := discordrouter.NewPlatform(s)
	notifier := service.NewNotifier(platform, log.WithField("component", "notifier"))
	modSvc := service.NewModerationService(
		service.NewSQLStore(db), platform, guildCfgs, notifier,
		service.WithLogger(log.WithField("component", "moderation")),
	)
	modCfgSvc := service.NewModConfigService(guildCfgs)

	// HTTP health + metrics
	web := httpapi.New(db, log.WithField("component", "http"))
	go func() {
		if err := web.Start(cfg.HTTPAddr); err != nil {
			log.WithError(err).Error("http server")
		}
	}()

	// Router
	pool := workpool.New(cfg.WorkerPoolSize)
	pool.OnPanic = func(v any) { log.Errorf("panic in worker: %v", v) }
	purgeSvc := service.NewPurgeService(platform, log.WithField("component", "purge"))
	r := discordrouter.NewRouter(s, cfg.DiscordGuild, modSvc, modCfgSvc, purgeSvc, pool, cfg.AdminRoleIDs, log.WithField("component", "router"))
	if err := r.Register(); err != nil {
		log.Fatalf("registrando comandos: %v", err)
	}
	r.Handlers()
	log.Infof("✅ comandos registrados en guild %s", cfg.DiscordGuild)

	// Sweeper de mutes vencidos
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := service.NewSweeper(modSvc, guildCfgs, cfg.SweepInterval, log.WithField("component", "sweeper"))
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(ctx)
	}()

	// Esperar señal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("apagando...")

	// la pasada en curso del sweeper termina; después se drenan comandos y notificaciones
	cancel()
	<-sweepDone
	pool.Wait()
	notifier.Wait()

	shCtx, shCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shCancel()
	_ = web.Shutdown(shCtx)
}
