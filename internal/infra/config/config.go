package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required,notEmpty"`
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordGuild string `env:"DISCORD_GUILD_ID,required,notEmpty"` // guild donde se registran los comandos
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
	WorkerPoolSize int           `env:"WORKER_POOL_SIZE" envDefault:"4"`
	AdminRoleIDs   []string      `env:"ADMIN_ROLE_IDS" envSeparator:","`

	// defaults para guilds sin fila en guild_moderation
	DefaultMaxWarnSeverity int    `env:"DEFAULT_MAX_WARN_SEVERITY" envDefault:"100"`
	DefaultWarnTimeoutDays int    `env:"DEFAULT_WARN_TIMEOUT_DAYS" envDefault:"30"`
	DefaultMuteRoleID      string `env:"DEFAULT_MUTE_ROLE_ID"`
	DefaultLogChannelID    string `env:"DEFAULT_LOG_CHANNEL_ID"`
	DefaultStaffRoleID     string `env:"DEFAULT_STAFF_ROLE_ID"`
}

// Load lee .env (si existe) y después el entorno.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse sólo lee el entorno.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.AdminRoleIDs = compact(cfg.AdminRoleIDs)

	if cfg.SweepInterval < time.Second {
		return Config{}, fmt.Errorf("SWEEP_INTERVAL demasiado chico: %s", cfg.SweepInterval)
	}
	if cfg.WorkerPoolSize < 1 {
		return Config{}, fmt.Errorf("WORKER_POOL_SIZE tiene que ser >= 1")
	}
	if cfg.DefaultMaxWarnSeverity <= 0 || cfg.DefaultWarnTimeoutDays <= 0 {
		return Config{}, fmt.Errorf("DEFAULT_MAX_WARN_SEVERITY y DEFAULT_WARN_TIMEOUT_DAYS tienen que ser > 0")
	}
	return cfg, nil
}

// GuildDefaults: la fila que se crea para un guild nuevo.
func (c Config) GuildDefaults() domain.GuildModeration {
	return domain.GuildModeration{
		MaxWarnSeverity: c.DefaultMaxWarnSeverity,
		WarnTimeoutDays: c.DefaultWarnTimeoutDays,
		MuteRoleID:      c.DefaultMuteRoleID,
		LogChannelID:    c.DefaultLogChannelID,
		StaffRoleID:     c.DefaultStaffRoleID,
	}
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
