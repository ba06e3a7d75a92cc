package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ExpiryRunner lo cumple *ModerationService.
type ExpiryRunner interface {
	UnmuteExpired(ctx context.Context, guildID string) (SweepReport, error)
}

type GuildLister interface {
	ListGuildIDs(ctx context.Context) ([]string, error)
}

// Sweeper corre el barrido de mutes vencidos con delay fijo: el próximo timer
// se arma recién cuando terminó la pasada anterior, así nunca se solapa.
type Sweeper struct {
	runner   ExpiryRunner
	guilds   GuildLister
	interval time.Duration
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewSweeper(r ExpiryRunner, g GuildLister, interval time.Duration, log logrus.FieldLogger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{runner: r, guilds: g, interval: interval, timeout: 2 * time.Minute, log: log}
}

// Run bloquea hasta que ctx se cancele. La pasada en curso termina igual.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTimer(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s.RunOnce(context.WithoutCancel(ctx))
		if ctx.Err() != nil {
			return
		}
		t.Reset(s.interval)
	}
}

// RunOnce hace una pasada por todos los guilds. Un error en un guild no corta el resto.
func (s *Sweeper) RunOnce(ctx context.Context) []SweepReport {
	passID := uuid.NewString()
	log := s.log.WithField("pass_id", passID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ids, err := s.guilds.ListGuildIDs(ctx)
	if err != nil {
		sweepPasses.WithLabelValues("error").Inc()
		log.WithError(err).Warn("sweep: listing guilds failed; retry next tick")
		return nil
	}

	out := make([]SweepReport, 0, len(ids))
	for _, g := range ids {
		rep, err := s.guild(ctx, g)
		if err != nil {
			sweepPasses.WithLabelValues("error").Inc()
			log.WithField("guild", g).WithError(err).Warn("sweep: guild pass failed; retry next tick")
			continue
		}
		sweepPasses.WithLabelValues("ok").Inc()
		out = append(out, rep)
	}
	return out
}

func (s *Sweeper) guild(ctx context.Context, guildID string) (rep SweepReport, err error) {
	start := time.Now()
	defer func() {
		sweepDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panic: %v", r)
		}
	}()
	return s.runner.UnmuteExpired(ctx, guildID)
}
