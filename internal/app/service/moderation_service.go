package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

const (
	BanDeleteDays       = 7
	CascadeBanReason    = "Too many warnings."
	DefaultMuteDuration = 30 * time.Minute
	DefaultWarnsListed  = 10

	dmTimeout = 5 * time.Second
	// tope por llamada a Discord hecha con una transacción abierta
	platformCallTimeout = 10 * time.Second
)

type ModerationService struct {
	store    Store
	platform Platform
	configs  GuildConfigs
	notifier *Notifier
	locks    *KeyedMutex
	log      logrus.FieldLogger
	now      func() time.Time
}

type Option func(*ModerationService)

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *ModerationService) { s.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *ModerationService) { s.log = l }
}

func NewModerationService(store Store, p Platform, configs GuildConfigs, n *Notifier, opts ...Option) *ModerationService {
	s := &ModerationService{
		store:    store,
		platform: p,
		configs:  configs,
		notifier: n,
		locks:    NewKeyedMutex(),
		log:      logrus.StandardLogger(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(p, s.log)
	}
	return s
}

type WarnRequest struct {
	GuildID   string
	Target    UserRef
	Moderator UserRef
	Severity  domain.Severity
	Reason    string
	ChannelID string
	Quiet     bool
}

type WarnResult struct {
	Warning       domain.Warning
	TotalSeverity int
	MaxSeverity   int
	// Banned: el total superó el máximo y el ban externo salió bien.
	Banned bool
	// AlreadyBanned: el total superó el máximo pero el usuario ya estaba baneado.
	AlreadyBanned bool
}

// Warn inserta la advertencia y recalcula el total en la misma transacción.
// Si el total queda por encima del máximo se banea como paso aparte: el warn ya quedó
// commiteado y un error del ban vuelve como ExternalPlatform junto al resultado.
func (s *ModerationService) Warn(ctx context.Context, req WarnRequest) (res WarnResult, err error) {
	const op = "warn"
	defer func() { countAction(op, err) }()

	if err := requireTarget(op, req.GuildID, req.Target); err != nil {
		return res, err
	}
	if req.Severity.Weight() == 0 {
		return res, domain.Validation(op, "severidad desconocida: "+string(req.Severity))
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return res, domain.Validation(op, "falta el motivo")
	}

	cfg, err := s.configs.Get(ctx, req.GuildID)
	if err != nil {
		return res, domain.Persistence(op, err)
	}

	// serializa los warns del guild: dos warns simultáneos no pueden ver el mismo total
	unlock := s.locks.Lock(req.GuildID)
	defer unlock()

	now := s.now()
	err = s.store.InTx(ctx, req.GuildID, func(l Ledgers) error {
		w, err := l.Warns.Insert(ctx, req.GuildID, req.Target.ID, req.Moderator.ID, req.Severity, reason)
		if err != nil {
			return err
		}
		total, err := l.Warns.TotalActiveSeverity(ctx, req.GuildID, req.Target.ID, cfg.WarnCutoff(now))
		if err != nil {
			return err
		}
		res.Warning, res.TotalSeverity = w, total
		return nil
	})
	if err != nil {
		return WarnResult{}, domain.Persistence(op, err)
	}
	res.MaxSeverity = cfg.MaxWarnSeverity

	log := s.log.WithFields(logrus.Fields{"op": op, "guild": req.GuildID, "user": req.Target.ID})
	log.WithField("total", res.TotalSeverity).Infof("warn %s by %s", req.Severity, req.Moderator.ID)

	embed := warnEmbed(req.Target, req.Moderator, res.Warning, res.TotalSeverity, cfg.MaxWarnSeverity)
	s.notifier.Direct(req.Target.ID, embed)
	s.notifier.Channel(cfg.LogChannelID, embed)
	if !req.Quiet && req.ChannelID != cfg.LogChannelID {
		s.notifier.Channel(req.ChannelID, embed)
	}

	if !cfg.ExceedsMax(res.TotalSeverity) {
		return res, nil
	}

	// el lock del guild sigue tomado: entre warns simultáneos sólo el primero banea
	banned, err := s.platform.IsBanned(ctx, req.GuildID, req.Target.ID)
	if err != nil {
		log.WithError(err).Warn("ban lookup failed")
		return res, domain.External(op, err)
	}
	if banned {
		res.AlreadyBanned = true
		return res, nil
	}

	// el ban en cascada es una acción del sistema: no pasa por CanBan
	banErr := s.ban(ctx, cfg, BanRequest{
		GuildID:   req.GuildID,
		Target:    req.Target,
		Moderator: req.Moderator,
		Reason:    CascadeBanReason,
		ChannelID: req.ChannelID,
		Quiet:     req.Quiet,
	})
	if banErr != nil {
		log.WithError(banErr).Warn("cascade ban failed")
		return res, banErr
	}
	res.Banned = true
	return res, nil
}

// ClearWarns descarta todas las advertencias del usuario y devuelve cuántas.
func (s *ModerationService) ClearWarns(ctx context.Context, guildID string, target, moderator UserRef) (n int64, err error) {
	const op = "clear_warns"
	defer func() { countAction(op, err) }()

	if err := requireTarget(op, guildID, target); err != nil {
		return 0, err
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return 0, domain.Persistence(op, err)
	}

	unlock := s.locks.Lock(guildID)
	defer unlock()

	n, err = s.store.Ledgers().Warns.DiscardAll(ctx, guildID, target.ID)
	if err != nil {
		return 0, domain.Persistence(op, err)
	}

	s.log.WithFields(logrus.Fields{"op": op, "guild": guildID, "user": target.ID, "discarded": n}).Info("warns cleared")
	embed := clearWarnsEmbed(target, moderator, n, s.now())
	s.notifier.Direct(target.ID, embed)
	s.notifier.Channel(cfg.LogChannelID, embed)
	return n, nil
}

type WarningsView struct {
	Warnings      []domain.Warning
	TotalSeverity int
	MaxSeverity   int
	WarnTimeout   int
}

// Warnings lista las advertencias recientes (incluye descartadas) y el total vigente.
func (s *ModerationService) Warnings(ctx context.Context, guildID, userID string, limit int) (WarningsView, error) {
	const op = "warnings"
	if guildID == "" || userID == "" {
		return WarningsView{}, domain.Validation(op, "falta el usuario")
	}
	if limit <= 0 {
		limit = DefaultWarnsListed
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return WarningsView{}, domain.Persistence(op, err)
	}

	warns := s.store.Ledgers().Warns
	list, err := warns.ListByUser(ctx, guildID, userID, limit)
	if err != nil {
		return WarningsView{}, domain.Persistence(op, err)
	}
	total, err := warns.TotalActiveSeverity(ctx, guildID, userID, cfg.WarnCutoff(s.now()))
	if err != nil {
		return WarningsView{}, domain.Persistence(op, err)
	}
	return WarningsView{
		Warnings:      list,
		TotalSeverity: total,
		MaxSeverity:   cfg.MaxWarnSeverity,
		WarnTimeout:   cfg.WarnTimeoutDays,
	}, nil
}

type MuteRequest struct {
	GuildID   string
	Target    UserRef
	Moderator UserRef
	Reason    string
	Duration  time.Duration
	ChannelID string
	Quiet     bool
}

type MuteResult struct {
	Mute domain.Mute
	// Extended: el usuario ya estaba muteado y el nuevo mute se apiló sobre el último.
	Extended  bool
	Discarded int64
}

// Mute aplica el apilado dentro de una transacción. El rol se agrega recién
// después del commit: si el commit falla no queda ningún cambio externo.
func (s *ModerationService) Mute(ctx context.Context, req MuteRequest) (res MuteResult, err error) {
	const op = "mute"
	defer func() { countAction(op, err) }()

	if err := requireTarget(op, req.GuildID, req.Target); err != nil {
		return res, err
	}
	if req.Duration <= 0 {
		return res, domain.Validation(op, "la duración tiene que ser positiva")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return res, domain.Validation(op, "falta el motivo")
	}

	cfg, err := s.configs.Get(ctx, req.GuildID)
	if err != nil {
		return res, domain.Persistence(op, err)
	}
	if cfg.MuteRoleID == "" {
		return res, domain.Validation(op, "no hay rol de mute configurado (/modconfig)")
	}

	unlock := s.locks.Lock(req.GuildID)
	defer unlock()

	now := s.now()
	var hasMarker bool
	err = s.store.InTx(ctx, req.GuildID, func(l Ledgers) error {
		// el rol se lee con el guild bloqueado: un sweep de otro proceso no puede sacarlo en el medio
		pctx, cancel := context.WithTimeout(ctx, platformCallTimeout)
		has, err := s.platform.HasMuteRole(pctx, req.GuildID, req.Target.ID, cfg.MuteRoleID)
		cancel()
		if err != nil {
			return domain.External(op, err)
		}
		hasMarker = has

		active, err := l.Mutes.ActiveMutes(ctx, req.GuildID, req.Target.ID, now)
		if err != nil {
			return err
		}

		endsAt := now.Add(req.Duration)
		if last, ok := domain.LatestEnding(active); ok && hasMarker {
			endsAt = last.EndsAt.Add(req.Duration)
			res.Extended = true
		}

		// con o sin rol, las filas activas previas colapsan en la nueva
		if len(active) > 0 {
			ids := make([]int64, 0, len(active))
			for _, m := range active {
				ids = append(ids, m.ID)
			}
			n, err := l.Mutes.DiscardIDs(ctx, ids)
			if err != nil {
				return err
			}
			res.Discarded = n
		}

		m, err := l.Mutes.Insert(ctx, req.GuildID, req.Target.ID, req.Moderator.ID, reason, endsAt)
		if err != nil {
			return err
		}
		res.Mute = m
		return nil
	})
	if errors.Is(err, domain.ErrExternalPlatform) {
		return MuteResult{}, err
	}
	if err != nil {
		return MuteResult{}, domain.Persistence(op, err)
	}

	log := s.log.WithFields(logrus.Fields{"op": op, "guild": req.GuildID, "user": req.Target.ID})
	log.WithFields(logrus.Fields{"ends_at": res.Mute.EndsAt, "extended": res.Extended}).Info("mute recorded")

	var extErr error
	if !hasMarker {
		if err := s.platform.AddMuteRole(ctx, req.GuildID, req.Target.ID, cfg.MuteRoleID, reason); err != nil {
			log.WithError(err).Warn("add mute role failed; ledger already committed")
			extErr = domain.External(op, err)
		}
	}

	embed := muteEmbed(req.Target, req.Moderator, res.Mute, req.Duration, res.Extended)
	s.notifier.Direct(req.Target.ID, embed)
	s.notifier.Channel(cfg.LogChannelID, embed)
	if !req.Quiet && req.ChannelID != cfg.LogChannelID {
		s.notifier.Channel(req.ChannelID, embed)
	}
	return res, extErr
}

type UnmuteResult struct {
	Discarded     int64
	MarkerRemoved bool
}

// Unmute es idempotente: una segunda llamada no descarta nada ni toca el rol.
func (s *ModerationService) Unmute(ctx context.Context, guildID string, target, moderator UserRef) (res UnmuteResult, err error) {
	const op = "unmute"
	defer func() { countAction(op, err) }()

	if err := requireTarget(op, guildID, target); err != nil {
		return res, err
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return res, domain.Persistence(op, err)
	}

	unlock := s.locks.Lock(guildID)
	defer unlock()

	now := s.now()
	var roleErr error
	err = s.store.InTx(ctx, guildID, func(l Ledgers) error {
		n, err := l.Mutes.DiscardAllActive(ctx, guildID, target.ID, now)
		if err != nil {
			return err
		}
		res.Discarded = n
		if cfg.MuteRoleID == "" {
			return nil
		}
		// si Discord falla, los descartes se commitean igual y el error vuelve como parcial
		res.MarkerRemoved, roleErr = s.removeMarker(ctx, guildID, target.ID, cfg.MuteRoleID)
		return nil
	})
	if err != nil {
		return UnmuteResult{}, domain.Persistence(op, err)
	}

	log := s.log.WithFields(logrus.Fields{"op": op, "guild": guildID, "user": target.ID})
	if roleErr != nil {
		log.WithError(roleErr).Warn("remove mute role failed; ledger already committed")
		return res, domain.External(op, roleErr)
	}

	if res.Discarded == 0 && !res.MarkerRemoved {
		return res, nil
	}
	log.WithField("discarded", res.Discarded).Info("unmuted")
	embed := unmuteEmbed(target, moderator, now, false)
	s.notifier.Direct(target.ID, embed)
	s.notifier.Channel(cfg.LogChannelID, embed)
	return res, nil
}

type BanRequest struct {
	GuildID   string
	Target    UserRef
	Moderator UserRef
	Reason    string
	ChannelID string
	Quiet     bool
}

// Ban verifica que el moderador pueda banear al objetivo y banea (7 días de mensajes).
func (s *ModerationService) Ban(ctx context.Context, req BanRequest) (err error) {
	const op = "ban"
	defer func() { countAction(op, err) }()

	if err := requireTarget(op, req.GuildID, req.Target); err != nil {
		return err
	}
	if strings.TrimSpace(req.Reason) == "" {
		return domain.Validation(op, "falta el motivo")
	}
	if req.Moderator.ID == req.Target.ID {
		return domain.Validation(op, "no podés banearte a vos mismo")
	}

	ok, err := s.platform.CanBan(ctx, req.GuildID, req.Moderator.ID, req.Target.ID)
	if err != nil {
		return domain.External(op, err)
	}
	if !ok {
		return domain.Permission(op, "no tenés permisos para banear a este usuario")
	}

	cfg, err := s.configs.Get(ctx, req.GuildID)
	if err != nil {
		return domain.Persistence(op, err)
	}
	return s.ban(ctx, cfg, req)
}

// ban: el DM sale antes (después del ban ya no se le puede escribir), el resto en segundo plano.
func (s *ModerationService) ban(ctx context.Context, cfg domain.GuildModeration, req BanRequest) error {
	embed := banEmbed(req.Target, req.Moderator, req.Reason, s.now())

	dmCtx, cancel := context.WithTimeout(ctx, dmTimeout)
	if err := s.platform.SendDirectMessage(dmCtx, req.Target.ID, embed); err != nil {
		notifyFailures.WithLabelValues("dm").Inc()
		s.log.WithFields(logrus.Fields{"op": "ban", "user": req.Target.ID}).WithError(err).Debug("ban dm failed")
	}
	cancel()

	if err := s.platform.BanUser(ctx, req.GuildID, req.Target.ID, req.Reason, BanDeleteDays); err != nil {
		return domain.External("ban", err)
	}
	s.log.WithFields(logrus.Fields{"op": "ban", "guild": req.GuildID, "user": req.Target.ID}).Infof("banned: %s", req.Reason)

	s.notifier.Channel(cfg.LogChannelID, embed)
	if !req.Quiet && req.ChannelID != cfg.LogChannelID {
		s.notifier.Channel(req.ChannelID, embed)
	}
	return nil
}

type SweepReport struct {
	GuildID    string
	Expired    int
	Unmuted    int
	Superseded int
	Failed     int
}

// UnmuteExpired barre los mutes vencidos del guild en una sola transacción.
// Una fila cuyo rol no se pudo sacar queda sin descartar y se reintenta en la próxima pasada.
func (s *ModerationService) UnmuteExpired(ctx context.Context, guildID string) (rep SweepReport, err error) {
	const op = "unmute_expired"
	rep.GuildID = guildID

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return rep, domain.Persistence(op, err)
	}

	unlock := s.locks.Lock(guildID)
	defer unlock()

	log := s.log.WithFields(logrus.Fields{"op": op, "guild": guildID})
	now := s.now()
	var unmuted []string

	err = s.store.InTx(ctx, guildID, func(l Ledgers) error {
		rep, unmuted = SweepReport{GuildID: guildID}, nil

		expired, err := l.Mutes.ExpiredMutes(ctx, guildID, now)
		if err != nil {
			return err
		}
		rep.Expired = len(expired)

		// un usuario puede tener varias filas vencidas; el rol se evalúa una vez
		handled := make(map[string]bool, len(expired))
		var done []int64
		for _, m := range expired {
			ok, seen := handled[m.UserID]
			if seen {
				if ok {
					done = append(done, m.ID)
				}
				continue
			}

			still, err := l.Mutes.HasActiveMutes(ctx, guildID, m.UserID, now)
			if err != nil {
				return err
			}
			if still {
				// re-muteado después de que venciera esta fila: el rol se queda
				rep.Superseded++
				handled[m.UserID] = true
				done = append(done, m.ID)
				continue
			}

			if cfg.MuteRoleID != "" {
				removed, err := s.removeMarker(ctx, guildID, m.UserID, cfg.MuteRoleID)
				if err != nil {
					rep.Failed++
					handled[m.UserID] = false
					log.WithField("user", m.UserID).WithError(err).Warn("remove mute role failed; retrying next pass")
					continue
				}
				if removed {
					unmuted = append(unmuted, m.UserID)
				}
			}
			handled[m.UserID] = true
			done = append(done, m.ID)
		}

		_, err = l.Mutes.DiscardIDs(ctx, done)
		return err
	})
	if err != nil {
		return rep, domain.Persistence(op, err)
	}

	rep.Unmuted = len(unmuted)
	sweepUnmuted.Add(float64(rep.Unmuted))
	if rep.Expired > 0 {
		log.WithFields(logrus.Fields{
			"expired": rep.Expired, "unmuted": rep.Unmuted, "superseded": rep.Superseded, "failed": rep.Failed,
		}).Info("sweep pass")
	}

	system := UserRef{Name: "Auto-unmute"}
	for _, uid := range unmuted {
		embed := unmuteEmbed(UserRef{ID: uid}, system, now, true)
		s.notifier.Direct(uid, embed)
		s.notifier.Channel(cfg.LogChannelID, embed)
	}
	return rep, nil
}

// removeMarker corre con una transacción abierta: las llamadas a Discord tienen tope propio.
func (s *ModerationService) removeMarker(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, platformCallTimeout)
	defer cancel()

	has, err := s.platform.HasMuteRole(ctx, guildID, userID, roleID)
	if err != nil {
		return false, err
	}
	if !has {
		return false, nil
	}
	if err := s.platform.RemoveMuteRole(ctx, guildID, userID, roleID); err != nil {
		return false, err
	}
	return true, nil
}

func requireTarget(op, guildID string, target UserRef) error {
	if guildID == "" {
		return domain.Validation(op, "sólo se puede usar dentro de un servidor")
	}
	if target.ID == "" {
		return domain.Validation(op, "falta el usuario")
	}
	return nil
}

// IsPartial: el ledger quedó commiteado pero falló el efecto externo.
func IsPartial(err error) bool { return errors.Is(err, domain.ErrExternalPlatform) }
