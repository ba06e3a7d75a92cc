package service

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

const (
	purgePageSize = 100
	// Discord no borra en bulk mensajes de más de 14 días; dejamos margen
	bulkDeleteMaxAge = 14*24*time.Hour - time.Hour
)

type ChannelMessage struct {
	ID        string
	AuthorID  string
	CreatedAt time.Time
}

// Lo implementa internal/adapters/discord.Platform
type ChannelMessages interface {
	ChannelMessage(ctx context.Context, channelID, messageID string) (ChannelMessage, error)
	// MessagesAfter devuelve hasta limit mensajes posteriores a afterID, en cualquier orden.
	MessagesAfter(ctx context.Context, channelID, afterID string, limit int) ([]ChannelMessage, error)
	BulkDelete(ctx context.Context, channelID string, ids []string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

type PurgeService struct {
	msgs ChannelMessages
	log  logrus.FieldLogger
	now  func() time.Time
}

func NewPurgeService(msgs ChannelMessages, log logrus.FieldLogger) *PurgeService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PurgeService{msgs: msgs, log: log, now: time.Now}
}

type PurgeRequest struct {
	GuildID   string
	ChannelID string
	// UntilID es el mensaje ancla: se borra todo lo posterior y el ancla misma.
	UntilID string
	// UserID filtra por autor; vacío borra de todos.
	UserID    string
	Moderator UserRef
	// Started se llama cuando el ancla existe y empieza el borrado.
	Started func()
}

type PurgeReport struct {
	Scanned int
	Deleted int
}

// Purge borra los mensajes del canal desde UntilID en adelante. Puede tardar: el caller
// la corre fuera del gateway y con su propio contexto.
func (p *PurgeService) Purge(ctx context.Context, req PurgeRequest) (rep PurgeReport, err error) {
	const op = "purge"
	defer func() { countAction(op, err) }()

	if req.GuildID == "" || req.ChannelID == "" {
		return rep, domain.Validation(op, "sólo se puede usar en un canal de texto del servidor")
	}
	if !isSnowflake(req.UntilID) {
		return rep, domain.Validation(op, "until tiene que ser el id de un mensaje")
	}

	anchor, err := p.msgs.ChannelMessage(ctx, req.ChannelID, req.UntilID)
	if err != nil {
		return rep, domain.External(op, err)
	}

	log := p.log.WithFields(logrus.Fields{"op": op, "guild": req.GuildID, "channel": req.ChannelID, "until": req.UntilID})
	log.WithField("by", req.Moderator.ID).Info("purge started")
	if req.Started != nil {
		req.Started()
	}

	after := req.UntilID
	for {
		page, err := p.msgs.MessagesAfter(ctx, req.ChannelID, after, purgePageSize)
		if err != nil {
			return rep, domain.External(op, err)
		}
		if len(page) == 0 {
			break
		}
		rep.Scanned += len(page)

		var match []ChannelMessage
		for _, m := range page {
			if req.UserID == "" || m.AuthorID == req.UserID {
				match = append(match, m)
			}
			if snowflakeLess(after, m.ID) {
				after = m.ID
			}
		}
		n, err := p.delete(ctx, req.ChannelID, match)
		rep.Deleted += n
		if err != nil {
			return rep, domain.External(op, err)
		}
		if len(page) < purgePageSize {
			break
		}
	}

	if req.UserID == "" || anchor.AuthorID == req.UserID {
		if err := p.msgs.DeleteMessage(ctx, req.ChannelID, anchor.ID); err != nil {
			return rep, domain.External(op, err)
		}
		rep.Deleted++
	}

	log.WithFields(logrus.Fields{"scanned": rep.Scanned, "deleted": rep.Deleted}).Info("purge completed")
	return rep, nil
}

// delete usa bulk para los recientes y borra de a uno los viejos.
func (p *PurgeService) delete(ctx context.Context, channelID string, msgs []ChannelMessage) (int, error) {
	cutoff := p.now().Add(-bulkDeleteMaxAge)
	var recent, old []string
	for _, m := range msgs {
		if m.CreatedAt.After(cutoff) {
			recent = append(recent, m.ID)
		} else {
			old = append(old, m.ID)
		}
	}

	deleted := 0
	switch len(recent) {
	case 0:
	case 1:
		// bulk pide al menos 2
		if err := p.msgs.DeleteMessage(ctx, channelID, recent[0]); err != nil {
			return deleted, err
		}
		deleted++
	default:
		if err := p.msgs.BulkDelete(ctx, channelID, recent); err != nil {
			return deleted, err
		}
		deleted += len(recent)
	}
	for _, id := range old {
		if err := p.msgs.DeleteMessage(ctx, channelID, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func isSnowflake(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// snowflakeLess compara ids numéricamente; un id inválido nunca es mayor.
func snowflakeLess(a, b string) bool {
	x, errA := strconv.ParseUint(a, 10, 64)
	y, errB := strconv.ParseUint(b, 10, 64)
	if errB != nil {
		return false
	}
	return errA != nil || x < y
}
