package service

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// Notifier manda embeds en segundo plano. Nadie espera el resultado: las fallas
// se loguean y cuentan, nunca vuelven al llamador.
type Notifier struct {
	platform Platform
	log      logrus.FieldLogger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewNotifier(p Platform, log logrus.FieldLogger) *Notifier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Notifier{platform: p, log: log, timeout: 10 * time.Second}
}

// Direct: DM al usuario.
func (n *Notifier) Direct(userID string, embed *discordgo.MessageEmbed) {
	if userID == "" || embed == nil {
		return
	}
	n.spawn("dm", func(ctx context.Context) error {
		return n.platform.SendDirectMessage(ctx, userID, embed)
	}, logrus.Fields{"user": userID})
}

// Channel: mensaje en un canal (log o el canal donde se invocó el comando).
func (n *Notifier) Channel(channelID string, embed *discordgo.MessageEmbed) {
	if channelID == "" || embed == nil {
		return
	}
	n.spawn("channel", func(ctx context.Context) error {
		return n.platform.SendChannelMessage(ctx, channelID, embed)
	}, logrus.Fields{"channel": channelID})
}

// Wait drena las tareas pendientes (shutdown).
func (n *Notifier) Wait() { n.wg.Wait() }

func (n *Notifier) spawn(target string, fn func(ctx context.Context) error, fields logrus.Fields) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				n.log.WithFields(fields).Errorf("notify %s panic: %v", target, r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			notifyFailures.WithLabelValues(target).Inc()
			n.log.WithFields(fields).WithError(err).Warnf("notify %s failed", target)
		}
	}()
}
