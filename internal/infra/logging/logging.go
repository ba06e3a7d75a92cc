// Package logging arma el logger logrus del proceso.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// New: level es un nivel logrus (debug, info, warn...), format "text" o "json".
func New(level, format string) (*logrus.Logger, error) {
	return NewWithOutput(os.Stdout, level, format)
}

func NewWithOutput(w io.Writer, level, format string) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log format desconocido: %q", format)
	}
	return l, nil
}

// RouteDiscordgo manda el logger interno de discordgo a logrus.
func RouteDiscordgo(l logrus.FieldLogger) {
	dl := l.WithField("component", "discordgo")
	discordgo.Logger = func(msgL, caller int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch msgL {
		case discordgo.LogError:
			dl.Error(msg)
		case discordgo.LogWarning:
			dl.Warn(msg)
		case discordgo.LogInformational:
			dl.Info(msg)
		default:
			dl.Debug(msg)
		}
	}
}
