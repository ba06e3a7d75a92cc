package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

const (
	colorWarn   = 0xFFA500
	colorBan    = 0xE74C3C
	colorMute   = 0x95A5A6
	colorUnmute = 0x2ECC71
	colorClear  = 0x3498DB
)

// UserRef identifica a un usuario en los embeds. Name puede venir vacío (sweeper).
type UserRef struct {
	ID        string
	Name      string
	AvatarURL string
}

func (u UserRef) Display() string {
	if u.Name != "" {
		return u.Name
	}
	return "<@" + u.ID + ">"
}

func footer(by UserRef) *discordgo.MessageEmbedFooter {
	return &discordgo.MessageEmbedFooter{Text: by.Display(), IconURL: by.AvatarURL}
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func warnEmbed(target, by UserRef, w domain.Warning, total, max int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s | Warn (%d/%d)", target.Display(), total, max),
		Color: colorWarn,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: w.Reason},
			{Name: "Severity", Value: string(w.Severity), Inline: true},
		},
		Timestamp: stamp(w.CreatedAt),
		Footer:    footer(by),
	}
}

func clearWarnsEmbed(target, by UserRef, n int64, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s | Warns Cleared", target.Display()),
		Description: fmt.Sprintf("%d warning(s) discarded.", n),
		Color:       colorClear,
		Timestamp:   stamp(at),
		Footer:      footer(by),
	}
}

func banEmbed(target, by UserRef, reason string, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("%s | Ban", target.Display()),
		Color:     colorBan,
		Fields:    []*discordgo.MessageEmbedField{{Name: "Reason", Value: reason}},
		Timestamp: stamp(at),
		Footer:    footer(by),
	}
}

func muteEmbed(target, by UserRef, m domain.Mute, d time.Duration, extended bool) *discordgo.MessageEmbed {
	title := fmt.Sprintf("%s | Mute", target.Display())
	if extended {
		title = fmt.Sprintf("%s | Mute Extended", target.Display())
	}
	return &discordgo.MessageEmbed{
		Title: title,
		Color: colorMute,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: m.Reason},
			{Name: "Duration", Value: humanDuration(d), Inline: true},
			{Name: "Ends", Value: fmt.Sprintf("<t:%d:R>", m.EndsAt.Unix()), Inline: true},
		},
		Timestamp: stamp(m.CreatedAt),
		Footer:    footer(by),
	}
}

func unmuteEmbed(target, by UserRef, at time.Time, expired bool) *discordgo.MessageEmbed {
	desc := ""
	if expired {
		desc = "Mute expired."
	}
	return &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s | Unmute", target.Display()),
		Description: desc,
		Color:       colorUnmute,
		Timestamp:   stamp(at),
		Footer:      footer(by),
	}
}

// humanDuration: 1d2h30m, sin los ceros.
func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "0m"
	}
	d = d.Round(time.Second)
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd", days)
	}
	if h > 0 {
		fmt.Fprintf(&b, "%dh", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	if s > 0 {
		fmt.Fprintf(&b, "%ds", s)
	}
	return b.String()
}
