package domain

import (
	"strings"
	"time"
)

// Severity es la etiqueta de una advertencia. El peso se resuelve al crearla
// y queda guardado en la fila, así un cambio de tabla no reescribe historia.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

var severityWeights = map[Severity]int{
	SeverityLow:    10,
	SeverityMedium: 20,
	SeverityHigh:   40,
}

// Severities en orden ascendente (para choices de comandos).
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh}
}

// ParseSeverity acepta la etiqueta sin importar mayúsculas/espacios.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := severityWeights[sev]; !ok {
		return "", Validation("parse severity", "severidad desconocida: "+s)
	}
	return sev, nil
}

// Weight devuelve 0 para etiquetas desconocidas.
func (s Severity) Weight() int { return severityWeights[s] }

type Warning struct {
	ID             int64
	GuildID        string
	UserID         string
	WarnedBy       string
	CreatedAt      time.Time
	Severity       Severity
	SeverityWeight int
	Reason         string
	Discarded      bool
}

type Mute struct {
	ID        int64
	GuildID   string
	UserID    string
	MutedBy   string
	CreatedAt time.Time
	Reason    string
	EndsAt    time.Time
	Discarded bool
}

// Active: no descartado y termina en el futuro.
func (m Mute) Active(now time.Time) bool { return !m.Discarded && m.EndsAt.After(now) }

// Expired: no descartado y ya venció (endsAt <= now).
func (m Mute) Expired(now time.Time) bool { return !m.Discarded && !m.EndsAt.After(now) }

// LatestEnding devuelve el mute que termina más tarde. ok=false si la lista está vacía.
func LatestEnding(mutes []Mute) (Mute, bool) {
	if len(mutes) == 0 {
		return Mute{}, false
	}
	last := mutes[0]
	for _, m := range mutes[1:] {
		if m.EndsAt.After(last.EndsAt) {
			last = m
		}
	}
	return last, true
}

// GuildModeration es la config de moderación por guild.
type GuildModeration struct {
	GuildID         string
	MaxWarnSeverity int
	WarnTimeoutDays int
	MuteRoleID      string
	LogChannelID    string
	StaffRoleID     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// WarnCutoff: las advertencias creadas antes de este instante ya no suman.
func (g GuildModeration) WarnCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -g.WarnTimeoutDays)
}

// ExceedsMax usa comparación estricta: llegar justo al máximo no banea.
func (g GuildModeration) ExceedsMax(total int) bool { return total > g.MaxWarnSeverity }
