package discord

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/jose-valero/modledger-bot/internal/domain"
)

func TestCanBanMember(t *testing.T) {
	g := &discordgo.Guild{ID: "g", OwnerID: "owner"}
	roles := []*discordgo.Role{
		{ID: "g", Position: 0},
		{ID: "mods", Position: 5, Permissions: discordgo.PermissionBanMembers},
		{ID: "helpers", Position: 3},
		{ID: "senior", Position: 8},
	}
	member := func(id string, roles ...string) *discordgo.Member {
		return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
	}

	cases := []struct {
		name   string
		mod    *discordgo.Member
		target *discordgo.Member
		want   bool
	}{
		{"mod over helper", member("m", "mods"), member("t", "helpers"), true},
		{"mod under senior", member("m", "mods"), member("t", "senior"), false},
		{"same rank", member("m", "mods"), member("t", "mods"), false},
		{"no ban permission", member("m", "helpers"), member("t"), false},
		{"target not in guild", member("m", "mods"), nil, true},
		{"owner bans anyone", member("owner"), member("t", "senior"), true},
		{"nobody bans owner", member("m", "mods", "senior"), member("owner"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, canBanMember(g, roles, tc.mod, tc.target))
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, hasAnyRole([]string{"a", "b"}, []string{"b"}))
	assert.False(t, hasAnyRole([]string{"a"}, []string{"c"}))
	assert.False(t, hasAnyRole([]string{"a"}, nil))
}

func TestErrorMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{domain.Validation("mute", "falta el motivo"), "⚠️ falta el motivo"},
		{domain.Permission("ban", "no tenés permisos"), "🔒 no tenés permisos"},
		{domain.Persistence("warn", errors.New("conn refused")), "❌ No se pudo guardar"},
		{domain.External("ban", errors.New("missing access")), "missing access"},
		{errors.New("raro"), "error inesperado"},
	}
	for _, tc := range cases {
		assert.Contains(t, errorMessage(tc.err), tc.want)
	}
}

func TestPartialMessage(t *testing.T) {
	msg := partialMessage("🔇 muteado", domain.External("mute", errors.New("403 Forbidden")))
	assert.Contains(t, msg, "🔇 muteado")
	assert.Contains(t, msg, "403 Forbidden")
}
