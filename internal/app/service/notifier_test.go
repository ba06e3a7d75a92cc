package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestNotifierSwallowsFailures(t *testing.T) {
	p := newFakePlatform()
	p.dmErr = errBoom
	n := NewNotifier(p, quietLogger())

	e := &discordgo.MessageEmbed{Title: "hi"}
	n.Direct("u1", e)
	n.Channel("c1", e)
	n.Channel("", e)
	n.Direct("u2", nil)
	n.Wait()

	assert.Equal(t, []string{"c1:hi"}, p.msgs)
	assert.Equal(t, []string{"dm:u1"}, p.events)
}

func TestHumanDuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                            "0m",
		30 * time.Minute:             "30m",
		26*time.Hour + 5*time.Minute: "1d2h5m",
		90 * time.Second:             "1m30s",
		7 * 24 * time.Hour:           "7d",
	}
	for d, want := range cases {
		assert.Equal(t, want, humanDuration(d), d.String())
	}
}
