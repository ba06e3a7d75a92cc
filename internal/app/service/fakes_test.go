package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/modledger-bot/internal/domain"
	"github.com/jose-valero/modledger-bot/internal/infra/storage"
)

// ---- clock ----

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *testClock {
	return &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- store en memoria ----

type memState struct {
	warns  []domain.Warning
	mutes  []domain.Mute
	nextID int64
}

func (s *memState) clone() *memState {
	return &memState{
		warns:  append([]domain.Warning(nil), s.warns...),
		mutes:  append([]domain.Mute(nil), s.mutes...),
		nextID: s.nextID,
	}
}

type memStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state *memState
	clock *testClock

	failCommit  error
	failExpired error
	txGuilds    []string
}

func newMemStore(c *testClock) *memStore {
	return &memStore{state: &memState{}, clock: c}
}

func (m *memStore) Ledgers() Ledgers {
	return ledgersFor(&memView{mu: &m.mu, st: func() *memState { return m.state }, clock: m.clock, store: m})
}

// InTx serializa todas las transacciones, como el lock por guild de Postgres pero más grueso.
func (m *memStore) InTx(ctx context.Context, guildID string, fn func(l Ledgers) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	m.txGuilds = append(m.txGuilds, guildID)
	work := m.state.clone()
	m.mu.Unlock()

	var txMu sync.Mutex
	v := &memView{mu: &txMu, st: func() *memState { return work }, clock: m.clock, store: m}
	if err := fn(ledgersFor(v)); err != nil {
		return err
	}
	if m.failCommit != nil {
		return m.failCommit
	}
	m.mu.Lock()
	m.state = work
	m.mu.Unlock()
	return nil
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) activeMutes(guildID, userID string) []domain.Mute {
	now := m.clock.Now()
	var out []domain.Mute
	for _, mu := range m.snapshot().mutes {
		if mu.GuildID == guildID && mu.UserID == userID && mu.Active(now) {
			out = append(out, mu)
		}
	}
	return out
}

type memView struct {
	mu    *sync.Mutex
	st    func() *memState
	clock *testClock
	store *memStore
}

func (v *memView) Insert(ctx context.Context, guildID, userID, warnedBy string, sev domain.Severity, reason string) (domain.Warning, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.st()
	st.nextID++
	w := domain.Warning{
		ID: st.nextID, GuildID: guildID, UserID: userID, WarnedBy: warnedBy,
		CreatedAt: v.clock.Now(), Severity: sev, SeverityWeight: sev.Weight(), Reason: reason,
	}
	st.warns = append(st.warns, w)
	return w, nil
}

func (v *memView) TotalActiveSeverity(ctx context.Context, guildID, userID string, cutoff time.Time) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	total := 0
	for _, w := range v.st().warns {
		if w.GuildID == guildID && w.UserID == userID && !w.Discarded && w.CreatedAt.After(cutoff) {
			total += w.SeverityWeight
		}
	}
	return total, nil
}

func (v *memView) DiscardAll(ctx context.Context, guildID, userID string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.st()
	var n int64
	for i := range st.warns {
		w := &st.warns[i]
		if w.GuildID == guildID && w.UserID == userID && !w.Discarded {
			w.Discarded = true
			n++
		}
	}
	return n, nil
}

func (v *memView) ListByUser(ctx context.Context, guildID, userID string, limit int) ([]domain.Warning, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.Warning
	ws := v.st().warns
	for i := len(ws) - 1; i >= 0 && len(out) < limit; i-- {
		if ws[i].GuildID == guildID && ws[i].UserID == userID {
			out = append(out, ws[i])
		}
	}
	return out, nil
}

// insertMute: el Insert de MuteLedger (ver memMutes)
func (v *memView) insertMute(guildID, userID, mutedBy, reason string, endsAt time.Time) domain.Mute {
	v.mu.Lock()
	defer v.mu.Unlock()
	st := v.st()
	st.nextID++
	m := domain.Mute{
		ID: st.nextID, GuildID: guildID, UserID: userID, MutedBy: mutedBy,
		CreatedAt: v.clock.Now(), Reason: reason, EndsAt: endsAt,
	}
	st.mutes = append(st.mutes, m)
	return m
}

func (v *memView) ActiveMutes(ctx context.Context, guildID, userID string, now time.Time) ([]domain.Mute, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.Mute
	for _, m := range v.st().mutes {
		if m.GuildID == guildID && m.UserID == userID && m.Active(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (v *memView) HasActiveMutes(ctx context.Context, guildID, userID string, now time.Time) (bool, error) {
	ms, _ := v.ActiveMutes(ctx, guildID, userID, now)
	return len(ms) > 0, nil
}

func (v *memView) ExpiredMutes(ctx context.Context, guildID string, now time.Time) ([]domain.Mute, error) {
	if v.store.failExpired != nil {
		return nil, v.store.failExpired
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []domain.Mute
	for _, m := range v.st().mutes {
		if m.GuildID == guildID && m.Expired(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (v *memView) Discard(ctx context.Context, id int64) error {
	_, err := v.DiscardIDs(ctx, []int64{id})
	return err
}

func (v *memView) DiscardIDs(ctx context.Context, ids []int64) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	want := make(map[int64]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	st := v.st()
	var n int64
	for i := range st.mutes {
		if want[st.mutes[i].ID] && !st.mutes[i].Discarded {
			st.mutes[i].Discarded = true
			n++
		}
	}
	return n, nil
}

func (v *memView) DiscardAllActive(ctx context.Context, guildID, userID string, now time.Time) (int64, error) {
	active, _ := v.ActiveMutes(ctx, guildID, userID, now)
	ids := make([]int64, 0, len(active))
	for _, m := range active {
		ids = append(ids, m.ID)
	}
	return v.DiscardIDs(ctx, ids)
}

// memView no puede implementar los dos Insert; memMutes tapa el de warns.
type memWarns struct{ *memView }
type memMutes struct{ *memView }

func ledgersFor(v *memView) Ledgers {
	return Ledgers{Warns: memWarns{v}, Mutes: memMutes{v}}
}

func (m memMutes) Insert(ctx context.Context, guildID, userID, mutedBy, reason string, endsAt time.Time) (domain.Mute, error) {
	return m.insertMute(guildID, userID, mutedBy, reason, endsAt), nil
}

// ---- plataforma ----

type fakePlatform struct {
	mu        sync.Mutex
	roles     map[string]bool
	banned    map[string]bool
	bannedErr error
	// plazo que tenía el ctx de la última llamada a RemoveMuteRole (0 si no tenía)
	rmBudget time.Duration
	bans     []string
	dms      []string
	msgs     []string
	events   []string
	canBan   bool
	addErr   error
	rmErr    error
	hasErr   error
	banErr   error
	dmErr    error
	adds     int
	removes  int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{roles: map[string]bool{}, banned: map[string]bool{}, canBan: true}
}

func roleKey(guildID, userID string) string { return guildID + "/" + userID }

func (p *fakePlatform) SendDirectMessage(ctx context.Context, userID string, embed *discordgo.MessageEmbed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "dm:"+userID)
	if p.dmErr != nil {
		return p.dmErr
	}
	p.dms = append(p.dms, userID)
	return nil
}

func (p *fakePlatform) SendChannelMessage(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, channelID+":"+embed.Title)
	return nil
}

func (p *fakePlatform) AddMuteRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return p.addErr
	}
	p.adds++
	p.roles[roleKey(guildID, userID)] = true
	return nil
}

func (p *fakePlatform) RemoveMuteRole(ctx context.Context, guildID, userID, roleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rmBudget = 0
	if dl, ok := ctx.Deadline(); ok {
		p.rmBudget = time.Until(dl)
	}
	if p.rmErr != nil {
		return p.rmErr
	}
	p.removes++
	delete(p.roles, roleKey(guildID, userID))
	return nil
}

func (p *fakePlatform) HasMuteRole(ctx context.Context, guildID, userID, roleID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasErr != nil {
		return false, p.hasErr
	}
	return p.roles[roleKey(guildID, userID)], nil
}

func (p *fakePlatform) BanUser(ctx context.Context, guildID, userID, reason string, deleteMessageDays int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "ban:"+userID)
	if p.banErr != nil {
		return p.banErr
	}
	p.bans = append(p.bans, userID+"|"+reason)
	p.banned[roleKey(guildID, userID)] = true
	return nil
}

func (p *fakePlatform) IsBanned(ctx context.Context, guildID, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bannedErr != nil {
		return false, p.bannedErr
	}
	return p.banned[roleKey(guildID, userID)], nil
}

func (p *fakePlatform) CanBan(ctx context.Context, guildID, moderatorID, targetID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canBan, nil
}

func (p *fakePlatform) hasRole(guildID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roles[roleKey(guildID, userID)]
}

func (p *fakePlatform) banCalls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.bans...)
}

// ---- config ----

type fakeConfigs struct {
	mu     sync.Mutex
	guilds map[string]domain.GuildModeration
	err    error
}

func newFakeConfigs(gs ...domain.GuildModeration) *fakeConfigs {
	f := &fakeConfigs{guilds: map[string]domain.GuildModeration{}}
	for _, g := range gs {
		f.guilds[g.GuildID] = g
	}
	return f
}

func (f *fakeConfigs) Get(ctx context.Context, guildID string) (domain.GuildModeration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.GuildModeration{}, f.err
	}
	g, ok := f.guilds[guildID]
	if !ok {
		g = domain.GuildModeration{GuildID: guildID, MaxWarnSeverity: 100, WarnTimeoutDays: 30}
		f.guilds[guildID] = g
	}
	return g, nil
}

func (f *fakeConfigs) Update(ctx context.Context, guildID string, u storage.GuildModerationUpdate) (domain.GuildModeration, error) {
	g, err := f.Get(ctx, guildID)
	if err != nil {
		return g, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.MaxWarnSeverity != nil {
		g.MaxWarnSeverity = *u.MaxWarnSeverity
	}
	if u.WarnTimeoutDays != nil {
		g.WarnTimeoutDays = *u.WarnTimeoutDays
	}
	if u.MuteRoleID != nil {
		g.MuteRoleID = *u.MuteRoleID
	}
	if u.LogChannelID != nil {
		g.LogChannelID = *u.LogChannelID
	}
	if u.StaffRoleID != nil {
		g.StaffRoleID = *u.StaffRoleID
	}
	f.guilds[guildID] = g
	return g, nil
}

func (f *fakeConfigs) ListGuildIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, 0, len(f.guilds))
	for id := range f.guilds {
		out = append(out, id)
	}
	return out, nil
}

// ---- fixture ----

const (
	testGuild    = "g1"
	testMuteRole = "role-muted"
	testLogChan  = "chan-log"
)

var errBoom = errors.New("boom")

type fixture struct {
	clock    *testClock
	store    *memStore
	platform *fakePlatform
	configs  *fakeConfigs
	notifier *Notifier
	svc      *ModerationService
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newFixture() *fixture {
	f := &fixture{
		clock:    newClock(),
		platform: newFakePlatform(),
		configs: newFakeConfigs(domain.GuildModeration{
			GuildID: testGuild, MaxWarnSeverity: 100, WarnTimeoutDays: 30,
			MuteRoleID: testMuteRole, LogChannelID: testLogChan,
		}),
	}
	f.store = newMemStore(f.clock)
	log := quietLogger()
	f.notifier = NewNotifier(f.platform, log)
	f.svc = NewModerationService(f.store, f.platform, f.configs, f.notifier,
		WithClock(f.clock.Now), WithLogger(log))
	return f
}

var (
	target = UserRef{ID: "u1", Name: "target"}
	mod    = UserRef{ID: "m1", Name: "mod"}
)
