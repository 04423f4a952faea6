package commands

import (
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"Kiln/internal/game"
	"Kiln/internal/index"
)

const defaultSaveInterval = 30 * time.Second

// Session is a logged in player.
type Session struct {
	lobby   *Lobby
	Conn    *game.Conn
	Account *game.Account
	Since   time.Time
	// Muted players cannot say, emote or tell until they log out.
	Muted   bool
	limiter *rate.Limiter
}

// Name returns the player's account name.
func (s *Session) Name() string { return s.Account.Name }

// Print sends text to the player, dropping colour when they turned it off.
func (s *Session) Print(text string) {
	if !s.Account.Pref(game.PrefColor) {
		text = game.StripAnsi(text)
	}
	_ = s.Conn.Print(text)
}

// Width returns the player's terminal width.
func (s *Session) Width() int {
	w, _ := s.Conn.Size()
	return w
}

// Option customises a Lobby.
type Option func(*Lobby)

// WithLogger sets the lobby logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lobby) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithRate throttles each player to r commands per second with the given
// burst. A non-positive rate disables throttling.
func WithRate(r float64, burst int) Option {
	return func(l *Lobby) {
		if r <= 0 {
			l.rate = rate.Inf
		} else {
			l.rate = rate.Limit(r)
		}
		l.burst = max(burst, 1)
	}
}

// WithShutdown lets admins stop the server.
func WithShutdown(fn func()) Option {
	return func(l *Lobby) {
		l.shutdown = fn
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Lobby) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSaveInterval sets how often changed accounts are written back.
func WithSaveInterval(d time.Duration) Option {
	return func(l *Lobby) {
		l.saveEvery = d
	}
}

// Lobby is the application attached to the reactor: it logs players in and
// runs their commands. Like the reactor it is single threaded.
type Lobby struct {
	accounts  *game.AccountManager
	logger    *slog.Logger
	online    *index.Tree[string, *Session]
	handler   *game.Handler
	rate      rate.Limit
	burst     int
	shutdown  func()
	now       func() time.Time
	saveEvery time.Duration
	lastSave  time.Time
}

// NewLobby creates a lobby backed by accounts.
func NewLobby(accounts *game.AccountManager, opts ...Option) *Lobby {
	l := &Lobby{
		accounts:  accounts,
		logger:    slog.Default(),
		online:    index.NewFold[*Session](),
		rate:      rate.Limit(5),
		burst:     10,
		now:       time.Now,
		saveEvery: defaultSaveInterval,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.handler = &game.Handler{
		OnLine:  l.onLine,
		OnFocus: l.onFocus,
		OnBlur:  l.onBlur,
		Prompt:  l.prompt,
	}
	return l
}

// Accept greets a new connection and starts the login dialogue. Pass it to
// game.NewServer.
func (l *Lobby) Accept(c *game.Conn) {
	_ = c.Print(game.Style(game.LoginBanner, game.AnsiCyan, game.AnsiBold))
	c.SetEditor(&loginEditor{lobby: l})
	_ = c.Print("\nName: ")
}

// Tick writes back changed accounts now and then. Pass it to game.WithTick.
func (l *Lobby) Tick(now time.Time) {
	if now.Sub(l.lastSave) < l.saveEvery {
		return
	}
	l.lastSave = now
	if n := l.accounts.SaveDirty(); n > 0 {
		l.logger.Debug("accounts saved", "count", n)
	}
}

// Online returns the logged in players in name order.
func (l *Lobby) Online() []*Session {
	out := make([]*Session, 0, l.online.Size())
	for _, s := range l.online.All() {
		out = append(out, s)
	}
	return out
}

// Find returns the logged in player called name.
func (l *Lobby) Find(name string) (*Session, bool) {
	return l.online.Lookup(name)
}

// Broadcast prints text to every logged in player except skip.
func (l *Lobby) Broadcast(text string, skip *Session) {
	for _, s := range l.Online() {
		if s != skip {
			s.Print(text)
		}
	}
}

// enter finishes a login, replacing any older session for the account.
func (l *Lobby) enter(c *game.Conn, a *game.Account) {
	now := l.now()
	l.accounts.RecordLogin(a, now)
	s := &Session{
		lobby:   l,
		Conn:    c,
		Account: a,
		Since:   now,
		limiter: rate.NewLimiter(l.rate, l.burst),
	}
	old, takeover := l.online.Lookup(a.Name)
	l.online.Insert(a.Name, s)
	if takeover {
		s.Muted = old.Muted
		l.logger.Info("session taken over", "account", a.Name, "old", old.Conn.Name(), "new", c.Name())
		old.Conn.Close()
	}
	c.SetEditor(nil)
	c.SetData(s)
	c.SetHandler(l.handler)
}

func session(c *game.Conn) *Session {
	s, _ := c.Data().(*Session)
	return s
}

func (l *Lobby) onFocus(c *game.Conn) {
	s := session(c)
	if s == nil {
		return
	}
	l.logger.Info("player entered", "account", s.Name(), "conn", c.Name(), "host", c.Host())
	s.Print(game.Style("Welcome, "+s.Name()+".", game.AnsiGreen) + "\n")
	l.Broadcast(game.NameStyle(s.Name())+" has arrived.\n", s)
	for _, t := range l.accounts.TakeTells(s.Account) {
		s.Print(game.NameStyle(t.From) + " told you while you were away: " + t.Body + "\n")
	}
}

func (l *Lobby) onBlur(c *game.Conn) {
	s := session(c)
	if s == nil {
		return
	}
	if cur, ok := l.online.Lookup(s.Name()); !ok || cur != s {
		return
	}
	l.online.Delete(s.Name())
	l.accounts.Release(s.Name())
	l.logger.Info("player left", "account", s.Name(), "reason", string(c.CloseReason()))
	l.Broadcast(game.NameStyle(s.Name())+" has left.\n", nil)
}

func (l *Lobby) onLine(c *game.Conn, line string) {
	s := session(c)
	if s == nil {
		return
	}
	if !s.limiter.Allow() {
		s.Print(game.Style("Slow down.", game.AnsiYellow) + "\n")
		return
	}
	if Dispatch(s, line) {
		c.CloseWhenFlushed()
	}
}

func (l *Lobby) prompt(c *game.Conn) string {
	if s := session(c); s != nil && !s.Account.Pref(game.PrefColor) {
		return "> "
	}
	return game.Style("> ", game.AnsiBold, game.AnsiYellow)
}

// Close writes back every account still held.
func (l *Lobby) Close() {
	l.accounts.Close()
}
