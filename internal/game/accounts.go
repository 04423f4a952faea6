package game

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"

	"Kiln/internal/index"
	"Kiln/internal/store"
)

const defaultAdminAccount = "admin"

// OfflineTellLimitPerSender caps the messages one sender may queue for an
// absent player.
const OfflineTellLimitPerSender = 5

var (
	ErrAccountExists    = errors.New("account already exists")
	ErrNoAccount        = errors.New("no such account")
	ErrBadPassword      = errors.New("incorrect password")
	ErrOfflineTellLimit = errors.New("offline tell limit reached")
)

// Role is an account's privilege level.
type Role int

const (
	RolePlayer Role = iota
	RoleBuilder
	RoleAdmin
)

var roleNames = store.NewEnumTable("player", "builder", "admin")

func (r Role) String() string {
	if name, ok := roleNames.Name(int(r)); ok {
		return name
	}
	return fmt.Sprintf("role-%d", int(r))
}

// Preference bits stored with each account.
const (
	PrefColor uint64 = 1 << iota
	PrefBrief
	PrefQuiet
)

var prefNames = store.NewBitNames("color", "brief", "quiet")

// PrefBit resolves a preference name such as "color".
func PrefBit(name string) (uint64, bool) {
	return prefNames.Bit(strings.ToLower(name))
}

// OfflineTell is a private message held until its recipient logs in.
type OfflineTell struct {
	From string
	Body string
	At   time.Time
}

// Account is one player's persistent record.
type Account struct {
	Name      string
	Hash      string
	Role      Role
	Prefs     uint64
	Title     string
	CreatedAt time.Time
	LastLogin time.Time
	Logins    int
	Tells     []OfflineTell

	dirty bool
}

// Pref reports whether a preference bit is set.
func (a *Account) Pref(bit uint64) bool { return a.Prefs&bit != 0 }

// SetPref turns a preference bit on or off.
func (a *Account) SetPref(bit uint64, on bool) {
	if on {
		a.Prefs |= bit
	} else {
		a.Prefs &^= bit
	}
	a.dirty = true
}

// SetTitle changes the title shown after the player's name.
func (a *Account) SetTitle(title string) {
	a.Title = title
	a.dirty = true
}

// Dirty reports whether the record has unsaved changes.
func (a *Account) Dirty() bool { return a.dirty }

func (a *Account) encode() *store.Value {
	v := store.New()
	v.PutString("name", a.Name)
	v.PutString("password", a.Hash)
	v.PutEnum("role", roleNames, int(a.Role))
	v.PutBits("prefs", prefNames, a.Prefs)
	if a.Title != "" {
		v.PutString("title", a.Title)
	}
	v.PutTime("created", a.CreatedAt)
	if !a.LastLogin.IsZero() {
		v.PutTime("last_login", a.LastLogin)
	}
	v.PutInt("logins", a.Logins)
	if len(a.Tells) > 0 {
		tells := v.Child("tells")
		for _, t := range a.Tells {
			entry := tells.Put(store.AutoKey, store.New())
			entry.PutString("from", t.From)
			entry.PutTime("at", t.At)
			entry.PutString("text", t.Body)
		}
	}
	return v
}

func decodeAccount(v *store.Value) *Account {
	a := &Account{
		Name:      v.GetString("name", ""),
		Hash:      v.GetString("password", ""),
		Role:      Role(v.GetEnum("role", roleNames, int(RolePlayer))),
		Prefs:     v.GetBits("prefs", prefNames, PrefColor),
		Title:     v.GetString("title", ""),
		CreatedAt: v.GetTime("created", time.Time{}),
		LastLogin: v.GetTime("last_login", time.Time{}),
		Logins:    v.GetInt("logins", 0),
	}
	if tells := v.Get("tells"); tells != nil {
		for _, t := range tells.Entries() {
			body := t.GetString("text", "")
			if body == "" {
				continue
			}
			a.Tells = append(a.Tells, OfflineTell{
				From: t.GetString("from", "someone"),
				Body: body,
				At:   t.GetTime("at", time.Time{}),
			})
		}
	}
	return a
}

// AccountOption customises an AccountManager.
type AccountOption func(*AccountManager)

// WithAccountLogger sets the catalog's logger.
func WithAccountLogger(logger *slog.Logger) AccountOption {
	return func(m *AccountManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPeekTTL sets how long records of offline players stay cached.
func WithPeekTTL(ttl time.Duration) AccountOption {
	return func(m *AccountManager) {
		m.peekTTL = ttl
	}
}

// WithBcryptCost sets the hashing cost for new passwords.
func WithBcryptCost(cost int) AccountOption {
	return func(m *AccountManager) {
		m.cost = cost
	}
}

// WithAdminAccount names the account that always has admin rights.
func WithAdminAccount(name string) AccountOption {
	return func(m *AccountManager) {
		if name = strings.TrimSpace(name); name != "" {
			m.admin = name
		}
	}
}

// AccountManager is the catalog of player records. Each record lives in its
// own document under dir. Records of logged in players are held in memory
// and written back when released or by SaveDirty. It is not safe for
// concurrent use; the reactor goroutine owns it.
type AccountManager struct {
	dir     string
	logger  *slog.Logger
	admin   string
	peekTTL time.Duration
	cost    int

	loaded  *index.Tree[string, *Account]
	offline *cache.Cache
}

// NewAccountManager opens the catalog stored in dir.
func NewAccountManager(dir string, opts ...AccountOption) (*AccountManager, error) {
	m := &AccountManager{
		dir:     dir,
		logger:  slog.Default(),
		admin:   defaultAdminAccount,
		peekTTL: 5 * time.Minute,
		cost:    bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create accounts directory: %w", err)
	}
	m.loaded = index.NewFold[*Account](
		index.WithValueRelease[string, *Account](m.release),
		index.WithLogger[string, *Account](m.logger),
	)
	ttl := m.peekTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	m.offline = cache.New(ttl, 2*max(ttl, time.Minute))
	return m, nil
}

func (m *AccountManager) path(name string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(name)))
	return filepath.Join(m.dir, hex.EncodeToString(sum[:])+".txt")
}

func (m *AccountManager) release(a *Account) {
	if !a.dirty {
		return
	}
	if err := m.save(a); err != nil {
		m.logger.Error("saving account failed", "account", a.Name, "error", err)
	}
}

func (m *AccountManager) save(a *Account) error {
	if err := store.Save(m.path(a.Name), a.encode()); err != nil {
		return fmt.Errorf("save account %s: %w", a.Name, err)
	}
	a.dirty = false
	m.offline.Delete(strings.ToLower(a.Name))
	return nil
}

func (m *AccountManager) readDisk(name string) (*Account, error) {
	v, err := store.Load(m.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", name, err)
	}
	a := decodeAccount(v)
	if !strings.EqualFold(a.Name, name) {
		return nil, fmt.Errorf("load account %s: record names %q", name, a.Name)
	}
	return a, nil
}

// Exists reports whether an account called name has been registered.
func (m *AccountManager) Exists(name string) bool {
	if m.loaded.Get(name) != index.NilNode {
		return true
	}
	_, err := os.Stat(m.path(name))
	return err == nil
}

// Register creates an account and holds it as loaded.
func (m *AccountManager) Register(name, password string, now time.Time) (*Account, error) {
	if err := ValidateUsername(name); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	if m.Exists(name) {
		return nil, ErrAccountExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &Account{
		Name:      name,
		Hash:      string(hashed),
		Prefs:     PrefColor,
		CreatedAt: now.UTC(),
	}
	if strings.EqualFold(name, m.admin) {
		a.Role = RoleAdmin
	}
	if err := m.save(a); err != nil {
		return nil, err
	}
	m.loaded.Insert(name, a)
	m.logger.Info("account created", "account", name)
	return a, nil
}

// Authenticate checks a password and holds the account as loaded.
func (m *AccountManager) Authenticate(name, password string) (*Account, error) {
	a, ok := m.loaded.Lookup(name)
	if !ok {
		var err error
		if a, err = m.readDisk(name); err != nil {
			return nil, err
		}
	}
	if bcrypt.CompareHashAndPassword([]byte(a.Hash), []byte(password)) != nil {
		return nil, ErrBadPassword
	}
	if !ok {
		m.loaded.Insert(a.Name, a)
	}
	return a, nil
}

// RecordLogin updates login bookkeeping.
func (m *AccountManager) RecordLogin(a *Account, when time.Time) {
	a.LastLogin = when.UTC()
	a.Logins++
	a.dirty = true
}

// Release writes a loaded account back if it changed and drops it from
// memory.
func (m *AccountManager) Release(name string) {
	m.loaded.Delete(name)
}

// Loaded returns the in-memory record for name.
func (m *AccountManager) Loaded(name string) (*Account, bool) {
	return m.loaded.Lookup(name)
}

// Peek returns a read-only view of any account, loaded or not. Records read
// from disk are cached for a while.
func (m *AccountManager) Peek(name string) (*Account, error) {
	if a, ok := m.loaded.Lookup(name); ok {
		return a, nil
	}
	key := strings.ToLower(name)
	if v, ok := m.offline.Get(key); ok {
		return v.(*Account), nil
	}
	a, err := m.readDisk(name)
	if err != nil {
		return nil, err
	}
	m.offline.Set(key, a, cache.DefaultExpiration)
	return a, nil
}

// IsAdmin reports whether a has admin rights.
func (m *AccountManager) IsAdmin(a *Account) bool {
	return a.Role == RoleAdmin || strings.EqualFold(a.Name, m.admin)
}

// QueueTell stores a message for a player who is not connected.
func (m *AccountManager) QueueTell(to, from, body string, now time.Time) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return errors.New("empty message")
	}
	a, loaded := m.loaded.Lookup(to)
	if !loaded {
		var err error
		if a, err = m.readDisk(to); err != nil {
			return err
		}
	}
	count := 0
	for _, t := range a.Tells {
		if strings.EqualFold(t.From, from) {
			count++
		}
	}
	if count >= OfflineTellLimitPerSender {
		return ErrOfflineTellLimit
	}
	a.Tells = append(a.Tells, OfflineTell{From: from, Body: body, At: now.UTC()})
	a.dirty = true
	if loaded {
		return nil
	}
	return m.save(a)
}

// TakeTells returns and clears the messages waiting for a.
func (m *AccountManager) TakeTells(a *Account) []OfflineTell {
	if len(a.Tells) == 0 {
		return nil
	}
	tells := a.Tells
	a.Tells = nil
	a.dirty = true
	return tells
}

// SaveDirty writes every changed loaded account and returns how many were
// written.
func (m *AccountManager) SaveDirty() int {
	saved := 0
	for _, a := range m.loaded.All() {
		if !a.dirty {
			continue
		}
		if err := m.save(a); err != nil {
			m.logger.Error("saving account failed", "account", a.Name, "error", err)
			continue
		}
		saved++
	}
	return saved
}

// Close writes back and releases every loaded account.
func (m *AccountManager) Close() {
	m.loaded.Clear()
	m.offline.Flush()
}
