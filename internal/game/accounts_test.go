package game

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"Kiln/internal/store"
)

var testNow = time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)

func newTestAccounts(t *testing.T, dir string, opts ...AccountOption) *AccountManager {
	t.Helper()
	opts = append([]AccountOption{
		WithBcryptCost(bcrypt.MinCost),
		WithAccountLogger(slog.New(slog.DiscardHandler)),
	}, opts...)
	m, err := NewAccountManager(dir, opts...)
	require.NoError(t, err)
	return m
}

func TestRegisterAndAuthenticateAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	m := newTestAccounts(t, dir)

	a, err := m.Register("Ember", "secret1", testNow)
	require.NoError(t, err)
	assert.Equal(t, RolePlayer, a.Role)
	assert.True(t, a.Pref(PrefColor))
	assert.True(t, m.Exists("ember"))
	_, err = m.Register("EMBER", "secret2", testNow)
	require.ErrorIs(t, err, ErrAccountExists)

	m.RecordLogin(a, testNow.Add(time.Minute))
	a.SetTitle("the Kindler")
	m.Release("Ember")
	_, ok := m.Loaded("Ember")
	assert.False(t, ok)
	m.Close()

	m = newTestAccounts(t, dir)
	_, err = m.Authenticate("ember", "wrong-password")
	require.ErrorIs(t, err, ErrBadPassword)
	_, ok = m.Loaded("ember")
	assert.False(t, ok, "a failed login does not load the record")

	b, err := m.Authenticate("ember", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Ember", b.Name)
	assert.Equal(t, "the Kindler", b.Title)
	assert.Equal(t, 1, b.Logins)
	assert.True(t, b.LastLogin.Equal(testNow.Add(time.Minute)))
	assert.True(t, b.CreatedAt.Equal(testNow))
	loaded, ok := m.Loaded("EMBER")
	require.True(t, ok)
	assert.Same(t, b, loaded)
}

func TestAuthenticateUnknownAccount(t *testing.T) {
	m := newTestAccounts(t, t.TempDir())
	_, err := m.Authenticate("nobody", "whatever")
	require.ErrorIs(t, err, ErrNoAccount)
	assert.False(t, m.Exists("nobody"))
}

func TestRegisterValidates(t *testing.T) {
	m := newTestAccounts(t, t.TempDir())
	_, err := m.Register("x", "secret1", testNow)
	assert.Error(t, err)
	_, err = m.Register("bad name", "secret1", testNow)
	assert.Error(t, err)
	_, err = m.Register("Valid", "short", testNow)
	assert.Error(t, err)
	assert.False(t, m.Exists("Valid"))
}

func TestAdminAccountGetsAdminRole(t *testing.T) {
	m := newTestAccounts(t, t.TempDir(), WithAdminAccount("Warden"))
	a, err := m.Register("warden", "secret1", testNow)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, a.Role)
	assert.True(t, m.IsAdmin(a))

	b, err := m.Register("Guest", "secret1", testNow)
	require.NoError(t, err)
	assert.False(t, m.IsAdmin(b))
}

func TestReleaseSavesOnlyDirtyRecords(t *testing.T) {
	dir := t.TempDir()
	m := newTestAccounts(t, dir)
	a, err := m.Register("Cinder", "secret1", testNow)
	require.NoError(t, err)
	path := m.path("Cinder")
	before, err := os.Stat(path)
	require.NoError(t, err)

	m.Release("Cinder")
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime(), "clean records are not rewritten")

	a, err = m.Authenticate("Cinder", "secret1")
	require.NoError(t, err)
	a.SetPref(PrefBrief, true)
	assert.True(t, a.Dirty())
	m.Release("cinder")
	assert.False(t, a.Dirty())

	v, err := store.Load(path)
	require.NoError(t, err)
	prefs := v.Get("prefs")
	assert.True(t, prefs.GetBool("color", false))
	assert.True(t, prefs.GetBool("brief", false))
	assert.False(t, prefs.GetBool("quiet", true))
}

func TestSaveDirtyCountsWrites(t *testing.T) {
	m := newTestAccounts(t, t.TempDir())
	a, err := m.Register("Ash", "secret1", testNow)
	require.NoError(t, err)
	_, err = m.Register("Soot", "secret1", testNow)
	require.NoError(t, err)

	assert.Equal(t, 0, m.SaveDirty())
	a.SetPref(PrefQuiet, true)
	assert.Equal(t, 1, m.SaveDirty())
	assert.Equal(t, 0, m.SaveDirty())
}

func TestOfflineTellsQueueAndDeliver(t *testing.T) {
	dir := t.TempDir()
	m := newTestAccounts(t, dir)
	_, err := m.Register("Flint", "secret1", testNow)
	require.NoError(t, err)
	m.Release("Flint")

	for i := range OfflineTellLimitPerSender {
		require.NoError(t, m.QueueTell("flint", "Ember", "hello", testNow.Add(time.Duration(i)*time.Second)))
	}
	require.ErrorIs(t, m.QueueTell("flint", "ember", "one more", testNow), ErrOfflineTellLimit)
	require.NoError(t, m.QueueTell("flint", "Ash", "hi from ash", testNow))
	require.Error(t, m.QueueTell("flint", "Ash", "   ", testNow))
	require.ErrorIs(t, m.QueueTell("nobody", "Ash", "hi", testNow), ErrNoAccount)

	a, err := m.Authenticate("Flint", "secret1")
	require.NoError(t, err)
	tells := m.TakeTells(a)
	require.Len(t, tells, OfflineTellLimitPerSender+1)
	assert.Equal(t, "Ember", tells[0].From)
	assert.Equal(t, "hello", tells[0].Body)
	assert.True(t, tells[0].At.Equal(testNow))
	assert.Equal(t, "hi from ash", tells[len(tells)-1].Body)
	assert.Nil(t, m.TakeTells(a))

	m.Release("Flint")
	a, err = m.Authenticate("Flint", "secret1")
	require.NoError(t, err)
	assert.Empty(t, a.Tells, "delivered tells are not stored again")
}

func TestQueueTellToLoadedAccountStaysInMemory(t *testing.T) {
	m := newTestAccounts(t, t.TempDir())
	a, err := m.Register("Flint", "secret1", testNow)
	require.NoError(t, err)

	require.NoError(t, m.QueueTell("Flint", "Ember", "later", testNow))
	assert.True(t, a.Dirty())
	require.Len(t, a.Tells, 1)
}

func TestPeekCachesOfflineRecords(t *testing.T) {
	dir := t.TempDir()
	m := newTestAccounts(t, dir, WithPeekTTL(time.Hour))
	_, err := m.Register("Slag", "secret1", testNow)
	require.NoError(t, err)
	m.Release("Slag")

	first, err := m.Peek("slag")
	require.NoError(t, err)
	second, err := m.Peek("SLAG")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, os.Remove(m.path("Slag")))
	cached, err := m.Peek("Slag")
	require.NoError(t, err)
	assert.Same(t, first, cached)

	_, err = m.Peek("Nobody")
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestPeekPrefersLoadedRecord(t *testing.T) {
	m := newTestAccounts(t, t.TempDir())
	a, err := m.Register("Coal", "secret1", testNow)
	require.NoError(t, err)
	got, err := m.Peek("coal")
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestAccountRecordFormat(t *testing.T) {
	a := &Account{
		Name:      "Ember",
		Hash:      "$2a$04$abc",
		Role:      RoleBuilder,
		Prefs:     PrefColor | PrefQuiet,
		Title:     "the Kindler",
		CreatedAt: testNow,
		Logins:    3,
		Tells:     []OfflineTell{{From: "Ash", Body: "hi", At: testNow}},
	}
	v := a.encode()
	assert.Equal(t, "builder", v.GetString("role", ""))
	assert.True(t, v.Get("prefs").GetBool("quiet", false))
	assert.False(t, v.Get("prefs").GetBool("brief", true))
	assert.Equal(t, "2024-03-09 18:30:00", v.GetString("created", ""))
	assert.False(t, v.Has("last_login"))
	assert.Equal(t, "hi", v.Get("tells").Get("1").GetString("text", ""))

	parsed, err := store.ParseBytes(v.Bytes())
	require.NoError(t, err)
	b := decodeAccount(parsed)
	assert.Equal(t, a.Name, b.Name)
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Role, b.Role)
	assert.Equal(t, a.Prefs, b.Prefs)
	assert.Equal(t, a.Title, b.Title)
	assert.Equal(t, a.Logins, b.Logins)
	require.Len(t, b.Tells, 1)
	assert.Equal(t, "Ash", b.Tells[0].From)
	assert.True(t, b.LastLogin.IsZero())
}

func TestDecodeAccountDefaults(t *testing.T) {
	v := store.New()
	v.PutString("name", "Old")
	v.PutString("role", "wizard")
	a := decodeAccount(v)
	assert.Equal(t, RolePlayer, a.Role)
	assert.Equal(t, PrefColor, a.Prefs)
	assert.Equal(t, 0, a.Logins)
}

func TestRoleAndPrefNames(t *testing.T) {
	assert.Equal(t, "admin", RoleAdmin.String())
	assert.Equal(t, "role-9", Role(9).String())
	bit, ok := PrefBit("Brief")
	require.True(t, ok)
	assert.Equal(t, PrefBrief, bit)
	_, ok = PrefBit("loud")
	assert.False(t, ok)
}
