package service

import (
	"bitwise74/sketch-api/db"
	"bitwise74/sketch-api/pkg/security"
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	d, err := db.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close(d) })

	return d
}

func fastArgon() *security.ArgonHash {
	return &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func createUser(t *testing.T, a *Accounts, email, password string, coins int) string {
	t.Helper()

	hash, err := fastArgon().GenerateFromPassword(password)
	require.NoError(t, err)

	u, err := a.Create(context.Background(), NewAccount{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Coins:        coins,
	})
	require.NoError(t, err)

	return u.ID
}

type memQuota struct {
	mu  sync.Mutex
	n   int
	set bool
}

func (m *memQuota) Get(context.Context) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.n, m.set, nil
}

func (m *memQuota) Set(_ context.Context, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.n, m.set = n, true
	return nil
}

type sentMail struct {
	to, link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.sent = append(f.sent, sentMail{to: to, link: link})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sent[len(f.sent)-1]
}
