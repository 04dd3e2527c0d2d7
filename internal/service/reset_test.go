package service

import (
	"bitwise74/sketch-api/internal/model"
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetFixture struct {
	flow     *ResetFlow
	accounts *Accounts
	auth     *Authenticator
	mail     *fakeMailer
	now      time.Time
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()

	accounts := NewAccounts(newTestDB(t))
	f := &resetFixture{
		accounts: accounts,
		auth:     NewAuthenticator(accounts, fastArgon()),
		mail:     &fakeMailer{},
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	f.flow = &ResetFlow{
		Accounts:  accounts,
		Argon:     fastArgon(),
		Mailer:    f.mail,
		TTL:       time.Hour,
		Cooldown:  time.Minute,
		PublicURL: "https://sketch.example.com/",
		Now:       func() time.Time { return f.now },
	}

	return f
}

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/reset-password", u.Path)

	return u.Query().Get("token")
}

func TestResetRoundTrip(t *testing.T) {
	f := newResetFixture(t)
	createUser(t, f.accounts, "reset@example.com", "old-password", 5)
	ctx := context.Background()

	require.NoError(t, f.flow.Request(ctx, "reset@example.com"))

	sent := f.mail.last()
	assert.Equal(t, "reset@example.com", sent.to)
	tok := tokenFromLink(t, sent.link)
	assert.Len(t, tok, 64)

	require.NoError(t, f.flow.Complete(ctx, tok, "new-password"))

	_, err := f.auth.Authenticate(ctx, "reset@example.com", "new-password")
	require.NoError(t, err)

	_, err = f.auth.Authenticate(ctx, "reset@example.com", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Single use
	err = f.flow.Complete(ctx, tok, "another-password")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	u, err := f.accounts.ByEmail(ctx, "reset@example.com")
	require.NoError(t, err)
	assert.Nil(t, u.ResetToken)
	assert.Nil(t, u.ResetTokenExpiresAt)
}

func TestResetExpiryBoundary(t *testing.T) {
	f := newResetFixture(t)
	createUser(t, f.accounts, "expiry@example.com", "old-password", 5)
	ctx := context.Background()

	require.NoError(t, f.flow.Request(ctx, "expiry@example.com"))
	tok := tokenFromLink(t, f.mail.last().link)

	// Exactly at expiry the token is already dead
	f.now = f.now.Add(time.Hour)
	err := f.flow.Complete(ctx, tok, "new-password")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	f.now = f.now.Add(-time.Millisecond)
	require.NoError(t, f.flow.Complete(ctx, tok, "new-password"))
}

func TestResetNewTokenReplacesOld(t *testing.T) {
	f := newResetFixture(t)
	createUser(t, f.accounts, "twice@example.com", "old-password", 5)
	ctx := context.Background()

	require.NoError(t, f.flow.Request(ctx, "twice@example.com"))
	first := tokenFromLink(t, f.mail.last().link)

	f.now = f.now.Add(2 * time.Minute)
	require.NoError(t, f.flow.Request(ctx, "twice@example.com"))
	second := tokenFromLink(t, f.mail.last().link)

	assert.NotEqual(t, first, second)
	assert.ErrorIs(t, f.flow.Complete(ctx, first, "new-password"), ErrInvalidOrExpiredToken)
	assert.NoError(t, f.flow.Complete(ctx, second, "new-password"))
}

func TestResetCooldown(t *testing.T) {
	f := newResetFixture(t)
	createUser(t, f.accounts, "cool@example.com", "old-password", 5)
	ctx := context.Background()

	require.NoError(t, f.flow.Request(ctx, "cool@example.com"))

	f.now = f.now.Add(30 * time.Second)
	assert.ErrorIs(t, f.flow.Request(ctx, "cool@example.com"), ErrResetCooldown)
	assert.Len(t, f.mail.sent, 1)

	f.now = f.now.Add(30 * time.Second)
	assert.NoError(t, f.flow.Request(ctx, "cool@example.com"))
}

func TestResetErrors(t *testing.T) {
	f := newResetFixture(t)
	createUser(t, f.accounts, "err@example.com", "old-password", 5)
	ctx := context.Background()

	assert.ErrorIs(t, f.flow.Request(ctx, "missing@example.com"), ErrUserNotFound)
	assert.True(t, IsValidation(f.flow.Request(ctx, "")))

	assert.True(t, IsValidation(f.flow.Complete(ctx, "", "new-password")))
	assert.True(t, IsValidation(f.flow.Complete(ctx, "token", "short")))
	assert.ErrorIs(t, f.flow.Complete(ctx, "not-a-token", "new-password"), ErrInvalidOrExpiredToken)

	f.mail.err = errors.New("smtp down")
	assert.Error(t, f.flow.Request(ctx, "err@example.com"))
}

func TestClearExpired(t *testing.T) {
	f := newResetFixture(t)
	createUser(t, f.accounts, "stale@example.com", "old-password", 5)
	ctx := context.Background()

	require.NoError(t, f.flow.Request(ctx, "stale@example.com"))

	n, err := f.flow.ClearExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.now = f.now.Add(2 * time.Hour)
	n, err = f.flow.ClearExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	u, err := f.accounts.ByEmail(ctx, "stale@example.com")
	require.NoError(t, err)
	assert.Nil(t, u.ResetToken)
}

func TestResetMailFailureAllowsRetry(t *testing.T) {
	f := newResetFixture(t)
	id := createUser(t, f.accounts, "retry@example.com", "old-password", 5)
	ctx := context.Background()

	f.mail.err = ErrUpstreamTimeout
	assert.ErrorIs(t, f.flow.Request(ctx, "retry@example.com"), ErrUpstreamTimeout)
	assert.Empty(t, f.mail.sent)

	f.now = f.now.Add(6 * time.Second)
	f.mail.err = nil
	require.NoError(t, f.flow.Request(ctx, "retry@example.com"))
	tok := tokenFromLink(t, f.mail.last().link)

	// The successful send starts the cooldown
	f.now = f.now.Add(6 * time.Second)
	assert.ErrorIs(t, f.flow.Request(ctx, "retry@example.com"), ErrResetCooldown)

	// A failed send after an earlier success keeps the earlier cooldown
	f.now = f.now.Add(2 * time.Minute)
	f.mail.err = errors.New("smtp down")
	assert.Error(t, f.flow.Request(ctx, "retry@example.com"))

	var req model.ResetRequest
	require.NoError(t, f.accounts.DB.Where("user_id = ?", id).First(&req).Error)
	assert.Equal(t, f.now.Add(-2*time.Minute-6*time.Second).UnixMilli(), req.LastRequest)
	assert.Equal(t, 1, req.Requests)

	// The token of the failed send replaced the mailed one
	assert.ErrorIs(t, f.flow.Complete(ctx, tok, "new-password"), ErrInvalidOrExpiredToken)
}
