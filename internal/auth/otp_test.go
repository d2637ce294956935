package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	Email, Purpose, Code, Token string
}

// chanMailer hands every delivery to a channel so tests can wait for the
// fire-and-forget goroutine.
type chanMailer struct {
	ch chan sentMail
}

func newChanMailer() *chanMailer { return &chanMailer{ch: make(chan sentMail, 8)} }

func (m *chanMailer) SendOneTimeCode(_ context.Context, email, purpose, code, token string) error {
	m.ch <- sentMail{Email: email, Purpose: purpose, Code: code, Token: token}
	return nil
}

func (m *chanMailer) wait(t *testing.T) sentMail {
	t.Helper()
	select {
	case s := <-m.ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no mail event delivered")
		return sentMail{}
	}
}

func TestIssueDeliversCodeByMail(t *testing.T) {
	_, rdb := newTestRedis(t)
	mailer := newChanMailer()
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, mailer)

	code, err := broker.Issue(context.Background(), 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)
	require.Len(t, code.Code, 6)
	require.Len(t, code.Token, 64) // 32 bytes hex encoded

	mail := mailer.wait(t)
	assert.Equal(t, "a@x.com", mail.Email)
	assert.Equal(t, PurposeVerifyEmail, mail.Purpose)
	assert.Equal(t, code.Code, mail.Code)
	assert.Equal(t, code.Token, mail.Token)
}

func TestVerifyCodeConsumesRecord(t *testing.T) {
	_, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	code, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	require.NoError(t, broker.VerifyCode(ctx, 7, PurposeVerifyEmail, code.Code, code.Token))

	// Single use: the exact same pair must not verify twice.
	err = broker.VerifyCode(ctx, 7, PurposeVerifyEmail, code.Code, code.Token)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestVerifyCodeWrongCodeRightToken(t *testing.T) {
	_, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	code, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code.Code {
		wrong = "000001"
	}
	err = broker.VerifyCode(ctx, 7, PurposeVerifyEmail, wrong, code.Token)
	assert.ErrorIs(t, err, ErrBadCode)

	// A failed attempt must not consume the record.
	require.NoError(t, broker.VerifyCode(ctx, 7, PurposeVerifyEmail, code.Code, code.Token))
}

func TestVerifyCodeRightCodeWrongToken(t *testing.T) {
	_, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	code, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	err = broker.VerifyCode(ctx, 7, PurposeVerifyEmail, code.Code, "deadbeef")
	assert.ErrorIs(t, err, ErrBadToken)
}

func TestVerifyTokenLeavesRecordLive(t *testing.T) {
	_, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	code, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	// The link can be opened more than once before the code is typed.
	require.NoError(t, broker.VerifyToken(ctx, 7, PurposeVerifyEmail, code.Token))
	require.NoError(t, broker.VerifyToken(ctx, 7, PurposeVerifyEmail, code.Token))

	assert.ErrorIs(t, broker.VerifyToken(ctx, 7, PurposeVerifyEmail, "wrong"), ErrBadToken)

	require.NoError(t, broker.VerifyCode(ctx, 7, PurposeVerifyEmail, code.Code, code.Token))
}

func TestReissueInvalidatesPreviousPair(t *testing.T) {
	_, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	first, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)
	second, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	// The stale pair must never verify once a fresh one exists.
	err = broker.VerifyCode(ctx, 7, PurposeVerifyEmail, first.Code, first.Token)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCodeNotFound)

	require.NoError(t, broker.VerifyCode(ctx, 7, PurposeVerifyEmail, second.Code, second.Token))
}

func TestPurposesAreIsolated(t *testing.T) {
	_, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	verify, err := broker.Issue(ctx, 7, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	// No reset record exists for this principal.
	err = broker.VerifyCode(ctx, 7, PurposeResetPassword, verify.Code, verify.Token)
	assert.ErrorIs(t, err, ErrCodeNotFound)
}

func TestRecordExpiresByPurposeTTL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	verify, err := broker.Issue(ctx, 1, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)
	reset, err := broker.Issue(ctx, 1, PurposeResetPassword, "a@x.com")
	require.NoError(t, err)

	mr.FastForward(6 * time.Minute)

	err = broker.VerifyCode(ctx, 1, PurposeVerifyEmail, verify.Code, verify.Token)
	assert.ErrorIs(t, err, ErrCodeNotFound, "verification records live 5 minutes")

	require.NoError(t, broker.VerifyCode(ctx, 1, PurposeResetPassword, reset.Code, reset.Token),
		"reset records live 15 minutes")
}

func TestBrokerFailsClosedWhenStoreDown(t *testing.T) {
	mr, rdb := newTestRedis(t)
	broker := NewCodeBroker(rdb, 5*time.Minute, 15*time.Minute, nil)
	ctx := context.Background()

	code, err := broker.Issue(ctx, 1, PurposeVerifyEmail, "a@x.com")
	require.NoError(t, err)

	mr.Close()

	err = broker.VerifyCode(ctx, 1, PurposeVerifyEmail, code.Code, code.Token)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = broker.Issue(ctx, 1, PurposeVerifyEmail, "a@x.com")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
