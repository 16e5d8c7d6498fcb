package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New("short", time.Hour)
	assert.Error(t, err)
}

func TestGenerateAndVerify(t *testing.T) {
	svc, err := New(testSecret, time.Hour)
	require.NoError(t, err)

	tok, err := svc.Generate(42, ActionApprove)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	id, err := svc.Verify(tok, ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestVerifyRejectsActionMismatch(t *testing.T) {
	svc, _ := New(testSecret, time.Hour)

	tok, err := svc.Generate(42, ActionApprove)
	require.NoError(t, err)

	_, err = svc.Verify(tok, ActionReject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := New(testSecret, time.Hour)
	verifier, _ := New("ffffffffffffffffffffffffffffffff", time.Hour)

	tok, err := issuer.Generate(7, ActionReject)
	require.NoError(t, err)

	_, err = verifier.Verify(tok, ActionReject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpired(t *testing.T) {
	svc, _ := New(testSecret, time.Nanosecond)

	tok, err := svc.Generate(7, ActionApprove)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = svc.Verify(tok, ActionApprove)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc, _ := New(testSecret, time.Hour)

	tok, err := svc.Generate(42, ActionApprove)
	require.NoError(t, err)

	// Flip a single byte of the signed payload.
	raw := []byte(tok)
	i := len(raw) / 2
	if raw[i] == 'A' {
		raw[i] = 'B'
	} else {
		raw[i] = 'A'
	}

	_, err = svc.Verify(string(raw), ActionApprove)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc, _ := New(testSecret, time.Hour)

	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.Verify(tok, ActionApprove)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestGenerateRejectsUnknownAction(t *testing.T) {
	svc, _ := New(testSecret, time.Hour)
	_, err := svc.Generate(1, "delete")
	assert.Error(t, err)
}
