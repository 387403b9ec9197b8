package auth_test

import (
	"testing"
	"time"

	"crm-service/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key", time.Hour)

	token, err := tokens.Issue(42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	counselorID, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, 42, counselorID)
}

func TestTokenService_Expired(t *testing.T) {
	// Negative TTL produces a token that expired in the past
	tokens := auth.NewTokenService("test-secret-key", -time.Minute)

	token, err := tokens.Issue(42)
	require.NoError(t, err)

	_, err = tokens.Verify(token)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestTokenService_WrongKey(t *testing.T) {
	issuer := auth.NewTokenService("issuer-secret", time.Hour)
	verifier := auth.NewTokenService("other-secret", time.Hour)

	token, err := issuer.Issue(42)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_Tampered(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key", time.Hour)

	token, err := tokens.Issue(42)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = tokens.Verify(tampered)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)
}

func TestTokenService_Garbage(t *testing.T) {
	tokens := auth.NewTokenService("test-secret-key", time.Hour)

	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		_, err := tokens.Verify(input)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid, "input %q", input)
	}
}
