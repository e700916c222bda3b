package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
)

func TestRequestSignupCreatesUserAndMailsCode(t *testing.T) {
	env := setupTestEnv(t)

	user, err := env.accounts.RequestSignup(context.Background(), SignupInput{Username: "Alice", Email: "Alice@X.com"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@x.com", user.Email)
	assert.NotEmpty(t, user.ConfirmationCode)

	require.Len(t, env.mailer.sent, 1)
	msg := env.mailer.sent[0]
	assert.Equal(t, []string{"alice@x.com"}, msg.To)
	assert.Equal(t, "admin@yamdb.local", msg.From)
	assert.True(t, strings.HasSuffix(msg.Body, user.ConfirmationCode))
}

func TestRequestSignupIsIdempotentAndRotatesCode(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first, err := env.accounts.RequestSignup(ctx, SignupInput{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	code1 := first.ConfirmationCode

	second, err := env.accounts.RequestSignup(ctx, SignupInput{Username: "ALICE", Email: "A@x.com"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, code1, second.ConfirmationCode)

	_, err = env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "alice", ConfirmationCode: code1})
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)

	token, err := env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "alice", ConfirmationCode: second.ConfirmationCode})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestRequestSignupCollisions(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.accounts.RequestSignup(ctx, SignupInput{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = env.accounts.RequestSignup(ctx, SignupInput{Username: "alice", Email: "b@x.com"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "username already registered")

	_, err = env.accounts.RequestSignup(ctx, SignupInput{Username: "bob", Email: "a@x.com"})
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.Contains(t, err.Error(), "email already in use")
}

func TestRequestSignupRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input SignupInput
	}{
		{name: "reserved lower", input: SignupInput{Username: "me", Email: "m@x.com"}},
		{name: "reserved title case", input: SignupInput{Username: "Me", Email: "m@x.com"}},
		{name: "reserved upper", input: SignupInput{Username: "ME", Email: "m@x.com"}},
		{name: "bad characters", input: SignupInput{Username: "al ice", Email: "a@x.com"}},
		{name: "bad email", input: SignupInput{Username: "alice", Email: "not-an-email"}},
		{name: "missing email", input: SignupInput{Username: "alice"}},
		{name: "too long", input: SignupInput{Username: strings.Repeat("a", 151), Email: "a@x.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t)
			_, err := env.accounts.RequestSignup(context.Background(), tt.input)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Empty(t, env.mailer.sent)
		})
	}
}

func TestRequestSignupSurvivesMailFailure(t *testing.T) {
	env := setupTestEnv(t)
	env.mailer.err = errors.New("smtp down")
	ctx := context.Background()

	user, err := env.accounts.RequestSignup(ctx, SignupInput{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)

	stored, err := env.store.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ConfirmationCode, stored.ConfirmationCode)
}

func TestExchangeCodeForToken(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user, err := env.accounts.RequestSignup(ctx, SignupInput{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	code := user.ConfirmationCode

	_, err = env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "nobody", ConfirmationCode: code})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "alice", ConfirmationCode: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrInvalidCode)

	_, err = env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "alice"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	for _, bad := range []string{"al ice", "al/ice", "me"} {
		_, err = env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: bad, ConfirmationCode: code})
		assert.ErrorIs(t, err, apperr.ErrValidation, bad)
	}

	token, err := env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "Alice", ConfirmationCode: code})
	require.NoError(t, err)

	principal, err := env.accounts.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.ID)

	_, err = env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "alice", ConfirmationCode: code})
	assert.ErrorIs(t, err, apperr.ErrInvalidCode, "codes are single use")
}

func TestAuthenticateSeesRoleChanges(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	user, err := env.accounts.RequestSignup(ctx, SignupInput{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	token, err := env.accounts.ExchangeCodeForToken(ctx, TokenInput{Username: "alice", ConfirmationCode: user.ConfirmationCode})
	require.NoError(t, err)

	admin := env.user(t, "root", "admin")
	role := "moderator"
	_, err = env.users.Update(ctx, admin, "alice", UpdateUserInput{Role: rolePtr(role)})
	require.NoError(t, err)

	principal, err := env.accounts.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.True(t, principal.IsModerator())

	_, err = env.accounts.Authenticate(ctx, token+"x")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	require.NoError(t, env.users.Delete(ctx, admin, "alice"))
	_, err = env.accounts.Authenticate(ctx, token)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}
