package validation

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

type signupRequest struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

type categoryRequest struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

type roleRequest struct {
	Role    models.Role  `json:"role" validate:"omitempty,role"`
	NewRole *models.Role `json:"new_role" validate:"omitnil,role"`
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperr.Error
	if !assert.True(t, errors.As(err, &appErr)) {
		return nil
	}
	assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus())
	details, ok := appErr.Details.(map[string]string)
	assert.True(t, ok)
	return details
}

func TestValidateSuccess(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(signupRequest{Username: "alice.b+c@d-e_f", Email: "a@x.com"}))
	assert.NoError(t, v.Validate(signupRequest{Username: "Алиса", Email: "a@x.com"}))
	assert.NoError(t, v.Validate(categoryRequest{Name: "Films", Slug: "films_2-0"}))
}

func TestValidateUsername(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		username string
		message  string
	}{
		{"reserved lower", "me", "cannot be used"},
		{"reserved title case", "Me", "cannot be used"},
		{"reserved upper", "ME", "cannot be used"},
		{"space", "al ice", "may contain only"},
		{"slash", "al/ice", "may contain only"},
		{"empty", "", "is required"},
		{"too long", strings.Repeat("a", 151), "must not exceed 150"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(signupRequest{Username: tt.username, Email: "a@x.com"})
			details := fieldErrors(t, err)
			assert.Contains(t, details["username"], tt.message)
		})
	}
}

func TestValidateUsernameAllowsMeAsSubstring(t *testing.T) {
	v := New()
	assert.NoError(t, v.Validate(signupRequest{Username: "meme", Email: "a@x.com"}))
	assert.NoError(t, v.Validate(signupRequest{Username: "me2", Email: "a@x.com"}))
}

func TestValidateEmailAndSlug(t *testing.T) {
	v := New()

	details := fieldErrors(t, v.Validate(signupRequest{Username: "alice", Email: "not-an-email"}))
	assert.Equal(t, "must be a valid email address", details["email"])

	details = fieldErrors(t, v.Validate(categoryRequest{Name: "Films", Slug: "bad slug!"}))
	assert.Contains(t, details["slug"], "latin letters")
}

func TestCheckScore(t *testing.T) {
	tests := []struct {
		score   int
		wantErr string
	}{
		{0, "at least 1"},
		{-3, "at least 1"},
		{11, "at most 10"},
		{1, ""},
		{7, ""},
		{10, ""},
	}

	for _, tt := range tests {
		err := CheckScore(tt.score)
		if tt.wantErr == "" {
			assert.NoError(t, err, "score %d", tt.score)
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, err.Error(), tt.wantErr)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "alice@x.com", Normalize("  Alice@X.com "))
	assert.True(t, IsReservedUsername("mE"))
	assert.False(t, IsReservedUsername("meh"))
}

func TestValidateRole(t *testing.T) {
	v := New()
	moderator := models.RoleModerator
	owner := models.Role("owner")

	assert.NoError(t, v.Validate(roleRequest{}))
	assert.NoError(t, v.Validate(roleRequest{Role: models.RoleAdmin, NewRole: &moderator}))

	details := fieldErrors(t, v.Validate(roleRequest{Role: "superuser"}))
	assert.Equal(t, "must be one of: user, moderator, admin", details["role"])

	details = fieldErrors(t, v.Validate(roleRequest{NewRole: &owner}))
	assert.Contains(t, details["new_role"], "must be one of")
}
