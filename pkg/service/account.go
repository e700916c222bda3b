// Package service holds the request-level operations of the API: it applies
// the access policy, validates input and drives the store inside one
// transaction per mutating action.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/auth"
	"github.com/Slimpush/api-yamdb-final-master/pkg/mail"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

const signupSubject = "YaMDb registration"

type SignupInput struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
}

type TokenInput struct {
	Username         string `json:"username" validate:"required,max=150,username"`
	ConfirmationCode string `json:"confirmation_code" validate:"required,max=150"`
}

// AccountService runs the signup and code-for-token flows.
type AccountService struct {
	store     *store.Store
	codes     *auth.CodeGenerator
	tokens    *auth.TokenService
	mailer    mail.Sender
	mailFrom  string
	validator *validation.Validator
	logger    *slog.Logger
}

func NewAccountService(
	st *store.Store,
	codes *auth.CodeGenerator,
	tokens *auth.TokenService,
	mailer mail.Sender,
	mailFrom string,
	v *validation.Validator,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		store:     st,
		codes:     codes,
		tokens:    tokens,
		mailer:    mailer,
		mailFrom:  mailFrom,
		validator: v,
		logger:    logger,
	}
}

// RequestSignup registers (username, email) or, when exactly that pair is
// already registered, issues it a fresh code. Either way the previous code
// stops working and the new one is mailed after the transaction commits.
func (s *AccountService) RequestSignup(ctx context.Context, in SignupInput) (*models.User, error) {
	in.Username = validation.Normalize(in.Username)
	in.Email = validation.Normalize(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	var user *models.User
	var code string
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		matches, err := tx.UsersMatching(ctx, in.Username, in.Email)
		if err != nil {
			return err
		}

		user, err = resolveSignup(matches, in)
		if err != nil {
			return err
		}
		if user == nil {
			user = &models.User{Username: in.Username, Email: in.Email, Role: models.RoleUser}
			if err := tx.CreateUser(ctx, user); err != nil {
				return err
			}
		}

		code, err = s.codes.Issue(user)
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "could not issue confirmation code")
		}
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.sendCode(ctx, user, code)
	return user, nil
}

// resolveSignup applies the collision rules in order: an exact match is a
// resend, then a username clash, then an email clash. It returns nil, nil
// when a new account should be created.
func resolveSignup(matches []models.User, in SignupInput) (*models.User, error) {
	for i := range matches {
		if matches[i].Username == in.Username && matches[i].Email == in.Email {
			return &matches[i], nil
		}
	}
	for _, m := range matches {
		if m.Username == in.Username {
			return nil, apperr.Conflict("username already registered")
		}
	}
	for _, m := range matches {
		if m.Email == in.Email {
			return nil, apperr.Conflict("email already in use")
		}
	}
	return nil, nil
}

func (s *AccountService) sendCode(ctx context.Context, user *models.User, code string) {
	err := s.mailer.Send(ctx, mail.Message{
		Subject: signupSubject,
		Body:    fmt.Sprintf("Your confirmation code: %s", code),
		From:    s.mailFrom,
		To:      []string{user.Email},
	})
	switch {
	case err == nil:
		s.logger.Info("confirmation code sent", "user_id", user.ID)
	case errors.Is(err, mail.ErrQueued):
		s.logger.Warn("confirmation code queued for retry", "user_id", user.ID, "error", err)
	default:
		s.logger.Error("failed to send confirmation code", "user_id", user.ID, "error", err)
	}
}

// ExchangeCodeForToken trades a valid confirmation code for an access token.
// A successful exchange consumes the code.
func (s *AccountService) ExchangeCodeForToken(ctx context.Context, in TokenInput) (string, error) {
	in.Username = validation.Normalize(in.Username)
	if err := s.validator.Validate(in); err != nil {
		return "", err
	}

	var user *models.User
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		user, err = tx.UserByUsername(ctx, in.Username)
		if err != nil {
			return err
		}
		if !s.codes.Check(user, in.ConfirmationCode) {
			return apperr.InvalidCode()
		}
		if err := s.codes.Consume(user); err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "could not consume confirmation code")
		}
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeInternal, "could not issue token")
	}
	s.logger.Info("access token issued", "user_id", user.ID)
	return token, nil
}

// Authenticate resolves a bearer token to the current state of its user.
// Role changes therefore apply from the next request on.
func (s *AccountService) Authenticate(ctx context.Context, raw string) (*models.User, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeUnauthenticated, "invalid or expired token")
	}
	user, err := s.store.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.logger.Info("token presented for deleted user", "user_id", claims.UserID, "username", claims.Username)
			return nil, apperr.Unauthenticated("user no longer exists")
		}
		return nil, err
	}
	return user, nil
}
