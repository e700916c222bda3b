package service

import (
	"context"
	"log/slog"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
	"github.com/Slimpush/api-yamdb-final-master/pkg/policy"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

type CreateUserInput struct {
	Username  string      `json:"username" validate:"required,max=150,username"`
	Email     string      `json:"email" validate:"required,max=254,email"`
	FirstName string      `json:"first_name" validate:"max=150"`
	LastName  string      `json:"last_name" validate:"max=150"`
	Bio       string      `json:"bio" validate:"max=1024"`
	Role      models.Role `json:"role" validate:"omitempty,role"`
}

// UpdateUserInput is a partial update; nil fields are left unchanged.
type UpdateUserInput struct {
	Username  *string      `json:"username" validate:"omitnil,max=150,username"`
	Email     *string      `json:"email" validate:"omitnil,max=254,email"`
	FirstName *string      `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string      `json:"last_name" validate:"omitnil,max=150"`
	Bio       *string      `json:"bio" validate:"omitnil,max=1024"`
	Role      *models.Role `json:"role" validate:"omitnil,role"`
}

func (in *UpdateUserInput) normalize() {
	if in.Username != nil {
		v := validation.Normalize(*in.Username)
		in.Username = &v
	}
	if in.Email != nil {
		v := validation.Normalize(*in.Email)
		in.Email = &v
	}
}

func (in UpdateUserInput) applyTo(user *models.User) {
	if in.Username != nil {
		user.Username = *in.Username
	}
	if in.Email != nil {
		user.Email = *in.Email
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
}

// UserService manages accounts: the admin surface and the self profile.
type UserService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

func NewUserService(st *store.Store, v *validation.Validator, logger *slog.Logger) *UserService {
	return &UserService{store: st, validator: v, logger: logger}
}

func (s *UserService) List(ctx context.Context, actor *models.User, search string, page store.Page) ([]models.User, int64, error) {
	if err := policy.Check(actor, policy.ActionList, policy.On(policy.KindUser)); err != nil {
		return nil, 0, err
	}
	return s.store.ListUsers(ctx, search, page)
}

func (s *UserService) Create(ctx context.Context, actor *models.User, in CreateUserInput) (*models.User, error) {
	if err := policy.Check(actor, policy.ActionCreate, policy.On(policy.KindUser)); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, in, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", "user_id", user.ID, "by", actor.ID)
	return user, nil
}

// CreateSuperuser creates an admin account with the elevated system flag.
// It bypasses the access policy and is meant for operator tooling only.
func (s *UserService) CreateSuperuser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Role = models.RoleAdmin
	return s.create(ctx, in, true)
}

func (s *UserService) create(ctx context.Context, in CreateUserInput, superuser bool) (*models.User, error) {
	in.Username = validation.Normalize(in.Username)
	in.Email = validation.Normalize(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}

	user := &models.User{
		Username:    in.Username,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Bio:         in.Bio,
		Role:        in.Role,
		IsSuperuser: superuser,
	}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := ensureIdentityFree(ctx, tx, user.Username, user.Email, 0); err != nil {
			return err
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor *models.User, username string) (*models.User, error) {
	if err := policy.Check(actor, policy.ActionRetrieve, policy.On(policy.KindUser)); err != nil {
		return nil, err
	}
	return s.store.UserByUsername(ctx, validation.Normalize(username))
}

func (s *UserService) Update(ctx context.Context, actor *models.User, username string, in UpdateUserInput) (*models.User, error) {
	if err := policy.Check(actor, policy.ActionPartialUpdate, policy.On(policy.KindUser)); err != nil {
		return nil, err
	}
	username = validation.Normalize(username)
	return s.update(ctx, in, func(tx *store.Store) (*models.User, error) {
		return tx.UserByUsername(ctx, username)
	})
}

func (s *UserService) Delete(ctx context.Context, actor *models.User, username string) error {
	if err := policy.Check(actor, policy.ActionDelete, policy.On(policy.KindUser)); err != nil {
		return err
	}
	user, err := s.store.UserByUsername(ctx, validation.Normalize(username))
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, user.ID); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", user.ID, "by", actor.ID)
	return nil
}

// Me returns the caller's own record as currently stored.
func (s *UserService) Me(ctx context.Context, actor *models.User) (*models.User, error) {
	if err := policy.Check(actor, policy.ActionRetrieve, policy.On(policy.KindSelf)); err != nil {
		return nil, err
	}
	return s.store.UserByID(ctx, actor.ID)
}

// UpdateMe applies a partial update to the caller's own record. The role in
// the payload is ignored; only an admin can change roles, through Update.
func (s *UserService) UpdateMe(ctx context.Context, actor *models.User, in UpdateUserInput) (*models.User, error) {
	if err := policy.Check(actor, policy.ActionPartialUpdate, policy.On(policy.KindSelf)); err != nil {
		return nil, err
	}
	in.Role = nil
	return s.update(ctx, in, func(tx *store.Store) (*models.User, error) {
		return tx.UserByID(ctx, actor.ID)
	})
}

func (s *UserService) update(ctx context.Context, in UpdateUserInput, find func(tx *store.Store) (*models.User, error)) (*models.User, error) {
	in.normalize()
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	var user *models.User
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		user, err = find(tx)
		if err != nil {
			return err
		}
		in.applyTo(user)
		if err := ensureIdentityFree(ctx, tx, user.Username, user.Email, user.ID); err != nil {
			return err
		}
		return tx.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ensureIdentityFree reports a CONFLICT if another account than selfID holds
// username or email.
func ensureIdentityFree(ctx context.Context, tx *store.Store, username, email string, selfID uint) error {
	matches, err := tx.UsersMatching(ctx, username, email)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.ID == selfID {
			continue
		}
		if m.Username == username {
			return apperr.Conflict("username already registered")
		}
		if m.Email == email {
			return apperr.Conflict("email already in use")
		}
	}
	return nil
}
