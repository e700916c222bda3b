package store

import (
	"context"
	"strings"

	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// UserByUsername looks up a user by its stored (lowercased) username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

// UsersMatching returns every account whose username or email equals the
// given values. At most two accounts can match.
func (s *Store) UsersMatching(ctx context.Context, username, email string) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return users, nil
}

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Create(user).Error, "user")
}

// SaveUser writes every column of user.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	return translate(s.db.WithContext(ctx).Save(user).Error, "user")
}

// ListUsers pages through accounts ordered by username. search matches a
// username substring.
func (s *Store) ListUsers(ctx context.Context, search string, page Page) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		query = query.Where("username LIKE ?", likePattern(search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "user")
	}

	var users []models.User
	if err := page.apply(query.Order("username")).Find(&users).Error; err != nil {
		return nil, 0, translate(err, "user")
	}
	return users, total, nil
}

// DeleteUser removes the account, its reviews, its comments and every
// comment left on its reviews.
func (s *Store) DeleteUser(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)

		ownReviews := db.Model(&models.Review{}).Select("id").Where("author_id = ?", id)
		if err := db.Where("author_id = ? OR review_id IN (?)", id, ownReviews).
			Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := db.Where("author_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}

		return deleteByID(db, &models.User{}, id, "user")
	})
}
