package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

// ListReviews pages through a title's reviews, newest first.
func (s *Store) ListReviews(ctx context.Context, titleID uint, page Page) ([]models.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{}).Where("title_id = ?", titleID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "review")
	}

	var reviews []models.Review
	err := page.apply(query.Preload("Author").Order("pub_date DESC").Order("id DESC")).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, translate(err, "review")
	}
	return reviews, total, nil
}

// ReviewByID finds a review that belongs to the given title.
func (s *Store) ReviewByID(ctx context.Context, titleID, reviewID uint) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND title_id = ?", reviewID, titleID).
		First(&review).Error
	if err != nil {
		return nil, translate(err, "review")
	}
	return &review, nil
}

func (s *Store) ReviewExists(ctx context.Context, authorID, titleID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("author_id = ? AND title_id = ?", authorID, titleID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "review")
	}
	return count > 0, nil
}

func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
	return translate(err, "review")
}

// UpdateReview writes text and score. Author, title and pub_date never change.
func (s *Store) UpdateReview(ctx context.Context, review *models.Review) error {
	err := s.db.WithContext(ctx).
		Model(review).
		Select("text", "score").
		Updates(map[string]any{"text": review.Text, "score": review.Score}).Error
	return translate(err, "review")
}

// DeleteReview removes the review and its comments.
func (s *Store) DeleteReview(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		if err := db.Where("review_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return deleteByID(db, &models.Review{}, id, "review")
	})
}

// ListComments pages through a review's comments, newest first.
func (s *Store) ListComments(ctx context.Context, reviewID uint, page Page) ([]models.Comment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Comment{}).Where("review_id = ?", reviewID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "comment")
	}

	var comments []models.Comment
	err := page.apply(query.Preload("Author").Order("pub_date DESC").Order("id DESC")).
		Find(&comments).Error
	if err != nil {
		return nil, 0, translate(err, "comment")
	}
	return comments, total, nil
}

// CommentByID finds a comment that belongs to the given review.
func (s *Store) CommentByID(ctx context.Context, reviewID, commentID uint) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("id = ? AND review_id = ?", commentID, reviewID).
		First(&comment).Error
	if err != nil {
		return nil, translate(err, "comment")
	}
	return &comment, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error
	return translate(err, "comment")
}

func (s *Store) UpdateComment(ctx context.Context, comment *models.Comment) error {
	err := s.db.WithContext(ctx).
		Model(comment).
		Update("text", comment.Text).Error
	return translate(err, "comment")
}

func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	return translate(deleteByID(s.db.WithContext(ctx), &models.Comment{}, id, "comment"), "comment")
}

func deleteByID(db *gorm.DB, model any, id uint, what string) error {
	result := db.Delete(model, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFoundf("%s not found", what)
	}
	return nil
}
