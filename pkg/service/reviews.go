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

type ReviewInput struct {
	Text  string `json:"text" validate:"required"`
	Score int    `json:"score"`
}

type ReviewPatch struct {
	Text  *string `json:"text" validate:"omitnil,min=1"`
	Score *int    `json:"score"`
}

type CommentInput struct {
	Text string `json:"text" validate:"required"`
}

// requireAuthenticated rejects anonymous callers before any lookup, so they
// get UNAUTHENTICATED rather than NOT_FOUND for mutating review routes.
func requireAuthenticated(actor *models.User) error {
	if actor.PrincipalID() == 0 {
		return apperr.Unauthenticated(apperr.ErrUnauthenticated.Message)
	}
	return nil
}

// ReviewService manages reviews. Every review belongs to one title and each
// author may review a title once.
type ReviewService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

func NewReviewService(st *store.Store, v *validation.Validator, logger *slog.Logger) *ReviewService {
	return &ReviewService{store: st, validator: v, logger: logger}
}

func (s *ReviewService) List(ctx context.Context, titleID uint, page store.Page) ([]models.Review, int64, error) {
	if _, err := s.store.TitleByID(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.store.ListReviews(ctx, titleID, page)
}

func (s *ReviewService) Get(ctx context.Context, titleID, reviewID uint) (*models.Review, error) {
	return s.store.ReviewByID(ctx, titleID, reviewID)
}

func (s *ReviewService) Create(ctx context.Context, actor *models.User, titleID uint, in ReviewInput) (*models.Review, error) {
	if err := policy.Check(actor, policy.ActionCreate, policy.On(policy.KindReview)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := validation.CheckScore(in.Score); err != nil {
		return nil, err
	}

	review := &models.Review{AuthorID: actor.ID, TitleID: titleID, Text: in.Text, Score: in.Score}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.TitleByID(ctx, titleID); err != nil {
			return err
		}
		exists, err := tx.ReviewExists(ctx, actor.ID, titleID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("you have already reviewed this title")
		}
		return tx.CreateReview(ctx, review)
	})
	if err != nil {
		return nil, err
	}
	return s.store.ReviewByID(ctx, titleID, review.ID)
}

// Update replaces text and score.
func (s *ReviewService) Update(ctx context.Context, actor *models.User, titleID, reviewID uint, in ReviewInput) (*models.Review, error) {
	return s.write(ctx, actor, policy.ActionUpdate, titleID, reviewID, ReviewPatch{Text: &in.Text, Score: &in.Score}, in)
}

func (s *ReviewService) Patch(ctx context.Context, actor *models.User, titleID, reviewID uint, in ReviewPatch) (*models.Review, error) {
	return s.write(ctx, actor, policy.ActionPartialUpdate, titleID, reviewID, in, in)
}

func (s *ReviewService) write(ctx context.Context, actor *models.User, action policy.Action, titleID, reviewID uint, in ReviewPatch, payload any) (*models.Review, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	var review *models.Review
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		review, err = tx.ReviewByID(ctx, titleID, reviewID)
		if err != nil {
			return err
		}
		if err := policy.Check(actor, action, policy.OwnedBy(policy.KindReview, review.AuthorID)); err != nil {
			return err
		}
		if err := s.validator.Validate(payload); err != nil {
			return err
		}
		if in.Score != nil {
			if err := validation.CheckScore(*in.Score); err != nil {
				return err
			}
			review.Score = *in.Score
		}
		if in.Text != nil {
			review.Text = *in.Text
		}
		return tx.UpdateReview(ctx, review)
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) Delete(ctx context.Context, actor *models.User, titleID, reviewID uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *store.Store) error {
		review, err := tx.ReviewByID(ctx, titleID, reviewID)
		if err != nil {
			return err
		}
		if err := policy.Check(actor, policy.ActionDelete, policy.OwnedBy(policy.KindReview, review.AuthorID)); err != nil {
			return err
		}
		return tx.DeleteReview(ctx, review.ID)
	})
}

// CommentService manages comments on a review. Routes address a comment
// through its title and review, and both must match.
type CommentService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

func NewCommentService(st *store.Store, v *validation.Validator, logger *slog.Logger) *CommentService {
	return &CommentService{store: st, validator: v, logger: logger}
}

func (s *CommentService) List(ctx context.Context, titleID, reviewID uint, page store.Page) ([]models.Comment, int64, error) {
	if _, err := s.store.ReviewByID(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.store.ListComments(ctx, reviewID, page)
}

func (s *CommentService) Get(ctx context.Context, titleID, reviewID, commentID uint) (*models.Comment, error) {
	if _, err := s.store.ReviewByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return s.store.CommentByID(ctx, reviewID, commentID)
}

func (s *CommentService) Create(ctx context.Context, actor *models.User, titleID, reviewID uint, in CommentInput) (*models.Comment, error) {
	if err := policy.Check(actor, policy.ActionCreate, policy.On(policy.KindComment)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	comment := &models.Comment{AuthorID: actor.ID, ReviewID: reviewID, Text: in.Text}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := tx.ReviewByID(ctx, titleID, reviewID); err != nil {
			return err
		}
		return tx.CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return s.store.CommentByID(ctx, reviewID, comment.ID)
}

// Update replaces the comment text. PUT and PATCH are the same operation
// since text is the only writable field.
func (s *CommentService) Update(ctx context.Context, actor *models.User, action policy.Action, titleID, reviewID, commentID uint, in CommentInput) (*models.Comment, error) {
	if err := requireAuthenticated(actor); err != nil {
		return nil, err
	}

	var comment *models.Comment
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		comment, err = s.find(ctx, tx, titleID, reviewID, commentID)
		if err != nil {
			return err
		}
		if err := policy.Check(actor, action, policy.OwnedBy(policy.KindComment, comment.AuthorID)); err != nil {
			return err
		}
		if err := s.validator.Validate(in); err != nil {
			return err
		}
		comment.Text = in.Text
		return tx.UpdateComment(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, actor *models.User, titleID, reviewID, commentID uint) error {
	if err := requireAuthenticated(actor); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx *store.Store) error {
		comment, err := s.find(ctx, tx, titleID, reviewID, commentID)
		if err != nil {
			return err
		}
		if err := policy.Check(actor, policy.ActionDelete, policy.OwnedBy(policy.KindComment, comment.AuthorID)); err != nil {
			return err
		}
		return tx.DeleteComment(ctx, comment.ID)
	})
}

func (s *CommentService) find(ctx context.Context, tx *store.Store, titleID, reviewID, commentID uint) (*models.Comment, error) {
	if _, err := tx.ReviewByID(ctx, titleID, reviewID); err != nil {
		return nil, err
	}
	return tx.CommentByID(ctx, reviewID, commentID)
}
