package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
	"github.com/Slimpush/api-yamdb-final-master/pkg/policy"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

// TaxonomyInput creates a category or a genre.
type TaxonomyInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

// TitleInput is a full title write. Genres and category are given by slug.
type TitleInput struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        int      `json:"year" validate:"required"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre" validate:"required,dive,max=50,slug"`
	Category    string   `json:"category" validate:"required,max=50,slug"`
}

// TitlePatch is a partial title write; nil fields are left unchanged.
type TitlePatch struct {
	Name        *string  `json:"name" validate:"omitnil,min=1,max=256"`
	Year        *int     `json:"year" validate:"omitnil"`
	Description *string  `json:"description"`
	Genre       []string `json:"genre" validate:"omitnil,dive,max=50,slug"`
	Category    *string  `json:"category" validate:"omitnil,max=50,slug"`
}

func (in TitleInput) patch() TitlePatch {
	genre := in.Genre
	if genre == nil {
		genre = []string{}
	}
	return TitlePatch{
		Name:        &in.Name,
		Year:        &in.Year,
		Description: in.Description,
		Genre:       genre,
		Category:    &in.Category,
	}
}

// CatalogService manages categories, genres and titles.
type CatalogService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

func NewCatalogService(st *store.Store, v *validation.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: st, validator: v, logger: logger, now: time.Now}
}

func (s *CatalogService) ListCategories(ctx context.Context, search string, page store.Page) ([]models.Category, int64, error) {
	return s.store.ListCategories(ctx, search, page)
}

func (s *CatalogService) CreateCategory(ctx context.Context, actor *models.User, in TaxonomyInput) (*models.Category, error) {
	if err := policy.Check(actor, policy.ActionCreate, policy.On(policy.KindCategory)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	category := &models.Category{Name: in.Name, Slug: in.Slug}
	if err := s.store.CreateCategory(ctx, category); err != nil {
		return nil, slugConflict(err)
	}
	return category, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, actor *models.User, slug string) error {
	if err := policy.Check(actor, policy.ActionDelete, policy.On(policy.KindCategory)); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("category deleted", "slug", slug, "by", actor.ID)
	return nil
}

func (s *CatalogService) ListGenres(ctx context.Context, search string, page store.Page) ([]models.Genre, int64, error) {
	return s.store.ListGenres(ctx, search, page)
}

func (s *CatalogService) CreateGenre(ctx context.Context, actor *models.User, in TaxonomyInput) (*models.Genre, error) {
	if err := policy.Check(actor, policy.ActionCreate, policy.On(policy.KindGenre)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	genre := &models.Genre{Name: in.Name, Slug: in.Slug}
	if err := s.store.CreateGenre(ctx, genre); err != nil {
		return nil, slugConflict(err)
	}
	return genre, nil
}

func (s *CatalogService) DeleteGenre(ctx context.Context, actor *models.User, slug string) error {
	if err := policy.Check(actor, policy.ActionDelete, policy.On(policy.KindGenre)); err != nil {
		return err
	}
	if err := s.store.DeleteGenre(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("genre deleted", "slug", slug, "by", actor.ID)
	return nil
}

func (s *CatalogService) ListTitles(ctx context.Context, filter store.TitleFilter, page store.Page) ([]models.Title, int64, error) {
	return s.store.ListTitles(ctx, filter, page)
}

func (s *CatalogService) GetTitle(ctx context.Context, id uint) (*models.Title, error) {
	return s.store.TitleByID(ctx, id)
}

func (s *CatalogService) CreateTitle(ctx context.Context, actor *models.User, in TitleInput) (*models.Title, error) {
	if err := policy.Check(actor, policy.ActionCreate, policy.On(policy.KindTitle)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkYear(in.Year); err != nil {
		return nil, err
	}

	title := &models.Title{Name: in.Name, Year: in.Year, Description: in.Description}
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := resolveRefs(ctx, tx, title, in.patch()); err != nil {
			return err
		}
		return tx.CreateTitle(ctx, title)
	})
	if err != nil {
		return nil, err
	}
	return s.store.TitleByID(ctx, title.ID)
}

// UpdateTitle replaces every writable field of the title.
func (s *CatalogService) UpdateTitle(ctx context.Context, actor *models.User, id uint, in TitleInput) (*models.Title, error) {
	if err := policy.Check(actor, policy.ActionUpdate, policy.On(policy.KindTitle)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	return s.applyTitle(ctx, id, in.patch(), true)
}

func (s *CatalogService) PatchTitle(ctx context.Context, actor *models.User, id uint, in TitlePatch) (*models.Title, error) {
	if err := policy.Check(actor, policy.ActionPartialUpdate, policy.On(policy.KindTitle)); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	return s.applyTitle(ctx, id, in, false)
}

func (s *CatalogService) applyTitle(ctx context.Context, id uint, in TitlePatch, replaceDescription bool) (*models.Title, error) {
	if in.Year != nil {
		if err := s.checkYear(*in.Year); err != nil {
			return nil, err
		}
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		title, err := tx.TitleByID(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			title.Name = *in.Name
		}
		if in.Year != nil {
			title.Year = *in.Year
		}
		if in.Description != nil || replaceDescription {
			title.Description = in.Description
		}
		if err := resolveRefs(ctx, tx, title, in); err != nil {
			return err
		}
		return tx.UpdateTitle(ctx, title, in.Genre != nil)
	})
	if err != nil {
		return nil, err
	}
	return s.store.TitleByID(ctx, id)
}

func (s *CatalogService) DeleteTitle(ctx context.Context, actor *models.User, id uint) error {
	if err := policy.Check(actor, policy.ActionDelete, policy.On(policy.KindTitle)); err != nil {
		return err
	}
	if err := s.store.DeleteTitle(ctx, id); err != nil {
		return err
	}
	s.logger.Info("title deleted", "title_id", id, "by", actor.ID)
	return nil
}

func (s *CatalogService) checkYear(year int) error {
	if year > s.now().Year() {
		return apperr.ValidationWithDetails(
			"year cannot be in the future",
			map[string]string{"year": "must not be later than the current year"},
		)
	}
	return nil
}

// resolveRefs points title at the category and genres named in the payload.
// An unknown slug is a VALIDATION error naming the field.
func resolveRefs(ctx context.Context, tx *store.Store, title *models.Title, in TitlePatch) error {
	if in.Category != nil {
		category, err := tx.CategoryBySlug(ctx, *in.Category)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ValidationWithDetails(
				"unknown category",
				map[string]string{"category": "no category with slug " + *in.Category},
			)
		}
		if err != nil {
			return err
		}
		title.CategoryID = &category.ID
		title.Category = category
	}
	if in.Genre != nil {
		genres, err := tx.GenresBySlugs(ctx, in.Genre)
		if err != nil {
			return err
		}
		title.Genres = genres
	}
	return nil
}

func slugConflict(err error) error {
	if errors.Is(err, apperr.ErrConflict) {
		return apperr.Wrap(err, apperr.CodeConflict, "slug already in use")
	}
	return err
}
