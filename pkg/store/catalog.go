package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

// listBySlugName pages through categories or genres ordered by name. search
// matches a name substring, case-insensitively.
func listBySlugName[T models.Category | models.Genre](ctx context.Context, db *gorm.DB, what, search string, page Page) ([]T, int64, error) {
	query := db.WithContext(ctx).Model(new(T))
	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, what)
	}

	var items []T
	if err := page.apply(query.Order("name").Order("id")).Find(&items).Error; err != nil {
		return nil, 0, translate(err, what)
	}
	return items, total, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return translate(s.db.WithContext(ctx).Create(category).Error, "category")
}

func (s *Store) ListCategories(ctx context.Context, search string, page Page) ([]models.Category, int64, error) {
	return listBySlugName[models.Category](ctx, s.db, "category", search, page)
}

func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, translate(err, "category")
	}
	return &category, nil
}

// DeleteCategory removes the category and detaches every title that
// referenced it. The titles themselves survive.
func (s *Store) DeleteCategory(ctx context.Context, slug string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		category, err := tx.CategoryBySlug(ctx, slug)
		if err != nil {
			return err
		}
		db := tx.db.WithContext(ctx)
		if err := db.Model(&models.Title{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return err
		}
		return db.Delete(category).Error
	})
}

func (s *Store) CreateGenre(ctx context.Context, genre *models.Genre) error {
	return translate(s.db.WithContext(ctx).Create(genre).Error, "genre")
}

func (s *Store) ListGenres(ctx context.Context, search string, page Page) ([]models.Genre, int64, error) {
	return listBySlugName[models.Genre](ctx, s.db, "genre", search, page)
}

func (s *Store) GenreBySlug(ctx context.Context, slug string) (*models.Genre, error) {
	var genre models.Genre
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&genre).Error; err != nil {
		return nil, translate(err, "genre")
	}
	return &genre, nil
}

// GenresBySlugs resolves every slug. The first slug with no genre is reported
// as a VALIDATION error naming it.
func (s *Store) GenresBySlugs(ctx context.Context, slugs []string) ([]models.Genre, error) {
	if len(slugs) == 0 {
		return []models.Genre{}, nil
	}

	var found []models.Genre
	if err := s.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&found).Error; err != nil {
		return nil, translate(err, "genre")
	}

	bySlug := make(map[string]models.Genre, len(found))
	for _, g := range found {
		bySlug[g.Slug] = g
	}

	genres := make([]models.Genre, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		g, ok := bySlug[slug]
		if !ok {
			return nil, apperr.ValidationWithDetails(
				"unknown genre",
				map[string]string{"genre": "no genre with slug " + slug},
			)
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		genres = append(genres, g)
	}
	return genres, nil
}

// DeleteGenre removes the genre and its title links.
func (s *Store) DeleteGenre(ctx context.Context, slug string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		genre, err := tx.GenreBySlug(ctx, slug)
		if err != nil {
			return err
		}
		db := tx.db.WithContext(ctx)
		if err := db.Exec("DELETE FROM genre_titles WHERE genre_id = ?", genre.ID).Error; err != nil {
			return err
		}
		return db.Delete(genre).Error
	})
}

type TitleFilter struct {
	Name     string
	Year     *int
	Genre    string
	Category string
}

func (f TitleFilter) apply(db *gorm.DB) *gorm.DB {
	if name := strings.ToLower(strings.TrimSpace(f.Name)); name != "" {
		db = db.Where("LOWER(titles.name) LIKE ?", likePattern(name))
	}
	if f.Year != nil {
		db = db.Where("titles.year = ?", *f.Year)
	}
	if f.Genre != "" {
		db = db.Where(`EXISTS (SELECT 1 FROM genre_titles
			JOIN genres ON genres.id = genre_titles.genre_id
			WHERE genre_titles.title_id = titles.id AND genres.slug = ?)`, f.Genre)
	}
	if f.Category != "" {
		db = db.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
	}
	return db
}

// titles selects titles with their category, their genres and the average
// review score as rating.
func (s *Store) titles(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Title{}).
		Select("titles.*, (SELECT CAST(AVG(reviews.score) AS FLOAT) FROM reviews WHERE reviews.title_id = titles.id) AS rating").
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("genres.name")
		})
}

// ListTitles pages through titles matching f, newest year first.
func (s *Store) ListTitles(ctx context.Context, f TitleFilter, page Page) ([]models.Title, int64, error) {
	var total int64
	if err := f.apply(s.db.WithContext(ctx).Model(&models.Title{})).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "title")
	}

	var titles []models.Title
	query := f.apply(s.titles(ctx)).Order("titles.year DESC").Order("titles.name").Order("titles.id")
	if err := page.apply(query).Find(&titles).Error; err != nil {
		return nil, 0, translate(err, "title")
	}
	return titles, total, nil
}

func (s *Store) TitleByID(ctx context.Context, id uint) (*models.Title, error) {
	var title models.Title
	if err := s.titles(ctx).Where("titles.id = ?", id).First(&title).Error; err != nil {
		return nil, translate(err, "title")
	}
	return &title, nil
}

// CreateTitle inserts title and links it to title.Genres, which must already
// exist.
func (s *Store) CreateTitle(ctx context.Context, title *models.Title) error {
	err := s.db.WithContext(ctx).
		Omit("Category", "Genres.*").
		Create(title).Error
	return translate(err, "title")
}

// UpdateTitle writes the scalar columns of title. When replaceGenres is set
// the title's genre links are replaced by title.Genres.
func (s *Store) UpdateTitle(ctx context.Context, title *models.Title, replaceGenres bool) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)
		err := db.Model(title).
			Select("name", "year", "description", "category_id").
			Updates(map[string]any{
				"name":        title.Name,
				"year":        title.Year,
				"description": title.Description,
				"category_id": title.CategoryID,
			}).Error
		if err != nil {
			return err
		}
		if !replaceGenres {
			return nil
		}
		genres := db.Model(title).Omit("Genres.*").Association("Genres")
		if len(title.Genres) == 0 {
			return genres.Clear()
		}
		return genres.Replace(title.Genres)
	})
}

// DeleteTitle removes the title, its reviews with their comments and its
// genre links.
func (s *Store) DeleteTitle(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		db := tx.db.WithContext(ctx)

		reviews := db.Model(&models.Review{}).Select("id").Where("title_id = ?", id)
		if err := db.Where("review_id IN (?)", reviews).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := db.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := db.Exec("DELETE FROM genre_titles WHERE title_id = ?", id).Error; err != nil {
			return err
		}

		return deleteByID(db, &models.Title{}, id, "title")
	})
}
