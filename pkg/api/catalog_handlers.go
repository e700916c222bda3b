package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
)

func (s *Server) listCategories(c *gin.Context) {
	page := parsePage(c)
	categories, total, err := s.catalog.ListCategories(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	paginated(c, page, total, mapItems(categories, categoryResponse))
}

func (s *Server) createCategory(c *gin.Context) {
	var in service.TaxonomyInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	category, err := s.catalog.CreateCategory(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, categoryResponse(category))
}

func (s *Server) deleteCategory(c *gin.Context) {
	if err := s.catalog.DeleteCategory(c.Request.Context(), currentUser(c), c.Param("slug")); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listGenres(c *gin.Context) {
	page := parsePage(c)
	genres, total, err := s.catalog.ListGenres(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	paginated(c, page, total, mapItems(genres, genreResponse))
}

func (s *Server) createGenre(c *gin.Context) {
	var in service.TaxonomyInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	genre, err := s.catalog.CreateGenre(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, genreResponse(genre))
}

func (s *Server) deleteGenre(c *gin.Context) {
	if err := s.catalog.DeleteGenre(c.Request.Context(), currentUser(c), c.Param("slug")); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTitles(c *gin.Context) {
	filter := store.TitleFilter{
		Name:     c.Query("name"),
		Genre:    c.Query("genre"),
		Category: c.Query("category"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, s.logger, apperr.ValidationWithDetails(
				"invalid filter",
				map[string]string{"year": "must be an integer"},
			))
			return
		}
		filter.Year = &year
	}

	page := parsePage(c)
	titles, total, err := s.catalog.ListTitles(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	paginated(c, page, total, mapItems(titles, titleResponse))
}

func (s *Server) getTitle(c *gin.Context) {
	id, err := pathID(c, "title_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	title, err := s.catalog.GetTitle(c.Request.Context(), id)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, titleResponse(title))
}

func (s *Server) createTitle(c *gin.Context) {
	var in service.TitleInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	title, err := s.catalog.CreateTitle(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, titleResponse(title))
}

func (s *Server) updateTitle(c *gin.Context) {
	id, err := pathID(c, "title_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.TitleInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	title, err := s.catalog.UpdateTitle(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, titleResponse(title))
}

func (s *Server) patchTitle(c *gin.Context) {
	id, err := pathID(c, "title_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.TitlePatch
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	title, err := s.catalog.PatchTitle(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, titleResponse(title))
}

func (s *Server) deleteTitle(c *gin.Context) {
	id, err := pathID(c, "title_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if err := s.catalog.DeleteTitle(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
