package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/models"
)

func userResponse(u *models.User) gin.H {
	return gin.H{
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"bio":        u.Bio,
		"role":       u.Role,
	}
}

func categoryResponse(c *models.Category) gin.H {
	return gin.H{"name": c.Name, "slug": c.Slug}
}

func genreResponse(g *models.Genre) gin.H {
	return gin.H{"name": g.Name, "slug": g.Slug}
}

// titleResponse embeds genre and category objects; writes take slugs.
func titleResponse(t *models.Title) gin.H {
	genres := make([]gin.H, len(t.Genres))
	for i := range t.Genres {
		genres[i] = genreResponse(&t.Genres[i])
	}

	var category any
	if t.Category != nil {
		category = categoryResponse(t.Category)
	}

	return gin.H{
		"id":          t.ID,
		"name":        t.Name,
		"year":        t.Year,
		"description": t.Description,
		"rating":      t.Rating,
		"genre":       genres,
		"category":    category,
	}
}

func reviewResponse(r *models.Review) gin.H {
	return gin.H{
		"id":       r.ID,
		"title":    r.TitleID,
		"author":   r.Author.Username,
		"text":     r.Text,
		"score":    r.Score,
		"pub_date": r.PubDate,
	}
}

func commentResponse(c *models.Comment) gin.H {
	return gin.H{
		"id":       c.ID,
		"review":   c.ReviewID,
		"author":   c.Author.Username,
		"text":     c.Text,
		"pub_date": c.PubDate,
	}
}

func mapItems[T any](items []T, fn func(*T) gin.H) []gin.H {
	out := make([]gin.H, len(items))
	for i := range items {
		out[i] = fn(&items[i])
	}
	return out
}
