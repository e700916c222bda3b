package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/policy"
	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
)

// reviewPath reads the title and review ids of a review route.
func reviewPath(c *gin.Context) (titleID, reviewID uint, err error) {
	if titleID, err = pathID(c, "title_id"); err != nil {
		return 0, 0, err
	}
	if reviewID, err = pathID(c, "review_id"); err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}

func (s *Server) listReviews(c *gin.Context) {
	titleID, err := pathID(c, "title_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	page := parsePage(c)
	reviews, total, err := s.reviews.List(c.Request.Context(), titleID, page)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	paginated(c, page, total, mapItems(reviews, reviewResponse))
}

func (s *Server) getReview(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	review, err := s.reviews.Get(c.Request.Context(), titleID, reviewID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, reviewResponse(review))
}

func (s *Server) createReview(c *gin.Context) {
	titleID, err := pathID(c, "title_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.ReviewInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	review, err := s.reviews.Create(c.Request.Context(), currentUser(c), titleID, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, reviewResponse(review))
}

func (s *Server) updateReview(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.ReviewInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	review, err := s.reviews.Update(c.Request.Context(), currentUser(c), titleID, reviewID, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, reviewResponse(review))
}

func (s *Server) patchReview(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.ReviewPatch
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	review, err := s.reviews.Patch(c.Request.Context(), currentUser(c), titleID, reviewID, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, reviewResponse(review))
}

func (s *Server) deleteReview(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if err := s.reviews.Delete(c.Request.Context(), currentUser(c), titleID, reviewID); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listComments(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	page := parsePage(c)
	comments, total, err := s.comments.List(c.Request.Context(), titleID, reviewID, page)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	paginated(c, page, total, mapItems(comments, commentResponse))
}

func (s *Server) getComment(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	commentID, err := pathID(c, "comment_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	comment, err := s.comments.Get(c.Request.Context(), titleID, reviewID, commentID)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, commentResponse(comment))
}

func (s *Server) createComment(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.CommentInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	comment, err := s.comments.Create(c.Request.Context(), currentUser(c), titleID, reviewID, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, commentResponse(comment))
}

func (s *Server) updateComment(c *gin.Context) {
	s.writeComment(c, policy.ActionUpdate)
}

func (s *Server) patchComment(c *gin.Context) {
	s.writeComment(c, policy.ActionPartialUpdate)
}

func (s *Server) writeComment(c *gin.Context, action policy.Action) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	commentID, err := pathID(c, "comment_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	var in service.CommentInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	comment, err := s.comments.Update(c.Request.Context(), currentUser(c), action, titleID, reviewID, commentID, in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, commentResponse(comment))
}

func (s *Server) deleteComment(c *gin.Context) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	commentID, err := pathID(c, "comment_id")
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	if err := s.comments.Delete(c.Request.Context(), currentUser(c), titleID, reviewID, commentID); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
