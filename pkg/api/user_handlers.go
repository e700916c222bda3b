package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
)

func (s *Server) listUsers(c *gin.Context) {
	page := parsePage(c)
	users, total, err := s.users.List(c.Request.Context(), currentUser(c), c.Query("search"), page)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	paginated(c, page, total, mapItems(users, userResponse))
}

func (s *Server) createUser(c *gin.Context) {
	var in service.CreateUserInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	user, err := s.users.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusCreated, userResponse(user))
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.users.Get(c.Request.Context(), currentUser(c), c.Param("username"))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

func (s *Server) updateUser(c *gin.Context) {
	var in service.UpdateUserInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	user, err := s.users.Update(c.Request.Context(), currentUser(c), c.Param("username"), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

func (s *Server) deleteUser(c *gin.Context) {
	if err := s.users.Delete(c.Request.Context(), currentUser(c), c.Param("username")); err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getMe(c *gin.Context) {
	user, err := s.users.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

func (s *Server) updateMe(c *gin.Context) {
	var in service.UpdateUserInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}
	user, err := s.users.UpdateMe(c.Request.Context(), currentUser(c), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}
