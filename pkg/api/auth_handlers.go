package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
)

func (s *Server) signup(c *gin.Context) {
	var in service.SignupInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}

	user, err := s.accounts.RequestSignup(c.Request.Context(), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"username": user.Username,
		"email":    user.Email,
	})
}

func (s *Server) token(c *gin.Context) {
	var in service.TokenInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, s.logger, err)
		return
	}

	token, err := s.accounts.ExchangeCodeForToken(c.Request.Context(), in)
	if err != nil {
		respondError(c, s.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
