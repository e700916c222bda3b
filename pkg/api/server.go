// Package api exposes the services over HTTP with gin.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/ratelimit"
	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
)

type Deps struct {
	Store       *store.Store
	Accounts    *service.AccountService
	Users       *service.UserService
	Catalog     *service.CatalogService
	Reviews     *service.ReviewService
	Comments    *service.CommentService
	AuthLimiter *ratelimit.KeyedRateLimiter
	Logger      *slog.Logger

	// TrustedProxies may set X-Forwarded-For; nil trusts no proxy.
	TrustedProxies []string
}

type Server struct {
	store          *store.Store
	accounts       *service.AccountService
	users          *service.UserService
	catalog        *service.CatalogService
	reviews        *service.ReviewService
	comments       *service.CommentService
	authLimiter    *ratelimit.KeyedRateLimiter
	trustedProxies []string
	logger         *slog.Logger
}

func NewServer(deps Deps) *Server {
	return &Server{
		store:          deps.Store,
		accounts:       deps.Accounts,
		users:          deps.Users,
		catalog:        deps.Catalog,
		reviews:        deps.Reviews,
		comments:       deps.Comments,
		authLimiter:    deps.AuthLimiter,
		trustedProxies: deps.TrustedProxies,
		logger:         deps.Logger,
	}
}

// Router builds the gin engine with every route of the API.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	// ClientIP keys the auth rate limit; only listed proxies may set it.
	if err := router.SetTrustedProxies(s.trustedProxies); err != nil {
		s.logger.Error("invalid trusted proxies, trusting none", "proxies", s.trustedProxies, "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(requestID(), s.requestLogger(), s.recovery(), s.authenticate())

	router.NoRoute(func(c *gin.Context) {
		respondError(c, s.logger, apperr.NotFound("route not found"))
	})
	router.NoMethod(s.methodNotAllowed)

	router.GET("/manage/health", s.healthCheck)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	if s.authLimiter != nil {
		authGroup.Use(s.rateLimit(s.authLimiter))
	}
	authGroup.POST("/signup/", s.signup)
	authGroup.POST("/token/", s.token)

	v1.GET("/categories/", s.listCategories)
	v1.POST("/categories/", s.createCategory)
	v1.DELETE("/categories/:slug/", s.deleteCategory)

	v1.GET("/genres/", s.listGenres)
	v1.POST("/genres/", s.createGenre)
	v1.DELETE("/genres/:slug/", s.deleteGenre)

	v1.GET("/titles/", s.listTitles)
	v1.POST("/titles/", s.createTitle)
	v1.GET("/titles/:title_id/", s.getTitle)
	v1.PUT("/titles/:title_id/", s.updateTitle)
	v1.PATCH("/titles/:title_id/", s.patchTitle)
	v1.DELETE("/titles/:title_id/", s.deleteTitle)

	reviews := v1.Group("/titles/:title_id/reviews")
	reviews.GET("/", s.listReviews)
	reviews.POST("/", s.createReview)
	reviews.GET("/:review_id/", s.getReview)
	reviews.PUT("/:review_id/", s.updateReview)
	reviews.PATCH("/:review_id/", s.patchReview)
	reviews.DELETE("/:review_id/", s.deleteReview)

	comments := reviews.Group("/:review_id/comments")
	comments.GET("/", s.listComments)
	comments.POST("/", s.createComment)
	comments.GET("/:comment_id/", s.getComment)
	comments.PUT("/:comment_id/", s.updateComment)
	comments.PATCH("/:comment_id/", s.patchComment)
	comments.DELETE("/:comment_id/", s.deleteComment)

	v1.GET("/users/", s.listUsers)
	v1.POST("/users/", s.createUser)
	v1.GET("/users/me/", s.getMe)
	v1.PATCH("/users/me/", s.updateMe)
	v1.PUT("/users/me/", s.methodNotAllowed)
	v1.DELETE("/users/me/", s.methodNotAllowed)
	v1.GET("/users/:username/", s.getUser)
	v1.PATCH("/users/:username/", s.updateUser)
	v1.DELETE("/users/:username/", s.deleteUser)

	return router
}

func (s *Server) methodNotAllowed(c *gin.Context) {
	respondError(c, s.logger, apperr.MethodNotAllowed(c.Request.Method))
}

func (s *Server) healthCheck(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}
