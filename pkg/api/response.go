package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Slimpush/api-yamdb-final-master/pkg/apperr"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// respondError writes err as {"code","message","details"} and aborts the
// chain. Unclassified errors are reported as INTERNAL without their text.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Wrap(err, apperr.CodeInternal, apperr.ErrInternal.Message)
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"path", c.Request.URL.Path,
			"request_id", c.GetString(ctxRequestID),
			"error", err,
		)
	}

	body := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the request body into dst, reporting malformed JSON as a
// VALIDATION error.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Wrap(err, apperr.CodeValidation, "invalid request body")
	}
	return nil
}

func parsePage(c *gin.Context) store.Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultPageSize)))
	if err != nil || size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return store.Page{Number: page, Size: size}
}

func paginated(c *gin.Context, page store.Page, total int64, items []gin.H) {
	c.JSON(http.StatusOK, gin.H{
		"page":          page.Number,
		"pageSize":      page.Size,
		"totalElements": total,
		"items":         items,
	})
}

// pathID parses a numeric path parameter. Anything else cannot name a
// resource, so it is NOT_FOUND.
func pathID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFoundf("%s %q not found", name, c.Param(name))
	}
	return uint(id), nil
}
