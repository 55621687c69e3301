package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/clodeb/retail_backend/utils"
)

// respondError maps the error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the real error goes to the gin
// error log, not the client.
func respondError(c *gin.Context, err error) {
	var notFound *utils.NotFoundError
	var validation *utils.ValidationError
	var insufficient *utils.InsufficientStockError
	var conflict *utils.ConflictError
	var external *utils.ExternalServiceError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Message}
		if len(validation.Details) > 0 {
			body["details"] = validation.Details
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     insufficient.Error(),
			"product":   insufficient.ProductName,
			"available": insufficient.Available,
			"requested": insufficient.Requested,
			"missing":   insufficient.Missing(),
		})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": "operation conflicted with a concurrent transaction, please retry"})
	case errors.As(err, &external):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "upstream service unavailable"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// respondBindError turns gin binding failures into stable field-level
// messages instead of the raw validator dump.
func respondBindError(c *gin.Context, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make(map[string]interface{}, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[strings.ToLower(fe.Field())] = "failed " + fe.Tag() + " validation"
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": details})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func queryIntPtr(c *gin.Context, name string) *int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return &n
		}
	}
	return nil
}

func queryStringPtr(c *gin.Context, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}

func queryDateRange(c *gin.Context) (*time.Time, *time.Time) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return nil, nil
	}
	fromT, err := time.Parse("2006-01-02", from)
	if err != nil {
		return nil, nil
	}
	toT, err := time.Parse("2006-01-02", to)
	if err != nil {
		return nil, nil
	}
	end := toT.AddDate(0, 0, 1).Add(-time.Second)
	return &fromT, &end
}

func pagination(c *gin.Context) (int, int) {
	page, limit, _ := utils.ValidatePagination(c.Query("page"), c.Query("limit"))
	return page, limit
}

func listResponse(c *gin.Context, items interface{}, total int64, page int, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
