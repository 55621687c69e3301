package utils

import "strconv"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ValidatePagination coerces untyped page/limit query values into a safe
// (page, limit, offset) triple. Out-of-range input is clamped, not rejected.
func ValidatePagination(pageStr, limitStr string) (page int, limit int, offset int) {
	page, _ = strconv.Atoi(pageStr)
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(limitStr)
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, (page - 1) * limit
}
