package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/brand-task-api/internal/constants"
)

// PageParams is a 1-based page request for list endpoints.
type PageParams struct {
	Page     int
	PageSize int
}

// Offset is the number of rows skipped before the page starts.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// GetPageParams reads page and page_size from the query string. limit is
// accepted as an alias for page_size. Missing or malformed values fall back to
// the defaults and oversized pages are capped at MaxPageSize.
func GetPageParams(c *gin.Context) PageParams {
	page := queryInt(c, "page", constants.FirstPage)
	if page < constants.FirstPage {
		page = constants.FirstPage
	}

	size := constants.DefaultPageSize
	if raw, ok := c.GetQuery("page_size"); ok {
		size = parseIntOr(raw, constants.DefaultPageSize)
	} else if raw, ok := c.GetQuery("limit"); ok {
		size = parseIntOr(raw, constants.DefaultPageSize)
	}
	switch {
	case size < constants.MinPageSize:
		size = constants.DefaultPageSize
	case size > constants.MaxPageSize:
		size = constants.MaxPageSize
	}

	return PageParams{Page: page, PageSize: size}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw, ok := c.GetQuery(key)
	if !ok {
		return fallback
	}
	return parseIntOr(raw, fallback)
}

func parseIntOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
