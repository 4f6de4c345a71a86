package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Meta describes one page of a listing
type Meta struct {
	Total       int64 `json:"total"`
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	TotalPage   int   `json:"total_page"`
}

// GetPaginationParams reads ?page= and ?per_page=, clamping bad values
func GetPaginationParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPerPage {
		pageSize = defaultPerPage
	}

	return page, pageSize
}

func NewMeta(total int64, page, pageSize int) Meta {
	return Meta{
		Total:       total,
		CurrentPage: page,
		PerPage:     pageSize,
		TotalPage:   int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
}

// Offset is the number of rows to skip for page
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
