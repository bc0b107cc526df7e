package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampPageSize(t *testing.T) {
	assert.Equal(t, 1, ClampPageSize(0, 200))
	assert.Equal(t, 50, ClampPageSize(50, 200))
	assert.Equal(t, 200, ClampPageSize(500, 200))
	assert.Equal(t, 500, ClampPageSize(500, 0))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(-3, 1000, 200)
	assert.Equal(t, Pagination{Page: 0, PageSize: 200}, p)
	assert.Equal(t, 0, p.Offset())
	assert.Equal(t, 60, NewPagination(3, 20, 200).Offset())
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 50))
	assert.Equal(t, 1, TotalPages(50, 50))
	assert.Equal(t, 3, TotalPages(101, 50))
	assert.Equal(t, 0, TotalPages(10, 0))
}

func TestPagesToFetch(t *testing.T) {
	assert.Equal(t, 5, PagesToFetch(5, 0))
	assert.Equal(t, 2, PagesToFetch(5, 2))
	assert.Equal(t, 3, PagesToFetch(3, 10))
}
