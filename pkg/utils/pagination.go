package utils

// Pagination описывает параметры постраничной выборки внешнего API
// Страницы нумеруются с 0, как у маркетплейса
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// NewPagination создает пагинацию, приводя размер страницы к допустимому диапазону
func NewPagination(page, pageSize, maxPageSize int) Pagination {
	if page < 0 {
		page = 0
	}
	return Pagination{Page: page, PageSize: ClampPageSize(pageSize, maxPageSize)}
}

// Offset смещение первой записи страницы
func (p Pagination) Offset() int {
	return p.Page * p.PageSize
}

// ClampPageSize приводит размер страницы к диапазону [1, max]
func ClampPageSize(size, max int) int {
	if size < 1 {
		return 1
	}
	if max > 0 && size > max {
		return max
	}
	return size
}

// TotalPages возвращает количество страниц для totalElements элементов
func TotalPages(totalElements int64, pageSize int) int {
	if pageSize <= 0 || totalElements <= 0 {
		return 0
	}
	return int((totalElements + int64(pageSize) - 1) / int64(pageSize))
}

// PagesToFetch возвращает номер последней страницы (не включительно) с учетом лимита
// limit <= 0 означает отсутствие ограничения
func PagesToFetch(totalPages, limit int) int {
	if limit > 0 && limit < totalPages {
		return limit
	}
	return totalPages
}
