package models

import "strings"

// CatalogFilter фильтр списка локального каталога. Пустые поля не ограничивают выборку
type CatalogFilter struct {
	Statuses []ProductStatus `json:"statuses,omitempty"`

	// Search ищет подстроку без учета регистра в названии, штрихкоде и артикуле
	Search string `json:"search,omitempty"`

	// HasCostPrice отбирает товары с заданной (true) или незаданной (false) себестоимостью
	HasCostPrice *bool `json:"has_cost_price,omitempty"`
}

// Normalize убирает пробелы и пустые статусы
func (f CatalogFilter) Normalize() CatalogFilter {
	f.Search = strings.TrimSpace(f.Search)
	statuses := f.Statuses[:0:0]
	for _, s := range f.Statuses {
		if s = ProductStatus(strings.TrimSpace(string(s))); s != "" {
			statuses = append(statuses, s)
		}
	}
	f.Statuses = statuses
	return f
}

// Matches проверяет товар в памяти. Хранилище применяет те же условия в запросе
func (f CatalogFilter) Matches(item *CatalogItem) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if item.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.HasCostPrice != nil && (item.CostPrice != nil) != *f.HasCostPrice {
		return false
	}

	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(item.Title), q) &&
			!strings.Contains(strings.ToLower(item.Barcode), q) &&
			!strings.Contains(strings.ToLower(item.StockCode), q) {
			return false
		}
	}
	return true
}

// ToMap преобразует фильтр в условия для журналов
func (f CatalogFilter) ToMap() map[string]interface{} {
	result := make(map[string]interface{})
	if len(f.Statuses) > 0 {
		result["statuses"] = f.Statuses
	}
	if f.Search != "" {
		result["search"] = f.Search
	}
	if f.HasCostPrice != nil {
		result["has_cost_price"] = *f.HasCostPrice
	}
	return result
}
