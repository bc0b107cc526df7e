package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus состояние карточки товара на маркетплейсе
type ProductStatus string

const (
	ProductOnSale      ProductStatus = "on_sale"
	ProductApproved    ProductStatus = "approved"
	ProductNotApproved ProductStatus = "not_approved"
	ProductArchived    ProductStatus = "archived"
	ProductRejected    ProductStatus = "rejected"
	ProductBlacklisted ProductStatus = "blacklisted"
)

// PriceScale число знаков после запятой в ценовых колонках хранилища
const PriceScale = 2

// RoundPrice приводит цену к точности хранилища
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(PriceScale)
}

// CatalogItem товар продавца. Ключ (AccountID, ExternalID)
type CatalogItem struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id"`
	ExternalID   string          `json:"external_id"`
	Barcode      string          `json:"barcode"`
	StockCode    string          `json:"stock_code"`
	Title        string          `json:"title"`
	Brand        string          `json:"brand"`
	BrandID      int64           `json:"brand_id"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	ListPrice    decimal.Decimal `json:"list_price"`
	Quantity     int             `json:"quantity"`
	Status       ProductStatus   `json:"status"`

	// CostPrice задается пользователем и синхронизацией не меняется
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ExternalEqual сравнивает поля, пришедшие из маркетплейса
func (p *CatalogItem) ExternalEqual(other *CatalogItem) bool {
	return p.ExternalID == other.ExternalID &&
		p.Barcode == other.Barcode &&
		p.StockCode == other.StockCode &&
		p.Title == other.Title &&
		p.Brand == other.Brand &&
		p.BrandID == other.BrandID &&
		p.CategoryID == other.CategoryID &&
		p.CategoryName == other.CategoryName &&
		p.SalePrice.Equal(other.SalePrice) &&
		p.ListPrice.Equal(other.ListPrice) &&
		p.Quantity == other.Quantity &&
		p.Status == other.Status
}

// NormalizePrices округляет цены до PriceScale, чтобы сравнение с сохраненной записью было точным
func (p *CatalogItem) NormalizePrices() {
	p.SalePrice = RoundPrice(p.SalePrice)
	p.ListPrice = RoundPrice(p.ListPrice)
	if p.CostPrice != nil {
		cost := RoundPrice(*p.CostPrice)
		p.CostPrice = &cost
	}
}

// ApplyExternal переносит внешние поля из fetched, не трогая локальные
func (p *CatalogItem) ApplyExternal(fetched *CatalogItem) {
	p.Barcode = fetched.Barcode
	p.StockCode = fetched.StockCode
	p.Title = fetched.Title
	p.Brand = fetched.Brand
	p.BrandID = fetched.BrandID
	p.CategoryID = fetched.CategoryID
	p.CategoryName = fetched.CategoryName
	p.SalePrice = fetched.SalePrice
	p.ListPrice = fetched.ListPrice
	p.Quantity = fetched.Quantity
	p.Status = fetched.Status
}
