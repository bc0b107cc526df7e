package marketplace

import (
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/shopspring/decimal"
)

// pageDTO общая часть постраничных ответов
type pageDTO[T any] struct {
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	Content       []T   `json:"content"`
}

type productDTO struct {
	ID            string          `json:"id"`
	Barcode       string          `json:"barcode"`
	StockCode     string          `json:"stockCode"`
	Title         string          `json:"title"`
	Brand         string          `json:"brand"`
	BrandID       int64           `json:"brandId"`
	PimCategoryID int64           `json:"pimCategoryId"`
	CategoryName  string          `json:"categoryName"`
	SalePrice     decimal.Decimal `json:"salePrice"`
	ListPrice     decimal.Decimal `json:"listPrice"`
	Quantity      int             `json:"quantity"`
	Approved      bool            `json:"approved"`
	OnSale        bool            `json:"onSale"`
	Archived      bool            `json:"archived"`
	Rejected      bool            `json:"rejected"`
	Blacklisted   bool            `json:"blacklisted"`
}

// status флаги маркетплейса сводятся к одному статусу, самый строгий побеждает
func (p productDTO) status() models.ProductStatus {
	switch {
	case p.Blacklisted:
		return models.ProductBlacklisted
	case p.Rejected:
		return models.ProductRejected
	case p.Archived:
		return models.ProductArchived
	case p.OnSale:
		return models.ProductOnSale
	case p.Approved:
		return models.ProductApproved
	default:
		return models.ProductNotApproved
	}
}

func (p productDTO) toModel(accountID string) models.CatalogItem {
	return models.CatalogItem{
		AccountID:    accountID,
		ExternalID:   p.ID,
		Barcode:      p.Barcode,
		StockCode:    p.StockCode,
		Title:        p.Title,
		Brand:        p.Brand,
		BrandID:      p.BrandID,
		CategoryID:   p.PimCategoryID,
		CategoryName: p.CategoryName,
		SalePrice:    models.RoundPrice(p.SalePrice),
		ListPrice:    models.RoundPrice(p.ListPrice),
		Quantity:     p.Quantity,
		Status:       p.status(),
	}
}

type addressDTO struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	City        string `json:"city"`
	District    string `json:"district"`
	FullAddress string `json:"fullAddress"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

func (a addressDTO) toModel() models.Address {
	return models.Address{
		FullName:    strings.TrimSpace(a.FirstName + " " + a.LastName),
		City:        a.City,
		District:    a.District,
		FullAddress: a.FullAddress,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
	}
}

type orderLineDTO struct {
	ID          int64           `json:"id"`
	Barcode     string          `json:"barcode"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

type orderDTO struct {
	OrderNumber       string          `json:"orderNumber"`
	CustomerID        int64           `json:"customerId"`
	CustomerFirstName string          `json:"customerFirstName"`
	CustomerLastName  string          `json:"customerLastName"`
	ShipmentAddress   addressDTO      `json:"shipmentAddress"`
	InvoiceAddress    addressDTO      `json:"invoiceAddress"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	CurrencyCode      string          `json:"currencyCode"`
	Status            string          `json:"status"`
	OrderDate         int64           `json:"orderDate"` // миллисекунды
	Lines             []orderLineDTO  `json:"lines"`
}

func (o orderDTO) toModel(accountID string) models.Order {
	lines := make([]models.OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, models.OrderLine{
			ExternalID:  strconv.FormatInt(l.ID, 10),
			Barcode:     l.Barcode,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       models.RoundPrice(l.Price),
		})
	}

	var customerID string
	if o.CustomerID != 0 {
		customerID = strconv.FormatInt(o.CustomerID, 10)
	}

	return models.Order{
		AccountID:       accountID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      customerID,
		CustomerName:    strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName),
		ShipmentAddress: o.ShipmentAddress.toModel(),
		InvoiceAddress:  o.InvoiceAddress.toModel(),
		TotalPrice:      models.RoundPrice(o.TotalPrice),
		Currency:        o.CurrencyCode,
		Status:          models.OrderStatus(o.Status),
		OrderedAt:       time.UnixMilli(o.OrderDate).UTC(),
		Lines:           lines,
	}
}

type claimItemStatusDTO struct {
	Name string `json:"name"`
}

type claimItemDTO struct {
	ID              string             `json:"id"`
	ClaimItemStatus claimItemStatusDTO `json:"claimItemStatus"`
	CustomerNote    string             `json:"customerNote"`
}

type claimOrderLineDTO struct {
	ID      int64  `json:"id"`
	Barcode string `json:"barcode"`
}

type claimLineDTO struct {
	OrderLine  claimOrderLineDTO `json:"orderLine"`
	ClaimItems []claimItemDTO    `json:"claimItems"`
}

type claimDTO struct {
	ID          string         `json:"id"`
	OrderNumber string         `json:"orderNumber"`
	ClaimDate   int64          `json:"claimDate"` // миллисекунды
	Items       []claimLineDTO `json:"items"`
}

// claimItemState переводит статус позиции маркетплейса в состояние автомата возврата
func claimItemState(status string) models.ClaimItemState {
	switch status {
	case "Created", "WaitingInAction":
		return models.ClaimItemAwaitingDecision
	case "Accepted":
		return models.ClaimItemApproved
	case "Rejected", "Unresolved", "Cancelled":
		return models.ClaimItemRejected
	default:
		return models.ClaimItemUnderReview
	}
}

func (c claimDTO) toModel(accountID string) models.Claim {
	var items []models.ClaimItem
	for _, line := range c.Items {
		for _, item := range line.ClaimItems {
			items = append(items, models.ClaimItem{
				ExternalID:  item.ID,
				OrderLineID: strconv.FormatInt(line.OrderLine.ID, 10),
				Barcode:     line.OrderLine.Barcode,
				Quantity:    1,
				State:       claimItemState(item.ClaimItemStatus.Name),
			})
		}
	}

	return models.Claim{
		AccountID:   accountID,
		ExternalID:  c.ID,
		OrderNumber: c.OrderNumber,
		ClaimedAt:   time.UnixMilli(c.ClaimDate).UTC(),
		Items:       items,
	}
}

type rejectionReasonDTO struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type approveClaimItemsDTO struct {
	ClaimLineItemIDList []string          `json:"claimLineItemIdList"`
	Params              map[string]string `json:"params"`
}
