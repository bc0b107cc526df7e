package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus статус заказа на маркетплейсе
type OrderStatus string

const (
	OrderCreated     OrderStatus = "Created"
	OrderPicking     OrderStatus = "Picking"
	OrderInvoiced    OrderStatus = "Invoiced"
	OrderShipped     OrderStatus = "Shipped"
	OrderDelivered   OrderStatus = "Delivered"
	OrderCancelled   OrderStatus = "Cancelled"
	OrderUnDelivered OrderStatus = "UnDelivered"
	OrderReturned    OrderStatus = "Returned"
	OrderUnSupplied  OrderStatus = "UnSupplied"
)

// Address адрес доставки или счета
type Address struct {
	FullName    string `json:"full_name"`
	City        string `json:"city"`
	District    string `json:"district"`
	FullAddress string `json:"full_address"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

// OrderLine позиция заказа
type OrderLine struct {
	ExternalID  string          `json:"external_id"`
	Barcode     string          `json:"barcode"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func (l OrderLine) equal(other OrderLine) bool {
	return l.ExternalID == other.ExternalID &&
		l.Barcode == other.Barcode &&
		l.ProductName == other.ProductName &&
		l.Quantity == other.Quantity &&
		l.Price.Equal(other.Price)
}

// Order заказ. Ключ (AccountID, OrderNumber)
type Order struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	OrderNumber     string          `json:"order_number"`
	CustomerID      string          `json:"customer_id"`
	CustomerName    string          `json:"customer_name"`
	ShipmentAddress Address         `json:"shipment_address"`
	InvoiceAddress  Address         `json:"invoice_address"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Currency        string          `json:"currency"`
	Status          OrderStatus     `json:"status"`
	OrderedAt       time.Time       `json:"ordered_at"`
	Lines           []OrderLine     `json:"lines"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ExternalEqual сравнивает поля, пришедшие из маркетплейса
func (o *Order) ExternalEqual(other *Order) bool {
	if o.OrderNumber != other.OrderNumber ||
		o.CustomerID != other.CustomerID ||
		o.CustomerName != other.CustomerName ||
		o.ShipmentAddress != other.ShipmentAddress ||
		o.InvoiceAddress != other.InvoiceAddress ||
		!o.TotalPrice.Equal(other.TotalPrice) ||
		o.Currency != other.Currency ||
		o.Status != other.Status ||
		!o.OrderedAt.Equal(other.OrderedAt) ||
		len(o.Lines) != len(other.Lines) {
		return false
	}
	for i := range o.Lines {
		if !o.Lines[i].equal(other.Lines[i]) {
			return false
		}
	}
	return true
}

// NormalizePrices округляет сумму заказа и цены позиций до PriceScale.
// Позиции копируются, исходный срез не меняется
func (o *Order) NormalizePrices() {
	o.TotalPrice = RoundPrice(o.TotalPrice)
	if o.Lines == nil {
		return
	}
	lines := make([]OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.Price = RoundPrice(l.Price)
		lines[i] = l
	}
	o.Lines = lines
}

// ApplyExternal переносит внешние поля из fetched
func (o *Order) ApplyExternal(fetched *Order) {
	o.CustomerID = fetched.CustomerID
	o.CustomerName = fetched.CustomerName
	o.ShipmentAddress = fetched.ShipmentAddress
	o.InvoiceAddress = fetched.InvoiceAddress
	o.TotalPrice = fetched.TotalPrice
	o.Currency = fetched.Currency
	o.Status = fetched.Status
	o.OrderedAt = fetched.OrderedAt
	o.Lines = append([]OrderLine(nil), fetched.Lines...)
}

// OrderStatusHistoryEntry запись истории статусов. Только добавляется
type OrderStatusHistoryEntry struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"order_id"`
	Status     OrderStatus `json:"status"`
	ObservedAt time.Time   `json:"observed_at"`
}
