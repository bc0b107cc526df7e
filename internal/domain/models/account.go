package models

import "time"

// SubscriptionStatus состояние подписки аккаунта
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// Account аккаунт продавца, подключенный к маркетплейсу
type Account struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status"`
	Credentials        Credentials        `json:"-"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Credentials ключи доступа к API маркетплейса. Ядро их только читает
type Credentials struct {
	AccountID string
	SellerID  string
	APIKey    string
	APISecret string
}

// Valid сообщает, заполнены ли ключи
func (c Credentials) Valid() bool {
	return c.SellerID != "" && c.APIKey != "" && c.APISecret != ""
}
