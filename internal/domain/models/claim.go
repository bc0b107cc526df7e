package models

import "time"

// ClaimItemState состояние позиции возврата
type ClaimItemState string

const (
	ClaimItemAwaitingDecision ClaimItemState = "awaiting_decision"
	ClaimItemApproved         ClaimItemState = "approved"
	ClaimItemRejected         ClaimItemState = "rejected"
	// ClaimItemUnderReview позиция на рассмотрении маркетплейса, решение продавца не принимается
	ClaimItemUnderReview ClaimItemState = "under_review"
)

// ClaimAction действие над позициями возврата
type ClaimAction string

const (
	ClaimApprove ClaimAction = "approve"
	ClaimReject  ClaimAction = "reject"
)

// Claim заявка на возврат. Ключ (AccountID, ExternalID)
type Claim struct {
	ID          string      `json:"id"`
	AccountID   string      `json:"account_id"`
	ExternalID  string      `json:"external_id"`
	OrderNumber string      `json:"order_number"`
	ClaimedAt   time.Time   `json:"claimed_at"`
	Items       []ClaimItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ClaimItem позиция возврата
type ClaimItem struct {
	ExternalID  string         `json:"external_id"`
	OrderLineID string         `json:"order_line_id"`
	Barcode     string         `json:"barcode"`
	Quantity    int            `json:"quantity"`
	State       ClaimItemState `json:"state"`
	ReasonID    int            `json:"reason_id,omitempty"`
	Description string         `json:"description,omitempty"`
}

// Item ищет позицию по внешнему ID
func (c *Claim) Item(externalID string) (*ClaimItem, bool) {
	for i := range c.Items {
		if c.Items[i].ExternalID == externalID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// ExternalEqual сравнивает поля, пришедшие из маркетплейса
func (c *Claim) ExternalEqual(other *Claim) bool {
	if c.ExternalID != other.ExternalID ||
		c.OrderNumber != other.OrderNumber ||
		!c.ClaimedAt.Equal(other.ClaimedAt) ||
		len(c.Items) != len(other.Items) {
		return false
	}
	for i := range c.Items {
		if c.Items[i] != other.Items[i] {
			return false
		}
	}
	return true
}

// ApplyExternal переносит внешние поля из fetched
func (c *Claim) ApplyExternal(fetched *Claim) {
	c.OrderNumber = fetched.OrderNumber
	c.ClaimedAt = fetched.ClaimedAt
	c.Items = append([]ClaimItem(nil), fetched.Items...)
}

// ClaimTransition запрос на смену состояния позиций возврата
type ClaimTransition struct {
	ClaimID     string
	LineItemIDs []string
	Action      ClaimAction
	ReasonID    int    // только для reject
	Description string // только для reject, до 200 символов
}

// RejectionReason причина отказа в возврате
type RejectionReason struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
