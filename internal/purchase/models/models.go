package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PaymentSucceeded = "succeeded"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
)

const (
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

type Purchase struct {
	ID              string    `gorm:"type:varchar(36);primaryKey"                json:"id"`
	UserID          string    `gorm:"type:varchar(36);not null;index:idx_purchases_user_date,priority:1" json:"userId"`
	ProductID       string    `gorm:"type:varchar(36);not null"                  json:"productId"`
	ProductName     string    `gorm:"not null"                                   json:"productName"`
	ProductPrice    float64   `gorm:"not null"                                   json:"productPrice"`
	ProductImage    string    `json:"productImage,omitempty"`
	PaymentIntentID string    `gorm:"not null;uniqueIndex"                       json:"paymentIntentId"`
	Amount          int64     `gorm:"not null"                                   json:"amount"`
	Currency        string    `gorm:"not null;default:usd"                       json:"currency"`
	PaymentStatus   string    `gorm:"not null;default:pending;index"             json:"paymentStatus"`
	OrderStatus     string    `gorm:"not null;default:processing"                json:"orderStatus"`
	PurchaseDate    time.Time `gorm:"not null;index:idx_purchases_user_date,priority:2,sort:desc" json:"purchaseDate"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (p *Purchase) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = PaymentPending
	}
	if p.OrderStatus == "" {
		p.OrderStatus = OrderProcessing
	}
	if p.PurchaseDate.IsZero() {
		p.PurchaseDate = time.Now().UTC()
	}
	return nil
}

func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentSucceeded, PaymentPending, PaymentFailed:
		return true
	}
	return false
}
