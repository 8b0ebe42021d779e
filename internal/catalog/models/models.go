package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

type Product struct {
	ID            string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string    `gorm:"not null"                    json:"name"`
	Description   string    `gorm:"not null"                    json:"description"`
	Price         float64   `gorm:"not null"                    json:"price"`
	ImageURL      string    `gorm:"not null"                    json:"imageURL"`
	StockQuantity int       `gorm:"not null;default:0"          json:"stockQuantity"`
	Status        string    `gorm:"not null;default:active"     json:"status"`
	CreatedAt     time.Time `gorm:"index"                       json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	return nil
}
