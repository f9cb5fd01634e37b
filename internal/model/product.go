package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	Name        string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price" validate:"required"`

	// Relation (no enforced FK; joins happen at read time)
	Sales []Sale `json:"sales,omitempty"`
}

// ProductSummary is the display projection attached to sales and reports
type ProductSummary struct {
	ID    uuid.UUID       `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ToSummary converts Product to its sale-facing projection
func (p *Product) ToSummary() ProductSummary {
	return ProductSummary{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
	}
}
