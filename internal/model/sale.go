package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale records a single transaction made by an agent for a product.
// Commission is computed once at creation time from the configured rate
// and is never re-derived afterwards; a plain update leaves it untouched.
type Sale struct {
	BaseModel
	Amount           decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Commission       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"commission"`
	IsCommissionPaid bool            `gorm:"not null;default:false" json:"is_commission_paid"`

	// References are stored as bare ids and resolved to display
	// projections at read time. Integrity is cooperative: a lookup on a
	// deleted referent surfaces an error instead of a silent null.
	AgentID   uuid.UUID `gorm:"type:uuid;not null;index" json:"agent_id" validate:"uuid_required"`
	Agent     *User     `gorm:"foreignKey:AgentID" json:"agent,omitempty" validate:"-"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id" validate:"uuid_required"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty" validate:"-"`
}

// SaleResponse resolves agent and product references into display objects
type SaleResponse struct {
	ID               uuid.UUID       `json:"id"`
	Amount           decimal.Decimal `json:"amount"`
	Commission       decimal.Decimal `json:"commission"`
	IsCommissionPaid bool            `json:"is_commission_paid"`
	Agent            *AgentSummary   `json:"agent,omitempty"`
	Product          *ProductSummary `json:"product,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ToResponse converts Sale to SaleResponse, attaching whichever
// references were preloaded
func (s *Sale) ToResponse() SaleResponse {
	response := SaleResponse{
		ID:               s.ID,
		Amount:           s.Amount,
		Commission:       s.Commission,
		IsCommissionPaid: s.IsCommissionPaid,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}

	if s.Agent != nil {
		agent := s.Agent.ToAgentSummary()
		response.Agent = &agent
	}
	if s.Product != nil {
		product := s.Product.ToSummary()
		response.Product = &product
	}

	return response
}
