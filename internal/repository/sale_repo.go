package repository

import (
	"time"

	"go-sales-tracker/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(sale *model.Sale) error
	FindByID(id uuid.UUID) (*model.Sale, error)
	FindByAgent(agentID uuid.UUID) ([]model.Sale, error)
	// SumByAgentAndRange aggregates amount and commission for one agent
	// over [startDate, endDate], inclusive on both ends.
	SumByAgentAndRange(agentID uuid.UUID, startDate, endDate time.Time) (*SalesTotals, error)
	// FindInRange returns sales with created_at in [startDate, endDate),
	// start inclusive, end exclusive, with agent and product preloaded.
	FindInRange(startDate, endDate time.Time) ([]model.Sale, error)
	GroupUnpaidByAgent() ([]AgentUnpaidRow, error)
	MarkCommissionsPaid(agentID uuid.UUID, startDate, endDate time.Time) (int64, error)
	Update(sale *model.Sale) error
}

// SalesTotals holds aggregated amounts for an agent and date range
type SalesTotals struct {
	TotalSales      decimal.Decimal `json:"totalSales"`
	TotalCommission decimal.Decimal `json:"totalCommission"`
}

// AgentUnpaidRow is one group of the unpaid-commission aggregation,
// keyed by agent id before the user join
type AgentUnpaidRow struct {
	AgentID          uuid.UUID
	TotalSalesAmount decimal.Decimal
	TotalCommission  decimal.Decimal
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) Create(sale *model.Sale) error {
	return r.db.Create(sale).Error
}

func (r *saleRepo) FindByID(id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.Preload("Agent").Preload("Product").First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) FindByAgent(agentID uuid.UUID) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.Preload("Agent").Preload("Product").
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) SumByAgentAndRange(agentID uuid.UUID, startDate, endDate time.Time) (*SalesTotals, error) {
	totals := &SalesTotals{}

	err := r.db.Model(&model.Sale{}).
		Where("agent_id = ? AND created_at BETWEEN ? AND ?", agentID, startDate, endDate).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totals.TotalSales).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&model.Sale{}).
		Where("agent_id = ? AND created_at BETWEEN ? AND ?", agentID, startDate, endDate).
		Select("COALESCE(SUM(commission), 0)").
		Scan(&totals.TotalCommission).Error
	if err != nil {
		return nil, err
	}

	return totals, nil
}

func (r *saleRepo) FindInRange(startDate, endDate time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.Preload("Agent").Preload("Product").
		Where("created_at >= ? AND created_at < ?", startDate, endDate).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}

func (r *saleRepo) GroupUnpaidByAgent() ([]AgentUnpaidRow, error) {
	var results []AgentUnpaidRow

	rows, err := r.db.Model(&model.Sale{}).
		Select(`
			agent_id,
			COALESCE(SUM(amount), 0) as total_sales_amount,
			COALESCE(SUM(commission), 0) as total_commission
		`).
		Where("is_commission_paid = ?", false).
		Group("agent_id").
		Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row AgentUnpaidRow
		if err := rows.Scan(&row.AgentID, &row.TotalSalesAmount, &row.TotalCommission); err != nil {
			return nil, err
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// MarkCommissionsPaid is a single bulk UPDATE; the store's row-level
// atomicity makes re-invocation with the same range a no-op.
func (r *saleRepo) MarkCommissionsPaid(agentID uuid.UUID, startDate, endDate time.Time) (int64, error) {
	result := r.db.Model(&model.Sale{}).
		Where("agent_id = ? AND created_at BETWEEN ? AND ? AND is_commission_paid = ?",
			agentID, startDate, endDate, false).
		Update("is_commission_paid", true)
	return result.RowsAffected, result.Error
}

func (r *saleRepo) Update(sale *model.Sale) error {
	return r.db.Save(sale).Error
}
