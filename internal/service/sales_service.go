package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go-sales-tracker/internal/model"
	"go-sales-tracker/internal/queue"
	"go-sales-tracker/internal/repository"
	"go-sales-tracker/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrSaleNotFound = errors.New("sale not found")

// salesReportQueuedMessage is the fixed status returned once every
// report job has been handed to the queue
const salesReportQueuedMessage = "sales report emails queued for delivery"

// Publisher pushes realtime events to connected clients
type Publisher interface {
	Publish(event string, payload interface{})
}

// SalesService is the commission and reporting engine. It computes
// commission at sale creation, serves the read-side aggregations and
// drives asynchronous email delivery through the notification queue.
type SalesService interface {
	RecordSale(req *CreateSaleRequest, agentID uuid.UUID) (*model.SaleResponse, error)
	CalculateCommission(amount decimal.Decimal) decimal.Decimal
	FindUserSales(agentID uuid.UUID) ([]model.SaleResponse, error)
	FindUserSalesByEmail(email string) ([]model.SaleResponse, error)
	GetSaleByID(id uuid.UUID) (*model.SaleResponse, error)
	UpdateSale(id uuid.UUID, req *UpdateSaleRequest) (*model.SaleResponse, error)
	GetUserSalesByDate(startDate, endDate time.Time, agentID uuid.UUID) (*repository.SalesTotals, error)
	GroupedAgentUnpaidCommission() ([]AgentUnpaidCommission, error)
	SendUserSalesByEmail(startDate, endDate time.Time) (string, error)
	MarkCommissionsAsPaid(agentID uuid.UUID, startDate, endDate time.Time) (int64, error)
	SendUnpaidCommissionByEmail() error
}

type CreateSaleRequest struct {
	ProductID uuid.UUID        `json:"product" validate:"uuid_required"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
}

type UpdateSaleRequest struct {
	ProductID uuid.UUID       `json:"product" validate:"uuid_required"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

// AgentUnpaidCommission is one group of the unpaid aggregation with the
// agent reference resolved to its display projection
type AgentUnpaidCommission struct {
	Agent            model.AgentSummary `json:"agent"`
	TotalSalesAmount decimal.Decimal    `json:"totalSalesAmount"`
	TotalCommission  decimal.Decimal    `json:"totalCommission"`
}

type salesService struct {
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	producer    queue.Producer
	events      Publisher
	rate        decimal.Decimal
	logger      *zap.Logger
}

// NewSalesService builds the engine. The commission rate is injected at
// construction so historical sales are never retroactively recomputed
// when the configured rate changes between deploys.
func NewSalesService(
	saleRepo repository.SaleRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	producer queue.Producer,
	events Publisher,
	rate decimal.Decimal,
	logger *zap.Logger,
) SalesService {
	return &salesService{
		saleRepo:    saleRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		producer:    producer,
		events:      events,
		rate:        rate,
		logger:      logger,
	}
}

// CalculateCommission is the pure rate application: amount * rate
func (s *salesService) CalculateCommission(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(s.rate)
}

func (s *salesService) RecordSale(req *CreateSaleRequest, agentID uuid.UUID) (*model.SaleResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	product, err := s.productRepo.FindByID(req.ProductID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	// Amount defaults to the product's current price when not supplied
	amount := product.Price
	if req.Amount != nil {
		amount = *req.Amount
	}

	sale := &model.Sale{
		Amount:     amount,
		Commission: s.CalculateCommission(amount),
		AgentID:    agentID,
		ProductID:  product.ID,
	}

	if err := s.saleRepo.Create(sale); err != nil {
		s.logger.Error("failed to save sale",
			zap.String("agent_id", agentID.String()),
			zap.String("product_id", product.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	// Reload with references resolved; a missing referent surfaces here
	created, err := s.saleRepo.FindByID(sale.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.String("agent_id", agentID.String()),
		zap.String("amount", amount.String()),
		zap.String("commission", sale.Commission.String()),
	)

	response := created.ToResponse()
	s.events.Publish("sale_created", response)

	return &response, nil
}

func (s *salesService) FindUserSales(agentID uuid.UUID) ([]model.SaleResponse, error) {
	sales, err := s.saleRepo.FindByAgent(agentID)
	if err != nil {
		return nil, err
	}
	return toResponses(sales), nil
}

func (s *salesService) FindUserSalesByEmail(email string) ([]model.SaleResponse, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, ErrUserNotFound
	}

	sales, err := s.saleRepo.FindByAgent(user.ID)
	if err != nil {
		return nil, err
	}
	return toResponses(sales), nil
}

func (s *salesService) GetSaleByID(id uuid.UUID) (*model.SaleResponse, error) {
	sale, err := s.saleRepo.FindByID(id)
	if err != nil {
		return nil, ErrSaleNotFound
	}
	response := sale.ToResponse()
	return &response, nil
}

// UpdateSale overwrites amount and product but deliberately leaves the
// stored commission untouched; the rate applies at creation time only.
func (s *salesService) UpdateSale(id uuid.UUID, req *UpdateSaleRequest) (*model.SaleResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	sale, err := s.saleRepo.FindByID(id)
	if err != nil {
		return nil, ErrSaleNotFound
	}
	if _, err := s.productRepo.FindByID(req.ProductID); err != nil {
		return nil, ErrProductNotFound
	}

	sale.Amount = req.Amount
	sale.ProductID = req.ProductID

	if err := s.saleRepo.Update(sale); err != nil {
		return nil, err
	}

	updated, err := s.saleRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	response := updated.ToResponse()
	return &response, nil
}

// GetUserSalesByDate aggregates one agent's sales over the closed range
// [startDate, endDate]. A zero endDate means "now". An empty match is a
// zero-valued result, never an error.
func (s *salesService) GetUserSalesByDate(startDate, endDate time.Time, agentID uuid.UUID) (*repository.SalesTotals, error) {
	if endDate.IsZero() {
		endDate = time.Now()
	}
	return s.saleRepo.SumByAgentAndRange(agentID, startDate, endDate)
}

func (s *salesService) GroupedAgentUnpaidCommission() ([]AgentUnpaidCommission, error) {
	rows, err := s.saleRepo.GroupUnpaidByAgent()
	if err != nil {
		return nil, err
	}

	groups := make([]AgentUnpaidCommission, 0, len(rows))
	for _, row := range rows {
		// Explicit join against the user directory; a dangling agent
		// reference fails the whole aggregation visibly
		agent, err := s.userRepo.FindByID(row.AgentID)
		if err != nil {
			return nil, fmt.Errorf("resolve agent %s: %w", row.AgentID, ErrUserNotFound)
		}
		groups = append(groups, AgentUnpaidCommission{
			Agent:            agent.ToAgentSummary(),
			TotalSalesAmount: row.TotalSalesAmount,
			TotalCommission:  row.TotalCommission,
		})
	}
	return groups, nil
}

// SendUserSalesByEmail renders one report per agent for sales in
// [startDate, endDate) and enqueues them. A failed enqueue is logged
// and the batch continues; already-accepted jobs are not rolled back.
func (s *salesService) SendUserSalesByEmail(startDate, endDate time.Time) (string, error) {
	sales, err := s.saleRepo.FindInRange(startDate, endDate)
	if err != nil {
		return "", err
	}

	byAgent := make(map[uuid.UUID][]model.Sale)
	for _, sale := range sales {
		if sale.Agent == nil || sale.Product == nil {
			s.logger.Error("sale references missing agent or product, skipping",
				zap.String("sale_id", sale.ID.String()),
				zap.String("agent_id", sale.AgentID.String()),
				zap.String("product_id", sale.ProductID.String()),
			)
			continue
		}
		byAgent[sale.AgentID] = append(byAgent[sale.AgentID], sale)
	}

	subject := fmt.Sprintf("Your sales report %s - %s",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))

	for agentID, agentSales := range byAgent {
		agent := agentSales[0].Agent
		job := queue.EmailJob{
			Subject:   subject,
			Recipient: agent.Email,
			HTMLBody:  renderSalesReport(agent.Name, agentSales),
		}
		if err := s.producer.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue sales report",
				zap.String("agent_id", agentID.String()),
				zap.String("recipient", agent.Email),
				zap.Error(err),
			)
			continue
		}
	}

	s.logger.Info("sales report batch queued",
		zap.Int("agents", len(byAgent)),
		zap.Time("start_date", startDate),
		zap.Time("end_date", endDate),
	)
	return salesReportQueuedMessage, nil
}

func (s *salesService) MarkCommissionsAsPaid(agentID uuid.UUID, startDate, endDate time.Time) (int64, error) {
	count, err := s.saleRepo.MarkCommissionsPaid(agentID, startDate, endDate)
	if err != nil {
		return 0, err
	}

	s.logger.Info("commissions marked as paid",
		zap.String("agent_id", agentID.String()),
		zap.Int64("modified", count),
	)
	if count > 0 {
		s.events.Publish("commissions_paid", map[string]interface{}{
			"agent_id": agentID,
			"modified": count,
		})
	}
	return count, nil
}

// SendUnpaidCommissionByEmail flushes one pending-commission summary
// per agent onto the queue. Invoked by the monthly trigger; a failed
// enqueue mid-loop is logged and the loop continues, so partial sends
// are possible.
func (s *salesService) SendUnpaidCommissionByEmail() error {
	groups, err := s.GroupedAgentUnpaidCommission()
	if err != nil {
		return err
	}

	for _, group := range groups {
		job := queue.EmailJob{
			Subject:   "Pending commission summary",
			Recipient: group.Agent.Email,
			HTMLBody:  renderUnpaidSummary(group),
		}
		if err := s.producer.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue unpaid commission summary",
				zap.String("recipient", group.Agent.Email),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("unpaid commission summaries queued", zap.Int("agents", len(groups)))
	return nil
}

func toResponses(sales []model.Sale) []model.SaleResponse {
	responses := make([]model.SaleResponse, len(sales))
	for i := range sales {
		responses[i] = sales[i].ToResponse()
	}
	return responses
}

func renderSalesReport(agentName string, sales []model.Sale) string {
	var b strings.Builder
	totalAmount := decimal.Zero
	totalCommission := decimal.Zero

	fmt.Fprintf(&b, "<h3>Hi %s, here is your sales report</h3>", agentName)
	b.WriteString("<table><tr><th>Product</th><th>Amount</th><th>Commission</th></tr>")
	for _, sale := range sales {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
			sale.Product.Name, sale.Amount.StringFixed(2), sale.Commission.StringFixed(2))
		totalAmount = totalAmount.Add(sale.Amount)
		totalCommission = totalCommission.Add(sale.Commission)
	}
	b.WriteString("</table>")
	fmt.Fprintf(&b, "<p>Total sales: %s<br>Total commission: %s</p>",
		totalAmount.StringFixed(2), totalCommission.StringFixed(2))

	return b.String()
}

func renderUnpaidSummary(group AgentUnpaidCommission) string {
	return fmt.Sprintf(
		"<h3>Hi %s</h3><p>Your pending commission total is <b>%s</b> on sales of %s.</p>",
		group.Agent.Name,
		group.TotalCommission.StringFixed(2),
		group.TotalSalesAmount.StringFixed(2),
	)
}
