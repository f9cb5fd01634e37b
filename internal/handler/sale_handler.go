package handler

import (
	"errors"
	"time"

	"go-sales-tracker/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SaleHandler struct {
	salesService service.SalesService
}

func NewSaleHandler(salesService service.SalesService) *SaleHandler {
	return &SaleHandler{salesService: salesService}
}

// Helper to read the authenticated user id set by RequireAuth
func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Locals("user_id")
	if raw == nil {
		return uuid.Nil, errors.New("missing user in context")
	}
	return uuid.Parse(raw.(string))
}

// parseDate accepts a plain date or RFC3339; empty means "unset"
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// CreateSale records a sale for the authenticated agent
// POST /api/v1/sales
func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	agentID, err := getUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	sale, err := h.salesService.RecordSale(&req, agentID)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(201).JSON(sale)
}

// GetUserSales lists the caller's sales, or another agent's via ?email=
// GET /api/v1/sales/user
func (h *SaleHandler) GetUserSales(c *fiber.Ctx) error {
	if email := c.Query("email"); email != "" {
		sales, err := h.salesService.FindUserSalesByEmail(email)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
		}
		return c.JSON(sales)
	}

	agentID, err := getUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	sales, err := h.salesService.FindUserSales(agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(sales)
}

// GetGroupedUnpaidCommission returns unpaid totals grouped by agent
// GET /api/v1/sales/user/grouped
func (h *SaleHandler) GetGroupedUnpaidCommission(c *fiber.Ctx) error {
	groups, err := h.salesService.GroupedAgentUnpaidCommission()
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(groups)
}

// GetUserSalesByDate aggregates the caller's sales over a date range
// GET /api/v1/sales/user/date?start_date&end_date
func (h *SaleHandler) GetUserSalesByDate(c *fiber.Ctx) error {
	startDate, err := parseDate(c.Query("start_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid start_date"})
	}
	endDate, err := parseDate(c.Query("end_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid end_date"})
	}

	agentID, err := getUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": "Unauthorized"})
	}

	totals, err := h.salesService.GetUserSalesByDate(startDate, endDate, agentID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(totals)
}

// SendSalesReport queues per-agent report emails for a date range
// GET /api/v1/sales/email?start_date&end_date
func (h *SaleHandler) SendSalesReport(c *fiber.Ctx) error {
	startDate, err := parseDate(c.Query("start_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid start_date"})
	}
	endDate, err := parseDate(c.Query("end_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid end_date"})
	}
	if endDate.IsZero() {
		endDate = time.Now()
	}

	message, err := h.salesService.SendUserSalesByEmail(startDate, endDate)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": message})
}

// MarkPaidRequest represents the mark-commissions-paid request body
type MarkPaidRequest struct {
	AgentID   uuid.UUID `json:"agent_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
}

// MarkCommissionsPaid bulk-flips unpaid commissions for one agent
// POST /api/v1/sales/commissions/paid
func (h *SaleHandler) MarkCommissionsPaid(c *fiber.Ctx) error {
	var req MarkPaidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.AgentID == uuid.Nil {
		return c.Status(400).JSON(fiber.Map{"error": "agent_id is required"})
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid start_date"})
	}
	endDate, err := parseDate(req.EndDate)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid end_date"})
	}
	if endDate.IsZero() {
		endDate = time.Now()
	}

	count, err := h.salesService.MarkCommissionsAsPaid(req.AgentID, startDate, endDate)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(fiber.Map{"modified": count})
}

// GetSale fetches a single sale with resolved references
// GET /api/v1/sales/:id
func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	saleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	sale, err := h.salesService.GetSaleByID(saleID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "Sale not found"})
	}
	return c.JSON(sale)
}

// UpdateSale overwrites a sale; the stored commission is not re-derived
// PUT /api/v1/sales/:id
func (h *SaleHandler) UpdateSale(c *fiber.Ctx) error {
	saleID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid sale ID"})
	}

	var req service.UpdateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	sale, err := h.salesService.UpdateSale(saleID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSaleNotFound):
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, service.ErrProductNotFound):
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		default:
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
	}
	return c.JSON(sale)
}
