package service

import (
	"strings"
	"testing"
	"time"

	"go-sales-tracker/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type salesFixture struct {
	users    *fakeUserRepo
	products *fakeProductRepo
	sales    *fakeSaleRepo
	producer *fakeProducer
	events   *fakePublisher
	svc      SalesService
}

func newSalesFixture(t *testing.T, rate string) *salesFixture {
	t.Helper()

	users := newFakeUserRepo()
	products := newFakeProductRepo()
	sales := newFakeSaleRepo(users, products)
	producer := &fakeProducer{}
	events := &fakePublisher{}

	svc := NewSalesService(sales, products, users, producer, events,
		decimal.RequireFromString(rate), zaptest.NewLogger(t))

	return &salesFixture{
		users:    users,
		products: products,
		sales:    sales,
		producer: producer,
		events:   events,
		svc:      svc,
	}
}

func (f *salesFixture) addAgent(t *testing.T, name, email string) *model.User {
	t.Helper()
	agent := &model.User{Name: name, Email: email, UserType: model.UserTypeAgent}
	require.NoError(t, agent.SetPassword("secret123"))
	require.NoError(t, f.users.Create(agent))
	return agent
}

func (f *salesFixture) addProduct(t *testing.T, name, price string) *model.Product {
	t.Helper()
	product := &model.Product{Name: name, Price: decimal.RequireFromString(price)}
	require.NoError(t, f.products.Create(product))
	return product
}

func (f *salesFixture) addSale(t *testing.T, agent *model.User, product *model.Product, amount string, createdAt time.Time, paid bool) *model.Sale {
	t.Helper()
	amt := decimal.RequireFromString(amount)
	sale := &model.Sale{
		Amount:           amt,
		Commission:       amt.Mul(decimal.RequireFromString("0.05")),
		IsCommissionPaid: paid,
		AgentID:          agent.ID,
		ProductID:        product.ID,
	}
	sale.CreatedAt = createdAt
	require.NoError(t, f.sales.Create(sale))
	return sale
}

func TestCalculateCommission(t *testing.T) {
	f := newSalesFixture(t, "0.03")

	got := f.svc.CalculateCommission(decimal.NewFromInt(1000))
	assert.True(t, got.Equal(decimal.NewFromInt(30)), "expected 30, got %s", got)

	// Linearity against the configured rate
	got = f.svc.CalculateCommission(decimal.NewFromInt(45999))
	assert.Equal(t, "1379.97", got.StringFixed(2))

	assert.True(t, f.svc.CalculateCommission(decimal.Zero).IsZero())
}

func TestRecordSale_DefaultsAmountToProductPrice(t *testing.T) {
	f := newSalesFixture(t, "0.03")
	agent := f.addAgent(t, "Test User", "test.dev@gmail.com")
	product := f.addProduct(t, "Hp Notebook", "45999")

	sale, err := f.svc.RecordSale(&CreateSaleRequest{ProductID: product.ID}, agent.ID)
	require.NoError(t, err)

	assert.Equal(t, "45999.00", sale.Amount.StringFixed(2))
	assert.Equal(t, "1379.97", sale.Commission.StringFixed(2))
	assert.False(t, sale.IsCommissionPaid)

	// References come back resolved to display projections
	require.NotNil(t, sale.Agent)
	assert.Equal(t, "Test User", sale.Agent.Name)
	assert.Equal(t, "test.dev@gmail.com", sale.Agent.Email)
	require.NotNil(t, sale.Product)
	assert.Equal(t, "Hp Notebook", sale.Product.Name)
	assert.True(t, sale.Product.Price.Equal(product.Price))

	assert.Equal(t, []string{"sale_created"}, f.events.events)
}

func TestRecordSale_ExplicitAmountOverridesPrice(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "45999")

	amount := decimal.NewFromInt(62000)
	sale, err := f.svc.RecordSale(&CreateSaleRequest{ProductID: product.ID, Amount: &amount}, agent.ID)
	require.NoError(t, err)

	assert.Equal(t, "62000.00", sale.Amount.StringFixed(2))
	assert.Equal(t, "3100.00", sale.Commission.StringFixed(2))
}

func TestRecordSale_ProductNotFound(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")

	sale, err := f.svc.RecordSale(&CreateSaleRequest{ProductID: uuid.New()}, agent.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, sale)
}

func TestRecordSale_NoQueuePush(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	_, err := f.svc.RecordSale(&CreateSaleRequest{ProductID: product.ID}, agent.ID)
	require.NoError(t, err)

	assert.Empty(t, f.producer.jobs)
}

func TestGetUserSalesByDate_EmptyRangeReturnsZeroTotals(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")

	totals, err := f.svc.GetUserSalesByDate(
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		agent.ID,
	)
	require.NoError(t, err)
	require.NotNil(t, totals)
	assert.True(t, totals.TotalSales.IsZero())
	assert.True(t, totals.TotalCommission.IsZero())
}

func TestGetUserSalesByDate_ClosedRangeIncludesBothEnds(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	other := f.addAgent(t, "Other", "other@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)

	f.addSale(t, agent, product, "100", start, false)                 // on start bound
	f.addSale(t, agent, product, "200", end, false)                   // on end bound
	f.addSale(t, agent, product, "400", end.AddDate(0, 0, 1), false)  // outside
	f.addSale(t, other, product, "800", start.AddDate(0, 0, 5), false) // other agent

	totals, err := f.svc.GetUserSalesByDate(start, end, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "300.00", totals.TotalSales.StringFixed(2))
	assert.Equal(t, "15.00", totals.TotalCommission.StringFixed(2))
}

func TestGetUserSalesByDate_EndDateDefaultsToNow(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	f.addSale(t, agent, product, "100", time.Now().Add(-time.Hour), false)

	totals, err := f.svc.GetUserSalesByDate(time.Now().AddDate(0, -1, 0), time.Time{}, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", totals.TotalSales.StringFixed(2))
}

func TestGroupedAgentUnpaidCommission_ExcludesFullyPaidAgents(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	unpaidAgent := f.addAgent(t, "Unpaid Agent", "unpaid@example.com")
	paidAgent := f.addAgent(t, "Paid Agent", "paid@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	now := time.Now()
	f.addSale(t, unpaidAgent, product, "100", now, false)
	f.addSale(t, unpaidAgent, product, "300", now, false)
	f.addSale(t, paidAgent, product, "500", now, true)

	groups, err := f.svc.GroupedAgentUnpaidCommission()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	assert.Equal(t, "unpaid@example.com", groups[0].Agent.Email)
	assert.Equal(t, "Unpaid Agent", groups[0].Agent.Name)
	assert.Equal(t, "400.00", groups[0].TotalSalesAmount.StringFixed(2))
	assert.Equal(t, "20.00", groups[0].TotalCommission.StringFixed(2))
}

func TestGroupedAgentUnpaidCommission_DanglingAgentSurfacesError(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "1000")
	f.addSale(t, agent, product, "100", time.Now(), false)

	// Cooperative integrity: deleting the user leaves the sale dangling
	require.NoError(t, f.users.Delete(agent.ID))

	_, err := f.svc.GroupedAgentUnpaidCommission()
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMarkCommissionsAsPaid_Idempotent(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	f.addSale(t, agent, product, "100", start.AddDate(0, 0, 3), false)
	f.addSale(t, agent, product, "200", start.AddDate(0, 0, 10), false)

	count, err := f.svc.MarkCommissionsAsPaid(agent.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Second invocation with the same range modifies nothing
	count, err = f.svc.MarkCommissionsAsPaid(agent.ID, start, end)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	groups, err := f.svc.GroupedAgentUnpaidCommission()
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestSendUserSalesByEmail_OneJobPerAgent(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	alice := f.addAgent(t, "Alice", "alice@example.com")
	bob := f.addAgent(t, "Bob", "bob@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	f.addSale(t, alice, product, "100", start, false) // start is inclusive
	f.addSale(t, alice, product, "200", start.AddDate(0, 0, 10), false)
	f.addSale(t, bob, product, "500", start.AddDate(0, 0, 20), false)
	f.addSale(t, bob, product, "900", end, false) // end is exclusive

	message, err := f.svc.SendUserSalesByEmail(start, end)
	require.NoError(t, err)
	assert.NotEmpty(t, message)

	require.Len(t, f.producer.jobs, 2)

	recipients := map[string]string{}
	for _, job := range f.producer.jobs {
		recipients[job.Recipient] = job.HTMLBody
		assert.Contains(t, job.Subject, "2024-05-01")
		assert.Contains(t, job.Subject, "2024-06-01")
	}

	require.Contains(t, recipients, "alice@example.com")
	require.Contains(t, recipients, "bob@example.com")

	aliceBody := recipients["alice@example.com"]
	assert.Contains(t, aliceBody, "Laptop")
	assert.Contains(t, aliceBody, "100.00")
	assert.Contains(t, aliceBody, "200.00")
	assert.Contains(t, aliceBody, "15.00") // 300 * 0.05 total

	// Bob's sale on the exclusive end bound never made it in
	assert.NotContains(t, recipients["bob@example.com"], "900.00")
}

func TestSendUserSalesByEmail_ContinuesAfterEnqueueFailure(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	product := f.addProduct(t, "Laptop", "1000")

	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		agent := f.addAgent(t, strings.ToUpper(email[:1]), email)
		f.addSale(t, agent, product, "100", start.AddDate(0, 0, i), false)
	}

	f.producer.failAfter = 1

	message, err := f.svc.SendUserSalesByEmail(start, end)
	require.NoError(t, err)
	assert.NotEmpty(t, message)
	// One job accepted before the queue started failing; the batch kept
	// going and still reported the fixed success message
	assert.Len(t, f.producer.jobs, 1)
}

func TestSendUnpaidCommissionByEmail_EnqueuesPerAgent(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	alice := f.addAgent(t, "Alice", "alice@example.com")
	bob := f.addAgent(t, "Bob", "bob@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	now := time.Now()
	f.addSale(t, alice, product, "100", now, false)
	f.addSale(t, bob, product, "200", now, false)
	f.addSale(t, bob, product, "300", now, true) // already paid, excluded

	require.NoError(t, f.svc.SendUnpaidCommissionByEmail())

	require.Len(t, f.producer.jobs, 2)
	for _, job := range f.producer.jobs {
		assert.Equal(t, "Pending commission summary", job.Subject)
		if job.Recipient == "bob@example.com" {
			assert.Contains(t, job.HTMLBody, "10.00") // 200 * 0.05 only
		}
	}
}

func TestUpdateSale_DoesNotRecomputeCommission(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "1000")

	created, err := f.svc.RecordSale(&CreateSaleRequest{ProductID: product.ID}, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", created.Commission.StringFixed(2))

	updated, err := f.svc.UpdateSale(created.ID, &UpdateSaleRequest{
		ProductID: product.ID,
		Amount:    decimal.NewFromInt(9000),
	})
	require.NoError(t, err)

	// Amount changed, commission is deliberately left stale
	assert.Equal(t, "9000.00", updated.Amount.StringFixed(2))
	assert.Equal(t, "50.00", updated.Commission.StringFixed(2))
}

func TestFindUserSalesByEmail(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "1000")
	f.addSale(t, agent, product, "100", time.Now(), false)

	sales, err := f.svc.FindUserSalesByEmail("agent@example.com")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.NotNil(t, sales[0].Product)
	assert.Equal(t, "Laptop", sales[0].Product.Name)

	_, err = f.svc.FindUserSalesByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetSaleByID_RoundTrip(t *testing.T) {
	f := newSalesFixture(t, "0.05")
	agent := f.addAgent(t, "Agent", "agent@example.com")
	product := f.addProduct(t, "Laptop", "45999")

	created, err := f.svc.RecordSale(&CreateSaleRequest{ProductID: product.ID}, agent.ID)
	require.NoError(t, err)

	fetched, err := f.svc.GetSaleByID(created.ID)
	require.NoError(t, err)

	assert.True(t, fetched.Amount.Equal(created.Amount))
	assert.True(t, fetched.Commission.Equal(created.Commission))
	require.NotNil(t, fetched.Agent)
	assert.Equal(t, "agent@example.com", fetched.Agent.Email)
	require.NotNil(t, fetched.Product)
	assert.True(t, fetched.Product.Price.Equal(product.Price))
}
