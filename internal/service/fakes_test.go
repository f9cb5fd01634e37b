package service

import (
	"errors"
	"time"

	"go-sales-tracker/internal/model"
	"go-sales-tracker/internal/queue"
	"go-sales-tracker/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes implementing the repository interfaces, so the
// services can be exercised without a database.

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*model.User{}}
}

func (r *fakeUserRepo) FindByEmail(email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindByID(id uuid.UUID) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) FindAll() ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Create(user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

type fakeProductRepo struct {
	products map[uuid.UUID]*model.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[uuid.UUID]*model.Product{}}
}

func (r *fakeProductRepo) Create(product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) FindAll() ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProductRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) Update(product *model.Product) error {
	r.products[product.ID] = product
	return nil
}

func (r *fakeProductRepo) Delete(id uuid.UUID) error {
	delete(r.products, id)
	return nil
}

// fakeSaleRepo mirrors the real repository's range semantics: closed
// bounds for SumByAgentAndRange, half-open for FindInRange.
type fakeSaleRepo struct {
	sales    []*model.Sale
	users    *fakeUserRepo
	products *fakeProductRepo
}

func newFakeSaleRepo(users *fakeUserRepo, products *fakeProductRepo) *fakeSaleRepo {
	return &fakeSaleRepo{users: users, products: products}
}

func (r *fakeSaleRepo) preload(sale *model.Sale) *model.Sale {
	out := *sale
	if u, ok := r.users.users[sale.AgentID]; ok {
		out.Agent = u
	}
	if p, ok := r.products.products[sale.ProductID]; ok {
		out.Product = p
	}
	return &out
}

func (r *fakeSaleRepo) Create(sale *model.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}
	r.sales = append(r.sales, sale)
	return nil
}

func (r *fakeSaleRepo) FindByID(id uuid.UUID) (*model.Sale, error) {
	for _, s := range r.sales {
		if s.ID == id {
			return r.preload(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSaleRepo) FindByAgent(agentID uuid.UUID) ([]model.Sale, error) {
	var out []model.Sale
	for _, s := range r.sales {
		if s.AgentID == agentID {
			out = append(out, *r.preload(s))
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) SumByAgentAndRange(agentID uuid.UUID, startDate, endDate time.Time) (*repository.SalesTotals, error) {
	totals := &repository.SalesTotals{}
	for _, s := range r.sales {
		if s.AgentID != agentID {
			continue
		}
		if s.CreatedAt.Before(startDate) || s.CreatedAt.After(endDate) {
			continue
		}
		totals.TotalSales = totals.TotalSales.Add(s.Amount)
		totals.TotalCommission = totals.TotalCommission.Add(s.Commission)
	}
	return totals, nil
}

func (r *fakeSaleRepo) FindInRange(startDate, endDate time.Time) ([]model.Sale, error) {
	var out []model.Sale
	for _, s := range r.sales {
		if s.CreatedAt.Before(startDate) || !s.CreatedAt.Before(endDate) {
			continue
		}
		out = append(out, *r.preload(s))
	}
	return out, nil
}

func (r *fakeSaleRepo) GroupUnpaidByAgent() ([]repository.AgentUnpaidRow, error) {
	grouped := map[uuid.UUID]*repository.AgentUnpaidRow{}
	for _, s := range r.sales {
		if s.IsCommissionPaid {
			continue
		}
		row, ok := grouped[s.AgentID]
		if !ok {
			row = &repository.AgentUnpaidRow{AgentID: s.AgentID}
			grouped[s.AgentID] = row
		}
		row.TotalSalesAmount = row.TotalSalesAmount.Add(s.Amount)
		row.TotalCommission = row.TotalCommission.Add(s.Commission)
	}

	var out []repository.AgentUnpaidRow
	for _, row := range grouped {
		out = append(out, *row)
	}
	return out, nil
}

func (r *fakeSaleRepo) MarkCommissionsPaid(agentID uuid.UUID, startDate, endDate time.Time) (int64, error) {
	var count int64
	for _, s := range r.sales {
		if s.AgentID != agentID || s.IsCommissionPaid {
			continue
		}
		if s.CreatedAt.Before(startDate) || s.CreatedAt.After(endDate) {
			continue
		}
		s.IsCommissionPaid = true
		count++
	}
	return count, nil
}

func (r *fakeSaleRepo) Update(sale *model.Sale) error {
	for i, s := range r.sales {
		if s.ID == sale.ID {
			r.sales[i] = sale
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// fakeProducer captures enqueued jobs; failAfter > 0 makes every
// enqueue past that count fail
type fakeProducer struct {
	jobs      []queue.EmailJob
	failAfter int
}

func (p *fakeProducer) Enqueue(job queue.EmailJob) error {
	if p.failAfter > 0 && len(p.jobs) >= p.failAfter {
		return errors.New("queue full")
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type fakePublisher struct {
	events []string
}

func (p *fakePublisher) Publish(event string, payload interface{}) {
	p.events = append(p.events, event)
}
