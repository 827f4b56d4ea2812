package sales_test

import (
	"context"
	"sync"
	"testing"
	"time"

	appsales "github.com/erp/salesengine/internal/application/sales"
	"github.com/erp/salesengine/internal/domain/catalog"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/memstore"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testDay = time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)

// faults injects failures into the stores seen by a unit of work
type faults struct {
	mu          sync.Mutex
	saveErrs    []error
	releaseErr  error
	reserveErrs []error

	afterReserve func()
}

func (f *faults) nextSaveErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saveErrs) == 0 {
		return nil
	}
	err := f.saveErrs[0]
	f.saveErrs = f.saveErrs[1:]
	return err
}

func (f *faults) failSaves(errs ...error) {
	f.mu.Lock()
	f.saveErrs = append(f.saveErrs, errs...)
	f.mu.Unlock()
}

func (f *faults) failReleases(err error) {
	f.mu.Lock()
	f.releaseErr = err
	f.mu.Unlock()
}

// failReserves makes the next reservations fail, one error per call
func (f *faults) failReserves(errs ...error) {
	f.mu.Lock()
	f.reserveErrs = append(f.reserveErrs, errs...)
	f.mu.Unlock()
}

type faultScope struct {
	inner appsales.TransactionScope
	f     *faults
}

func (s *faultScope) Execute(ctx context.Context, fn func(repos appsales.TransactionalRepositories) error) error {
	return s.inner.Execute(ctx, func(repos appsales.TransactionalRepositories) error {
		return fn(&faultRepos{TransactionalRepositories: repos, f: s.f})
	})
}

func (s *faultScope) SupportsRollback() bool { return s.inner.SupportsRollback() }

type faultRepos struct {
	appsales.TransactionalRepositories
	f *faults
}

func (r *faultRepos) SaleRepo() sales.SaleRepository {
	return &faultSaleRepo{SaleRepository: r.TransactionalRepositories.SaleRepo(), f: r.f}
}

func (r *faultRepos) Ledger() inventory.StockLedger {
	return &faultLedger{StockLedger: r.TransactionalRepositories.Ledger(), f: r.f}
}

type faultSaleRepo struct {
	sales.SaleRepository
	f *faults
}

func (r *faultSaleRepo) Save(ctx context.Context, sale *sales.Sale) error {
	if err := r.f.nextSaveErr(); err != nil {
		return err
	}
	return r.SaleRepository.Save(ctx, sale)
}

type faultLedger struct {
	inventory.StockLedger
	f *faults
}

func (l *faultLedger) Reserve(ctx context.Context, productID uuid.UUID, quantity int64) error {
	l.f.mu.Lock()
	var err error
	if len(l.f.reserveErrs) > 0 {
		err, l.f.reserveErrs = l.f.reserveErrs[0], l.f.reserveErrs[1:]
	}
	hook := l.f.afterReserve
	l.f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := l.StockLedger.Reserve(ctx, productID, quantity); err != nil {
		return err
	}
	if hook != nil {
		hook()
	}
	return nil
}

func (l *faultLedger) Release(ctx context.Context, productID uuid.UUID, quantity int64) error {
	l.f.mu.Lock()
	err := l.f.releaseErr
	l.f.mu.Unlock()
	if err != nil {
		return err
	}
	return l.StockLedger.Release(ctx, productID, quantity)
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// memoryClaims is a minimal idempotency store
type memoryClaims struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memoryClaims) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryClaims) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memoryClaims) Close() error { return nil }

type fixture struct {
	store     *memstore.Store
	coord     *appsales.Coordinator
	faults    *faults
	publisher *recordingPublisher
}

func newFixture(t *testing.T, mutate ...func(*appsales.Config)) *fixture {
	t.Helper()
	store := memstore.New()
	f := &faults{}

	cfg := appsales.DefaultConfig()
	cfg.RetryInitialInterval = time.Millisecond
	cfg.CompensationTimeout = time.Second
	for _, m := range mutate {
		m(&cfg)
	}

	coord := appsales.NewCoordinator(&faultScope{inner: memstore.NewScope(store), f: f}, store.Sales(), cfg, zap.NewNop())
	coord.SetClock(func() time.Time { return testDay })
	pub := &recordingPublisher{}
	coord.SetEventPublisher(pub)
	coord.SetReconciliationRepository(store.Reconciliations())

	return &fixture{store: store, coord: coord, faults: f, publisher: pub}
}

func (fx *fixture) product(t *testing.T, code, price, rate string, stock int64) uuid.UUID {
	t.Helper()
	p, err := catalog.NewProduct(code, "Product "+code,
		decimal.RequireFromString(price), decimal.RequireFromString(rate), stock)
	require.NoError(t, err)
	require.NoError(t, fx.store.Products().Create(context.Background(), p))
	return p.ID
}

func (fx *fixture) stock(t *testing.T, productID uuid.UUID) int64 {
	t.Helper()
	n, err := fx.store.Ledger().Available(context.Background(), productID)
	require.NoError(t, err)
	return n
}

func (fx *fixture) openReconciliations(t *testing.T) []sales.Reconciliation {
	t.Helper()
	open, err := fx.store.Reconciliations().ListOpen(context.Background())
	require.NoError(t, err)
	return open
}

func createRequest(items ...appsales.SaleItemInput) appsales.CreateSaleRequest {
	return appsales.CreateSaleRequest{
		CustomerID: uuid.New(),
		EmployeeID: uuid.New(),
		Items:      items,
	}
}

func item(productID uuid.UUID, qty int64) appsales.SaleItemInput {
	return appsales.SaleItemInput{ProductID: productID, Quantity: qty}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
