package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/erp/salesengine/internal/domain/inventory"
	"github.com/erp/salesengine/internal/domain/sales"
	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/erp/salesengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used for spans, metrics and reconciliation records
const (
	OpCreateSale   = "create"
	OpAddItem      = "add_item"
	OpUpdateItem   = "update_item"
	OpDeleteSale   = "delete_sale"
	OpDeleteItem   = "delete_item"
	OpChangeStatus = "change_status"
)

const spanService = "sale"

// EmptySalePolicy decides what happens to a sale whose last item is removed
type EmptySalePolicy string

const (
	EmptySaleDelete EmptySalePolicy = "delete"
	EmptySaleCancel EmptySalePolicy = "cancel"
)

// Config tunes the coordinator
type Config struct {
	NumberPrefix         string
	Location             *time.Location
	EmptySalePolicy      EmptySalePolicy
	MaxRetries           int
	RetryInitialInterval time.Duration
	CompensationTimeout  time.Duration
	IdempotencyTTL       time.Duration
}

// DefaultConfig returns the coordinator defaults
func DefaultConfig() Config {
	return Config{
		NumberPrefix:         sales.DefaultNumberPrefix,
		Location:             time.UTC,
		EmptySalePolicy:      EmptySaleDelete,
		MaxRetries:           3,
		RetryInitialInterval: 50 * time.Millisecond,
		CompensationTimeout:  10 * time.Second,
		IdempotencyTTL:       24 * time.Hour,
	}
}

// Coordinator executes sale operations as atomic units of work that keep
// product stock and sale totals consistent.
type Coordinator struct {
	scope     TransactionScope
	saleRepo  sales.SaleRepository
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
	publisher shared.EventPublisher
	recorder  sales.ReconciliationRepository
	idem      shared.IdempotencyStore
	metrics   *telemetry.SalesMetrics
}

// NewCoordinator creates a Coordinator. saleRepo serves read-only queries
// outside any unit of work.
func NewCoordinator(scope TransactionScope, saleRepo sales.SaleRepository, cfg Config, logger *zap.Logger) *Coordinator {
	def := DefaultConfig()
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = def.NumberPrefix
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.EmptySalePolicy == "" {
		cfg.EmptySalePolicy = def.EmptySalePolicy
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = def.RetryInitialInterval
	}
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = def.CompensationTimeout
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = def.IdempotencyTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		scope:    scope,
		saleRepo: saleRepo,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (c *Coordinator) SetEventPublisher(publisher shared.EventPublisher) {
	c.publisher = publisher
}

// SetReconciliationRepository sets where failed compensations are recorded
func (c *Coordinator) SetReconciliationRepository(recorder sales.ReconciliationRepository) {
	c.recorder = recorder
}

// SetIdempotencyStore enables Idempotency-Key handling for CreateSale
func (c *Coordinator) SetIdempotencyStore(store shared.IdempotencyStore) {
	c.idem = store
}

// SetSalesMetrics sets the business metrics recorder
func (c *Coordinator) SetSalesMetrics(m *telemetry.SalesMetrics) {
	c.metrics = m
}

// SetClock replaces the clock used for sale dates and sale numbers
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// unitOfWork is the per-attempt state handed to operation bodies
type unitOfWork struct {
	repos  TransactionalRepositories
	ledger *trackingLedger
	saleID uuid.UUID
	events []shared.DomainEvent
}

func (u *unitOfWork) collect(events ...shared.DomainEvent) {
	u.events = append(u.events, events...)
}

// move applies plan through the tracked ledger
func (u *unitOfWork) move(ctx context.Context, plan *inventory.Plan) error {
	if err := plan.Err(); err != nil {
		return err
	}
	return applyPlan(ctx, u.ledger, plan.Movements())
}

// save persists sale after checking its header against its items
func (u *unitOfWork) save(ctx context.Context, sale *sales.Sale) error {
	if !sale.TotalsConsistent() {
		return fmt.Errorf("sale %s: header totals do not match its line items", sale.ID)
	}
	return u.repos.SaleRepo().Save(ctx, sale)
}

// run executes body as one unit of work, retrying concurrency conflicts and
// compensating stock movements when the scope cannot roll back. Events
// collected by a successful attempt are published after it commits.
func (c *Coordinator) run(ctx context.Context, op string, span trace.Span, body func(ctx context.Context, uow *unitOfWork) error) error {
	start := time.Now()
	attempts := 0

	var committed []shared.DomainEvent
	operation := func() error {
		attempts++
		events, err := c.attempt(ctx, op, body)
		if err == nil {
			committed = events
			return nil
		}
		if shared.IsRetryable(err) && !errors.Is(err, shared.ErrReconciliationRequired) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.RetryNotify(operation, c.retryPolicy(ctx), func(err error, wait time.Duration) {
		c.logger.Warn("sale operation conflicted, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
	})

	if c.metrics != nil {
		c.metrics.RecordOperation(ctx, op, time.Since(start), err)
	}
	telemetry.SetAttribute(span, "attempts", attempts)
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) && c.metrics != nil {
			c.metrics.RecordReservationFailure(ctx, op)
		}
		telemetry.RecordError(span, err)
		return err
	}

	c.publish(ctx, committed)
	return nil
}

func (c *Coordinator) retryPolicy(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.RetryInitialInterval
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.cfg.MaxRetries)), ctx)
}

// attempt runs body once inside the transaction scope
func (c *Coordinator) attempt(ctx context.Context, op string, body func(ctx context.Context, uow *unitOfWork) error) ([]shared.DomainEvent, error) {
	var uow *unitOfWork
	var err error
	telemetry.WithOperationLabels(ctx, op, func(ctx context.Context) {
		err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			uow = &unitOfWork{
				repos:  repos,
				ledger: newTrackingLedger(repos.Ledger()),
			}
			return body(ctx, uow)
		})
	})
	if err == nil {
		return uow.events, nil
	}
	if uow == nil || c.scope.SupportsRollback() {
		return nil, err
	}
	return nil, c.compensate(ctx, op, uow, err)
}

// compensate undoes the stock movements of a failed unit of work in reverse
// order. It runs detached from ctx cancellation so an abandoned request does
// not leak stock. A compensation step that fails is not retried; the
// remaining movements are reported as a ReconciliationRequiredError.
func (c *Coordinator) compensate(ctx context.Context, op string, uow *unitOfWork, cause error) error {
	undo := uow.ledger.undoPlan()
	if len(undo) == 0 {
		return cause
	}

	compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.CompensationTimeout)
	defer cancel()

	var pending []inventory.Movement
	var errs []error
	for _, m := range undo {
		if err := m.Apply(compCtx, uow.ledger.base); err != nil {
			pending = append(pending, m)
			errs = append(errs, err)
		}
	}

	if len(pending) == 0 {
		if c.metrics != nil {
			c.metrics.RecordCompensation(compCtx, op, true)
		}
		c.logger.Info("compensated stock movements of failed sale operation",
			zap.String("operation", op),
			zap.Int("movements", len(undo)),
			zap.NamedError("cause", cause),
		)
		return cause
	}

	recErr := &sales.ReconciliationRequiredError{
		Operation: op,
		SaleID:    uow.saleID,
		Pending:   pending,
		Cause:     cause,
		CompErr:   errors.Join(errs...),
	}
	c.reportReconciliation(compCtx, recErr)
	return recErr
}

func (c *Coordinator) reportReconciliation(ctx context.Context, recErr *sales.ReconciliationRequiredError) {
	c.logger.Error("stock compensation failed, manual reconciliation required",
		zap.String("operation", recErr.Operation),
		zap.String("sale_id", recErr.SaleID.String()),
		zap.Any("pending", recErr.Pending),
		zap.NamedError("cause", recErr.Cause),
		zap.Error(recErr.CompErr),
	)
	if c.metrics != nil {
		c.metrics.RecordCompensation(ctx, recErr.Operation, false)
		c.metrics.RecordReconciliation(ctx, recErr.Operation)
	}
	if c.recorder != nil {
		if err := c.recorder.Create(ctx, sales.NewReconciliation(recErr, c.now().UTC())); err != nil {
			c.logger.Error("failed to record reconciliation", zap.Error(err))
		}
	}
	c.publish(ctx, []shared.DomainEvent{
		sales.NewStockReconciliationRequiredEvent(recErr.SaleID, recErr.Operation, recErr.Pending, recErr.CompErr.Error()),
	})
}

func (c *Coordinator) publish(ctx context.Context, events []shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Warn("failed to publish sale events",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

// loadForUpdate loads and locks the sale, remembering its id on uow
func loadForUpdate(ctx context.Context, uow *unitOfWork, saleID uuid.UUID) (*sales.Sale, error) {
	uow.saleID = saleID
	sale, err := uow.repos.SaleRepo().FindByIDForUpdate(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale: %w", err)
	}
	return sale, nil
}
