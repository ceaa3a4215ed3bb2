package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/finance"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CoordinatorConfig tunes the coordinator
type CoordinatorConfig struct {
	// LockTimeout bounds the wait for contended keys. Default: 5s
	LockTimeout time.Duration
	// Idempotency controls request key deduplication
	Idempotency shared.IdempotencyConfig
	// EnforceCreditLimit applies the party credit check to every commit,
	// in addition to requests that ask for it explicitly
	EnforceCreditLimit bool
}

// DefaultCoordinatorConfig returns the default coordinator configuration
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		LockTimeout: 5 * time.Second,
		Idempotency: shared.DefaultIdempotencyConfig(),
	}
}

// Coordinator is the only writer of the quantity store, the balance store
// and the journal. Every operation validates, takes the key locks it needs
// and commits in a single unit of work.
type Coordinator struct {
	scope       TransactionScope
	locker      KeyLocker
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	logger      *zap.Logger
	metrics     *telemetry.LedgerMetrics
	config      CoordinatorConfig
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(scope TransactionScope, locker KeyLocker, config CoordinatorConfig, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LockTimeout <= 0 {
		config.LockTimeout = DefaultCoordinatorConfig().LockTimeout
	}
	if config.Idempotency.TTL <= 0 {
		config.Idempotency.TTL = shared.DefaultIdempotencyConfig().TTL
	}
	return &Coordinator{
		scope:  scope,
		locker: locker,
		logger: logger,
		config: config,
	}
}

// SetIdempotencyStore enables request key deduplication
func (c *Coordinator) SetIdempotencyStore(store shared.IdempotencyStore) {
	c.idempotency = store
}

// SetEventPublisher sets the publisher for post-commit domain events
func (c *Coordinator) SetEventPublisher(publisher shared.EventPublisher) {
	c.publisher = publisher
}

// SetLedgerMetrics sets the ledger metrics recorder
func (c *Coordinator) SetLedgerMetrics(m *telemetry.LedgerMetrics) {
	c.metrics = m
}

// Submit validates and commits a stock transaction together with its settlements.
//
// Validation runs in a fixed order and stops at the first failure: item
// shape, warehouse shape, oversell, then referenced entity existence.
func (c *Coordinator) Submit(ctx context.Context, req ledger.TransactionRequest) (*ledger.Transaction, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "submit",
		telemetry.WithAttribute(telemetry.SpanAttrTransactionType, string(req.Type)),
		telemetry.WithAttribute(telemetry.SpanAttrItems, len(req.Items)),
	)
	defer span.End()

	var (
		tx  *ledger.Transaction
		err error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.LedgerLabels(telemetry.OperationSubmit, string(req.Type)), func(ctx context.Context) {
		tx, err = c.submit(ctx, req)
	})
	c.observe(ctx, span, telemetry.OperationSubmit, string(req.Type), start, err)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrTransactionID, tx.ID.String())
	return tx, nil
}

func (c *Coordinator) submit(ctx context.Context, req ledger.TransactionRequest) (*ledger.Transaction, error) {
	if err := req.ValidateItems(); err != nil {
		return nil, err
	}
	if err := req.ValidateWarehouses(); err != nil {
		return nil, err
	}
	if err := req.ValidateFields(); err != nil {
		return nil, err
	}

	release, err := c.acquire(ctx, telemetry.OperationSubmit, requestLockKeys(req))
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.checkIdempotency(ctx, req.IdempotencyKey); err != nil {
		return nil, err
	}

	var (
		tx      *ledger.Transaction
		entries []*ledger.Entry
		events  []shared.DomainEvent
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := checkOutflows(ctx, repos.Quantities(), req.RequiredOutflows()); err != nil {
			return err
		}
		if err := checkTransactionReferences(ctx, repos, req); err != nil {
			return err
		}
		if err := req.ValidateSettlements(); err != nil {
			return err
		}
		for _, m := range req.Settlements {
			if err := checkMovementTarget(ctx, repos, m); err != nil {
				return err
			}
		}

		tx = ledger.NewTransaction(req)
		deltas, err := tx.StockDeltas()
		if err != nil {
			return err
		}
		for _, d := range deltas {
			onHand, err := repos.Quantities().ApplyStockDelta(ctx, d.Key, d.Delta)
			if err != nil {
				return err
			}
			entry := ledger.NewStockEntry(d.Key, d.Delta, d.Type, req.ActorID, req.Reference)
			entry.TransactionID = &tx.ID
			entries = append(entries, entry)
			events = append(events, ledger.NewStockLevelChangedEvent(d.Key, d.Delta, onHand))
		}

		enforce := req.EnforceCreditLimit || c.config.EnforceCreditLimit
		for _, m := range req.Settlements {
			entry, event, err := applyMovement(ctx, repos, m, req.ActorID, enforce)
			if err != nil {
				return err
			}
			entry.TransactionID = &tx.ID
			entries = append(entries, entry)
			events = append(events, event)
		}

		if err := repos.Journal().Append(ctx, entries...); err != nil {
			return err
		}
		if err := tx.MarkCompleted(entryIDs(entries)); err != nil {
			return err
		}
		return repos.Transactions().SaveTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	c.markProcessed(ctx, req.IdempotencyKey)
	c.recordEntries(ctx, entries)
	c.publish(ctx, append(events, ledger.NewTransactionCommittedEvent(tx))...)

	logger.WithLogger(ctx, c.logger).Info("ledger transaction committed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.Int("entries", len(entries)),
		zap.String("actor_id", tx.ActorID.String()),
	)
	return tx, nil
}

// Void reverses a COMPLETED transaction by appending compensating
// ADJUSTMENT entries. The original entries are never changed.
func (c *Coordinator) Void(ctx context.Context, transactionID, actorID uuid.UUID) (*ledger.Transaction, error) {
	start := time.Now()
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "void",
		telemetry.WithAttribute(telemetry.SpanAttrTransactionID, transactionID.String()),
	)
	defer span.End()

	tx, err := c.void(ctx, transactionID, actorID)
	kind := ""
	if tx != nil {
		kind = string(tx.Type)
	}
	c.observe(ctx, span, telemetry.OperationVoid, kind, start, err)
	return tx, err
}

func (c *Coordinator) void(ctx context.Context, transactionID, actorID uuid.UUID) (*ledger.Transaction, error) {
	releaseTx, err := c.acquire(ctx, telemetry.OperationVoid, []string{TransactionLockKey(transactionID.String())})
	if err != nil {
		return nil, err
	}
	defer releaseTx()

	// The transaction lock is held, so its entry set cannot change while the
	// record keys are being acquired.
	var originals []ledger.Entry
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		tx, err := repos.Transactions().FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.IsVoided() {
			return shared.ErrAlreadyVoided
		}
		originals, err = repos.Journal().EntriesForTransaction(ctx, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}

	releaseKeys, err := c.acquire(ctx, telemetry.OperationVoid, entryLockKeys(originals))
	if err != nil {
		return nil, err
	}
	defer releaseKeys()

	var (
		tx            *ledger.Transaction
		compensations []*ledger.Entry
		events        []shared.DomainEvent
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		tx, err = repos.Transactions().FindTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.IsVoided() {
			return shared.ErrAlreadyVoided
		}
		if tx.Status != ledger.TransactionStatusCompleted {
			return shared.NewDomainError(shared.CodeInvalidState, "only completed transactions can be voided")
		}

		note := fmt.Sprintf("void of transaction %s", tx.ID)
		for i := range originals {
			comp, err := originals[i].Compensation(actorID, note)
			if err != nil {
				return err
			}
			compensations = append(compensations, comp)
		}

		if err := checkOutflows(ctx, repos.Quantities(), compensationOutflows(compensations)); err != nil {
			return err
		}

		for _, comp := range compensations {
			switch comp.Kind {
			case ledger.EntryKindStock:
				key, _ := comp.StockKey()
				onHand, err := repos.Quantities().ApplyStockDelta(ctx, key, comp.QuantityChange)
				if err != nil {
					return err
				}
				events = append(events, ledger.NewStockLevelChangedEvent(key, comp.QuantityChange, onHand))
			case ledger.EntryKindBalance:
				key, _ := comp.BalanceKey()
				balance, err := repos.Balances().ApplyBalanceDelta(ctx, key, comp.Amount)
				if err != nil {
					return err
				}
				events = append(events, ledger.NewBalanceChangedEvent(key, comp.Amount, balance))
			default:
				return shared.NewValidationError("unknown entry kind %q", comp.Kind)
			}
		}

		if err := repos.Journal().Append(ctx, compensations...); err != nil {
			return err
		}
		if err := tx.MarkVoided(actorID, entryIDs(compensations)); err != nil {
			return err
		}
		return repos.Transactions().SaveTransaction(ctx, tx)
	})
	if err != nil {
		return nil, err
	}

	c.recordEntries(ctx, compensations)
	c.publish(ctx, append(events, ledger.NewTransactionVoidedEvent(tx, entryIDs(compensations), actorID))...)

	logger.WithLogger(ctx, c.logger).Info("ledger transaction voided",
		zap.String("transaction_id", tx.ID.String()),
		zap.Int("compensations", len(compensations)),
		zap.String("actor_id", actorID.String()),
	)
	return tx, nil
}

// PostMovement commits a standalone expense or payment as one balance
// mutation and one BALANCE journal entry.
func (c *Coordinator) PostMovement(ctx context.Context, m finance.Movement, actorID uuid.UUID, enforceCreditLimit bool) (*ledger.Entry, error) {
	start := time.Now()
	kind := ""
	if m != nil {
		kind = string(m.Kind())
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post_movement",
		telemetry.WithAttribute(telemetry.SpanAttrMovementKind, kind),
	)
	defer span.End()

	entry, err := c.postMovement(ctx, m, actorID, enforceCreditLimit || c.config.EnforceCreditLimit)
	c.observe(ctx, span, telemetry.OperationMovement, kind, start, err)
	return entry, err
}

func (c *Coordinator) postMovement(ctx context.Context, m finance.Movement, actorID uuid.UUID, enforce bool) (*ledger.Entry, error) {
	if m == nil {
		return nil, shared.NewValidationError("movement is required")
	}
	if err := ledger.ValidateMovement(m); err != nil {
		return nil, err
	}

	release, err := c.acquire(ctx, telemetry.OperationMovement, []string{ledger.MovementKey(m).LockKey()})
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		entry *ledger.Entry
		event shared.DomainEvent
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := checkMovementTarget(ctx, repos, m); err != nil {
			return err
		}
		var err error
		entry, event, err = applyMovement(ctx, repos, m, actorID, enforce)
		if err != nil {
			return err
		}
		return repos.Journal().Append(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	c.recordEntries(ctx, []*ledger.Entry{entry})
	c.publish(ctx, event)

	logger.WithLogger(ctx, c.logger).Info("ledger movement posted",
		zap.String("movement_id", m.MovementID().String()),
		zap.String("kind", string(m.Kind())),
		zap.String("amount", entry.Amount.String()),
		zap.String("actor_id", actorID.String()),
	)
	return entry, nil
}

// checkOutflows fails with INSUFFICIENT_STOCK when any record would drop below zero
func checkOutflows(ctx context.Context, quantities ledger.QuantityReader, outflows map[ledger.StockKey]int64) error {
	for key, requested := range outflows {
		available, err := quantities.QuantityOnHand(ctx, key)
		if err != nil {
			return err
		}
		if available < requested {
			return shared.NewInsufficientStockError(key.ProductID, key.WarehouseID, available, requested)
		}
	}
	return nil
}

// compensationOutflows sums the stock decrements a void would apply
func compensationOutflows(entries []*ledger.Entry) map[ledger.StockKey]int64 {
	out := make(map[ledger.StockKey]int64)
	for _, e := range entries {
		key, ok := e.StockKey()
		if !ok {
			continue
		}
		out[key] -= e.QuantityChange
	}
	for key, n := range out {
		if n <= 0 {
			delete(out, key)
		}
	}
	return out
}

// checkTransactionReferences fails with NOT_FOUND when a referenced product,
// warehouse or party is missing or soft-deleted
func checkTransactionReferences(ctx context.Context, repos TransactionalRepositories, req ledger.TransactionRequest) error {
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for _, item := range req.Items {
		if seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true
		p, err := repos.Products().FindProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if p.IsDeleted() {
			return shared.NewNotFoundError("product", item.ProductID)
		}
	}
	for _, id := range []*uuid.UUID{req.FromWarehouseID, req.ToWarehouseID} {
		if id == nil {
			continue
		}
		w, err := repos.Warehouses().FindWarehouse(ctx, *id)
		if err != nil {
			return err
		}
		if w.IsDeleted() {
			return shared.NewNotFoundError("warehouse", *id)
		}
	}
	if req.PartyID != nil && *req.PartyID != uuid.Nil {
		p, err := repos.Parties().FindParty(ctx, *req.PartyID)
		if err != nil {
			return err
		}
		if p.IsDeleted() {
			return shared.NewNotFoundError("party", *req.PartyID)
		}
	}
	return nil
}

// checkMovementTarget fails with NOT_FOUND when the movement's account or
// party is missing or soft-deleted
func checkMovementTarget(ctx context.Context, repos TransactionalRepositories, m finance.Movement) error {
	key := ledger.MovementKey(m)
	switch key.Owner {
	case ledger.BalanceOwnerAccount:
		a, err := repos.Accounts().FindAccount(ctx, key.ID)
		if err != nil {
			return err
		}
		if a.IsDeleted() {
			return shared.NewNotFoundError("account", key.ID)
		}
	case ledger.BalanceOwnerParty:
		p, err := repos.Parties().FindParty(ctx, key.ID)
		if err != nil {
			return err
		}
		if p.IsDeleted() {
			return shared.NewNotFoundError("party", key.ID)
		}
	}
	return nil
}

// applyMovement applies one balance mutation and builds its journal entry.
// With enforce set, a party whose exposure grows past its credit limit
// fails with CREDIT_LIMIT_EXCEEDED.
func applyMovement(ctx context.Context, repos TransactionalRepositories, m finance.Movement, actorID uuid.UUID, enforce bool) (*ledger.Entry, shared.DomainEvent, error) {
	entryType, err := ledger.MovementEntryType(m)
	if err != nil {
		return nil, nil, err
	}
	key := ledger.MovementKey(m)
	delta := m.SignedAmount()

	if enforce && key.Owner == ledger.BalanceOwnerParty {
		if err := checkCreditLimit(ctx, repos, key, delta); err != nil {
			return nil, nil, err
		}
	}

	balance, err := repos.Balances().ApplyBalanceDelta(ctx, key, delta)
	if err != nil {
		return nil, nil, err
	}
	entry := ledger.NewBalanceEntry(key, delta, entryType, actorID, m.Reference())
	movementID := m.MovementID()
	entry.MovementID = &movementID
	return entry, ledger.NewBalanceChangedEvent(key, delta, balance), nil
}

func checkCreditLimit(ctx context.Context, repos TransactionalRepositories, key ledger.BalanceKey, delta decimal.Decimal) error {
	party, err := repos.Parties().FindParty(ctx, key.ID)
	if err != nil {
		return err
	}
	if !party.Exposure(delta).IsPositive() {
		return nil
	}
	current, err := repos.Balances().Balance(ctx, key)
	if err != nil {
		return err
	}
	projected := current.Add(delta)
	if party.ExceedsCreditLimit(projected) {
		return shared.NewDomainError(shared.CodeCreditLimitExceeded,
			fmt.Sprintf("party %s exposure %s would exceed credit limit %s",
				party.ID, party.Exposure(projected).String(), party.CreditLimit.String()))
	}
	return nil
}

func (c *Coordinator) acquire(ctx context.Context, operation string, keys []string) (func(), error) {
	if len(keys) == 0 {
		return func() {}, nil
	}
	release, err := c.locker.Acquire(ctx, keys, c.config.LockTimeout)
	if err != nil {
		if shared.IsRetryable(err) && c.metrics != nil {
			c.metrics.RecordLockConflict(ctx, operation)
		}
		return nil, err
	}
	return release, nil
}

func (c *Coordinator) checkIdempotency(ctx context.Context, key string) error {
	if key == "" || c.idempotency == nil || !c.config.Idempotency.Enabled {
		return nil
	}
	processed, err := c.idempotency.IsProcessed(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if processed {
		return shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("request with idempotency key %q was already committed", key))
	}
	return nil
}

func (c *Coordinator) markProcessed(ctx context.Context, key string) {
	if key == "" || c.idempotency == nil || !c.config.Idempotency.Enabled {
		return
	}
	if _, err := c.idempotency.MarkProcessed(ctx, key, c.config.Idempotency.TTL); err != nil {
		logger.WithLogger(ctx, c.logger).Error("failed to record idempotency key after commit",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (c *Coordinator) publish(ctx context.Context, events ...shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		logger.WithLogger(ctx, c.logger).Error("failed to publish ledger events", zap.Error(err))
	}
}

func (c *Coordinator) recordEntries(ctx context.Context, entries []*ledger.Entry) {
	if c.metrics == nil {
		return
	}
	counts := make(map[ledger.EntryKind]int, 2)
	for _, e := range entries {
		counts[e.Kind]++
	}
	for kind, n := range counts {
		c.metrics.RecordEntries(ctx, string(kind), n)
	}
}

// observe records the outcome of one operation on its span, metrics and log
func (c *Coordinator) observe(ctx context.Context, span trace.Span, operation, kind string, start time.Time, err error) {
	outcome := telemetry.OutcomeSuccess
	log := logger.WithLogger(ctx, c.logger)
	if code := shared.ErrorCode(err); code != "" {
		telemetry.SetAttribute(span, telemetry.SpanAttrErrorCode, code)
	}
	switch {
	case err == nil:
		telemetry.SetOK(span)
	case shared.IsRetryable(err):
		outcome = telemetry.OutcomeConflict
		telemetry.RecordError(span, err)
		log.Warn("ledger operation hit lock contention",
			zap.String("operation", operation),
			zap.Error(err),
		)
	case shared.ErrorCode(err) == shared.CodeNegativeStock:
		outcome = telemetry.OutcomeError
		telemetry.RecordError(span, err)
		log.Error("stock invariant violation rejected by quantity store",
			zap.String("operation", operation),
			zap.Error(err),
		)
	case shared.ErrorCode(err) != "":
		outcome = telemetry.OutcomeRejected
		telemetry.RecordError(span, err)
		log.Info("ledger operation rejected",
			zap.String("operation", operation),
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err),
		)
	default:
		outcome = telemetry.OutcomeError
		telemetry.RecordError(span, err)
		log.Error("ledger operation failed",
			zap.String("operation", operation),
			zap.Error(err),
		)
	}
	if c.metrics != nil {
		c.metrics.RecordCommit(ctx, operation, kind, outcome, time.Since(start))
	}
}

func entryIDs(entries []*ledger.Entry) []uuid.UUID {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}
