package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/ledger/internal/domain/catalog"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReorderAlert is a stock record at or below its product's reorder level
type ReorderAlert struct {
	ProductID    uuid.UUID `json:"product_id"`
	WarehouseID  uuid.UUID `json:"warehouse_id"`
	OnHand       int64     `json:"on_hand"`
	ReorderLevel int64     `json:"reorder_level"`
}

// ReorderMonitor reports replenishment needs from committed state. It never
// writes to the ledger.
type ReorderMonitor struct {
	levels   ledger.StockLevelReader
	products catalog.ProductReader
	logger   *zap.Logger
	metrics  *telemetry.LedgerMetrics
}

// NewReorderMonitor creates a new ReorderMonitor
func NewReorderMonitor(levels ledger.StockLevelReader, products catalog.ProductReader, logger *zap.Logger) *ReorderMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReorderMonitor{
		levels:   levels,
		products: products,
		logger:   logger,
	}
}

// SetLedgerMetrics sets the metrics recorder updated on threshold crossings
func (m *ReorderMonitor) SetLedgerMetrics(metrics *telemetry.LedgerMetrics) {
	m.metrics = metrics
}

// BelowReorder lists every quantity record whose product is not deleted,
// has a positive reorder level, and has on-hand at or below that level.
// Records are ordered by product then warehouse.
func (m *ReorderMonitor) BelowReorder(ctx context.Context) ([]ReorderAlert, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "below_reorder")
	defer span.End()

	levels, err := m.levels.ListStockLevels(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to list stock levels: %w", err)
	}

	products := make(map[uuid.UUID]*catalog.Product)
	alerts := make([]ReorderAlert, 0)
	for _, level := range levels {
		product, ok := products[level.ProductID]
		if !ok {
			product, err = m.products.FindProduct(ctx, level.ProductID)
			if err != nil {
				if shared.ErrorCode(err) == shared.CodeNotFound {
					products[level.ProductID] = nil
					continue
				}
				telemetry.RecordError(span, err)
				return nil, err
			}
			products[level.ProductID] = product
		}
		if product == nil || product.IsDeleted() || !product.NeedsReorder(level.OnHand) {
			continue
		}
		alerts = append(alerts, ReorderAlert{
			ProductID:    level.ProductID,
			WarehouseID:  level.WarehouseID,
			OnHand:       level.OnHand,
			ReorderLevel: product.ReorderLevel,
		})
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].ProductID != alerts[j].ProductID {
			return alerts[i].ProductID.String() < alerts[j].ProductID.String()
		}
		return alerts[i].WarehouseID.String() < alerts[j].WarehouseID.String()
	})
	telemetry.SetAttribute(span, "ledger.below_reorder", len(alerts))
	return alerts, nil
}

// CountBelowReorder implements telemetry.ReorderMetricsProvider
func (m *ReorderMonitor) CountBelowReorder(ctx context.Context) (int64, error) {
	alerts, err := m.BelowReorder(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(alerts)), nil
}

// EventTypes returns the event types this handler is interested in
func (m *ReorderMonitor) EventTypes() []string {
	return []string{ledger.EventTypeStockLevelChanged}
}

// Handle watches committed stock changes for threshold crossings
func (m *ReorderMonitor) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*ledger.StockLevelChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			ledger.EventTypeStockLevelChanged, event.EventType())
	}

	product, err := m.products.FindProduct(ctx, changed.ProductID)
	if err != nil {
		return err
	}
	if product.IsDeleted() || product.ReorderLevel <= 0 {
		return nil
	}

	before := changed.OnHand - changed.Delta
	nowBelow := product.NeedsReorder(changed.OnHand)
	wasBelow := product.NeedsReorder(before)
	if nowBelow == wasBelow {
		return nil
	}

	if nowBelow {
		m.logger.Warn("stock at or below reorder level",
			zap.String("product_id", changed.ProductID.String()),
			zap.String("warehouse_id", changed.WarehouseID.String()),
			zap.Int64("on_hand", changed.OnHand),
			zap.Int64("reorder_level", product.ReorderLevel),
		)
	} else {
		m.logger.Info("stock replenished above reorder level",
			zap.String("product_id", changed.ProductID.String()),
			zap.String("warehouse_id", changed.WarehouseID.String()),
			zap.Int64("on_hand", changed.OnHand),
		)
	}

	if m.metrics != nil {
		count, err := m.CountBelowReorder(ctx)
		if err != nil {
			m.logger.Warn("failed to refresh below-reorder gauge", zap.Error(err))
			return nil
		}
		m.metrics.RecordBelowReorder(ctx, count)
	}
	return nil
}

// Ensure ReorderMonitor implements shared.EventHandler
var _ shared.EventHandler = (*ReorderMonitor)(nil)

// Ensure ReorderMonitor implements telemetry.ReorderMetricsProvider
var _ telemetry.ReorderMetricsProvider = (*ReorderMonitor)(nil)
