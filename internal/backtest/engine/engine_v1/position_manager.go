package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// PositionManager keeps one FIFO lot queue per product. A product without a
// queue is flat.
type PositionManager struct {
	positions map[int]*types.PositionSet
	log       *logger.Logger
}

func NewPositionManager(log *logger.Logger) *PositionManager {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &PositionManager{
		positions: make(map[int]*types.PositionSet),
		log:       log,
	}
}

// Update applies a fill to the product's lots and returns the closures it
// produced, oldest entry first.
func (m *PositionManager) Update(filled types.FilledOrder) ([]types.ClosedPosition, error) {
	productID := filled.Order.ProductID
	lots := filled.Lots()
	isBuy := filled.Order.IsBuy()

	set, exists := m.positions[productID]
	sizeBefore := 0

	if exists {
		sizeBefore = set.Len()
	}

	defer func() {
		m.log.Debug("Position updated",
			zap.Int("product_id", productID),
			zap.String("order_id", filled.Order.ID),
			zap.Int("size_before", sizeBefore),
			zap.Int("size_after", m.Snapshot(productID).Size()),
		)
	}()

	if !exists {
		created, err := types.NewPositionSet(productID, isBuy, lots)
		if err != nil {
			return nil, err
		}

		m.positions[productID] = created

		return nil, nil
	}

	if set.IsLong() == isBuy {
		if err := set.AddLots(lots); err != nil {
			return nil, err
		}

		return nil, nil
	}

	closed, leftover, err := set.CloseLots(lots)
	if err != nil {
		return nil, err
	}

	if !set.IsEmpty() {
		if len(leftover) > 0 {
			return nil, errors.Newf(errors.ErrCodeUnreachableState, "product %d kept %d lots and %d unmatched lots", productID, set.Len(), len(leftover))
		}

		return closed, nil
	}

	delete(m.positions, productID)

	if len(leftover) > 0 {
		flipped, err := types.NewPositionSet(productID, isBuy, leftover)
		if err != nil {
			return nil, err
		}

		m.positions[productID] = flipped
	}

	return closed, nil
}

// Snapshot returns a copy of the product's lots, empty when flat.
func (m *PositionManager) Snapshot(productID int) types.PositionSnapshot {
	set, exists := m.positions[productID]
	if !exists {
		return types.EmptyPositionSnapshot(productID)
	}

	return set.Snapshot()
}
