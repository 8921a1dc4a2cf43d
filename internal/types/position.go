package types

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// Lot is a single share opened by a fill.
type Lot struct {
	ProductID   int             `yaml:"product_id" json:"product_id"`
	FilledTime  int64           `yaml:"filled_time" json:"filled_time"`
	FilledPrice decimal.Decimal `yaml:"filled_price" json:"filled_price"`
	Side        Side            `yaml:"side" json:"side"`
}

func (l Lot) IsLong() bool {
	return l.Side == SideBuy
}

// ClosedPosition is one entry lot matched against one exit lot.
type ClosedPosition struct {
	Entry  Lot  `yaml:"entry" json:"entry"`
	Exit   Lot  `yaml:"exit" json:"exit"`
	IsLong bool `yaml:"is_long" json:"is_long"`
}

// PnL is exit minus entry for longs and entry minus exit for shorts.
func (c ClosedPosition) PnL() decimal.Decimal {
	pnl := c.Exit.FilledPrice.Sub(c.Entry.FilledPrice)
	if !c.IsLong {
		return pnl.Neg()
	}

	return pnl
}

// PositionSet is the FIFO queue of open lots for one product. All lots in a
// set share the same side.
type PositionSet struct {
	productID int
	isLong    bool
	lots      []Lot
}

// NewPositionSet opens a set seeded with lots. Every lot must match the side.
func NewPositionSet(productID int, isLong bool, lots []Lot) (*PositionSet, error) {
	set := &PositionSet{
		productID: productID,
		isLong:    isLong,
	}

	if err := set.AddLots(lots); err != nil {
		return nil, err
	}

	return set, nil
}

func (p *PositionSet) ProductID() int {
	return p.productID
}

func (p *PositionSet) IsLong() bool {
	return p.isLong
}

func (p *PositionSet) Len() int {
	return len(p.lots)
}

func (p *PositionSet) IsEmpty() bool {
	return len(p.lots) == 0
}

// AddLots appends same-side lots to the back of the queue.
func (p *PositionSet) AddLots(lots []Lot) error {
	for _, lot := range lots {
		if lot.IsLong() != p.isLong {
			return errors.Newf(errors.ErrCodeUnreachableState,
				"cannot add %s lot to %s position set of product %d", lot.Side, p.sideName(), p.productID)
		}
	}

	p.lots = append(p.lots, lots...)

	return nil
}

// CloseLots pairs opposite-side lots against the queue oldest first. It
// returns the closures in pairing order and the incoming lots that found no
// counterpart.
func (p *PositionSet) CloseLots(lots []Lot) ([]ClosedPosition, []Lot, error) {
	for _, lot := range lots {
		if lot.IsLong() == p.isLong {
			return nil, nil, errors.Newf(errors.ErrCodeUnreachableState,
				"cannot close %s position set of product %d with a %s lot", p.sideName(), p.productID, lot.Side)
		}
	}

	n := min(len(p.lots), len(lots))
	closed := make([]ClosedPosition, 0, n)

	for i := range n {
		closed = append(closed, ClosedPosition{
			Entry:  p.lots[i],
			Exit:   lots[i],
			IsLong: p.isLong,
		})
	}

	p.lots = append([]Lot(nil), p.lots[n:]...)

	return closed, lots[n:], nil
}

// Snapshot returns a read-only copy of the set.
func (p *PositionSet) Snapshot() PositionSnapshot {
	lots := make([]Lot, len(p.lots))
	copy(lots, p.lots)

	return PositionSnapshot{
		ProductID: p.productID,
		IsLong:    p.isLong,
		Lots:      lots,
	}
}

func (p *PositionSet) sideName() string {
	if p.isLong {
		return "long"
	}

	return "short"
}

// PositionSnapshot is the view of a product's open lots handed to strategies.
type PositionSnapshot struct {
	ProductID int
	IsLong    bool
	// Lots are ordered oldest first.
	Lots []Lot
}

// EmptyPositionSnapshot is the snapshot of a flat product.
func EmptyPositionSnapshot(productID int) PositionSnapshot {
	return PositionSnapshot{ProductID: productID}
}

func (s PositionSnapshot) HasPositions() bool {
	return len(s.Lots) > 0
}

func (s PositionSnapshot) Size() int {
	return len(s.Lots)
}

// Position returns the oldest open lot, if any.
func (s PositionSnapshot) Position() optional.Option[Lot] {
	if len(s.Lots) == 0 {
		return optional.None[Lot]()
	}

	return optional.Some(s.Lots[0])
}

// LongestHoldingPeriodBars is the number of bars the oldest lot has been held
// as of bar now. A flat product reports 0.
func (s PositionSnapshot) LongestHoldingPeriodBars(now int64) int64 {
	oldest, err := s.Position().Take()
	if err != nil {
		return 0
	}

	return now - oldest.FilledTime
}
