package engine

import (
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type OrderSpecTestSuite struct {
	suite.Suite
	spec OrderSpec
}

func TestOrderSpecSuite(t *testing.T) {
	suite.Run(t, new(OrderSpecTestSuite))
}

func (suite *OrderSpecTestSuite) SetupTest() {
	suite.spec = NewOneOrderSpec()
}

func (suite *OrderSpecTestSuite) order(side types.Side) types.Order {
	order, err := types.NewMarketOrder(side, 0, 0, 1, 0)
	suite.Require().NoError(err)

	return order
}

func (suite *OrderSpecTestSuite) TestFilter() {
	b1, b2 := suite.order(types.SideBuy), suite.order(types.SideBuy)
	s1, s2 := suite.order(types.SideSell), suite.order(types.SideSell)

	tests := []struct {
		name     string
		proposed []types.Order
		open     []types.Order
		want     []string
	}{
		{name: "nothing proposed", proposed: nil, open: nil, want: []string{}},
		{name: "first buy wins", proposed: []types.Order{b1, b2}, open: nil, want: []string{b1.ID}},
		{name: "buy listed before sell", proposed: []types.Order{s1, b1}, open: nil, want: []string{b1.ID, s1.ID}},
		{name: "one of each side", proposed: []types.Order{s1, b1, s2, b2}, open: nil, want: []string{b1.ID, s1.ID}},
		{name: "open buy blocks buys", proposed: []types.Order{b2, s1}, open: []types.Order{b1}, want: []string{s1.ID}},
		{name: "open sell blocks sells", proposed: []types.Order{s2, b1}, open: []types.Order{s1}, want: []string{b1.ID}},
		{name: "both sides open", proposed: []types.Order{b2, s2}, open: []types.Order{b1, s1}, want: []string{}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			admitted := suite.spec.Filter(tt.proposed, tt.open)

			ids := make([]string, 0, len(admitted))
			for _, order := range admitted {
				ids = append(ids, order.ID)
			}

			suite.Equal(tt.want, ids)
		})
	}
}

// Any mix of proposals and open orders admits at most one order per side and
// nothing on a side that is already open.
func (suite *OrderSpecTestSuite) TestAdmissionCap() {
	sides := []types.Side{types.SideBuy, types.SideSell}

	for mask := 0; mask < 1<<6; mask++ {
		var proposed, open []types.Order

		for i := 0; i < 4; i++ {
			if mask&(1<<i) != 0 {
				proposed = append(proposed, suite.order(sides[i%2]))
			}
		}

		openBuy := mask&(1<<4) != 0
		openSell := mask&(1<<5) != 0

		if openBuy {
			open = append(open, suite.order(types.SideBuy))
		}

		if openSell {
			open = append(open, suite.order(types.SideSell))
		}

		buys, sells := types.SplitBySide(suite.spec.Filter(proposed, open))
		suite.LessOrEqual(len(buys), 1)
		suite.LessOrEqual(len(sells), 1)

		if openBuy {
			suite.Empty(buys)
		}

		if openSell {
			suite.Empty(sells)
		}
	}
}
