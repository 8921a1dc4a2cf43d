package types

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type TradeCounts struct {
	// Count of all trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// Count of trades with positive pnl.
	NumberOfWinningTrades int `yaml:"number_of_winning_trades"`
	// Count of trades with negative pnl.
	NumberOfLosingTrades int `yaml:"number_of_losing_trades"`
	// Count of trades that closed at the entry price.
	NumberOfEvenTrades  int `yaml:"number_of_even_trades"`
	NumberOfLongTrades  int `yaml:"number_of_long_trades"`
	NumberOfShortTrades int `yaml:"number_of_short_trades"`
	// Winning trades divided by all trades. 0 when there are no trades.
	PercentProfitable float64 `yaml:"percent_profitable"`
}

type TradePnl struct {
	// Sum of every trade's pnl.
	TotalPnL float64 `yaml:"total_pnl"`
	// Sum of the winning trades' pnl.
	TotalProfit float64 `yaml:"total_profit"`
	// Sum of the losing trades' pnl. Never positive.
	TotalLoss    float64 `yaml:"total_loss"`
	LongPnL      float64 `yaml:"long_pnl"`
	ShortPnL     float64 `yaml:"short_pnl"`
	MaxWinning   float64 `yaml:"max_winning_trade"`
	MaxLosing    float64 `yaml:"max_losing_trade"`
	AveragePnL   float64 `yaml:"average_pnl"`
	ProfitFactor float64 `yaml:"profit_factor"`
}

type TradeStats struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Run is the zero based index of the run within an evaluation.
	Run  int   `yaml:"run" json:"run"`
	Seed int64 `yaml:"seed" json:"seed"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time   `yaml:"timestamp" json:"timestamp"`
	ProductID int         `yaml:"product_id" json:"product_id"`
	Trades    TradeCounts `yaml:"trades"`
	TradePnl  TradePnl    `yaml:"trade_pnl"`
	// Orders still open when the feed ran out.
	OpenOrders      int `yaml:"open_orders" json:"open_orders"`
	CancelledOrders int `yaml:"cancelled_orders" json:"cancelled_orders"`
	// TradesFilePath is the path to the exported trade ledger.
	TradesFilePath string `yaml:"trades_file_path" json:"trades_file_path"`
	// OrdersFilePath is the path to the exported order audit trail.
	OrdersFilePath string   `yaml:"orders_file_path" json:"orders_file_path"`
	Strategies     []string `yaml:"strategies" json:"strategies"`
	DataPath       string   `yaml:"data_path" json:"data_path"`
}

// CalculateTradeStats aggregates a trade ledger.
func CalculateTradeStats(trades []Trade) TradeStats {
	var counts TradeCounts

	var total, profit, loss, longPnL, shortPnL, maxWinning, maxLosing decimal.Decimal

	for _, trade := range trades {
		counts.NumberOfTrades++
		total = total.Add(trade.PnL)

		if trade.IsLong {
			counts.NumberOfLongTrades++
			longPnL = longPnL.Add(trade.PnL)
		} else {
			counts.NumberOfShortTrades++
			shortPnL = shortPnL.Add(trade.PnL)
		}

		switch trade.PnL.Sign() {
		case 1:
			counts.NumberOfWinningTrades++
			profit = profit.Add(trade.PnL)
			maxWinning = decimal.Max(maxWinning, trade.PnL)
		case -1:
			counts.NumberOfLosingTrades++
			loss = loss.Add(trade.PnL)
			maxLosing = decimal.Min(maxLosing, trade.PnL)
		default:
			counts.NumberOfEvenTrades++
		}
	}

	pnl := TradePnl{
		TotalPnL:    total.InexactFloat64(),
		TotalProfit: profit.InexactFloat64(),
		TotalLoss:   loss.InexactFloat64(),
		LongPnL:     longPnL.InexactFloat64(),
		ShortPnL:    shortPnL.InexactFloat64(),
		MaxWinning:  maxWinning.InexactFloat64(),
		MaxLosing:   maxLosing.InexactFloat64(),
	}

	if counts.NumberOfTrades > 0 {
		n := decimal.NewFromInt(int64(counts.NumberOfTrades))
		counts.PercentProfitable = decimal.NewFromInt(int64(counts.NumberOfWinningTrades)).Div(n).InexactFloat64()
		pnl.AveragePnL = total.Div(n).InexactFloat64()
	}

	if !loss.IsZero() {
		pnl.ProfitFactor = profit.Div(loss).Neg().InexactFloat64()
	}

	return TradeStats{
		Trades:   counts,
		TradePnl: pnl,
	}
}

func WriteTradeStats(path string, stats []TradeStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal trade stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write trade stats to file: %w", err)
	}

	return nil
}

// EvaluationResult is one row of the evaluation table, one per run.
type EvaluationResult struct {
	Run            int     `csv:"run" yaml:"run"`
	Seed           int64   `csv:"seed" yaml:"seed"`
	PnL            float64 `csv:"pl" yaml:"pl"`
	Profit         float64 `csv:"profit" yaml:"profit"`
	Loss           float64 `csv:"loss" yaml:"loss"`
	NumberOfTrades int     `csv:"n_trades" yaml:"n_trades"`
	NumberOfWins   int     `csv:"n_wins" yaml:"n_wins"`
	NumberOfLosses int     `csv:"n_losses" yaml:"n_losses"`
	// PercentProfit is expressed in percent, not as a ratio.
	PercentProfit  float64 `csv:"pp" yaml:"pp"`
	AveragePnL     float64 `csv:"pl_avg" yaml:"pl_avg"`
	AverageProfit  float64 `csv:"profit_avg" yaml:"profit_avg"`
	AverageLoss    float64 `csv:"loss_avg" yaml:"loss_avg"`
	ProfitFactor   float64 `csv:"pf" yaml:"pf"`
	MaxProfitInOne float64 `csv:"max_prof_in1" yaml:"max_prof_in1"`
	MaxLossInOne   float64 `csv:"max_loss_in1" yaml:"max_loss_in1"`
	StatsFilePath  string  `csv:"-" yaml:"stats_file_path"`
	TradesFilePath string  `csv:"-" yaml:"trades_file_path"`
}

// NewEvaluationResult flattens the stats of one run into an evaluation row.
func NewEvaluationResult(stats TradeStats) EvaluationResult {
	result := EvaluationResult{
		Run:            stats.Run,
		Seed:           stats.Seed,
		PnL:            stats.TradePnl.TotalPnL,
		Profit:         stats.TradePnl.TotalProfit,
		Loss:           stats.TradePnl.TotalLoss,
		NumberOfTrades: stats.Trades.NumberOfTrades,
		NumberOfWins:   stats.Trades.NumberOfWinningTrades,
		NumberOfLosses: stats.Trades.NumberOfLosingTrades,
		PercentProfit:  stats.Trades.PercentProfitable * 100,
		AveragePnL:     stats.TradePnl.AveragePnL,
		ProfitFactor:   stats.TradePnl.ProfitFactor,
		MaxProfitInOne: stats.TradePnl.MaxWinning,
		MaxLossInOne:   stats.TradePnl.MaxLosing,
		TradesFilePath: stats.TradesFilePath,
	}

	if stats.Trades.NumberOfWinningTrades > 0 {
		result.AverageProfit = stats.TradePnl.TotalProfit / float64(stats.Trades.NumberOfWinningTrades)
	}

	if stats.Trades.NumberOfLosingTrades > 0 {
		result.AverageLoss = stats.TradePnl.TotalLoss / float64(stats.Trades.NumberOfLosingTrades)
	}

	return result
}
