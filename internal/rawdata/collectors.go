package rawdata

import (
	"context"
	"log/slog"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
)

// OrderBookRecord is one top-of-book snapshot for a tracked token.
type OrderBookRecord struct {
	Coin        string
	AssetID     string
	BestBid     money.Price
	BestAsk     money.Price
	BidDepth    money.Price
	AskDepth    money.Price
	TimestampMs int64
}

// FundingRecord is one Binance funding-rate observation.
type FundingRecord struct {
	Coin           string
	Symbol         string
	Rate           money.Price
	AnnualizedRate money.Price
	TimestampMs    int64
}

// LiquidationRecord is one Binance forceOrder event.
type LiquidationRecord struct {
	Coin        string
	Symbol      string
	Side        string
	Qty         money.Price
	Price       money.Price
	TimestampMs int64
}

// DepthLevels bounds how many price levels' size to sum for the recorded
// bid/ask depth.
const DepthLevels = 5

// Sink is the narrow persistence surface the batch writers flush through;
// internal/store's concrete implementation satisfies this.
type Sink interface {
	InsertOrderBookBatch(ctx context.Context, records []OrderBookRecord) error
	InsertFundingBatch(ctx context.Context, records []FundingRecord) error
	InsertLiquidationBatch(ctx context.Context, records []LiquidationRecord) error
}

// Collectors bundles the three raw-data batch writers spec.md §4.11 names.
// One set is shared across every coin; records carry their own Coin field.
type Collectors struct {
	OrderBooks   *BatchWriter[OrderBookRecord]
	Funding      *BatchWriter[FundingRecord]
	Liquidations *BatchWriter[LiquidationRecord]
}

// NewCollectors builds the three batch writers against sink.
func NewCollectors(sink Sink, logger *slog.Logger) *Collectors {
	return &Collectors{
		OrderBooks: NewBatchWriter[OrderBookRecord]("orderbook_snapshots", DefaultBufferSize, DefaultBatchSize, DefaultFlushInterval,
			func(ctx context.Context, batch []OrderBookRecord) error { return sink.InsertOrderBookBatch(ctx, batch) }, logger),
		Funding: NewBatchWriter[FundingRecord]("funding_rates", DefaultBufferSize, DefaultBatchSize, DefaultFlushInterval,
			func(ctx context.Context, batch []FundingRecord) error { return sink.InsertFundingBatch(ctx, batch) }, logger),
		Liquidations: NewBatchWriter[LiquidationRecord]("liquidations", DefaultBufferSize, DefaultBatchSize, DefaultFlushInterval,
			func(ctx context.Context, batch []LiquidationRecord) error { return sink.InsertLiquidationBatch(ctx, batch) }, logger),
	}
}

// Run drives all three batch writers until ctx is cancelled, each
// performing its own final flush on return.
func (c *Collectors) Run(ctx context.Context) error {
	errCh := make(chan error, 3)
	go func() { errCh <- c.OrderBooks.Run(ctx) }()
	go func() { errCh <- c.Funding.Run(ctx) }()
	go func() { errCh <- c.Liquidations.Run(ctx) }()

	var first error
	for i := 0; i < 3; i++ {
		if err := <-errCh; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ObserveBook snapshots a tracked book's top-of-book and summed depth into
// an OrderBookRecord and pushes it — called from the Polymarket session's
// onUpdate callback, or a periodic poll over all tracked assets.
func (c *Collectors) ObserveBook(coin, assetID string, book orderbook.Book, nowMs int64) {
	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	c.OrderBooks.Push(OrderBookRecord{
		Coin:        coin,
		AssetID:     assetID,
		BestBid:     bid.Price,
		BestAsk:     ask.Price,
		BidDepth:    book.Depth(orderbook.Bid, DepthLevels),
		AskDepth:    book.Depth(orderbook.Ask, DepthLevels),
		TimestampMs: nowMs,
	})
}

// ObserveFunding pushes one annualized funding-rate observation.
func (c *Collectors) ObserveFunding(coin, symbol string, rate, annualized money.Price, nowMs int64) {
	c.Funding.Push(FundingRecord{
		Coin:           coin,
		Symbol:         symbol,
		Rate:           rate,
		AnnualizedRate: annualized,
		TimestampMs:    nowMs,
	})
}

// ObserveLiquidation pushes one forceOrder event — called directly from
// the Binance session's liquidation callback, since these are sparse
// enough not to need polling.
func (c *Collectors) ObserveLiquidation(coin, symbol, side string, qty, price money.Price, nowMs int64) {
	c.Liquidations.Push(LiquidationRecord{
		Coin:        coin,
		Symbol:      symbol,
		Side:        side,
		Qty:         qty,
		Price:       price,
		TimestampMs: nowMs,
	})
}

// LastTick reports the most recent flush timestamp across all three
// writers, keyed by source name, for health.go's staleness computation.
func (c *Collectors) LastTick() map[string]int64 {
	return map[string]int64{
		"orderbook_snapshots": c.OrderBooks.LastFlushMs(),
		"funding_rates":       c.Funding.LastFlushMs(),
		"liquidations":        c.Liquidations.LastFlushMs(),
	}
}
