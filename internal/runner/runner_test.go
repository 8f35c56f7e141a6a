package runner

import (
	"context"
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/detect"
	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
)

type fakeMetadata struct {
	markets map[string]MarketMetadata
}

func (f fakeMetadata) FetchMarket(ctx context.Context, coin string) (MarketMetadata, error) {
	return f.markets[coin], nil
}

type fakeBooks struct {
	books map[string]orderbook.Book
}

func (f fakeBooks) Book(tokenID string) (orderbook.Book, bool) {
	b, ok := f.books[tokenID]
	return b, ok
}

type fakeSubscriber struct{ subscribed []string }

func (f *fakeSubscriber) Subscribe(tokenIDs []string) { f.subscribed = append(f.subscribed, tokenIDs...) }

func bookWith(assetID string, askPrice float64) orderbook.Book {
	b := orderbook.Book{AssetID: assetID}
	b.ApplySnapshot(
		[]orderbook.Level{{Price: money.NewFromFloat(0.30), Size: money.NewFromFloat(100)}},
		[]orderbook.Level{{Price: money.NewFromFloat(askPrice), Size: money.NewFromFloat(100)}},
	)
	return b
}

func TestRunnerEmitsDirectionalSignalOnQualifyingTick(t *testing.T) {
	windowStart, windowEnd := int64(0), int64(900_000)
	metadata := fakeMetadata{markets: map[string]MarketMetadata{
		"BTC": {Coin: "BTC", WindowStart: windowStart, WindowEnd: windowEnd, YesTokenID: "yes", NoTokenID: "no"},
	}}
	books := fakeBooks{books: map[string]orderbook.Book{
		"yes": bookWith("yes", 0.40),
		"no":  bookWith("no", 0.60),
	}}
	sub := &fakeSubscriber{}

	r := NewRunner(DefaultConfig([]string{"BTC"}), metadata, books, sub,
		detect.NewDirectionalDetector(detect.DefaultDirectionalConfig(), nil), nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	r.refreshMarkets(ctx)
	cancel()

	// First tick near window start anchors the reference price.
	r.ObserveSpot("BTC", money.NewFromFloat(50000), windowStart+1000)
	r.tickCoin("BTC", windowStart+1000)

	// Later tick, inside the entry sub-window, observes a displaced spot.
	nowMs := windowEnd - 5*60*1000 // 5 minutes before close
	r.ObserveSpot("BTC", money.NewFromFloat(50100), nowMs)
	r.tickCoin("BTC", nowMs)

	select {
	case sig := <-r.Signals():
		if sig.Coin != "BTC" {
			t.Fatalf("unexpected signal: %+v", sig)
		}
	default:
		t.Fatal("expected a directional signal to be emitted")
	}
	if len(sub.subscribed) != 2 {
		t.Fatalf("expected subscribe to carry both token ids, got %v", sub.subscribed)
	}
}

func TestRunnerDropsSignalOnFullChannel(t *testing.T) {
	windowStart, windowEnd := int64(0), int64(900_000)
	metadata := fakeMetadata{markets: map[string]MarketMetadata{
		"BTC": {Coin: "BTC", WindowStart: windowStart, WindowEnd: windowEnd, YesTokenID: "yes", NoTokenID: "no"},
	}}
	books := fakeBooks{books: map[string]orderbook.Book{
		"yes": bookWith("yes", 0.40),
		"no":  bookWith("no", 0.60),
	}}

	cfg := DefaultConfig([]string{"BTC"})
	cfg.SignalBuffer = 1
	r := NewRunner(cfg, metadata, books, &fakeSubscriber{},
		detect.NewDirectionalDetector(detect.DefaultDirectionalConfig(), nil), nil, nil, nil)
	r.refreshMarkets(context.Background())

	// Anchor the window's reference price before the displaced tick below.
	r.ObserveSpot("BTC", money.NewFromFloat(50000), windowStart+1000)
	r.tickCoin("BTC", windowStart+1000)

	r.signals <- &detect.DirectionalSignal{} // occupy the only slot

	nowMs := windowEnd - 5*60*1000
	r.ObserveSpot("BTC", money.NewFromFloat(50100), nowMs)
	r.tickCoin("BTC", nowMs)

	if r.DroppedCount() != 1 {
		t.Fatalf("want 1 dropped signal, got %d", r.DroppedCount())
	}
}

func TestSpotAtFindsClosestPriorObservation(t *testing.T) {
	cfg := DefaultConfig([]string{"BTC"})
	r := NewRunner(cfg, fakeMetadata{}, fakeBooks{}, &fakeSubscriber{}, nil, nil, nil, nil)
	feed := r.feedFor("BTC")

	feed.spot.Update(100, 1000)
	feed.spot.Update(110, 2000)
	feed.spot.Update(120, 3000)

	got, ok := spotAt(feed.spot, 2500)
	if !ok || got.Float64() != 110 {
		t.Fatalf("want 110 at or before 2500ms, got %v ok=%v", got, ok)
	}

	_, ok = spotAt(feed.spot, 500)
	if ok {
		t.Fatal("expected no observation before the earliest point")
	}
}
