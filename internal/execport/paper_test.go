package execport

import (
	"context"
	"testing"

	"github.com/GoPolymarket/polymarket-trader/internal/money"
	"github.com/GoPolymarket/polymarket-trader/internal/orderbook"
)

func singleLevelBook(bid, ask float64) *orderbook.Book {
	b := &orderbook.Book{}
	b.ApplySnapshot(
		[]orderbook.Level{{Price: money.NewFromFloat(bid), Size: money.NewFromFloat(100000)}},
		[]orderbook.Level{{Price: money.NewFromFloat(ask), Size: money.NewFromFloat(100000)}},
	)
	return b
}

func TestPaperAdapterBuyDeductsBalanceAndFee(t *testing.T) {
	p := NewPaperAdapter(DefaultPaperConfig())
	p.SetBook("tok1", singleLevelBook(0.45, 0.50))

	receipt, err := p.PlaceOrder(context.Background(), OrderRequest{
		TokenID: "tok1",
		Side:    Buy,
		Size:    money.NewFromFloat(10),
	})
	if err != nil {
		t.Fatal(err)
	}
	if !receipt.Filled {
		t.Fatal("expected immediate fill")
	}

	bal, _ := p.GetBalance(context.Background())
	// 10 shares @ 0.50 = 5.00, fee 2% = 0.10, balance = 1000 - 5.10 = 994.90
	if bal.Float64() != 994.90 {
		t.Fatalf("want 994.90, got %v", bal.Float64())
	}
}

func TestPaperAdapterInsufficientFunds(t *testing.T) {
	p := NewPaperAdapter(PaperConfig{InitialBalanceUSDC: money.NewFromFloat(1), FeeRate: 0})
	p.SetBook("tok1", singleLevelBook(0.45, 0.50))

	_, err := p.PlaceOrder(context.Background(), OrderRequest{TokenID: "tok1", Side: Buy, Size: money.NewFromFloat(100)})
	if err != ErrInsufficientFunds {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}
}

func TestPaperAdapterShortingBlockedByDefault(t *testing.T) {
	p := NewPaperAdapter(DefaultPaperConfig())
	p.SetBook("tok1", singleLevelBook(0.45, 0.50))

	_, err := p.PlaceOrder(context.Background(), OrderRequest{TokenID: "tok1", Side: Sell, Size: money.NewFromFloat(5)})
	if err == nil {
		t.Fatal("expected short sell without inventory to fail")
	}
}

func TestPaperAdapterUnknownTokenErrors(t *testing.T) {
	p := NewPaperAdapter(DefaultPaperConfig())
	_, err := p.PlaceOrder(context.Background(), OrderRequest{TokenID: "nope", Side: Buy, Size: money.NewFromFloat(1)})
	if err == nil {
		t.Fatal("expected error for unregistered book")
	}
}

func TestPaperAdapterZeroSizeRejected(t *testing.T) {
	p := NewPaperAdapter(DefaultPaperConfig())
	_, err := p.PlaceOrder(context.Background(), OrderRequest{TokenID: "tok1", Side: Buy, Size: money.Zero})
	if err != ErrBelowMinSize {
		t.Fatalf("want ErrBelowMinSize, got %v", err)
	}
}

// TestPaperAdapterWalksMultipleAskLevels is spec.md §8 Scenario A's
// depth-walking fill: an order bigger than the top ask level must realize
// a volume-weighted price across levels instead of filling the whole size
// at the best ask.
func TestPaperAdapterWalksMultipleAskLevels(t *testing.T) {
	p := NewPaperAdapter(PaperConfig{InitialBalanceUSDC: money.NewFromFloat(1000), FeeRate: 0})
	book := &orderbook.Book{}
	book.ApplySnapshot(nil, []orderbook.Level{
		{Price: money.NewFromFloat(0.50), Size: money.NewFromFloat(100)},
		{Price: money.NewFromFloat(0.51), Size: money.NewFromFloat(200)},
		{Price: money.NewFromFloat(0.52), Size: money.NewFromFloat(300)},
	})
	p.SetBook("tok1", book)

	receipt, err := p.PlaceOrder(context.Background(), OrderRequest{TokenID: "tok1", Side: Buy, Size: money.NewFromFloat(150)})
	if err != nil {
		t.Fatal(err)
	}
	// 100 @ 0.50 + 50 @ 0.51 = 50 + 25.5 = 75.5 ⇒ vwap 75.5/150
	wantVWAP := 75.5 / 150.0
	if receipt.FillPrice.Float64() != wantVWAP {
		t.Fatalf("want fill price (vwap) %v, got %v", wantVWAP, receipt.FillPrice.Float64())
	}
	if receipt.AmountUSDC.Float64() != 75.5 {
		t.Fatalf("want amount 75.5, got %v", receipt.AmountUSDC.Float64())
	}
}

func TestPaperAdapterInsufficientDepthRejected(t *testing.T) {
	p := NewPaperAdapter(DefaultPaperConfig())
	book := &orderbook.Book{}
	book.ApplySnapshot(nil, []orderbook.Level{{Price: money.NewFromFloat(0.50), Size: money.NewFromFloat(10)}})
	p.SetBook("tok1", book)

	_, err := p.PlaceOrder(context.Background(), OrderRequest{TokenID: "tok1", Side: Buy, Size: money.NewFromFloat(50)})
	if err == nil {
		t.Fatal("expected an error when the book can't fill the full size")
	}
}
