package kalshiclient

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testPrivateKeyPEM(t *testing.T) []byte {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func TestQuoteSignsRequestAndParsesMarket(t *testing.T) {
	var gotKey, gotTS, gotSig string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("KALSHI-ACCESS-KEY")
		gotTS = r.Header.Get("KALSHI-ACCESS-TIMESTAMP")
		gotSig = r.Header.Get("KALSHI-ACCESS-SIGNATURE")
		if r.URL.Query().Get("series_ticker") != "KXBTC15M" {
			t.Fatalf("unexpected series_ticker: %s", r.URL.Query().Get("series_ticker"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"markets": []kalshiMarket{{Ticker: "KXBTC15M-26JUL31", YesBid: 48, YesAsk: 52}},
		})
	}))
	defer server.Close()

	privKey, err := LoadPrivateKey(testPrivateKeyPEM(t))
	if err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	c := NewClient(server.URL, "test-key-id", privKey)

	quote, err := c.Quote(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if gotKey != "test-key-id" || gotTS == "" || gotSig == "" {
		t.Fatalf("missing auth headers: key=%q ts=%q sig=%q", gotKey, gotTS, gotSig)
	}
	if quote.YesBid.String() != "0.48" || quote.YesAsk.String() != "0.52" {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestQuoteErrorsWhenNoOpenMarket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"markets": []kalshiMarket{}})
	}))
	defer server.Close()

	privKey, err := LoadPrivateKey(testPrivateKeyPEM(t))
	if err != nil {
		t.Fatalf("LoadPrivateKey: %v", err)
	}
	c := NewClient(server.URL, "test-key-id", privKey)

	if _, err := c.Quote(context.Background(), "BTC"); err == nil {
		t.Fatal("want error for no open market")
	}
}
