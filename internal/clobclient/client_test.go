package clobclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTokenPriceParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token_ids") != "tok-123" {
			t.Fatalf("unexpected token_ids: %s", r.URL.Query().Get("token_ids"))
		}
		_ = json.NewEncoder(w).Encode(map[string]priceEntry{
			"tok-123": {Price: "0.87"},
		})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	price, err := c.TokenPrice(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("TokenPrice: %v", err)
	}
	if price.String() != "0.87" {
		t.Fatalf("want 0.87, got %s", price.String())
	}
}

func TestTokenPriceErrorsWhenMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]priceEntry{})
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if _, err := c.TokenPrice(context.Background(), "tok-missing"); err == nil {
		t.Fatal("want error for missing token price")
	}
}

func TestTokenPriceErrorsOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := NewClient(server.URL)
	if _, err := c.TokenPrice(context.Background(), "tok-123"); err == nil {
		t.Fatal("want error for 500 response")
	}
}
