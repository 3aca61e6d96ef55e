package agmarknet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const recordsBody = `{
	"records": [
		{"state": "Maharashtra", "district": "Pune", "market": "Pune Market", "commodity": "Tomato",
		 "arrival_date": "30/08/2026", "min_price": "1400", "max_price": "2000", "modal_price": "1650"},
		{"state": "Maharashtra", "district": "Nashik", "market": "Lasalgaon", "commodity": "Tomato",
		 "arrival_date": "28/08/2026", "min_price": "1200", "max_price": "1800", "modal_price": "1500"}
	]
}`

func TestLatestPrice(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api-key") != "test-key" {
			t.Errorf("api-key = %q", q.Get("api-key"))
		}
		if q.Get("format") != "json" {
			t.Errorf("format = %q", q.Get("format"))
		}
		if q.Get("filters[state]") != "Maharashtra" {
			t.Errorf("state filter = %q", q.Get("filters[state]"))
		}
		if q.Get("filters[commodity]") != "Tomato" {
			t.Errorf("commodity filter = %q", q.Get("filters[commodity]"))
		}
		w.Write([]byte(recordsBody))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, srv.Client())
	got, err := c.LatestPrice(context.Background(), "Maharashtra", "Tomato")
	if err != nil {
		t.Fatal(err)
	}
	// The first record is the latest arrival.
	if got.Market != "Pune Market" {
		t.Errorf("market = %q, want Pune Market", got.Market)
	}
	if got.ModalPrice != 1650 || got.MinPrice != 1400 || got.MaxPrice != 2000 {
		t.Errorf("prices = %v/%v/%v", got.MinPrice, got.ModalPrice, got.MaxPrice)
	}
	if got.Unit != "Quintal" {
		t.Errorf("unit = %q", got.Unit)
	}
	if got.ArrivalDate != "30/08/2026" {
		t.Errorf("arrival = %q", got.ArrivalDate)
	}
}

func TestLatestPriceNoRecords(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records": []}`))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, srv.Client())
	if _, err := c.LatestPrice(context.Background(), "Maharashtra", "Saffron"); err == nil {
		t.Fatal("expected error for empty records")
	}
}
