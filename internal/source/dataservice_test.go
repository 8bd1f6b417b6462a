package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wavesplatform/push-notifications/internal/model"
)

func TestCurrentHeight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/height" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"height": 3456789}`))
	}))
	defer srv.Close()

	ds, err := NewDataService(srv.URL)
	if err != nil {
		t.Fatalf("NewDataService: %v", err)
	}
	h, err := ds.CurrentHeight(context.Background())
	if err != nil {
		t.Fatalf("CurrentHeight: %v", err)
	}
	if h != 3456789 {
		t.Fatalf("height = %d, want 3456789", h)
	}
}

func TestObservations(t *testing.T) {
	var gotHeight, gotPairs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prices" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		gotHeight = r.URL.Query().Get("height")
		gotPairs = r.URL.Query().Get("pairs")
		w.Write([]byte(`[
			{"amount_asset_id": "WAVES", "price_asset_id": "USDN", "price": "2.45"},
			{"amount_asset_id": "BTC", "price_asset_id": "USDN", "price": "64000.5"}
		]`))
	}))
	defer srv.Close()

	ds, err := NewDataService(srv.URL)
	if err != nil {
		t.Fatalf("NewDataService: %v", err)
	}
	pairs := []model.AssetPair{
		{AmountAsset: "WAVES", PriceAsset: "USDN"},
		{AmountAsset: "BTC", PriceAsset: "USDN"},
	}
	obs, err := ds.Observations(context.Background(), 100, pairs)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}

	if gotHeight != "100" {
		t.Errorf("height param = %q, want 100", gotHeight)
	}
	if gotPairs != "WAVES/USDN,BTC/USDN" {
		t.Errorf("pairs param = %q", gotPairs)
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations, want 2", len(obs))
	}
	if obs[0].Pair.AmountAsset != "WAVES" || obs[0].Price.String() != "2.45" {
		t.Errorf("unexpected first observation: %+v", obs[0])
	}
	if obs[1].Price.String() != "64000.5" {
		t.Errorf("unexpected second observation: %+v", obs[1])
	}
}

func TestObservationsNoPairs(t *testing.T) {
	ds, err := NewDataService("http://unused.invalid")
	if err != nil {
		t.Fatalf("NewDataService: %v", err)
	}
	obs, err := ds.Observations(context.Background(), 5, nil)
	if err != nil {
		t.Fatalf("Observations: %v", err)
	}
	if len(obs) != 0 {
		t.Fatalf("expected no observations, got %d", len(obs))
	}
}

func TestLastPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pairs" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`[{"amount_asset_id": "WAVES", "price_asset_id": "USDN", "last_price": "2.31"}]`))
	}))
	defer srv.Close()

	ds, err := NewDataService(srv.URL)
	if err != nil {
		t.Fatalf("NewDataService: %v", err)
	}
	obs, err := ds.LastPrices(context.Background())
	if err != nil {
		t.Fatalf("LastPrices: %v", err)
	}
	if len(obs) != 1 || obs[0].Price.String() != "2.31" {
		t.Fatalf("unexpected observations: %+v", obs)
	}
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ds, err := NewDataService(srv.URL)
	if err != nil {
		t.Fatalf("NewDataService: %v", err)
	}
	if _, err := ds.CurrentHeight(context.Background()); err == nil {
		t.Fatal("expected error on 502 response")
	}
}
