// Package source is the client for the market data service the price
// processor polls: a height-indexed API answering "current height" and
// "price observations as of height H for these pairs".
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wavesplatform/push-notifications/internal/model"
)

type Observation struct {
	Pair  model.AssetPair
	Price decimal.Decimal
}

type DataService struct {
	baseURL string
	client  *http.Client
}

func NewDataService(baseURL string) (*DataService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("data service url required")
	}
	return &DataService{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (d *DataService) CurrentHeight(ctx context.Context) (uint64, error) {
	var out struct {
		Height uint64 `json:"height"`
	}
	if err := d.get(ctx, "/height", nil, &out); err != nil {
		return 0, err
	}
	return out.Height, nil
}

// LastPrices returns the last known price per trading pair; the price
// processor seeds its previous-price cache from it at startup.
func (d *DataService) LastPrices(ctx context.Context) ([]Observation, error) {
	var out []pairDTO
	if err := d.get(ctx, "/pairs", nil, &out); err != nil {
		return nil, err
	}
	return toObservations(out, "last_price")
}

// Observations returns the close prices of the given pairs as of the given
// height. Pairs with no trades at that height are absent from the result.
func (d *DataService) Observations(ctx context.Context, height uint64, pairs []model.AssetPair) ([]Observation, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(pairs))
	for i, p := range pairs {
		ids[i] = p.String()
	}
	q := url.Values{
		"height": {strconv.FormatUint(height, 10)},
		"pairs":  {strings.Join(ids, ",")},
	}

	var out []pairDTO
	if err := d.get(ctx, "/prices", q, &out); err != nil {
		return nil, err
	}
	return toObservations(out, "price")
}

type pairDTO struct {
	AmountAssetID string          `json:"amount_asset_id"`
	PriceAssetID  string          `json:"price_asset_id"`
	LastPrice     decimal.Decimal `json:"last_price"`
	Price         decimal.Decimal `json:"price"`
}

func toObservations(dtos []pairDTO, field string) ([]Observation, error) {
	obs := make([]Observation, 0, len(dtos))
	for _, dto := range dtos {
		price := dto.Price
		if field == "last_price" {
			price = dto.LastPrice
		}
		obs = append(obs, Observation{
			Pair: model.AssetPair{
				AmountAsset: model.Asset(dto.AmountAssetID),
				PriceAsset:  model.Asset(dto.PriceAssetID),
			},
			Price: price,
		})
	}
	return obs, nil
}

func (d *DataService) get(ctx context.Context, path string, query url.Values, out any) error {
	u := d.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("data service request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("data service %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode data service response %s: %w", path, err)
	}
	return nil
}
