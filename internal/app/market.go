package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/cache"
)

// Market serves mandi price quotes through the cache gateway and synthesizes
// a short price history around the latest modal price. A nil client puts the
// service in offline mode with representative sample prices.
type Market struct {
	cache        *cache.Gateway
	client       PriceClient
	defaultState string
	defaultCrop  string
	now          func() time.Time
}

// NewMarket creates the market price service.
func NewMarket(gw *cache.Gateway, client PriceClient, defaultState, defaultCrop string) *Market {
	return &Market{
		cache:        gw,
		client:       client,
		defaultState: defaultState,
		defaultCrop:  defaultCrop,
		now:          time.Now,
	}
}

// Quote returns the latest price for a commodity in a state, cached per the
// price TTL, with a synthesized 7-day history attached.
func (s *Market) Quote(ctx context.Context, state, commodity string) (*krishi.MarketQuote, error) {
	state = normalizeParam(state, s.defaultState)
	commodity = normalizeParam(commodity, s.defaultCrop)

	var q krishi.MarketQuote
	if s.client == nil {
		q = offlineQuote(state, commodity)
	} else {
		key := cache.Key{
			Source: SourcePrice,
			Param:  strings.ToLower(state) + "|" + strings.ToLower(commodity),
		}
		res, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
			quote, err := s.client.LatestPrice(ctx, state, commodity)
			if err != nil {
				return nil, err
			}
			return json.Marshal(quote)
		})
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(res.Payload, &q); err != nil {
			return nil, fmt.Errorf("decode cached quote: %w", err)
		}
		q.Cached = res.Cached
		q.Stale = res.Stale
	}

	q.History = s.priceHistory(q.ModalPrice)
	return &q, nil
}

// priceHistory synthesizes the past week of prices by jittering the modal
// price within +-10%, ending at today's actual value.
func (s *Market) priceHistory(modal float64) []krishi.PricePoint {
	const days = 7
	today := s.now()
	points := make([]krishi.PricePoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		price := modal
		if i > 0 {
			jitter := (rand.Float64()*2 - 1) * 0.10
			price = modal * (1 + jitter)
		}
		points = append(points, krishi.PricePoint{
			Date:  today.AddDate(0, 0, -i).Format("02 Jan"),
			Price: int(price),
		})
	}
	return points
}

func offlineQuote(state, commodity string) krishi.MarketQuote {
	base := map[string]float64{
		"tomato":  1600,
		"onion":   1400,
		"potato":  1100,
		"wheat":   2300,
		"cotton":  7000,
		"soybean": 4500,
	}
	modal, ok := base[strings.ToLower(commodity)]
	if !ok {
		modal = 2000
	}
	return krishi.MarketQuote{
		Commodity:   titleCase(commodity),
		State:       titleCase(state),
		Market:      "Local Mandi",
		ModalPrice:  modal,
		MinPrice:    modal * 0.85,
		MaxPrice:    modal * 1.15,
		Unit:        "Quintal",
		ArrivalDate: time.Now().Format("02/01/2006"),
	}
}
