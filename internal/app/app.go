// Package app implements the application services: weather, market prices,
// the chat advisor, and the dashboard. Each service routes its upstream
// reads through the cache gateway so callers see fresh data when available
// and last-known-good data when a provider is down.
package app

import (
	"context"
	"strings"

	krishi "github.com/krishihq/krishi/internal"
)

// Cache source names, used as the first half of every gateway key.
const (
	SourceWeather  = "weather"
	SourceForecast = "forecast"
	SourcePrice    = "price"
	SourceInsight  = "insight"
)

// WeatherClient fetches live weather data.
type WeatherClient interface {
	Current(ctx context.Context, city string) (*krishi.WeatherReport, error)
	Forecast(ctx context.Context, city string) (*krishi.Forecast, error)
}

// PriceClient fetches live mandi prices.
type PriceClient interface {
	LatestPrice(ctx context.Context, state, commodity string) (*krishi.MarketQuote, error)
}

// LLMClient generates advisory text.
type LLMClient interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// normalizeParam lower-cases and trims a request parameter for use in a
// cache key, falling back to a default when empty.
func normalizeParam(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		v = fallback
	}
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
