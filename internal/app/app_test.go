package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) *cache.Gateway {
	t.Helper()
	gw, err := cache.New(cache.Options{
		TTLs: map[string]time.Duration{
			SourceWeather:  time.Hour,
			SourceForecast: time.Hour,
			SourcePrice:    6 * time.Hour,
			SourceInsight:  30 * time.Minute,
		},
		MaxStale: 24 * time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}
	return gw
}

type fakeWeatherClient struct {
	report *krishi.WeatherReport
	fc     *krishi.Forecast
	err    error
	calls  int
}

func (f *fakeWeatherClient) Current(ctx context.Context, city string) (*krishi.WeatherReport, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeWeatherClient) Forecast(ctx context.Context, city string) (*krishi.Forecast, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.fc, nil
}

type fakePriceClient struct {
	quote *krishi.MarketQuote
	err   error
}

func (f *fakePriceClient) LatestPrice(ctx context.Context, state, commodity string) (*krishi.MarketQuote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}
