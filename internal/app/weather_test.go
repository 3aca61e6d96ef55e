package app

import (
	"context"
	"errors"
	"testing"
	"time"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/cache"
)

func TestWeatherCurrentCachesByCity(t *testing.T) {
	t.Parallel()
	client := &fakeWeatherClient{report: &krishi.WeatherReport{City: "Pune", Temp: 28, Condition: "Clear"}}
	svc := NewWeather(newTestCache(t), client, "Pune")
	ctx := context.Background()

	rep, err := svc.Current(ctx, "Pune")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Temp != 28 || rep.Cached {
		t.Errorf("first call rep=%+v", rep)
	}
	time.Sleep(50 * time.Millisecond)

	// Same city, different case: one upstream call total.
	rep, err = svc.Current(ctx, "PUNE")
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Cached {
		t.Error("second call should be served from cache")
	}
	if client.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", client.calls)
	}
}

func TestWeatherCurrentDefaultsCity(t *testing.T) {
	t.Parallel()
	client := &fakeWeatherClient{report: &krishi.WeatherReport{City: "Pune", Temp: 30}}
	svc := NewWeather(newTestCache(t), client, "Pune")

	rep, err := svc.Current(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	if rep.City != "Pune" {
		t.Errorf("city = %q, want default Pune", rep.City)
	}
}

func TestWeatherCurrentUpstreamFailure(t *testing.T) {
	t.Parallel()
	client := &fakeWeatherClient{report: &krishi.WeatherReport{City: "Pune", Temp: 28}}
	svc := NewWeather(newTestCache(t), client, "Pune")
	ctx := context.Background()

	if _, err := svc.Current(ctx, "pune"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	// With no cached entry and a failing upstream, the error surfaces.
	svc.cache.Invalidate(cache.Key{Source: SourceWeather, Param: "pune"})
	client.err = errors.New("timeout")
	_, err := svc.Current(ctx, "pune")
	if !errors.Is(err, krishi.ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestWeatherOfflineMode(t *testing.T) {
	t.Parallel()
	svc := NewWeather(newTestCache(t), nil, "Pune")

	rep, err := svc.Current(context.Background(), "nashik")
	if err != nil {
		t.Fatal(err)
	}
	if rep.City != "Nashik" || rep.Condition == "" {
		t.Errorf("offline report = %+v", rep)
	}

	fc, err := svc.Outlook(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Days) != 5 {
		t.Errorf("offline forecast days = %d, want 5", len(fc.Days))
	}
}

func TestOutlook(t *testing.T) {
	t.Parallel()
	client := &fakeWeatherClient{fc: &krishi.Forecast{
		City: "Pune",
		Days: []krishi.ForecastDay{{Date: "2025-06-01", Temp: 29, Condition: "Clouds"}},
	}}
	svc := NewWeather(newTestCache(t), client, "Pune")

	fc, err := svc.Outlook(context.Background(), "pune")
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Days) != 1 || fc.Days[0].Condition != "Clouds" {
		t.Errorf("forecast = %+v", fc)
	}
}
