package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/cache"
)

// Weather serves current conditions and forecasts through the cache gateway.
// A nil client puts the service in offline mode, serving representative
// sample data so the rest of the app keeps working without an API key.
type Weather struct {
	cache       *cache.Gateway
	client      WeatherClient
	defaultCity string
}

// NewWeather creates the weather service.
func NewWeather(gw *cache.Gateway, client WeatherClient, defaultCity string) *Weather {
	return &Weather{cache: gw, client: client, defaultCity: defaultCity}
}

// Current returns the weather for a city, cached per the weather TTL.
func (s *Weather) Current(ctx context.Context, city string) (*krishi.WeatherReport, error) {
	city = normalizeParam(city, s.defaultCity)
	if s.client == nil {
		return offlineWeather(city), nil
	}

	key := cache.Key{Source: SourceWeather, Param: strings.ToLower(city)}
	res, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		rep, err := s.client.Current(ctx, city)
		if err != nil {
			return nil, err
		}
		return json.Marshal(rep)
	})
	if err != nil {
		return nil, err
	}

	var rep krishi.WeatherReport
	if err := json.Unmarshal(res.Payload, &rep); err != nil {
		return nil, fmt.Errorf("decode cached weather: %w", err)
	}
	rep.Cached = res.Cached
	rep.Stale = res.Stale
	return &rep, nil
}

// Outlook returns the multi-day forecast for a city, cached per the
// forecast TTL.
func (s *Weather) Outlook(ctx context.Context, city string) (*krishi.Forecast, error) {
	city = normalizeParam(city, s.defaultCity)
	if s.client == nil {
		return offlineForecast(city), nil
	}

	key := cache.Key{Source: SourceForecast, Param: strings.ToLower(city)}
	res, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		fc, err := s.client.Forecast(ctx, city)
		if err != nil {
			return nil, err
		}
		return json.Marshal(fc)
	})
	if err != nil {
		return nil, err
	}

	var fc krishi.Forecast
	if err := json.Unmarshal(res.Payload, &fc); err != nil {
		return nil, fmt.Errorf("decode cached forecast: %w", err)
	}
	fc.Cached = res.Cached
	fc.Stale = res.Stale
	return &fc, nil
}

func offlineWeather(city string) *krishi.WeatherReport {
	return &krishi.WeatherReport{
		City:      titleCase(city),
		Temp:      28,
		Condition: "Clear",
		Humidity:  65,
		WindSpeed: 3.5,
	}
}

func offlineForecast(city string) *krishi.Forecast {
	conditions := []string{"Clear", "Clouds", "Rain", "Clouds", "Clear"}
	days := make([]krishi.ForecastDay, len(conditions))
	for i, cond := range conditions {
		days[i] = krishi.ForecastDay{
			Date:      time.Now().AddDate(0, 0, i).Format("2006-01-02"),
			Temp:      27 + float64(i%3),
			TempMin:   22,
			TempMax:   33,
			Condition: cond,
			Humidity:  60,
		}
	}
	return &krishi.Forecast{City: titleCase(city), Days: days}
}
