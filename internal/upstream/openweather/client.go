// Package openweather implements the OpenWeather client for current
// conditions and the 5-day forecast.
package openweather

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/upstream"
)

const source = "openweather"

// Client calls the OpenWeather REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates an OpenWeather Client. If baseURL is empty the public API
// endpoint is used.
func New(apiKey, baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org/data/2.5"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// Current returns the current weather for a city.
func (c *Client) Current(ctx context.Context, city string) (*krishi.WeatherReport, error) {
	body, err := upstream.GetJSON(ctx, c.http, source, c.url("/weather", city))
	if err != nil {
		return nil, err
	}

	r := gjson.ParseBytes(body)
	if err := checkPayload(r, city); err != nil {
		return nil, err
	}
	return &krishi.WeatherReport{
		City:      firstNonEmpty(r.Get("name").String(), city),
		Temp:      round1(r.Get("main.temp").Float()),
		Condition: r.Get("weather.0.main").String(),
		Humidity:  r.Get("main.humidity").Float(),
		WindSpeed: round1(r.Get("wind.speed").Float()),
	}, nil
}

// Forecast returns a 5-day outlook for a city, aggregating the API's 3-hour
// slots into one entry per day: average temperature and humidity, the min
// and max across slots, and the condition of the middle slot.
func (c *Client) Forecast(ctx context.Context, city string) (*krishi.Forecast, error) {
	body, err := upstream.GetJSON(ctx, c.http, source, c.url("/forecast", city))
	if err != nil {
		return nil, err
	}

	r := gjson.ParseBytes(body)
	if cod := r.Get("cod"); cod.Exists() && cod.Int() != 200 {
		return nil, fmt.Errorf("%s: error cod %s for %q", source, cod.String(), city)
	}
	type bucket struct {
		temps      []float64
		humidities []float64
		conditions []string
		tempMin    float64
		tempMax    float64
	}
	buckets := make(map[string]*bucket)
	var order []string

	r.Get("list").ForEach(func(_, slot gjson.Result) bool {
		// dt_txt is "2025-06-01 12:00:00"; the date part keys the day.
		date, _, ok := strings.Cut(slot.Get("dt_txt").String(), " ")
		if !ok || date == "" {
			return true
		}
		b, exists := buckets[date]
		if !exists {
			b = &bucket{tempMin: math.MaxFloat64, tempMax: -math.MaxFloat64}
			buckets[date] = b
			order = append(order, date)
		}
		b.temps = append(b.temps, slot.Get("main.temp").Float())
		b.humidities = append(b.humidities, slot.Get("main.humidity").Float())
		b.conditions = append(b.conditions, slot.Get("weather.0.main").String())
		b.tempMin = min(b.tempMin, slot.Get("main.temp_min").Float())
		b.tempMax = max(b.tempMax, slot.Get("main.temp_max").Float())
		return true
	})

	if len(order) == 0 {
		return nil, fmt.Errorf("%s: empty forecast for %q", source, city)
	}
	sort.Strings(order)
	if len(order) > 5 {
		order = order[:5]
	}

	days := make([]krishi.ForecastDay, 0, len(order))
	for _, date := range order {
		b := buckets[date]
		days = append(days, krishi.ForecastDay{
			Date:      date,
			Temp:      round1(mean(b.temps)),
			TempMin:   round1(b.tempMin),
			TempMax:   round1(b.tempMax),
			Condition: b.conditions[len(b.conditions)/2],
			Humidity:  round1(mean(b.humidities)),
		})
	}

	return &krishi.Forecast{
		City: firstNonEmpty(r.Get("city.name").String(), city),
		Days: days,
	}, nil
}

// checkPayload rejects bodies that are not a weather reading: an embedded
// error cod, or a 200 that is not weather JSON at all (captive portals and
// misbehaving proxies return HTML with a 200). Accepting such a body would
// store a zero-value reading that then serves from the cache for hours.
func checkPayload(r gjson.Result, city string) error {
	if cod := r.Get("cod"); cod.Exists() && cod.Int() != 200 {
		return fmt.Errorf("%s: error cod %s for %q", source, cod.String(), city)
	}
	if !r.Get("main.temp").Exists() || !r.Get("weather.0.main").Exists() {
		return fmt.Errorf("%s: malformed payload for %q", source, city)
	}
	return nil
}

func (c *Client) url(path, city string) string {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	return c.baseURL + path + "?" + q.Encode()
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
