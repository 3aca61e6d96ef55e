package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/krishihq/krishi/internal/upstream"
)

const currentBody = `{
	"name": "Pune",
	"main": {"temp": 28.46, "humidity": 61},
	"weather": [{"main": "Clouds", "description": "scattered clouds"}],
	"wind": {"speed": 3.27}
}`

const forecastBody = `{
	"city": {"name": "Pune"},
	"list": [
		{"dt_txt": "2025-06-01 09:00:00", "main": {"temp": 27, "temp_min": 25, "temp_max": 29, "humidity": 60}, "weather": [{"main": "Clear"}]},
		{"dt_txt": "2025-06-01 12:00:00", "main": {"temp": 31, "temp_min": 29, "temp_max": 32, "humidity": 50}, "weather": [{"main": "Clouds"}]},
		{"dt_txt": "2025-06-01 15:00:00", "main": {"temp": 29, "temp_min": 27, "temp_max": 30, "humidity": 55}, "weather": [{"main": "Rain"}]},
		{"dt_txt": "2025-06-02 09:00:00", "main": {"temp": 26, "temp_min": 24, "temp_max": 27, "humidity": 70}, "weather": [{"main": "Rain"}]}
	]
}`

func TestCurrent(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/weather" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "pune" {
			t.Errorf("q = %q, want pune", q)
		}
		if k := r.URL.Query().Get("appid"); k != "test-key" {
			t.Errorf("appid = %q", k)
		}
		if u := r.URL.Query().Get("units"); u != "metric" {
			t.Errorf("units = %q", u)
		}
		w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, srv.Client())
	got, err := c.Current(context.Background(), "pune")
	if err != nil {
		t.Fatal(err)
	}
	if got.City != "Pune" {
		t.Errorf("city = %q, want Pune", got.City)
	}
	if got.Temp != 28.5 {
		t.Errorf("temp = %v, want 28.5", got.Temp)
	}
	if got.Condition != "Clouds" {
		t.Errorf("condition = %q", got.Condition)
	}
	if got.Humidity != 61 {
		t.Errorf("humidity = %v", got.Humidity)
	}
	if got.WindSpeed != 3.3 {
		t.Errorf("wind = %v, want 3.3", got.WindSpeed)
	}
}

func TestForecastAggregation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(forecastBody))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, srv.Client())
	got, err := c.Forecast(context.Background(), "pune")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(got.Days))
	}

	day := got.Days[0]
	if day.Date != "2025-06-01" {
		t.Errorf("date = %q", day.Date)
	}
	if day.Temp != 29 { // mean of 27, 31, 29
		t.Errorf("temp = %v, want 29", day.Temp)
	}
	if day.TempMin != 25 || day.TempMax != 32 {
		t.Errorf("min/max = %v/%v, want 25/32", day.TempMin, day.TempMax)
	}
	if day.Condition != "Clouds" { // middle slot of three
		t.Errorf("condition = %q, want Clouds", day.Condition)
	}
	if day.Humidity != 55 {
		t.Errorf("humidity = %v, want 55", day.Humidity)
	}

	if got.Days[1].Date != "2025-06-02" || got.Days[1].Condition != "Rain" {
		t.Errorf("day 2 = %+v", got.Days[1])
	}
}

func TestCurrentRejectsMalformedBody(t *testing.T) {
	t.Parallel()
	bodies := map[string]string{
		"captive portal": `<html><body>Please sign in to the network</body></html>`,
		"embedded cod":   `{"cod":401,"message":"Invalid API key"}`,
		"missing fields": `{"name":"Pune"}`,
	}
	for name, body := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		c := New("test-key", srv.URL, srv.Client())
		if _, err := c.Current(context.Background(), "pune"); err == nil {
			t.Errorf("%s: expected error for 200 with body %q", name, body)
		}
		srv.Close()
	}
}

func TestCurrentUpstreamError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, srv.Client())
	_, err := c.Current(context.Background(), "atlantis")
	if err == nil {
		t.Fatal("expected error")
	}
	apiErr, ok := err.(*upstream.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *upstream.APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d", apiErr.StatusCode)
	}
}

func TestServerErrorRetried(t *testing.T) {
	t.Parallel()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(currentBody))
	}))
	defer srv.Close()

	c := New("test-key", srv.URL, srv.Client())
	got, err := c.Current(context.Background(), "pune")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if got.Temp != 28.5 {
		t.Errorf("temp = %v", got.Temp)
	}
}
