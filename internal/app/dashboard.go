package app

import (
	"context"
	"log/slog"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/storage"
)

// Dashboard aggregates the farm overview: weather, the default commodity
// quote, financial summary, crop list, and the daily insight. Each section
// degrades independently so one failing upstream never blanks the page.
type Dashboard struct {
	weather  *Weather
	market   *Market
	advisor  *Advisor
	crops    storage.CropStore
	expenses storage.ExpenseStore
	defCity  string
	defCrop  string
	log      *slog.Logger
}

// NewDashboard creates the dashboard service.
func NewDashboard(weather *Weather, market *Market, advisor *Advisor,
	crops storage.CropStore, expenses storage.ExpenseStore,
	defCity, defCrop string, log *slog.Logger) *Dashboard {
	return &Dashboard{
		weather:  weather,
		market:   market,
		advisor:  advisor,
		crops:    crops,
		expenses: expenses,
		defCity:  defCity,
		defCrop:  defCrop,
		log:      log,
	}
}

// Overview is the aggregated dashboard payload. Sections that could not be
// loaded are null.
type Overview struct {
	Weather *krishi.WeatherReport  `json:"weather"`
	Price   *krishi.MarketQuote    `json:"price"`
	Summary *krishi.ExpenseSummary `json:"summary"`
	Crops   []*krishi.Crop         `json:"crops"`
	Insight string                 `json:"insight,omitempty"`
}

// Load builds the overview for one user. city and crop fall back to the
// configured defaults when empty.
func (s *Dashboard) Load(ctx context.Context, userID int64, city, crop string) *Overview {
	city = normalizeParam(city, s.defCity)
	crop = normalizeParam(crop, s.defCrop)

	var o Overview

	if rep, err := s.weather.Current(ctx, city); err == nil {
		o.Weather = rep
	} else {
		s.log.WarnContext(ctx, "dashboard weather unavailable", slog.String("city", city), slog.Any("error", err))
	}

	if q, err := s.market.Quote(ctx, "", crop); err == nil {
		o.Price = q
	} else {
		s.log.WarnContext(ctx, "dashboard price unavailable", slog.String("crop", crop), slog.Any("error", err))
	}

	if sum, err := s.expenses.SummarizeExpenses(ctx, userID); err == nil {
		o.Summary = sum
	} else {
		s.log.WarnContext(ctx, "dashboard summary unavailable", slog.Any("error", err))
	}

	if crops, err := s.crops.ListCrops(ctx, userID); err == nil {
		o.Crops = crops
	} else {
		s.log.WarnContext(ctx, "dashboard crops unavailable", slog.Any("error", err))
	}

	if tip, err := s.advisor.Insight(ctx, city, crop); err == nil {
		o.Insight = tip
	}

	return &o
}
