package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/krishihq/krishi/internal/cache"
	"github.com/krishihq/krishi/internal/telemetry"
)

var tracer = telemetry.Tracer("krishi/advisor")

const advisorSystemPrompt = `You are Krishi Mitra, an assistant for Indian farmers.
Answer briefly and practically. Use simple language. Prices are rupees per
quintal and temperatures are Celsius. When data is included in the prompt,
base your answer on it.`

// Intent names recognized by the advisor.
const (
	IntentWeather    = "weather"
	IntentPrice      = "price"
	IntentSoil       = "soil"
	IntentFinance    = "finance"
	IntentCropAdvice = "crop_advice"
	IntentGeneral    = "general"
)

// ChatReply is the advisor's answer to one farmer message.
type ChatReply struct {
	Reply   string `json:"reply"`
	Intent  string `json:"intent"`
	Offline bool   `json:"offline,omitempty"`
}

// Advisor answers farmer questions. It detects the question's intent,
// pulls live weather or price data for context, and asks the LLM for the
// final answer. When the LLM is unreachable or not configured it degrades
// to data-driven canned replies rather than failing.
type Advisor struct {
	cache   *cache.Gateway
	llm     LLMClient
	weather *Weather
	market  *Market
	defCity string
	defCrop string
	log     *slog.Logger
}

// NewAdvisor creates the advisor service. llm may be nil for offline mode.
func NewAdvisor(gw *cache.Gateway, llm LLMClient, weather *Weather, market *Market, defCity, defCrop string, log *slog.Logger) *Advisor {
	return &Advisor{
		cache:   gw,
		llm:     llm,
		weather: weather,
		market:  market,
		defCity: defCity,
		defCrop: defCrop,
		log:     log,
	}
}

// Chat answers one message. Replies are not cached: every message is a
// distinct prompt.
func (s *Advisor) Chat(ctx context.Context, message string) (*ChatReply, error) {
	intent := detectIntent(message)
	city := normalizeParam(extractCity(message), s.defCity)
	crop := normalizeParam(extractCrop(message), s.defCrop)

	dataCtx := s.gatherContext(ctx, intent, city, crop)

	if s.llm != nil {
		prompt := message
		if dataCtx != "" {
			prompt = "Data:\n" + dataCtx + "\n\nQuestion: " + message
		}
		llmCtx, span := tracer.Start(ctx, "llm.complete")
		span.SetAttributes(attribute.String("intent", intent))
		reply, err := s.llm.Complete(llmCtx, advisorSystemPrompt, prompt)
		span.End()
		if err == nil {
			return &ChatReply{Reply: reply, Intent: intent}, nil
		}
		s.log.WarnContext(ctx, "llm unavailable, using offline reply",
			slog.String("intent", intent), slog.Any("error", err))
	}

	return &ChatReply{
		Reply:   s.offlineReply(intent, city, crop, dataCtx),
		Intent:  intent,
		Offline: true,
	}, nil
}

// Insight returns a short daily tip for a city and crop, cached per the
// insight TTL so the dashboard does not hit the LLM on every load.
func (s *Advisor) Insight(ctx context.Context, city, crop string) (string, error) {
	city = normalizeParam(city, s.defCity)
	crop = normalizeParam(crop, s.defCrop)

	if s.llm == nil {
		return offlineInsight(crop), nil
	}

	key := cache.Key{
		Source: SourceInsight,
		Param:  strings.ToLower(city) + "|" + strings.ToLower(crop),
	}
	res, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		dataCtx := s.gatherContext(ctx, IntentCropAdvice, city, crop)
		prompt := fmt.Sprintf("Give one actionable tip for a farmer growing %s near %s today.", crop, city)
		if dataCtx != "" {
			prompt = "Data:\n" + dataCtx + "\n\n" + prompt
		}
		llmCtx, span := tracer.Start(ctx, "llm.insight")
		tip, err := s.llm.Complete(llmCtx, advisorSystemPrompt, prompt)
		span.End()
		if err != nil {
			return nil, err
		}
		return []byte(tip), nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "insight unavailable, using offline tip", slog.Any("error", err))
		return offlineInsight(crop), nil
	}
	return string(res.Payload), nil
}

// gatherContext fetches the external data relevant to an intent and formats
// it for inclusion in the LLM prompt. Fetch failures degrade to an empty
// section rather than failing the chat.
func (s *Advisor) gatherContext(ctx context.Context, intent, city, crop string) string {
	var b strings.Builder
	switch intent {
	case IntentWeather, IntentCropAdvice, IntentGeneral:
		if rep, err := s.weather.Current(ctx, city); err == nil {
			fmt.Fprintf(&b, "Weather in %s: %.1f C, %s, humidity %.0f%%.\n",
				rep.City, rep.Temp, rep.Condition, rep.Humidity)
		}
	}
	switch intent {
	case IntentPrice, IntentCropAdvice, IntentFinance:
		if q, err := s.market.Quote(ctx, "", crop); err == nil {
			fmt.Fprintf(&b, "Mandi price for %s: modal Rs %.0f/%s (min %.0f, max %.0f) at %s.\n",
				q.Commodity, q.ModalPrice, q.Unit, q.MinPrice, q.MaxPrice, q.Market)
		}
	}
	return strings.TrimSpace(b.String())
}

// offlineReply builds a deterministic answer from whatever data was
// gathered, so the chatbot stays useful without the LLM.
func (s *Advisor) offlineReply(intent, city, crop, dataCtx string) string {
	if dataCtx != "" {
		switch intent {
		case IntentWeather:
			return "Here is the latest weather I have:\n" + dataCtx
		case IntentPrice:
			return "Here are the latest mandi prices I have:\n" + dataCtx
		}
	}
	switch intent {
	case IntentWeather:
		return fmt.Sprintf("I could not reach the weather service for %s right now. Please try again shortly.", titleCase(city))
	case IntentPrice:
		return fmt.Sprintf("I could not fetch mandi prices for %s right now. Please try again shortly.", titleCase(crop))
	case IntentSoil:
		return "For healthy soil, test pH every season. Most crops do best between pH 6.0 and 7.5. Add compost to improve structure and water retention."
	case IntentFinance:
		return "Track every farm income and expense in the records section. Reviewing your profit per crop helps decide what to sow next season."
	case IntentCropAdvice:
		return fmt.Sprintf("For %s: water early morning, scout for pests weekly, and avoid waterlogging after heavy rain.", titleCase(crop))
	default:
		return "I can help with weather, mandi prices, soil health, crop advice, and farm finances. What would you like to know?"
	}
}

func offlineInsight(crop string) string {
	return fmt.Sprintf("Inspect your %s for early signs of pest damage this week and irrigate in the early morning to reduce evaporation loss.", strings.ToLower(crop))
}

var intentKeywords = []struct {
	intent string
	words  []string
}{
	{IntentWeather, []string{"weather", "rain", "temperature", "humidity", "forecast", "wind", "hot", "cold"}},
	{IntentPrice, []string{"price", "mandi", "market", "rate", "sell", "quintal"}},
	{IntentSoil, []string{"soil", "ph", "nitrogen", "phosphorus", "potassium", "fertilizer", "fertiliser", "nutrient"}},
	{IntentFinance, []string{"expense", "income", "profit", "loss", "loan", "cost", "money", "spent"}},
	{IntentCropAdvice, []string{"crop", "sow", "plant", "harvest", "pest", "disease", "seed", "irrigat", "grow"}},
}

// detectIntent classifies a message by keyword. Earlier entries win, so a
// question mentioning both rain and sowing is treated as a weather question.
func detectIntent(message string) string {
	msg := strings.ToLower(message)
	for _, group := range intentKeywords {
		for _, w := range group.words {
			if strings.Contains(msg, w) {
				return group.intent
			}
		}
	}
	return IntentGeneral
}

var knownCities = []string{
	"pune", "mumbai", "nashik", "nagpur", "aurangabad", "solapur", "kolhapur",
	"delhi", "jaipur", "lucknow", "bhopal", "indore", "ahmedabad", "surat",
	"bengaluru", "bangalore", "hyderabad", "chennai", "kolkata", "patna",
}

func extractCity(message string) string {
	msg := strings.ToLower(message)
	for _, city := range knownCities {
		if strings.Contains(msg, city) {
			return city
		}
	}
	return ""
}

var knownCrops = []string{
	"tomato", "onion", "potato", "wheat", "rice", "paddy", "cotton", "soybean",
	"sugarcane", "maize", "chilli", "brinjal", "okra", "banana", "grapes", "mango",
}

func extractCrop(message string) string {
	msg := strings.ToLower(message)
	for _, crop := range knownCrops {
		if strings.Contains(msg, crop) {
			return crop
		}
	}
	return ""
}
