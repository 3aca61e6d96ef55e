// Package krishi defines domain types and interfaces for the krishi
// farming-assistant backend. This package has no project imports -- it is
// the dependency root.
package krishi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"
)

// --- Farm records ---

// Crop is a tracked planting on a plot.
type Crop struct {
	ID              int64     `json:"id"`
	Name            string    `json:"crop"`
	Plot            string    `json:"plot"`
	SownDate        string    `json:"sown_date,omitempty"` // display format, e.g. "02 Jan 2006"
	Stage           string    `json:"stage"`
	ExpectedHarvest string    `json:"expected_harvest,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Expense is a single income or expense transaction, optionally linked to a crop.
type Expense struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Amount      float64   `json:"amount"`
	Kind        string    `json:"type"` // "income" or "expense"
	Category    string    `json:"category,omitempty"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Description string    `json:"description,omitempty"`
	CropID      *int64    `json:"crop_id,omitempty"`
	CropName    string    `json:"crop_name,omitempty"` // joined, not stored
	CreatedAt   time.Time `json:"created_at"`
}

// ExpenseSummary aggregates all transactions.
type ExpenseSummary struct {
	TotalIncome  float64 `json:"total_income"`
	TotalExpense float64 `json:"total_expense"`
	Profit       float64 `json:"profit"`
}

// SoilReport is one soil test result for a field.
type SoilReport struct {
	ID         int64     `json:"id"`
	Field      string    `json:"location"`
	PH         float64   `json:"ph"`
	Nitrogen   float64   `json:"nitrogen"`
	Phosphorus float64   `json:"phosphorus"`
	Potassium  float64   `json:"potassium"`
	Moisture   float64   `json:"moisture"`
	LastTested string    `json:"date,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// --- External data payloads ---

// WeatherReport is a normalized current-weather reading.
type WeatherReport struct {
	City      string  `json:"city"`
	Temp      float64 `json:"temp"`
	Condition string  `json:"condition"`
	Humidity  float64 `json:"humidity"`
	WindSpeed float64 `json:"wind_speed"`
	Cached    bool    `json:"cached,omitempty"`
	Stale     bool    `json:"stale,omitempty"`
}

// ForecastDay is one aggregated day of a forecast.
type ForecastDay struct {
	Date      string  `json:"date"` // YYYY-MM-DD
	Temp      float64 `json:"temp"`
	TempMin   float64 `json:"temp_min"`
	TempMax   float64 `json:"temp_max"`
	Condition string  `json:"condition"`
	Humidity  float64 `json:"humidity"`
}

// Forecast is a multi-day outlook for a city.
type Forecast struct {
	City   string        `json:"city"`
	Days   []ForecastDay `json:"forecast"`
	Cached bool          `json:"cached,omitempty"`
	Stale  bool          `json:"stale,omitempty"`
}

// MarketQuote is the latest mandi price for a commodity in a state.
type MarketQuote struct {
	Commodity   string       `json:"crop"`
	State       string       `json:"state"`
	Market      string       `json:"market"`
	District    string       `json:"district"`
	ModalPrice  float64      `json:"modal_price"`
	MinPrice    float64      `json:"min_price"`
	MaxPrice    float64      `json:"max_price"`
	Unit        string       `json:"unit"`
	ArrivalDate string       `json:"arrival_date"`
	History     []PricePoint `json:"history,omitempty"`
	Cached      bool         `json:"cached,omitempty"`
	Stale       bool         `json:"stale,omitempty"`
}

// PricePoint is one day in a synthesized price history.
type PricePoint struct {
	Date  string `json:"date"` // display format, e.g. "02 Jan"
	Price int    `json:"price"`
}

// --- Users and sessions ---

// User is a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a bearer login session. Only the SHA-256 hash of the token
// is persisted; the plaintext is returned once at login.
type Session struct {
	TokenHash string    `json:"-"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller attached to request context.
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// --- Context keys ---

type contextKey int

const ctxKeyMeta contextKey = 0

// requestMeta bundles per-request values into a single context allocation.
// The Identity field is set later by the authenticate middleware via mutation
// of the same pointer, avoiding a second context.WithValue + Request.WithContext.
type requestMeta struct {
	RequestID string
	Identity  *Identity
}

func metaFromContext(ctx context.Context) *requestMeta {
	m, _ := ctx.Value(ctxKeyMeta).(*requestMeta)
	return m
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	if m := metaFromContext(ctx); m != nil {
		return m.Identity
	}
	return nil
}

// ContextWithIdentity stores the identity in the existing requestMeta if
// present, falling back to a new metadata value (e.g., in tests).
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	if m := metaFromContext(ctx); m != nil {
		m.Identity = id
		return ctx
	}
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{Identity: id})
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if m := metaFromContext(ctx); m != nil {
		return m.RequestID
	}
	return ""
}

// ContextWithRequestID returns a context carrying the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyMeta, &requestMeta{RequestID: id})
}

// --- Shared constants and helpers ---

// TokenPrefix is the prefix for all krishi session tokens.
const TokenPrefix = "krs_"

// HashToken returns the hex-encoded SHA-256 hash of a raw session token.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// --- Authenticator interface ---

// Authenticator validates request credentials and returns the caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)
}
