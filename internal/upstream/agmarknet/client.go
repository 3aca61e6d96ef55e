// Package agmarknet implements the data.gov.in mandi price client.
package agmarknet

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/upstream"
)

const source = "agmarknet"

// Client calls the data.gov.in daily mandi price resource.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates an agmarknet Client. baseURL must point at the price resource
// endpoint.
func New(apiKey, baseURL string, client *http.Client) *Client {
	if baseURL == "" {
		baseURL = "https://api.data.gov.in/resource/35985678-0d79-46b4-9ed6-6f13308a1d24"
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

// LatestPrice returns the most recent mandi quote for a commodity in a
// state. Prices are rupees per quintal.
func (c *Client) LatestPrice(ctx context.Context, state, commodity string) (*krishi.MarketQuote, error) {
	q := url.Values{}
	q.Set("api-key", c.apiKey)
	q.Set("format", "json")
	q.Set("limit", "25")
	q.Set("filters[state]", state)
	q.Set("filters[commodity]", commodity)

	body, err := upstream.GetJSON(ctx, c.http, source, c.baseURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	records := gjson.GetBytes(body, "records")
	if !records.Exists() || len(records.Array()) == 0 {
		return nil, fmt.Errorf("%s: no records for %s/%s", source, state, commodity)
	}

	// The feed serves newest arrivals first; the first record is the
	// latest quote.
	rec := records.Array()[0]

	return &krishi.MarketQuote{
		Commodity:   firstNonEmpty(rec.Get("commodity").String(), commodity),
		State:       firstNonEmpty(rec.Get("state").String(), state),
		Market:      rec.Get("market").String(),
		District:    rec.Get("district").String(),
		ModalPrice:  rec.Get("modal_price").Float(),
		MinPrice:    rec.Get("min_price").Float(),
		MaxPrice:    rec.Get("max_price").Float(),
		Unit:        "Quintal",
		ArrivalDate: rec.Get("arrival_date").String(),
	}, nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
