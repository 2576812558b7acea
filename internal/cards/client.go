// Package cards queries the Magic: The Gathering card API.
package cards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GathererURLTemplate formats a multiverse ID into a card reference page.
const GathererURLTemplate = "http://gatherer.wizards.com/Pages/Card/Details.aspx?multiverseid=%d"

var (
	// ErrLookupService signals a network failure or non-2xx response from
	// the card API. Results are never fabricated.
	ErrLookupService = errors.New("card lookup failed")

	// ErrMalformedCard signals a card API response that cannot be decoded.
	ErrMalformedCard = errors.New("malformed card data")
)

// Card is one lookup result. MultiverseID is a pointer because the API
// omits it for cards that never appeared in a Gatherer-indexed set.
type Card struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Text         string `json:"text"`
	MultiverseID *int64 `json:"multiverseid"`
	ImageURL     string `json:"imageUrl"`
}

// GathererURL returns the reference page for the card, or an empty string
// when the card has no multiverse ID.
func (c Card) GathererURL() string {
	if c.MultiverseID == nil {
		return ""
	}
	return fmt.Sprintf(GathererURLTemplate, *c.MultiverseID)
}

// Client queries the card API.
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient constructs a card API client for the given endpoint.
func NewClient(apiURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		apiURL:     strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		httpClient: httpClient,
	}
}

// Lookup queries the API for an exact name match. The query is wrapped in
// quotes so partial matches are excluded; results keep the API's relevance
// order. An empty result slice is a valid outcome, not an error.
func (c *Client) Lookup(ctx context.Context, name string) ([]Card, error) {
	values := url.Values{}
	values.Set("name", `"`+name+`"`)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupService, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrLookupService, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed struct {
		Cards []Card `json:"cards"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCard, err)
	}
	return parsed.Cards, nil
}
