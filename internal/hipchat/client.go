package hipchat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Client fetches platform documents over HTTP. It holds a shared HTTP
// client configured with a bounded timeout by the caller.
type Client struct {
	httpClient *http.Client
}

// NewClient constructs a platform client around the shared HTTP client.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient}
}

// FetchCapabilities retrieves a tenant capability document and extracts the
// token URL and API URL. Both must be present; a partial document fails with
// ErrMalformedCapabilities so no partial installation record is created.
func (c *Client) FetchCapabilities(ctx context.Context, capabilitiesURL string) (tokenURL, apiURL string, err error) {
	var doc CapabilityDocument
	if err := c.getJSON(ctx, capabilitiesURL, &doc); err != nil {
		return "", "", err
	}

	tokenURL = strings.TrimSpace(doc.Capabilities.OAuth2Provider.TokenURL)
	apiURL = strings.TrimSpace(doc.Capabilities.HipchatAPIProvider.URL)
	if tokenURL == "" || apiURL == "" {
		return "", "", fmt.Errorf("%w: missing oauth2Provider.tokenUrl or hipchatApiProvider.url", ErrMalformedCapabilities)
	}
	return tokenURL, apiURL, nil
}

// FetchInstallable retrieves the installable document referenced by an
// uninstall callback and returns the tenant OAuth ID it names.
func (c *Client) FetchInstallable(ctx context.Context, installableURL string) (string, error) {
	var doc InstallableDocument
	if err := c.getJSON(ctx, installableURL, &doc); err != nil {
		return "", err
	}

	oauthID := strings.TrimSpace(doc.OAuthID)
	if oauthID == "" {
		return "", fmt.Errorf("%w: missing oauthId", ErrMalformedCapabilities)
	}
	return oauthID, nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapabilityFetch, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCapabilityFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %d: %s", ErrCapabilityFetch, rawURL, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrMalformedCapabilities, rawURL, err)
	}
	return nil
}
