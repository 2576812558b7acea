package hipchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/fr0stylo/manabot/internal/store"
)

// Dispatcher authenticates against a tenant's token endpoint and posts room
// notifications to its API URL. Token sources are cached per tenant so
// bearer tokens are reused until they expire.
type Dispatcher struct {
	httpClient *http.Client

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource
}

// NewDispatcher constructs a dispatcher around the shared HTTP client.
func NewDispatcher(httpClient *http.Client) *Dispatcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Dispatcher{
		httpClient: httpClient,
		sources:    make(map[string]oauth2.TokenSource),
	}
}

// SendNotification obtains a bearer token via the client-credentials grant
// and posts the payload to the tenant's room notification endpoint. Any
// failure is reported as ErrDispatch; callers log it and never surface it
// to the triggering webhook.
func (d *Dispatcher) SendNotification(ctx context.Context, inst store.Installation, payload RoomNotification) error {
	token, err := d.tokenSource(inst).Token()
	if err != nil {
		return fmt.Errorf("%w: token exchange: %v", ErrDispatch, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", ErrDispatch, err)
	}

	endpoint := notificationURL(inst)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: %s returned %d: %s", ErrDispatch, endpoint, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// Forget drops the cached token source for a tenant. Called on uninstall
// and on reinstall, since either may rotate the shared secret.
func (d *Dispatcher) Forget(oauthID string) {
	d.mu.Lock()
	delete(d.sources, oauthID)
	d.mu.Unlock()
}

func (d *Dispatcher) tokenSource(inst store.Installation) oauth2.TokenSource {
	d.mu.Lock()
	defer d.mu.Unlock()

	if source, ok := d.sources[inst.OAuthID]; ok {
		return source
	}

	cfg := clientcredentials.Config{
		ClientID:     inst.OAuthID,
		ClientSecret: inst.OAuthSecret,
		TokenURL:     inst.TokenURL,
		Scopes:       []string{"send_notification"},
	}
	// The token source outlives any single request, so it is bound to a
	// background context carrying the shared HTTP client.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, d.httpClient)
	source := cfg.TokenSource(ctx)
	d.sources[inst.OAuthID] = source
	return source
}

func notificationURL(inst store.Installation) string {
	return fmt.Sprintf("%s/room/%d/notification", strings.TrimRight(inst.APIURL, "/"), inst.RoomID)
}
