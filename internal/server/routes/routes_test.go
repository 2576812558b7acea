package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/manabot/internal/audit"
	"github.com/fr0stylo/manabot/internal/cards"
	"github.com/fr0stylo/manabot/internal/hipchat"
	"github.com/fr0stylo/manabot/internal/store"
)

// fakePlatform stands in for the chat platform: capability and installable
// documents, the OAuth token endpoint, and the notification sink.
type fakePlatform struct {
	srv           *httptest.Server
	oauthID       string
	notifications chan hipchat.RoomNotification
	notifyStatus  atomic.Int64
}

func newFakePlatform(t *testing.T, oauthID string) *fakePlatform {
	t.Helper()
	p := &fakePlatform{
		oauthID:       oauthID,
		notifications: make(chan hipchat.RoomNotification, 16),
	}
	p.notifyStatus.Store(http.StatusNoContent)

	mux := http.NewServeMux()
	mux.HandleFunc("/capabilities", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"capabilities": map[string]any{
				"oauth2Provider":     map[string]any{"tokenUrl": p.srv.URL + "/token"},
				"hipchatApiProvider": map[string]any{"url": p.srv.URL},
			},
		})
	})
	mux.HandleFunc("/installable", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"oauthId": p.oauthID})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "platform-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/room/", func(w http.ResponseWriter, r *http.Request) {
		var payload hipchat.RoomNotification
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode notification: %v", err)
		}
		p.notifications <- payload
		w.WriteHeader(int(p.notifyStatus.Load()))
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

// fakeCardAPI serves canned lookup results and counts hits.
type fakeCardAPI struct {
	srv    *httptest.Server
	hits   atomic.Int64
	status atomic.Int64
	cards  []map[string]any
}

func newFakeCardAPI(t *testing.T, results []map[string]any) *fakeCardAPI {
	t.Helper()
	api := &fakeCardAPI{cards: results}
	api.status.Store(http.StatusOK)
	api.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.hits.Add(1)
		status := int(api.status.Load())
		if status != http.StatusOK {
			http.Error(w, "lookup down", status)
			return
		}
		results := api.cards
		if results == nil {
			results = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"cards": results})
	}))
	t.Cleanup(api.srv.Close)
	return api
}

type testApp struct {
	e        *echo.Echo
	store    *store.Store
	platform *fakePlatform
	cardAPI  *fakeCardAPI
}

func newTestApp(t *testing.T, platform *fakePlatform, cardAPI *fakeCardAPI) *testApp {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test-store"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpClient := &http.Client{}
	platformClient := hipchat.NewClient(httpClient)
	dispatcher := hipchat.NewDispatcher(httpClient)
	recorder := audit.NewRecorder(st, log, "com.fr0stylo.manabot")
	descriptor := hipchat.NewDescriptor("com.fr0stylo.manabot", "Manabot", "https://manabot.example.com")

	var cardClient *cards.Client
	if cardAPI != nil {
		cardClient = cards.NewClient(cardAPI.srv.URL, httpClient)
	} else {
		cardClient = cards.NewClient("http://127.0.0.1:0", httpClient)
	}

	e := echo.New()
	NewIntegrationRoutes(st, platformClient, dispatcher, recorder, descriptor, log).RegisterRoutes(e)
	NewTriggerRoutes(st, cardClient, dispatcher, recorder, log).RegisterRoutes(e)

	return &testApp{e: e, store: st, platform: platform, cardAPI: cardAPI}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func testInstallation(oauthID string, platform *fakePlatform) store.Installation {
	return store.Installation{
		OAuthID:     oauthID,
		RoomID:      42,
		GroupID:     7,
		OAuthSecret: "shhh",
		TokenURL:    platform.srv.URL + "/token",
		APIURL:      platform.srv.URL,
	}
}
