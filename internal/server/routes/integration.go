package routes

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/manabot/internal/audit"
	"github.com/fr0stylo/manabot/internal/hipchat"
	"github.com/fr0stylo/manabot/internal/store"
)

// IntegrationRoutes serves the static integration surface and the
// install/uninstall lifecycle webhooks.
type IntegrationRoutes struct {
	store      *store.Store
	platform   *hipchat.Client
	dispatcher *hipchat.Dispatcher
	audit      *audit.Recorder
	descriptor hipchat.Descriptor
	log        *slog.Logger
}

// NewIntegrationRoutes constructs the lifecycle routes.
func NewIntegrationRoutes(st *store.Store, platform *hipchat.Client, dispatcher *hipchat.Dispatcher, recorder *audit.Recorder, descriptor hipchat.Descriptor, log *slog.Logger) *IntegrationRoutes {
	return &IntegrationRoutes{
		store:      st,
		platform:   platform,
		dispatcher: dispatcher,
		audit:      recorder,
		descriptor: descriptor,
		log:        log,
	}
}

// RegisterRoutes registers the lifecycle endpoints.
func (i *IntegrationRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/", i.handleRoot)
	s.GET("/capabilities", i.handleCapabilities)
	s.POST("/installed", i.handleInstalled)
	s.GET("/uninstalled", i.handleUninstalled)
}

func (i *IntegrationRoutes) handleRoot(c echo.Context) error {
	return c.String(http.StatusOK, "Magic is for nerds!")
}

func (i *IntegrationRoutes) handleCapabilities(c echo.Context) error {
	return c.JSON(http.StatusOK, i.descriptor)
}

type installEvent struct {
	OAuthID         string `json:"oauthId"`
	RoomID          int64  `json:"roomId"`
	GroupID         int64  `json:"groupId"`
	OAuthSecret     string `json:"oauthSecret"`
	CapabilitiesURL string `json:"capabilitiesUrl"`
}

func (e installEvent) validate() error {
	if strings.TrimSpace(e.OAuthID) == "" {
		return errors.New("missing oauthId")
	}
	if strings.TrimSpace(e.OAuthSecret) == "" {
		return errors.New("missing oauthSecret")
	}
	if strings.TrimSpace(e.CapabilitiesURL) == "" {
		return errors.New("missing capabilitiesUrl")
	}
	return nil
}

func (i *IntegrationRoutes) handleInstalled(c echo.Context) error {
	ctx := c.Request().Context()

	var event installEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid install payload"})
	}
	if err := event.validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	i.log.InfoContext(ctx, "Getting capabilities", "url", event.CapabilitiesURL, "oauth_id", event.OAuthID)
	tokenURL, apiURL, err := i.platform.FetchCapabilities(ctx, event.CapabilitiesURL)
	if err != nil {
		i.log.ErrorContext(ctx, "Capability fetch failed", "url", event.CapabilitiesURL, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	inst := store.Installation{
		OAuthID:     event.OAuthID,
		RoomID:      event.RoomID,
		GroupID:     event.GroupID,
		OAuthSecret: event.OAuthSecret,
		TokenURL:    tokenURL,
		APIURL:      apiURL,
	}
	if err := i.store.UpsertInstallation(ctx, inst); err != nil {
		i.log.ErrorContext(ctx, "Failed to store installation", "oauth_id", event.OAuthID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to store installation"})
	}

	// A reinstall may carry a rotated secret; stale token sources must go.
	i.dispatcher.Forget(event.OAuthID)
	i.audit.InstallationCreated(ctx, event.OAuthID, event.RoomID)

	return c.NoContent(http.StatusCreated)
}

func (i *IntegrationRoutes) handleUninstalled(c echo.Context) error {
	ctx := c.Request().Context()

	redirectURL := strings.TrimSpace(c.QueryParam("redirect_url"))
	installableURL := strings.TrimSpace(c.QueryParam("installable_url"))
	if redirectURL == "" || installableURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing redirect_url or installable_url"})
	}

	i.log.InfoContext(ctx, "Getting installable info", "url", installableURL)
	oauthID, err := i.platform.FetchInstallable(ctx, installableURL)
	if err != nil {
		i.log.ErrorContext(ctx, "Installable fetch failed", "url", installableURL, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	i.log.InfoContext(ctx, "Deleting installation", "oauth_id", oauthID)
	if err := i.store.DeleteInstallation(ctx, oauthID); err != nil {
		i.log.ErrorContext(ctx, "Failed to delete installation", "oauth_id", oauthID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete installation"})
	}

	i.dispatcher.Forget(oauthID)
	i.audit.InstallationDeleted(ctx, oauthID)

	// The platform expects the redirect handshake to finish the uninstall.
	return c.Redirect(http.StatusFound, redirectURL)
}
