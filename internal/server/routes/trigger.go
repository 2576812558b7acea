package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/manabot/internal/audit"
	"github.com/fr0stylo/manabot/internal/cards"
	"github.com/fr0stylo/manabot/internal/hipchat"
	"github.com/fr0stylo/manabot/internal/store"
)

// cardCommandPattern matches the /card slash command, case-insensitively,
// anchored at the start of the message. Group 1 carries the card query.
var cardCommandPattern = regexp.MustCompile(`(?i)^/card(.*)`)

var errCommandParse = errors.New("message does not match the /card command")

// TriggerRoutes handles the room_message webhook fired when a user invokes
// the /card command.
type TriggerRoutes struct {
	store      *store.Store
	cards      *cards.Client
	dispatcher *hipchat.Dispatcher
	audit      *audit.Recorder
	log        *slog.Logger
}

// NewTriggerRoutes constructs the trigger routes.
func NewTriggerRoutes(st *store.Store, cardClient *cards.Client, dispatcher *hipchat.Dispatcher, recorder *audit.Recorder, log *slog.Logger) *TriggerRoutes {
	return &TriggerRoutes{
		store:      st,
		cards:      cardClient,
		dispatcher: dispatcher,
		audit:      recorder,
		log:        log,
	}
}

// RegisterRoutes registers the trigger endpoint.
func (t *TriggerRoutes) RegisterRoutes(s *echo.Echo) {
	s.POST("/card", t.handleCard)
}

type triggerEvent struct {
	OAuthClientID string `json:"oauth_client_id"`
	Item          struct {
		Message struct {
			Message string `json:"message"`
		} `json:"message"`
	} `json:"item"`
}

func (t *TriggerRoutes) handleCard(c echo.Context) error {
	ctx := c.Request().Context()

	var event triggerEvent
	if err := c.Bind(&event); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid trigger payload"})
	}

	inst, err := t.store.GetInstallation(ctx, event.OAuthClientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The platform may deliver queued triggers after uninstall;
			// those must not error loudly.
			t.log.WarnContext(ctx, "Installation not found", "oauth_id", event.OAuthClientID)
			return c.NoContent(http.StatusNoContent)
		}
		t.log.ErrorContext(ctx, "Failed to load installation", "oauth_id", event.OAuthClientID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load installation"})
	}

	query, err := stripSlashCommand(event.Item.Message.Message)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	t.log.InfoContext(ctx, "Looking up card", "card", query, "oauth_id", inst.OAuthID)
	results, err := t.cards.Lookup(ctx, query)
	if err != nil {
		t.log.ErrorContext(ctx, "Card lookup failed", "card", query, "error", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	var payload hipchat.RoomNotification
	if len(results) == 0 {
		t.log.InfoContext(ctx, "No card found", "card", query)
		payload = notFoundNotification(query)
	} else {
		payload = foundNotification(results[0])
		if results[0].MultiverseID == nil {
			t.log.WarnContext(ctx, "Card has no multiverse ID, omitting reference link", "card", results[0].Name)
		}
	}

	t.dispatch(c, inst, payload)
	return c.NoContent(http.StatusNoContent)
}

// dispatch delivers the payload and records the outcome. By the time it
// runs the webhook has committed to an empty-success response, so failures
// are logged, never surfaced.
func (t *TriggerRoutes) dispatch(c echo.Context, inst store.Installation, payload hipchat.RoomNotification) {
	ctx := c.Request().Context()
	if err := t.dispatcher.SendNotification(ctx, inst, payload); err != nil {
		t.log.ErrorContext(ctx, "Notification dispatch failed", "oauth_id", inst.OAuthID, "room_id", inst.RoomID, "error", err)
		t.audit.NotificationFailed(ctx, inst.OAuthID, err)
		return
	}
	t.audit.NotificationSent(ctx, inst.OAuthID, inst.RoomID)
}

// stripSlashCommand removes the leading /card token and surrounding
// whitespace. The remainder is used verbatim as the card query.
func stripSlashCommand(message string) (string, error) {
	match := cardCommandPattern.FindStringSubmatch(message)
	if match == nil {
		return "", errCommandParse
	}
	return strings.TrimSpace(match[1]), nil
}

func notFoundNotification(query string) hipchat.RoomNotification {
	return hipchat.RoomNotification{
		Color:         "red",
		Message:       fmt.Sprintf("Sorry, I couldn't find a card called %s.", query),
		MessageFormat: "text",
	}
}

func foundNotification(card cards.Card) hipchat.RoomNotification {
	return hipchat.RoomNotification{
		Color:         "green",
		Message:       card.Name,
		MessageFormat: "text",
		Card: &hipchat.Card{
			Style:       "link",
			URL:         card.GathererURL(),
			ID:          card.ID,
			Title:       card.Name,
			Description: card.Text,
			Thumbnail:   hipchat.CardThumbnail{URL: card.ImageURL},
		},
	}
}
