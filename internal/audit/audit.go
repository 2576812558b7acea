// Package audit records lifecycle and dispatch outcomes as CloudEvents.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/fr0stylo/manabot/internal/store"
)

const (
	EventInstallationCreated = "com.manabot.installation.created"
	EventInstallationDeleted = "com.manabot.installation.deleted"
	EventNotificationSent    = "com.manabot.notification.sent"
	EventNotificationFailed  = "com.manabot.notification.failed"
)

// Recorder appends audit events to the store. Recording is best effort:
// failures are logged and never propagated into webhook handling.
type Recorder struct {
	store  *store.Store
	log    *slog.Logger
	source string
}

// NewRecorder constructs a recorder emitting events from the given source.
func NewRecorder(st *store.Store, log *slog.Logger, source string) *Recorder {
	if source == "" {
		source = "manabot"
	}
	return &Recorder{store: st, log: log, source: source}
}

// InstallationCreated records a successful install for a tenant.
func (r *Recorder) InstallationCreated(ctx context.Context, oauthID string, roomID int64) {
	r.record(ctx, EventInstallationCreated, map[string]any{
		"oauth_id": oauthID,
		"room_id":  roomID,
	})
}

// InstallationDeleted records an uninstall for a tenant.
func (r *Recorder) InstallationDeleted(ctx context.Context, oauthID string) {
	r.record(ctx, EventInstallationDeleted, map[string]any{
		"oauth_id": oauthID,
	})
}

// NotificationSent records a delivered room notification.
func (r *Recorder) NotificationSent(ctx context.Context, oauthID string, roomID int64) {
	r.record(ctx, EventNotificationSent, map[string]any{
		"oauth_id": oauthID,
		"room_id":  roomID,
	})
}

// NotificationFailed records a dispatch failure.
func (r *Recorder) NotificationFailed(ctx context.Context, oauthID string, cause error) {
	data := map[string]any{"oauth_id": oauthID}
	if cause != nil {
		data["error"] = cause.Error()
	}
	r.record(ctx, EventNotificationFailed, data)
}

func (r *Recorder) record(ctx context.Context, eventType string, data map[string]any) {
	if r == nil || r.store == nil {
		return
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(r.source)
	event.SetType(eventType)
	event.SetTime(time.Now().UTC())
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		r.log.Warn("Failed to encode audit event", "type", eventType, "error", err)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		r.log.Warn("Failed to serialize audit event", "type", eventType, "error", err)
		return
	}
	if err := r.store.AppendAuditEvent(ctx, event.ID(), eventType, r.source, event.Time(), payload); err != nil {
		r.log.Warn("Failed to store audit event", "type", eventType, "error", err)
	}
}
