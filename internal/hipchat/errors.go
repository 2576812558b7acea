package hipchat

import "errors"

var (
	// ErrCapabilityFetch signals that a capability or installable document
	// could not be retrieved from the platform.
	ErrCapabilityFetch = errors.New("capability fetch failed")

	// ErrMalformedCapabilities signals a capability document that is missing
	// the OAuth token URL or the API URL.
	ErrMalformedCapabilities = errors.New("malformed capability document")

	// ErrDispatch signals a failed notification delivery. It is logged by
	// callers and never surfaced to the triggering webhook.
	ErrDispatch = errors.New("notification dispatch failed")
)
