// Package types defines the shared event record shapes.
//
// It is a leaf package: every other package may import it, and it
// imports no other beacon package.
package types

import (
	"time"

	"github.com/google/uuid"
)

// RawEvent is the as-received tracking hit, persisted before any
// interpretation so that a hit is never lost to a schema problem.
// All fields use msgpack tags to match the persisted wire format.
type RawEvent struct {
	// ID is the unique identifier for this hit.
	ID string `msgpack:"id"`
	// URL is the full request URL as received.
	URL string `msgpack:"url"`
	// Method is the HTTP method.
	Method string `msgpack:"method"`
	// Params is the raw, unconverted parameter map.
	Params map[string]string `msgpack:"params"`
	// Fingerprint is the visitor cookie/fingerprint, if present.
	Fingerprint string `msgpack:"fingerprint,omitempty"`
	// Profile is the matched profile identifier, when resolvable.
	Profile string `msgpack:"profile,omitempty"`
	// Legacy marks hits received on the ref-code compatibility path.
	Legacy bool `msgpack:"legacy"`
	// ReceivedAt is the server receive timestamp.
	ReceivedAt time.Time `msgpack:"received_at"`
	// Errored is flipped when enforcement aborts for this hit.
	Errored bool `msgpack:"errored"`
	// Messages holds error messages appended on the error path.
	Messages []string `msgpack:"messages,omitempty"`
}

// Entity key prefixes for the persistence backend.
const (
	rawKeyPrefix     = "__event__::raw::"
	trackedKeyPrefix = "__event__::tracked::"
)

// NewRawEvent creates a raw event with a fresh identity and receive time.
func NewRawEvent(url, method string, params map[string]string) *RawEvent {
	return &RawEvent{
		ID:         uuid.NewString(),
		URL:        url,
		Method:     method,
		Params:     params,
		ReceivedAt: time.Now().UTC(),
	}
}

// SetError flips the error flag and appends a message.
// This is the only permitted mutation of a persisted raw event.
func (r *RawEvent) SetError(message string) {
	r.Errored = true
	r.Messages = append(r.Messages, message)
}

// Key returns the backend storage key for this raw event.
func (r *RawEvent) Key() string { return rawKeyPrefix + r.ID }

// TrackedEvent is the validated, interpreted form of one hit.
type TrackedEvent struct {
	// ID is the unique identifier for the tracked event.
	ID string `msgpack:"id"`
	// RawID references the RawEvent this was interpreted from.
	RawID string `msgpack:"raw_id"`
	// Profile is the resolved profile identifier.
	Profile string `msgpack:"profile"`
	// Params is the converted parameter map, keyed by canonical name.
	Params map[string]any `msgpack:"params"`
	// Warnings lists non-fatal conditions observed during enforcement.
	Warnings []string `msgpack:"warnings,omitempty"`
	// Errors lists fatal conditions observed during enforcement.
	Errors []string `msgpack:"errors,omitempty"`
	// Aggregations lists the bucket keys this event incremented, so
	// later queries can resolve which counters a given event touched.
	Aggregations []string `msgpack:"aggregations,omitempty"`
	// Errored mirrors the raw event's error flag.
	Errored bool `msgpack:"errored"`
	// TrackedAt is the enforcement timestamp.
	TrackedAt time.Time `msgpack:"tracked_at"`
}

// NewTrackedEvent creates a tracked event bound to its raw record.
func NewTrackedEvent(raw *RawEvent, profile string) *TrackedEvent {
	return &TrackedEvent{
		ID:        uuid.NewString(),
		RawID:     raw.ID,
		Profile:   profile,
		Params:    make(map[string]any),
		TrackedAt: time.Now().UTC(),
	}
}

// AddWarning records a non-fatal enforcement condition.
func (t *TrackedEvent) AddWarning(message string) {
	t.Warnings = append(t.Warnings, message)
}

// AddError records a fatal enforcement condition and flips the flag.
func (t *TrackedEvent) AddError(message string) {
	t.Errors = append(t.Errors, message)
	t.Errored = true
}

// Key returns the backend storage key for this tracked event.
func (t *TrackedEvent) Key() string { return trackedKeyPrefix + t.ID }
