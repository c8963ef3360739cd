// Package backend defines the write-side collaborator interface: the
// batchable persist / increment / publish primitives the ingestion
// actor commits against.
package backend

import "context"

// Op is one backend write operation. Exactly one of the concrete types
// below; the backend discriminates by type switch.
type Op interface {
	isOp()
}

// PersistOp stores one entity under a key.
type PersistOp struct {
	// Key is the entity storage key.
	Key string
	// Entity is the record to encode and store.
	Entity any
}

func (PersistOp) isOp() {}

// IncrOp increments a counter. Field selects the hashed sub-field of a
// compound counter blob; empty targets a top-level scalar. Integer and
// float deltas use distinct increment primitives on the backend.
type IncrOp struct {
	Key        string
	Field      string
	DeltaInt   int64
	DeltaFloat float64
	Float      bool
}

func (IncrOp) isOp() {}

// PublishOp publishes a payload on one or more channels.
type PublishOp struct {
	Channels []string
	Payload  any
}

func (PublishOp) isOp() {}

// Backend commits batches of operations.
type Backend interface {
	// Execute commits the batch as one all-or-nothing transaction, in
	// the given order.
	Execute(ctx context.Context, ops []Op) error

	// Close releases backend resources.
	Close() error
}
