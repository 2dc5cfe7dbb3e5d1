package mesh

import "hillshield/internal/model"

// Transport moves messages between peers. The only in-tree implementation
// is the Simulator; a real mesh or radio transport plugs in here without
// touching the message log.
type Transport interface {
	// Send hands a persisted message to the transport for propagation.
	Send(conversationID string, msg model.Message) error

	// OnReceive registers a callback invoked for every message the
	// transport considers propagated.
	OnReceive(fn func(conversationID string, msg model.Message))
}
