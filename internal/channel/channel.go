// Package channel defines the messaging transport contract the turn
// orchestrator consumes. Adapters bridge a concrete platform (the WhatsApp
// Cloud API, a local web bridge) to this interface.
package channel

import "context"

// Inbound is one message received from the platform.
type Inbound struct {
	SenderAddress     string // platform-specific sender address
	SenderDisplayName string // human-readable name, may be empty
	Text              string // raw message text
	IsGroup           bool   // group/broadcast origin, never an ordering conversation
}

// Adapter is implemented by platform transports.
type Adapter interface {
	// Listen returns a channel of inbound messages. The channel is closed
	// when ctx is cancelled or the adapter shuts down.
	Listen(ctx context.Context) (<-chan Inbound, error)

	// SendText delivers text to the destination address. The core never
	// inspects delivery receipts beyond this call's error.
	SendText(ctx context.Context, destination, text string) error

	// Close shuts the transport down.
	Close() error
}
