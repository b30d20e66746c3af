package hub

// Client is one live push-channel connection. It abstracts the transport so
// the hub can manage websocket connections and test doubles uniformly.
type Client interface {
	// ConnID returns the connection's unique identifier, stable for the
	// lifetime of the connection.
	ConnID() string
	// UserID returns the identity presented during identify, or "" while the
	// connection is still unidentified.
	UserID() string
	// SetUserID records the identity; called by the hub on identify.
	SetUserID(id string)

	// SendChannel returns the channel the hub delivers events to.
	SendChannel() chan<- Event

	// Close shuts down the connection's outbound side.
	Close()
}
