package chathub

// Client is one STOMP session over some transport.
type Client interface {
	Subscriber

	// ID is the STOMP session id.
	ID() string
	// Attributes holds the identity established at handshake and CONNECT.
	Attributes() Attributes

	// Run starts the client's read and write pumps.
	Run()
	// Close ends the session. It is safe to call more than once.
	Close()
}
