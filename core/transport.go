package core

// Transport is an open ICMP socket bound to one address family.
type Transport interface {
	// Send writes a single echo request to the resolved address.
	Send(packet []byte) (int, error)

	// Datagrams delivers every datagram read from the socket. It is closed after Close.
	Datagrams() <-chan Datagram

	// Errors delivers at most one asynchronous read error.
	Errors() <-chan error

	// Close releases the socket. It is safe to call more than once.
	Close() error
}

// identifierRewriter is implemented by transports whose kernel replaces the echo identifier
// with its own, so replies carry that value instead of the session's.
type identifierRewriter interface {
	Identifier() (uint16, bool)
}

// TransportOpener opens a transport for the family of addr.
type TransportOpener func(addr *ResolvedAddress, settings *Settings) (Transport, error)
