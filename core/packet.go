package core

import (
	"net"
)

// maxDatagramSize is the receive buffer size; no ICMP datagram is larger.
const maxDatagramSize = 64 * 1024

// Datagram is one inbound datagram as read from the socket.
type Datagram struct {
	// Bytes holds the received data, uninterpreted.
	Bytes []byte

	// Source is the sender's address, if known.
	Source net.IP

	// IPHeader is set when Bytes starts with the IPv4 header.
	IPHeader bool
}
