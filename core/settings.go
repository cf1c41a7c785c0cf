package core

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxPayloadSize is the largest echo payload that fits in an IPv4 datagram.
const maxPayloadSize = 65535 - ipv4MinReplyLen

// Settings contains all configurable properties of a ping session.
type Settings struct {
	// Timeout bounds the whole session, from Start until a reply is accepted.
	Timeout time.Duration

	// Family restricts which of the host's addresses may be pinged.
	Family AddressFamily

	// TTL is the set IP Time to Live (hop limit for IPv6).
	TTL int

	// PayloadSize is the size of the echo payload. Zero sends the default 56 byte payload.
	PayloadSize int

	// Privileged defines if privileged (raw ICMP sockets) or unprivileged (datagram-oriented) mode is used.
	Privileged bool

	// LoggingLevel is the logrus level used by the session logger.
	LoggingLevel uint32

	// Metrics, if set, records the outcome of every session.
	Metrics *Metrics
}

// DefaultSettings returns the default settings for a ping session, change as you wish.
func DefaultSettings() *Settings {
	return &Settings{
		Timeout:      2 * time.Second,
		Family:       FamilyAny,
		TTL:          64,
		PayloadSize:  0,
		Privileged:   false,
		LoggingLevel: uint32(log.WarnLevel),
	}
}

// validate returns an error describing the first invalid setting.
func (s *Settings) validate() error {
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", s.Timeout)
	}
	if s.TTL < 1 || s.TTL > 255 {
		return fmt.Errorf("ttl must be between 1 and 255, got %d", s.TTL)
	}
	if s.PayloadSize < 0 || s.PayloadSize > maxPayloadSize {
		return fmt.Errorf("payload size must be between 0 and %d, got %d", maxPayloadSize, s.PayloadSize)
	}
	if s.Family < FamilyAny || s.Family > FamilyIPv6 {
		return fmt.Errorf("invalid address family %s", s.Family)
	}
	return nil
}

// payload returns the echo payload for seq, or nil for the default one.
func (s *Settings) payload(seq uint16) []byte {
	if s.PayloadSize == 0 {
		return nil
	}

	pattern := defaultPayload(seq)
	b := make([]byte, s.PayloadSize)
	for i := range b {
		b[i] = pattern[i%len(pattern)]
	}
	return b
}
