package core

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	echoCode        = 0
	icmpProtocol    = 1
	icmpHeaderLen   = 8
	checksumOffset  = 2
	ipv4MinReplyLen = ipv4.HeaderLen + icmpHeaderLen
)

// SequenceValidator reports whether a reply's sequence number matches a request that was sent.
type SequenceValidator func(seq uint16) bool

// EchoReply is an accepted echo reply.
type EchoReply struct {
	// Packet is the ICMP message, without any IP header.
	Packet []byte

	// Sequence is the sequence number carried by the reply.
	Sequence uint16
}

// echoRequestType returns the echo request type of the family.
func echoRequestType(family AddressFamily) uint8 {
	if family == FamilyIPv6 {
		return uint8(ipv6.ICMPTypeEchoRequest)
	}
	return uint8(ipv4.ICMPTypeEcho)
}

// defaultPayload pads a request to the conventional 64 byte ping.
func defaultPayload(seq uint16) []byte {
	return []byte(fmt.Sprintf("%28d bottles of beer on the wall", 99-int(seq%100)))
}

// BuildEchoRequest frames an echo request. A nil payload is replaced by the default 56 byte
// payload. IPv6 sockets fill in the checksum themselves, so needsChecksum is only set for IPv4.
func BuildEchoRequest(typ uint8, id, seq uint16, payload []byte, needsChecksum bool) []byte {
	if payload == nil {
		payload = defaultPayload(seq)
	}

	b := make([]byte, icmpHeaderLen+len(payload))
	b[0] = typ
	b[1] = echoCode
	binary.BigEndian.PutUint16(b[4:], id)
	binary.BigEndian.PutUint16(b[6:], seq)
	copy(b[icmpHeaderLen:], payload)

	if needsChecksum {
		putChecksum(b, checksumOffset, Checksum(b))
	}

	return b
}

// ValidateReply checks whether raw is an echo reply to one of our requests. For IPv4, raw must start
// with the IP header, as delivered by raw sockets; for IPv6 it is the bare ICMPv6 message.
// A false return means the datagram belongs to someone else or is malformed.
func ValidateReply(raw []byte, id uint16, family AddressFamily, valid SequenceValidator) (EchoReply, bool) {
	if family == FamilyIPv6 {
		return validateICMPv6Reply(raw, id, valid)
	}

	if len(raw) < ipv4MinReplyLen {
		return EchoReply{}, false
	}

	version := raw[0] >> 4
	hdrlen := int(raw[0]&0x0f) << 2
	if version != ipv4.Version || raw[9] != icmpProtocol {
		return EchoReply{}, false
	}
	if hdrlen < ipv4.HeaderLen || len(raw)-hdrlen < icmpHeaderLen {
		return EchoReply{}, false
	}

	return ValidateICMPv4Reply(raw[hdrlen:], id, valid)
}

// ValidateICMPv4Reply runs the IPv4 checks on an ICMP message whose IP header was already removed
// by the kernel.
func ValidateICMPv4Reply(msg []byte, id uint16, valid SequenceValidator) (EchoReply, bool) {
	if len(msg) < icmpHeaderLen {
		return EchoReply{}, false
	}

	received := readChecksum(msg, checksumOffset)
	scratch := make([]byte, len(msg))
	copy(scratch, msg)
	putChecksum(scratch, checksumOffset, 0)
	if Checksum(scratch) != received {
		return EchoReply{}, false
	}

	if msg[0] != uint8(ipv4.ICMPTypeEchoReply) || msg[1] != echoCode {
		return EchoReply{}, false
	}

	return matchEcho(msg, id, valid)
}

func validateICMPv6Reply(msg []byte, id uint16, valid SequenceValidator) (EchoReply, bool) {
	if len(msg) < icmpHeaderLen {
		return EchoReply{}, false
	}
	if msg[0] != uint8(ipv6.ICMPTypeEchoReply) || msg[1] != echoCode {
		return EchoReply{}, false
	}

	return matchEcho(msg, id, valid)
}

// matchEcho compares the identifier and sequence number of an echo reply.
func matchEcho(msg []byte, id uint16, valid SequenceValidator) (EchoReply, bool) {
	if binary.BigEndian.Uint16(msg[4:]) != id {
		return EchoReply{}, false
	}

	seq := binary.BigEndian.Uint16(msg[6:])
	if valid != nil && !valid(seq) {
		return EchoReply{}, false
	}

	return EchoReply{Packet: msg, Sequence: seq}, true
}
