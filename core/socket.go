package core

import (
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	icmpPrivilegedNetwork     = "ip4:icmp"
	icmpv6PrivilegedNetwork   = "ip6:ipv6-icmp"
	icmpUnprivilegedNetwork   = "udp4"
	icmpv6UnprivilegedNetwork = "udp6"

	// readDeadline bounds each read so the read loop notices Close.
	readDeadline = 200 * time.Millisecond
)

// packetConn is the part of *icmp.PacketConn the transport needs. Any net.PacketConn satisfies it.
type packetConn interface {
	ReadFrom(b []byte) (int, net.Addr, error)
	WriteTo(b []byte, dst net.Addr) (int, error)
	SetReadDeadline(t time.Time) error
	LocalAddr() net.Addr
	Close() error
}

// socketTransport sends requests on an ICMP packet connection and hands every datagram read from
// it to Datagrams, from a single reading goroutine.
type socketTransport struct {
	conn packetConn

	// dst is the address every request is sent to.
	dst net.Addr

	// family tells whether received datagrams may carry an IPv4 header.
	family AddressFamily

	// dgram is set for datagram (unprivileged) ICMP sockets.
	dgram bool

	datagrams chan Datagram
	errs      chan error
	done      chan struct{}

	once sync.Once
	wg   sync.WaitGroup
}

// OpenSocketTransport opens an ICMP connection for the family of addr. Settings.Privileged selects
// a raw socket instead of a datagram ICMP socket.
func OpenSocketTransport(addr *ResolvedAddress, settings *Settings) (Transport, error) {
	network := icmpNetwork(addr.Family, settings.Privileged)

	conn, err := icmp.ListenPacket(network, "")
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %s: %v", ErrSocketCreateFailed, network, err)
	}

	if err := setHopLimit(conn, addr.Family, settings.TTL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrSocketCreateFailed, err)
	}

	return newSocketTransport(conn, destination(addr, settings.Privileged), addr.Family, !settings.Privileged), nil
}

// newSocketTransport starts reading from conn.
func newSocketTransport(conn packetConn, dst net.Addr, family AddressFamily, dgram bool) *socketTransport {
	t := &socketTransport{
		conn:      conn,
		dst:       dst,
		family:    family,
		dgram:     dgram,
		datagrams: make(chan Datagram),
		errs:      make(chan error, 1),
		done:      make(chan struct{}),
	}

	t.wg.Add(1)
	go t.readLoop()

	return t
}

// icmpNetwork returns the network name icmp.ListenPacket expects.
func icmpNetwork(family AddressFamily, privileged bool) string {
	switch {
	case family == FamilyIPv6 && privileged:
		return icmpv6PrivilegedNetwork
	case family == FamilyIPv6:
		return icmpv6UnprivilegedNetwork
	case privileged:
		return icmpPrivilegedNetwork
	default:
		return icmpUnprivilegedNetwork
	}
}

// destination returns the address requests are written to. Datagram sockets take a UDP address.
func destination(addr *ResolvedAddress, privileged bool) net.Addr {
	if privileged {
		return &net.IPAddr{IP: addr.IP, Zone: addr.Zone}
	}
	return &net.UDPAddr{IP: addr.IP, Zone: addr.Zone}
}

// setHopLimit applies the TTL, or the hop limit for IPv6.
func setHopLimit(conn *icmp.PacketConn, family AddressFamily, ttl int) error {
	if family == FamilyIPv6 {
		if err := conn.IPv6PacketConn().SetHopLimit(ttl); err != nil {
			return fmt.Errorf("set hop limit: %w", err)
		}
		return nil
	}

	if err := conn.IPv4PacketConn().SetTTL(ttl); err != nil {
		return fmt.Errorf("set TTL: %w", err)
	}
	return nil
}

// Send writes packet to the destination. Failures are not retried.
func (t *socketTransport) Send(packet []byte) (int, error) {
	select {
	case <-t.done:
		return 0, net.ErrClosed
	default:
	}
	return t.conn.WriteTo(packet, t.dst)
}

// Identifier returns the echo identifier the kernel uses for this socket, if it replaces ours.
// Linux datagram ICMP sockets use the local port.
func (t *socketTransport) Identifier() (uint16, bool) {
	if !t.dgram || runtime.GOOS != "linux" {
		return 0, false
	}

	addr, ok := t.conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return 0, false
	}
	return uint16(addr.Port), true
}

func (t *socketTransport) Datagrams() <-chan Datagram {
	return t.datagrams
}

func (t *socketTransport) Errors() <-chan error {
	return t.errs
}

// Close stops the read loop and releases the connection.
func (t *socketTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.done)
		err = t.conn.Close()
		t.wg.Wait()
	})
	return err
}

// readLoop reads one datagram at a time until the transport is closed or the read fails.
func (t *socketTransport) readLoop() {
	defer t.wg.Done()
	defer close(t.datagrams)

	buf := make([]byte, maxDatagramSize)
	for {
		if t.closing() {
			return
		}

		if err := t.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			if !t.closing() {
				t.fail(fmt.Errorf("set read deadline: %w", err))
			}
			return
		}

		n, peer, err := t.conn.ReadFrom(buf)
		if err != nil {
			var neterr net.Error
			if errors.As(err, &neterr) && neterr.Timeout() {
				continue
			}
			if !t.closing() {
				t.fail(fmt.Errorf("read: %w", err))
			}
			return
		}

		b := append([]byte(nil), buf[:n]...)
		dg := Datagram{
			Bytes:    b,
			Source:   sourceIP(peer),
			IPHeader: t.family == FamilyIPv4 && hasIPv4Header(b),
		}

		select {
		case t.datagrams <- dg:
		case <-t.done:
			return
		}
	}
}

func (t *socketTransport) closing() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// fail reports err unless an error is already pending.
func (t *socketTransport) fail(err error) {
	select {
	case t.errs <- err:
	default:
	}
}

// hasIPv4Header reports whether b starts with an IPv4 header rather than an ICMP message. ICMP
// types 64 to 79 are unassigned, so the version nibble tells them apart.
func hasIPv4Header(b []byte) bool {
	return len(b) >= ipv4.HeaderLen && b[0]>>4 == ipv4.Version
}

func sourceIP(addr net.Addr) net.IP {
	switch addr := addr.(type) {
	case *net.UDPAddr:
		return addr.IP
	case *net.IPAddr:
		return addr.IP
	default:
		return nil
	}
}
