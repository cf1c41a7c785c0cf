package core

import (
	"net"
	"time"
)

// Status is how a session ended.
type Status int

const (
	// Succeeded is the status of a session that accepted an echo reply
	Succeeded Status = iota
	// Failed is the status of a session that hit a resolution, socket, send or read error
	Failed
	// TimedOut is the status of a session that did not accept a reply before its timeout
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// state returns the terminal session state matching the status.
func (s Status) state() State {
	switch s {
	case Succeeded:
		return StateSucceeded
	case TimedOut:
		return StateTimedOut
	default:
		return StateFailed
	}
}

// Result is the single outcome delivered by a session.
type Result struct {
	// Host is the host name the session was created with.
	Host string

	// Addr is the resolved address, nil if resolution did not complete.
	Addr *ResolvedAddress

	// Status tells how the session ended.
	Status Status

	// Latency is the time from sending the request to accepting the reply, successful-only.
	Latency time.Duration

	// Sequence is the sequence number of the accepted reply, successful-only.
	Sequence uint16

	// Len is the length of the accepted ICMP reply, successful-only.
	Len int

	// Source is the address the accepted reply came from, if known.
	Source net.IP

	// Err wraps one of the Err* kinds when the session did not succeed.
	Err error
}

// Succeeded returns whether the host replied in time.
func (r *Result) Succeeded() bool {
	return r.Status == Succeeded
}
