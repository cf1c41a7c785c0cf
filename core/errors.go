package core

import "errors"

// Error kinds that end a session. Every error delivered in a Result wraps exactly one of them.
var (
	// ErrResolutionFailed is returned when the host lookup fails or yields no compatible address.
	ErrResolutionFailed = errors.New("host resolution failed")

	// ErrSocketCreateFailed is returned when the ICMP socket cannot be opened.
	ErrSocketCreateFailed = errors.New("could not create ICMP socket")

	// ErrSendFailed is returned when the echo request could not be written in full.
	ErrSendFailed = errors.New("could not send echo request")

	// ErrReadFailed is returned when the socket reports an error while awaiting the reply.
	ErrReadFailed = errors.New("could not read from ICMP socket")

	// ErrTimedOut is returned when no matching reply arrives before the session timeout.
	ErrTimedOut = errors.New("timed out waiting for echo reply")
)
