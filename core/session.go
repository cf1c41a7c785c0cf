package core

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// State is the lifecycle stage of a Session. A session only ever moves forward.
type State int

const (
	// StateIdle is the state of a session that has not been started
	StateIdle State = iota
	// StateResolving is the state while the host name is being resolved
	StateResolving
	// StateSending is the state while the socket is opened and the request is sent
	StateSending
	// StateAwaitingReply is the state while inbound datagrams are matched against the request
	StateAwaitingReply
	// StateSucceeded is the terminal state after a reply was accepted
	StateSucceeded
	// StateFailed is the terminal state after a resolution or transport error
	StateFailed
	// StateTimedOut is the terminal state after the timeout elapsed
	StateTimedOut
	// StateStopped is the terminal state after Stop, which delivers no result
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateSending:
		return "sending"
	case StateAwaitingReply:
		return "awaiting reply"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func (s State) terminal() bool {
	return s >= StateSucceeded
}

// Session pings one host once: resolve, open a socket, send one echo request and wait for the
// matching reply or the timeout, whichever comes first. Exactly one Result is delivered unless
// the session is stopped first.
type Session struct {
	settings *Settings

	// host is the name or address literal to ping.
	host string

	// id is the random echo identifier of this session.
	id uint16

	// seq is only touched by the goroutine running the session.
	seq SequenceCounter

	resolver Resolver
	open     TransportOpener

	// logger is an instance of logrus used to log activities related to this session
	logger *log.Entry

	// mu guards the fields below and serializes every transition, including the final one.
	mu        sync.Mutex
	state     State
	addr      *ResolvedAddress
	transport Transport
	cancel    context.CancelFunc
	timer     *time.Timer
	sentAt    time.Time

	// replyID is the identifier replies must carry. It differs from id when the kernel rewrites it.
	replyID uint16

	// results receives the single result, then is closed. Stop closes it empty.
	results chan Result

	// done is closed once the session reached a terminal state and delivered its result.
	done chan struct{}

	// stHandlers are the callback functions called when the host has been resolved.
	stHandlers []func(*Session, *ResolvedAddress)

	// sendHandlers are the callback functions called after the echo request was sent.
	sendHandlers []func(*Session, []byte, uint16)

	// unexpectedHandlers are the callback functions called for every datagram that did not match.
	unexpectedHandlers []func(*Session, []byte)

	// resultHandlers are the callback functions called with the result, before it is sent on Result.
	resultHandlers []func(*Session, *Result)
}

// NewSession creates a new Session for host. Nothing happens on the network until Start.
func NewSession(host string, settings *Settings) (*Session, error) {
	if err := settings.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	id := uint16(rand.Uint32())
	logger := sessionLogger(settings.LoggingLevel, host, id)

	session := &Session{
		settings: settings,
		host:     host,
		id:       id,
		resolver: &NetResolver{},
		open:     OpenSocketTransport,
		logger:   logger,
		state:    StateIdle,
		replyID:  id,
		results:  make(chan Result, 1),
		done:     make(chan struct{}),
	}

	logger.Debugf("Created session with timeout %s, family %s, privileged %t",
		settings.Timeout, settings.Family, settings.Privileged)

	return session, nil
}

// SetResolver replaces the resolver. It must be called before Start.
func (s *Session) SetResolver(r Resolver) {
	s.resolver = r
}

// SetTransportOpener replaces the function opening the socket. It must be called before Start.
func (s *Session) SetTransportOpener(open TransportOpener) {
	s.open = open
}

// AddStartHandler adds a handler function that will be called once the host is resolved
func (s *Session) AddStartHandler(handler func(*Session, *ResolvedAddress)) {
	s.stHandlers = append(s.stHandlers, handler)
}

// AddSendHandler adds a handler function that will be called after the echo request is sent
func (s *Session) AddSendHandler(handler func(*Session, []byte, uint16)) {
	s.sendHandlers = append(s.sendHandlers, handler)
}

// AddUnexpectedHandler adds a handler function that will be called for each datagram that is not our reply
func (s *Session) AddUnexpectedHandler(handler func(*Session, []byte)) {
	s.unexpectedHandlers = append(s.unexpectedHandlers, handler)
}

// AddResultHandler adds a handler function that will be called with the result of the session
func (s *Session) AddResultHandler(handler func(*Session, *Result)) {
	s.resultHandlers = append(s.resultHandlers, handler)
}

// Host is the host name this session pings
func (s *Session) Host() string {
	return s.host
}

// ID is the echo identifier of this session
func (s *Session) ID() uint16 {
	return s.id
}

// Address is the resolved address of the target host, nil until resolution completes
func (s *Session) Address() *ResolvedAddress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// State returns the current state of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the channel the result is delivered on. It yields at most one value and is
// closed when the session ends, without a value if the session was stopped.
func (s *Session) Result() <-chan Result {
	return s.results
}

// Done is closed once the session reached a terminal state and delivered its result, if any.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session reached a terminal state.
func (s *Session) Wait() {
	<-s.done
}

// Start starts the session. Cancelling ctx stops it the same way Stop does.
// It returns false, doing nothing, if the session is not idle.
func (s *Session) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		s.logger.Debugf("Ignoring start request, session is %s", state)
		return false
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.state = StateResolving
	s.timer = time.AfterFunc(s.settings.Timeout, s.handleTimeout)
	s.mu.Unlock()

	s.logger.Info("Session started")
	go s.run(ctx)

	return true
}

// Stop tears the session down without delivering a result. It does nothing once the session
// has ended.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.state.terminal() {
		s.mu.Unlock()
		return
	}

	s.logger.Infof("Stopping session while %s", s.state)
	s.state = StateStopped
	tr := s.teardownLocked()
	s.mu.Unlock()

	s.closeTransport(tr)
	close(s.results)
	close(s.done)
}

// run drives the session from resolution to the reply. It is the only goroutine that sends
// and reads datagrams.
func (s *Session) run(ctx context.Context) {
	s.logger.Infof("Resolving host %s (family %s)", s.host, s.settings.Family)

	addr, err := s.resolver.Resolve(ctx, s.host, s.settings.Family)
	if ctx.Err() != nil {
		s.Stop()
		return
	}
	if err != nil {
		s.fail(ErrResolutionFailed, err)
		return
	}

	if !s.transition(StateResolving, StateSending, func() { s.addr = addr }) {
		return
	}
	s.logger.Infof("Host %s resolved to %s", s.host, addr)

	for _, f := range s.stHandlers {
		f(s, addr)
	}

	tr, err := s.open(addr, s.settings)
	if err != nil {
		s.fail(ErrSocketCreateFailed, err)
		return
	}
	if !s.attach(tr) {
		s.closeTransport(tr)
		return
	}
	s.logger.Debug("Socket opened")

	if !s.sendEchoRequest(tr, addr) {
		return
	}

	s.await(ctx, tr)
}

// sendEchoRequest sends the single request of the session and moves it to AwaitingReply.
func (s *Session) sendEchoRequest(tr Transport, addr *ResolvedAddress) bool {
	seq := s.seq.Next()
	pkt := BuildEchoRequest(echoRequestType(addr.Family), s.id, seq, s.settings.payload(seq), addr.Family == FamilyIPv4)

	s.mu.Lock()
	s.sentAt = time.Now()
	s.mu.Unlock()

	s.logger.Tracef("Writing ICMP message %x to address %s", pkt, addr)
	n, err := tr.Send(pkt)

	// request failing or not, the sequence number is used up
	s.seq.Advance()

	if err != nil {
		s.fail(ErrSendFailed, err)
		return false
	}
	if n != len(pkt) {
		s.fail(ErrSendFailed, fmt.Errorf("wrote %d of %d bytes", n, len(pkt)))
		return false
	}

	replyID := s.id
	if rw, ok := tr.(identifierRewriter); ok {
		if id, ok := rw.Identifier(); ok {
			s.logger.Debugf("Socket rewrites the echo identifier to %d", id)
			replyID = id
		}
	}

	if !s.transition(StateSending, StateAwaitingReply, func() { s.replyID = replyID }) {
		return false
	}
	s.logger.Infof("Sent echo request with sequence %d, awaiting reply", seq)

	for _, f := range s.sendHandlers {
		f(s, pkt, seq)
	}

	return true
}

// await hands every inbound datagram to handleDatagram until the session ends.
func (s *Session) await(ctx context.Context, tr Transport) {
	for {
		select {
		case dg, ok := <-tr.Datagrams():
			if !ok {
				return
			}
			s.handleDatagram(dg)
		case err := <-tr.Errors():
			s.fail(ErrReadFailed, err)
			return
		case <-ctx.Done():
			s.Stop()
			return
		}
	}
}

// handleDatagram completes the session if dg is the reply it is waiting for, and reports it
// as unexpected otherwise.
func (s *Session) handleDatagram(dg Datagram) {
	acceptedAt := time.Now()

	s.mu.Lock()
	if state := s.state; state != StateAwaitingReply {
		s.mu.Unlock()
		s.logger.Tracef("Ignoring datagram, session is %s", state)
		return
	}
	id, family, sentAt := s.replyID, s.addr.Family, s.sentAt
	s.mu.Unlock()

	var reply EchoReply
	var ok bool
	if family == FamilyIPv4 && !dg.IPHeader {
		reply, ok = ValidateICMPv4Reply(dg.Bytes, id, s.seq.Valid)
	} else {
		reply, ok = ValidateReply(dg.Bytes, id, family, s.seq.Valid)
	}

	if !ok {
		s.logger.Debugf("Received datagram of %d bytes from %s that is not our reply", len(dg.Bytes), dg.Source)
		s.settings.Metrics.observeUnexpected()
		for _, f := range s.unexpectedHandlers {
			f(s, dg.Bytes)
		}
		return
	}

	s.complete(&Result{
		Status:   Succeeded,
		Latency:  acceptedAt.Sub(sentAt),
		Sequence: reply.Sequence,
		Len:      len(reply.Packet),
		Source:   dg.Source,
	})
}

// handleTimeout is called by the timer armed in Start.
func (s *Session) handleTimeout() {
	s.logger.Info("Timeout timer has fired")
	s.complete(&Result{
		Status: TimedOut,
		Err:    fmt.Errorf("%w after %s", ErrTimedOut, s.settings.Timeout),
	})
}

// fail ends the session with an error of the given kind.
func (s *Session) fail(kind error, err error) {
	if !errors.Is(err, kind) {
		err = fmt.Errorf("%w: %v", kind, err)
	}
	s.logger.Errorf("Session failed: %s", err)
	s.complete(&Result{Status: Failed, Err: err})
}

// complete moves the session to the terminal state of res, tears it down and delivers res.
// Only the first call has any effect.
func (s *Session) complete(res *Result) {
	s.mu.Lock()
	if state := s.state; state.terminal() {
		s.mu.Unlock()
		s.logger.Debugf("Dropping %s result, session already %s", res.Status, state)
		return
	}

	s.state = res.Status.state()
	res.Host = s.host
	res.Addr = s.addr
	tr := s.teardownLocked()
	s.mu.Unlock()

	s.closeTransport(tr)
	s.logger.Infof("Session %s", res.Status)

	s.settings.Metrics.observeResult(res)
	for _, f := range s.resultHandlers {
		f(s, res)
	}

	s.results <- *res
	close(s.results)
	close(s.done)
}

// transition moves the session from one state to the next, applying update under the lock.
// It fails if the session has left from in the meantime.
func (s *Session) transition(from, to State, update func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != from {
		return false
	}
	if update != nil {
		update()
	}
	s.state = to
	return true
}

// attach records the open transport so teardown can close it.
func (s *Session) attach(tr Transport) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.terminal() {
		return false
	}
	s.transport = tr
	return true
}

// teardownLocked stops the timer, cancels the resolver and detaches the transport, which the
// caller must close after releasing the lock.
func (s *Session) teardownLocked() Transport {
	stopTimer(s.timer)
	if s.cancel != nil {
		s.cancel()
	}

	tr := s.transport
	s.transport = nil
	return tr
}

func (s *Session) closeTransport(tr Transport) {
	if tr == nil {
		return
	}
	if err := tr.Close(); err != nil {
		s.logger.Warnf("Could not close socket: %s", err)
	}
}
