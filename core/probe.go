package core

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

// errProbeSucceeded cancels the remaining probes once one of them succeeded.
var errProbeSucceeded = errors.New("probe succeeded")

// PingOnce pings host once with the default settings and the given timeout. The returned channel
// yields the result, or is closed empty if ctx is cancelled first.
func PingOnce(ctx context.Context, host string, timeout time.Duration) (<-chan Result, error) {
	settings := DefaultSettings()
	settings.Timeout = timeout
	return PingWith(ctx, host, settings)
}

// PingWith is PingOnce with explicit settings.
func PingWith(ctx context.Context, host string, settings *Settings) (<-chan Result, error) {
	s, err := NewSession(host, settings)
	if err != nil {
		return nil, err
	}

	s.Start(ctx)
	return s.Result(), nil
}

// Ping pings host once and waits for the result. It returns ctx.Err() if ctx is cancelled before
// the session delivers one.
func Ping(ctx context.Context, host string, timeout time.Duration) (*Result, error) {
	ch, err := PingOnce(ctx, host, timeout)
	if err != nil {
		return nil, err
	}

	res, ok := <-ch
	if !ok {
		return nil, ctx.Err()
	}
	return &res, nil
}

// Probe is a single reachability check.
type Probe interface {
	// Probe returns whether the check passed. It must return promptly once ctx is cancelled.
	Probe(ctx context.Context) bool
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) bool

// Probe calls f(ctx).
func (f ProbeFunc) Probe(ctx context.Context) bool {
	return f(ctx)
}

// ICMPProbe pings Host once. A nil Settings uses DefaultSettings.
type ICMPProbe struct {
	Host     string
	Settings *Settings
}

// Probe returns whether Host replied before the timeout.
func (p *ICMPProbe) Probe(ctx context.Context) bool {
	settings := p.Settings
	if settings == nil {
		settings = DefaultSettings()
	}

	ch, err := PingWith(ctx, p.Host, settings)
	if err != nil {
		return false
	}

	res, ok := <-ch
	return ok && res.Succeeded()
}

// FirstSuccess runs the probes concurrently. The first one to pass cancels the others and makes
// FirstSuccess return true once they returned. It returns false only after every probe has
// finished without passing.
func FirstSuccess(ctx context.Context, probes ...Probe) bool {
	g, gctx := errgroup.WithContext(ctx)

	for _, p := range probes {
		p := p
		g.Go(func() error {
			if p.Probe(gctx) {
				return errProbeSucceeded
			}
			return nil
		})
	}

	return errors.Is(g.Wait(), errProbeSucceeded)
}
