package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikaelmello/reachping/core"
)

// Runner is the struct that is responsible for running a single ping session
type Runner struct {
	session *core.Session
	sigch   chan os.Signal
}

// newRunner creates a runner with the initialized values
func newRunner(host string, settings *core.Settings) (*Runner, error) {
	session, err := core.NewSession(host, settings)
	if err != nil {
		return nil, err
	}

	session.AddStartHandler(printOnStart)
	session.AddResultHandler(printOnResult)

	return &Runner{
		session: session,
		sigch:   make(chan os.Signal, 1),
	}, nil
}

// Start starts the runner
func (r *Runner) Start() {
	r.handleSignals()
	r.session.Start(context.Background())
}

// RequestStop requests the stop of the session
func (r *Runner) RequestStop() {
	r.session.Stop()
}

// Wait blocks the caller until the session ends. ok is false if it was stopped before
// delivering a result.
func (r *Runner) Wait() (res core.Result, ok bool) {
	res, ok = <-r.session.Result()
	signal.Stop(r.sigch)
	return res, ok
}

// handleSignals stops the session on SIGINT or SIGTERM
func (r *Runner) handleSignals() {
	signal.Notify(r.sigch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-r.sigch:
			r.RequestStop()
		case <-r.session.Done():
		}
	}()
}
