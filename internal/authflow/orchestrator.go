// Package authflow drives an out-of-band message authentication: request a
// code, have the user message it, then poll until the service sees it.
//
// Each flow yields exactly one Outcome on the channel returned by StartAuth
// or ResumeAuth, after which the channel is closed.
package authflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/msgauth/internal/autherr"
	"github.com/nextlevelbuilder/msgauth/internal/transport"
	"github.com/nextlevelbuilder/msgauth/pkg/protocol"
)

// Transport is the subset of the service client the orchestrator needs.
type Transport interface {
	InitAuth(ctx context.Context) (*protocol.InitAuthResponse, error)
	CheckAuth(ctx context.Context, requestID string) (*protocol.CheckAuthResponse, error)
	ValidateSession(ctx context.Context, token string) (*protocol.TokenValidationResponse, error)
}

// Options carries the collaborators supplied by the embedding environment.
// All fields are optional; a nil Dispatcher means the device cannot send.
type Options struct {
	Dispatcher Dispatcher
	Gate       InteractionGate
	Loader     LoadingIndicator

	// OnInit is called once the service has assigned a request id, before
	// dispatch. Persist the request to resume polling after a restart.
	OnInit func(req AuthRequest)
}

// Orchestrator runs at most one flow at a time.
type Orchestrator struct {
	cfg       Configuration
	transport Transport
	opts      Options

	pollInterval time.Duration
	now          func() time.Time

	mu     sync.Mutex
	active bool
	state  State
}

func New(cfg Configuration, t Transport, opts Options) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		transport:    t,
		opts:         opts,
		pollInterval: PollInterval,
		now:          time.Now,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// StartAuth begins a new flow.
func (o *Orchestrator) StartAuth(ctx context.Context) <-chan Outcome {
	out := make(chan Outcome, 1)

	if o.opts.Dispatcher == nil || !o.opts.Dispatcher.CanSendMessages() {
		slog.Warn("auth flow not started: device cannot send messages")
		o.failUnlessActive()
		deliver(out, failed(autherr.New(autherr.KindDeviceCantSendMessages)))
		return out
	}
	if !o.acquire(StateInitiating) {
		deliver(out, failed(autherr.New(autherr.KindFlowInProgress)))
		return out
	}

	o.engage()
	go o.run(ctx, out, o.start)
	return out
}

// ResumeAuth continues polling a request started earlier, with a fresh
// deadline. No message is dispatched.
func (o *Orchestrator) ResumeAuth(ctx context.Context, requestID string) <-chan Outcome {
	out := make(chan Outcome, 1)

	if !o.acquire(StatePolling) {
		deliver(out, failed(autherr.New(autherr.KindFlowInProgress)))
		return out
	}

	o.engage()
	go o.run(ctx, out, func(ctx context.Context) Outcome {
		slog.Info("auth flow resumed", "request_id", requestID)
		return o.poll(ctx, requestID, o.now().Add(o.cfg.RequestTimeout()))
	})
	return out
}

// ValidateSession asks the service whether token is still valid. A token the
// service rejects yields autherr.KindInvalidAuthToken.
func (o *Orchestrator) ValidateSession(ctx context.Context, token string) (*SessionInfo, error) {
	resp, err := o.transport.ValidateSession(ctx, token)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if !resp.Valid {
		return nil, autherr.New(autherr.KindInvalidAuthToken)
	}
	info := &SessionInfo{ServerValid: resp.Valid, ExpireDate: resp.ExpireDate}
	if resp.Contact != nil {
		info.Contact = *resp.Contact
	}
	return info, nil
}

func (o *Orchestrator) run(ctx context.Context, out chan<- Outcome, flow func(context.Context) Outcome) {
	outcome := flow(ctx)
	o.release(outcome)

	if outcome.Completed() {
		slog.Info("auth flow completed", "contact", outcome.Session.Contact, "expires", outcome.Session.ExpireDate)
	} else {
		slog.Info("auth flow failed", "kind", outcome.Failure.Kind.String(), "error", outcome.Failure)
	}
	deliver(out, outcome)
}

func (o *Orchestrator) start(ctx context.Context) Outcome {
	resp, err := o.transport.InitAuth(ctx)
	if err != nil {
		return failed(classify(ctx, err))
	}
	req := requestFromWire(resp)
	slog.Info("auth request initiated", "request_id", req.RequestID, "sender", req.SenderName)

	if o.opts.OnInit != nil {
		o.opts.OnInit(req)
	}

	o.setState(StateAwaitingDispatch)
	result := o.opts.Dispatcher.Dispatch(ctx, req)
	slog.Debug("auth message dispatch", "request_id", req.RequestID, "result", result.String())

	switch result {
	case DispatchSent:
	case DispatchCancelled:
		return failed(autherr.New(autherr.KindCanceledByUser))
	default:
		return failed(autherr.New(autherr.KindMessageSendFailed))
	}
	if err := ctx.Err(); err != nil {
		return failed(autherr.Wrap(autherr.KindCanceledByUser, err))
	}

	o.setState(StatePolling)
	return o.poll(ctx, req.RequestID, o.now().Add(o.cfg.RequestTimeout()))
}

// poll checks the request status every pollInterval until a terminal status,
// an error, or the deadline. The deadline is checked before each call; a
// call already in flight is allowed to finish.
func (o *Orchestrator) poll(ctx context.Context, requestID string, deadline time.Time) Outcome {
	timer := time.NewTimer(o.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return failed(autherr.Wrap(autherr.KindCanceledByUser, ctx.Err()))
		case <-timer.C:
		}

		if o.now().After(deadline) {
			return failed(autherr.New(autherr.KindRequestTimeout))
		}

		resp, err := o.transport.CheckAuth(ctx, requestID)
		switch {
		case err == nil:
		case ctx.Err() == nil && errors.Is(err, transport.ErrSuperseded):
			slog.Debug("status check superseded, rescheduling", "request_id", requestID)
			timer.Reset(o.pollInterval)
			continue
		default:
			return failed(classify(ctx, err))
		}

		switch resp.Status {
		case protocol.StatusPending, protocol.StatusProcessing:
			slog.Debug("auth request not yet confirmed", "request_id", requestID, "status", string(resp.Status))
			timer.Reset(o.pollInterval)
		case protocol.StatusTimeout:
			return failed(autherr.New(autherr.KindRequestTimeout))
		case protocol.StatusCompleted:
			if resp.SessionToken == nil || resp.Contact == nil || resp.ExpireDate == nil {
				return failed(autherr.New(autherr.KindTokenAlreadyRead))
			}
			return completed(SessionToken{
				Token:      *resp.SessionToken,
				ExpireDate: *resp.ExpireDate,
				Contact:    *resp.Contact,
			})
		default:
			return failed(autherr.New(autherr.KindUnableToHandleResponse))
		}
	}
}

func (o *Orchestrator) acquire(s State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active {
		return false
	}
	o.active = true
	o.state = s
	return true
}

// failUnlessActive records a flow that failed before it acquired the
// orchestrator. A running flow keeps its state.
func (o *Orchestrator) failUnlessActive() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active {
		o.state = StateFailed
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// engage locks the gate and shows the loader as configured.
func (o *Orchestrator) engage() {
	if o.cfg.LockInteraction() && o.opts.Gate != nil {
		o.opts.Gate.Lock()
	}
	if o.cfg.ShowLoader() && o.opts.Loader != nil {
		o.opts.Loader.Show()
	}
}

// release undoes engage and marks the orchestrator idle for the next flow.
func (o *Orchestrator) release(outcome Outcome) {
	if o.cfg.ShowLoader() && o.opts.Loader != nil {
		o.opts.Loader.Hide()
	}
	if o.cfg.LockInteraction() && o.opts.Gate != nil {
		o.opts.Gate.Unlock()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.active = false
	if outcome.Completed() {
		o.state = StateCompleted
	} else {
		o.state = StateFailed
	}
}

// classify turns any error into the taxonomy. Cancellation of ctx wins over
// whatever the transport reported.
func classify(ctx context.Context, err error) *autherr.Error {
	if cerr := ctx.Err(); cerr != nil {
		return autherr.Wrap(autherr.KindCanceledByUser, cerr)
	}
	var ae *autherr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return autherr.Wrap(autherr.KindUnableToHandleResponse, err)
}

func deliver(out chan<- Outcome, outcome Outcome) {
	out <- outcome
	close(out)
}
