// Package core exposes the protocol as a service: every operation runs as one
// atomic state update with the engines wired to the same transaction, and is
// traced, measured and logged on the way out.
package core

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/native/crowdsale"
	"ideacapital/native/dividend"
	"ideacapital/native/governance"
	"ideacapital/native/ipnft"
	"ideacapital/native/marketplace"
	"ideacapital/native/reputation"
	"ideacapital/native/royalty"
	"ideacapital/native/token"
	"ideacapital/observability"
	"ideacapital/storage"
)

// Node is the entry point for callers of the protocol.
type Node struct {
	mgr    *state.Manager
	logger *slog.Logger
	tracer trace.Tracer
	nowFn  func() time.Time
}

// Option customises a Node.
type Option func(*Node)

// WithLogger routes operation logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithClock replaces the wall clock used for deadlines, timestamps and event
// times.
func WithClock(now func() time.Time) Option {
	return func(n *Node) {
		if now != nil {
			n.nowFn = now
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(n *Node) {
		if tracer != nil {
			n.tracer = tracer
		}
	}
}

// NewNode opens the protocol over db.
func NewNode(db storage.Database, opts ...Option) *Node {
	n := &Node{
		mgr:    state.NewManager(db),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: otel.Tracer("ideacapital/core"),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(n)
	}
	n.mgr.SetNowFunc(n.nowFn)
	return n
}

// State exposes the state manager for event log readers.
func (n *Node) State() *state.Manager { return n.mgr }

// Now returns the node clock.
func (n *Node) Now() time.Time { return n.nowFn() }

// engines is one set of protocol engines bound to a single transaction.
type engines struct {
	tx          *state.Tx
	ledger      *token.Engine
	royalty     *royalty.Engine
	reputation  *reputation.Engine
	crowdsale   *crowdsale.Engine
	dividend    *dividend.Engine
	governance  *governance.Engine
	marketplace *marketplace.Engine
	ipnft       *ipnft.Engine
}

type wired interface {
	SetState(token.State)
	SetEmitter(events.Emitter)
	SetNowFunc(func() time.Time)
}

func (n *Node) bind(tx *state.Tx) *engines {
	x := &engines{
		tx:          tx,
		ledger:      token.NewEngine(),
		royalty:     royalty.NewEngine(),
		reputation:  reputation.NewEngine(),
		crowdsale:   crowdsale.NewEngine(),
		dividend:    dividend.NewEngine(),
		governance:  governance.NewEngine(),
		marketplace: marketplace.NewEngine(),
		ipnft:       ipnft.NewEngine(),
	}
	for _, e := range []wired{x.ledger, x.royalty, x.reputation, x.crowdsale, x.dividend, x.governance, x.marketplace, x.ipnft} {
		e.SetState(tx)
		e.SetEmitter(tx)
		e.SetNowFunc(n.nowFn)
	}
	return x
}

// update runs fn as one atomic operation on behalf of caller. Nothing fn
// wrote or emitted survives an error. Protocol contracts hold escrow and only
// move it through their own engines, so they are never accepted as callers.
func (n *Node) update(ctx context.Context, op string, caller common.Address, fn func(x *engines) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, span := n.tracer.Start(ctx, "protocol."+op)
	defer span.End()

	start := time.Now()
	records, err := n.mgr.Update(func(tx *state.Tx) error {
		if _, isContract, err := tx.Contract(caller); err != nil {
			return err
		} else if isContract {
			return protoerrors.ErrContractCaller
		}
		return fn(n.bind(tx))
	})
	observability.Protocol().ObserveOperation(op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if protoerrors.KindOf(err) == protoerrors.KindUnknown {
			n.logger.Error("operation failed", "operation", op, "error", err)
		} else {
			n.logger.Debug("operation rejected", "operation", op, "error", err, "kind", protoerrors.KindOf(err).String())
		}
		return err
	}
	var last uint64
	for _, rec := range records {
		observability.Events().RecordCommitted(rec.Event.Type, rec.Seq)
		last = rec.Seq
	}
	span.SetAttributes(attribute.Int("protocol.events", len(records)), attribute.Int64("protocol.seq", int64(last)))
	n.logger.Info("operation committed", "operation", op, "events", len(records), "seq", last)
	return nil
}

// view runs fn against a read-only snapshot.
func (n *Node) view(ctx context.Context, fn func(x *engines) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return n.mgr.View(func(tx *state.Tx) error {
		return fn(n.bind(tx))
	})
}
