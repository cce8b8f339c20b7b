// Package logctx decorates slog records with attributes describing the
// JSON-RPC message and exchange currently in flight on the context. Wrapping
// the application's handler in Handler means call sites never repeat the
// message metadata on every log line.
package logctx

import (
	"context"
	"log/slog"
)

type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if msg, ok := ctx.Value(rpcMsgKey{}).(*RPCMessage); ok {
		r.AddAttrs(slog.Group("rpc",
			slog.String("method", msg.Method),
			slog.String("id", msg.ID),
			slog.String("type", msg.Type),
		))
	}

	if ed, ok := ctx.Value(exchangeDataKey{}).(*ExchangeData); ok {
		r.AddAttrs(slog.Group("exchange",
			slog.String("id", ed.ExchangeID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type rpcMsgKey struct{}

// RPCMessage describes the inbound message being relayed: its method, its id's
// wire form (empty for notifications), and "request" or "notification".
type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func WithRPCMessage(ctx context.Context, msg *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcMsgKey{}, msg)
}

type exchangeDataKey struct{}

// ExchangeData carries the correlation id assigned to one upstream exchange.
type ExchangeData struct {
	ExchangeID string
}

func WithExchangeData(ctx context.Context, data *ExchangeData) context.Context {
	return context.WithValue(ctx, exchangeDataKey{}, data)
}
