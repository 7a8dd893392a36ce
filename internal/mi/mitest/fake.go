// Package mitest provides a scripted MI gateway for tests.
package mitest

import (
	"context"
	"fmt"
	"sync"

	"github.com/matthewbaird/ioncon/internal/mi"
)

// Call is one recorded Execute invocation.
type Call struct {
	Program     string
	Transaction string
	Request     mi.Request
	Options     mi.CallOptions
}

// Handler answers one call.
type Handler func(req mi.Request) (*mi.Response, error)

// Gateway is a scripted mi.Gateway. Handlers are registered per
// "PROGRAM.TRANSACTION"; a queue of handlers is consumed in order and the last
// one repeats.
type Gateway struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	calls    []Call
}

// New creates an empty fake gateway.
func New() *Gateway {
	return &Gateway{handlers: make(map[string][]Handler)}
}

// On appends handlers for program.transaction.
func (g *Gateway) On(program, transaction string, hs ...Handler) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := program + "." + transaction
	g.handlers[key] = append(g.handlers[key], hs...)
	return g
}

// Items returns a handler that answers with the given rows.
func Items(rows ...mi.Record) Handler {
	return func(req mi.Request) (*mi.Response, error) {
		return mi.NewResponse("", "", rows), nil
	}
}

// Fail returns a handler that answers with an MI error.
func Fail(code, field, message string) Handler {
	return func(req mi.Request) (*mi.Response, error) {
		return nil, &mi.Error{ErrorCode: code, ErrorField: field, ErrorMessage: message}
	}
}

// Execute implements mi.Gateway.
func (g *Gateway) Execute(_ context.Context, program, transaction string, req mi.Request, opts ...mi.Option) (*mi.Response, error) {
	g.mu.Lock()
	g.calls = append(g.calls, Call{
		Program:     program,
		Transaction: transaction,
		Request:     req.Clone(),
		Options:     mi.ApplyOptions(opts),
	})
	key := program + "." + transaction
	queue := g.handlers[key]
	var h Handler
	if len(queue) > 0 {
		h = queue[0]
		if len(queue) > 1 {
			g.handlers[key] = queue[1:]
		}
	}
	g.mu.Unlock()

	if h == nil {
		return mi.NewResponse(program, transaction, nil), nil
	}
	resp, err := h(req)
	if err != nil {
		if miErr, ok := err.(*mi.Error); ok {
			cp := *miErr
			cp.Program, cp.Transaction, cp.RequestData = program, transaction, req.Clone()
			return nil, &cp
		}
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if resp != nil {
		resp.Program, resp.Transaction = program, transaction
	}
	return resp, nil
}

// Calls returns the recorded calls in order.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallsTo returns the recorded calls to program.transaction.
func (g *Gateway) CallsTo(program, transaction string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if c.Program == program && c.Transaction == transaction {
			out = append(out, c)
		}
	}
	return out
}
