// Package mi is the client side of M3 MI transactions: named remote
// procedures, identified by a program and a transaction, that exchange flat
// field maps with the ERP backend.
package mi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Request holds the input fields of one transaction call.
type Request map[string]string

// Clone returns a copy of the request so callers can mutate it freely.
func (r Request) Clone() Request {
	out := make(Request, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// JSON renders the request for diagnostics. encoding/json sorts map keys, so
// the output is stable.
func (r Request) JSON() string {
	if r == nil {
		return "{}"
	}
	b, err := json.Marshal(map[string]string(r))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Record is one output row of a transaction.
type Record map[string]string

// Response is the result of a transaction. Item is the first record of Items,
// or nil when the transaction returned no rows.
type Response struct {
	Program     string   `json:"program"`
	Transaction string   `json:"transaction"`
	Item        Record   `json:"item,omitempty"`
	Items       []Record `json:"items"`
}

// NewResponse builds a response and fills Item from Items.
func NewResponse(program, transaction string, items []Record) *Response {
	if items == nil {
		items = []Record{}
	}
	resp := &Response{Program: program, Transaction: transaction, Items: items}
	if len(items) > 0 {
		resp.Item = items[0]
	}
	return resp
}

// Empty reports whether the response carries no rows.
func (r *Response) Empty() bool {
	return r == nil || len(r.Items) == 0
}

// Gateway executes MI transactions.
type Gateway interface {
	Execute(ctx context.Context, program, transaction string, req Request, opts ...Option) (*Response, error)
}

// GatewayFunc adapts a plain function to the Gateway interface.
type GatewayFunc func(ctx context.Context, program, transaction string, req Request, opts ...Option) (*Response, error)

func (f GatewayFunc) Execute(ctx context.Context, program, transaction string, req Request, opts ...Option) (*Response, error) {
	return f(ctx, program, transaction, req, opts...)
}

// CallOptions are the optional per-call settings.
type CallOptions struct {
	// MaxRecords limits the number of returned rows. Zero means no limit.
	MaxRecords int
	// MaxRecordsSet records whether MaxRecords was given explicitly.
	MaxRecordsSet bool
	// ReturnColumns restricts the output fields.
	ReturnColumns []string
}

// Option configures a single call.
type Option func(*CallOptions)

// MaxRecords sets the maximum number of rows; 0 requests all rows.
func MaxRecords(n int) Option {
	return func(o *CallOptions) {
		o.MaxRecords = n
		o.MaxRecordsSet = true
	}
}

// ReturnColumns restricts the returned fields.
func ReturnColumns(cols ...string) Option {
	return func(o *CallOptions) {
		o.ReturnColumns = append(o.ReturnColumns, cols...)
	}
}

// ApplyOptions folds opts into a CallOptions value.
func ApplyOptions(opts []Option) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Error is a failed transaction. It carries the call identity and input so a
// caller can render a diagnostic without further context.
type Error struct {
	Program      string  `json:"program"`
	Transaction  string  `json:"transaction"`
	RequestData  Request `json:"requestData"`
	ErrorCode    string  `json:"errorCode,omitempty"`
	ErrorField   string  `json:"errorField,omitempty"`
	ErrorMessage string  `json:"errorMessage"`
	// Err is the underlying transport error, if any.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("mi %s.%s: %s (%s)", e.Program, e.Transaction, e.ErrorMessage, e.ErrorCode)
	}
	return fmt.Sprintf("mi %s.%s: %s", e.Program, e.Transaction, e.ErrorMessage)
}

func (e *Error) Unwrap() error { return e.Err }

// Diagnostic renders the error the way the screen shows it:
// "API: <program>.<transaction>, Input: <json>, Error Code: <code>".
func (e *Error) Diagnostic() string {
	return "API: " + e.Program + "." + e.Transaction + ", Input: " + e.RequestData.JSON() + ", Error Code: " + e.ErrorCode
}

// AsError returns err as an *Error. Errors that are not MI errors are wrapped
// with the given call identity.
func AsError(err error, program, transaction string, req Request) *Error {
	if err == nil {
		return nil
	}
	var miErr *Error
	if errors.As(err, &miErr) {
		return miErr
	}
	return &Error{
		Program:      program,
		Transaction:  transaction,
		RequestData:  req,
		ErrorMessage: err.Error(),
		Err:          err,
	}
}

// IsCode reports whether err is an MI error with the given code.
func IsCode(err error, code string) bool {
	var miErr *Error
	return errors.As(err, &miErr) && miErr.ErrorCode == code
}
