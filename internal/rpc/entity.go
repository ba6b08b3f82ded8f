// Package rpc implements the JSON-RPC 2.0 wire entities exchanged with the
// pipeline server: requests, notifications, responses and protocol errors.
//
// Params, results and ids are carried as raw JSON so that values chosen by
// the peer (string ids, arbitrary payload shapes) round-trip byte-for-byte.
package rpc

import (
	"encoding/json"
	"strconv"
)

// Version is stamped on every outgoing entity.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Entity is any parsed JSON-RPC message.
type Entity interface {
	entity()
}

// Request is a call that expects a Response with a matching id.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Notification is a call without an id; no reply is ever sent for it.
type Notification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response carries either a result or an error for the request with the
// same id.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object. Parse attaches the offending request id
// when it could be recovered from the input.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`

	requestID json.RawMessage
}

func (e *Error) Error() string { return e.Message }

// RequestID returns the id of the message that produced this error, or nil
// when none could be recovered.
func (e *Error) RequestID() json.RawMessage { return e.requestID }

func (*Request) entity()      {}
func (*Notification) entity() {}
func (*Response) entity()     {}

// Int64ID encodes an outbound request identifier as a raw JSON number.
func Int64ID(id int64) json.RawMessage {
	return json.RawMessage(strconv.FormatInt(id, 10))
}

// IDKey returns the correlation key for an id: its raw JSON bytes.
func IDKey(id json.RawMessage) string { return string(id) }

// NewRequest builds an outgoing request.
func NewRequest(id json.RawMessage, method string, params json.RawMessage) *Request {
	return &Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// NewNotification builds an outgoing notification.
func NewNotification(method string, params json.RawMessage) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

// NewResult builds a success response. A nil result is sent as JSON null,
// keeping the result member present as the protocol requires.
func NewResult(id json.RawMessage, result json.RawMessage) *Response {
	if result == nil {
		result = json.RawMessage("null")
	}
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse builds an error response. A nil id is sent as JSON null,
// used when the faulty input's id could not be recovered.
func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: Version, ID: id, Error: rpcErr}
}

// Encode serializes an entity to its wire form.
func Encode(e Entity) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
