package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parse classifies a raw inbound message as a Request, Notification or
// Response. A message with a method and an id is a Request; a method
// without an id is a Notification; an id with a result or error member and
// no method is a Response.
//
// A missing jsonrpc version tag is tolerated: the Python wsrpc_aiohttp
// server on the other end of the connection does not send one.
//
// On failure the returned *Error carries CodeParseError for malformed JSON
// and CodeInvalidRequest for a structurally invalid message, with the
// offending id attached when it was readable.
func Parse(text string) (Entity, *Error) {
	var probe struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
		Result  json.RawMessage `json:"result"`
		Error   *Error          `json:"error"`
	}
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, &Error{Code: CodeParseError, Message: fmt.Sprintf("parse error: %v", err)}
	}

	switch {
	case probe.Method != "" && hasID(probe.ID):
		return &Request{JSONRPC: probe.JSONRPC, ID: probe.ID, Method: probe.Method, Params: probe.Params}, nil
	case probe.Method != "":
		return &Notification{JSONRPC: probe.JSONRPC, Method: probe.Method, Params: probe.Params}, nil
	case hasID(probe.ID) && (probe.Result != nil || probe.Error != nil):
		return &Response{JSONRPC: probe.JSONRPC, ID: probe.ID, Result: probe.Result, Error: probe.Error}, nil
	}

	return nil, &Error{Code: CodeInvalidRequest, Message: "invalid request", requestID: probe.ID}
}

func hasID(id json.RawMessage) bool {
	return len(id) > 0 && !bytes.Equal(id, []byte("null"))
}
