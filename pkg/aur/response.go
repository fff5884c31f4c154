package aur

import "encoding/json"

// ResponseWrapper pairs a typed response body with the wire-level outcome of
// the request that produced it. It is delivered to the user callback exactly
// once per wire request.
type ResponseWrapper[T any] struct {
	value  T
	status int
	err    string
}

// NewResponseWrapper builds a wrapper around a typed response value.
func NewResponseWrapper[T any](value T, status int, err string) ResponseWrapper[T] {
	return ResponseWrapper[T]{value: value, status: status, err: err}
}

// Value returns the typed response body.
func (r ResponseWrapper[T]) Value() T { return r.value }

// Status returns the HTTP status code, the subprocess exit status, or a
// negative value for setup failures.
func (r ResponseWrapper[T]) Status() int { return r.status }

// Error returns the transport- or subprocess-level error message, empty on
// success. Status-level failures (e.g. HTTP 404) are not reported here.
func (r ResponseWrapper[T]) Error() string { return r.err }

// Ok reports whether the wire request itself succeeded.
func (r ResponseWrapper[T]) Ok() bool { return r.err == "" }

// RpcResponse is the decoded body of an RPC query.
//
// Decoding failures are recorded in the Error field rather than reported
// through the dispatcher's status/error channel; the RPC interface uses the
// same field for server-side query errors.
type RpcResponse struct {
	Type        string
	Version     int
	ResultCount int
	Results     []Package
	Error       string
}

type rpcResponseWire struct {
	Type        string    `json:"type"`
	Version     int       `json:"version"`
	ResultCount int       `json:"resultcount"`
	Results     []Package `json:"results"`
	Error       string    `json:"error"`
}

// ParseRpcResponse decodes an accumulated RPC response body.
func ParseRpcResponse(body []byte) RpcResponse {
	var wire rpcResponseWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return RpcResponse{Error: "malformed RPC response: " + err.Error()}
	}
	return RpcResponse{
		Type:        wire.Type,
		Version:     wire.Version,
		ResultCount: wire.ResultCount,
		Results:     wire.Results,
		Error:       wire.Error,
	}
}

// RawResponse is the accumulated body of a raw-path or tarball fetch.
type RawResponse struct {
	Bytes []byte
}

// CloneResponse records which repository operation ran.
type CloneResponse struct {
	// Operation is "clone" for a fresh checkout or "update" for a
	// fast-forward refresh of an existing one.
	Operation string
}
