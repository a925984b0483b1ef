// Package status wraps errors with a gRPC status code so the same error
// value can be inspected by kind (ConfigError, JsonError, ...) and also
// propagated as a JSON-RPC error response by the transport layer.
package status

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type kind int

const (
	kindConfig kind = iota
	kindJSON
	kindBazel
	kindCustom
	kindJSONRPC
)

var kindNames = map[kind]string{
	kindConfig:  "ConfigError",
	kindJSON:    "JsonError",
	kindBazel:   "BazelError",
	kindCustom:  "Custom",
	kindJSONRPC: "JsonRpcError",
}

// statusError pairs a gRPC code (for generic callers that only care whether
// something failed) with the domain-specific error kind.
type statusError struct {
	code    codes.Code
	kind    kind
	err     error
	rpcCode int // JSON-RPC numeric code, only meaningful when kind == kindJSONRPC
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s", kindNames[e.kind], e.err.Error())
}

func (e *statusError) Unwrap() error { return e.err }

func (e *statusError) GRPCStatus() *status.Status {
	return status.New(e.code, e.err.Error())
}

// RPCCode returns the JSON-RPC numeric error code to use when this error is
// surfaced on a request; 0 if this is not a JsonRpcError.
func RPCCode(err error) int {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.rpcCode
	}
	return 0
}

func make(k kind, code codes.Code, err error) error {
	return &statusError{code: code, kind: k, err: errors.WithStack(err)}
}

func makeMsg(k kind, code codes.Code, msg string) error {
	return make(k, code, stderrors.New(msg))
}

func is(k kind, err error) bool {
	var se *statusError
	if stderrors.As(err, &se) {
		return se.kind == k
	}
	return false
}

// ConfigError — missing or malformed buildServer.json, invalid root URI.
func ConfigError(msg string) error { return makeMsg(kindConfig, codes.InvalidArgument, msg) }
func ConfigErrorf(format string, a ...interface{}) error {
	return makeMsg(kindConfig, codes.InvalidArgument, fmt.Sprintf(format, a...))
}
func IsConfigError(err error) bool { return is(kindConfig, err) }

// JsonError — decoding failures for config or aquery output.
func JSONError(msg string) error { return makeMsg(kindJSON, codes.Internal, msg) }
func JSONErrorf(format string, a ...interface{}) error {
	return makeMsg(kindJSON, codes.Internal, fmt.Sprintf(format, a...))
}
func IsJSONError(err error) bool { return is(kindJSON, err) }

// BazelError — aquery output not UTF-8 decodable, or the bazel process itself failed.
func BazelError(msg string) error { return makeMsg(kindBazel, codes.Internal, msg) }
func BazelErrorf(format string, a ...interface{}) error {
	return makeMsg(kindBazel, codes.Internal, fmt.Sprintf(format, a...))
}
func IsBazelError(err error) bool { return is(kindBazel, err) }

// CustomError — empty aquery output, empty configuration, unrecognized SDK
// platform, JSON object of unexpected shape.
func CustomError(msg string) error { return makeMsg(kindCustom, codes.Unknown, msg) }
func CustomErrorf(format string, a ...interface{}) error {
	return makeMsg(kindCustom, codes.Unknown, fmt.Sprintf(format, a...))
}
func IsCustomError(err error) bool { return is(kindCustom, err) }

// JSON-RPC numeric codes per the JSON-RPC 2.0 spec, as used by BSP/LSP.
const (
	RPCParseError     = -32700
	RPCInvalidRequest = -32600
	RPCMethodNotFound = -32601
	RPCInvalidParams  = -32602
	RPCInternalError  = -32603
)

// JsonRpcError — upstream protocol-level mismatches (missing params, invalid
// request, method not found).
func JSONRPCError(rpcCode int, msg string) error {
	return &statusError{code: codes.InvalidArgument, kind: kindJSONRPC, err: errors.WithStack(stderrors.New(msg)), rpcCode: rpcCode}
}
func JSONRPCErrorf(rpcCode int, format string, a ...interface{}) error {
	return JSONRPCError(rpcCode, fmt.Sprintf(format, a...))
}
func IsJSONRPCError(err error) bool { return is(kindJSONRPC, err) }
