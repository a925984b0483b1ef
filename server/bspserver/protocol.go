// Package bspserver implements the BSP JSON-RPC surface: the envelope
// types, the method dispatch table, and the stdio transport that frames
// messages with Content-Length headers.
package bspserver

import (
	"encoding/json"
	"net/url"

	"github.com/sean7218/bazel-sourcekit-bsp/server/bazelengine"
	"github.com/sean7218/bazel-sourcekit-bsp/server/bspadapter"
	"github.com/sean7218/bazel-sourcekit-bsp/server/bspconfig"
	"github.com/sean7218/bazel-sourcekit-bsp/server/targetbuilder"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/log"
	"github.com/sean7218/bazel-sourcekit-bsp/server/util/status"
)

const jsonRPCVersion = "2.0"

// Request is an incoming JSON-RPC request or notification; ID is nil for
// notifications.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether this message carries no id and therefore
// expects no response.
func (r Request) IsNotification() bool { return len(r.ID) == 0 }

// rpcError is the JSON-RPC error object shape.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Notification is an outgoing JSON-RPC notification (no id).
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func successResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: jsonRPCVersion, ID: id, Result: result}
}

func errorResponse(id json.RawMessage, err error) Response {
	code := status.RPCCode(err)
	if code == 0 {
		code = status.RPCInternalError
	}
	return Response{JSONRPC: jsonRPCVersion, ID: id, Error: &rpcError{Code: code, Message: err.Error()}}
}

func newNotification(method string, params any) Notification {
	return Notification{JSONRPC: jsonRPCVersion, Method: method, Params: params}
}

// InitializeBuildResult is the response to build/initialize.
type InitializeBuildResult struct {
	DisplayName  string                    `json:"displayName"`
	Version      string                    `json:"version"`
	BSPVersion   string                    `json:"bspVersion"`
	Capabilities BuildServerCapabilities   `json:"capabilities"`
	Data         InitializeBuildResultData `json:"data"`
}

// BuildServerCapabilities mirrors the capability booleans clients check
// before issuing the corresponding request.
type BuildServerCapabilities struct {
	CompileProvider            *CompileProvider `json:"compileProvider,omitempty"`
	DependencySourcesProvider  bool             `json:"dependencySourcesProvider"`
	ResourcesProvider          bool             `json:"resourcesProvider"`
	BuildTargetChangedProvider bool             `json:"buildTargetChangedProvider"`
}

// CompileProvider lists the languages this server can compile for.
type CompileProvider struct {
	LanguageIDs []string `json:"languageIds"`
}

// InitializeBuildResultData is the server-specific data payload nested in
// InitializeBuildResult; SourceKit-LSP reads these fields directly off
// build/initialize's response to locate the index store and learn which
// BSP extension methods this server supports.
type InitializeBuildResultData struct {
	IndexDatabasePath        string   `json:"indexDatabasePath"`
	IndexStorePath           string   `json:"indexStorePath"`
	OutputPathsProvider      bool     `json:"outputPathsProvider"`
	PrepareProvider          bool     `json:"prepareProvider"`
	SourceKitOptionsProvider bool     `json:"sourceKitOptionsProvider"`
	DefaultSettings          []string `json:"defaultSettings,omitempty"`
}

// initializeParams is the subset of build/initialize's params this server
// reads; clients send more (capabilities, originId) that are ignored.
type initializeParams struct {
	RootURI string `json:"rootUri"`
}

// sourcesParams is the params shape for buildTarget/sources.
type sourcesParams struct {
	Targets []bspadapter.BuildTargetIdentifier `json:"targets"`
}

// sourceKitOptionsParams is the params shape for
// textDocument/sourceKitOptions.
type sourceKitOptionsParams struct {
	TextDocument struct {
		URI string `json:"uri"`
	} `json:"textDocument"`
	Target bspadapter.BuildTargetIdentifier `json:"target"`
}

// registerForChangesParams is the params shape for
// textDocument/registerForChanges.
type registerForChangesParams struct {
	URI    string `json:"uri"`
	Action string `json:"action"`
}

// prepareParams is the params shape for buildTarget/prepare.
type prepareParams struct {
	Targets []bspadapter.BuildTargetIdentifier `json:"targets"`
}

// Server dispatches incoming BSP requests/notifications to the adapter and
// tracks the initialize/shutdown/exit handshake state.
type Server struct {
	Config   *bspconfig.Config
	Adapter  *bspadapter.Adapter
	Engine   *bazelengine.Engine
	Execroot string
	Logger   log.Sink

	// workspaceRoot is the filesystem path of the client's rootUri, recorded
	// by build/initialize.
	workspaceRoot string

	initialized bool
	exited      bool
}

// NewServer constructs a Server for cfg, backed by adapter and engine, with
// the resolved Bazel execution root execroot used to compute index store
// paths.
func NewServer(cfg *bspconfig.Config, adapter *bspadapter.Adapter, engine *bazelengine.Engine, execroot string, logger log.Sink) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Config: cfg, Adapter: adapter, Engine: engine, Execroot: execroot, Logger: logger}
}

// ShouldExit reports whether build/exit has been received; the transport
// read loop stops once this returns true.
func (s *Server) ShouldExit() bool { return s.exited }

// Handle dispatches one decoded request and returns the Response to send,
// or nil if req is a notification that produces no response. send is used
// for asynchronous notifications the handler itself emits (e.g. the
// didChange notification fired after a cache refresh completes).
func (s *Server) Handle(req Request, send func(Notification) error) *Response {
	result, err := s.dispatch(req, send)
	if req.IsNotification() {
		if err != nil {
			s.Logger.Warningf("dropping notification %s: %s", req.Method, err)
		}
		return nil
	}
	if err != nil {
		resp := errorResponse(req.ID, err)
		return &resp
	}
	resp := successResponse(req.ID, result)
	return &resp
}

func (s *Server) dispatch(req Request, send func(Notification) error) (any, error) {
	switch req.Method {
	case "build/initialize":
		return s.handleInitialize(req.Params, send)
	case "build/initialized":
		s.initialized = true
		return nil, nil
	case "build/shutdown":
		return map[string]any{}, nil
	case "build/exit":
		s.exited = true
		return nil, nil
	case "workspace/buildTargets":
		return map[string]any{"targets": s.Adapter.BuildTargets()}, nil
	case "buildTarget/sources":
		var params sourcesParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, status.JSONRPCErrorf(status.RPCInvalidParams, "invalid buildTarget/sources params: %s", err)
		}
		uris := make([]string, 0, len(params.Targets))
		for _, t := range params.Targets {
			uris = append(uris, t.URI)
		}
		return map[string]any{"items": s.Adapter.Sources(uris)}, nil
	case "textDocument/sourceKitOptions":
		var params sourceKitOptionsParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, status.JSONRPCErrorf(status.RPCInvalidParams, "invalid textDocument/sourceKitOptions params: %s", err)
		}
		return s.Adapter.SourceKitOptions(params.Target.URI, s.workspaceRoot), nil
	case "textDocument/registerForChanges":
		var params registerForChangesParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, status.JSONRPCErrorf(status.RPCInvalidParams, "invalid textDocument/registerForChanges params: %s", err)
		}
		return s.Adapter.RegisterForChanges(params.URI), nil
	case "buildTarget/prepare":
		var params prepareParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, status.JSONRPCErrorf(status.RPCInvalidParams, "invalid buildTarget/prepare params: %s", err)
		}
		s.Adapter.Prepare(s.workspaceRoot)
		return map[string]any{}, nil
	case "workspace/didChangeWatchedFiles":
		changed := s.Adapter.DidChangeWatchedFiles()
		if send != nil && len(changed.Changes) > 0 {
			if err := send(newNotification("buildTarget/didChange", changed)); err != nil {
				s.Logger.Warningf("failed to send buildTarget/didChange: %s", err)
			}
		}
		return nil, nil
	default:
		return nil, status.JSONRPCErrorf(status.RPCMethodNotFound, "method not found: %s", req.Method)
	}
}

func (s *Server) handleInitialize(raw json.RawMessage, send func(Notification) error) (any, error) {
	var params initializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, status.JSONRPCErrorf(status.RPCInvalidParams, "invalid build/initialize params: %s", err)
	}
	root := params.RootURI
	if u, err := url.Parse(root); err == nil && u.Scheme == "file" {
		root = u.Path
	}
	s.workspaceRoot = root

	result := InitializeBuildResult{
		DisplayName: s.Config.Name,
		Version:     s.Config.Version,
		BSPVersion:  s.Config.BSPVersion,
		Capabilities: BuildServerCapabilities{
			CompileProvider:            &CompileProvider{LanguageIDs: s.Config.Languages},
			DependencySourcesProvider:  false,
			ResourcesProvider:          false,
			BuildTargetChangedProvider: true,
		},
		Data: InitializeBuildResultData{
			IndexDatabasePath:        s.Config.IndexDatabasePath,
			IndexStorePath:           bspconfig.IndexStorePath(s.Execroot),
			OutputPathsProvider:      false,
			PrepareProvider:          true,
			SourceKitOptionsProvider: true,
			DefaultSettings:          s.Config.DefaultSettings,
		},
	}

	completion := func(targets []targetbuilder.BazelTarget) {
		s.Adapter.SetTargets(targets)
		if send == nil {
			return
		}
		if err := send(newNotification("buildTarget/didChange", s.Adapter.DidChangeWatchedFiles())); err != nil {
			s.Logger.Warningf("failed to send buildTarget/didChange after target resolution: %s", err)
		}
	}
	if err := s.Engine.Execute(s.Config.Targets, root, s.Execroot, s.Config.AqueryArgs, completion); err != nil {
		return nil, status.JSONRPCErrorf(status.RPCInternalError, "failed to resolve build targets: %s", err)
	}

	return result, nil
}
