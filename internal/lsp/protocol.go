// Package lsp implements the LSP client, spec.md §4.G: spawn a language
// server subprocess, handshake, watch indexing progress, then issue
// bounded-concurrency positional "external documentation" requests.
package lsp

import "encoding/json"

// Request is a JSON-RPC 2.0 request object.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Notification is a JSON-RPC 2.0 notification (no id, no response).
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response object, either carrying a result or
// an error, never both.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Envelope is used to sniff an incoming frame before deciding whether it's
// a Response (has "id" and one of result/error) or a server-initiated
// Notification/Request (has "method").
type Envelope struct {
	ID     *int64          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ResponseError  `json:"error,omitempty"`
}

// Position is an LSP zero-based line/character position.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// TextDocumentIdentifier identifies an open document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// TextDocumentItem is the payload of a didOpen notification.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// DidOpenParams is the params object for textDocument/didOpen.
type DidOpenParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// ExternalDocsParams is the params object for the positional
// experimental/externalDocs request: a document position, nothing more.
type ExternalDocsParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// ExternalDocsResult is the (possibly empty) URL the server resolved for
// the position in an externalDocs request. An empty Web is an unresolved
// outcome, not an error.
type ExternalDocsResult struct {
	Web   string `json:"web,omitempty"`
	Local string `json:"local,omitempty"`
}

// InitializeParams is a minimal subset of the standard LSP initialize
// request: enough capability advertisement to receive progress
// notifications and get positions back in UTF-8 offsets.
type InitializeParams struct {
	ProcessID    *int                 `json:"processId"`
	RootURI      string               `json:"rootUri"`
	Capabilities ClientCapabilities   `json:"capabilities"`
	WorkspaceFolders []WorkspaceFolder `json:"workspaceFolders,omitempty"`
}

type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type ClientCapabilities struct {
	Window       WindowClientCapabilities       `json:"window"`
	General      GeneralClientCapabilities      `json:"general"`
	Experimental map[string]interface{}         `json:"experimental,omitempty"`
}

type WindowClientCapabilities struct {
	WorkDoneProgress bool `json:"workDoneProgress"`
}

type GeneralClientCapabilities struct {
	PositionEncodings []string `json:"positionEncodings,omitempty"`
}

// InitializeResult carries the fields the client cares about: the
// server's reported version string, surfaced in top-level warnings on
// timeout per spec.md §4.G.
type InitializeResult struct {
	ServerInfo *ServerInfo `json:"serverInfo,omitempty"`
}

type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// ProgressParams is the payload of a $/progress notification. Value is
// left raw since its shape depends on WorkDoneProgress's Begin/Report/End
// discriminant, decoded lazily by the state machine.
type ProgressParams struct {
	Token json.RawMessage `json:"token"`
	Value json.RawMessage `json:"value"`
}

// WorkDoneProgressKind mirrors the "kind" discriminant of a $/progress
// WorkDoneProgress value.
type WorkDoneProgressKind struct {
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
}
