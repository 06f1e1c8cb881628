package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// State is one of the client's explicit states, spec.md §4.G.
type State int

const (
	StateSpawn State = iota
	StateInitialize
	StateReadyForSync
	StateIndexing
	StateQuery
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInitialize:
		return "initialize"
	case StateReadyForSync:
		return "ready-for-sync"
	case StateIndexing:
		return "indexing"
	case StateQuery:
		return "query"
	case StateShutdown:
		return "shutdown"
	default:
		return "spawn"
	}
}

// Options configures one Client run.
type Options struct {
	Command          []string
	WorkspaceRoot    string
	Env              []string
	HandshakeTimeout time.Duration
	IndexingTimeout  time.Duration
	QueryTimeout     time.Duration
	IndexingCooldown time.Duration
	QueryConcurrency int64
}

// DefaultOptions fills in the timeouts and concurrency spec.md §4.G/§5
// leave as configurable knobs but doesn't mandate specific values for.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout: 30 * time.Second,
		IndexingTimeout:  5 * time.Minute,
		QueryTimeout:     10 * time.Second,
		IndexingCooldown: 300 * time.Millisecond,
		QueryConcurrency: 4,
	}
}

// Client owns a single language-server subprocess. All server frames are
// read on one goroutine (readLoop); outgoing frames from concurrent callers
// are serialized by the Transport.
type Client struct {
	opts Options

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	trans  *Transport
	nextID int64

	mu       sync.Mutex
	state    State
	pending  map[int64]chan Response
	progress map[string]bool // active progress tokens

	serverVersion string
}

// Spawn starts the language server subprocess and blocks in
// State.Spawn/Initialize until the server has replied to `initialize`
// or the handshake timeout elapses.
func Spawn(ctx context.Context, opts Options) (*Client, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("spawning language server: empty command")
	}

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.WorkspaceRoot
	cmd.Env = append(os.Environ(), opts.Env...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("opening language server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening language server stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting language server: %w", err)
	}

	c := &Client{
		opts:     opts,
		cmd:      cmd,
		stdin:    stdin,
		trans:    NewTransport(stdin, stdout),
		state:    StateSpawn,
		pending:  make(map[int64]chan Response),
		progress: make(map[string]bool),
	}

	go c.readLoop()

	if err := c.initialize(ctx); err != nil {
		_ = c.killChild()
		return nil, err
	}
	return c, nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// State reports the client's current state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ServerVersion returns the version string the server reported at
// initialize time, used in timeout warnings per spec.md §4.G.
func (c *Client) ServerVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverVersion
}

func (c *Client) initialize(ctx context.Context) error {
	c.setState(StateInitialize)

	ctx, cancel := context.WithTimeout(ctx, c.opts.HandshakeTimeout)
	defer cancel()

	pid := os.Getpid()
	result, err := c.call(ctx, "initialize", InitializeParams{
		ProcessID: &pid,
		RootURI:   "file://" + c.opts.WorkspaceRoot,
		Capabilities: ClientCapabilities{
			Window:  WindowClientCapabilities{WorkDoneProgress: true},
			General: GeneralClientCapabilities{PositionEncodings: []string{"utf-8"}},
			Experimental: map[string]interface{}{
				"localDocs": true,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("initialize handshake: %w", err)
	}

	var res InitializeResult
	if err := json.Unmarshal(result, &res); err == nil && res.ServerInfo != nil {
		c.mu.Lock()
		c.serverVersion = res.ServerInfo.Version
		c.mu.Unlock()
	}

	if err := c.notify("initialized", struct{}{}); err != nil {
		return fmt.Errorf("sending initialized: %w", err)
	}
	c.setState(StateReadyForSync)
	return nil
}

// OpenEntry sends textDocument/didOpen for uri with text exactly as given
// (LSPItemResolver passes the Probe document alone; the project's real
// entry source is not prepended) and then waits, honoring IndexingTimeout,
// until one IndexingCooldown passes with no indexing progress token open.
// If no indexing notification has arrived by the end of the first
// cooldown, the client moves to Query at that point.
func (c *Client) OpenEntry(ctx context.Context, uri, languageID, text string) error {
	if err := c.notify("textDocument/didOpen", DidOpenParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: languageID, Version: 1, Text: text},
	}); err != nil {
		return fmt.Errorf("opening entry document: %w", err)
	}
	return c.awaitIndexing(ctx)
}

func (c *Client) awaitIndexing(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.IndexingTimeout)
	defer cancel()

	timer := time.NewTimer(c.opts.IndexingCooldown)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.setState(StateQuery)
			return fmt.Errorf("indexing timed out after %s (server %s)", c.opts.IndexingTimeout, c.ServerVersion())
		case <-timer.C:
			if !c.anyIndexingActive() {
				c.setState(StateQuery)
				return nil
			}
			timer.Reset(c.opts.IndexingCooldown)
		}
	}
}

func (c *Client) anyIndexingActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.progress) > 0
}

// QueryResult pairs an item's probe offset with what the server returned.
type QueryResult struct {
	Offset   int
	Resolved bool
	URL      string
}

// Query issues one experimental/externalDocs request per offset, bounded
// to QueryConcurrency in flight at a time. It refuses to run outside
// State.Query — spec.md is explicit that querying during Indexing or
// cooldown "silently produces empty results", which this client avoids by
// construction rather than tolerating.
func (c *Client) Query(ctx context.Context, uri string, offsets []int, toPosition func(offset int) Position) (map[int]QueryResult, error) {
	if c.State() != StateQuery {
		return nil, fmt.Errorf("query issued outside Query state (in %s)", c.State())
	}

	sem := semaphore.NewWeighted(c.opts.QueryConcurrency)
	results := make(map[int]QueryResult, len(offsets))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr atomic.Value

	for _, off := range offsets {
		off := off
		if err := sem.Acquire(ctx, 1); err != nil {
			firstErr.Store(err)
			break
		}
		wg.Add(1)
		go func() {
			defer sem.Release(1)
			defer wg.Done()

			qctx, cancel := context.WithTimeout(ctx, c.opts.QueryTimeout)
			defer cancel()

			raw, err := c.call(qctx, "experimental/externalDocs", ExternalDocsParams{
				TextDocument: TextDocumentIdentifier{URI: uri},
				Position:     toPosition(off),
			})

			var res QueryResult
			res.Offset = off
			if err != nil {
				res.Resolved = false
			} else {
				var doc ExternalDocsResult
				if json.Unmarshal(raw, &doc) == nil && doc.Web != "" {
					res.Resolved = true
					res.URL = doc.Web
				}
			}

			mu.Lock()
			results[off] = res
			mu.Unlock()
		}()
	}
	wg.Wait()

	if v := firstErr.Load(); v != nil {
		return results, v.(error)
	}
	return results, nil
}

// Shutdown sends shutdown/exit and waits for the child to exit, killing
// it if it doesn't within the grace period.
func (c *Client) Shutdown(ctx context.Context, grace time.Duration) error {
	c.setState(StateShutdown)

	sctx, cancel := context.WithTimeout(ctx, grace)
	defer cancel()
	_, _ = c.call(sctx, "shutdown", nil)
	_ = c.notify("exit", nil)

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(grace):
		return c.killChild()
	}
}

func (c *Client) killChild() error {
	if c.cmd.Process == nil {
		return nil
	}
	return c.cmd.Process.Kill()
}

func (c *Client) notify(method string, params interface{}) error {
	return c.trans.Send(Notification{JSONRPC: "2.0", Method: method, Params: params})
}

func (c *Client) call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&c.nextID, 1)
	ch := make(chan Response, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.trans.Send(Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %s (code %d)", method, resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// readLoop is the single goroutine reading server frames; it dispatches
// responses to waiting calls and updates progress-token bookkeeping from
// $/progress notifications, exactly the "serialize all server traffic
// through a single task" design note in spec.md §9.
func (c *Client) readLoop() {
	for {
		raw, err := c.trans.Recv()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			continue
		}

		switch {
		case env.ID != nil && (env.Result != nil || env.Error != nil):
			c.mu.Lock()
			ch, ok := c.pending[*env.ID]
			delete(c.pending, *env.ID)
			c.mu.Unlock()
			if ok {
				ch <- Response{ID: *env.ID, Result: env.Result, Error: env.Error}
			}
		case env.Method == "$/progress":
			c.handleProgress(env.Params)
		}
	}
}

func (c *Client) handleProgress(params json.RawMessage) {
	var p ProgressParams
	if err := json.Unmarshal(params, &p); err != nil {
		return
	}
	var kind WorkDoneProgressKind
	if err := json.Unmarshal(p.Value, &kind); err != nil {
		return
	}

	token := string(p.Token)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind.Kind {
	case "begin":
		if !isIndexingTitle(kind.Title) {
			return
		}
		c.progress[token] = true
		if c.state == StateReadyForSync {
			c.state = StateIndexing
		}
	case "end":
		delete(c.progress, token)
	}
}

// isIndexingTitle reports whether a work-done progress title names the
// indexing category, per spec.md §4.G ("progress events whose title matches
// the indexing category"). rust-analyzer's own indexing progress is titled
// "Indexing" or "Roots Scanned"; matched case-insensitively and loosely so
// other language servers' equivalents also gate correctly, while an
// unrelated progress token (a cargo check, a build script run) does not
// trip the state machine.
func isIndexingTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "index") || strings.Contains(t, "roots scanned")
}
