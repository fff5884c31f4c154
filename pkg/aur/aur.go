package aur

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// ErrCancelled is returned by [Client.Wait] when CancelAll interrupted the
// dispatch cycle.
var ErrCancelled = errors.New("request dispatch cancelled")

// Default transfer limits, applied when the corresponding Options field is
// zero. The connection cap bounds resource use against the AUR across the
// whole dispatcher, not per request.
const (
	defaultConnectTimeout = 10 * time.Second
	defaultMaxConnections = 5
)

// Options configures a dispatcher. All fields are fixed at construction.
type Options struct {
	BaseURL        string
	UserAgent      string
	ConnectTimeout time.Duration
	MaxConnections int
}

// Callback signatures for the queue operations. A callback fires exactly
// once per wire request, synchronously on the goroutine inside Wait (or
// inside QueueX for setup failures). Returning a non-nil error is fatal to
// the dispatch cycle: all outstanding requests are cancelled and Wait
// returns that error.
type (
	RpcCallback   func(ResponseWrapper[RpcResponse]) error
	RawCallback   func(ResponseWrapper[RawResponse]) error
	CloneCallback func(ResponseWrapper[CloneResponse]) error
)

type entryKind int

const (
	entryTransfer entryKind = iota
	entryChild
)

// completion carries the outcome of one wire request from its transfer or
// reaper goroutine to the Wait loop.
type completion struct {
	id      uint64
	traceID string
	status  int
	errmsg  string
	body    []byte
}

// inflight is one active-request registry entry. The registry owns the
// response handler (fire) until completion; Cancel discards it without
// invoking the user callback.
type inflight struct {
	kind    entryKind
	abandon context.CancelFunc
	fire    func(completion) error
}

type encoding int

const (
	encodingDefault  encoding = iota // negotiated, transparently decompressed
	encodingIdentity                 // no compression, body delivered verbatim
)

// Client multiplexes AUR metadata queries, raw downloads and git
// clone/update subprocesses behind a single blocking Wait loop.
//
// The dispatcher is single-threaded by design: QueueX, Wait, CancelAll and
// Close must all be called from the same goroutine. Transfer and reaper
// goroutines communicate with that goroutine exclusively through the
// completion channel, so the active-request registry needs no locking.
// Callbacks run synchronously on the Wait call stack and may queue further
// requests; Wait keeps driving until the active set is empty.
type Client struct {
	opts   Options
	ctx    context.Context
	http   *http.Client
	tracer *tracer

	completions chan completion
	active      map[uint64]*inflight
	nextID      uint64
	cancelled   bool
}

// New creates a dispatcher. Cancelling ctx aborts any Wait in progress:
// outstanding entries are cancelled and Wait returns ErrCancelled. Wire
// tracing is configured from the AURACLE_DEBUG environment variable (see
// [DebugLevel]).
func New(ctx context.Context, opts Options) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = defaultMaxConnections
	}

	transport := &http.Transport{
		DialContext:       (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext,
		ForceAttemptHTTP2: true,
		MaxConnsPerHost:   opts.MaxConnections,
	}

	return &Client{
		opts:        opts,
		ctx:         ctx,
		http:        &http.Client{Transport: transport},
		tracer:      newTracerFromEnv(),
		completions: make(chan completion, 8),
		active:      make(map[uint64]*inflight),
	}
}

// Close releases the dispatcher's idle connections and trace resources.
// Outstanding entries are cancelled first; their callbacks never fire.
func (c *Client) Close() error {
	for len(c.active) > 0 {
		c.CancelAll()
	}
	c.http.CloseIdleConnections()
	c.tracer.close()
	return nil
}

// NumActive returns the number of in-flight wire requests.
func (c *Client) NumActive() int { return len(c.active) }

// QueueRpcRequest queues an RPC metadata query. The request may expand into
// several wire requests; cb fires once per wire request.
func (c *Client) QueueRpcRequest(req HTTPRequest, cb RpcCallback) {
	c.queueHTTP(req, encodingDefault, func(done completion) error {
		return cb(NewResponseWrapper(ParseRpcResponse(done.body), done.status, done.errmsg))
	})
}

// QueueRawRequest queues a fetch whose body is delivered as raw bytes.
func (c *Client) QueueRawRequest(req HTTPRequest, cb RawCallback) {
	c.queueHTTP(req, encodingDefault, func(done completion) error {
		return cb(NewResponseWrapper(RawResponse{Bytes: done.body}, done.status, done.errmsg))
	})
}

// QueueTarballRequest queues a snapshot tarball download. The transfer
// requests identity encoding so the archive is not decompressed twice.
func (c *Client) QueueTarballRequest(req *RawRequest, cb RawCallback) {
	c.queueHTTP(req, encodingIdentity, func(done completion) error {
		return cb(NewResponseWrapper(RawResponse{Bytes: done.body}, done.status, done.errmsg))
	})
}

func (c *Client) queueHTTP(req HTTPRequest, enc encoding, fire func(completion) error) {
	for _, target := range req.Build(c.opts.BaseURL) {
		traceID := newTraceID()

		httpReq, err := http.NewRequest(http.MethodGet, target, nil)
		if err != nil {
			// Setup failure: report through the same callback channel,
			// synchronously, with a negative status. A fatal return from
			// this path is dropped; only loop-delivered completions can
			// abort the cycle.
			_ = fire(completion{
				traceID: traceID,
				status:  -1,
				errmsg:  fmt.Sprintf("failed to create request for %s: %v", target, err),
			})
			continue
		}
		httpReq.Header.Set("User-Agent", c.opts.UserAgent)
		if enc == encodingIdentity {
			httpReq.Header.Set("Accept-Encoding", "identity")
		}

		ctx, abandon := context.WithCancel(c.ctx)
		id := c.register(&inflight{kind: entryTransfer, abandon: abandon, fire: fire})

		c.tracer.request(traceID, http.MethodGet, target)
		go c.transfer(ctx, id, traceID, httpReq.WithContext(ctx))
	}
}

// transfer runs one wire request to completion and reports the outcome. It
// owns no dispatcher state; a cancelled context means the entry was
// abandoned and the result must be dropped.
func (c *Client) transfer(ctx context.Context, id uint64, traceID string, req *http.Request) {
	done := completion{id: id, traceID: traceID}

	resp, err := c.http.Do(req)
	if err != nil {
		done.errmsg = transferError(err)
	} else {
		done.status = resp.StatusCode
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			done.errmsg = transferError(err)
		} else {
			done.body = body
		}
	}

	select {
	case c.completions <- done:
	case <-ctx.Done():
	}
}

// transferError extracts a human-readable message from a transport failure,
// falling back to a generic protocol error.
func transferError(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "protocol error"
}

// QueueCloneRequest clones the package repository, or updates it when the
// target directory already contains git metadata. Exactly one subprocess
// runs per request, with a fixed argument vector. A spawn failure reports
// synchronously through cb with the negated OS error code.
func (c *Client) QueueCloneRequest(req *CloneRequest, cb CloneCallback) {
	_, err := os.Stat(filepath.Join(req.Reponame(), ".git"))
	update := err == nil

	operation := "clone"
	argv := []string{"git", "clone", "--quiet", req.Build(c.opts.BaseURL)[0]}
	if update {
		operation = "update"
		argv = []string{"git", "-C", req.Reponame(), "pull", "--quiet", "--rebase",
			"--autostash", "--ff-only"}
	}

	fire := func(done completion) error {
		return cb(NewResponseWrapper(CloneResponse{Operation: operation}, done.status, done.errmsg))
	}

	traceID := newTraceID()
	c.tracer.spawn(traceID, argv)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		// Fatal returns are dropped on the synchronous path, as above.
		_ = fire(completion{
			traceID: traceID,
			status:  -spawnErrno(err),
			errmsg:  fmt.Sprintf("failed to spawn git: %v", err),
		})
		return
	}

	ctx, abandon := context.WithCancel(c.ctx)
	id := c.register(&inflight{kind: entryChild, abandon: abandon, fire: fire})
	go c.reap(ctx, id, traceID, cmd)
}

// reap waits for the child to exit and reports its status. The wait always
// runs to completion so the child is reaped even when the entry was
// cancelled; only the report is dropped in that case.
func (c *Client) reap(ctx context.Context, id uint64, traceID string, cmd *exec.Cmd) {
	done := completion{id: id, traceID: traceID}

	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		done.status = exitErr.ExitCode()
		done.errmsg = fmt.Sprintf("git exited with unexpected exit status %d", done.status)
	default:
		done.status = -1
		done.errmsg = transferError(err)
	}

	select {
	case c.completions <- done:
	case <-ctx.Done():
	}
}

// spawnErrno maps a spawn failure to its OS error code, defaulting to 1
// when no errno is attached.
func spawnErrno(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 1
}

func (c *Client) register(entry *inflight) uint64 {
	c.nextID++
	id := c.nextID
	c.active[id] = entry
	return id
}

// cancel removes one entry. HTTP transfers are aborted at the transport
// level and their handlers discarded without invoking the user callback.
// Process entries only lose their exit watch: the child keeps running.
// The registry erase strictly precedes releasing the entry's resources so a
// re-entrant completion never observes a stale entry.
func (c *Client) cancel(id uint64, entry *inflight) {
	delete(c.active, id)
	entry.abandon()
}

// CancelAll synchronously cancels every active entry and marks the current
// dispatch cycle as cancelled, which the next Wait return consumes.
func (c *Client) CancelAll() {
	for id, entry := range c.active {
		c.cancel(id, entry)
	}
	c.cancelled = true
}

// Wait drives dispatch until the active-request set is empty. Completion
// callbacks run synchronously on this call stack, in the order completions
// arrive; no relative order between independent wire requests is promised.
//
// Wait resets the cancellation flag on entry so the dispatcher is reusable
// across cycles. It returns nil on success, ErrCancelled if CancelAll was
// invoked during the wait (including via context cancellation), or the
// first fatal callback error.
func (c *Client) Wait() error {
	c.cancelled = false

	var fatal error
	for len(c.active) > 0 {
		select {
		case done := <-c.completions:
			entry, ok := c.active[done.id]
			if !ok {
				// Completed after cancellation; the handler is gone.
				continue
			}
			delete(c.active, done.id)
			entry.abandon()

			c.tracer.finish(done.traceID, done.status, done.errmsg)
			if err := entry.fire(done); err != nil {
				fatal = err
				c.CancelAll()
			}
		case <-c.ctx.Done():
			c.CancelAll()
		}
	}

	if fatal != nil {
		return fatal
	}
	if c.cancelled {
		return ErrCancelled
	}
	return nil
}
