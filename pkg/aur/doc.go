// Package aur implements the asynchronous request dispatcher for the Arch
// User Repository.
//
// The dispatcher multiplexes two structurally different asynchronous
// sources behind one mechanism: HTTP transfers against the AUR's RPC and
// raw-download endpoints, and git subprocesses performing repository
// clones and updates. Both kinds share the same active-request registry,
// callback semantics, and cancellation path.
//
// # Dispatch model
//
// Callers build a request descriptor ([InfoRequest], [SearchRequest],
// [RawRequest], [CloneRequest]) and hand it to one of the QueueX methods
// together with a callback. Queueing never blocks: the request expands into
// one or more tracked wire requests, each with its own response handler. A
// subsequent blocking [Client.Wait] drives dispatch until the active set is
// empty, invoking each handler's callback exactly once — with a real
// completion, or synchronously at queue time with a negative status when
// setup fails. Callbacks may queue further requests; Wait keeps going.
//
// # Cancellation
//
// [Client.CancelAll] removes every active entry immediately. A cancelled
// HTTP transfer is aborted and its callback never fires. A cancelled clone
// only loses its exit watch: the git subprocess is deliberately left
// running and finishes unobserved.
//
// # Failure reporting
//
// Failure is reported once per wire request and never retried. Transport
// failures carry a best-effort error string and status 0; subprocess
// failures carry the exit status; setup failures carry a negative status.
// One metadata query split across several wire requests reports each
// constituent outcome independently.
package aur
