package aur

import (
	"fmt"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DebugLevel selects how much wire-level tracing the dispatcher emits.
// It is fixed at construction from the AURACLE_DEBUG environment variable.
type DebugLevel int

const (
	// DebugNone disables tracing.
	DebugNone DebugLevel = iota
	// DebugRequests appends one line per wire request to a trace file.
	DebugRequests
	// DebugVerbose logs queue and completion events to stderr.
	DebugVerbose
)

// tracer writes wire-level trace output. All methods are invoked from the
// dispatcher goroutine only, so no synchronization is needed. A nil tracer
// is valid and silent.
type tracer struct {
	level DebugLevel
	file  *os.File
	log   *charmlog.Logger
}

// newTracerFromEnv builds a tracer from AURACLE_DEBUG: empty disables
// tracing, "requests:<path>" traces wire-request lines to the named file,
// and any other non-empty value enables verbose logging to stderr.
func newTracerFromEnv() *tracer {
	value := os.Getenv("AURACLE_DEBUG")
	if value == "" {
		return nil
	}

	if path, ok := strings.CutPrefix(value, "requests:"); ok {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to open trace file %s: %v\n", path, err)
			return nil
		}
		return &tracer{level: DebugRequests, file: f}
	}

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           charmlog.DebugLevel,
		Prefix:          "aur",
	})
	return &tracer{level: DebugVerbose, log: logger}
}

// newTraceID returns a short identifier linking a wire request's queue and
// completion trace lines.
func newTraceID() string {
	return uuid.NewString()[:8]
}

func (t *tracer) request(id, method, url string) {
	if t == nil {
		return
	}
	switch t.level {
	case DebugRequests:
		fmt.Fprintf(t.file, "%s %s [%s]\n", method, url, id)
	case DebugVerbose:
		t.log.Debug("queue", "id", id, "method", method, "url", url)
	}
}

func (t *tracer) spawn(id string, argv []string) {
	if t == nil {
		return
	}
	switch t.level {
	case DebugRequests:
		fmt.Fprintf(t.file, "EXEC %s [%s]\n", strings.Join(argv, " "), id)
	case DebugVerbose:
		t.log.Debug("spawn", "id", id, "argv", strings.Join(argv, " "))
	}
}

func (t *tracer) finish(id string, status int, errmsg string) {
	if t == nil || t.level != DebugVerbose {
		return
	}
	if errmsg != "" {
		t.log.Debug("finish", "id", id, "status", status, "error", errmsg)
		return
	}
	t.log.Debug("finish", "id", id, "status", status)
}

func (t *tracer) close() {
	if t == nil || t.file == nil {
		return
	}
	t.file.Close()
}
