package aur

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// newTestServer serves a minimal AUR: the RPC endpoint answers info queries
// from the given package set, raw paths serve fixed bytes.
func newTestServer(t *testing.T, packages map[string]string) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/rpc", func(w http.ResponseWriter, req *http.Request) {
		var results []string
		for _, name := range req.URL.Query()["arg[]"] {
			if version, ok := packages[name]; ok {
				results = append(results, fmt.Sprintf(
					`{"Name":%q,"PackageBase":%q,"Version":%q}`, name, name, version))
			}
		}
		fmt.Fprintf(w, `{"type":"multiinfo","version":5,"resultcount":%d,"results":[%s]}`,
			len(results), strings.Join(results, ","))
	})
	r.Get("/raw/*", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, "raw body")
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c := New(context.Background(), Options{BaseURL: baseURL, UserAgent: "auracle/test"})
	t.Cleanup(func() { c.Close() })
	return c
}

func TestQueueRpcRequest(t *testing.T) {
	srv := newTestServer(t, map[string]string{"cower": "18-1"})
	c := newTestClient(t, srv.URL)

	fired := 0
	var got RpcResponse
	c.QueueRpcRequest(NewInfoRequest("cower"), func(resp ResponseWrapper[RpcResponse]) error {
		fired++
		if !resp.Ok() {
			t.Errorf("wire error: %s", resp.Error())
		}
		if resp.Status() != 200 {
			t.Errorf("status = %d, want 200", resp.Status())
		}
		got = resp.Value()
		return nil
	})

	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if fired != 1 {
		t.Fatalf("callback fired %d times, want 1", fired)
	}
	if len(got.Results) != 1 || got.Results[0].Name != "cower" {
		t.Errorf("results = %+v", got.Results)
	}
	if c.NumActive() != 0 {
		t.Errorf("NumActive = %d after Wait", c.NumActive())
	}
}

func TestQueueRpcRequestSplitQuery(t *testing.T) {
	packages := make(map[string]string)
	req := NewInfoRequest()
	for i := 0; i < 1000; i++ {
		name := fmt.Sprintf("package-%04d-%s", i, strings.Repeat("x", 20))
		packages[name] = "1-1"
		req.AddArg(name)
	}

	srv := newTestServer(t, packages)
	c := newTestClient(t, srv.URL)

	wires := len(req.Build(srv.URL))
	if wires < 2 {
		t.Fatalf("query built %d wire requests, want a split", wires)
	}

	fired, results := 0, 0
	c.QueueRpcRequest(req, func(resp ResponseWrapper[RpcResponse]) error {
		fired++
		results += len(resp.Value().Results)
		return nil
	})

	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if fired != wires {
		t.Errorf("callback fired %d times, want one per wire request (%d)", fired, wires)
	}
	if results != len(packages) {
		t.Errorf("received %d results, want %d", results, len(packages))
	}
}

func TestQueueRawRequestStatusDelivered(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/missing", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	fired := false
	c.QueueRawRequest(NewRawRequest("/missing"), func(resp ResponseWrapper[RawResponse]) error {
		fired = true
		if !resp.Ok() {
			t.Errorf("HTTP-level failure must not be a wire error, got %q", resp.Error())
		}
		if resp.Status() != 404 {
			t.Errorf("status = %d, want 404", resp.Status())
		}
		return nil
	})

	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if !fired {
		t.Fatal("callback never fired")
	}
}

func TestQueueTarballRequestIdentityEncoding(t *testing.T) {
	encodings := make(chan string, 2)
	r := chi.NewRouter()
	r.Get("/snapshot/*", func(w http.ResponseWriter, req *http.Request) {
		encodings <- req.Header.Get("Accept-Encoding")
		fmt.Fprint(w, "tarball bytes")
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL)
	c.QueueTarballRequest(NewRawRequest("/snapshot/foo.tar.gz"), func(resp ResponseWrapper[RawResponse]) error {
		if string(resp.Value().Bytes) != "tarball bytes" {
			t.Errorf("body = %q", resp.Value().Bytes)
		}
		return nil
	})
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if enc := <-encodings; enc != "identity" {
		t.Errorf("tarball Accept-Encoding = %q, want identity", enc)
	}
}

func TestCancelAllDropsCallbacks(t *testing.T) {
	release := make(chan struct{})

	r := chi.NewRouter()
	r.Get("/rpc", func(w http.ResponseWriter, req *http.Request) {
		<-release
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	// Registered after srv.Close so it runs first: Close waits for the
	// handler, which blocks until release is closed.
	t.Cleanup(func() { close(release) })

	c := newTestClient(t, srv.URL)
	c.QueueRpcRequest(NewInfoRequest("cower"), func(ResponseWrapper[RpcResponse]) error {
		t.Error("callback fired for a cancelled request")
		return nil
	})
	if c.NumActive() != 1 {
		t.Fatalf("NumActive = %d, want 1", c.NumActive())
	}

	c.CancelAll()
	if c.NumActive() != 0 {
		t.Errorf("NumActive = %d after CancelAll, want 0", c.NumActive())
	}
	// Nothing left to drive; the abandoned transfer must not block Wait.
	if err := c.Wait(); err != nil {
		t.Errorf("Wait after CancelAll: %v", err)
	}
}

func TestContextCancellationAbortsWait(t *testing.T) {
	release := make(chan struct{})

	r := chi.NewRouter()
	r.Get("/rpc", func(w http.ResponseWriter, req *http.Request) {
		<-release
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	// Registered after srv.Close so it runs first: Close waits for the
	// handler, which blocks until release is closed.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	c := New(ctx, Options{BaseURL: srv.URL, UserAgent: "auracle/test"})
	t.Cleanup(func() { c.Close() })

	c.QueueRpcRequest(NewInfoRequest("cower"), func(ResponseWrapper[RpcResponse]) error {
		t.Error("callback fired for an aborted request")
		return nil
	})

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := c.Wait(); !errors.Is(err, ErrCancelled) {
		t.Errorf("Wait = %v, want ErrCancelled", err)
	}
	if c.NumActive() != 0 {
		t.Errorf("NumActive = %d after aborted Wait", c.NumActive())
	}
}

func TestFatalCallbackError(t *testing.T) {
	srv := newTestServer(t, map[string]string{"cower": "18-1"})
	c := newTestClient(t, srv.URL)

	boom := errors.New("boom")
	c.QueueRpcRequest(NewInfoRequest("cower"), func(ResponseWrapper[RpcResponse]) error {
		return boom
	})

	if err := c.Wait(); !errors.Is(err, boom) {
		t.Errorf("Wait = %v, want the callback error", err)
	}
	if c.NumActive() != 0 {
		t.Errorf("NumActive = %d after fatal error", c.NumActive())
	}

	// The dispatcher remains usable for the next cycle.
	ok := false
	c.QueueRpcRequest(NewInfoRequest("cower"), func(ResponseWrapper[RpcResponse]) error {
		ok = true
		return nil
	})
	if err := c.Wait(); err != nil || !ok {
		t.Errorf("next cycle: err = %v, fired = %v", err, ok)
	}
}

func TestCallbackMayQueueFurtherRequests(t *testing.T) {
	srv := newTestServer(t, map[string]string{"cower": "18-1", "expac": "9-1"})
	c := newTestClient(t, srv.URL)

	var second *RpcResponse
	c.QueueRpcRequest(NewInfoRequest("cower"), func(resp ResponseWrapper[RpcResponse]) error {
		c.QueueRpcRequest(NewInfoRequest("expac"), func(resp ResponseWrapper[RpcResponse]) error {
			v := resp.Value()
			second = &v
			return nil
		})
		return nil
	})

	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if second == nil || len(second.Results) != 1 || second.Results[0].Name != "expac" {
		t.Errorf("nested request result = %+v", second)
	}
}

// chdir changes into dir for the duration of the test, restoring the
// previous working directory on cleanup. Equivalent to t.Chdir, which
// needs a newer testing package than this toolchain provides.
func chdir(t *testing.T, dir string) {
	t.Helper()

	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

// installStubGit places a fake git on PATH that records its argv and exits
// with the given status.
func installStubGit(t *testing.T, exitStatus int) (bindir, logfile string) {
	t.Helper()

	bindir = t.TempDir()
	logfile = filepath.Join(bindir, "argv.log")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %s\nexit %d\n", logfile, exitStatus)
	if err := os.WriteFile(filepath.Join(bindir, "git"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bindir)
	return bindir, logfile
}

func TestQueueCloneRequestClone(t *testing.T) {
	_, logfile := installStubGit(t, 0)
	chdir(t, t.TempDir())

	c := newTestClient(t, "https://aur.archlinux.org")
	fired := 0
	c.QueueCloneRequest(NewCloneRequest("auracle-git"), func(resp ResponseWrapper[CloneResponse]) error {
		fired++
		if !resp.Ok() {
			t.Errorf("wire error: %s", resp.Error())
		}
		if resp.Status() != 0 {
			t.Errorf("status = %d, want 0", resp.Status())
		}
		if resp.Value().Operation != "clone" {
			t.Errorf("operation = %q, want clone", resp.Value().Operation)
		}
		return nil
	})

	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if fired != 1 {
		t.Fatalf("callback fired %d times, want 1", fired)
	}

	argv, err := os.ReadFile(logfile)
	if err != nil {
		t.Fatal(err)
	}
	want := "clone --quiet https://aur.archlinux.org/auracle-git.git\n"
	if string(argv) != want {
		t.Errorf("git argv = %q, want %q", argv, want)
	}
}

func TestQueueCloneRequestUpdate(t *testing.T) {
	_, logfile := installStubGit(t, 0)
	chdir(t, t.TempDir())

	// Existing git metadata switches the operation to a pull.
	if err := os.MkdirAll(filepath.Join("auracle-git", ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	c := newTestClient(t, "https://aur.archlinux.org")
	c.QueueCloneRequest(NewCloneRequest("auracle-git"), func(resp ResponseWrapper[CloneResponse]) error {
		if resp.Value().Operation != "update" {
			t.Errorf("operation = %q, want update", resp.Value().Operation)
		}
		return nil
	})
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	argv, err := os.ReadFile(logfile)
	if err != nil {
		t.Fatal(err)
	}
	want := "-C auracle-git pull --quiet --rebase --autostash --ff-only\n"
	if string(argv) != want {
		t.Errorf("git argv = %q, want %q", argv, want)
	}
}

func TestQueueCloneRequestExitStatus(t *testing.T) {
	installStubGit(t, 4)
	chdir(t, t.TempDir())

	c := newTestClient(t, "https://aur.archlinux.org")
	c.QueueCloneRequest(NewCloneRequest("auracle-git"), func(resp ResponseWrapper[CloneResponse]) error {
		if resp.Ok() {
			t.Error("non-zero exit reported Ok")
		}
		if resp.Status() != 4 {
			t.Errorf("status = %d, want 4", resp.Status())
		}
		if want := "git exited with unexpected exit status 4"; resp.Error() != want {
			t.Errorf("error = %q, want %q", resp.Error(), want)
		}
		return nil
	})
	if err := c.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestQueueCloneRequestSpawnFailure(t *testing.T) {
	t.Setenv("PATH", t.TempDir()) // no git anywhere
	chdir(t, t.TempDir())

	c := newTestClient(t, "https://aur.archlinux.org")
	fired := false
	c.QueueCloneRequest(NewCloneRequest("auracle-git"), func(resp ResponseWrapper[CloneResponse]) error {
		fired = true
		if resp.Status() >= 0 {
			t.Errorf("status = %d, want negative", resp.Status())
		}
		if !strings.HasPrefix(resp.Error(), "failed to spawn git") {
			t.Errorf("error = %q", resp.Error())
		}
		return nil
	})

	// Spawn failures report synchronously, before Wait.
	if !fired {
		t.Fatal("callback did not fire synchronously on spawn failure")
	}
	if c.NumActive() != 0 {
		t.Errorf("NumActive = %d, want 0", c.NumActive())
	}
	if err := c.Wait(); err != nil {
		t.Errorf("Wait: %v", err)
	}
}

func TestCancelCloneLeavesChildRunning(t *testing.T) {
	bindir := t.TempDir()
	marker := filepath.Join(bindir, "marker")
	script := fmt.Sprintf("#!/bin/sh\nsleep 0.3\n: > %s\n", marker)
	if err := os.WriteFile(filepath.Join(bindir, "git"), []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", bindir)
	chdir(t, t.TempDir())

	c := newTestClient(t, "https://aur.archlinux.org")
	c.QueueCloneRequest(NewCloneRequest("auracle-git"), func(ResponseWrapper[CloneResponse]) error {
		t.Error("callback fired for a cancelled clone")
		return nil
	})
	if c.NumActive() != 1 {
		t.Fatalf("NumActive = %d, want 1", c.NumActive())
	}

	c.CancelAll()
	if c.NumActive() != 0 {
		t.Errorf("NumActive = %d after CancelAll, want 0", c.NumActive())
	}
	if err := c.Wait(); err != nil {
		t.Errorf("Wait after CancelAll: %v", err)
	}

	// Cancellation only abandons the exit watch: the child survives and
	// finishes on its own.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(marker); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("child process did not outlive its cancelled entry")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
