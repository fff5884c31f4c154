package aur

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewTracerFromEnvDisabled(t *testing.T) {
	t.Setenv("AURACLE_DEBUG", "")
	if tr := newTracerFromEnv(); tr != nil {
		t.Errorf("tracer = %+v, want nil", tr)
	}
}

func TestNewTracerFromEnvRequests(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.log")
	t.Setenv("AURACLE_DEBUG", "requests:"+path)

	tr := newTracerFromEnv()
	if tr == nil || tr.level != DebugRequests {
		t.Fatalf("tracer = %+v", tr)
	}

	tr.request("abcd1234", "GET", "https://aur.archlinux.org/rpc?v=5")
	tr.spawn("ef567890", []string{"git", "clone", "--quiet", "x.git"})
	tr.close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("trace = %q", data)
	}
	if lines[0] != "GET https://aur.archlinux.org/rpc?v=5 [abcd1234]" {
		t.Errorf("request line = %q", lines[0])
	}
	if lines[1] != "EXEC git clone --quiet x.git [ef567890]" {
		t.Errorf("spawn line = %q", lines[1])
	}
}

func TestNewTracerFromEnvVerbose(t *testing.T) {
	t.Setenv("AURACLE_DEBUG", "1")
	tr := newTracerFromEnv()
	if tr == nil || tr.level != DebugVerbose {
		t.Fatalf("tracer = %+v", tr)
	}
	if tr.log == nil {
		t.Error("verbose tracer without a logger")
	}
}

func TestNilTracerIsSilent(t *testing.T) {
	var tr *tracer
	tr.request("id", "GET", "url")
	tr.spawn("id", []string{"git"})
	tr.finish("id", 0, "")
	tr.close()
}

func TestNewTraceID(t *testing.T) {
	a, b := newTraceID(), newTraceID()
	if len(a) != 8 || len(b) != 8 {
		t.Errorf("trace id lengths = %d, %d, want 8", len(a), len(b))
	}
	if a == b {
		t.Error("consecutive trace ids collide")
	}
}
