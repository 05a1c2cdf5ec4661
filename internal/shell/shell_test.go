package shell

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/deepdreamgames/pachka/internal/app"
	"github.com/deepdreamgames/pachka/internal/config"
	"github.com/deepdreamgames/pachka/internal/logging"
	"github.com/deepdreamgames/pachka/internal/metrics"
)

func newTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Config{
		Endpoints:  []string{"http://127.0.0.1:0/"},
		Path:       t.TempDir(),
		Extensions: []string{".tgz"},
		Verbosity:  "Info",
	}
	logger, level, err := logging.New(logging.Info)
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}
	return app.New(cfg, logger, level, metrics.New())
}

func runLines(t *testing.T, s *Shell, lines string) string {
	t.Helper()
	s.In = strings.NewReader(lines)
	var out bytes.Buffer
	s.Out = &out
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

func TestShellStartStopExit(t *testing.T) {
	a := newTestApp(t)
	s := &Shell{App: a}
	out := runLines(t, s, "start\nlist\nstop\nexit\n")

	if !strings.Contains(out, "started") {
		t.Fatalf("expected 'started' in output, got: %s", out)
	}
	if !strings.Contains(out, "(no packages)") {
		t.Fatalf("expected empty list message, got: %s", out)
	}
	if !strings.Contains(out, "stopped") {
		t.Fatalf("expected 'stopped' in output, got: %s", out)
	}
	if a.Running() {
		t.Fatalf("expected app stopped after shell exit")
	}
}

func TestShellScanReportsStats(t *testing.T) {
	a := newTestApp(t)
	s := &Shell{App: a}
	out := runLines(t, s, "scan\nquit\n")

	if !strings.Contains(out, "scanned 0 candidates") {
		t.Fatalf("expected scan summary, got: %s", out)
	}
}

func TestShellUnknownCommandReportsError(t *testing.T) {
	a := newTestApp(t)
	s := &Shell{App: a}
	out := runLines(t, s, "bogus\nquit\n")

	if !strings.Contains(out, "error:") {
		t.Fatalf("expected error line for unknown command, got: %s", out)
	}
}

func TestShellVerbosityGetAndSet(t *testing.T) {
	a := newTestApp(t)
	s := &Shell{App: a}
	out := runLines(t, s, "verbosity\nverbosity Debug\nquit\n")

	if !strings.Contains(out, "verbosity levels:") {
		t.Fatalf("expected levels listing, got: %s", out)
	}
	if !strings.Contains(out, "verbosity set to Debug") {
		t.Fatalf("expected confirmation of new level, got: %s", out)
	}
}
