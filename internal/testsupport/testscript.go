package testsupport

import (
	"fmt"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/amonks/rail/internal/workerstub"
	"github.com/rogpeppe/go-internal/testscript"
)

var (
	buildOnce sync.Once
	railPath  string
	buildErr  error
)

// BuildRail builds the rail binary once and returns its path.
func BuildRail(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "rail-bin-")
		if err != nil {
			buildErr = err
			return
		}

		railPath = filepath.Join(binDir, "rail")
		cmd := exec.Command("go", "build", "-o", railPath, "./cmd/rail")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build rail: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}

	return railPath
}

// SetupScriptEnv configures common environment variables for testscript.
func SetupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("RAIL", BuildRail(t))

	homeDir := filepath.Join(env.WorkDir, "home")
	if err := EnsureHomeDirs(homeDir); err != nil {
		return err
	}
	env.Setenv("HOME", homeDir)
	env.Setenv("NO_COLOR", "1")
	env.Setenv("RAIL_WORKER_URL", "")
	env.Setenv("NTFY_URL", "")
	return nil
}

// CmdStubWorker starts an in-process stub worker for the rest of the
// script and points RAIL_WORKER_URL at it. An optional argument sets how
// many status fetches a task takes to finish.
func CmdStubWorker(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("stubworker does not support negation")
	}
	if len(args) > 1 {
		ts.Fatalf("usage: stubworker [fetches-to-finish]")
	}

	opts := workerstub.ServerOptions{}
	if len(args) == 1 {
		fetches, err := strconv.Atoi(args[0])
		if err != nil {
			ts.Fatalf("invalid fetch count %q: %v", args[0], err)
		}
		opts.FetchesToFinish = fetches
	}

	server := httptest.NewServer(workerstub.NewServer(opts).Handler())
	ts.Defer(server.Close)
	ts.Setenv("RAIL_WORKER_URL", server.URL)
}

// CmdEnvSet stores the trimmed contents of a file in an env var.
func CmdEnvSet(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("envset does not support negation")
	}
	if len(args) != 2 {
		ts.Fatalf("usage: envset VAR FILE")
	}

	value := strings.TrimSpace(ts.ReadFile(args[1]))
	ts.Setenv(args[0], value)
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
