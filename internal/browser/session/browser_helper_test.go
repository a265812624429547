// internal/browser/session/browser_helper_test.go
package session

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/semaphore"

	"github.com/xkilldash9x/climber/internal/config"
)

var (
	// globalProcessSemaphore limits concurrent browser processes across tests.
	globalProcessSemaphore     *semaphore.Weighted
	globalProcessSemaphoreOnce sync.Once
)

const (
	maxTestConcurrency        = 2
	defaultBrowserTestTimeout = 90 * time.Second
	testCleanupGracePeriod    = 1 * time.Second
	semaphoreAcquireTimeout   = 10 * time.Second
	testShutdownTimeout       = 15 * time.Second
)

func getGlobalProcessSemaphore() *semaphore.Weighted {
	globalProcessSemaphoreOnce.Do(func() {
		concurrency := int64(runtime.GOMAXPROCS(0))
		if concurrency > maxTestConcurrency {
			concurrency = maxTestConcurrency
		}
		if concurrency < 1 {
			concurrency = 1
		}
		globalProcessSemaphore = semaphore.NewWeighted(concurrency)
	})
	return globalProcessSemaphore
}

// chromePath finds a Chrome binary, preferring CLIMBER_CHROME.
func chromePath() string {
	if p := os.Getenv("CLIMBER_CHROME"); p != "" {
		return p
	}
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// testFixture is a live session against a real browser.
type testFixture struct {
	Session *Session
	Logger  *zap.Logger
	// RootCtx ends shortly before the test deadline.
	RootCtx context.Context
}

// newTestFixture launches a headless browser for one test. It skips when no
// browser is installed or with -short.
func newTestFixture(t *testing.T, configurators ...func(*config.BrowserConfig)) *testFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests disabled with -short")
	}
	execPath := chromePath()
	if execPath == "" {
		t.Skip("no Chrome binary found; set CLIMBER_CHROME to run browser tests")
	}

	logger := zaptest.NewLogger(t).With(zap.String("test", t.Name()))

	deadline, ok := t.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultBrowserTestTimeout)
	}
	rootCtx, rootCancel := context.WithDeadline(context.Background(), deadline.Add(-testCleanupGracePeriod))
	t.Cleanup(rootCancel)

	sem := getGlobalProcessSemaphore()
	acquireCtx, acquireCancel := context.WithTimeout(rootCtx, semaphoreAcquireTimeout)
	if err := sem.Acquire(acquireCtx, 1); err != nil {
		acquireCancel()
		t.Fatalf("Failed to acquire browser semaphore: %v", err)
	}
	acquireCancel()
	t.Cleanup(func() { sem.Release(1) })

	cfg := config.BrowserConfig{
		Headless:             true,
		DisableGPU:           true,
		DisableSiteIsolation: true,
		WindowWidth:          1280,
		WindowHeight:         900,
		UserDataDir:          t.TempDir(),
		ExecPath:             execPath,
		NavigationTimeout:    30 * time.Second,
	}
	for _, configure := range configurators {
		configure(&cfg)
	}

	s, err := New(rootCtx, cfg, logger)
	require.NoError(t, err, "Failed to start browser session")
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), testShutdownTimeout)
		defer cancel()
		if err := s.Close(shutdownCtx); err != nil {
			t.Logf("Warning: error during browser shutdown: %v", err)
		}
	})

	return &testFixture{Session: s, Logger: logger, RootCtx: rootCtx}
}
